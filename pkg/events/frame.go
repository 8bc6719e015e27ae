package events

import (
	"fmt"
	"io"
)

// WriteConnected writes the once-per-stream "connected" event.
func WriteConnected(w io.Writer, eventID int64) error {
	_, err := fmt.Fprintf(w, "event: connected\nid: %d\ndata: {}\n\n", eventID)
	return err
}

// WriteFrame writes a trigger notification frame.
func WriteFrame(w io.Writer, f Frame) error {
	_, err := fmt.Fprintf(w, "event: %s\nid: %d\ndata: %s\n\n", f.Event, f.ID, f.Data)
	return err
}

// WriteKeepalive writes a comment line so intermediaries don't time out an
// idle connection. Per the wire format, lines starting with ":" carry no
// event semantics and clients must ignore them.
func WriteKeepalive(w io.Writer) error {
	_, err := io.WriteString(w, ": keepalive\n\n")
	return err
}
