package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/codeready-toolchain/sbp/pkg/events"
)

// keepaliveInterval bounds how long an idle SSE stream goes without a byte
// on the wire, so intermediaries (proxies, load balancers) don't time out
// the connection.
const keepaliveInterval = 15 * time.Second

// sseHandler upgrades GET /sbp into a server-sent-event stream carrying
// trigger notifications. It mints a new session id (echoed back via
// Sbp-Session-Id) and, if the client presents Last-Event-ID, best-effort
// replays retained frames newer than that id before switching to live
// delivery.
func (s *Server) sseHandler(c *gin.Context) {
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.String(http.StatusInternalServerError, "streaming unsupported")
		return
	}

	session := s.events.NewSession()
	defer s.events.CloseSession(session.ID)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header(headerSessionID, session.ID)
	c.Status(http.StatusOK)

	if err := events.WriteConnected(c.Writer, s.events.NextEventID()); err != nil {
		return
	}
	flusher.Flush()

	if lastID := c.GetHeader("Last-Event-ID"); lastID != "" {
		if since, err := strconv.ParseInt(lastID, 10, 64); err == nil {
			for _, f := range s.events.ReplaySince(since) {
				if err := events.WriteFrame(c.Writer, f); err != nil {
					return
				}
			}
			flusher.Flush()
		}
	}

	ticker := time.NewTicker(keepaliveInterval)
	defer ticker.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-session.Done():
			return
		case frame := <-session.Frames:
			if err := events.WriteFrame(c.Writer, frame); err != nil {
				return
			}
			flusher.Flush()
		case <-ticker.C:
			if err := events.WriteKeepalive(c.Writer); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
