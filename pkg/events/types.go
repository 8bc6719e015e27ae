// Package events implements the server-sent-event push channel described in
// the external interface: one SSE stream per client session, event names
// "connected" and "message", and a lightweight subscribe/unsubscribe registry
// keyed by scent id. It is adapted from this codebase's WebSocket connection
// manager, trading its bidirectional LISTEN/UNLISTEN plumbing for a simple
// one-way fan-out (SBP's push channel carries only trigger notifications, no
// client-originated commands travel back over it).
package events

import "encoding/json"

// Frame is one SSE event: a name, a monotonic id, and a JSON data payload.
type Frame struct {
	Event string
	ID    int64
	Data  []byte
}

// TriggerMessage is the JSON-RPC-shaped notification body carried by a
// "message" frame.
type TriggerMessage struct {
	Method string `json:"method"`
	Params any    `json:"params"`
}

func marshalTrigger(params any) ([]byte, error) {
	return json.Marshal(TriggerMessage{Method: "sbp/trigger", Params: params})
}
