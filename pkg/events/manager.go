package events

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// sendBuffer bounds how many undelivered frames a session queues before a
// slow client starts dropping notifications rather than blocking Publish.
const sendBuffer = 64

// retainLimit bounds how many past trigger frames are kept for replay when a
// client reconnects with Last-Event-ID, mirroring this codebase's
// catchup-on-reconnect pattern (see the WebSocket ConnectionManager's
// catchupLimit) adapted from a per-channel Postgres replay to a simple
// in-memory tape, since SBP has no durable event log to query.
const retainLimit = 200

// Session is one SSE client connection. Frames flows into it from Publish;
// the HTTP handler that owns the underlying ResponseWriter drains Frames in
// a loop and flushes each one. Which scents a session subscribes to is
// tracked by Manager under its own lock, never on the Session itself.
type Session struct {
	ID     string
	Frames chan Frame

	closeOnce sync.Once
	done      chan struct{}
}

func newSession() *Session {
	return &Session{
		ID:     uuid.NewString(),
		Frames: make(chan Frame, sendBuffer),
		done:   make(chan struct{}),
	}
}

// Close signals the owning handler loop (via Done) to stop. Safe to call
// more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// Done returns a channel closed when the session is torn down.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Manager tracks live SSE sessions and which scents each one subscribes to.
// Mirrors the connection/channel mutex split used for WebSocket fan-out
// elsewhere in this codebase: session lifecycle and subscription bookkeeping
// are independent locks so a slow subscribe doesn't block registering a new
// connection.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	subMu sync.RWMutex
	subs  map[string]map[string]bool // scent_id -> session_id set

	nextEventID atomic.Int64
	logger      *slog.Logger

	retainedMu sync.Mutex
	retained   []Frame
}

// NewManager constructs an empty Manager.
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		sessions: make(map[string]*Session),
		subs:     make(map[string]map[string]bool),
		logger:   logger,
	}
}

// NewSession registers a new session and returns it. Callers should defer
// CloseSession(session.ID).
func (m *Manager) NewSession() *Session {
	s := newSession()
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

// CloseSession removes a session and all of its subscriptions.
func (m *Manager) CloseSession(sessionID string) {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	delete(m.sessions, sessionID)
	m.mu.Unlock()
	if !ok {
		return
	}

	m.subMu.Lock()
	for scentID, subscribers := range m.subs {
		delete(subscribers, sessionID)
		if len(subscribers) == 0 {
			delete(m.subs, scentID)
		}
	}
	m.subMu.Unlock()

	s.Close()
}

// Subscribe attaches a session to a scent's trigger notifications. Returns
// false if the session does not exist.
func (m *Manager) Subscribe(sessionID, scentID string) bool {
	m.mu.RLock()
	_, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if !ok {
		return false
	}

	m.subMu.Lock()
	defer m.subMu.Unlock()
	if m.subs[scentID] == nil {
		m.subs[scentID] = make(map[string]bool)
	}
	m.subs[scentID][sessionID] = true
	return true
}

// Unsubscribe detaches a session from a scent. Returns false if it was not
// subscribed.
func (m *Manager) Unsubscribe(sessionID, scentID string) bool {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	subscribers, ok := m.subs[scentID]
	if !ok || !subscribers[sessionID] {
		return false
	}
	delete(subscribers, sessionID)
	if len(subscribers) == 0 {
		delete(m.subs, scentID)
	}
	return true
}

// Publish delivers a trigger notification to every session subscribed to
// scentID. Delivery is best-effort: a session whose buffer is full drops the
// frame rather than stalling the dispatcher, matching the engine's
// non-blocking trigger dispatch contract.
func (m *Manager) Publish(scentID string, payload any) {
	data, err := marshalTrigger(payload)
	if err != nil {
		m.logger.Error("failed to marshal trigger notification", "scent_id", scentID, "error", err)
		return
	}

	m.subMu.RLock()
	subscribers := m.subs[scentID]
	ids := make([]string, 0, len(subscribers))
	for id := range subscribers {
		ids = append(ids, id)
	}
	m.subMu.RUnlock()
	if len(ids) == 0 {
		return
	}

	frame := Frame{Event: "message", ID: m.nextEventID.Add(1), Data: data}
	m.retain(frame)

	m.mu.RLock()
	sessions := make([]*Session, 0, len(ids))
	for _, id := range ids {
		if s, ok := m.sessions[id]; ok {
			sessions = append(sessions, s)
		}
	}
	m.mu.RUnlock()

	for _, s := range sessions {
		select {
		case s.Frames <- frame:
		default:
			m.logger.Warn("dropping trigger notification, session buffer full", "session_id", s.ID, "scent_id", scentID)
		}
	}
}

// NextEventID returns the next monotonic SSE event id without publishing,
// used for the initial "connected" frame.
func (m *Manager) NextEventID() int64 {
	return m.nextEventID.Add(1)
}

func (m *Manager) retain(f Frame) {
	m.retainedMu.Lock()
	defer m.retainedMu.Unlock()
	m.retained = append(m.retained, f)
	if len(m.retained) > retainLimit {
		m.retained = m.retained[len(m.retained)-retainLimit:]
	}
}

// ReplaySince returns retained trigger frames with an id strictly greater
// than sinceID, in publish order. Used to serve a Last-Event-ID reconnect.
// Only the last retainLimit frames are kept: if frames newer than sinceID
// have already been dropped from the tape, the result holds only those still
// retained and carries no sign of the gap. An empty slice means nothing newer
// than sinceID is retained, not that no frames were ever published.
func (m *Manager) ReplaySince(sinceID int64) []Frame {
	m.retainedMu.Lock()
	defer m.retainedMu.Unlock()
	var out []Frame
	for _, f := range m.retained {
		if f.ID > sinceID {
			out = append(out, f)
		}
	}
	return out
}

// SessionCount returns the number of live sessions.
func (m *Manager) SessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
