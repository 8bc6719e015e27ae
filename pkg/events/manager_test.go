package events

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribe_RequiresExistingSession(t *testing.T) {
	m := NewManager(nil)
	assert.False(t, m.Subscribe("missing", "s1"))

	s := m.NewSession()
	assert.True(t, m.Subscribe(s.ID, "s1"))
}

func TestPublish_DeliversOnlyToSubscribers(t *testing.T) {
	m := NewManager(nil)
	subscribed := m.NewSession()
	other := m.NewSession()
	require.True(t, m.Subscribe(subscribed.ID, "s1"))

	m.Publish("s1", map[string]any{"scent_id": "s1"})

	select {
	case f := <-subscribed.Frames:
		assert.Equal(t, "message", f.Event)
		assert.Contains(t, string(f.Data), "sbp/trigger")
	default:
		t.Fatal("expected a frame on the subscribed session")
	}

	select {
	case <-other.Frames:
		t.Fatal("unsubscribed session should not receive a frame")
	default:
	}
}

func TestCloseSession_RemovesSubscriptions(t *testing.T) {
	m := NewManager(nil)
	s := m.NewSession()
	m.Subscribe(s.ID, "s1")
	m.CloseSession(s.ID)

	assert.False(t, m.Unsubscribe(s.ID, "s1"))
	assert.Equal(t, 0, m.SessionCount())

	select {
	case <-s.Done():
	default:
		t.Fatal("expected session done channel to be closed")
	}
}

func TestPublish_DropsFrameWhenBufferFull(t *testing.T) {
	m := NewManager(nil)
	s := m.NewSession()
	m.Subscribe(s.ID, "s1")

	for i := 0; i < sendBuffer+5; i++ {
		m.Publish("s1", map[string]any{"i": i})
	}
	assert.Equal(t, sendBuffer, len(s.Frames))
}

func TestReplaySince_ReturnsOnlyNewerFrames(t *testing.T) {
	m := NewManager(nil)
	s := m.NewSession()
	m.Subscribe(s.ID, "s1")

	m.Publish("s1", map[string]any{"i": 1})
	m.Publish("s1", map[string]any{"i": 2})
	m.Publish("s1", map[string]any{"i": 3})

	replay := m.ReplaySince(1)
	require.Len(t, replay, 2)
	assert.Equal(t, int64(2), replay[0].ID)
	assert.Equal(t, int64(3), replay[1].ID)

	assert.Empty(t, m.ReplaySince(3))
}

func TestWriteFrame_Format(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, Frame{Event: "message", ID: 3, Data: []byte(`{"a":1}`)}))
	assert.Equal(t, "event: message\nid: 3\ndata: {\"a\":1}\n\n", buf.String())
}

func TestWriteConnected_Format(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteConnected(&buf, 1))
	assert.Contains(t, buf.String(), "event: connected")
}
