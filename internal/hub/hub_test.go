package hub

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"navhunter/internal/entity"
	"navhunter/pkg/logger"
)

func newTestHub(t *testing.T, extra ...Sink) (*Hub, *SubscriberSink) {
	t.Helper()
	sink := NewSubscriberSink(logger.NewNop(), 8)
	return New(logger.NewNop(), sink, extra...), sink
}

func drain(t *testing.T, sub *Subscriber) entity.Event {
	t.Helper()
	select {
	case event := <-sub.Events:
		return event
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return entity.Event{}
	}
}

func TestBroadcastReachesAllSubscribers(t *testing.T) {
	h, _ := newTestHub(t)
	a := h.Subscribe()
	b := h.Subscribe()

	h.Log("hello", "info")

	for _, sub := range []*Subscriber{a, b} {
		event := drain(t, sub)
		assert.Equal(t, entity.EventLogMessage, event.Type)
		payload, ok := event.Data.(entity.LogPayload)
		require.True(t, ok)
		assert.Equal(t, "hello", payload.Message)
		assert.Equal(t, "info", payload.Level)
	}
}

func TestUnsubscribedChannelIsPruned(t *testing.T) {
	h, sink := newTestHub(t)
	a := h.Subscribe()
	b := h.Subscribe()

	h.Unsubscribe(a)
	h.Log("still here", "info")

	event := drain(t, b)
	assert.Equal(t, entity.EventLogMessage, event.Type)
	assert.Equal(t, 1, sink.Count())

	// The removed subscriber's channel is closed, not left dangling.
	_, open := <-a.Events
	assert.False(t, open)
}

func TestSaturatedSubscriberDropsInsteadOfBlocking(t *testing.T) {
	sink := NewSubscriberSink(logger.NewNop(), 1)
	h := New(logger.NewNop(), sink)
	slow := h.Subscribe()
	fast := h.Subscribe()

	h.Log("first", "info")
	h.Log("second", "info") // slow's buffer of 1 is full, this drops

	assert.Len(t, slow.Events, 1)
	assert.Len(t, fast.Events, 2)
}

type failingSink struct {
	calls int
}

func (s *failingSink) Deliver(entity.Event) error {
	s.calls++
	return errors.New("relay down")
}

func (s *failingSink) Close() error { return nil }

func TestFailingSinkDoesNotBlockDirectDelivery(t *testing.T) {
	failing := &failingSink{}
	h, _ := newTestHub(t, failing)
	sub := h.Subscribe()

	h.Log("resilient", "info")

	event := drain(t, sub)
	assert.Equal(t, entity.EventLogMessage, event.Type)
	assert.Equal(t, 1, failing.calls)
}

func TestShutdownAnnouncesThenCloses(t *testing.T) {
	h, sink := newTestHub(t)
	sub := h.Subscribe()

	h.Shutdown("maintenance", 2)

	event := drain(t, sub)
	assert.Equal(t, entity.EventServerShuttingDown, event.Type)
	payload, ok := event.Data.(entity.ShutdownPayload)
	require.True(t, ok)
	assert.Equal(t, "maintenance", payload.Reason)
	assert.Equal(t, 2, payload.GracePeriod)

	_, open := <-sub.Events
	assert.False(t, open)
	assert.Equal(t, 0, sink.Count())
}

func TestEmitterPayloads(t *testing.T) {
	h, _ := newTestHub(t)
	sub := h.Subscribe()

	h.WSStatus("Live", "var(--accent-green)")
	event := drain(t, sub)
	assert.Equal(t, entity.EventWSStatus, event.Type)
	assert.Equal(t, entity.WSStatusPayload{Status: "Live", Color: "var(--accent-green)"}, event.Data)

	h.StatsDelta(entity.StatsDelta{Processed: 1})
	event = drain(t, sub)
	assert.Equal(t, entity.EventUpdateStats, event.Type)

	h.MonitoringStatus(true)
	event = drain(t, sub)
	assert.Equal(t, entity.EventMonitoringStatus, event.Type)
	assert.Equal(t, entity.MonitoringStatusPayload{IsMonitoring: true}, event.Data)
}
