package realtime

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"navhunter/internal/entity"
	"navhunter/pkg/logger"
)

func sseServer(t *testing.T, frames ...string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		flusher := w.(http.Flusher)
		for _, frame := range frames {
			fmt.Fprint(w, frame)
			flusher.Flush()
		}
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClientDispatchesEvents(t *testing.T) {
	srv := sseServer(t,
		": keep-alive\n\n",
		"id: 1\nevent: log_message\ndata: {\"message\":\"hello\",\"level\":\"info\"}\n\n",
		"id: 2\nevent: update_stats\ndata: {\"processed\":1}\n\n",
	)

	c := NewClient(Config{URL: srv.URL, ReconnectInterval: 10 * time.Millisecond}, logger.NewNop())
	t.Cleanup(c.Disconnect)

	logs := make(chan entity.LogPayload, 1)
	unsubscribe := c.Subscribe(entity.EventLogMessage, func(data json.RawMessage) {
		var payload entity.LogPayload
		if err := json.Unmarshal(data, &payload); err == nil {
			logs <- payload
		}
	})
	defer unsubscribe()

	stats := make(chan entity.StatsDelta, 1)
	c.Subscribe(entity.EventUpdateStats, func(data json.RawMessage) {
		var delta entity.StatsDelta
		if err := json.Unmarshal(data, &delta); err == nil {
			stats <- delta
		}
	})

	c.Connect()

	select {
	case payload := <-logs:
		assert.Equal(t, "hello", payload.Message)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for log_message")
	}
	select {
	case delta := <-stats:
		assert.Equal(t, 1, delta.Processed)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for update_stats")
	}
}

func TestClientUnsubscribeStopsDelivery(t *testing.T) {
	c := NewClient(Config{URL: "http://example.invalid"}, logger.NewNop())

	received := 0
	unsubscribe := c.Subscribe(entity.EventLogMessage, func(json.RawMessage) { received++ })
	unsubscribe()

	c.dispatch(entity.EventLogMessage, json.RawMessage(`{}`))
	assert.Zero(t, received)
}

func TestClientPanickingListenerDoesNotBlockOthers(t *testing.T) {
	c := NewClient(Config{URL: "http://example.invalid"}, logger.NewNop())

	c.Subscribe(entity.EventLogMessage, func(json.RawMessage) { panic("listener bug") })
	received := false
	c.Subscribe(entity.EventLogMessage, func(json.RawMessage) { received = true })

	c.dispatch(entity.EventLogMessage, json.RawMessage(`{}`))
	assert.True(t, received)
}

func TestClientDisconnectsOnServerShutdown(t *testing.T) {
	srv := sseServer(t, "event: server_shutting_down\ndata: {\"reason\":\"maintenance\"}\n\n")

	c := NewClient(Config{URL: srv.URL, ReconnectInterval: 10 * time.Millisecond}, logger.NewNop())
	t.Cleanup(c.Disconnect)

	var mu sync.Mutex
	var reason string
	c.Subscribe(entity.EventServerShuttingDown, func(data json.RawMessage) {
		var payload entity.ShutdownPayload
		require.NoError(t, json.Unmarshal(data, &payload))
		mu.Lock()
		reason = payload.Reason
		mu.Unlock()
	})

	c.Connect()

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return reason == "maintenance" && c.Status() == StatusDisconnected
	}, 2*time.Second, 10*time.Millisecond)

	// No reconnect after a deliberate shutdown.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, StatusDisconnected, c.Status())
}

func TestClientStopsAfterMaxReconnectAttempts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(Config{
		URL:                  srv.URL,
		ReconnectInterval:    5 * time.Millisecond,
		MaxReconnectAttempts: 3,
	}, logger.NewNop())
	t.Cleanup(c.Disconnect)

	c.Connect()

	assert.Eventually(t, func() bool {
		return c.Status() == StatusError && c.RetryCount() > 3
	}, 2*time.Second, 5*time.Millisecond)

	// Parked: no further attempts are scheduled.
	retries := c.RetryCount()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, retries, c.RetryCount())
}

func TestClientReconnectResetsRetryBudget(t *testing.T) {
	srv := sseServer(t)

	c := NewClient(Config{URL: srv.URL, ReconnectInterval: 10 * time.Millisecond}, logger.NewNop())
	t.Cleanup(c.Disconnect)

	c.Connect()
	assert.Eventually(t, func() bool { return c.IsConnected() }, 2*time.Second, 10*time.Millisecond)

	c.Reconnect()
	assert.Eventually(t, func() bool { return c.IsConnected() }, 2*time.Second, 10*time.Millisecond)
	assert.Zero(t, c.RetryCount())
}

func TestClientSendsAuthToken(t *testing.T) {
	headers := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers <- r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)

	c := NewClient(Config{URL: srv.URL, Token: "secret"}, logger.NewNop())
	t.Cleanup(c.Disconnect)
	c.Connect()

	select {
	case got := <-headers:
		assert.Equal(t, "Bearer secret", got)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for request")
	}
}
