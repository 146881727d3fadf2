package realtime

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"navhunter/internal/entity"
	"navhunter/pkg/logger"
)

// Status is the client connection status.
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusError        Status = "error"
	StatusReconnecting Status = "reconnecting"
)

// Handler receives the raw JSON payload of one event.
type Handler func(data json.RawMessage)

// Config tunes the client.
type Config struct {
	URL                  string
	Token                string
	ReconnectInterval    time.Duration
	MaxReconnectAttempts int
	HTTPClient           *http.Client
}

// Client consumes the server's SSE stream and dispatches events to
// registered listeners. Unlike the server-side feed connector, its
// reconnect attempts are bounded: after MaxReconnectAttempts failures
// it parks in a terminal error state.
type Client struct {
	log *logger.Logger
	cfg Config

	mu             sync.Mutex
	status         Status
	retryCount     int
	listeners      map[entity.EventType]map[int]Handler
	nextListenerID int
	reconnectTimer *time.Timer
	cancel         context.CancelFunc
	onStateChange  func(Status)

	lastActivity atomic.Int64
}

// NewClient creates a Client with defaults applied.
func NewClient(cfg Config, log *logger.Logger) *Client {
	if cfg.ReconnectInterval == 0 {
		cfg.ReconnectInterval = 5 * time.Second
	}
	if cfg.MaxReconnectAttempts == 0 {
		cfg.MaxReconnectAttempts = 10
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	return &Client{
		log:       log,
		cfg:       cfg,
		status:    StatusDisconnected,
		listeners: make(map[entity.EventType]map[int]Handler),
	}
}

// Connect opens the stream. No-ops when already connecting or connected.
func (c *Client) Connect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status == StatusConnected || c.status == StatusConnecting {
		return
	}
	c.connectLocked()
}

func (c *Client) connectLocked() {
	c.setStatusLocked(StatusConnecting)

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	go c.run(ctx)
}

func (c *Client) run(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.URL, nil)
	if err != nil {
		c.onFailure(err)
		return
	}
	req.Header.Set("Accept", "text/event-stream")
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		c.onFailure(err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.onFailure(nil)
		return
	}
	if ctx.Err() != nil {
		// Disconnected while the dial was in flight.
		return
	}

	c.mu.Lock()
	c.setStatusLocked(StatusConnected)
	c.retryCount = 0
	c.mu.Unlock()
	c.log.Info("Stream connection established")

	c.consume(resp.Body)

	// The stream ended; reconnect unless this was a deliberate disconnect.
	c.onFailure(nil)
}

// consume reads SSE frames until the stream ends.
func (c *Client) consume(body io.Reader) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var eventType, data string
	for scanner.Scan() {
		// Keep-alive comments count as activity too.
		c.lastActivity.Store(time.Now().UnixMilli())
		line := scanner.Text()
		switch {
		case line == "":
			if eventType != "" || data != "" {
				c.dispatch(entity.EventType(eventType), json.RawMessage(data))
			}
			eventType, data = "", ""
		case strings.HasPrefix(line, ":"):
			// keep-alive comment
		case strings.HasPrefix(line, "event:"):
			eventType = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data += strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		}
	}
}

// dispatch invokes every listener for the event type. A panicking
// listener is recovered so it cannot block the others.
func (c *Client) dispatch(eventType entity.EventType, data json.RawMessage) {
	c.mu.Lock()
	handlers := make([]Handler, 0, len(c.listeners[eventType]))
	for _, h := range c.listeners[eventType] {
		handlers = append(handlers, h)
	}
	c.mu.Unlock()

	for _, h := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					c.log.Error("Event listener panicked",
						logger.StringField("event_type", string(eventType)),
						logger.Field("panic", r),
					)
				}
			}()
			h(data)
		}()
	}

	if eventType == entity.EventServerShuttingDown {
		c.log.Warn("Server shutting down, disconnecting")
		c.Disconnect()
	}
}

// onFailure records a transport failure and schedules a reconnect,
// unless the client was deliberately disconnected or is out of retries.
func (c *Client) onFailure(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status == StatusDisconnected {
		return
	}
	if err != nil {
		c.log.Error("Stream connection failed", logger.ErrorField(err))
	}
	c.setStatusLocked(StatusError)
	c.scheduleReconnectLocked()
}

func (c *Client) scheduleReconnectLocked() {
	c.retryCount++
	if c.retryCount > c.cfg.MaxReconnectAttempts {
		c.log.Error("Max reconnection attempts reached",
			logger.IntField("attempts", c.cfg.MaxReconnectAttempts))
		return
	}

	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
	}
	c.setStatusLocked(StatusReconnecting)
	c.reconnectTimer = time.AfterFunc(c.cfg.ReconnectInterval, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.reconnectTimer = nil
		if c.status != StatusReconnecting {
			return
		}
		c.log.Info("Reconnection attempt", logger.IntField("attempt", c.retryCount))
		c.connectLocked()
	})
}

// Subscribe registers a handler for one event type and returns its
// unsubscribe function.
func (c *Client) Subscribe(eventType entity.EventType, handler Handler) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.listeners[eventType] == nil {
		c.listeners[eventType] = make(map[int]Handler)
	}
	id := c.nextListenerID
	c.nextListenerID++
	c.listeners[eventType][id] = handler

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners[eventType], id)
		if len(c.listeners[eventType]) == 0 {
			delete(c.listeners, eventType)
		}
	}
}

// Reconnect resets the retry budget and reopens the stream.
func (c *Client) Reconnect() {
	c.Disconnect()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.retryCount = 0
	c.connectLocked()
}

// Disconnect closes the stream and cancels any pending reconnect. The
// client stays disconnected until Connect or Reconnect is called.
func (c *Client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.setStatusLocked(StatusDisconnected)
}

// Status returns the current connection status.
func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// RetryCount returns the number of reconnect attempts since the last
// successful open.
func (c *Client) RetryCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.retryCount
}

// LastActivity returns when the stream last carried any bytes,
// including keep-alive comments. Zero before the first frame.
func (c *Client) LastActivity() time.Time {
	ms := c.lastActivity.Load()
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// IsConnected reports whether the stream is open.
func (c *Client) IsConnected() bool {
	return c.Status() == StatusConnected
}

// SetStateChangeHandler registers a callback invoked on every status
// transition.
func (c *Client) SetStateChangeHandler(fn func(Status)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onStateChange = fn
}

func (c *Client) setStatusLocked(s Status) {
	if c.status == s {
		return
	}
	c.status = s
	if c.onStateChange != nil {
		// Callback runs outside the lock to keep handlers free to call
		// back into the client.
		fn := c.onStateChange
		go fn(s)
	}
}
