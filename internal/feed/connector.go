package feed

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"navhunter/internal/config"
	"navhunter/internal/entity"
	"navhunter/internal/hub"
	"navhunter/pkg/logger"
	"navhunter/pkg/utils"
)

// State is the connector's connection state.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateLive
	StateError
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateLive:
		return "live"
	case StateError:
		return "error"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "disconnected"
	}
}

// Status colors forwarded to viewers with ws_status events.
const (
	colorLive  = "var(--accent-green)"
	colorError = "var(--accent-red)"
	colorOff   = "var(--text-muted)"
)

// FilingHandler receives each filing that passes the form-type filter.
type FilingHandler func(ctx context.Context, filing entity.Filing)

// Connector maintains the persistent EDGAR stream connection. While
// monitoring is active it reconnects after every close with a fixed
// delay and no attempt bound; Stop tears everything down.
type Connector struct {
	log     *logger.Logger
	hub     *hub.Hub
	wsURL   string
	delay   time.Duration
	dialer  *websocket.Dialer
	capture *CaptureBuffer

	mu             sync.Mutex
	conn           *websocket.Conn
	reconnectTimer *time.Timer
	active         bool
	apiKey         string
	formTypes      []string
	handler        FilingHandler
	runCtx         context.Context

	state   atomic.Int32
	skipped atomic.Int64
}

// NewConnector creates a Connector. capture may be nil to disable frame
// capture.
func NewConnector(cfg *config.Config, log *logger.Logger, h *hub.Hub, capture *CaptureBuffer) *Connector {
	return &Connector{
		log:     log,
		hub:     h,
		wsURL:   cfg.SEC.WebsocketURL,
		delay:   cfg.SEC.ReconnectDelay,
		dialer:  websocket.DefaultDialer,
		capture: capture,
	}
}

// Start arms the connector and opens the stream. Safe to call while
// already connected; an existing socket is kept.
func (c *Connector) Start(ctx context.Context, apiKey string, formTypes []string, handler FilingHandler) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.active = true
	c.apiKey = apiKey
	c.formTypes = formTypes
	c.handler = handler
	c.runCtx = ctx

	return c.connectLocked()
}

// connectLocked dials the stream. No-ops when a socket is already open,
// so two start paths can never hold two feed connections.
func (c *Connector) connectLocked() error {
	if c.conn != nil {
		return nil
	}

	c.state.Store(int32(StateConnecting))

	conn, _, err := c.dialer.DialContext(c.runCtx, fmt.Sprintf("%s?apiKey=%s", c.wsURL, c.apiKey), nil)
	if err != nil {
		c.state.Store(int32(StateError))
		c.hub.WSStatus("Error", colorError)
		c.log.Error("Failed to connect to EDGAR stream", logger.ErrorField(err))
		if c.active {
			c.scheduleReconnectLocked()
		}
		return fmt.Errorf("failed to connect to EDGAR stream: %w", err)
	}

	c.conn = conn
	c.state.Store(int32(StateLive))
	c.log.Info("EDGAR stream opened")
	c.hub.WSStatus("Live", colorLive)
	c.hub.Log("WebSocket connection opened successfully.", "info")

	utils.GoSafe(func() { c.readLoop(conn) })
	return nil
}

func (c *Connector) readLoop(conn *websocket.Conn) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			c.onClosed(conn, err)
			return
		}
		c.handleMessage(message)
	}
}

// onClosed handles a read failure on the given socket. Stale sockets
// from a previous generation are ignored.
func (c *Connector) onClosed(conn *websocket.Conn, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != conn {
		return
	}
	c.conn = nil
	c.log.Info("EDGAR stream closed", logger.ErrorField(err))

	if !c.active {
		c.state.Store(int32(StateDisconnected))
		c.hub.WSStatus("Off", colorOff)
		return
	}

	c.state.Store(int32(StateError))
	c.hub.WSStatus("Error", colorError)
	c.hub.Log("Attempting to reconnect...", "warn")
	c.scheduleReconnectLocked()
}

// scheduleReconnectLocked arms the reconnect timer. Retry is unbounded;
// only Stop cancels it.
func (c *Connector) scheduleReconnectLocked() {
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
	}
	c.state.Store(int32(StateReconnecting))
	c.reconnectTimer = time.AfterFunc(c.delay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.reconnectTimer = nil
		if !c.active {
			return
		}
		_ = c.connectLocked()
	})
}

// handleMessage parses one raw frame and forwards matching filings.
func (c *Connector) handleMessage(message []byte) {
	if c.capture != nil {
		c.capture.Append(string(message))
	}

	filings, err := entity.DecodeFilings(message)
	if err != nil {
		c.log.Warn("Failed to decode feed message", logger.ErrorField(err))
		return
	}

	c.mu.Lock()
	ctx := c.runCtx
	formTypes := c.formTypes
	handler := c.handler
	c.mu.Unlock()

	for _, filing := range filings {
		c.hub.WSFlash()
		if utils.HasPrefixAny(filing.FormType, formTypes) {
			c.hub.Log(fmt.Sprintf("Received [%s - %s]. Matches filter, processing...", filing.Ticker, filing.FormType), "info")
			handler(ctx, filing)
		} else {
			c.skipped.Add(1)
			c.hub.Log(fmt.Sprintf("Received [%s - %s]. Does not match filter, skipping.", filing.Ticker, filing.FormType), "skipped")
		}
	}
}

// Stop closes the socket and cancels any pending reconnect. Safe to
// call when already stopped.
func (c *Connector) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.active = false
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.state.Store(int32(StateDisconnected))
	c.hub.WSStatus("Off", colorOff)
}

// Connected reports whether the stream socket is currently live.
func (c *Connector) Connected() bool {
	return State(c.state.Load()) == StateLive
}

// State returns the current connection state.
func (c *Connector) State() State {
	return State(c.state.Load())
}

// Skipped returns how many filings were dropped by the form-type filter.
func (c *Connector) Skipped() int64 {
	return c.skipped.Load()
}
