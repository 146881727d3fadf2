package monitor

import (
	"context"
	"sync"

	"navhunter/internal/config"
	"navhunter/internal/entity"
	"navhunter/internal/feed"
	"navhunter/internal/hub"
	"navhunter/internal/pipeline"
	"navhunter/pkg/logger"
)

// Start/stop result statuses returned to callers.
const (
	StatusStarted        = "started"
	StatusAlreadyRunning = "already_running"
	StatusStopped        = "stopped"
)

// Result is the outcome of a start or stop request.
type Result struct {
	Status string `json:"status"`
}

// Status is the read-only monitoring snapshot.
type Status struct {
	IsMonitoring bool                 `json:"isMonitoring"`
	Connected    bool                 `json:"connected"`
	Stats        entity.StatsSnapshot `json:"stats"`
}

// session is the single per-process monitoring session: the stored
// viewer configuration plus the identity the pipeline forwards on
// internal calls. It exists only between Start and Stop.
type session struct {
	config   entity.SessionConfig
	identity string
}

// Controller owns the process-wide monitoring toggle. Every mutation of
// the session goes through it, so only one code path can ever open a
// feed connection.
type Controller struct {
	cfg       *config.Config
	log       *logger.Logger
	hub       *hub.Hub
	connector *feed.Connector
	processor *pipeline.Processor

	mu      sync.Mutex
	session *session
	baseCtx context.Context
	cancel  context.CancelFunc
}

// NewController creates a Controller. baseCtx bounds the lifetime of
// any monitoring session it starts.
func NewController(baseCtx context.Context, cfg *config.Config, log *logger.Logger, h *hub.Hub, connector *feed.Connector, processor *pipeline.Processor) *Controller {
	return &Controller{
		cfg:       cfg,
		log:       log,
		hub:       h,
		connector: connector,
		processor: processor,
		baseCtx:   baseCtx,
	}
}

// Start begins monitoring with the given configuration and caller
// identity. Idempotent: a second start while active reports
// already_running and opens no second connection.
func (c *Controller) Start(sc entity.SessionConfig, identity string) Result {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != nil {
		c.log.Info("Start requested while monitoring is already active")
		return Result{Status: StatusAlreadyRunning}
	}

	c.session = &session{config: sc, identity: identity}
	runCtx, cancel := context.WithCancel(c.baseCtx)
	c.cancel = cancel

	apiKey := sc.SECAPIKey
	if apiKey == "" {
		apiKey = c.cfg.SEC.APIKey
	}

	c.hub.Log("LIVE MODE: Raw stream data is being captured for replay.", "warn")

	handler := func(ctx context.Context, filing entity.Filing) {
		c.processor.ProcessFeed(ctx, filing, sc)
	}
	if err := c.connector.Start(runCtx, apiKey, sc.FormTypes, handler); err != nil {
		// Connection errors are not fatal: the connector keeps retrying
		// while the session is active.
		c.log.Warn("Initial feed connection failed, reconnect scheduled", logger.ErrorField(err))
	}

	c.hub.MonitoringStatus(true)
	c.log.Info("Monitoring started", logger.StringField("requested_by", identity))
	return Result{Status: StatusStarted}
}

// Stop ends the monitoring session. Idempotent: stopping while inactive
// is a successful no-op.
func (c *Controller) Stop() Result {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return Result{Status: StatusStopped}
	}

	startedBy := c.session.identity
	c.session = nil
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.connector.Stop()

	c.hub.MonitoringStatus(false)
	c.log.Info("Monitoring stopped", logger.StringField("session_owner", startedBy))
	return Result{Status: StatusStopped}
}

// Status reports the monitoring toggle and connector state. Read-only.
func (c *Controller) Status() Status {
	c.mu.Lock()
	monitoring := c.session != nil
	c.mu.Unlock()

	return Status{
		IsMonitoring: monitoring,
		Connected:    c.connector.Connected(),
		Stats:        c.processor.Stats(),
	}
}

// IsMonitoring reports whether a session is active.
func (c *Controller) IsMonitoring() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session != nil
}

// SessionConfig returns the stored configuration, if a session is active.
func (c *Controller) SessionConfig() (entity.SessionConfig, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return entity.SessionConfig{}, false
	}
	return c.session.config, true
}
