package http

import (
	"net/http"
	"strings"

	"navhunter/internal/monitor"
	"navhunter/pkg/logger"

	"github.com/labstack/echo/v4"
)

// MonitorHandler handles the monitoring session lifecycle.
type MonitorHandler struct {
	controller *monitor.Controller
	logger     *logger.Logger
	shutdown   func(reason string)
}

// NewMonitorHandler creates a new MonitorHandler. shutdown triggers a
// graceful process exit and may be nil to disable the endpoint.
func NewMonitorHandler(controller *monitor.Controller, log *logger.Logger, shutdown func(reason string)) *MonitorHandler {
	return &MonitorHandler{controller: controller, logger: log, shutdown: shutdown}
}

// RegisterRoutes registers the monitoring routes to the Echo group.
func (h *MonitorHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/sec/start", h.Start)
	g.POST("/sec/stop", h.Stop)
	g.GET("/sec/status", h.Status)
	g.POST("/shutdown", h.Shutdown)
}

// Start begins a monitoring session with the supplied configuration.
func (h *MonitorHandler) Start(c echo.Context) error {
	var req StartRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request payload"})
	}
	if len(req.FormTypes) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "formTypes is required"})
	}

	// The session keeps the caller's credential so internal calls run
	// under the same identity.
	identity := strings.TrimPrefix(c.Request().Header.Get("Authorization"), "Bearer ")
	if identity == "" {
		identity = c.RealIP()
	}

	result := h.controller.Start(req.SessionConfig, identity)
	return c.JSON(http.StatusOK, result)
}

// Stop ends the monitoring session.
func (h *MonitorHandler) Stop(c echo.Context) error {
	result := h.controller.Stop()
	return c.JSON(http.StatusOK, result)
}

// Status reports the monitoring toggle and feed connection state.
func (h *MonitorHandler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, h.controller.Status())
}

// Shutdown requests a graceful process exit.
func (h *MonitorHandler) Shutdown(c echo.Context) error {
	if h.shutdown == nil {
		return c.JSON(http.StatusNotImplemented, echo.Map{"error": "Shutdown is not enabled"})
	}
	h.logger.Warn("Shutdown requested", logger.StringField("remote", c.RealIP()))
	h.shutdown("shutdown requested via API")
	return c.JSON(http.StatusOK, echo.Map{"status": "shutting_down"})
}
