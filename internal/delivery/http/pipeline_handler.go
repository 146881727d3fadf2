package http

import (
	"context"
	"net/http"
	"strings"

	"navhunter/internal/feed"
	"navhunter/internal/monitor"
	"navhunter/internal/pipeline"
	"navhunter/pkg/logger"
	"navhunter/pkg/utils"

	"github.com/labstack/echo/v4"
)

// PipelineHandler exposes the on-demand pipeline runs: single filings,
// ticker tests and capture replays.
type PipelineHandler struct {
	baseCtx    context.Context
	processor  *pipeline.Processor
	controller *monitor.Controller
	capture    *feed.CaptureBuffer
	logger     *logger.Logger
}

// NewPipelineHandler creates a new PipelineHandler. baseCtx bounds the
// background runs so they stop with the process.
func NewPipelineHandler(baseCtx context.Context, processor *pipeline.Processor, controller *monitor.Controller, capture *feed.CaptureBuffer, log *logger.Logger) *PipelineHandler {
	return &PipelineHandler{
		baseCtx:    baseCtx,
		processor:  processor,
		controller: controller,
		capture:    capture,
		logger:     log,
	}
}

// RegisterRoutes registers the pipeline routes to the Echo group.
func (h *PipelineHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/sec/process-filing", h.ProcessFiling)
	g.POST("/sec/test-ticker", h.TestTicker)
	g.POST("/sec/replay", h.Replay)
}

// ProcessFiling runs a single filing through the pipeline synchronously
// and reports the outcome.
func (h *PipelineHandler) ProcessFiling(c echo.Context) error {
	var req ProcessFilingRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request payload"})
	}
	if req.Filing.Ticker == "" && req.Filing.CompanyName == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "filing is required"})
	}

	outcome := h.processor.Process(c.Request().Context(), req.Filing, req.Config)
	return c.JSON(http.StatusOK, ProcessFilingResponse{
		Status: string(outcome.Status),
		Reason: outcome.Reason,
	})
}

// TestTicker queries recent filings for one ticker and runs them in the
// background; progress is reported over the event stream.
func (h *PipelineHandler) TestTicker(c echo.Context) error {
	var req TestTickerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request payload"})
	}
	ticker := strings.ToUpper(strings.TrimSpace(req.Ticker))
	if ticker == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "ticker is required"})
	}

	utils.GoSafe(func() {
		h.processor.RunTickerTest(h.baseCtx, ticker, req.Config)
	})
	return c.JSON(http.StatusAccepted, AcceptedResponse{Status: "test_started"})
}

// Replay re-runs the captured feed frames in the background. Refused
// while live monitoring is active so the two paths cannot interleave.
func (h *PipelineHandler) Replay(c echo.Context) error {
	var req ReplayRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request payload"})
	}

	if h.controller.IsMonitoring() {
		return c.JSON(http.StatusConflict, echo.Map{"error": "Cannot replay while live monitoring is active"})
	}

	lines := h.capture.Lines()
	if len(lines) == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "No captured stream data to replay"})
	}

	h.logger.Info("Replay requested", logger.IntField("frames", len(lines)))
	utils.GoSafe(func() {
		h.processor.Replay(h.baseCtx, lines, req.Config)
	})
	return c.JSON(http.StatusAccepted, AcceptedResponse{Status: "replay_started"})
}
