package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"navhunter/internal/hub"
	"navhunter/pkg/logger"

	"github.com/labstack/echo/v4"
)

// StreamHandler serves the SSE event stream to viewers.
type StreamHandler struct {
	hub       *hub.Hub
	logger    *logger.Logger
	keepAlive time.Duration
}

// NewStreamHandler creates a new StreamHandler.
func NewStreamHandler(h *hub.Hub, log *logger.Logger, keepAlive time.Duration) *StreamHandler {
	if keepAlive <= 0 {
		keepAlive = 30 * time.Second
	}
	return &StreamHandler{hub: h, logger: log, keepAlive: keepAlive}
}

// RegisterRoutes registers the stream route to the Echo group.
func (h *StreamHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/sec/stream", h.Stream)
}

// Stream subscribes the caller to the event hub and relays events as
// SSE frames until the client goes away or the hub shuts down.
func (h *StreamHandler) Stream(c echo.Context) error {
	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	sub := h.hub.Subscribe()
	defer h.hub.Unsubscribe(sub)

	h.logger.Info("Stream subscriber connected",
		logger.StringField("subscriber", sub.ID),
		logger.IntField("total", h.hub.SubscriberCount()),
	)
	defer h.logger.Info("Stream subscriber disconnected", logger.StringField("subscriber", sub.ID))

	fmt.Fprintf(w, "event: connected\ndata: {\"subscriberId\":%q}\n\n", sub.ID)
	w.Flush()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-sub.Events:
			if !ok {
				// Hub shut down; the shutdown event was already delivered.
				return nil
			}
			data, err := json.Marshal(event.Data)
			if err != nil {
				h.logger.Warn("Failed to encode event payload",
					logger.StringField("event_type", string(event.Type)),
					logger.ErrorField(err),
				)
				continue
			}
			fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", event.ID, event.Type, data)
			w.Flush()
		case <-ticker.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			w.Flush()
		}
	}
}
