package hub

import (
	"time"

	"navhunter/internal/entity"
	"navhunter/pkg/logger"
)

// Sink is one broadcast transport. Each sink owns its failure handling;
// a failing sink never blocks the others.
type Sink interface {
	Deliver(event entity.Event) error
	Close() error
}

// Hub fans typed events out to every registered sink. The direct
// subscriber sink is always present; extra sinks (e.g. the Redis relay)
// mirror the same stream.
type Hub struct {
	log   *logger.Logger
	subs  *SubscriberSink
	sinks []Sink
}

// New creates a Hub around the given subscriber sink plus any extras.
func New(log *logger.Logger, subs *SubscriberSink, extra ...Sink) *Hub {
	sinks := append([]Sink{subs}, extra...)
	return &Hub{log: log, subs: subs, sinks: sinks}
}

// Subscribe registers a new direct subscriber channel.
func (h *Hub) Subscribe() *Subscriber {
	return h.subs.Subscribe()
}

// Unsubscribe removes a direct subscriber and closes its channel.
func (h *Hub) Unsubscribe(s *Subscriber) {
	h.subs.Unsubscribe(s)
}

// SubscriberCount returns the number of live direct subscribers.
func (h *Hub) SubscriberCount() int {
	return h.subs.Count()
}

// Broadcast delivers one event to every sink. Sinks are attempted
// independently; a sink error is logged and does not abort the rest.
func (h *Hub) Broadcast(t entity.EventType, data interface{}) {
	event := entity.NewEvent(t, data)
	for _, s := range h.sinks {
		if err := s.Deliver(event); err != nil {
			h.log.Warn("sink delivery failed",
				logger.StringField("event_type", string(t)),
				logger.ErrorField(err),
			)
		}
	}
}

// Shutdown announces the shutdown to all subscribers and closes every sink.
func (h *Hub) Shutdown(reason string, gracePeriod int) {
	h.Broadcast(entity.EventServerShuttingDown, entity.ShutdownPayload{
		Reason:      reason,
		GracePeriod: gracePeriod,
	})
	for _, s := range h.sinks {
		if err := s.Close(); err != nil {
			h.log.Warn("sink close failed", logger.ErrorField(err))
		}
	}
}

// Log broadcasts a log_message event.
func (h *Hub) Log(message, level string) {
	h.Broadcast(entity.EventLogMessage, entity.LogPayload{
		Message:   message,
		Level:     level,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// AILog broadcasts an ai_log_message event, optionally carrying the
// request/response detail pair for inspection.
func (h *Hub) AILog(message, level string, details interface{}) {
	h.Broadcast(entity.EventAILogMessage, entity.LogPayload{
		Message:   message,
		Level:     level,
		Details:   details,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// NewAlert broadcasts a new_alert event.
func (h *Hub) NewAlert(alert entity.Alert) {
	h.Broadcast(entity.EventNewAlert, alert)
}

// TTS broadcasts a play_tts_audio event with base64-encoded audio.
func (h *Hub) TTS(audioB64 string) {
	h.Broadcast(entity.EventPlayTTSAudio, map[string]string{"audioB64": audioB64})
}

// StatsDelta broadcasts counter increments.
func (h *Hub) StatsDelta(delta entity.StatsDelta) {
	h.Broadcast(entity.EventUpdateStats, delta)
}

// MonitoringStatus broadcasts the monitoring toggle.
func (h *Hub) MonitoringStatus(isMonitoring bool) {
	h.Broadcast(entity.EventMonitoringStatus, entity.MonitoringStatusPayload{IsMonitoring: isMonitoring})
}

// WSStatus broadcasts the upstream feed connection status.
func (h *Hub) WSStatus(status, color string) {
	h.Broadcast(entity.EventWSStatus, entity.WSStatusPayload{Status: status, Color: color})
}

// WSFlash broadcasts a transient feed-activity pulse.
func (h *Hub) WSFlash() {
	h.Broadcast(entity.EventWSStatusFlash, map[string]interface{}{})
}

// TestTickerFinished broadcasts a batch completion signal.
func (h *Hub) TestTickerFinished(result entity.BatchResultPayload) {
	h.Broadcast(entity.EventTestTickerFinished, result)
}

// ReplayFinished broadcasts a replay completion signal.
func (h *Hub) ReplayFinished(result entity.BatchResultPayload) {
	h.Broadcast(entity.EventReplayFinished, result)
}
