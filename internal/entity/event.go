package entity

import (
	"fmt"
	"math/rand"
	"time"
)

// EventType enumerates the events carried over the broadcast transport.
type EventType string

const (
	EventLogMessage         EventType = "log_message"
	EventAILogMessage       EventType = "ai_log_message"
	EventNewAlert           EventType = "new_alert"
	EventPlayTTSAudio       EventType = "play_tts_audio"
	EventUpdateStats        EventType = "update_stats"
	EventMonitoringStatus   EventType = "monitoring_status"
	EventWSStatus           EventType = "ws_status"
	EventWSStatusFlash      EventType = "ws_status_flash"
	EventTestTickerFinished EventType = "test_ticker_finished"
	EventReplayFinished     EventType = "replay_finished"
	EventServerShuttingDown EventType = "server_shutting_down"
)

// Event is the unit delivered to every subscriber.
type Event struct {
	Type      EventType   `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp int64       `json:"timestamp"`
	ID        string      `json:"id"`
}

// NewEvent stamps an event with the current time and a unique id.
func NewEvent(t EventType, data interface{}) Event {
	now := time.Now()
	return Event{
		Type:      t,
		Data:      data,
		Timestamp: now.UnixMilli(),
		ID:        fmt.Sprintf("%d-%06d", now.UnixMilli(), rand.Intn(1000000)),
	}
}

// LogPayload is the data carried by log_message and ai_log_message events.
type LogPayload struct {
	Message   string      `json:"message"`
	Level     string      `json:"level,omitempty"`
	Details   interface{} `json:"details,omitempty"`
	Timestamp string      `json:"timestamp"`
}

// WSStatusPayload describes the upstream feed connection for viewers.
type WSStatusPayload struct {
	Status string `json:"status"`
	Color  string `json:"color"`
}

// MonitoringStatusPayload reports the monitoring toggle.
type MonitoringStatusPayload struct {
	IsMonitoring bool `json:"isMonitoring"`
}

// StatsDelta carries counter increments for update_stats events.
type StatsDelta struct {
	Processed int `json:"processed,omitempty"`
	Alerts    int `json:"alerts,omitempty"`
}

// ShutdownPayload accompanies server_shutting_down events.
type ShutdownPayload struct {
	Reason      string `json:"reason,omitempty"`
	GracePeriod int    `json:"gracePeriod,omitempty"`
}

// BatchResultPayload closes out a ticker test or replay run.
type BatchResultPayload struct {
	Symbol    string   `json:"symbol,omitempty"`
	Success   bool     `json:"success"`
	Processed int      `json:"totalProcessed,omitempty"`
	Errors    []string `json:"errors,omitempty"`
}
