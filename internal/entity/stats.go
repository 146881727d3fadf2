package entity

import "sync/atomic"

// Stats tracks process-lifetime pipeline counters. Broadcast still
// happens as deltas; the aggregate backs the status endpoint.
type Stats struct {
	processed atomic.Int64
	alerts    atomic.Int64
}

// StatsSnapshot is a point-in-time copy of the counters.
type StatsSnapshot struct {
	Processed int64 `json:"processed"`
	Alerts    int64 `json:"alerts"`
}

// AddProcessed increments the processed-filings counter.
func (s *Stats) AddProcessed(n int64) {
	s.processed.Add(n)
}

// AddAlerts increments the raised-alerts counter.
func (s *Stats) AddAlerts(n int64) {
	s.alerts.Add(n)
}

// Snapshot returns the current counter values.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Processed: s.processed.Load(),
		Alerts:    s.alerts.Load(),
	}
}
