package http

import (
	"navhunter/internal/entity"
)

// StartRequest begins a monitoring session.
type StartRequest struct {
	entity.SessionConfig
}

// ProcessFilingRequest runs one filing through the pipeline on demand.
type ProcessFilingRequest struct {
	Filing entity.Filing        `json:"filing"`
	Config entity.SessionConfig `json:"config"`
}

// TestTickerRequest runs recent historical filings for one ticker.
type TestTickerRequest struct {
	Ticker string               `json:"ticker"`
	Config entity.SessionConfig `json:"config"`
}

// ReplayRequest re-runs the captured feed frames.
type ReplayRequest struct {
	Config entity.SessionConfig `json:"config"`
}

// ProcessFilingResponse reports the pipeline outcome for one filing.
type ProcessFilingResponse struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// AcceptedResponse acknowledges a background run.
type AcceptedResponse struct {
	Status string `json:"status"`
}
