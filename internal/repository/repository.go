package repository

import (
	"context"
	"errors"
	"time"

	"navhunter/internal/entity"
)

// ErrMalformedResponse marks an analyzer reply that arrived but could
// not be parsed into an AnalysisResult. Callers treat it as a
// not-alert-worthy verdict rather than a failed call.
var ErrMalformedResponse = errors.New("malformed analysis response")

// AnalyzeRequest carries one fully constructed prompt plus the
// session's model parameters.
type AnalyzeRequest struct {
	Prompt      string
	Model       string
	Temperature float64

	// APIKey optionally overrides the configured provider credential
	// for this session.
	APIKey string
}

// AIRepository is the text-analysis collaborator.
type AIRepository interface {
	Analyze(ctx context.Context, req *AnalyzeRequest) (*entity.AnalysisResult, error)
}

// SpeechRepository is the speech-synthesis collaborator.
type SpeechRepository interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// DocumentRepository is the EDGAR document fetcher and query API.
type DocumentRepository interface {
	// FetchText fetches url and returns its markup stripped to plain text.
	// An empty URL or a fetch failure yields "" and an error the caller
	// may treat as soft.
	FetchText(ctx context.Context, url string) (string, error)

	// FindPressRelease scans the filing-details page for a press-release
	// or primary-exhibit link and returns that document's text, or ""
	// when no such link exists.
	FindPressRelease(ctx context.Context, detailsURL string) (string, error)

	// QueryFilings returns up to limit recent filings for the ticker
	// matching the given form types within the lookback window.
	QueryFilings(ctx context.Context, apiKey, ticker string, formTypes []string, lookback time.Duration, limit int) ([]entity.Filing, error)
}
