package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"navhunter/internal/entity"
	"navhunter/pkg/logger"
	"navhunter/pkg/utils"
)

// RunTickerTest queries recent filings for one ticker and runs each
// through the pipeline, strictly serially, pausing the configured batch
// delay between units to respect provider rate limits.
func (p *Processor) RunTickerTest(ctx context.Context, ticker string, sc entity.SessionConfig) {
	p.hub.Log(fmt.Sprintf("--- Starting FULL test for [%s] ---", ticker), "warn")

	filings, err := p.docs.QueryFilings(ctx, sc.SECAPIKey, ticker, sc.FormTypes, 180*24*time.Hour, 25)
	if err != nil {
		p.log.Error("Ticker test query failed", logger.ErrorField(err), logger.StringField("ticker", ticker))
		p.hub.Log(fmt.Sprintf("Ticker test failed: %v", err), "error")
		p.hub.TestTickerFinished(entity.BatchResultPayload{Symbol: ticker, Success: false, Errors: []string{err.Error()}})
		return
	}

	if len(filings) == 0 {
		p.hub.Log(fmt.Sprintf("No relevant filings found for %s in the last 6 months.", ticker), "info")
		p.hub.TestTickerFinished(entity.BatchResultPayload{Symbol: ticker, Success: true})
		return
	}

	p.hub.Log(fmt.Sprintf("Found %d filings for %s. Processing up to %d of them...", len(filings), ticker, len(filings)), "info")

	processed := 0
	for i, filing := range filings {
		if !utils.ShouldContinue(ctx) {
			break
		}
		p.hub.Log(fmt.Sprintf("--- Processing filing %d of %d (%s filed on %s) ---",
			i+1, len(filings), filing.FormType, filedDate(filing.FiledAt)), "info")
		p.Process(ctx, filing, sc)
		processed++

		if err := p.pace.Wait(ctx); err != nil {
			break
		}
	}

	p.hub.Log(fmt.Sprintf("--- Test for [%s] Complete ---", ticker), "warn")
	p.hub.TestTickerFinished(entity.BatchResultPayload{Symbol: ticker, Success: true, Processed: processed})
}

// Replay pushes previously captured feed frames back through the
// pipeline, applying the same form-type filter and serial pacing as the
// live path.
func (p *Processor) Replay(ctx context.Context, lines []string, sc entity.SessionConfig) {
	p.hub.Log(fmt.Sprintf("Found %d messages in the capture buffer. Starting replay...", len(lines)), "warn")

	started := time.Now()
	processed := 0
	var errs []string

	for _, line := range lines {
		if !utils.ShouldContinue(ctx) {
			break
		}

		filings, err := entity.DecodeFilings([]byte(strings.TrimSpace(line)))
		if err != nil {
			p.log.Warn("Skipping malformed replay line", logger.ErrorField(err))
			continue
		}

		for _, filing := range filings {
			if !utils.ShouldContinue(ctx) {
				break
			}
			if !utils.HasPrefixAny(filing.FormType, sc.FormTypes) {
				p.hub.Log(fmt.Sprintf("Replaying [%s - %s]. Does not match filter, skipping.", filing.Ticker, filing.FormType), "skipped")
				continue
			}
			p.hub.Log(fmt.Sprintf("Replaying [%s - %s]. Matches filter, processing...", filing.Ticker, filing.FormType), "info")
			outcome := p.Process(ctx, filing, sc)
			processed++
			if outcome.Status == StatusSkipped && outcome.Reason == "analysis call failed" {
				errs = append(errs, fmt.Sprintf("%s: %s", filing.Ticker, outcome.Reason))
			}

			if err := p.pace.Wait(ctx); err != nil {
				break
			}
		}
	}

	p.hub.ReplayFinished(entity.BatchResultPayload{
		Success:   len(errs) == 0,
		Processed: processed,
		Errors:    errs,
	})
	p.log.Info("Replay finished",
		logger.IntField("processed", processed),
		logger.DurationField("duration", time.Since(started)),
	)
}

func filedDate(filedAt string) string {
	if i := strings.Index(filedAt, "T"); i > 0 {
		return filedAt[:i]
	}
	return filedAt
}
