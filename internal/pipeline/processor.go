package pipeline

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"navhunter/internal/config"
	"navhunter/internal/entity"
	"navhunter/internal/hub"
	"navhunter/internal/repository"
	"navhunter/pkg/logger"
)

// Status classifies the outcome of one pipeline run.
type Status string

const (
	StatusProcessed Status = "processed"
	StatusSkipped   Status = "skipped"
	StatusAlerted   Status = "alerted"
)

// Outcome is the structured result of processing one filing. Pipeline
// failures degrade into skipped outcomes; they are never raised.
type Outcome struct {
	Status Status `json:"status"`
	Reason string `json:"reason,omitempty"`
}

const pressReleaseSeparator = "\n\n--- PRESS RELEASE CONTENT ---\n\n"

// Processor runs the per-filing pipeline: content retrieval, analysis,
// alert decision, speech synthesis, broadcast.
type Processor struct {
	cfg    *config.Config
	log    *logger.Logger
	hub    *hub.Hub
	docs   repository.DocumentRepository
	ai     repository.AIRepository
	speech repository.SpeechRepository
	dedupe *cache.Cache
	pace   *rate.Limiter
	stats  *entity.Stats
}

// New creates a Processor.
func New(cfg *config.Config, log *logger.Logger, h *hub.Hub, docs repository.DocumentRepository, ai repository.AIRepository, speech repository.SpeechRepository) *Processor {
	return &Processor{
		cfg:    cfg,
		log:    log,
		hub:    h,
		docs:   docs,
		ai:     ai,
		speech: speech,
		dedupe: cache.New(cfg.Pipeline.DedupeTTL, 2*cfg.Pipeline.DedupeTTL),
		pace:   rate.NewLimiter(rate.Every(cfg.Pipeline.BatchDelay), 1),
		stats:  &entity.Stats{},
	}
}

// Stats returns the process-lifetime pipeline counters.
func (p *Processor) Stats() entity.StatsSnapshot {
	return p.stats.Snapshot()
}

// ProcessFeed handles a filing arriving from the live feed. Filings the
// stream re-delivers within the dedupe window are skipped before the
// pipeline runs.
func (p *Processor) ProcessFeed(ctx context.Context, filing entity.Filing, sc entity.SessionConfig) Outcome {
	key := filing.Key()
	if _, seen := p.dedupe.Get(key); seen {
		p.hub.Log(fmt.Sprintf("Already processed %s (%s) recently, skipping duplicate.", filing.Ticker, filing.FormType), "skipped")
		return Outcome{Status: StatusSkipped, Reason: "duplicate"}
	}
	p.dedupe.SetDefault(key, struct{}{})
	return p.Process(ctx, filing, sc)
}

// Process runs the full pipeline for one filing. Every step is
// independently fault-tolerant; the unit-finished signal is always
// broadcast so batch callers can sequence.
func (p *Processor) Process(ctx context.Context, filing entity.Filing, sc entity.SessionConfig) Outcome {
	defer p.hub.Broadcast(entity.EventTestTickerFinished, map[string]interface{}{})

	p.stats.AddProcessed(1)
	p.hub.StatsDelta(entity.StatsDelta{Processed: 1})

	content := p.gatherContent(ctx, filing)

	if len(strings.TrimSpace(content)) <= p.cfg.Pipeline.MinContentChars {
		p.hub.Log(fmt.Sprintf("Skipping %s - insufficient content (%d chars)", filing.Ticker, len(strings.TrimSpace(content))), "warn")
		return Outcome{Status: StatusSkipped, Reason: "insufficient content"}
	}

	if strings.TrimSpace(sc.AIPrompt) == "" {
		p.hub.Log("No AI prompt configured, skipping analysis.", "error")
		return Outcome{Status: StatusSkipped, Reason: "no prompt configured"}
	}

	prompt := p.buildPrompt(filing, sc, content)

	p.hub.AILog(fmt.Sprintf("Analyzing %s (%s) using %s...", filing.CompanyName, filing.Ticker, p.modelName(sc)), "analysis", map[string]string{
		"request":  prompt,
		"response": "Waiting for AI response...",
	})

	analysis, err := p.ai.Analyze(ctx, &repository.AnalyzeRequest{
		Prompt:      prompt,
		Model:       sc.AIModel,
		Temperature: sc.AITemperature,
		APIKey:      sc.OpenAIAPIKey,
	})
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrMalformedResponse):
		// A reply arrived but did not parse; treat as not alert-worthy.
		p.log.Warn("Malformed analysis response", logger.ErrorField(err), logger.StringField("ticker", filing.Ticker))
		p.hub.AILog(fmt.Sprintf("Analysis response for %s was malformed, treating as no hit.", filing.Ticker), "error", nil)
		analysis = &entity.AnalysisResult{}
	default:
		p.log.Error("Analysis call failed", logger.ErrorField(err), logger.StringField("ticker", filing.Ticker))
		p.hub.AILog(fmt.Sprintf("Analysis failed for %s: %v", filing.Ticker, err), "error", nil)
		return Outcome{Status: StatusSkipped, Reason: "analysis call failed"}
	}

	p.hub.AILog(fmt.Sprintf("Analysis complete for %s: %d%% confidence", filing.Ticker, analysis.ConfidenceScore), "hit", nil)

	threshold := sc.Confidence
	if threshold <= 0 {
		threshold = p.cfg.Pipeline.DefaultThreshold
	}

	if !analysis.IsAlertWorthy || analysis.ConfidenceScore < threshold {
		p.hub.AILog(fmt.Sprintf("- No hit: %s (%d%%)", filing.Ticker, analysis.ConfidenceScore), "", nil)
		return Outcome{Status: StatusProcessed}
	}

	level := entity.LevelFor(*analysis)
	p.hub.NewAlert(entity.Alert{Filing: filing, AIAnalysis: *analysis, AlertLevel: level})
	p.stats.AddAlerts(1)
	p.hub.StatsDelta(entity.StatsDelta{Alerts: 1})

	if level == entity.AlertLevelGold {
		p.hub.AILog(fmt.Sprintf("GOLD ALERT: %s - Confidence: %d%%", filing.Ticker, analysis.ConfidenceScore), "hit", nil)
	} else {
		p.hub.AILog(fmt.Sprintf("BLUE ALERT: %s - Confidence: %d%%", filing.Ticker, analysis.ConfidenceScore), "analysis", nil)
	}

	p.maybeSynthesizeSpeech(ctx, *analysis)

	return Outcome{Status: StatusAlerted}
}

// gatherContent collects the text the analyzer will see: the primary
// document, the rendered document as fallback, any press release found
// on the filing-details page, or filing metadata as a last resort.
func (p *Processor) gatherContent(ctx context.Context, filing entity.Filing) string {
	var content string

	txtURL := filing.LinkToTxt
	if txtURL != "" {
		p.hub.Log(fmt.Sprintf("Fetching content from: %s", txtURL), "info")
		text, err := p.docs.FetchText(ctx, txtURL)
		if err != nil {
			p.hub.Log(fmt.Sprintf("Error fetching document: %v", err), "error")
		} else if text != "" {
			p.hub.Log(fmt.Sprintf("Content processed successfully (%d chars).", len(text)), "info")
			content = text
		}
	}

	if content == "" && filing.LinkToHTML != "" {
		p.hub.Log("Fetching filing content from rendered document...", "info")
		text, err := p.docs.FetchText(ctx, filing.LinkToHTML)
		if err != nil {
			p.hub.Log(fmt.Sprintf("Error fetching rendered document: %v", err), "error")
		} else {
			content = text
		}
	}

	if filing.LinkToFilingDetails != "" {
		p.hub.Log(fmt.Sprintf("Scanning for Press Release link in: %s", filing.LinkToFilingDetails), "info")
		press, err := p.docs.FindPressRelease(ctx, filing.LinkToFilingDetails)
		switch {
		case err != nil:
			p.hub.Log(fmt.Sprintf("Error processing press release: %v", err), "error")
		case press != "":
			content += pressReleaseSeparator + press
			p.hub.Log("Combined filing and press release text for AI analysis.", "info")
		default:
			p.hub.Log("No Press Release link found on the page.", "info")
		}
	}

	if strings.TrimSpace(content) == "" {
		p.hub.Log(fmt.Sprintf("No content found for %s - using metadata only", filing.Ticker), "warn")
		content = fmt.Sprintf("Company: %s\nTicker: %s\nForm Type: %s\nFiled: %s",
			filing.CompanyName, filing.Ticker, filing.FormType, filing.FiledAt)
	}

	p.hub.Log(fmt.Sprintf("Total content for analysis: %d chars", len(content)), "info")
	return content
}

func (p *Processor) buildPrompt(filing entity.Filing, sc entity.SessionConfig, content string) string {
	replacer := strings.NewReplacer(
		"{company}", filing.CompanyName,
		"{ticker}", filing.Ticker,
		"{formType}", filing.FormType,
	)
	prompt := replacer.Replace(sc.AIPrompt)

	if len(content) > p.cfg.Pipeline.MaxContentChars {
		content = content[:p.cfg.Pipeline.MaxContentChars]
	}
	return prompt + "\n\nFILING CONTENT TO ANALYZE:\n" + content + "..."
}

func (p *Processor) modelName(sc entity.SessionConfig) string {
	if sc.AIModel != "" {
		return sc.AIModel
	}
	return p.cfg.OpenAI.Model
}

// maybeSynthesizeSpeech requests audio only for highlighted alerts with
// narration text. Failures degrade silently; the alert already stands.
func (p *Processor) maybeSynthesizeSpeech(ctx context.Context, analysis entity.AnalysisResult) {
	if !analysis.AlertHighlight || analysis.TextToSpeak == "" {
		return
	}

	p.hub.AILog(fmt.Sprintf("Generating speech for: %q", analysis.TextToSpeak), "info", nil)
	audio, err := p.speech.Synthesize(ctx, analysis.TextToSpeak)
	if err != nil {
		p.log.Error("Speech synthesis failed", logger.ErrorField(err))
		p.hub.AILog("Speech synthesis failed, alert delivered without audio.", "error", nil)
		return
	}

	p.hub.TTS(base64.StdEncoding.EncodeToString(audio))
	p.hub.AILog("Speech generated.", "info", nil)
}
