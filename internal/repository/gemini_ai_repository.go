package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"navhunter/internal/config"
	"navhunter/internal/entity"
	"navhunter/pkg/logger"
)

type geminiAIRepository struct {
	cfg            *config.Config
	logger         *logger.Logger
	requestLimiter *rate.Limiter
	genAiClient    *genai.Client
}

// NewGeminiAIRepository creates an AIRepository backed by the Google
// Gemini API, selectable via ai.provider for sessions that do not use
// OpenAI.
func NewGeminiAIRepository(cfg *config.Config, log *logger.Logger, genAiClient *genai.Client) (AIRepository, error) {
	if cfg.Gemini.APIKey == "" {
		return nil, fmt.Errorf("gemini.api_key is required for the gemini provider")
	}
	maxPerMinute := cfg.Gemini.MaxRequestPerMinute
	if maxPerMinute <= 0 {
		maxPerMinute = 15
	}
	secondsPerRequest := time.Minute / time.Duration(maxPerMinute)

	return &geminiAIRepository{
		cfg:            cfg,
		logger:         log,
		requestLimiter: rate.NewLimiter(rate.Every(secondsPerRequest), 1),
		genAiClient:    genAiClient,
	}, nil
}

func (r *geminiAIRepository) Analyze(ctx context.Context, req *AnalyzeRequest) (*entity.AnalysisResult, error) {
	if err := r.requestLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("failed to wait for request limit: %w", err)
	}

	model := r.cfg.Gemini.Model
	contents := []*genai.Content{
		genai.NewContentFromText(req.Prompt, "user"),
	}

	r.logger.Debug("Sending request to Gemini API",
		logger.StringField("model", model),
		logger.IntField("prompt_chars", len(req.Prompt)),
	)

	resp, err := r.genAiClient.Models.GenerateContent(ctx, model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to Gemini API: %w", err)
	}

	return parseGeminiAnalysis(resp)
}

func parseGeminiAnalysis(resp *genai.GenerateContentResponse) (*entity.AnalysisResult, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("invalid response from Gemini API: no content found")
	}

	rawJSON := resp.Candidates[0].Content.Parts[0].Text
	rawJSON = strings.TrimSpace(rawJSON)
	rawJSON = strings.Trim(rawJSON, "`json\n`")

	var result entity.AnalysisResult
	if err := json.Unmarshal([]byte(rawJSON), &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return &result, nil
}
