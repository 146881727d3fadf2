package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"navhunter/internal/config"
	"navhunter/internal/entity"
	"navhunter/pkg/logger"
	"navhunter/pkg/ratelimit"
)

type openaiAIRepository struct {
	client         *http.Client
	cfg            *config.Config
	logger         *logger.Logger
	tokenLimiter   *ratelimit.TokenLimiter
	requestLimiter *rate.Limiter
}

// NewOpenAIRepository creates an AIRepository backed by the OpenAI chat
// completions API.
func NewOpenAIRepository(cfg *config.Config, log *logger.Logger) AIRepository {
	secondsPerRequest := time.Minute / time.Duration(cfg.OpenAI.MaxRequestPerMinute)
	return &openaiAIRepository{
		client: &http.Client{
			Timeout: 90 * time.Second,
		},
		cfg:            cfg,
		logger:         log,
		requestLimiter: rate.NewLimiter(rate.Every(secondsPerRequest), 1),
		tokenLimiter:   ratelimit.NewTokenLimiter(cfg.OpenAI.MaxTokenPerMinute),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

func (r *openaiAIRepository) Analyze(ctx context.Context, req *AnalyzeRequest) (*entity.AnalysisResult, error) {
	if err := r.requestLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("failed to wait for request limit: %w", err)
	}

	model := req.Model
	if model == "" {
		model = r.cfg.OpenAI.Model
	}

	payload := chatRequest{
		Model:       model,
		Messages:    []chatMessage{{Role: "user", Content: req.Prompt}},
		MaxTokens:   500,
		Temperature: req.Temperature,
	}
	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	apiKey := req.APIKey
	if apiKey == "" {
		apiKey = r.cfg.OpenAI.APIKey
	}

	apiURL := r.cfg.OpenAI.BaseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewBuffer(jsonPayload))
	if err != nil {
		return nil, fmt.Errorf("failed to create new http request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", apiKey))

	r.logger.Debug("Sending request to OpenAI API",
		logger.StringField("model", model),
		logger.IntField("prompt_chars", len(req.Prompt)),
	)

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to OpenAI API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		r.logger.Error("Received non-OK response from OpenAI API",
			logger.IntField("status_code", resp.StatusCode),
			logger.StringField("model", model),
		)
		return nil, fmt.Errorf("received non-OK response from OpenAI API: %d - %s", resp.StatusCode, string(body))
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("failed to decode response body: %w", err)
	}

	if chatResp.Usage.TotalTokens > r.cfg.OpenAI.MaxTokenPerMinute/2 {
		r.logger.Warn("Token usage exceeded 50% of the per-minute limit",
			logger.IntField("remaining", r.tokenLimiter.GetRemaining()))
	}
	if err := r.tokenLimiter.Wait(ctx, chatResp.Usage.TotalTokens); err != nil {
		return nil, fmt.Errorf("failed to wait for token limit: %w", err)
	}

	return parseAnalysisJSON(chatResp)
}

func parseAnalysisJSON(resp chatResponse) (*entity.AnalysisResult, error) {
	if len(resp.Choices) == 0 || len(resp.Choices[0].Message.Content) == 0 {
		return nil, fmt.Errorf("no content found in OpenAI response")
	}

	rawJSON := resp.Choices[0].Message.Content
	rawJSON = strings.TrimSpace(rawJSON)
	rawJSON = strings.Trim(rawJSON, "`json\n`")

	var result entity.AnalysisResult
	if err := json.Unmarshal([]byte(rawJSON), &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return &result, nil
}
