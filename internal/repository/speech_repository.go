package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"navhunter/internal/config"
	"navhunter/pkg/logger"
)

type openaiSpeechRepository struct {
	client *http.Client
	cfg    *config.Config
	logger *logger.Logger
}

// NewOpenAISpeechRepository creates a SpeechRepository backed by the
// OpenAI text-to-speech API.
func NewOpenAISpeechRepository(cfg *config.Config, log *logger.Logger) SpeechRepository {
	return &openaiSpeechRepository{
		client: &http.Client{Timeout: 60 * time.Second},
		cfg:    cfg,
		logger: log,
	}
}

type speechRequest struct {
	Model          string `json:"model"`
	Voice          string `json:"voice"`
	Input          string `json:"input"`
	ResponseFormat string `json:"response_format"`
}

func (r *openaiSpeechRepository) Synthesize(ctx context.Context, text string) ([]byte, error) {
	payload := speechRequest{
		Model:          r.cfg.OpenAI.TTSModel,
		Voice:          r.cfg.OpenAI.TTSVoice,
		Input:          text,
		ResponseFormat: "mp3",
	}
	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	apiURL := r.cfg.OpenAI.BaseURL + "/audio/speech"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewBuffer(jsonPayload))
	if err != nil {
		return nil, fmt.Errorf("failed to create new http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", r.cfg.OpenAI.APIKey))

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to OpenAI TTS API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		r.logger.Error("Received non-OK response from OpenAI TTS API",
			logger.IntField("status_code", resp.StatusCode))
		return nil, fmt.Errorf("received non-OK response from OpenAI TTS API: %d - %s", resp.StatusCode, string(body))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio body: %w", err)
	}
	return audio, nil
}
