package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"navhunter/internal/config"
	"navhunter/pkg/logger"
)

func openaiTestConfig(baseURL string) *config.Config {
	cfg := &config.Config{}
	cfg.OpenAI.APIKey = "sk-config"
	cfg.OpenAI.BaseURL = baseURL
	cfg.OpenAI.Model = "gpt-4o-mini"
	cfg.OpenAI.MaxRequestPerMinute = 6000
	cfg.OpenAI.MaxTokenPerMinute = 1000000
	return cfg
}

func chatReply(content string) string {
	reply := map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
		"usage": map[string]int{"total_tokens": 100},
	}
	data, _ := json.Marshal(reply)
	return string(data)
}

func TestOpenAIAnalyzeParsesFencedJSON(t *testing.T) {
	var gotAuth string
	var gotReq chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		fmt.Fprint(w, chatReply("```json\n{\"isAlertWorthy\":true,\"confidenceScore\":88,\"alertHighlight\":true,\"textToSpeak\":\"alert\"}\n```"))
	}))
	t.Cleanup(srv.Close)

	repo := NewOpenAIRepository(openaiTestConfig(srv.URL), logger.NewNop())
	result, err := repo.Analyze(context.Background(), &AnalyzeRequest{
		Prompt:      "analyze this",
		Model:       "gpt-4o",
		Temperature: 0.3,
		APIKey:      "sk-session",
	})
	require.NoError(t, err)

	assert.True(t, result.IsAlertWorthy)
	assert.Equal(t, 88, result.ConfidenceScore)
	assert.Equal(t, "Bearer sk-session", gotAuth)
	assert.Equal(t, "gpt-4o", gotReq.Model)
	assert.Equal(t, 0.3, gotReq.Temperature)
	assert.Equal(t, 500, gotReq.MaxTokens)
	require.Len(t, gotReq.Messages, 1)
	assert.Equal(t, "analyze this", gotReq.Messages[0].Content)
}

func TestOpenAIAnalyzeFallsBackToConfigCredentials(t *testing.T) {
	var gotAuth string
	var gotReq chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		fmt.Fprint(w, chatReply(`{"isAlertWorthy":false,"confidenceScore":10}`))
	}))
	t.Cleanup(srv.Close)

	repo := NewOpenAIRepository(openaiTestConfig(srv.URL), logger.NewNop())
	_, err := repo.Analyze(context.Background(), &AnalyzeRequest{Prompt: "analyze"})
	require.NoError(t, err)

	assert.Equal(t, "Bearer sk-config", gotAuth)
	assert.Equal(t, "gpt-4o-mini", gotReq.Model)
}

func TestOpenAIAnalyzeMalformedContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, chatReply("I am sorry, I cannot answer in JSON today."))
	}))
	t.Cleanup(srv.Close)

	repo := NewOpenAIRepository(openaiTestConfig(srv.URL), logger.NewNop())
	_, err := repo.Analyze(context.Background(), &AnalyzeRequest{Prompt: "analyze"})
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestOpenAIAnalyzeTransportFailureIsNotMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	t.Cleanup(srv.Close)

	repo := NewOpenAIRepository(openaiTestConfig(srv.URL), logger.NewNop())
	_, err := repo.Analyze(context.Background(), &AnalyzeRequest{Prompt: "analyze"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrMalformedResponse))
}

func TestParseAnalysisJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr bool
	}{
		{"plain json", `{"isAlertWorthy":true,"confidenceScore":70}`, false},
		{"fenced json", "```json\n{\"isAlertWorthy\":true,\"confidenceScore\":70}\n```", false},
		{"bare fence", "```\n{\"confidenceScore\":70}\n```", false},
		{"prose", "definitely not json", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp chatResponse
			resp.Choices = append(resp.Choices, struct {
				Message chatMessage `json:"message"`
			}{Message: chatMessage{Content: tt.content}})

			result, err := parseAnalysisJSON(resp)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformedResponse)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 70, result.ConfidenceScore)
		})
	}
}

func TestParseAnalysisJSONEmptyChoices(t *testing.T) {
	_, err := parseAnalysisJSON(chatResponse{})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrMalformedResponse))
}
