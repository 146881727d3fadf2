package entity

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalysisResultUnmarshal(t *testing.T) {
	raw := `{"isAlertWorthy":true,"confidenceScore":85,"alertHighlight":true,"textToSpeak":"NAV alert for Acme","reasoning":"strong signal"}`

	var result AnalysisResult
	require.NoError(t, json.Unmarshal([]byte(raw), &result))

	assert.True(t, result.IsAlertWorthy)
	assert.Equal(t, 85, result.ConfidenceScore)
	assert.True(t, result.AlertHighlight)
	assert.Equal(t, "NAV alert for Acme", result.TextToSpeak)
	assert.Equal(t, "strong signal", result.Extra["reasoning"])
}

func TestAnalysisResultClampsConfidence(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want int
	}{
		{"negative", `{"confidenceScore":-10}`, 0},
		{"over hundred", `{"confidenceScore":250}`, 100},
		{"in range", `{"confidenceScore":65}`, 65},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var result AnalysisResult
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &result))
			assert.Equal(t, tt.want, result.ConfidenceScore)
		})
	}
}

func TestAnalysisResultMarshalRoundTrip(t *testing.T) {
	result := AnalysisResult{
		IsAlertWorthy:   true,
		ConfidenceScore: 72,
		TextToSpeak:     "heads up",
		Extra:           map[string]interface{}{"headline": "Acme buys bitcoin"},
	}

	data, err := json.Marshal(result)
	require.NoError(t, err)

	var decoded AnalysisResult
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, result.IsAlertWorthy, decoded.IsAlertWorthy)
	assert.Equal(t, result.ConfidenceScore, decoded.ConfidenceScore)
	assert.Equal(t, "Acme buys bitcoin", decoded.Extra["headline"])
}

func TestLevelFor(t *testing.T) {
	assert.Equal(t, AlertLevelGold, LevelFor(AnalysisResult{AlertHighlight: true}))
	assert.Equal(t, AlertLevelBlue, LevelFor(AnalysisResult{AlertHighlight: false}))
}
