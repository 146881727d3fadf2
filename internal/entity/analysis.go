package entity

import "encoding/json"

// AnalysisResult is the structured verdict returned by the AI analyzer.
// The required fields stay typed; anything else the model volunteers is
// kept in Extra.
type AnalysisResult struct {
	IsAlertWorthy   bool   `json:"isAlertWorthy"`
	ConfidenceScore int    `json:"confidenceScore"`
	AlertHighlight  bool   `json:"alertHighlight"`
	TextToSpeak     string `json:"textToSpeak"`

	Extra map[string]interface{} `json:"-"`
}

type analysisResultAlias struct {
	IsAlertWorthy   bool   `json:"isAlertWorthy"`
	ConfidenceScore int    `json:"confidenceScore"`
	AlertHighlight  bool   `json:"alertHighlight"`
	TextToSpeak     string `json:"textToSpeak"`
}

// UnmarshalJSON decodes the fixed fields and collects unrecognized
// commentary fields into Extra. ConfidenceScore is clamped to [0,100].
func (r *AnalysisResult) UnmarshalJSON(data []byte) error {
	var alias analysisResultAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	delete(raw, "isAlertWorthy")
	delete(raw, "confidenceScore")
	delete(raw, "alertHighlight")
	delete(raw, "textToSpeak")

	r.IsAlertWorthy = alias.IsAlertWorthy
	r.ConfidenceScore = alias.ConfidenceScore
	r.AlertHighlight = alias.AlertHighlight
	r.TextToSpeak = alias.TextToSpeak
	if len(raw) > 0 {
		r.Extra = raw
	}

	if r.ConfidenceScore < 0 {
		r.ConfidenceScore = 0
	}
	if r.ConfidenceScore > 100 {
		r.ConfidenceScore = 100
	}
	return nil
}

// MarshalJSON emits the fixed fields alongside any Extra commentary.
func (r AnalysisResult) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(r.Extra)+4)
	for k, v := range r.Extra {
		out[k] = v
	}
	out["isAlertWorthy"] = r.IsAlertWorthy
	out["confidenceScore"] = r.ConfidenceScore
	out["alertHighlight"] = r.AlertHighlight
	out["textToSpeak"] = r.TextToSpeak
	return json.Marshal(out)
}
