package entity

// SessionConfig is the viewer-supplied monitoring configuration stored
// for the lifetime of a monitoring session and reused by batch runs.
type SessionConfig struct {
	FormTypes     []string `json:"formTypes"`
	Confidence    int      `json:"confidence"`
	AIModel       string   `json:"aiModel"`
	AITemperature float64  `json:"aiTemperature"`
	AIPrompt      string   `json:"aiPrompt"`

	// Optional per-session credential overrides.
	OpenAIAPIKey string `json:"openaiApiKey,omitempty"`
	SECAPIKey    string `json:"secApiKey,omitempty"`
}
