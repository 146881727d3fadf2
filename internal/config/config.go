package config

import (
	"fmt"
	"time"

	"navhunter/pkg/config"
)

// SEC holds the EDGAR feed and query API configuration.
type SEC struct {
	APIKey         string        `mapstructure:"api_key"`
	WebsocketURL   string        `mapstructure:"websocket_url"`
	QueryURL       string        `mapstructure:"query_url"`
	ReconnectDelay time.Duration `mapstructure:"reconnect_delay"`
	UserAgent      string        `mapstructure:"user_agent"`
	StreamLogPath  string        `mapstructure:"stream_log_path"`
	ReplayBuffer   int           `mapstructure:"replay_buffer"`
}

// OpenAI holds the configuration for the OpenAI API.
type OpenAI struct {
	APIKey              string `mapstructure:"api_key"`
	BaseURL             string `mapstructure:"base_url"`
	Model               string `mapstructure:"model"`
	TTSModel            string `mapstructure:"tts_model"`
	TTSVoice            string `mapstructure:"tts_voice"`
	MaxRequestPerMinute int    `mapstructure:"max_request_per_minute"`
	MaxTokenPerMinute   int    `mapstructure:"max_token_per_minute"`
}

// Gemini holds the configuration for the Gemini API.
type Gemini struct {
	APIKey              string `mapstructure:"api_key"`
	Model               string `mapstructure:"model"`
	MaxRequestPerMinute int    `mapstructure:"max_request_per_minute"`
}

// AI selects the analysis provider.
type AI struct {
	Provider string `mapstructure:"provider"`
}

// Auth holds the session token handed out by the identity collaborator.
type Auth struct {
	Token string `mapstructure:"token"`
}

// Pipeline holds per-filing processing tuning.
type Pipeline struct {
	MinContentChars  int           `mapstructure:"min_content_chars"`
	MaxContentChars  int           `mapstructure:"max_content_chars"`
	BatchDelay       time.Duration `mapstructure:"batch_delay"`
	DedupeTTL        time.Duration `mapstructure:"dedupe_ttl"`
	DefaultThreshold int           `mapstructure:"default_threshold"`
}

// Hub holds broadcast transport tuning.
type Hub struct {
	KeepAliveInterval time.Duration `mapstructure:"keep_alive_interval"`
	SubscriberBuffer  int           `mapstructure:"subscriber_buffer"`
}

// Config holds the full configuration for the navhunter service.
type Config struct {
	App      config.App    `mapstructure:"app"`
	Logger   config.Logger `mapstructure:"logger"`
	API      config.API    `mapstructure:"api"`
	Redis    config.Redis  `mapstructure:"redis"`
	SEC      SEC           `mapstructure:"sec"`
	OpenAI   OpenAI        `mapstructure:"openai"`
	Gemini   Gemini        `mapstructure:"gemini"`
	AI       AI            `mapstructure:"ai"`
	Auth     Auth          `mapstructure:"auth"`
	Pipeline Pipeline      `mapstructure:"pipeline"`
	Hub      Hub           `mapstructure:"hub"`
}

// Load loads the service configuration from the given path and applies
// defaults. Missing credentials are rejected here, not at first use.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := config.Load(path, &cfg); err != nil {
		return nil, err
	}

	if cfg.SEC.APIKey == "" {
		return nil, fmt.Errorf("sec.api_key is required")
	}
	if cfg.OpenAI.APIKey == "" && cfg.Gemini.APIKey == "" {
		return nil, fmt.Errorf("an AI provider api key is required (openai.api_key or gemini.api_key)")
	}
	if cfg.Auth.Token == "" {
		return nil, fmt.Errorf("auth.token is required")
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.SEC.WebsocketURL == "" {
		cfg.SEC.WebsocketURL = "wss://stream.sec-api.io"
	}
	if cfg.SEC.QueryURL == "" {
		cfg.SEC.QueryURL = "https://api.sec-api.io"
	}
	if cfg.SEC.ReconnectDelay == 0 {
		cfg.SEC.ReconnectDelay = 5 * time.Second
	}
	if cfg.SEC.UserAgent == "" {
		cfg.SEC.UserAgent = "NAVHunter admin@navhunter.app"
	}
	if cfg.SEC.ReplayBuffer == 0 {
		cfg.SEC.ReplayBuffer = 1000
	}
	if cfg.OpenAI.BaseURL == "" {
		cfg.OpenAI.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.OpenAI.Model == "" {
		cfg.OpenAI.Model = "gpt-4o-mini"
	}
	if cfg.OpenAI.TTSModel == "" {
		cfg.OpenAI.TTSModel = "tts-1"
	}
	if cfg.OpenAI.TTSVoice == "" {
		cfg.OpenAI.TTSVoice = "alloy"
	}
	if cfg.OpenAI.MaxRequestPerMinute == 0 {
		cfg.OpenAI.MaxRequestPerMinute = 60
	}
	if cfg.OpenAI.MaxTokenPerMinute == 0 {
		cfg.OpenAI.MaxTokenPerMinute = 200000
	}
	if cfg.AI.Provider == "" {
		cfg.AI.Provider = "openai"
	}
	if cfg.Pipeline.MinContentChars == 0 {
		cfg.Pipeline.MinContentChars = 50
	}
	if cfg.Pipeline.MaxContentChars == 0 {
		cfg.Pipeline.MaxContentChars = 50000
	}
	if cfg.Pipeline.BatchDelay == 0 {
		cfg.Pipeline.BatchDelay = time.Second
	}
	if cfg.Pipeline.DedupeTTL == 0 {
		cfg.Pipeline.DedupeTTL = 5 * time.Minute
	}
	if cfg.Pipeline.DefaultThreshold == 0 {
		cfg.Pipeline.DefaultThreshold = 65
	}
	if cfg.Hub.KeepAliveInterval == 0 {
		cfg.Hub.KeepAliveInterval = 30 * time.Second
	}
	if cfg.Hub.SubscriberBuffer == 0 {
		cfg.Hub.SubscriberBuffer = 64
	}
	if cfg.Redis.Channel == "" {
		cfg.Redis.Channel = "navhunter.events"
	}
}
