package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rendis/textaction/internal/extraction"
	"github.com/rendis/textaction/internal/pipeline"
	"github.com/rendis/textaction/internal/resilience"
)

// Config holds all textaction configuration.
// Priority: flags > env vars (.env included) > settings.json > defaults.
type Config struct {
	ServiceURL string `json:"service_url" env:"TEXTACTION_SERVICE_URL"`
	Mode       string `json:"mode" env:"TEXTACTION_MODE"`
	APIKey     string `json:"api_key" env:"TEXTACTION_API_KEY"`
	// TimeoutSeconds bounds each request to the extraction service.
	TimeoutSeconds int `json:"timeout_seconds" env:"TEXTACTION_TIMEOUT_SECONDS"`

	ActionsSelector string `json:"actions_selector" env:"TEXTACTION_ACTIONS_SELECTOR"`
	MessageSelector string `json:"message_selector" env:"TEXTACTION_MESSAGE_SELECTOR"`

	TopK      int     `json:"top_k" env:"TEXTACTION_TOP_K"`
	Threshold float64 `json:"threshold" env:"TEXTACTION_THRESHOLD"`

	// RetryMax of 0 disables retries; BreakerThreshold of 0 disables the breaker.
	RetryMax         int `json:"retry_max" env:"TEXTACTION_RETRY_MAX"`
	BreakerThreshold int `json:"breaker_threshold" env:"TEXTACTION_BREAKER_THRESHOLD"`

	ListenAddr string `json:"listen_addr" env:"TEXTACTION_LISTEN_ADDR"`
	LogLevel   string `json:"log_level" env:"TEXTACTION_LOG_LEVEL"`
	LogJSON    bool   `json:"log_json" env:"TEXTACTION_LOG_JSON"`
}

func defaultConfig() Config {
	return Config{
		ServiceURL:     extraction.DefaultBaseURL,
		Mode:           string(extraction.ModeCombined),
		TimeoutSeconds: int(extraction.DefaultTimeout / time.Second),
		TopK:           pipeline.DefaultTopK,
		Threshold:      pipeline.DefaultThreshold,
		ListenAddr:     ":4200",
		LogLevel:       "warn",
	}
}

func textactionDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".textaction"
	}
	return filepath.Join(home, ".textaction")
}

func settingsPath() string {
	return filepath.Join(textactionDir(), "settings.json")
}

// loadConfig layers settings.json, an optional .env file and the process
// environment over the defaults. A missing settings or .env file is not an error.
func loadConfig(settingsFile, envFile string) (Config, error) {
	cfg := defaultConfig()

	if data, err := os.ReadFile(settingsFile); err == nil {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", settingsFile, err)
		}
	}

	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			// Load never overrides variables already set in the environment.
			if err := godotenv.Load(envFile); err != nil {
				return cfg, fmt.Errorf("load %s: %w", envFile, err)
			}
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// options converts the configuration into pipeline bootstrap options.
func (c Config) options() pipeline.Options {
	ext := extraction.DefaultConfig()
	ext.BaseURL = c.ServiceURL
	ext.Mode = extraction.Mode(c.Mode)
	ext.APIKey = c.APIKey
	if c.TimeoutSeconds > 0 {
		ext.Timeout = time.Duration(c.TimeoutSeconds) * time.Second
	}
	ext.Selectors = extraction.Selectors{
		Actions: c.ActionsSelector,
		Message: c.MessageSelector,
	}

	opts := pipeline.Options{
		Extraction: ext,
		TopK:       c.TopK,
		Threshold:  &c.Threshold,
	}
	if c.RetryMax > 0 {
		opts.Retry = resilience.RetryPolicy{
			Max:      c.RetryMax,
			Backoff:  resilience.BackoffExponential,
			Delay:    200 * time.Millisecond,
			MaxDelay: 5 * time.Second,
		}
	}
	if c.BreakerThreshold > 0 {
		bc := resilience.DefaultCircuitBreakerConfig()
		bc.FailureThreshold = c.BreakerThreshold
		opts.Breaker = &bc
	}
	return opts
}
