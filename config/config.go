// Package config loads service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds every runtime setting for the service. Values come from the
// environment, with defaults suitable for local development.
type Config struct {
	Port    int    `env:"PORT" envDefault:"8000"`
	APIKey  string `env:"API_KEY"`
	DevMode bool   `env:"DEV_MODE"`

	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY"`
	Model           string `env:"MODEL" envDefault:"claude-sonnet-4-5"`
	MaxTokens       int    `env:"MAX_TOKENS" envDefault:"4096"`
	MaxIterations   int    `env:"MAX_ITERATIONS" envDefault:"30"`

	ProfileDir string `env:"BROWSER_PROFILE_DIR" envDefault:"browser_profile"`
	Browser    string `env:"BROWSER" envDefault:"chromium"`
	UserAgent  string `env:"BROWSER_USER_AGENT"`

	WebhookTimeout time.Duration `env:"WEBHOOK_TIMEOUT" envDefault:"30s"`
	WebhookRetries uint64        `env:"WEBHOOK_RETRIES" envDefault:"3"`

	MaxConcurrentTasks int `env:"MAX_CONCURRENT_TASKS" envDefault:"4"`
}

// Load reads configuration from the environment.
func Load() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// Validate reports settings the service cannot start without. An empty
// APIKey is allowed: it disables request authentication for development.
func (c Config) Validate() error {
	if c.AnthropicAPIKey == "" {
		return errors.New("ANTHROPIC_API_KEY is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.MaxConcurrentTasks <= 0 {
		return fmt.Errorf("invalid max concurrent tasks %d", c.MaxConcurrentTasks)
	}
	return nil
}
