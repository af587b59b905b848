package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	// Clear the variables a host environment could plausibly set. Setenv
	// registers the restore; Unsetenv makes the variable truly absent.
	for _, key := range []string{"PORT", "API_KEY", "MODEL"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Port)
	assert.Empty(t, cfg.APIKey)
	assert.Equal(t, "claude-sonnet-4-5", cfg.Model)
	assert.Equal(t, 4096, cfg.MaxTokens)
	assert.Equal(t, 30, cfg.MaxIterations)
	assert.Equal(t, "browser_profile", cfg.ProfileDir)
	assert.Equal(t, "chromium", cfg.Browser)
	assert.Equal(t, 30*time.Second, cfg.WebhookTimeout)
	assert.Equal(t, uint64(3), cfg.WebhookRetries)
	assert.Equal(t, 4, cfg.MaxConcurrentTasks)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9100")
	t.Setenv("API_KEY", "secret")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")
	t.Setenv("MODEL", "claude-opus-4-1")
	t.Setenv("MAX_ITERATIONS", "50")
	t.Setenv("BROWSER_PROFILE_DIR", "/var/lib/magpie/profile")
	t.Setenv("WEBHOOK_TIMEOUT", "10s")
	t.Setenv("MAX_CONCURRENT_TASKS", "2")
	t.Setenv("DEV_MODE", "1")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, "secret", cfg.APIKey)
	assert.Equal(t, "sk-ant-test", cfg.AnthropicAPIKey)
	assert.Equal(t, "claude-opus-4-1", cfg.Model)
	assert.Equal(t, 50, cfg.MaxIterations)
	assert.Equal(t, "/var/lib/magpie/profile", cfg.ProfileDir)
	assert.Equal(t, 10*time.Second, cfg.WebhookTimeout)
	assert.Equal(t, 2, cfg.MaxConcurrentTasks)
	assert.True(t, cfg.DevMode)
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	t.Setenv("MAX_TOKENS", "lots")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse environment")
}

func TestValidate(t *testing.T) {
	valid := Config{
		Port:               8000,
		AnthropicAPIKey:    "sk-ant-test",
		MaxConcurrentTasks: 4,
	}
	require.NoError(t, valid.Validate())

	t.Run("missing anthropic key", func(t *testing.T) {
		cfg := valid
		cfg.AnthropicAPIKey = ""
		assert.ErrorContains(t, cfg.Validate(), "ANTHROPIC_API_KEY")
	})

	t.Run("bad port", func(t *testing.T) {
		cfg := valid
		cfg.Port = -1
		assert.ErrorContains(t, cfg.Validate(), "invalid port")
	})

	t.Run("bad pool size", func(t *testing.T) {
		cfg := valid
		cfg.MaxConcurrentTasks = 0
		assert.ErrorContains(t, cfg.Validate(), "max concurrent tasks")
	})
}
