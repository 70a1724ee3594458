package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresGeminiKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")

	_, err := Load()
	assert.EqualError(t, err, "GEMINI_API_KEY is required")
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "key")
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("PROMPT_DEBOUNCE_MS", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("MAX_HISTORY", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 500*time.Millisecond, cfg.PromptDebounce)
	assert.Equal(t, "gemini-2.5-flash", cfg.TextModel)
	assert.Empty(t, cfg.RedisAddr)
	assert.Zero(t, cfg.MaxHistory)
	assert.EqualError(t, cfg.RequireTelegram(), "TELEGRAM_BOT_TOKEN is required")
}

func TestLoadOverridesAndClamps(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "key")
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("PROMPT_DEBOUNCE_MS", "250")
	t.Setenv("MAX_CONCURRENT", "0")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("PREFER_IPV4", "nope")
	t.Setenv("MAX_HISTORY", "-5")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, cfg.PromptDebounce)
	assert.Equal(t, 1, cfg.MaxConcurrent)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.PreferIPv4)
	assert.Zero(t, cfg.MaxHistory)
	assert.NoError(t, cfg.RequireTelegram())
}
