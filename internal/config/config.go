package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	TelegramToken string
	GeminiAPIKey  string
	TextModel     string
	ImageModel    string

	LogLevel string
	Debug    bool

	PreferIPv4 bool

	WebAddr            string
	MediaGroupDebounce time.Duration
	PromptDebounce     time.Duration
	MaxConcurrent      int
	MaxHistory         int
	SessionIdleTTL     time.Duration
	RequestTimeout     time.Duration
	HTTPTimeout        time.Duration

	PresetFile    string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// Load reads the environment. Only the Gemini key is mandatory; the bot
// additionally calls RequireTelegram.
func Load() (Config, error) {
	cfg := Config{
		TextModel:          strings.TrimSpace(getEnv("GEMINI_TEXT_MODEL", "gemini-2.5-flash")),
		ImageModel:         strings.TrimSpace(getEnv("GEMINI_IMAGE_MODEL", "gemini-2.5-flash-image-preview")),
		LogLevel:           strings.ToLower(strings.TrimSpace(getEnv("LOG_LEVEL", "info"))),
		Debug:              getEnvBool("DEBUG", false),
		PreferIPv4:         getEnvBool("PREFER_IPV4", true),
		WebAddr:            strings.TrimSpace(getEnv("WEB_ADDR", ":8080")),
		MediaGroupDebounce: time.Duration(getEnvInt("MEDIA_GROUP_DEBOUNCE_MS", 1200)) * time.Millisecond,
		PromptDebounce:     time.Duration(getEnvInt("PROMPT_DEBOUNCE_MS", 500)) * time.Millisecond,
		MaxConcurrent:      getEnvInt("MAX_CONCURRENT", 4),
		MaxHistory:         getEnvInt("MAX_HISTORY", 0),
		SessionIdleTTL:     time.Duration(getEnvInt("SESSION_IDLE_MINUTES", 120)) * time.Minute,
		RequestTimeout:     time.Duration(getEnvInt("REQUEST_TIMEOUT_SECONDS", 180)) * time.Second,
		HTTPTimeout:        time.Duration(getEnvInt("HTTP_TIMEOUT_SECONDS", 180)) * time.Second,
		PresetFile:         strings.TrimSpace(getEnv("PRESET_FILE", "data/presets.json")),
		RedisAddr:          strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		RedisDB:            getEnvInt("REDIS_DB", 0),
	}

	cfg.TelegramToken = strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN"))
	cfg.GeminiAPIKey = strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))

	if cfg.GeminiAPIKey == "" {
		return Config{}, errors.New("GEMINI_API_KEY is required")
	}

	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}
	// Zero keeps every result until the user clears the history.
	if cfg.MaxHistory < 0 {
		cfg.MaxHistory = 0
	}
	if cfg.PromptDebounce <= 0 {
		cfg.PromptDebounce = 500 * time.Millisecond
	}
	if cfg.SessionIdleTTL <= 0 {
		cfg.SessionIdleTTL = 2 * time.Hour
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 180 * time.Second
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 180 * time.Second
	}

	return cfg, nil
}

func (c Config) RequireTelegram() error {
	if c.TelegramToken == "" {
		return errors.New("TELEGRAM_BOT_TOKEN is required")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
