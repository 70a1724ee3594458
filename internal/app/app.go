// Package app assembles the studio service and its dependencies from a
// Config. Both binaries go through it.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"dugo-banana-studio/internal/config"
	"dugo-banana-studio/internal/gemini"
	"dugo-banana-studio/internal/httpclient"
	"dugo-banana-studio/internal/preset"
	"dugo-banana-studio/internal/studio"
)

func NewLogger(cfg config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
}

// Presets opens the preset backend: Redis when REDIS_ADDR is set, the JSON
// file otherwise. The returned func releases the backend.
func Presets(ctx context.Context, cfg config.Config, logger *slog.Logger) (*preset.Store, func(), error) {
	if cfg.RedisAddr == "" {
		logger.Info("presets on file", "path", cfg.PresetFile)
		store := preset.NewStore(preset.Options{
			Backend: preset.NewFileBackend(cfg.PresetFile),
			Logger:  logger,
		})
		return store, func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
	}

	logger.Info("presets on redis", "addr", cfg.RedisAddr, "db", cfg.RedisDB)
	store := preset.NewStore(preset.Options{
		Backend: preset.NewRedisBackend(client, ""),
		Logger:  logger,
	})
	return store, func() { _ = client.Close() }, nil
}

// Studio wires the Gemini client and the preset store into a studio service.
// notifier may be nil.
func Studio(ctx context.Context, cfg config.Config, logger *slog.Logger, notifier studio.Notifier) (*studio.Service, func(), error) {
	httpClient := httpclient.New(httpclient.Options{
		PreferIPv4: cfg.PreferIPv4,
		Timeout:    cfg.HTTPTimeout,
	})

	gem, err := gemini.New(ctx, gemini.Options{
		APIKey:     cfg.GeminiAPIKey,
		TextModel:  cfg.TextModel,
		ImageModel: cfg.ImageModel,
		HTTPClient: httpClient,
		Logger:     logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("gemini init: %w", err)
	}

	presets, closePresets, err := Presets(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	svc := studio.New(studio.Options{
		Model:      gem,
		Presets:    presets,
		Debounce:   cfg.PromptDebounce,
		Timeout:    cfg.RequestTimeout,
		MaxHistory: cfg.MaxHistory,
		Notifier:   notifier,
		Logger:     logger,
	})

	return svc, func() {
		svc.Close()
		closePresets()
	}, nil
}

// PruneLoop evicts idle sessions every interval until ctx is done.
func PruneLoop(ctx context.Context, interval time.Duration, prune func()) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			prune()
		}
	}
}
