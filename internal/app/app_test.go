package app

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dugo-banana-studio/internal/config"
	"dugo-banana-studio/internal/preset"
	"dugo-banana-studio/internal/prompt"
)

func TestNewLoggerLevel(t *testing.T) {
	logger := NewLogger(config.Config{LogLevel: "warn"})

	assert.False(t, logger.Enabled(context.Background(), -4))
	assert.True(t, logger.Enabled(context.Background(), 4))
}

func TestPresetsFallsBackToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "presets.json")
	cfg := config.Config{PresetFile: path}

	store, closeFn, err := Presets(context.Background(), cfg, NewLogger(cfg))
	require.NoError(t, err)
	defer closeFn()

	settings := preset.NewSettings(prompt.DefaultShotConfig(), prompt.CreativeMode{}, prompt.Bundle{Positive: "p"})
	_, err = store.Save(context.Background(), "Studio", settings)
	require.NoError(t, err)
	assert.FileExists(t, path)
}

func TestPresetsFailsOnUnreachableRedis(t *testing.T) {
	cfg := config.Config{RedisAddr: "127.0.0.1:1"}

	_, _, err := Presets(context.Background(), cfg, NewLogger(cfg))
	assert.ErrorContains(t, err, "redis ping")
}

func TestPruneLoopStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	done := make(chan struct{})

	go func() {
		PruneLoop(ctx, 5*time.Millisecond, func() { calls.Add(1) })
		close(done)
	}()

	require.Eventually(t, func() bool { return calls.Load() > 0 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("prune loop did not stop")
	}
}
