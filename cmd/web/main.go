package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"dugo-banana-studio/internal/app"
	"dugo-banana-studio/internal/config"
	"dugo-banana-studio/internal/web"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := app.NewLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := web.NewHub(logger)
	defer hub.Close()

	svc, closeStudio, err := app.Studio(ctx, cfg, logger, hub)
	if err != nil {
		logger.Error("studio init failed", "err", err)
		os.Exit(1)
	}
	defer closeStudio()

	go app.PruneLoop(ctx, time.Minute, func() {
		if n := svc.PruneIdle(cfg.SessionIdleTTL); n > 0 {
			logger.Info("pruned idle sessions", "count", n)
		}
	})

	server := web.New(web.Options{
		Studio:         svc,
		Hub:            hub,
		Logger:         logger,
		RequestTimeout: cfg.RequestTimeout,
	})

	srv := &http.Server{
		Addr:              cfg.WebAddr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("web started", "addr", cfg.WebAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "err", err)
	}
	logger.Info("shutting down")
}
