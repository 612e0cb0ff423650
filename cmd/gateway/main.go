// Copyright (c) 2026 FitGate. All rights reserved.
// Author: dev@openfit.io

// FitGate is the session gateway in front of the FitTrack single-page app.
// It owns every identity credential on behalf of the browser, keeps access
// tokens fresh proactively and reactively, enforces role-gated page routes,
// and proxies /api calls to the FitTrack API with bearer injection.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/openfit/fitgate/internal/api"
	"github.com/openfit/fitgate/internal/platform/config"
	"github.com/openfit/fitgate/internal/platform/constants"
	"github.com/openfit/fitgate/internal/platform/redis"
	"github.com/openfit/fitgate/internal/session"
)

func main() {
	if err := run(); err != nil {
		slog.Error("gateway terminated", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// ── 1. Configuration and logging ────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logLevel := slog.LevelInfo
	if cfg.Debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})).
		With("app", constants.AppName, "env", cfg.Environment)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ── 2. Durable storage ──────────────────────────────────────────────
	redisClient, err := redis.NewClient(ctx, cfg.RedisURL, logger)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	// ── 3. Session registry and HTTP server ─────────────────────────────
	registry := session.NewRegistry(session.NewRedisKV(redisClient), cfg, logger)

	server, err := api.NewServer(ctx, cfg, logger, redisClient, registry)
	if err != nil {
		return err
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Start()
	}()

	// ── 4. Wait for shutdown signal, then drain ─────────────────────────
	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutdown signal received, draining")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("gateway stopped cleanly")
	return nil
}
