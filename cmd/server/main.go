// Doughmination - Plural System Dashboard Backend
// Copyright 2026 Doughmination System
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/doughmination/backend

// Command server runs the Doughmination backend: a caching proxy over the
// PluralKit API with realtime websocket fan-out and locally persisted
// overlays (tags, statuses, mental state, users).
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/doughmination/backend/internal/api"
	"github.com/doughmination/backend/internal/auth"
	"github.com/doughmination/backend/internal/cache"
	"github.com/doughmination/backend/internal/config"
	"github.com/doughmination/backend/internal/coordinator"
	"github.com/doughmination/backend/internal/logging"
	"github.com/doughmination/backend/internal/pluralkit"
	"github.com/doughmination/backend/internal/store"
	"github.com/doughmination/backend/internal/websocket"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		logging.Fatal().Err(err).Msg("server exited with error")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logging.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Msg("starting doughmination backend")

	// Local stores.
	tags, err := store.NewTagStore(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("failed to open tag store: %w", err)
	}
	statuses, err := store.NewStatusStore(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("failed to open status store: %w", err)
	}
	mental, err := store.NewMentalStateStore(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("failed to open mental state store: %w", err)
	}
	users, err := store.NewUserStore(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("failed to open user store: %w", err)
	}
	if err := users.EnsureAdmin(cfg.Security.AdminUsername, cfg.Security.AdminPassword); err != nil {
		return err
	}

	// Upstream client behind a circuit breaker.
	var pk pluralkit.API = pluralkit.NewClient(&cfg.PluralKit, cache.New())
	pk = pluralkit.NewCircuitBreakerClient(pk)

	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		return fmt.Errorf("failed to initialize session manager: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := websocket.NewHub()
	hubDone := make(chan struct{})
	go func() {
		defer close(hubDone)
		if err := hub.RunWithContext(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("websocket hub stopped unexpectedly")
		}
	}()

	coord := coordinator.New(pk, tags, statuses, mental, hub)
	handlers := api.NewHandlers(cfg, pk, coord, tags, statuses, mental, users, jwtManager, hub)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           api.NewRouter(handlers),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		stop()
		<-hubDone
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	logging.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("graceful shutdown failed, forcing close")
		_ = server.Close()
	}

	<-hubDone
	logging.Info().Msg("shutdown complete")
	return nil
}
