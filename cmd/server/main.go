// Quota Ledger - Event-Sourced Usage Accounting Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/quotaledger

// Package main is the entry point for the quota ledger server.
//
// The server initializes components in the following order:
//
//  1. Configuration: layered defaults, config file, and environment
//     variables (Koanf v2).
//  2. Event store: DuckDB-backed append-only event log.
//  3. Account service: the command layer, wrapping every Decide/Append
//     in a single retry-on-conflict policy and a circuit breaker.
//  4. Supervisor tree: a data layer (checkpoint ticker, invariant
//     auditor) and an API layer (the HTTP server), isolated so a panic
//     in one cannot take the other down.
//  5. HTTP server: the chi-routed REST API with Prometheus metrics and
//     Swagger documentation.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/quotaledger/internal/accountservice"
	"github.com/tomtom215/quotaledger/internal/api"
	"github.com/tomtom215/quotaledger/internal/config"
	"github.com/tomtom215/quotaledger/internal/eventstore"
	"github.com/tomtom215/quotaledger/internal/logging"
	"github.com/tomtom215/quotaledger/internal/projection"
	"github.com/tomtom215/quotaledger/internal/supervisor"
)

func main() {
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		logging.Fatal().Err(err).Msg("invalid configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().Msg("starting quotaledger")

	store, err := eventstore.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to open event store")
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing event store")
		}
	}()
	logging.Info().Str("path", cfg.Database.Path).Msg("event store opened")

	svc := accountservice.New(store, accountservice.DefaultCircuitBreakerConfig("quotaledger"))
	reader := projection.NewReader(store)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	slogLogger := logging.NewSlogLogger()

	tree := supervisor.New(slogLogger, supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	})

	tree.AddDataService(supervisor.NewCheckpointService(store, cfg.Supervisor.CheckpointInterval))
	tree.AddDataService(supervisor.NewAuditorService(store, reader, cfg.Supervisor.AuditorInterval, cfg.Supervisor.AuditorSampleSize))
	logging.Info().Msg("checkpoint ticker and invariant auditor added to supervisor tree")

	handler := api.NewHandler(svc)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	tree.AddAPIService(supervisor.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server added to supervisor tree")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("service failed to stop")
		}
	}

	logging.Info().Msg("quotaledger stopped gracefully")
}
