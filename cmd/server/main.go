// Baseline - Tennis Tournament Discovery and Mapping
// Copyright 2026 J. Swann (jswann)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jswann/baseline

// Package main is the entry point for the Baseline server.
//
// Baseline discovers tennis tournaments from an upstream search API,
// normalizes them into a durable Parquet dataset, and serves a read-only
// query facade for map and listing clients.
//
// The server initializes components in the following order:
//
//  1. Configuration: layered defaults, config.yaml, environment (Koanf v2)
//  2. Dataset store: DuckDB engine over the Parquet snapshots
//  3. Upstream client: rate-limited, circuit-broken search fetcher
//  4. Sync manager: periodic fetch/merge/prune/persist pipeline
//  5. HTTP server: query facade, sync control, metrics, health
//
// Sync runs are supervised separately from the HTTP layer, so a crashing
// run restarts without interrupting the query facade.
//
// The server handles graceful shutdown on SIGINT and SIGTERM: the supervisor
// tree stops both layers, in-flight requests drain within the shutdown
// timeout, and the database closes last.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/jswann/baseline/internal/api"
	"github.com/jswann/baseline/internal/config"
	"github.com/jswann/baseline/internal/database"
	"github.com/jswann/baseline/internal/logging"
	"github.com/jswann/baseline/internal/supervisor"
	"github.com/jswann/baseline/internal/sync"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("endpoint", cfg.Upstream.Endpoint).
		Str("snapshot", cfg.Database.SnapshotPath).
		Dur("interval", cfg.Sync.Interval).
		Msg("Starting Baseline")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize dataset store")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing dataset store")
		}
	}()

	client := sync.NewClient(&cfg.Upstream)
	collector := sync.NewCollector(client)
	manager := sync.NewManager(&cfg.Sync, collector, db)
	server := api.NewServer(&cfg.Server, db, manager)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddIngestService(manager)
	tree.AddAPIService(server)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Baseline stopped gracefully")
}
