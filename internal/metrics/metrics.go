// Baseline - Tennis Tournament Discovery and Mapping
// Copyright 2026 J. Swann (jswann)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jswann/baseline

// Package metrics provides Prometheus instrumentation for the sync pipeline,
// the dataset store, and the HTTP query facade.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Upstream fetch metrics
	FetchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_fetch_requests_total",
			Help: "Total upstream page requests by outcome",
		},
		[]string{"outcome"}, // "success", "error"
	)

	FetchPagesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "upstream_fetch_pages_total",
			Help: "Total pages successfully fetched from the upstream API",
		},
	)

	FetchRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "upstream_fetch_retries_total",
			Help: "Total retries of transient upstream failures",
		},
	)

	// Circuit breaker metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_transitions_total",
			Help: "Total circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// Sync run metrics
	SyncRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_runs_total",
			Help: "Total sync runs by terminal state",
		},
		[]string{"state"}, // "done", "failed"
	)

	SyncDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sync_duration_seconds",
			Help:    "Duration of sync runs in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	SyncRecordsAdded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sync_records_added_total",
			Help: "Total tournaments added to the store",
		},
	)

	SyncRecordsUpdated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sync_records_updated_total",
			Help: "Total tournaments updated in the store",
		},
	)

	SyncRecordsRemoved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sync_records_removed_total",
			Help: "Total tournaments pruned from the store",
		},
	)

	SyncRecordsSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sync_records_skipped_total",
			Help: "Total raw records skipped as invalid during normalization",
		},
	)

	// Dataset store metrics
	StoreTournaments = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "store_tournaments",
			Help: "Tournaments in the persisted dataset after the last run",
		},
	)

	PersistDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "store_persist_duration_seconds",
			Help:    "Duration of snapshot persistence in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// API endpoint metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)
)
