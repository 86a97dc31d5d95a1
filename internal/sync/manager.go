// Baseline - Tennis Tournament Discovery and Mapping
// Copyright 2026 J. Swann (jswann)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jswann/baseline

// Package sync implements the ingestion pipeline: fetching tournament pages
// from the upstream search API, normalizing records, merging them into the
// dataset, pruning stale entries, and persisting the snapshots.
package sync

import (
	"context"
	"errors"
	stdsync "sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/jswann/baseline/internal/config"
	"github.com/jswann/baseline/internal/database"
	"github.com/jswann/baseline/internal/logging"
	"github.com/jswann/baseline/internal/metrics"
	"github.com/jswann/baseline/internal/models"
)

// RunState identifies the phase a sync run is in. The store is only mutated
// during StatePersisting; a run that fails before then leaves the dataset
// exactly as the previous run wrote it.
type RunState string

const (
	StateIdle       RunState = "idle"
	StateFetching   RunState = "fetching"
	StateMerging    RunState = "merging"
	StatePruning    RunState = "pruning"
	StatePersisting RunState = "persisting"
	StateDone       RunState = "done"
	StateFailed     RunState = "failed"
)

// ErrSyncInProgress is returned by TriggerSync and RunOnce when a run is
// already executing. Runs never overlap.
var ErrSyncInProgress = errors.New("sync already in progress")

// Summary is the outcome of one sync run.
type Summary struct {
	RunID     string        `json:"runId"`
	State     RunState      `json:"state"`
	StartedAt time.Time     `json:"startedAt"`
	Duration  time.Duration `json:"duration"`
	Pages     int           `json:"pages"`
	Added     int           `json:"added"`
	Updated   int           `json:"updated"`
	Removed   int           `json:"removed"`
	Skipped   int           `json:"skipped"`
	// Complete is false when the run stopped at the page ceiling rather than
	// upstream exhaustion. Incomplete runs merge but never prune, since an
	// unseen record is not evidence of removal.
	Complete bool   `json:"complete"`
	Error    string `json:"error,omitempty"`
}

// Store is the dataset persistence surface the manager drives.
type Store interface {
	Load(ctx context.Context) (map[string]models.Tournament, error)
	Persist(ctx context.Context, dataset map[string]models.Tournament) error
}

// Manager owns the sync lifecycle: periodic runs, manual triggers, and the
// state machine of each run. It implements suture.Service via Serve.
type Manager struct {
	cfg       *config.SyncConfig
	collector *Collector
	store     Store
	now       func() time.Time

	running atomic.Bool
	trigger chan struct{}

	mu          stdsync.Mutex
	state       RunState
	lastSummary *Summary
}

// NewManager wires the orchestrator to its collector and store.
func NewManager(cfg *config.SyncConfig, collector *Collector, store Store) *Manager {
	return &Manager{
		cfg:       cfg,
		collector: collector,
		store:     store,
		now:       time.Now,
		trigger:   make(chan struct{}, 1),
		state:     StateIdle,
	}
}

// Serve runs the periodic sync loop until ctx is cancelled. Satisfies
// suture.Service; a panic or returned error makes the supervisor restart it.
func (m *Manager) Serve(ctx context.Context) error {
	logging.Info().
		Dur("interval", m.cfg.Interval).
		Bool("run_on_startup", m.cfg.RunOnStartup).
		Msg("Sync manager started")

	if m.cfg.RunOnStartup {
		m.runAndLog(ctx)
	}

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Info().Msg("Sync manager stopping")
			return ctx.Err()
		case <-ticker.C:
			m.runAndLog(ctx)
		case <-m.trigger:
			m.runAndLog(ctx)
		}
	}
}

func (m *Manager) runAndLog(ctx context.Context) {
	summary, err := m.RunOnce(ctx)
	if err != nil && !errors.Is(err, ErrSyncInProgress) {
		logging.Error().Err(err).Str("run_id", summary.RunID).Msg("Sync run failed")
	}
}

// TriggerSync requests an immediate run. Returns ErrSyncInProgress when a
// run is already executing; a second pending trigger is coalesced silently.
func (m *Manager) TriggerSync() error {
	if m.running.Load() {
		return ErrSyncInProgress
	}
	select {
	case m.trigger <- struct{}{}:
	default:
	}
	return nil
}

// State returns the current run phase.
func (m *Manager) State() RunState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// LastSummary returns the most recent run summary, nil before the first run.
func (m *Manager) LastSummary() *Summary {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lastSummary == nil {
		return nil
	}
	s := *m.lastSummary
	return &s
}

func (m *Manager) setState(s RunState) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

func (m *Manager) finish(summary *Summary) {
	m.mu.Lock()
	m.state = StateIdle
	m.lastSummary = summary
	m.mu.Unlock()

	metrics.SyncRunsTotal.WithLabelValues(string(summary.State)).Inc()
	metrics.SyncDuration.Observe(summary.Duration.Seconds())
	metrics.SyncRecordsAdded.Add(float64(summary.Added))
	metrics.SyncRecordsUpdated.Add(float64(summary.Updated))
	metrics.SyncRecordsRemoved.Add(float64(summary.Removed))
}

// RunOnce executes a single sync run end to end. A fatal fetch error or run
// timeout fails the run with zero store mutation; hitting the page ceiling
// still merges and persists but skips pruning and marks the summary
// incomplete.
func (m *Manager) RunOnce(ctx context.Context) (*Summary, error) {
	if !m.running.CompareAndSwap(false, true) {
		return &Summary{State: StateFailed, Error: ErrSyncInProgress.Error()}, ErrSyncInProgress
	}
	defer m.running.Store(false)

	ctx, cancel := context.WithTimeout(ctx, m.cfg.RunTimeout)
	defer cancel()

	summary := &Summary{
		RunID:     uuid.NewString(),
		StartedAt: m.now().UTC(),
	}
	log := logging.With().Str("run_id", summary.RunID).Logger()
	log.Info().Msg("Sync run starting")

	m.setState(StateFetching)
	collected, report := m.collector.CollectAll(ctx, m.cfg.MaxPages)
	summary.Pages = report.Pages
	summary.Skipped = report.Skipped
	if report.Err != nil {
		return m.fail(summary, "fetch", report.Err)
	}

	m.setState(StateMerging)
	existing, err := m.store.Load(ctx)
	if err != nil {
		return m.fail(summary, "load", err)
	}
	merged, stats := database.MergeUpsert(existing, collected)
	summary.Added = stats.Added
	summary.Updated = stats.Updated
	summary.Complete = report.Exhausted

	if summary.Complete {
		m.setState(StatePruning)
		merged, summary.Removed = database.Prune(merged, m.now().UTC(), m.cfg.RetentionDays)
	} else {
		log.Warn().Int("pages", report.Pages).Msg("Page ceiling reached, skipping prune")
	}

	m.setState(StatePersisting)
	if err := m.store.Persist(ctx, merged); err != nil {
		return m.fail(summary, "persist", err)
	}

	summary.State = StateDone
	summary.Duration = m.now().UTC().Sub(summary.StartedAt)
	m.finish(summary)

	log.Info().
		Int("pages", summary.Pages).
		Int("added", summary.Added).
		Int("updated", summary.Updated).
		Int("removed", summary.Removed).
		Int("skipped", summary.Skipped).
		Bool("complete", summary.Complete).
		Dur("duration", summary.Duration).
		Msg("Sync run finished")

	return summary, nil
}

func (m *Manager) fail(summary *Summary, phase string, err error) (*Summary, error) {
	summary.State = StateFailed
	summary.Error = phase + ": " + err.Error()
	summary.Duration = m.now().UTC().Sub(summary.StartedAt)
	m.finish(summary)
	return summary, err
}
