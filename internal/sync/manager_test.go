// Baseline - Tennis Tournament Discovery and Mapping
// Copyright 2026 J. Swann (jswann)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jswann/baseline

package sync

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/jswann/baseline/internal/config"
	"github.com/jswann/baseline/internal/models"
)

// fakeStore records Persist calls and serves a canned dataset.
type fakeStore struct {
	data       map[string]models.Tournament
	loadErr    error
	persistErr error

	persistCalls int
	lastPersist  map[string]models.Tournament
}

func (s *fakeStore) Load(ctx context.Context) (map[string]models.Tournament, error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	out := make(map[string]models.Tournament, len(s.data))
	for k, v := range s.data {
		out[k] = v
	}
	return out, nil
}

func (s *fakeStore) Persist(ctx context.Context, dataset map[string]models.Tournament) error {
	s.persistCalls++
	if s.persistErr != nil {
		return s.persistErr
	}
	s.lastPersist = dataset
	s.data = dataset
	return nil
}

func testSyncConfig() *config.SyncConfig {
	return &config.SyncConfig{
		Interval:      time.Hour,
		MaxPages:      5,
		RetentionDays: 7,
		RunTimeout:    10 * time.Second,
	}
}

func newTestManager(t *testing.T, upstream *pagedUpstream, store *fakeStore) (*Manager, func()) {
	t.Helper()
	collector, cleanup := newTestCollector(t, upstream)
	return NewManager(testSyncConfig(), collector, store), cleanup
}

func TestRunOnceSuccess(t *testing.T) {
	upstream := &pagedUpstream{t: t, pages: map[int][]string{
		0: {item("a"), item("b")},
	}}
	store := &fakeStore{data: map[string]models.Tournament{}}
	manager, cleanup := newTestManager(t, upstream, store)
	defer cleanup()

	summary, err := manager.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce() error: %v", err)
	}
	if summary.State != StateDone {
		t.Errorf("State = %s, want done", summary.State)
	}
	if !summary.Complete {
		t.Error("Complete = false after exhausted upstream")
	}
	if summary.Added != 2 || summary.Updated != 0 || summary.Removed != 0 {
		t.Errorf("summary = %+v, want 2 added only", summary)
	}
	if store.persistCalls != 1 || len(store.lastPersist) != 2 {
		t.Errorf("persisted %d times with %d records, want 1 call with 2", store.persistCalls, len(store.lastPersist))
	}
	if manager.State() != StateIdle {
		t.Errorf("manager state = %s after run, want idle", manager.State())
	}
}

// A second run against an unchanged upstream reports zero changes.
func TestRunOnceIdempotent(t *testing.T) {
	upstream := &pagedUpstream{t: t, pages: map[int][]string{
		0: {item("a"), item("b")},
	}}
	store := &fakeStore{data: map[string]models.Tournament{}}
	manager, cleanup := newTestManager(t, upstream, store)
	defer cleanup()

	if _, err := manager.RunOnce(context.Background()); err != nil {
		t.Fatalf("first RunOnce() error: %v", err)
	}
	summary, err := manager.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("second RunOnce() error: %v", err)
	}
	if summary.Added != 0 || summary.Updated != 0 || summary.Removed != 0 {
		t.Errorf("second run changed data: %+v, want all zero", summary)
	}
}

// A mid-run fatal fetch error (e.g. 403 on page two) fails the run and must
// not touch the store.
func TestRunOnceFatalFetchLeavesStoreUntouched(t *testing.T) {
	upstream := &pagedUpstream{
		t: t,
		pages: map[int][]string{
			0: {item("a"), item("b"), item("c")},
		},
		fail: map[int]int{3: http.StatusForbidden},
	}
	prior := map[string]models.Tournament{
		"old": {ID: "old", Name: "Existing", StartDate: "2026-07-01"},
	}
	store := &fakeStore{data: prior}
	manager, cleanup := newTestManager(t, upstream, store)
	defer cleanup()

	summary, err := manager.RunOnce(context.Background())
	if err == nil {
		t.Fatal("RunOnce() error = nil, want fatal fetch error")
	}
	if summary.State != StateFailed {
		t.Errorf("State = %s, want failed", summary.State)
	}
	if summary.Error == "" {
		t.Error("summary.Error empty, want failure reason")
	}
	if store.persistCalls != 0 {
		t.Errorf("Persist called %d times on failed run, want 0", store.persistCalls)
	}
	if len(store.data) != 1 {
		t.Error("store mutated by failed run")
	}
}

// Hitting the page ceiling merges and persists but skips pruning: an unseen
// record is not evidence of removal.
func TestRunOnceTruncatedSkipsPrune(t *testing.T) {
	upstream := &pagedUpstream{t: t, pages: map[int][]string{
		0: {item("a"), item("b"), item("c")},
		3: {item("d"), item("e"), item("f")},
	}}
	// A record old enough that a complete run would prune it.
	stale := models.Tournament{ID: "stale", Name: "Old Cup", StartDate: "2020-01-01"}
	store := &fakeStore{data: map[string]models.Tournament{"stale": stale}}

	collector, cleanup := newTestCollector(t, upstream)
	defer cleanup()
	cfg := testSyncConfig()
	cfg.MaxPages = 1
	manager := NewManager(cfg, collector, store)

	summary, err := manager.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce() error: %v", err)
	}
	if summary.Complete {
		t.Error("Complete = true for ceiling-truncated run")
	}
	if summary.Removed != 0 {
		t.Errorf("Removed = %d on truncated run, want 0", summary.Removed)
	}
	if _, ok := store.data["stale"]; !ok {
		t.Error("truncated run pruned a record")
	}
	if len(store.data) != 4 {
		t.Errorf("store has %d records, want stale + 3 fetched", len(store.data))
	}
}

func TestRunOnceCompletePrunesStale(t *testing.T) {
	upstream := &pagedUpstream{t: t, pages: map[int][]string{
		0: {item("a")},
	}}
	stale := models.Tournament{ID: "stale", Name: "Old Cup", StartDate: "2020-01-01"}
	store := &fakeStore{data: map[string]models.Tournament{"stale": stale}}
	manager, cleanup := newTestManager(t, upstream, store)
	defer cleanup()

	summary, err := manager.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce() error: %v", err)
	}
	if summary.Removed != 1 {
		t.Errorf("Removed = %d, want 1", summary.Removed)
	}
	if _, ok := store.data["stale"]; ok {
		t.Error("stale record survived a complete run")
	}
}

func TestRunOncePersistFailure(t *testing.T) {
	upstream := &pagedUpstream{t: t, pages: map[int][]string{
		0: {item("a")},
	}}
	store := &fakeStore{
		data:       map[string]models.Tournament{},
		persistErr: errors.New("disk full"),
	}
	manager, cleanup := newTestManager(t, upstream, store)
	defer cleanup()

	summary, err := manager.RunOnce(context.Background())
	if err == nil {
		t.Fatal("RunOnce() error = nil, want persist error")
	}
	if summary.State != StateFailed {
		t.Errorf("State = %s, want failed", summary.State)
	}
}

func TestRunOnceSkippedRecordsCounted(t *testing.T) {
	upstream := &pagedUpstream{t: t, pages: map[int][]string{
		0: {item("a"), `{"name":"no id","startDate":"2026-07-01"}`},
	}}
	store := &fakeStore{data: map[string]models.Tournament{}}
	manager, cleanup := newTestManager(t, upstream, store)
	defer cleanup()

	summary, err := manager.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce() error: %v", err)
	}
	if summary.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", summary.Skipped)
	}
	if summary.Added != 1 {
		t.Errorf("Added = %d, want 1", summary.Added)
	}
}

func TestRunOnceSingleFlight(t *testing.T) {
	manager := NewManager(testSyncConfig(), nil, nil)
	manager.running.Store(true)

	summary, err := manager.RunOnce(context.Background())
	if !errors.Is(err, ErrSyncInProgress) {
		t.Fatalf("error = %v, want ErrSyncInProgress", err)
	}
	if summary.State != StateFailed {
		t.Errorf("State = %s, want failed", summary.State)
	}

	if err := manager.TriggerSync(); !errors.Is(err, ErrSyncInProgress) {
		t.Errorf("TriggerSync() = %v, want ErrSyncInProgress while running", err)
	}
}

func TestTriggerSyncCoalesces(t *testing.T) {
	manager := NewManager(testSyncConfig(), nil, nil)

	if err := manager.TriggerSync(); err != nil {
		t.Fatalf("first TriggerSync() error: %v", err)
	}
	// Second trigger with one already pending is dropped, not an error.
	if err := manager.TriggerSync(); err != nil {
		t.Fatalf("second TriggerSync() error: %v", err)
	}
	if len(manager.trigger) != 1 {
		t.Errorf("pending triggers = %d, want 1", len(manager.trigger))
	}
}

func TestLastSummaryIsCopy(t *testing.T) {
	upstream := &pagedUpstream{t: t, pages: map[int][]string{
		0: {item("a")},
	}}
	store := &fakeStore{data: map[string]models.Tournament{}}
	manager, cleanup := newTestManager(t, upstream, store)
	defer cleanup()

	if manager.LastSummary() != nil {
		t.Fatal("LastSummary() non-nil before first run")
	}
	if _, err := manager.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error: %v", err)
	}

	first := manager.LastSummary()
	if first == nil || first.State != StateDone {
		t.Fatalf("LastSummary() = %+v, want done summary", first)
	}
	first.Added = 999
	if manager.LastSummary().Added == 999 {
		t.Error("LastSummary() returned shared state, want a copy")
	}
}
