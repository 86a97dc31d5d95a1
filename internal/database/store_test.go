// Baseline - Tennis Tournament Discovery and Mapping
// Copyright 2026 J. Swann (jswann)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jswann/baseline

package database

import (
	"testing"
	"time"

	"github.com/jswann/baseline/internal/models"
)

func tour(id, name, startDate string) models.Tournament {
	return models.Tournament{
		ID:        id,
		Name:      name,
		StartDate: startDate,
	}
}

func toMap(ts ...models.Tournament) map[string]models.Tournament {
	m := make(map[string]models.Tournament, len(ts))
	for _, t := range ts {
		m[t.ID] = t
	}
	return m
}

func TestMergeUpsert(t *testing.T) {
	tests := []struct {
		name        string
		existing    map[string]models.Tournament
		incoming    []models.Tournament
		wantIDs     []string
		wantAdded   int
		wantUpdated int
	}{
		{
			name:      "empty store",
			existing:  map[string]models.Tournament{},
			incoming:  []models.Tournament{tour("a", "A", "2026-06-01")},
			wantIDs:   []string{"a"},
			wantAdded: 1,
		},
		{
			name:        "replace and retain",
			existing:    toMap(tour("a", "A", "2026-06-01"), tour("b", "B", "2026-06-02")),
			incoming:    []models.Tournament{tour("a", "A renamed", "2026-06-01")},
			wantIDs:     []string{"a", "b"},
			wantUpdated: 1,
		},
		{
			name:     "identical refetch counts nothing",
			existing: toMap(tour("a", "A", "2026-06-01")),
			incoming: []models.Tournament{tour("a", "A", "2026-06-01")},
			wantIDs:  []string{"a"},
		},
		{
			name:      "empty batch keeps store",
			existing:  toMap(tour("a", "A", "2026-06-01")),
			incoming:  nil,
			wantIDs:   []string{"a"},
			wantAdded: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			merged, stats := MergeUpsert(tt.existing, tt.incoming)

			if len(merged) != len(tt.wantIDs) {
				t.Fatalf("merged has %d entries, want %d", len(merged), len(tt.wantIDs))
			}
			for _, id := range tt.wantIDs {
				if _, ok := merged[id]; !ok {
					t.Errorf("merged missing id %q", id)
				}
			}
			if stats.Added != tt.wantAdded {
				t.Errorf("Added = %d, want %d", stats.Added, tt.wantAdded)
			}
			if stats.Updated != tt.wantUpdated {
				t.Errorf("Updated = %d, want %d", stats.Updated, tt.wantUpdated)
			}
		})
	}
}

func TestMergeUpsertDoesNotMutateInput(t *testing.T) {
	existing := toMap(tour("a", "A", "2026-06-01"))
	_, _ = MergeUpsert(existing, []models.Tournament{tour("a", "A renamed", "2026-06-01")})

	if existing["a"].Name != "A" {
		t.Error("MergeUpsert mutated the existing map")
	}
}

// Replace-then-prune behavior: a refetched T1 is replaced wholesale, an
// unseen T2 survives the merge, and the prune step removes T2 once its start
// date falls outside the retention window.
func TestMergeThenPrune(t *testing.T) {
	asOf := time.Date(2026, 6, 20, 12, 0, 0, 0, time.UTC)

	t1 := tour("t1", "Spring Open", "2026-06-25")
	t2 := tour("t2", "Winter Classic", "2026-06-01") // 19 days before asOf

	existing := toMap(t1, t2)

	t1Updated := t1
	t1Updated.Name = "Spring Open (moved)"

	merged, stats := MergeUpsert(existing, []models.Tournament{t1Updated})
	if stats.Updated != 1 || stats.Added != 0 {
		t.Fatalf("stats = %+v, want 1 update", stats)
	}
	if merged["t1"].Name != "Spring Open (moved)" {
		t.Error("t1 was not replaced wholesale")
	}
	if _, ok := merged["t2"]; !ok {
		t.Fatal("t2 removed by merge; only prune may delete")
	}

	pruned, removed := Prune(merged, asOf, 7)
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, ok := pruned["t2"]; ok {
		t.Error("t2 survived prune despite being outside retention")
	}
	if _, ok := pruned["t1"]; !ok {
		t.Error("t1 pruned despite future start date")
	}
}

func TestPruneBoundary(t *testing.T) {
	asOf := time.Date(2026, 6, 20, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		startDate string
		kept      bool
	}{
		{"exactly at cutoff", "2026-06-13", true},
		{"one second older", "2026-06-12T23:59:59", false},
		{"strictly older", "2026-06-01", false},
		{"future", "2026-07-01", true},
		{"unparseable retained", "someday", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := toMap(tour("x", "X", tt.startDate))
			pruned, _ := Prune(m, asOf, 7)
			_, kept := pruned["x"]
			if kept != tt.kept {
				t.Errorf("start %q kept = %v, want %v", tt.startDate, kept, tt.kept)
			}
		})
	}
}

func TestPruneIdempotent(t *testing.T) {
	asOf := time.Date(2026, 6, 20, 0, 0, 0, 0, time.UTC)
	m := toMap(
		tour("old", "Old", "2026-05-01"),
		tour("new", "New", "2026-07-01"),
	)

	once, removed1 := Prune(m, asOf, 7)
	twice, removed2 := Prune(once, asOf, 7)

	if removed1 != 1 {
		t.Fatalf("first prune removed %d, want 1", removed1)
	}
	if removed2 != 0 {
		t.Errorf("second prune removed %d, want 0", removed2)
	}
	if len(twice) != len(once) {
		t.Errorf("second prune changed dataset size: %d -> %d", len(once), len(twice))
	}
}

func TestSlimPath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/data/tournaments.parquet", "/data/tournaments_slim.parquet"},
		{"tournaments.parquet", "tournaments_slim.parquet"},
		{"/data/snapshot", "/data/snapshot_slim"},
	}

	for _, tt := range tests {
		if got := SlimPath(tt.in); got != tt.want {
			t.Errorf("SlimPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
