// Baseline - Tennis Tournament Discovery and Mapping
// Copyright 2026 J. Swann (jswann)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jswann/baseline

package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-json"

	"github.com/jswann/baseline/internal/models"
)

// SlimFilter narrows the tournament listing. Zero values mean "no filter".
type SlimFilter struct {
	Level          string
	Category       string
	Gender         string
	EventType      string
	HasCoordinates *bool
	StartFrom      string // inclusive, YYYY-MM-DD
	StartTo        string // inclusive, YYYY-MM-DD
	Limit          int
	Offset         int
}

const defaultQueryLimit = 200

// QuerySlim lists tournaments from the slim snapshot. Level, coordinate and
// date-range predicates push down into SQL; category, gender and event-type
// predicates match against the JSON-encoded columns in Go after decode.
func (db *DB) QuerySlim(ctx context.Context, filter SlimFilter) ([]models.SlimTournament, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if _, err := os.Stat(db.slimPath); os.IsNotExist(err) {
		return []models.SlimTournament{}, nil
	}

	var (
		conds []string
		args  []any
	)
	args = append(args, db.slimPath)

	if filter.Level != "" {
		conds = append(conds, "level = ?")
		args = append(args, filter.Level)
	}
	if filter.HasCoordinates != nil {
		if *filter.HasCoordinates {
			conds = append(conds, "latitude IS NOT NULL AND longitude IS NOT NULL")
		} else {
			conds = append(conds, "(latitude IS NULL OR longitude IS NULL)")
		}
	}
	if filter.StartFrom != "" {
		conds = append(conds, "start_ts >= CAST(? AS TIMESTAMP)")
		args = append(args, filter.StartFrom)
	}
	if filter.StartTo != "" {
		conds = append(conds, "start_ts < CAST(? AS TIMESTAMP) + INTERVAL 1 DAY")
		args = append(args, filter.StartTo)
	}

	query := fmt.Sprintf("SELECT %s FROM read_parquet(?)", slimColumns)
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY start_ts NULLS LAST, id"

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query slim snapshot: %w", err)
	}
	defer closeQuietly(rows)

	limit := filter.Limit
	if limit <= 0 || limit > defaultQueryLimit {
		limit = defaultQueryLimit
	}

	var (
		result  []models.SlimTournament
		skipped int
	)
	for rows.Next() {
		st, err := scanSlimTournament(rows)
		if err != nil {
			return nil, err
		}
		if !matchSlimFilter(&st, &filter) {
			continue
		}
		if skipped < filter.Offset {
			skipped++
			continue
		}
		result = append(result, st)
		if len(result) >= limit {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate slim rows: %w", err)
	}

	if result == nil {
		result = []models.SlimTournament{}
	}
	return result, nil
}

// GetTournament looks up a single tournament by id in the full snapshot.
// Returns (nil, nil) when the id is unknown.
func (db *DB) GetTournament(ctx context.Context, id string) (*models.Tournament, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if _, err := os.Stat(db.snapshotPath); os.IsNotExist(err) {
		return nil, nil
	}

	query := fmt.Sprintf("SELECT %s FROM read_parquet(?) WHERE id = ?", snapshotColumns)
	rows, err := db.conn.QueryContext(ctx, query, db.snapshotPath, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query tournament %s: %w", id, err)
	}
	defer closeQuietly(rows)

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to read tournament %s: %w", id, err)
		}
		return nil, nil
	}

	t, err := scanTournament(rows)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func scanSlimTournament(rows *sql.Rows) (models.SlimTournament, error) {
	var (
		st                models.SlimTournament
		lat, lon          sql.NullFloat64
		endDate, tz       sql.NullString
		startTS, endTS    sql.NullTime
		entriesClose      sql.NullString
		categoriesJS      sql.NullString
		level, eventsJS   sql.NullString
		url               sql.NullString
	)

	err := rows.Scan(&st.ID, &st.Name, &st.Location, &lat, &lon,
		&st.StartDate, &endDate, &startTS, &endTS, &tz,
		&entriesClose, &categoriesJS, &level, &eventsJS, &url, &st.LastUpdated)
	if err != nil {
		return st, fmt.Errorf("failed to scan slim row: %w", err)
	}

	if lat.Valid {
		st.Latitude = &lat.Float64
	}
	if lon.Valid {
		st.Longitude = &lon.Float64
	}
	st.EndDate = endDate.String
	st.TimeZone = tz.String
	if entriesClose.Valid && entriesClose.String != "" {
		st.EntriesCloseDateTime = &entriesClose.String
	}
	if level.Valid && level.String != "" {
		st.Level = &level.String
	}
	if url.Valid && url.String != "" {
		st.URL = &url.String
	}
	if categoriesJS.Valid && categoriesJS.String != "" {
		if err := json.Unmarshal([]byte(categoriesJS.String), &st.Categories); err != nil {
			return st, fmt.Errorf("failed to decode categories for %s: %w", st.ID, err)
		}
	}
	if eventsJS.Valid && eventsJS.String != "" {
		if err := json.Unmarshal([]byte(eventsJS.String), &st.Events); err != nil {
			return st, fmt.Errorf("failed to decode events for %s: %w", st.ID, err)
		}
	}

	return st, nil
}

// matchSlimFilter applies the predicates that live in JSON-encoded columns.
func matchSlimFilter(st *models.SlimTournament, f *SlimFilter) bool {
	if f.Category != "" && !containsFold(st.Categories, f.Category) {
		return false
	}
	if f.Gender != "" || f.EventType != "" {
		matched := false
		for _, ev := range st.Events {
			if f.Gender != "" && (ev.Gender == nil || !strings.EqualFold(*ev.Gender, f.Gender)) {
				continue
			}
			if f.EventType != "" && (ev.EventType == nil || !strings.EqualFold(*ev.EventType, f.EventType)) {
				continue
			}
			matched = true
			break
		}
		if !matched {
			return false
		}
	}
	return true
}

func containsFold(list []string, want string) bool {
	for _, s := range list {
		if strings.EqualFold(s, want) {
			return true
		}
	}
	return false
}
