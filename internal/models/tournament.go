// Baseline - Tennis Tournament Discovery and Mapping
// Copyright 2026 J. Swann (jswann)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jswann/baseline

// Package models defines the internal tournament schema shared by the sync
// pipeline, the dataset store, and the query facade.
package models

import (
	"time"

	"github.com/goccy/go-json"
)

// Event is one discipline/draw offered within a tournament. Events are not
// independently addressable; they exist only inside their parent Tournament
// and their ordering is preserved from the source.
type Event struct {
	Surface       *string `json:"surface,omitempty"`
	CourtLocation *string `json:"courtLocation,omitempty"`
	Gender        *string `json:"gender,omitempty"`
	EventType     *string `json:"eventType,omitempty"`
	TodsCode      *string `json:"todsCode,omitempty"`
}

// Tournament is the unit of identity in the dataset store. ID is the stable
// upstream identifier and the primary key; a later fetch of the same ID
// replaces the stored record wholesale.
//
// StartDate/EndDate are kept verbatim as the source provided them, including
// the source timezone. StartTime/EndTime parse them on demand for pruning and
// date filtering.
type Tournament struct {
	ID                   string          `json:"id"`
	Name                 string          `json:"name"`
	Location             string          `json:"location"`
	Latitude             *float64        `json:"latitude,omitempty"`
	Longitude            *float64        `json:"longitude,omitempty"`
	StartDate            string          `json:"startDate"`
	EndDate              string          `json:"endDate,omitempty"`
	TimeZone             string          `json:"timeZone,omitempty"`
	EntriesCloseDateTime *string         `json:"entriesCloseDateTime,omitempty"`
	RegistrationTimeZone string          `json:"registrationTimeZone,omitempty"`
	Categories           []string        `json:"categories,omitempty"`
	Level                *string         `json:"level,omitempty"`
	Events               []Event         `json:"events,omitempty"`
	URL                  *string         `json:"url,omitempty"`
	IsCancelled          bool            `json:"isCancelled"`
	RawPayload           json.RawMessage `json:"-"`
	LastUpdated          time.Time       `json:"lastUpdated"`
}

// dateLayouts are the timestamp shapes the upstream emits. The offset-less
// layouts are parsed as-is; the zone the source intended is carried
// separately in TimeZone and is never applied here.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseSourceTime parses an upstream timestamp string. Returns the zero time
// and false if the value matches none of the known layouts.
func ParseSourceTime(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// StartTime parses StartDate. The normalizer guarantees StartDate is parseable
// for every record it accepts, so ok is false only for hand-built records.
func (t *Tournament) StartTime() (time.Time, bool) {
	return ParseSourceTime(t.StartDate)
}

// EndTime parses EndDate, which may be absent.
func (t *Tournament) EndTime() (time.Time, bool) {
	if t.EndDate == "" {
		return time.Time{}, false
	}
	return ParseSourceTime(t.EndDate)
}

// HasCoordinates reports whether the record is usable by the map display.
// Records without geocoding are retained in the store but filterable out.
func (t *Tournament) HasCoordinates() bool {
	return t.Latitude != nil && t.Longitude != nil
}

// Equal reports whether two tournaments carry the same data, ignoring
// LastUpdated. The sync summary counts a record as updated only when the
// refetched data actually differs, so an unchanged upstream yields a
// zero-update run.
func (t *Tournament) Equal(other *Tournament) bool {
	a, b := *t, *other
	a.LastUpdated, b.LastUpdated = time.Time{}, time.Time{}
	aj, err := json.Marshal(struct {
		Tournament
		Raw json.RawMessage
	}{a, a.RawPayload})
	if err != nil {
		return false
	}
	bj, err := json.Marshal(struct {
		Tournament
		Raw json.RawMessage
	}{b, b.RawPayload})
	if err != nil {
		return false
	}
	return string(aj) == string(bj)
}

// SlimTournament is the query-facing projection of a Tournament: every field
// except the raw upstream payload. Cancelled tournaments are excluded from
// the slim snapshot entirely, so the flag is not carried here.
type SlimTournament struct {
	ID                   string    `json:"id"`
	Name                 string    `json:"name"`
	Location             string    `json:"location"`
	Latitude             *float64  `json:"latitude,omitempty"`
	Longitude            *float64  `json:"longitude,omitempty"`
	StartDate            string    `json:"startDate"`
	EndDate              string    `json:"endDate,omitempty"`
	TimeZone             string    `json:"timeZone,omitempty"`
	EntriesCloseDateTime *string   `json:"entriesCloseDateTime,omitempty"`
	Categories           []string  `json:"categories,omitempty"`
	Level                *string   `json:"level,omitempty"`
	Events               []Event   `json:"events,omitempty"`
	URL                  *string   `json:"url,omitempty"`
	LastUpdated          time.Time `json:"lastUpdated"`
}

// Slim returns the query-facing projection of the tournament.
func (t *Tournament) Slim() SlimTournament {
	return SlimTournament{
		ID:                   t.ID,
		Name:                 t.Name,
		Location:             t.Location,
		Latitude:             t.Latitude,
		Longitude:            t.Longitude,
		StartDate:            t.StartDate,
		EndDate:              t.EndDate,
		TimeZone:             t.TimeZone,
		EntriesCloseDateTime: t.EntriesCloseDateTime,
		Categories:           t.Categories,
		Level:                t.Level,
		Events:               t.Events,
		URL:                  t.URL,
		LastUpdated:          t.LastUpdated,
	}
}
