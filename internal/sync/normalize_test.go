// Baseline - Tennis Tournament Discovery and Mapping
// Copyright 2026 J. Swann (jswann)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jswann/baseline

package sync

import (
	"errors"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

var testFetchTime = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

const fullRawItem = `{
	"id": "abc-123",
	"name": "SoCal Junior Open",
	"isCancelled": false,
	"timeZone": "America/Los_Angeles",
	"startDate": "2026-06-15",
	"timeZoneStartDateTime": "2026-06-15T09:00:00",
	"timeZoneEndDateTime": "2026-06-17T18:00:00",
	"url": "/tournaments/abc-123",
	"location": {
		"name": "Griffith-Riverside Tennis",
		"geo": {"latitude": 34.1184, "longitude": -118.3004}
	},
	"primaryLocation": {"town": "Los Angeles", "county": "CA"},
	"organization": {"urlSegment": "socal"},
	"level": {"name": "Level 5"},
	"levelCategories": [{"name": "junior"}, {"name": "ADULT"}],
	"registrationRestrictions": {
		"entriesCloseDateTime": "2026-06-10T23:59:00",
		"timeZone": "America/Denver"
	},
	"events": [
		{
			"surface": "Hard",
			"courtLocation": "Outdoor",
			"division": {
				"gender": "Boys",
				"eventType": "Singles",
				"ageCategory": {"todsCode": "U18"}
			}
		},
		{"surface": "", "courtLocation": "", "division": null}
	]
}`

func TestNormalizeTournamentFullRecord(t *testing.T) {
	got, err := normalizeTournament(json.RawMessage(fullRawItem), testFetchTime)
	if err != nil {
		t.Fatalf("normalizeTournament() error: %v", err)
	}

	if got.ID != "abc-123" {
		t.Errorf("ID = %q", got.ID)
	}
	if got.Name != "SoCal Junior Open" {
		t.Errorf("Name = %q", got.Name)
	}
	if got.StartDate != "2026-06-15T09:00:00" {
		t.Errorf("StartDate = %q, want timezone-aware form preferred", got.StartDate)
	}
	if got.EndDate != "2026-06-17T18:00:00" {
		t.Errorf("EndDate = %q", got.EndDate)
	}
	if got.Location != "Griffith-Riverside Tennis, Los Angeles, CA" {
		t.Errorf("Location = %q", got.Location)
	}
	if got.Latitude == nil || *got.Latitude != 34.1184 {
		t.Errorf("Latitude = %v", got.Latitude)
	}
	if got.Longitude == nil || *got.Longitude != -118.3004 {
		t.Errorf("Longitude = %v", got.Longitude)
	}
	if got.Level == nil || *got.Level != "Level 5" {
		t.Errorf("Level = %v", got.Level)
	}
	if len(got.Categories) != 2 || got.Categories[0] != "Junior" || got.Categories[1] != "Adult" {
		t.Errorf("Categories = %v, want title-cased [Junior Adult]", got.Categories)
	}
	if got.URL == nil || *got.URL != "https://playtennis.usta.com/Competitions/socal/tournaments/abc-123" {
		t.Errorf("URL = %v", got.URL)
	}
	if got.EntriesCloseDateTime == nil || *got.EntriesCloseDateTime != "2026-06-10T23:59:00" {
		t.Errorf("EntriesCloseDateTime = %v", got.EntriesCloseDateTime)
	}
	if got.RegistrationTimeZone != "America/Denver" {
		t.Errorf("RegistrationTimeZone = %q", got.RegistrationTimeZone)
	}
	if got.TimeZone != "America/Los_Angeles" {
		t.Errorf("TimeZone = %q", got.TimeZone)
	}
	if !got.LastUpdated.Equal(testFetchTime) {
		t.Errorf("LastUpdated = %v", got.LastUpdated)
	}
	if string(got.RawPayload) != fullRawItem {
		t.Error("RawPayload not retained verbatim")
	}

	// The all-empty second event must be dropped; the parent survives.
	if len(got.Events) != 1 {
		t.Fatalf("Events = %d entries, want 1", len(got.Events))
	}
	ev := got.Events[0]
	if ev.Surface == nil || *ev.Surface != "Hard" {
		t.Errorf("Surface = %v", ev.Surface)
	}
	if ev.Gender == nil || *ev.Gender != "Boys" {
		t.Errorf("Gender = %v", ev.Gender)
	}
	if ev.EventType == nil || *ev.EventType != "Singles" {
		t.Errorf("EventType = %v", ev.EventType)
	}
	if ev.TodsCode == nil || *ev.TodsCode != "U18" {
		t.Errorf("TodsCode = %v", ev.TodsCode)
	}
}

func TestNormalizeTournamentMinimalRecord(t *testing.T) {
	raw := `{"id": "min-1", "name": "Bare Minimum Open", "startDate": "2026-07-01"}`

	got, err := normalizeTournament(json.RawMessage(raw), testFetchTime)
	if err != nil {
		t.Fatalf("normalizeTournament() error: %v", err)
	}

	if got.Latitude != nil || got.Longitude != nil {
		t.Error("missing geo must map to nil coordinates")
	}
	if got.Level != nil {
		t.Error("missing level must map to nil")
	}
	if got.URL != nil {
		t.Error("URL requires both org slug and path")
	}
	if got.EntriesCloseDateTime != nil {
		t.Error("missing registration must map to nil deadline")
	}
	if got.Location != "" {
		t.Errorf("Location = %q, want empty", got.Location)
	}
}

func TestNormalizeTournamentRejections(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"missing id", `{"name": "X", "startDate": "2026-07-01"}`},
		{"blank id", `{"id": "  ", "name": "X", "startDate": "2026-07-01"}`},
		{"missing name", `{"id": "x", "startDate": "2026-07-01"}`},
		{"missing start date", `{"id": "x", "name": "X"}`},
		{"unparseable start date", `{"id": "x", "name": "X", "startDate": "next tuesday"}`},
		{"malformed json", `{"id": "x",`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := normalizeTournament(json.RawMessage(tt.raw), testFetchTime)
			if err == nil {
				t.Fatal("normalizeTournament() error = nil, want rejection")
			}
			var re *RecordError
			if !errors.As(err, &re) {
				t.Errorf("error type = %T, want *RecordError", err)
			}
		})
	}
}

func TestNormalizeTournamentStartDateFallback(t *testing.T) {
	raw := `{"id": "x", "name": "X", "startDate": "2026-07-01"}`
	got, err := normalizeTournament(json.RawMessage(raw), testFetchTime)
	if err != nil {
		t.Fatalf("normalizeTournament() error: %v", err)
	}
	if got.StartDate != "2026-07-01" {
		t.Errorf("StartDate = %q, want fallback to plain startDate", got.StartDate)
	}
}

func TestTitleCase(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"junior", "Junior"},
		{"ADULT", "Adult"},
		{"wheelchair tennis", "Wheelchair Tennis"},
		{"élite", "Élite"},
		{"über SENIOR", "Über Senior"},
	}
	for _, tt := range tests {
		if got := titleCase(tt.in); got != tt.want {
			t.Errorf("titleCase(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
