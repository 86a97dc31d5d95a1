// Baseline - Tennis Tournament Discovery and Mapping
// Copyright 2026 J. Swann (jswann)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jswann/baseline

package sync

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/goccy/go-json"

	"github.com/jswann/baseline/internal/models"
	"github.com/jswann/baseline/internal/models/clubspark"
)

// competitionURLBase prefixes the outbound link built from the organization
// slug and the tournament's relative url path.
const competitionURLBase = "https://playtennis.usta.com/Competitions/"

// normalizeTournament converts one raw search hit into the internal model.
// A missing id, name, or start date, or an unparseable start date, rejects
// the record; every optional field maps to its zero/nil form instead.
func normalizeTournament(item json.RawMessage, now time.Time) (models.Tournament, error) {
	var raw clubspark.Tournament
	if err := json.Unmarshal(item, &raw); err != nil {
		return models.Tournament{}, &RecordError{Reason: "malformed item JSON: " + err.Error()}
	}

	id := strings.TrimSpace(raw.ID)
	if id == "" {
		return models.Tournament{}, &RecordError{Reason: "missing id"}
	}
	name := strings.TrimSpace(raw.Name)
	if name == "" {
		return models.Tournament{}, &RecordError{ID: id, Reason: "missing name"}
	}

	startDate := firstNonEmpty(raw.TimeZoneStartDateTime, raw.StartDate)
	if startDate == "" {
		return models.Tournament{}, &RecordError{ID: id, Reason: "missing start date"}
	}
	if _, ok := models.ParseSourceTime(startDate); !ok {
		return models.Tournament{}, &RecordError{ID: id, Reason: "unparseable start date " + startDate}
	}

	t := models.Tournament{
		ID:          id,
		Name:        name,
		StartDate:   startDate,
		EndDate:     firstNonEmpty(raw.TimeZoneEndDateTime, raw.EndDate),
		TimeZone:    strings.TrimSpace(raw.TimeZone),
		IsCancelled: raw.IsCancelled,
		Location:    displayLocation(&raw),
		Categories:  normalizeCategories(raw.LevelCategories),
		Events:      normalizeEvents(raw.Events),
		URL:         buildCompetitionURL(&raw),
		RawPayload:  item,
		LastUpdated: now,
	}

	if raw.Location != nil && raw.Location.Geo != nil {
		t.Latitude = raw.Location.Geo.Latitude
		t.Longitude = raw.Location.Geo.Longitude
	}
	if raw.Level != nil {
		if lvl := strings.TrimSpace(raw.Level.Name); lvl != "" {
			t.Level = &lvl
		}
	}
	if reg := raw.RegistrationRestrictions; reg != nil {
		if deadline := strings.TrimSpace(reg.EntriesCloseDateTime); deadline != "" {
			t.EntriesCloseDateTime = &deadline
		}
		// Registration timezone falls back to the tournament timezone.
		t.RegistrationTimeZone = firstNonEmpty(reg.TimeZone, raw.TimeZone)
	} else {
		t.RegistrationTimeZone = strings.TrimSpace(raw.TimeZone)
	}

	return t, nil
}

// displayLocation composes "venue, town, county" from whichever parts exist.
func displayLocation(raw *clubspark.Tournament) string {
	var parts []string
	if raw.Location != nil {
		if name := strings.TrimSpace(raw.Location.Name); name != "" {
			parts = append(parts, name)
		}
	}
	if raw.PrimaryLocation != nil {
		if town := strings.TrimSpace(raw.PrimaryLocation.Town); town != "" {
			parts = append(parts, town)
		}
		if county := strings.TrimSpace(raw.PrimaryLocation.County); county != "" {
			parts = append(parts, county)
		}
	}
	return strings.Join(parts, ", ")
}

// normalizeCategories title-cases the level category names, dropping blanks.
func normalizeCategories(categories []clubspark.Named) []string {
	var out []string
	for _, c := range categories {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			continue
		}
		out = append(out, titleCase(name))
	}
	return out
}

// titleCase upper-cases the first rune of each space-separated word,
// lower-casing the rest ("JUNIOR circuit" -> "Junior Circuit").
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + strings.ToLower(w[size:])
	}
	return strings.Join(words, " ")
}

// normalizeEvents maps raw event entries, keeping any entry that carries at
// least one usable field. A parent tournament never fails because of its
// events.
func normalizeEvents(events []clubspark.Event) []models.Event {
	var out []models.Event
	for _, raw := range events {
		ev := models.Event{
			Surface:       optString(raw.Surface),
			CourtLocation: optString(raw.CourtLocation),
		}
		if raw.Division != nil {
			ev.Gender = optString(raw.Division.Gender)
			ev.EventType = optString(raw.Division.EventType)
			if raw.Division.AgeCategory != nil {
				ev.TodsCode = optString(raw.Division.AgeCategory.TodsCode)
			}
		}
		if ev.Surface == nil && ev.CourtLocation == nil && ev.Gender == nil &&
			ev.EventType == nil && ev.TodsCode == nil {
			continue
		}
		out = append(out, ev)
	}
	return out
}

// buildCompetitionURL joins the organization slug and the tournament's url
// path into the public competition link. Both parts are required.
func buildCompetitionURL(raw *clubspark.Tournament) *string {
	path := strings.TrimSpace(raw.URL)
	if path == "" || raw.Organization == nil {
		return nil
	}
	slug := strings.TrimSpace(raw.Organization.URLSegment)
	if slug == "" {
		return nil
	}
	url := competitionURLBase + slug + path
	return &url
}

func optString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
