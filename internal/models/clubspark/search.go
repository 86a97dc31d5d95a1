// Baseline - Tennis Tournament Discovery and Mapping
// Copyright 2026 J. Swann (jswann)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jswann/baseline

// Package clubspark holds the raw wire types of the upstream unified-search
// API. These mirror the source schema exactly; internal/sync/normalize.go is
// the only translation boundary into the internal models.
package clubspark

import "github.com/goccy/go-json"

// QueryRequest is the POST body for one page of the tournament search.
// Paging is offset-based: Options.From advances by Options.Size per page.
type QueryRequest struct {
	Filters []QueryFilter `json:"filters"`
	Options QueryOptions  `json:"options"`
}

// QueryFilter is one search filter (distance, date-range, ...).
type QueryFilter struct {
	Key   string       `json:"key"`
	Items []FilterItem `json:"items"`
}

// FilterItem carries the filter payload. Which fields are set depends on the
// filter key: distance uses Value, date-range uses MinDate/MaxDate.
type FilterItem struct {
	Value   int    `json:"value,omitempty"`
	MinDate string `json:"minDate,omitempty"`
	MaxDate string `json:"maxDate,omitempty"`
}

// QueryOptions controls paging, ordering, and the search origin.
type QueryOptions struct {
	Size      int     `json:"size"`
	From      int     `json:"from"`
	SortKey   string  `json:"sortKey"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// QueryResponse is one page of search results.
type QueryResponse struct {
	SearchResults []SearchResult `json:"searchResults"`
	Total         int            `json:"total,omitempty"`
}

// SearchResult wraps a single hit. Item is kept raw so the unmodified source
// record can be stored alongside the normalized one.
type SearchResult struct {
	Item json.RawMessage `json:"item"`
}

// Tournament is the raw per-tournament record inside a SearchResult item.
// Every field is optional at the wire level; the normalizer decides which
// absences are tolerable.
type Tournament struct {
	ID                       string           `json:"id"`
	Name                     string           `json:"name"`
	IsCancelled              bool             `json:"isCancelled"`
	TimeZone                 string           `json:"timeZone"`
	StartDate                string           `json:"startDate"`
	EndDate                  string           `json:"endDate"`
	TimeZoneStartDateTime    string           `json:"timeZoneStartDateTime"`
	TimeZoneEndDateTime      string           `json:"timeZoneEndDateTime"`
	URL                      string           `json:"url"`
	Location                 *Location        `json:"location"`
	PrimaryLocation          *PrimaryLocation `json:"primaryLocation"`
	Organization             *Organization    `json:"organization"`
	Level                    *Named           `json:"level"`
	LevelCategories          []Named          `json:"levelCategories"`
	RegistrationRestrictions *Registration    `json:"registrationRestrictions"`
	Events                   []Event          `json:"events"`
}

// Location is the venue block, optionally geocoded.
type Location struct {
	Name string `json:"name"`
	Geo  *Geo   `json:"geo"`
}

// Geo carries the venue coordinates. Pointers distinguish "absent" from 0,0.
type Geo struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// PrimaryLocation carries town/county used for the display location string.
type PrimaryLocation struct {
	Town   string `json:"town"`
	County string `json:"county"`
}

// Organization identifies the hosting org; URLSegment is the slug used to
// build the outbound competition link.
type Organization struct {
	URLSegment string `json:"urlSegment"`
}

// Named is the {"name": ...} shape used by level and levelCategories.
type Named struct {
	Name string `json:"name"`
}

// Registration holds entry-deadline details.
type Registration struct {
	EntriesCloseDateTime string `json:"entriesCloseDateTime"`
	TimeZone             string `json:"timeZone"`
}

// Event is one raw draw/discipline entry.
type Event struct {
	Surface       string    `json:"surface"`
	CourtLocation string    `json:"courtLocation"`
	Division      *Division `json:"division"`
}

// Division carries the gender/type/age-bracket classification of an event.
type Division struct {
	Gender      string       `json:"gender"`
	EventType   string       `json:"eventType"`
	AgeCategory *AgeCategory `json:"ageCategory"`
}

// AgeCategory holds the TODS age bracket code (e.g. "U18").
type AgeCategory struct {
	TodsCode string `json:"todsCode"`
}
