// Baseline - Tennis Tournament Discovery and Mapping
// Copyright 2026 J. Swann (jswann)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jswann/baseline

package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/jswann/baseline/internal/database"
	"github.com/jswann/baseline/internal/logging"
	"github.com/jswann/baseline/internal/sync"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Debug().Err(err).Msg("Response encode failed")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// handleListTournaments serves the slim listing with optional filters:
// level, category, gender, eventType, hasCoordinates, startFrom, startTo
// (YYYY-MM-DD, inclusive), limit, offset.
func (s *Server) handleListTournaments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := database.SlimFilter{
		Level:     q.Get("level"),
		Category:  q.Get("category"),
		Gender:    q.Get("gender"),
		EventType: q.Get("eventType"),
		StartFrom: q.Get("startFrom"),
		StartTo:   q.Get("startTo"),
	}

	if v := q.Get("hasCoordinates"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "hasCoordinates must be a boolean")
			return
		}
		filter.HasCoordinates = &b
	}
	for _, dateParam := range []string{filter.StartFrom, filter.StartTo} {
		if dateParam == "" {
			continue
		}
		if _, err := time.Parse("2006-01-02", dateParam); err != nil {
			writeError(w, http.StatusBadRequest, "dates must be YYYY-MM-DD")
			return
		}
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "offset must be a non-negative integer")
			return
		}
		filter.Offset = n
	}

	tournaments, err := s.reader.QuerySlim(r.Context(), filter)
	if err != nil {
		logging.Error().Err(err).Msg("Tournament query failed")
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count":       len(tournaments),
		"tournaments": tournaments,
	})
}

func (s *Server) handleGetTournament(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing tournament id")
		return
	}

	t, err := s.reader.GetTournament(r.Context(), id)
	if err != nil {
		logging.Error().Err(err).Str("id", id).Msg("Tournament lookup failed")
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	if t == nil {
		writeError(w, http.StatusNotFound, "tournament not found")
		return
	}

	writeJSON(w, http.StatusOK, t)
}

// handleTriggerSync requests an immediate sync run. 202 when accepted, 409
// when a run is already executing.
func (s *Server) handleTriggerSync(w http.ResponseWriter, r *http.Request) {
	if err := s.syncer.TriggerSync(); err != nil {
		if errors.Is(err, sync.ErrSyncInProgress) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		logging.Error().Err(err).Msg("Sync trigger failed")
		writeError(w, http.StatusInternalServerError, "trigger failed")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "sync scheduled"})
}

func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"state":   s.syncer.State(),
		"lastRun": s.syncer.LastSummary(),
	})
}
