// Baseline - Tennis Tournament Discovery and Mapping
// Copyright 2026 J. Swann (jswann)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jswann/baseline

// Package api serves the read-only query facade and the sync control
// endpoints over chi.
package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jswann/baseline/internal/config"
	"github.com/jswann/baseline/internal/database"
	"github.com/jswann/baseline/internal/logging"
	"github.com/jswann/baseline/internal/metrics"
	"github.com/jswann/baseline/internal/models"
	"github.com/jswann/baseline/internal/sync"
)

// TournamentReader is the dataset query surface the handlers use.
type TournamentReader interface {
	QuerySlim(ctx context.Context, filter database.SlimFilter) ([]models.SlimTournament, error)
	GetTournament(ctx context.Context, id string) (*models.Tournament, error)
}

// SyncController exposes sync state and the manual trigger.
type SyncController interface {
	TriggerSync() error
	State() sync.RunState
	LastSummary() *sync.Summary
}

// Server is the HTTP facade. It implements suture.Service via Serve.
type Server struct {
	cfg     *config.ServerConfig
	reader  TournamentReader
	syncer  SyncController
	handler http.Handler
}

// NewServer builds the router and middleware stack.
func NewServer(cfg *config.ServerConfig, reader TournamentReader, syncer SyncController) *Server {
	s := &Server{
		cfg:    cfg,
		reader: reader,
		syncer: syncer,
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(instrumentRequests)

	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	if cfg.RateLimitReqs > 0 {
		r.Use(httprate.LimitByIP(cfg.RateLimitReqs, cfg.RateLimitWindow))
	}

	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/tournaments", s.handleListTournaments)
		r.Get("/tournaments/{id}", s.handleGetTournament)
		r.Post("/sync", s.handleTriggerSync)
		r.Get("/sync/status", s.handleSyncStatus)
	})

	s.handler = r
	return s
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.handler }

// Serve runs the HTTP server until ctx is cancelled. Satisfies
// suture.Service.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.cfg.Timeout,
		WriteTimeout:      s.cfg.Timeout,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logging.Warn().Err(err).Msg("HTTP shutdown not clean")
		}
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// requestLogger emits one structured line per request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		logging.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("elapsed", time.Since(start)).
			Str("remote", r.RemoteAddr).
			Msg("HTTP request")
	})
}

// instrumentRequests records per-route request counters and latency, keyed by
// the chi route pattern so ids do not explode the label space.
func instrumentRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		pattern := chi.RouteContext(r.Context()).RoutePattern()
		if pattern == "" {
			pattern = "unmatched"
		}
		metrics.APIRequestsTotal.WithLabelValues(r.Method, pattern, strconv.Itoa(ww.Status())).Inc()
		metrics.APIRequestDuration.WithLabelValues(r.Method, pattern).Observe(time.Since(start).Seconds())
	})
}
