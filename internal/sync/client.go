// Baseline - Tennis Tournament Discovery and Mapping
// Copyright 2026 J. Swann (jswann)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jswann/baseline

package sync

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/jswann/baseline/internal/config"
	"github.com/jswann/baseline/internal/logging"
	"github.com/jswann/baseline/internal/metrics"
	"github.com/jswann/baseline/internal/models/clubspark"
)

// maxResponseBytes bounds a single page body read.
const maxResponseBytes = 16 << 20

// sleepFunc abstracts the politeness delay so tests can run without waiting.
type sleepFunc func(ctx context.Context, d time.Duration) error

// Page is one fetched page of raw search results.
type Page struct {
	Results []clubspark.SearchResult
	// Exhausted means no further pages exist: the upstream answered 204,
	// returned no results, or returned fewer results than the page size.
	Exhausted bool
}

// Client fetches tournament pages from the upstream search API. Requests are
// rate limited, retried with exponential backoff on transient failures, and
// guarded by a circuit breaker so a struggling upstream is not hammered.
type Client struct {
	cfg        *config.UpstreamConfig
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[*Page]
	limiter    *rate.Limiter
	sleep      sleepFunc
	now        func() time.Time
}

// NewClient builds a Client from the upstream configuration.
func NewClient(cfg *config.UpstreamConfig) *Client {
	settings := gobreaker.Settings{
		Name:     "upstream-search",
		Interval: 60 * time.Second,
		Timeout:  30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
			metrics.CircuitBreakerState.WithLabelValues(name).Set(breakerStateValue(to))
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state change")
		},
	}

	limit := rate.Inf
	if cfg.SleepMin > 0 {
		limit = rate.Every(cfg.SleepMin)
	}

	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		breaker: gobreaker.NewCircuitBreaker[*Page](settings),
		limiter: rate.NewLimiter(limit, 1),
		sleep:   sleepContext,
		now:     time.Now,
	}
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	default:
		return 2
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// PolitenessDelay returns a random duration in [SleepMin, SleepMax].
func (c *Client) PolitenessDelay() time.Duration {
	lo, hi := c.cfg.SleepMin, c.cfg.SleepMax
	if hi <= lo {
		return lo
	}
	return lo + rand.N(hi-lo)
}

// Pause sleeps for a randomized politeness delay, honoring ctx cancellation.
// The paginator calls this between pages.
func (c *Client) Pause(ctx context.Context) error {
	return c.sleep(ctx, c.PolitenessDelay())
}

// FetchPage fetches one page at the given record offset, retrying transient
// failures up to the configured attempt count.
func (c *Client) FetchPage(ctx context.Context, from int) (*Page, error) {
	var lastErr error
	for attempt := 1; attempt <= c.cfg.RetryAttempts; attempt++ {
		if attempt > 1 {
			metrics.FetchRetriesTotal.Inc()
			delay := c.retryDelay(attempt, lastErr)
			logging.Warn().
				Int("attempt", attempt).
				Dur("delay", delay).
				Err(lastErr).
				Msg("Retrying page fetch")
			if err := c.sleep(ctx, delay); err != nil {
				return nil, err
			}
		}

		page, err := c.breaker.Execute(func() (*Page, error) {
			return c.fetchPageOnce(ctx, from)
		})
		if err == nil {
			metrics.FetchRequestsTotal.WithLabelValues("success").Inc()
			metrics.FetchPagesTotal.Inc()
			return page, nil
		}

		metrics.FetchRequestsTotal.WithLabelValues("error").Inc()
		lastErr = err
		if !retryable(err) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("fetch failed after %d attempts: %w", c.cfg.RetryAttempts, lastErr)
}

// retryable covers transient fetch errors plus the breaker's own rejections,
// which clear once the upstream recovers.
func retryable(err error) bool {
	if IsTransient(err) {
		return true
	}
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

// retryDelay is exponential from the configured base, except that an upstream
// Retry-After on a 429 takes precedence when longer.
func (c *Client) retryDelay(attempt int, lastErr error) time.Duration {
	delay := c.cfg.RetryBaseDelay * (1 << (attempt - 2))
	var fe *FetchError
	if errors.As(lastErr, &fe) && fe.StatusCode == http.StatusTooManyRequests {
		if fe.retryAfter > delay {
			delay = fe.retryAfter
		}
	}
	return delay
}

func (c *Client) fetchPageOnce(ctx context.Context, from int) (*Page, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	body, err := json.Marshal(c.buildRequest(from))
	if err != nil {
		return nil, fmt.Errorf("failed to encode search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json;charset=UTF-8")
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &FetchError{Transient: true, Err: err}
	}
	defer closeQuietly(resp.Body)

	if resp.StatusCode == http.StatusNoContent {
		return &Page{Exhausted: true}, nil
	}
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		fe := newStatusError(resp.StatusCode, string(raw))
		fe.retryAfter = parseRetryAfter(resp.Header.Get("Retry-After"), c.now())
		return nil, fe
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &FetchError{Transient: true, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	var qr clubspark.QueryResponse
	if err := json.Unmarshal(raw, &qr); err != nil {
		return nil, &FetchError{StatusCode: resp.StatusCode, Err: fmt.Errorf("malformed response body: %w", err)}
	}

	return &Page{
		Results:   qr.SearchResults,
		Exhausted: len(qr.SearchResults) < c.cfg.PageSize,
	}, nil
}

// buildRequest assembles the POST body for one page. The distance filter is a
// wide radius so the search covers the whole country; the date-range filter
// spans from today to the configured horizon.
func (c *Client) buildRequest(from int) clubspark.QueryRequest {
	today := c.now()
	return clubspark.QueryRequest{
		Filters: []clubspark.QueryFilter{
			{
				Key:   "distance",
				Items: []clubspark.FilterItem{{Value: c.cfg.DistanceMiles}},
			},
			{
				Key: "date-range",
				Items: []clubspark.FilterItem{{
					MinDate: today.Format("2006-01-02"),
					MaxDate: today.AddDate(0, 0, c.cfg.DateRangeDays).Format("2006-01-02"),
				}},
			},
		},
		Options: clubspark.QueryOptions{
			Size:      c.cfg.PageSize,
			From:      from,
			SortKey:   "date",
			Latitude:  c.cfg.Latitude,
			Longitude: c.cfg.Longitude,
		},
	}
}

// parseRetryAfter handles both delta-seconds and HTTP-date forms.
func parseRetryAfter(header string, now time.Time) time.Duration {
	if header == "" {
		return 0
	}
	if secs, err := strconv.Atoi(header); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(header); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

func closeQuietly(c io.Closer) {
	if err := c.Close(); err != nil {
		logging.Debug().Err(err).Msg("Close failed")
	}
}
