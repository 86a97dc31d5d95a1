// Baseline - Tennis Tournament Discovery and Mapping
// Copyright 2026 J. Swann (jswann)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jswann/baseline

package sync

import (
	"context"
	"time"

	"github.com/jswann/baseline/internal/logging"
	"github.com/jswann/baseline/internal/metrics"
	"github.com/jswann/baseline/internal/models"
)

// CollectReport summarizes one pagination sweep.
type CollectReport struct {
	Pages     int  // pages actually fetched
	Records   int  // records accepted
	Skipped   int  // records rejected by the normalizer
	Exhausted bool // upstream reported no further pages
	Err       error
}

// Collector drives offset-based pagination over the upstream search.
type Collector struct {
	client   *Client
	pageSize int
	now      func() time.Time
}

// NewCollector wires a Collector to a fetch client. pageSize must match the
// size the client requests per page, since offsets advance by it.
func NewCollector(client *Client) *Collector {
	return &Collector{
		client:   client,
		pageSize: client.cfg.PageSize,
		now:      time.Now,
	}
}

// CollectAll fetches pages until the upstream is exhausted or maxPages is
// reached, normalizing records as they arrive. On a fatal fetch error the
// records accumulated so far are returned with report.Err set; the caller
// decides whether partial data is usable (it is not, for a sync run).
func (c *Collector) CollectAll(ctx context.Context, maxPages int) ([]models.Tournament, CollectReport) {
	var (
		collected []models.Tournament
		report    CollectReport
	)

	for page := 0; page < maxPages; page++ {
		if page > 0 {
			// Politeness pause between pages; never before the first.
			if err := c.client.Pause(ctx); err != nil {
				report.Err = err
				return collected, report
			}
		}

		result, err := c.client.FetchPage(ctx, page*c.pageSize)
		if err != nil {
			report.Err = err
			return collected, report
		}
		report.Pages++

		fetchTime := c.now().UTC()
		for _, sr := range result.Results {
			t, err := normalizeTournament(sr.Item, fetchTime)
			if err != nil {
				report.Skipped++
				metrics.SyncRecordsSkipped.Inc()
				logging.Warn().Err(err).Int("page", report.Pages).Msg("Skipping invalid record")
				continue
			}
			collected = append(collected, t)
			report.Records++
		}

		logging.Debug().
			Int("page", report.Pages).
			Int("records", len(result.Results)).
			Bool("exhausted", result.Exhausted).
			Msg("Page collected")

		if result.Exhausted {
			report.Exhausted = true
			break
		}
	}

	return collected, report
}
