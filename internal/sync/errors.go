// Baseline - Tennis Tournament Discovery and Mapping
// Copyright 2026 J. Swann (jswann)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jswann/baseline

package sync

import (
	"errors"
	"fmt"
	"time"
)

// FetchError is returned for upstream request failures. Transient errors
// (429, 5xx, network faults) are retried with backoff; anything else aborts
// the run without mutating the store.
type FetchError struct {
	StatusCode int // 0 for transport-level failures
	Transient  bool
	Err        error

	// retryAfter is an upstream-requested delay parsed from the Retry-After
	// header, zero when the header was absent.
	retryAfter time.Duration
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("upstream returned %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("upstream request failed: %v", e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsTransient reports whether err is a retryable fetch failure.
func IsTransient(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Transient
}

// newStatusError classifies an HTTP status. 429 and 5xx are transient; any
// other non-success status is fatal for the run.
func newStatusError(status int, body string) *FetchError {
	transient := status == 429 || status >= 500
	return &FetchError{
		StatusCode: status,
		Transient:  transient,
		Err:        fmt.Errorf("unexpected status with body %q", truncate(body, 200)),
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// RecordError describes why a single fetched record was rejected by the
// normalizer. Record errors never abort a run; the record is skipped and
// counted.
type RecordError struct {
	ID     string // may be empty when the id itself is missing
	Reason string
}

func (e *RecordError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("record rejected: %s", e.Reason)
	}
	return fmt.Sprintf("record %s rejected: %s", e.ID, e.Reason)
}
