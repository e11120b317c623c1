// Copyright (C) 2025 PStryder (interview@legivellum.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package extensions

import (
	"context"
	"errors"
	"time"
)

// Resolution outcomes recorded on audit events.
const (
	// OutcomeOK: the operation answered from a source normally.
	OutcomeOK = "ok"

	// OutcomeDegraded: every eligible source failed and the operation
	// returned its degraded shape (empty/unknown/unreachable).
	OutcomeDegraded = "degraded"

	// OutcomeRateLimited: the component poll budget rejected the call.
	OutcomeRateLimited = "rate_limited"

	// OutcomeDenied: a policy gate refused the operation.
	OutcomeDenied = "denied"

	// OutcomeError: the operation propagated an error to the caller.
	OutcomeError = "error"
)

// AuditEvent describes one resolved query. Exactly one event is emitted per
// public operation, whatever its outcome.
//
// Events are bounded by construction: they carry attribution and cost
// accounting, never receipt bodies, queue payloads, or artifact contents.
// The same struct is persisted by the audit journal, exported to the cost
// sink, and broadcast on the live stream.
type AuditEvent struct {
	// EventID uniquely identifies the event.
	EventID string `json:"event_id"`

	// TenantID scopes the query. "system" for tenant-less operations.
	TenantID string `json:"tenant_id"`

	// Operation names the public operation, e.g. "status.receipts",
	// "search.receipts", "queue.async".
	Operation string `json:"operation"`

	// Source is the backing source that ultimately answered, empty when
	// no source produced data (denied, rate limited).
	Source string `json:"source,omitempty"`

	// Outcome is one of the Outcome* constants.
	Outcome string `json:"outcome"`

	// CostUnits is the source-weighted work proxy for this resolution.
	CostUnits int `json:"cost_units"`

	// FreshnessAgeMS is the age of the returned data in milliseconds.
	FreshnessAgeMS int64 `json:"freshness_age_ms"`

	// Truncated reports whether results were cut to the effective limit.
	Truncated bool `json:"truncated"`

	// ResultCount is the number of records returned.
	ResultCount int `json:"result_count"`

	// ObservedAt is when the resolution completed (UTC).
	ObservedAt time.Time `json:"observed_at"`
}

// ResolutionObserver receives resolution audit events.
//
// Observe is called synchronously on the request path after the response is
// assembled; implementations must return quickly and buffer any slow work.
// A returned error is logged and counted by the caller, never surfaced to
// the querying client.
type ResolutionObserver interface {
	Observe(ctx context.Context, event AuditEvent) error
}

// NopObserver discards all events.
type NopObserver struct{}

// Observe discards the event.
func (n *NopObserver) Observe(_ context.Context, _ AuditEvent) error {
	return nil
}

// MultiObserver fans one event out to several observers. Every observer is
// invoked even when an earlier one fails; errors are joined.
type MultiObserver []ResolutionObserver

// Observe delivers the event to each observer in order.
func (m MultiObserver) Observe(ctx context.Context, event AuditEvent) error {
	var errs []error
	for _, obs := range m {
		if obs == nil {
			continue
		}
		if err := obs.Observe(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var (
	_ ResolutionObserver = (*NopObserver)(nil)
	_ ResolutionObserver = (MultiObserver)(nil)
)
