// Copyright (C) 2025 PStryder (interview@legivellum.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package sources

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/PStryder/InterView/services/interview/datatypes"
)

// ComponentGate is the live diagnostics surface the poller reads. The
// implementation owns its endpoint configuration and timeout and reports
// transport or decode failures as SourceUnavailableError.
type ComponentGate interface {
	Health(ctx context.Context, tenantID string, verbose bool) (*datatypes.HealthSnapshot, error)
	QueueDiagnostics(ctx context.Context, q datatypes.QueueQuery) (*datatypes.QueueSnapshot, error)
}

const (
	// queueLimitCeiling caps queue item examples regardless of the
	// caller's requested limit.
	queueLimitCeiling = 50

	// defaultQueueLimit applies when the caller's limit is unset.
	defaultQueueLimit = 20
)

// ClampQueueLimit returns the effective queue diagnostics limit: zero
// selects the default of 20, and every value is capped at 50.
func ClampQueueLimit(requested int) int {
	if requested <= 0 {
		return defaultQueueLimit
	}
	if requested > queueLimitCeiling {
		return queueLimitCeiling
	}
	return requested
}

// =============================================================================
// Component Poller
// =============================================================================

// ComponentPoller is the rate-limited, short-TTL-cached reader of live
// component diagnostics.
//
// # Description
//
// Two independent guards precede every network call, in order:
//
//  1. Result cache, keyed by operation, tenant, and request shape. A fresh
//     entry is returned immediately; cache hits never consume rate budget.
//  2. Sliding-window rate limiter, keyed per component. A rejected call
//     returns RateLimitError, distinct from unavailability. The slot is
//     consumed before the network call is issued.
//
// Successful responses are cache-written before being returned, with age 0.
// The poller only ever reads the component; it is the single source that
// talks to a live, mutable system.
//
// # Thread Safety
//
// Safe for concurrent use. Cache maps and limiter state are mutex-guarded;
// no lock spans a network call.
type ComponentPoller struct {
	gate      ComponentGate
	component string
	limiter   *slidingWindow
	cacheTTL  time.Duration
	clock     Clock

	mu          sync.Mutex
	healthCache map[string]healthPollEntry
	queueCache  map[string]queuePollEntry
}

type healthPollEntry struct {
	snapshot datatypes.HealthSnapshot
	cachedAt time.Time
}

type queuePollEntry struct {
	snapshot datatypes.QueueSnapshot
	cachedAt time.Time
}

// NewComponentPoller creates a poller for one component using the system
// clock. The component name labels rate-limit errors and scopes the
// limiter; gate must be non-nil.
func NewComponentPoller(gate ComponentGate, component string, ratePerMinute int, cacheTTL time.Duration) *ComponentPoller {
	return NewComponentPollerWithClock(gate, component, ratePerMinute, cacheTTL, SystemClock())
}

// NewComponentPollerWithClock creates a poller with an injected clock for
// deterministic cache and rate-window tests.
func NewComponentPollerWithClock(gate ComponentGate, component string, ratePerMinute int, cacheTTL time.Duration, clock Clock) *ComponentPoller {
	return &ComponentPoller{
		gate:        gate,
		component:   component,
		limiter:     newSlidingWindow(ratePerMinute, clock),
		cacheTTL:    cacheTTL,
		clock:       clock,
		healthCache: make(map[string]healthPollEntry),
		queueCache:  make(map[string]queuePollEntry),
	}
}

// PollHealth returns a live or cached health snapshot with its age in
// milliseconds. A cache hit bypasses the rate limiter entirely.
func (p *ComponentPoller) PollHealth(ctx context.Context, tenantID string, verbose bool) (*datatypes.HealthSnapshot, int64, error) {
	key := fmt.Sprintf("health:%s:%t", tenantID, verbose)

	if snap, age, ok := p.cachedHealth(key); ok {
		return snap, age, nil
	}

	if !p.limiter.allow(p.component) {
		return nil, 0, &RateLimitError{Component: p.component, PerMinute: p.limiter.perMinute}
	}

	snap, err := p.gate.Health(ctx, tenantID, verbose)
	if err != nil {
		return nil, 0, err
	}

	p.mu.Lock()
	p.healthCache[key] = healthPollEntry{snapshot: *snap, cachedAt: p.clock.Now()}
	p.mu.Unlock()

	return snap, 0, nil
}

// PollQueue returns live or cached queue diagnostics with their age in
// milliseconds. The limit inside q is clamped before the cache key is
// built, so equivalent requests share one entry.
func (p *ComponentPoller) PollQueue(ctx context.Context, q datatypes.QueueQuery) (*datatypes.QueueSnapshot, int64, error) {
	q.Limit = ClampQueueLimit(q.Limit)
	key := fmt.Sprintf("queue:%s:%s:%d:%t", q.TenantID, q.QueueID, q.Limit, q.IncludeExamples)

	if snap, age, ok := p.cachedQueue(key); ok {
		return snap, age, nil
	}

	if !p.limiter.allow(p.component) {
		return nil, 0, &RateLimitError{Component: p.component, PerMinute: p.limiter.perMinute}
	}

	snap, err := p.gate.QueueDiagnostics(ctx, q)
	if err != nil {
		return nil, 0, err
	}

	p.mu.Lock()
	p.queueCache[key] = queuePollEntry{snapshot: *snap, cachedAt: p.clock.Now()}
	p.mu.Unlock()

	return snap, 0, nil
}

func (p *ComponentPoller) cachedHealth(key string) (*datatypes.HealthSnapshot, int64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry, ok := p.healthCache[key]
	if !ok {
		return nil, 0, false
	}
	age := p.clock.Now().Sub(entry.cachedAt)
	if age >= p.cacheTTL {
		delete(p.healthCache, key)
		return nil, 0, false
	}
	snap := entry.snapshot
	return &snap, age.Milliseconds(), true
}

func (p *ComponentPoller) cachedQueue(key string) (*datatypes.QueueSnapshot, int64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry, ok := p.queueCache[key]
	if !ok {
		return nil, 0, false
	}
	age := p.clock.Now().Sub(entry.cachedAt)
	if age >= p.cacheTTL {
		delete(p.queueCache, key)
		return nil, 0, false
	}
	snap := entry.snapshot
	return &snap, age.Milliseconds(), true
}
