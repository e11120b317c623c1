// Copyright (C) 2025 PStryder (interview@legivellum.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package sources

import (
	"sort"
	"sync"
	"time"

	"github.com/PStryder/InterView/services/interview/datatypes"
)

// =============================================================================
// Projection Cache
// =============================================================================

// ProjectionCache is the process-local, read-optimized store of derived
// statuses, receipt header lists, and full receipts.
//
// # Description
//
// The cache is the preferred source for every read operation. Each entry
// carries its write timestamp; every read computes the true entry age and
// lazily evicts entries at or past the TTL. There is no background sweep.
// A write always overwrites any existing entry for the same key.
//
// Only the status and get-receipt resolution paths write here. Header lists
// are written as a side effect of a status derivation, which fetched them
// anyway; search never writes.
//
// # Thread Safety
//
// All methods are safe for concurrent use. Reads take the write lock
// because an expired read evicts. Racing evict/recompute on the same key is
// acceptable (recomputation is idempotent).
type ProjectionCache struct {
	ttl   time.Duration
	clock Clock

	mu       sync.Mutex
	statuses map[cacheKey]statusEntry
	headers  map[cacheKey]headerEntry
	receipts map[cacheKey]receiptEntry
}

// cacheKey scopes every entry to a tenant plus one identifier (lineage root
// or receipt id). Struct keys avoid delimiter collisions in identifiers.
type cacheKey struct {
	tenantID string
	id       string
}

type statusEntry struct {
	status   datatypes.StatusSummary
	cachedAt time.Time
}

type headerEntry struct {
	headers  []datatypes.ReceiptHeader
	cachedAt time.Time
}

type receiptEntry struct {
	receipt  datatypes.FullReceipt
	cachedAt time.Time
}

// NewProjectionCache creates a cache with the given TTL using the system
// clock.
func NewProjectionCache(ttl time.Duration) *ProjectionCache {
	return NewProjectionCacheWithClock(ttl, SystemClock())
}

// NewProjectionCacheWithClock creates a cache with an injected clock for
// deterministic TTL tests.
func NewProjectionCacheWithClock(ttl time.Duration, clock Clock) *ProjectionCache {
	return &ProjectionCache{
		ttl:      ttl,
		clock:    clock,
		statuses: make(map[cacheKey]statusEntry),
		headers:  make(map[cacheKey]headerEntry),
		receipts: make(map[cacheKey]receiptEntry),
	}
}

// ageMS returns the entry age in milliseconds and whether it is still
// within the TTL. Age exactly at the TTL counts as expired.
func (c *ProjectionCache) ageMS(cachedAt time.Time) (int64, bool) {
	age := c.clock.Now().Sub(cachedAt)
	return age.Milliseconds(), age < c.ttl
}

// GetStatus returns the cached summary for a lineage with its true age in
// milliseconds. An entry at or past the TTL is evicted and reported as a
// miss.
func (c *ProjectionCache) GetStatus(tenantID, rootTaskID string) (*datatypes.StatusSummary, int64, bool) {
	key := cacheKey{tenantID, rootTaskID}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.statuses[key]
	if !ok {
		return nil, 0, false
	}
	age, fresh := c.ageMS(entry.cachedAt)
	if !fresh {
		delete(c.statuses, key)
		return nil, 0, false
	}
	status := entry.status
	return &status, age, true
}

// CacheStatus stores a derived summary, overwriting any previous entry for
// the same lineage.
func (c *ProjectionCache) CacheStatus(status datatypes.StatusSummary) {
	key := cacheKey{status.TenantID, status.RootTaskID}
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.statuses[key] = statusEntry{status: status, cachedAt: now}
}

// SearchHeaders returns cached headers for a lineage after applying the
// phase/recipient filters, the since cutoff, newest-first ordering, and the
// limit. The reported age is the true age of the cached list; an empty
// result (missing, expired, or filtered to nothing) returns age 0 and an
// empty slice, and the caller decides whether to fall through to a fresher
// source.
func (c *ProjectionCache) SearchHeaders(tenantID, rootTaskID, phase, recipientAI string, since time.Time, limit int) ([]datatypes.ReceiptHeader, int64) {
	key := cacheKey{tenantID, rootTaskID}

	c.mu.Lock()
	entry, ok := c.headers[key]
	if ok {
		var fresh bool
		if _, fresh = c.ageMS(entry.cachedAt); !fresh {
			delete(c.headers, key)
			ok = false
		}
	}
	// Copy out under the lock; filtering happens outside it.
	var snapshot []datatypes.ReceiptHeader
	var cachedAt time.Time
	if ok {
		snapshot = make([]datatypes.ReceiptHeader, len(entry.headers))
		copy(snapshot, entry.headers)
		cachedAt = entry.cachedAt
	}
	c.mu.Unlock()

	if len(snapshot) == 0 {
		return nil, 0
	}

	matched := FilterHeaders(snapshot, phase, recipientAI, since, limit)
	if len(matched) == 0 {
		return nil, 0
	}
	age := c.clock.Now().Sub(cachedAt).Milliseconds()
	return matched, age
}

// CacheHeaders stores the header list for a lineage, overwriting any
// previous entry.
func (c *ProjectionCache) CacheHeaders(tenantID, rootTaskID string, headers []datatypes.ReceiptHeader) {
	key := cacheKey{tenantID, rootTaskID}
	now := c.clock.Now()
	stored := make([]datatypes.ReceiptHeader, len(headers))
	copy(stored, headers)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.headers[key] = headerEntry{headers: stored, cachedAt: now}
}

// GetReceipt returns a cached full receipt with its true age. An entry at
// or past the TTL is evicted and reported as a miss.
func (c *ProjectionCache) GetReceipt(tenantID, receiptID string) (*datatypes.FullReceipt, int64, bool) {
	key := cacheKey{tenantID, receiptID}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.receipts[key]
	if !ok {
		return nil, 0, false
	}
	age, fresh := c.ageMS(entry.cachedAt)
	if !fresh {
		delete(c.receipts, key)
		return nil, 0, false
	}
	receipt := entry.receipt
	return &receipt, age, true
}

// CacheReceipt stores a full receipt keyed by tenant and receipt id.
func (c *ProjectionCache) CacheReceipt(receipt datatypes.FullReceipt) {
	key := cacheKey{receipt.TenantID, receipt.ReceiptID}
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.receipts[key] = receiptEntry{receipt: receipt, cachedAt: now}
}

// =============================================================================
// Header Filtering
// =============================================================================

// FilterHeaders applies the search filters to a header list: exact phase
// and recipient match when given, the since cutoff (headers without a
// created_at are excluded by the cutoff), newest-first ordering by
// created_at treating absent values as the earliest possible time, then
// truncation to limit. The input slice is not modified.
func FilterHeaders(headers []datatypes.ReceiptHeader, phase, recipientAI string, since time.Time, limit int) []datatypes.ReceiptHeader {
	matched := make([]datatypes.ReceiptHeader, 0, len(headers))
	for _, h := range headers {
		if phase != "" && h.Phase != phase {
			continue
		}
		if recipientAI != "" && h.RecipientAI != recipientAI {
			continue
		}
		if !since.IsZero() {
			if h.CreatedAt == nil || h.CreatedAt.Before(since) {
				continue
			}
		}
		matched = append(matched, h)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		var ti, tj time.Time
		if matched[i].CreatedAt != nil {
			ti = *matched[i].CreatedAt
		}
		if matched[j].CreatedAt != nil {
			tj = *matched[j].CreatedAt
		}
		return ti.After(tj)
	})

	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched
}
