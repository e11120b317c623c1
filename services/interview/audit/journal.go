// Copyright (C) 2025 PStryder (interview@legivellum.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package audit persists resolution audit events in an embedded Badger
// journal.
//
// # Description
//
// Every resolved query emits one AuditEvent; the journal stores each event
// under a reverse-timestamp key so a plain forward scan returns newest
// first. Entries expire via Badger TTL after the configured retention and
// a periodic value-log GC reclaims the space. With no directory configured
// the journal runs in memory, which keeps dev and test deployments free of
// disk state.
//
// Write failures are logged and counted; they never fail the query that
// produced the event.
//
// # Thread Safety
//
// Journal is safe for concurrent use.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/PStryder/InterView/pkg/extensions"
	"github.com/PStryder/InterView/pkg/logging"
	"github.com/PStryder/InterView/services/interview/observability"
)

const (
	// keyPrefix namespaces journal entries within the store.
	keyPrefix = "audit:"

	// DefaultRetention is how long entries live before TTL expiry.
	DefaultRetention = 72 * time.Hour

	// DefaultGCInterval is the value-log garbage collection cadence.
	DefaultGCInterval = 5 * time.Minute

	// DefaultGCDiscardRatio is the minimum garbage ratio before GC rewrites
	// a value log file.
	DefaultGCDiscardRatio = 0.5

	// DefaultRecentLimit is the scan size when the caller does not ask for
	// a specific one.
	DefaultRecentLimit = 50

	// MaxRecentLimit bounds a single recent-events scan.
	MaxRecentLimit = 200
)

// Config holds journal configuration.
type Config struct {
	// Dir is the Badger directory. Empty runs the journal in memory.
	Dir string

	// Retention is the entry TTL. Zero means DefaultRetention.
	Retention time.Duration

	// GCInterval is the value-log GC cadence. Zero means DefaultGCInterval;
	// negative disables GC. In-memory journals never run GC.
	GCInterval time.Duration

	// GCDiscardRatio is the minimum garbage ratio before GC. Zero means
	// DefaultGCDiscardRatio.
	GCDiscardRatio float64

	// Logger receives journal lifecycle and failure logs.
	Logger *logging.Logger

	// Metrics counts write failures when set.
	Metrics *observability.ResolutionMetrics
}

// Journal is the Badger-backed audit event store. It implements
// extensions.ResolutionObserver so the source manager can write to it
// directly.
type Journal struct {
	db        *badger.DB
	retention time.Duration
	inMemory  bool
	logger    *logging.Logger
	metrics   *observability.ResolutionMetrics
	stopGC    chan struct{}
	doneGC    chan struct{}
}

// Open opens the journal and starts the GC loop for on-disk stores.
func Open(cfg Config) (*Journal, error) {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Retention <= 0 {
		cfg.Retention = DefaultRetention
	}
	if cfg.GCInterval == 0 {
		cfg.GCInterval = DefaultGCInterval
	}
	if cfg.GCDiscardRatio <= 0 {
		cfg.GCDiscardRatio = DefaultGCDiscardRatio
	}

	inMemory := cfg.Dir == ""
	var opts badger.Options
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
			return nil, fmt.Errorf("create audit directory %s: %w", cfg.Dir, err)
		}
		opts = badger.DefaultOptions(cfg.Dir).WithSyncWrites(true)
	}
	opts = opts.WithNumVersionsToKeep(1).WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open audit journal: %w", err)
	}

	j := &Journal{
		db:        db,
		retention: cfg.Retention,
		inMemory:  inMemory,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
	}

	if cfg.GCInterval > 0 && !inMemory {
		j.stopGC = make(chan struct{})
		j.doneGC = make(chan struct{})
		go j.runGC(cfg.GCInterval, cfg.GCDiscardRatio)
	}

	j.logger.Info("Audit journal opened",
		"dir", cfg.Dir,
		"in_memory", inMemory,
		"retention", cfg.Retention.String(),
	)
	return j, nil
}

// eventKey builds "audit:{reverse_ts}:{event_id}". The reverse timestamp
// makes forward key order newest-first.
func eventKey(ev extensions.AuditEvent) []byte {
	reverse := uint64(math.MaxInt64 - ev.ObservedAt.UnixNano())
	return []byte(fmt.Sprintf("%s%020d:%s", keyPrefix, reverse, ev.EventID))
}

// Observe persists one audit event with the configured TTL.
func (j *Journal) Observe(ctx context.Context, event extensions.AuditEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if event.EventID == "" {
		event.EventID = uuid.New().String()
	}
	if event.ObservedAt.IsZero() {
		event.ObservedAt = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return j.writeFailed(fmt.Errorf("encode audit event: %w", err))
	}

	err = j.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(eventKey(event), data).WithTTL(j.retention)
		return txn.SetEntry(entry)
	})
	if err != nil {
		return j.writeFailed(fmt.Errorf("write audit event: %w", err))
	}
	return nil
}

// writeFailed logs and counts one failed write.
func (j *Journal) writeFailed(err error) error {
	j.logger.Error("Audit journal write failed", "error", err)
	if j.metrics != nil {
		j.metrics.RecordAuditWriteFailure()
	}
	return err
}

// clampRecentLimit bounds a recent-events scan size.
func clampRecentLimit(limit int) int {
	if limit <= 0 {
		return DefaultRecentLimit
	}
	if limit > MaxRecentLimit {
		return MaxRecentLimit
	}
	return limit
}

// Recent returns up to limit events, newest first. An empty tenantID
// returns events for every tenant; otherwise non-matching entries are
// skipped while scanning, so the scan cost is bounded by retention, not
// by limit. Undecodable entries are skipped, never fatal.
func (j *Journal) Recent(ctx context.Context, tenantID string, limit int) ([]extensions.AuditEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	limit = clampRecentLimit(limit)

	events := make([]extensions.AuditEvent, 0, limit)
	err := j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(keyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix) && len(events) < limit; it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var ev extensions.AuditEvent
				if err := json.Unmarshal(val, &ev); err != nil {
					j.logger.Warn("Skipping undecodable audit entry", "error", err)
					return nil
				}
				if tenantID != "" && ev.TenantID != tenantID {
					return nil
				}
				events = append(events, ev)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan audit journal: %w", err)
	}
	return events, nil
}

// runGC periodically reclaims value-log space.
func (j *Journal) runGC(interval time.Duration, ratio float64) {
	defer close(j.doneGC)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-j.stopGC:
			return
		case <-ticker.C:
			err := j.db.RunValueLogGC(ratio)
			if err == nil {
				j.logger.Debug("Audit journal value log GC completed")
			} else if !errors.Is(err, badger.ErrNoRewrite) {
				j.logger.Warn("Audit journal value log GC error", "error", err)
			}
		}
	}
}

// Close stops GC and closes the store.
func (j *Journal) Close() error {
	if j.stopGC != nil {
		close(j.stopGC)
		<-j.doneGC
	}
	return j.db.Close()
}

var _ extensions.ResolutionObserver = (*Journal)(nil)
