// Copyright (C) 2025 PStryder (interview@legivellum.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package audit

import (
	"context"
	"testing"
	"time"

	"github.com/PStryder/InterView/pkg/extensions"
)

func newMemoryJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(Config{})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func testEvent(id string, at time.Time) extensions.AuditEvent {
	return extensions.AuditEvent{
		EventID:        id,
		TenantID:       "tenant-a",
		Operation:      "status.receipts",
		Source:         "projection_cache",
		Outcome:        extensions.OutcomeOK,
		CostUnits:      1,
		FreshnessAgeMS: 120,
		ResultCount:    1,
		ObservedAt:     at,
	}
}

func TestJournal_RecentReturnsNewestFirst(t *testing.T) {
	j := newMemoryJournal(t)
	ctx := context.Background()

	base := time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)
	for i, id := range []string{"ev-old", "ev-mid", "ev-new"} {
		ev := testEvent(id, base.Add(time.Duration(i)*time.Second))
		if err := j.Observe(ctx, ev); err != nil {
			t.Fatalf("Observe(%s) error = %v", id, err)
		}
	}

	events, err := j.Recent(ctx, "", 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("Recent() returned %d events, want 3", len(events))
	}
	want := []string{"ev-new", "ev-mid", "ev-old"}
	for i, id := range want {
		if events[i].EventID != id {
			t.Errorf("events[%d].EventID = %q, want %q", i, events[i].EventID, id)
		}
	}
}

func TestJournal_RecentRoundTripsFields(t *testing.T) {
	j := newMemoryJournal(t)
	ctx := context.Background()

	ev := extensions.AuditEvent{
		EventID:        "ev-1",
		TenantID:       "tenant-b",
		Operation:      "search.receipts",
		Source:         "ledger_mirror",
		Outcome:        extensions.OutcomeDegraded,
		CostUnits:      7,
		FreshnessAgeMS: 4500,
		Truncated:      true,
		ResultCount:    42,
		ObservedAt:     time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC),
	}
	if err := j.Observe(ctx, ev); err != nil {
		t.Fatalf("Observe() error = %v", err)
	}

	events, err := j.Recent(ctx, "", 1)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("Recent() returned %d events, want 1", len(events))
	}
	got := events[0]
	if got.Operation != ev.Operation || got.Source != ev.Source || got.Outcome != ev.Outcome {
		t.Errorf("got %q/%q/%q, want %q/%q/%q",
			got.Operation, got.Source, got.Outcome, ev.Operation, ev.Source, ev.Outcome)
	}
	if got.CostUnits != 7 || got.FreshnessAgeMS != 4500 || got.ResultCount != 42 || !got.Truncated {
		t.Errorf("numeric fields did not round trip: %+v", got)
	}
	if !got.ObservedAt.Equal(ev.ObservedAt) {
		t.Errorf("ObservedAt = %v, want %v", got.ObservedAt, ev.ObservedAt)
	}
}

func TestJournal_RecentHonorsLimit(t *testing.T) {
	j := newMemoryJournal(t)
	ctx := context.Background()

	base := time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		ev := testEvent("", base.Add(time.Duration(i)*time.Second))
		ev.ResultCount = i
		if err := j.Observe(ctx, ev); err != nil {
			t.Fatalf("Observe() error = %v", err)
		}
	}

	events, err := j.Recent(ctx, "", 2)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("Recent(2) returned %d events, want 2", len(events))
	}
	if events[0].ResultCount != 4 || events[1].ResultCount != 3 {
		t.Errorf("Recent(2) = counts %d, %d, want newest 4, 3",
			events[0].ResultCount, events[1].ResultCount)
	}
}

func TestClampRecentLimit(t *testing.T) {
	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{"zero uses default", 0, DefaultRecentLimit},
		{"negative uses default", -5, DefaultRecentLimit},
		{"in range passes through", 7, 7},
		{"at max passes through", MaxRecentLimit, MaxRecentLimit},
		{"above max is clamped", MaxRecentLimit + 1, MaxRecentLimit},
		{"far above max is clamped", 9999, MaxRecentLimit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := clampRecentLimit(tt.limit); got != tt.want {
				t.Errorf("clampRecentLimit(%d) = %d, want %d", tt.limit, got, tt.want)
			}
		})
	}
}

func TestJournal_ObserveFillsMissingIdentity(t *testing.T) {
	j := newMemoryJournal(t)
	ctx := context.Background()

	before := time.Now().UTC()
	ev := testEvent("", time.Time{})
	if err := j.Observe(ctx, ev); err != nil {
		t.Fatalf("Observe() error = %v", err)
	}

	events, err := j.Recent(ctx, "", 1)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("Recent() returned %d events, want 1", len(events))
	}
	if events[0].EventID == "" {
		t.Error("expected a generated event ID")
	}
	if events[0].ObservedAt.Before(before) {
		t.Errorf("ObservedAt = %v, want at or after %v", events[0].ObservedAt, before)
	}
}

func TestJournal_RecentFiltersByTenant(t *testing.T) {
	j := newMemoryJournal(t)
	ctx := context.Background()

	base := time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)
	for i, tenant := range []string{"tenant-a", "tenant-b", "tenant-a"} {
		ev := testEvent("", base.Add(time.Duration(i)*time.Second))
		ev.TenantID = tenant
		if err := j.Observe(ctx, ev); err != nil {
			t.Fatalf("Observe() error = %v", err)
		}
	}

	events, err := j.Recent(ctx, "tenant-a", 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("Recent(tenant-a) returned %d events, want 2", len(events))
	}
	for _, ev := range events {
		if ev.TenantID != "tenant-a" {
			t.Errorf("event %s has tenant %q, want tenant-a", ev.EventID, ev.TenantID)
		}
	}
}

func TestJournal_EmptyRecent(t *testing.T) {
	j := newMemoryJournal(t)

	events, err := j.Recent(context.Background(), "", 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(events) != 0 {
		t.Errorf("Recent() on empty journal returned %d events, want 0", len(events))
	}
}

func TestJournal_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	j, err := Open(Config{Dir: dir, GCInterval: -1})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	ev := testEvent("ev-durable", time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC))
	if err := j.Observe(ctx, ev); err != nil {
		t.Fatalf("Observe() error = %v", err)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := Open(Config{Dir: dir, GCInterval: -1})
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer func() { _ = reopened.Close() }()

	events, err := reopened.Recent(ctx, "", 10)
	if err != nil {
		t.Fatalf("Recent() after reopen error = %v", err)
	}
	if len(events) != 1 || events[0].EventID != "ev-durable" {
		t.Fatalf("Recent() after reopen = %+v, want the one durable event", events)
	}
}

func TestJournal_ObserveAfterCloseFails(t *testing.T) {
	j, err := Open(Config{})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	err = j.Observe(context.Background(), testEvent("ev-late", time.Now().UTC()))
	if err == nil {
		t.Fatal("expected an error writing to a closed journal")
	}
}
