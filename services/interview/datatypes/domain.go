// Copyright (C) 2025 PStryder (interview@legivellum.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes provides the wire and domain types for the InterView
// service.
//
// This file contains the domain records: sources, freshness policies, task
// states, receipts, statuses, and the bounded diagnostic shapes. Request
// and response envelopes live in operations.go, request controls and
// response metadata in controls.go.
package datatypes

import "time"

// Source identifies a backing data source. The declaration order is the
// fallback precedence for status/search/get operations; storage_metadata is
// a parallel tier consulted only by the artifact inventory, and
// global_ledger is never part of any fallback chain.
type Source string

const (
	SourceProjectionCache Source = "projection_cache"
	SourceLedgerMirror    Source = "ledger_mirror"
	SourceComponentPoll   Source = "component_poll"
	SourceStorageMetadata Source = "storage_metadata"
	SourceGlobalLedger    Source = "global_ledger"
)

// Freshness is the caller's staleness/cost preference for a query.
type Freshness string

const (
	// FreshnessCacheOK serves from the projection cache when possible and
	// falls back to the ledger mirror on a miss. The default.
	FreshnessCacheOK Freshness = "cache_ok"

	// FreshnessPreferFresh queries the ledger mirror first and falls back
	// to the cache when the mirror is unavailable.
	FreshnessPreferFresh Freshness = "prefer_fresh"

	// FreshnessForceFresh queries the ledger mirror only; mirror
	// unavailability propagates to the caller.
	FreshnessForceFresh Freshness = "force_fresh"
)

// Normalize returns the freshness with the empty value replaced by the
// cache_ok default.
func (f Freshness) Normalize() Freshness {
	if f == "" {
		return FreshnessCacheOK
	}
	return f
}

// Valid reports whether f is one of the known policies (after Normalize).
func (f Freshness) Valid() bool {
	switch f {
	case FreshnessCacheOK, FreshnessPreferFresh, FreshnessForceFresh:
		return true
	}
	return false
}

// TaskState is the derived state of a task lineage, ordered by derivation
// priority. The derivation algorithm only produces unknown, in_progress,
// escalated, resolved, and shipped; accepted and blocked are reserved.
type TaskState string

const (
	TaskStateUnknown    TaskState = "unknown"
	TaskStateAccepted   TaskState = "accepted"
	TaskStateInProgress TaskState = "in_progress"
	TaskStateEscalated  TaskState = "escalated"
	TaskStateBlocked    TaskState = "blocked"
	TaskStateResolved   TaskState = "resolved"
	TaskStateShipped    TaskState = "shipped"
)

// ReceiptHeader is the compact, immutable record of one receipt. Many
// headers belong to one lineage (tenant_id + root_task_id).
type ReceiptHeader struct {
	ReceiptID   string     `json:"receipt_id" validate:"required"`
	Phase       string     `json:"phase" validate:"required"`
	TaskID      string     `json:"task_id" validate:"required"`
	RootTaskID  string     `json:"root_task_id,omitempty"`
	TenantID    string     `json:"tenant_id" validate:"required"`
	RecipientAI string     `json:"recipient_ai,omitempty"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	StoredAt    *time.Time `json:"stored_at,omitempty"`
}

// EffectiveTime returns the best-known timestamp of the receipt: created_at
// when present, else stored_at. ok is false when both are absent; such
// receipts sort as the earliest possible value.
func (h *ReceiptHeader) EffectiveTime() (time.Time, bool) {
	if h.CreatedAt != nil {
		return *h.CreatedAt, true
	}
	if h.StoredAt != nil {
		return *h.StoredAt, true
	}
	return time.Time{}, false
}

// FullReceipt is the complete receipt record, one-to-one with a receipt id.
// The redacted flag is carried verbatim from the backing source; InterView
// applies no redaction policy of its own.
type FullReceipt struct {
	ReceiptID         string     `json:"receipt_id" validate:"required"`
	TenantID          string     `json:"tenant_id" validate:"required"`
	TaskID            string     `json:"task_id" validate:"required"`
	RootTaskID        string     `json:"root_task_id,omitempty"`
	ParentTaskID      string     `json:"parent_task_id,omitempty"`
	CausedByReceiptID string     `json:"caused_by_receipt_id,omitempty"`
	Phase             string     `json:"phase" validate:"required"`
	Status            string     `json:"status,omitempty"`
	FromPrincipal     string     `json:"from_principal,omitempty"`
	ForPrincipal      string     `json:"for_principal,omitempty"`
	SourceSystem      string     `json:"source_system,omitempty"`
	RecipientAI       string     `json:"recipient_ai,omitempty"`
	TaskType          string     `json:"task_type,omitempty"`
	TaskSummary       string     `json:"task_summary,omitempty"`
	OutcomeKind       string     `json:"outcome_kind,omitempty"`
	OutcomeText       string     `json:"outcome_text,omitempty"`
	ArtifactPointer   string     `json:"artifact_pointer,omitempty"`
	EscalationClass   string     `json:"escalation_class,omitempty"`
	EscalationReason  string     `json:"escalation_reason,omitempty"`
	EscalationTo      string     `json:"escalation_to,omitempty"`
	CreatedAt         *time.Time `json:"created_at,omitempty"`
	StoredAt          *time.Time `json:"stored_at,omitempty"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
	Redacted          bool       `json:"redacted"`
}

// Header projects the compact header out of a full receipt.
func (r *FullReceipt) Header() ReceiptHeader {
	return ReceiptHeader{
		ReceiptID:   r.ReceiptID,
		Phase:       r.Phase,
		TaskID:      r.TaskID,
		RootTaskID:  r.RootTaskID,
		TenantID:    r.TenantID,
		RecipientAI: r.RecipientAI,
		CreatedAt:   r.CreatedAt,
		StoredAt:    r.StoredAt,
	}
}

// StatusSummary is the derived status of a task lineage. It is recomputed
// on demand and cached opportunistically, never stored authoritatively.
type StatusSummary struct {
	TenantID                string     `json:"tenant_id"`
	RootTaskID              string     `json:"root_task_id"`
	State                   TaskState  `json:"state"`
	LatestReceiptID         string     `json:"latest_receipt_id,omitempty"`
	LastUpdatedAt           *time.Time `json:"last_updated_at,omitempty"`
	OpenObligationsCount    *int       `json:"open_obligations_count,omitempty"`
	ShipmentStatus          string     `json:"shipment_status,omitempty"`
	ShipmentManifestPointer string     `json:"shipment_manifest_pointer,omitempty"`
	ArtifactPointers        []string   `json:"artifact_pointers"`
}

// ArtifactPointer is staged-artifact metadata. It never carries payload
// bytes; location and content_hash are opaque references the facade never
// dereferences.
type ArtifactPointer struct {
	ArtifactID   string     `json:"artifact_id"`
	RootTaskID   string     `json:"root_task_id"`
	MimeType     string     `json:"mime_type"`
	SizeBytes    int64      `json:"size_bytes"`
	ArtifactRole string     `json:"artifact_role"`
	StagedAt     *time.Time `json:"staged_at,omitempty"`
	Location     string     `json:"location,omitempty"`
	ContentHash  string     `json:"content_hash,omitempty"`
}

// StagedCountsByRole counts staged artifacts per role.
type StagedCountsByRole struct {
	Plan         int `json:"plan"`
	FinalOutput  int `json:"final_output"`
	Supporting   int `json:"supporting"`
	Intermediate int `json:"intermediate"`
}

// QueueItemHeader is a bounded view of one queued task. Diagnostics never
// expose full task payloads.
type QueueItemHeader struct {
	TaskID    string     `json:"task_id"`
	TaskType  string     `json:"task_type"`
	Status    string     `json:"status"`
	Priority  int        `json:"priority"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	AgeMS     int64      `json:"age_ms"`
}

// MetricsSnapshot is the bounded counter set a component health poll may
// include in verbose mode.
type MetricsSnapshot struct {
	QueuedCount    int `json:"queued_count"`
	LeasedCount    int `json:"leased_count"`
	SucceededCount int `json:"succeeded_count"`
	FailedCount    int `json:"failed_count"`
}
