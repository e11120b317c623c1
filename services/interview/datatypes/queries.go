// Copyright (C) 2025 PStryder (interview@legivellum.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import "time"

// This file contains the downstream-facing shapes: query parameter sets the
// mesh clients send, and the decoded snapshot bodies they return. These are
// internal to the resolution path and never serialized to InterView callers
// directly.

// ReceiptQuery is the parameter set for a receipt header search against the
// ledger mirror or the global ledger.
type ReceiptQuery struct {
	TenantID    string
	RootTaskID  string
	Phase       string
	RecipientAI string
	Since       *time.Time
	Limit       int
}

// QueueQuery is the parameter set for an AsyncGate queue diagnostics poll.
type QueueQuery struct {
	TenantID        string
	QueueID         string
	Limit           int
	IncludeExamples bool
}

// ArtifactQuery is the parameter set for a storage metadata listing. At
// least one of RootTaskID/DeliverableID must be set; the caller validates.
type ArtifactQuery struct {
	TenantID      string
	RootTaskID    string
	DeliverableID string
	Limit         int
}

// HealthSnapshot is the decoded body of an AsyncGate health poll. Unknown
// wire fields are dropped; a body that does not decode into this shape is a
// source failure, not a partial result.
type HealthSnapshot struct {
	ComponentID       string           `json:"component_id"`
	Version           string           `json:"version"`
	UptimeSeconds     *int64           `json:"uptime_seconds"`
	ErrorBudgetStatus string           `json:"error_budget_status"`
	Metrics           *MetricsSnapshot `json:"metrics"`
}

// QueueSnapshot is the decoded body of an AsyncGate queue diagnostics poll.
type QueueSnapshot struct {
	QueueDepth        int               `json:"queue_depth"`
	OldestItemAgeMS   int64             `json:"oldest_item_age_ms"`
	ActiveLeasesCount int               `json:"active_leases_count"`
	Items             []QueueItemHeader `json:"items"`
}

// ArtifactInventory is the decoded result of a storage metadata listing:
// pointers and counts only, never blob bytes.
type ArtifactInventory struct {
	Pointers                []ArtifactPointer
	ShipmentManifestPointer string
	StagedCounts            *StagedCountsByRole
}
