// Copyright (C) 2025 PStryder (interview@legivellum.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"github.com/go-playground/validator/v10"

	"github.com/PStryder/InterView/pkg/validation"
)

// Error codes returned in ErrorResponse bodies.
const (
	ErrCodeValidation           = "VALIDATION_ERROR"
	ErrCodeAuthFailed           = "AUTH_FAILED"
	ErrCodeGlobalLedgerDisabled = "GLOBAL_LEDGER_DISABLED"
	ErrCodeRateLimited          = "RATE_LIMITED"
	ErrCodeSourceUnavailable    = "SOURCE_UNAVAILABLE"
	ErrCodeInternal             = "INTERNAL"
)

// interviewValidate is the validator instance for request types.
// The mesh_id tag ties struct validation to the identifier rules in
// pkg/validation, keeping hostile values out of downstream query strings.
var interviewValidate *validator.Validate

func init() {
	interviewValidate = validator.New()
	_ = interviewValidate.RegisterValidation("mesh_id", validateMeshID)
}

func validateMeshID(fl validator.FieldLevel) bool {
	return validation.ValidateIdentifier("id", fl.Field().String()) == nil
}

// HealthResponse is the liveness payload for GET /health.
type HealthResponse struct {
	Status     string `json:"status"`
	Service    string `json:"service"`
	Version    string `json:"version"`
	InstanceID string `json:"instance_id"`
}

// ErrorResponse is the uniform error body for all endpoints.
type ErrorResponse struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
	Detail    string `json:"detail,omitempty"`
}

// StatusReceiptsRequest asks for the derived status of a task lineage.
// Either TaskID or RootTaskID must be given; RootTaskID wins when both are.
type StatusReceiptsRequest struct {
	TenantID   string `json:"tenant_id" validate:"required,mesh_id"`
	TaskID     string `json:"task_id" validate:"omitempty,mesh_id"`
	RootTaskID string `json:"root_task_id" validate:"omitempty,mesh_id"`
}

// Validate checks field shapes. Lineage presence is checked by the handler
// so the error can carry the exact guidance message.
func (r *StatusReceiptsRequest) Validate() error {
	return interviewValidate.Struct(r)
}

// Lineage returns the effective root task id: root_task_id when given,
// else task_id. ok is false when both are absent.
func (r *StatusReceiptsRequest) Lineage() (string, bool) {
	if r.RootTaskID != "" {
		return r.RootTaskID, true
	}
	if r.TaskID != "" {
		return r.TaskID, true
	}
	return "", false
}

// StatusReceiptsResponse carries the derived status and its attribution.
type StatusReceiptsResponse struct {
	Status   StatusSummary    `json:"status"`
	Metadata ResponseMetadata `json:"metadata"`
}

// SearchReceiptsRequest searches receipt headers within one lineage.
type SearchReceiptsRequest struct {
	TenantID    string          `json:"tenant_id" validate:"required,mesh_id"`
	RootTaskID  string          `json:"root_task_id" validate:"required,mesh_id"`
	Phase       string          `json:"phase" validate:"omitempty,max=64"`
	RecipientAI string          `json:"recipient_ai" validate:"omitempty,max=128"`
	Controls    RequestControls `json:"controls"`
}

// Validate checks field shapes and the freshness policy.
func (r *SearchReceiptsRequest) Validate() error {
	return interviewValidate.Struct(r)
}

// EnsureDefaults normalizes the nested controls.
func (r *SearchReceiptsRequest) EnsureDefaults() {
	r.Controls.EnsureDefaults()
}

// SearchReceiptsResponse lists matching headers, newest first.
type SearchReceiptsResponse struct {
	Receipts []ReceiptHeader  `json:"receipts"`
	Metadata ResponseMetadata `json:"metadata"`
}

// GetReceiptRequest fetches one receipt by id.
type GetReceiptRequest struct {
	TenantID  string `json:"tenant_id" validate:"required,mesh_id"`
	ReceiptID string `json:"receipt_id" validate:"required,mesh_id"`
}

// Validate checks field shapes.
func (r *GetReceiptRequest) Validate() error {
	return interviewValidate.Struct(r)
}

// GetReceiptResponse carries the receipt when found. Absence is a negative
// result (found=false), not an error.
type GetReceiptResponse struct {
	Receipt  *FullReceipt     `json:"receipt,omitempty"`
	Found    bool             `json:"found"`
	Metadata ResponseMetadata `json:"metadata"`
}

// HealthAsyncRequest polls AsyncGate for a live health snapshot.
type HealthAsyncRequest struct {
	TenantID string `json:"tenant_id" validate:"required,mesh_id"`
	Verbose  bool   `json:"verbose"`
}

// Validate checks field shapes.
func (r *HealthAsyncRequest) Validate() error {
	return interviewValidate.Struct(r)
}

// HealthAsyncResponse reports component reachability. When the component is
// unreachable only ComponentID, Reachable, and Metadata are populated.
type HealthAsyncResponse struct {
	ComponentID       string           `json:"component_id"`
	Reachable         bool             `json:"reachable"`
	Version           string           `json:"version,omitempty"`
	UptimeSeconds     *int64           `json:"uptime_seconds,omitempty"`
	ErrorBudgetStatus string           `json:"error_budget_status,omitempty"`
	MetricsSnapshot   *MetricsSnapshot `json:"metrics_snapshot,omitempty"`
	Metadata          ResponseMetadata `json:"metadata"`
}

// QueueAsyncRequest polls AsyncGate queue diagnostics. Limit is clamped to
// 50 server-side regardless of the requested value; zero selects 20.
type QueueAsyncRequest struct {
	TenantID        string `json:"tenant_id" validate:"required,mesh_id"`
	QueueID         string `json:"queue_id" validate:"omitempty,mesh_id"`
	Limit           int    `json:"limit" validate:"gte=0"`
	IncludeExamples bool   `json:"include_examples"`
}

// Validate checks field shapes.
func (r *QueueAsyncRequest) Validate() error {
	return interviewValidate.Struct(r)
}

// QueueAsyncResponse reports queue depth and, when examples were requested,
// bounded item headers.
type QueueAsyncResponse struct {
	QueueDepth        int               `json:"queue_depth"`
	OldestItemAgeMS   int64             `json:"oldest_item_age_ms"`
	ActiveLeasesCount int               `json:"active_leases_count"`
	Items             []QueueItemHeader `json:"items"`
	Metadata          ResponseMetadata  `json:"metadata"`
}

// InventoryArtifactsRequest lists artifact pointers for a lineage or a
// deliverable. At least one of RootTaskID/DeliverableID must be given; the
// handler enforces this so the error carries the exact guidance message.
type InventoryArtifactsRequest struct {
	TenantID      string          `json:"tenant_id" validate:"required,mesh_id"`
	RootTaskID    string          `json:"root_task_id" validate:"omitempty,mesh_id"`
	DeliverableID string          `json:"deliverable_id" validate:"omitempty,mesh_id"`
	Controls      RequestControls `json:"controls"`
}

// Validate checks field shapes.
func (r *InventoryArtifactsRequest) Validate() error {
	return interviewValidate.Struct(r)
}

// EnsureDefaults normalizes the nested controls.
func (r *InventoryArtifactsRequest) EnsureDefaults() {
	r.Controls.EnsureDefaults()
}

// InventoryArtifactsResponse lists pointer metadata, never blob bodies.
type InventoryArtifactsResponse struct {
	ArtifactPointers        []ArtifactPointer   `json:"artifact_pointers"`
	ShipmentManifestPointer string              `json:"shipment_manifest_pointer,omitempty"`
	StagedCountsByRole      *StagedCountsByRole `json:"staged_counts_by_role,omitempty"`
	Metadata                ResponseMetadata    `json:"metadata"`
}

// GlobalLedgerRequest queries the authoritative ledger directly. Gated
// behind the allow_global_ledger opt-in.
type GlobalLedgerRequest struct {
	TenantID   string `json:"tenant_id" validate:"required,mesh_id"`
	RootTaskID string `json:"root_task_id" validate:"required,mesh_id"`
}

// Validate checks field shapes.
func (r *GlobalLedgerRequest) Validate() error {
	return interviewValidate.Struct(r)
}

// GlobalLedgerResponse lists headers straight from the global ledger.
type GlobalLedgerResponse struct {
	Receipts []ReceiptHeader  `json:"receipts"`
	Metadata ResponseMetadata `json:"metadata"`
}
