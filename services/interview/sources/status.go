// Copyright (C) 2025 PStryder (interview@legivellum.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package sources

import (
	"context"
	"strings"
	"time"

	"github.com/PStryder/InterView/services/interview/datatypes"
)

// ReceiptFetcher retrieves one full receipt during shipment detection.
// Implementations return (nil, nil) for an absent receipt; an error means
// the backing source could not answer.
type ReceiptFetcher func(ctx context.Context, tenantID, receiptID string) (*datatypes.FullReceipt, error)

const (
	phaseComplete = "complete"
	phaseEscalate = "escalate"
	phaseAccepted = "accepted"

	// shipmentToken marks a shipment receipt when it appears in task_type
	// or outcome_text, case-insensitive.
	shipmentToken = "shipment"

	// maxShipmentChecks bounds full-receipt fetches per derivation.
	maxShipmentChecks = 3
)

// DeriveStatus folds the receipt headers of one lineage into a summary.
//
// # Description
//
// The state derives from the phases present, highest priority first:
// a shipment marker yields shipped, else any complete header yields
// resolved, any escalate header escalated, any accepted header
// in_progress, and an empty lineage unknown.
//
// Shipment detection fetches the full receipt for up to 3 complete-phase
// headers in input order and looks for the shipment token in task_type or
// outcome_text. The first fetch failure aborts the check entirely; a
// partial positive is never returned. An absent receipt is skipped, not a
// failure. The marker's artifact_pointer becomes the shipment manifest
// pointer.
//
// The latest receipt is the header with the maximum effective time
// (created_at, else stored_at; fully absent sorts earliest), ties broken by
// stable input order. It supplies latest_receipt_id and last_updated_at.
func DeriveStatus(ctx context.Context, tenantID, rootTaskID string, headers []datatypes.ReceiptHeader, fetch ReceiptFetcher) datatypes.StatusSummary {
	summary := datatypes.StatusSummary{
		TenantID:         tenantID,
		RootTaskID:       rootTaskID,
		State:            datatypes.TaskStateUnknown,
		ArtifactPointers: []string{},
	}
	if len(headers) == 0 {
		return summary
	}

	latestIdx := -1
	var latestAt time.Time
	latestKnown := false
	hasComplete, hasEscalate, hasAccepted := false, false, false

	for i := range headers {
		switch headers[i].Phase {
		case phaseComplete:
			hasComplete = true
		case phaseEscalate:
			hasEscalate = true
		case phaseAccepted:
			hasAccepted = true
		}

		t, known := headers[i].EffectiveTime()
		if latestIdx == -1 {
			latestIdx, latestAt, latestKnown = i, t, known
			continue
		}
		// Strictly-later replaces; equal keeps the earlier index.
		if t.After(latestAt) {
			latestIdx, latestAt, latestKnown = i, t, known
		}
	}

	summary.LatestReceiptID = headers[latestIdx].ReceiptID
	if latestKnown {
		at := latestAt
		summary.LastUpdatedAt = &at
	}

	if hasComplete && fetch != nil {
		if marker := findShipmentMarker(ctx, tenantID, headers, fetch); marker != nil {
			summary.State = datatypes.TaskStateShipped
			summary.ShipmentStatus = "shipped"
			summary.ShipmentManifestPointer = marker.ArtifactPointer
			if marker.ArtifactPointer != "" {
				summary.ArtifactPointers = append(summary.ArtifactPointers, marker.ArtifactPointer)
			}
			return summary
		}
	}

	switch {
	case hasComplete:
		summary.State = datatypes.TaskStateResolved
	case hasEscalate:
		summary.State = datatypes.TaskStateEscalated
	case hasAccepted:
		summary.State = datatypes.TaskStateInProgress
	}
	return summary
}

// findShipmentMarker fetches up to maxShipmentChecks complete-phase
// receipts in input order and returns the first shipment marker. Any fetch
// error aborts the whole check.
func findShipmentMarker(ctx context.Context, tenantID string, headers []datatypes.ReceiptHeader, fetch ReceiptFetcher) *datatypes.FullReceipt {
	checked := 0
	for i := range headers {
		if headers[i].Phase != phaseComplete {
			continue
		}
		if checked >= maxShipmentChecks {
			break
		}
		checked++

		full, err := fetch(ctx, tenantID, headers[i].ReceiptID)
		if err != nil {
			return nil
		}
		if full == nil {
			continue
		}
		if isShipmentMarker(full) {
			return full
		}
	}
	return nil
}

// isShipmentMarker reports whether the receipt carries the shipment token
// in its task_type or outcome_text.
func isShipmentMarker(r *datatypes.FullReceipt) bool {
	if strings.Contains(strings.ToLower(r.TaskType), shipmentToken) {
		return true
	}
	return strings.Contains(strings.ToLower(r.OutcomeText), shipmentToken)
}
