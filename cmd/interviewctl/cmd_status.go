// Copyright (C) 2025 PStryder (interview@legivellum.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/PStryder/InterView/pkg/ux"
	"github.com/PStryder/InterView/services/interview/datatypes"
)

func runStatus(cmd *cobra.Command, args []string) {
	client := newAPIClient()

	req := datatypes.StatusReceiptsRequest{TenantID: mustID("tenant_id", tenantID)}
	if statusRoot {
		req.RootTaskID = mustID("root_task_id", args[0])
	} else {
		req.TaskID = mustID("task_id", args[0])
	}

	var resp datatypes.StatusReceiptsResponse
	if err := client.postJSON("/v1/status/receipts", req, &resp); err != nil {
		fail("Status query failed", err)
	}
	if jsonOutput {
		OutputJSON(resp)
		return
	}

	s := resp.Status
	ux.Title(fmt.Sprintf("%s Task lineage %s", ux.IconWindow.Render(), s.RootTaskID))

	pairs := [][2]string{
		{"state", stateBadge(s.State)},
		{"last_updated", formatTime(s.LastUpdatedAt)},
	}
	if s.LatestReceiptID != "" {
		pairs = append(pairs, [2]string{"latest_receipt", s.LatestReceiptID})
	}
	if s.OpenObligationsCount != nil {
		pairs = append(pairs, [2]string{"open_obligations", strconv.Itoa(*s.OpenObligationsCount)})
	}
	if s.ShipmentStatus != "" {
		pairs = append(pairs, [2]string{"shipment", s.ShipmentStatus})
	}
	if s.ShipmentManifestPointer != "" {
		pairs = append(pairs, [2]string{"manifest", s.ShipmentManifestPointer})
	}
	fmt.Print(ux.KeyValues(pairs))

	if len(s.ArtifactPointers) > 0 {
		fmt.Println()
		ux.Info("Artifacts:")
		for _, p := range s.ArtifactPointers {
			fmt.Printf("  %s %s\n", ux.IconBullet.Render(), p)
		}
	}
	printMetadata(resp.Metadata)
}

func runSearch(cmd *cobra.Command, args []string) {
	client := newAPIClient()

	req := datatypes.SearchReceiptsRequest{
		TenantID:    mustID("tenant_id", tenantID),
		RootTaskID:  mustID("root_task_id", args[0]),
		Phase:       searchPhase,
		RecipientAI: searchRecipient,
		Controls: datatypes.RequestControls{
			Limit:           searchLimit,
			TimeWindowHours: searchWindow,
		},
	}

	var resp datatypes.SearchReceiptsResponse
	if err := client.postJSON("/v1/search/receipts", req, &resp); err != nil {
		fail("Receipt search failed", err)
	}
	if jsonOutput {
		OutputJSON(resp)
		return
	}

	if len(resp.Receipts) == 0 {
		ux.Info("No receipts in the requested window.")
		printMetadata(resp.Metadata)
		return
	}

	rows := make([][]string, 0, len(resp.Receipts))
	for _, r := range resp.Receipts {
		rows = append(rows, []string{
			r.ReceiptID,
			r.Phase,
			r.TaskID,
			r.RecipientAI,
			formatTime(r.CreatedAt),
		})
	}
	fmt.Println(ux.Table([]string{"RECEIPT", "PHASE", "TASK", "RECIPIENT", "CREATED"}, rows))

	if resp.Metadata.Truncated {
		ux.Warning("Results truncated; raise --limit or narrow --window.")
	}
	printMetadata(resp.Metadata)
}

func runGet(cmd *cobra.Command, args []string) {
	client := newAPIClient()

	req := datatypes.GetReceiptRequest{
		TenantID:  mustID("tenant_id", tenantID),
		ReceiptID: mustID("receipt_id", args[0]),
	}

	var resp datatypes.GetReceiptResponse
	if err := client.postJSON("/v1/get/receipt", req, &resp); err != nil {
		fail("Receipt fetch failed", err)
	}
	if jsonOutput {
		OutputJSON(resp)
		return
	}

	if !resp.Found || resp.Receipt == nil {
		ux.Warning(fmt.Sprintf("Receipt %s not found.", args[0]))
		printMetadata(resp.Metadata)
		os.Exit(CLIExitFindings)
	}

	r := resp.Receipt
	ux.Title(fmt.Sprintf("Receipt %s", r.ReceiptID))

	pairs := [][2]string{
		{"phase", r.Phase},
		{"task", r.TaskID},
	}
	add := func(key, value string) {
		if value != "" {
			pairs = append(pairs, [2]string{key, value})
		}
	}
	add("root_task", r.RootTaskID)
	add("parent_task", r.ParentTaskID)
	add("caused_by", r.CausedByReceiptID)
	add("status", r.Status)
	add("from", r.FromPrincipal)
	add("for", r.ForPrincipal)
	add("recipient_ai", r.RecipientAI)
	add("task_type", r.TaskType)
	add("summary", r.TaskSummary)
	add("outcome_kind", r.OutcomeKind)
	add("outcome", r.OutcomeText)
	add("artifact", r.ArtifactPointer)
	add("escalation_class", r.EscalationClass)
	add("escalation_reason", r.EscalationReason)
	add("escalation_to", r.EscalationTo)
	if r.CreatedAt != nil {
		add("created_at", formatTime(r.CreatedAt))
	}
	if r.CompletedAt != nil {
		add("completed_at", formatTime(r.CompletedAt))
	}
	if r.Redacted {
		add("redacted", "true")
	}
	fmt.Print(ux.KeyValues(pairs))
	printMetadata(resp.Metadata)
}

func runArtifacts(cmd *cobra.Command, args []string) {
	client := newAPIClient()

	req := datatypes.InventoryArtifactsRequest{
		TenantID:      mustID("tenant_id", tenantID),
		RootTaskID:    mustID("root_task_id", args[0]),
		DeliverableID: artifactsDeliverable,
		Controls:      datatypes.RequestControls{Limit: artifactsLimit},
	}

	var resp datatypes.InventoryArtifactsResponse
	if err := client.postJSON("/v1/inventory/artifacts/depot", req, &resp); err != nil {
		fail("Artifact inventory failed", err)
	}
	if jsonOutput {
		OutputJSON(resp)
		return
	}

	if len(resp.ArtifactPointers) == 0 {
		ux.Info("No staged artifacts for this lineage.")
		printMetadata(resp.Metadata)
		return
	}

	rows := make([][]string, 0, len(resp.ArtifactPointers))
	for _, a := range resp.ArtifactPointers {
		rows = append(rows, []string{
			a.ArtifactID,
			a.ArtifactRole,
			a.MimeType,
			formatBytes(a.SizeBytes),
			formatTime(a.StagedAt),
		})
	}
	fmt.Println(ux.Table([]string{"ARTIFACT", "ROLE", "MIME", "SIZE", "STAGED"}, rows))

	if c := resp.StagedCountsByRole; c != nil {
		ux.Info(fmt.Sprintf("Staged by role: plan=%d final_output=%d supporting=%d intermediate=%d",
			c.Plan, c.FinalOutput, c.Supporting, c.Intermediate))
	}
	if resp.ShipmentManifestPointer != "" {
		ux.Info(fmt.Sprintf("Shipment manifest: %s", resp.ShipmentManifestPointer))
	}
	printMetadata(resp.Metadata)
}
