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
	"time"

	"github.com/spf13/cobra"

	"github.com/PStryder/InterView/pkg/ux"
	"github.com/PStryder/InterView/services/interview/datatypes"
	"github.com/PStryder/InterView/services/mesh"
)

func runHealth(cmd *cobra.Command, args []string) {
	client := newAPIClient()

	if !healthAsync {
		var resp datatypes.HealthResponse
		if err := client.getJSON("/health", &resp); err != nil {
			fail("Facade unreachable", err)
		}
		if jsonOutput {
			OutputJSON(resp)
			return
		}
		ux.Success(fmt.Sprintf("%s %s (%s) is %s at %s",
			resp.Service, resp.Version, resp.InstanceID, resp.Status, serverURL))
		return
	}

	req := datatypes.HealthAsyncRequest{TenantID: mustID("tenant_id", tenantID), Verbose: healthVerbose}
	var resp datatypes.HealthAsyncResponse
	if err := client.postJSON("/v1/health/async", req, &resp); err != nil {
		fail("AsyncGate health poll failed", err)
	}
	if jsonOutput {
		OutputJSON(resp)
		return
	}

	ux.Title(fmt.Sprintf("%s %s", ux.IconWindow.Render(), resp.ComponentID))

	pairs := [][2]string{
		{"status", reachableBadge(resp.Reachable)},
	}
	if resp.Version != "" {
		pairs = append(pairs, [2]string{"version", resp.Version})
	}
	if resp.UptimeSeconds != nil {
		uptime := time.Duration(*resp.UptimeSeconds) * time.Second
		pairs = append(pairs, [2]string{"uptime", uptime.String()})
	}
	if resp.ErrorBudgetStatus != "" {
		pairs = append(pairs, [2]string{"error_budget", resp.ErrorBudgetStatus})
	}
	fmt.Print(ux.KeyValues(pairs))

	if m := resp.MetricsSnapshot; m != nil {
		fmt.Println()
		ux.Info("Metrics snapshot:")
		fmt.Print(ux.KeyValues([][2]string{
			{"queued", strconv.Itoa(m.QueuedCount)},
			{"leased", strconv.Itoa(m.LeasedCount)},
			{"succeeded", strconv.Itoa(m.SucceededCount)},
			{"failed", strconv.Itoa(m.FailedCount)},
		}))
	}
	printMetadata(resp.Metadata)

	if !resp.Reachable {
		os.Exit(CLIExitFindings)
	}
}

func runQueue(cmd *cobra.Command, args []string) {
	client := newAPIClient()

	req := datatypes.QueueAsyncRequest{
		TenantID:        mustID("tenant_id", tenantID),
		QueueID:         queueID,
		Limit:           queueLimit,
		IncludeExamples: queueExamples,
	}

	var resp datatypes.QueueAsyncResponse
	if err := client.postJSON("/v1/queue/async", req, &resp); err != nil {
		fail("Queue diagnostics failed", err)
	}
	if jsonOutput {
		OutputJSON(resp)
		return
	}

	oldest := time.Duration(resp.OldestItemAgeMS) * time.Millisecond
	fmt.Print(ux.KeyValues([][2]string{
		{"queue_depth", strconv.Itoa(resp.QueueDepth)},
		{"oldest_item", oldest.String()},
		{"active_leases", strconv.Itoa(resp.ActiveLeasesCount)},
	}))

	if len(resp.Items) > 0 {
		rows := make([][]string, 0, len(resp.Items))
		for _, item := range resp.Items {
			age := time.Duration(item.AgeMS) * time.Millisecond
			rows = append(rows, []string{
				item.TaskID,
				item.TaskType,
				item.Status,
				strconv.Itoa(item.Priority),
				age.String(),
			})
		}
		fmt.Println(ux.Table([]string{"TASK", "TYPE", "STATUS", "PRIORITY", "AGE"}, rows))
	}
	printMetadata(resp.Metadata)
}

func runMesh(cmd *cobra.Command, args []string) {
	client := newAPIClient()

	var resp struct {
		Components []mesh.EndpointHealth `json:"components"`
		CheckedAt  time.Time             `json:"checked_at"`
	}
	if err := client.postJSON("/v1/mesh/health", struct{}{}, &resp); err != nil {
		fail("Mesh health probe failed", err)
	}
	if jsonOutput {
		OutputJSON(resp)
		return
	}

	ux.Title(fmt.Sprintf("%s Receipt mesh @ %s", ux.IconWindow.Render(),
		resp.CheckedAt.UTC().Format(time.RFC3339)))

	unreachable := 0
	rows := make([][]string, 0, len(resp.Components))
	for _, c := range resp.Components {
		verdict := ux.Styles.Muted.Render("not configured")
		latency := "-"
		if c.Configured {
			verdict = reachableBadge(c.Reachable)
			latency = fmt.Sprintf("%d ms", c.LatencyMS)
			if !c.Reachable {
				unreachable++
			}
		}
		rows = append(rows, []string{c.Component, verdict, latency})
	}
	fmt.Println(ux.Table([]string{"COMPONENT", "STATUS", "LATENCY"}, rows))

	if unreachable > 0 {
		ux.Warning(fmt.Sprintf("%d configured component(s) unreachable.", unreachable))
		os.Exit(CLIExitFindings)
	}
}
