// Copyright (C) 2025 PStryder (interview@legivellum.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/PStryder/InterView/pkg/extensions"
	"github.com/PStryder/InterView/pkg/ux"
	"github.com/PStryder/InterView/services/interview/auth"
)

func runAudit(cmd *cobra.Command, args []string) {
	client := newAPIClient()

	scope := ""
	if !auditAll {
		scope = mustID("tenant_id", tenantID)
	}
	req := map[string]interface{}{
		"tenant_id": scope,
		"limit":     auditLimit,
	}

	var resp struct {
		Events []extensions.AuditEvent `json:"events"`
		Count  int                     `json:"count"`
	}
	if err := client.postJSON("/v1/audit/recent", req, &resp); err != nil {
		fail("Audit scan failed", err)
	}
	if jsonOutput {
		OutputJSON(resp)
		return
	}

	if resp.Count == 0 {
		ux.Info("No audit events recorded.")
		return
	}

	rows := make([][]string, 0, len(resp.Events))
	for _, e := range resp.Events {
		rows = append(rows, []string{
			e.ObservedAt.UTC().Format(time.RFC3339),
			e.TenantID,
			e.Operation,
			e.Source,
			e.Outcome,
			strconv.Itoa(e.CostUnits),
		})
	}
	fmt.Println(ux.Table([]string{"OBSERVED", "TENANT", "OPERATION", "SOURCE", "OUTCOME", "COST"}, rows))
	ux.Info(fmt.Sprintf("%d event(s), newest first.", resp.Count))
}

func runKeygen(cmd *cobra.Command, args []string) {
	key, err := auth.GenerateKey()
	if err != nil {
		fail("Key generation failed", err)
	}
	if jsonOutput {
		OutputJSON(map[string]string{"api_key": key})
		return
	}

	// Bare key on stdout so it can be piped into a secret store.
	fmt.Println(key)
	ux.Info("Set INTERVIEW_API_KEY on the server, then pass --api-key (or INTERVIEW_API_KEY) here.")
}
