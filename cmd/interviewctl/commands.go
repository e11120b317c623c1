// Copyright (C) 2025 PStryder (interview@legivellum.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/PStryder/InterView/pkg/ux"
	"github.com/PStryder/InterView/pkg/validation"
)

// --- Global Command Variables ---
var (
	serverURL  string
	apiKey     string
	tenantID   string
	jsonOutput bool

	statusRoot bool

	searchPhase     string
	searchRecipient string
	searchLimit     int
	searchWindow    int

	healthAsync   bool
	healthVerbose bool

	queueID       string
	queueLimit    int
	queueExamples bool

	artifactsDeliverable string
	artifactsLimit       int

	auditAll   bool
	auditLimit int

	rootCmd = &cobra.Command{
		Use:   "interviewctl",
		Short: "Operator CLI for the InterView receipt mesh facade",
		Long: `InterView is a window into the receipt mesh, not a gate.
				interviewctl reads derived task status, receipt headers, artifact
				inventories, and live component diagnostics through the facade.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Machine output never carries ANSI styling.
			if jsonOutput {
				ux.SetPlain(true)
			}
		},
	}

	// --- Queries ---
	statusCmd = &cobra.Command{
		Use:   "status [task_id]",
		Short: "Derived status for a task lineage",
		Args:  cobra.ExactArgs(1),
		Run:   runStatus, // Defined in cmd_status.go
	}
	searchCmd = &cobra.Command{
		Use:   "search [root_task_id]",
		Short: "Search receipt headers within one task lineage",
		Args:  cobra.ExactArgs(1),
		Run:   runSearch, // Defined in cmd_status.go
	}
	getCmd = &cobra.Command{
		Use:   "get [receipt_id]",
		Short: "Fetch a single receipt by id",
		Args:  cobra.ExactArgs(1),
		Run:   runGet, // Defined in cmd_status.go
	}
	artifactsCmd = &cobra.Command{
		Use:   "artifacts [root_task_id]",
		Short: "List staged artifact pointers for a task lineage",
		Args:  cobra.ExactArgs(1),
		Run:   runArtifacts, // Defined in cmd_status.go
	}

	// --- Diagnostics ---
	healthCmd = &cobra.Command{
		Use:   "health",
		Short: "Facade liveness, or AsyncGate health with --async",
		Run:   runHealth, // Defined in cmd_health.go
	}
	queueCmd = &cobra.Command{
		Use:   "queue",
		Short: "Live AsyncGate queue diagnostics",
		Run:   runQueue, // Defined in cmd_health.go
	}
	meshCmd = &cobra.Command{
		Use:   "mesh",
		Short: "Reachability of every configured mesh component",
		Run:   runMesh, // Defined in cmd_health.go
	}

	// --- Operations ---
	auditCmd = &cobra.Command{
		Use:   "audit",
		Short: "Recent query audit events from the facade journal",
		Run:   runAudit, // Defined in cmd_audit.go
	}
	keygenCmd = &cobra.Command{
		Use:   "keygen",
		Short: "Generate a new iv_ API key locally (no server call)",
		Run:   runKeygen, // Defined in cmd_audit.go
	}
)

// init runs when the Go program starts
func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server",
		envOr("INTERVIEW_SERVER_URL", "http://localhost:8000"),
		"InterView facade base URL")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key",
		os.Getenv("INTERVIEW_API_KEY"),
		"API key for the /v1 surface")
	rootCmd.PersistentFlags().StringVar(&tenantID, "tenant",
		envOr("INTERVIEW_TENANT_ID", "default"),
		"Tenant scope for queries")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false,
		"Raw JSON output for scripting")

	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&statusRoot, "root", false,
		"Treat the id as a root task lineage id")

	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringVar(&searchPhase, "phase", "",
		"Filter by receipt phase (e.g. acceptance, delivery)")
	searchCmd.Flags().StringVar(&searchRecipient, "recipient", "",
		"Filter by recipient AI")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 0,
		"Max receipts to return (0 uses the server default)")
	searchCmd.Flags().IntVar(&searchWindow, "window", 0,
		"Time window in hours (0 uses the server default)")

	rootCmd.AddCommand(getCmd)

	rootCmd.AddCommand(artifactsCmd)
	artifactsCmd.Flags().StringVar(&artifactsDeliverable, "deliverable", "",
		"Scope to one deliverable id")
	artifactsCmd.Flags().IntVar(&artifactsLimit, "limit", 0,
		"Max pointers to return (0 uses the server default)")

	rootCmd.AddCommand(healthCmd)
	healthCmd.Flags().BoolVar(&healthAsync, "async", false,
		"Poll AsyncGate instead of the facade itself")
	healthCmd.Flags().BoolVarP(&healthVerbose, "verbose", "v", false,
		"Include the AsyncGate metrics snapshot")

	rootCmd.AddCommand(queueCmd)
	queueCmd.Flags().StringVar(&queueID, "queue", "",
		"Scope to one queue id")
	queueCmd.Flags().IntVar(&queueLimit, "limit", 0,
		"Max queue items to list (0 uses the server default)")
	queueCmd.Flags().BoolVar(&queueExamples, "examples", false,
		"Include example queue item headers")

	rootCmd.AddCommand(meshCmd)

	rootCmd.AddCommand(auditCmd)
	auditCmd.Flags().BoolVar(&auditAll, "all", false,
		"Scan every tenant instead of the configured one")
	auditCmd.Flags().IntVar(&auditLimit, "limit", 0,
		"Max events to return (0 uses the server default)")

	rootCmd.AddCommand(keygenCmd)
}

// envOr returns the environment variable value or a default.
func envOr(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// mustID sanitizes an identifier before it enters a request. Rejecting
// malformed ids here gives a usable message instead of a server 400.
func mustID(field, value string) string {
	id, err := validation.SanitizeIdentifier(field, value)
	if err != nil {
		fail("Invalid argument", err)
	}
	return id
}
