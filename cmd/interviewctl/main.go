// Copyright (C) 2025 PStryder (interview@legivellum.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command interviewctl is the operator CLI for the InterView facade.
//
// It speaks the facade's REST API: derived task status, receipt search,
// artifact inventory, AsyncGate diagnostics, and mesh health.
//
// # Environment Variables
//
//   - INTERVIEW_SERVER_URL: facade base URL (default: http://localhost:8000)
//   - INTERVIEW_API_KEY: API key for the /v1 surface
//   - INTERVIEW_TENANT_ID: tenant scope for queries (default: "default")
//
// # Usage
//
//	interviewctl status task-123
//	interviewctl search root-task-9 --phase delivery
//	interviewctl mesh
//	interviewctl keygen
package main

import (
	"log"
)

func main() {
	// Execute the root command. Cobra handles parsing the arguments.
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}
