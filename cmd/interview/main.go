// Copyright (C) 2025 PStryder (interview@legivellum.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command interview starts the InterView read-only facade HTTP server.
//
// InterView is a window into the receipt mesh, not a gate: it resolves
// task status, receipt searches, and artifact inventories from the
// cheapest adequate source and never writes to the ledger.
//
// # Environment Variables
//
//   - INTERVIEW_PORT: HTTP server port (default: 8000)
//   - INTERVIEW_API_KEY: primary API key for the /v1 surface
//   - INTERVIEW_LEDGER_MIRROR_URL: ReceiptGate mirror base URL (optional)
//   - INTERVIEW_ASYNCGATE_URL: AsyncGate base URL for live polls (optional)
//   - INTERVIEW_ALLOW_GLOBAL_LEDGER: enable direct global ledger queries (default: false)
//   - OTEL endpoint and every other knob: see the config package.
//
// A YAML file named by INTERVIEW_CONFIG_FILE is applied before the
// environment overlay.
//
// # Usage
//
//	# Build
//	go build -o interview ./cmd/interview
//
//	# Run
//	INTERVIEW_API_KEY=iv_... ./interview
//
//	# Or via container
//	podman-compose up interview
package main

import (
	"log"

	"github.com/PStryder/InterView/services/interview"
	"github.com/PStryder/InterView/services/interview/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	svc, err := interview.New(cfg, nil)
	if err != nil {
		log.Fatalf("Failed to create InterView service: %v", err)
	}

	// Run the server (blocks until shutdown)
	if err := svc.Run(); err != nil {
		log.Fatalf("InterView error: %v", err)
	}
}
