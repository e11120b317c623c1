// Copyright (C) 2025 PStryder (interview@legivellum.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/PStryder/InterView/pkg/ux"
	"github.com/PStryder/InterView/services/interview/datatypes"
)

// Exit codes for CLI commands.
const (
	CLIExitSuccess  = 0 // Operation completed successfully
	CLIExitFindings = 1 // Operation completed with findings (not found, unreachable)
	CLIExitError    = 2 // Operation failed
)

// OutputJSON writes structured data as indented JSON to stdout.
func OutputJSON(data interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// fail prints the error and exits with CLIExitError.
func fail(msg string, err error) {
	if jsonOutput {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		encoder.Encode(map[string]string{"error": fmt.Sprintf("%s: %v", msg, err)})
	} else {
		ux.Error(fmt.Sprintf("%s: %v", msg, err))
	}
	os.Exit(CLIExitError)
}

// printMetadata shows the resolution footer shared by all query views.
func printMetadata(md datatypes.ResponseMetadata) {
	ux.Info(fmt.Sprintf("source=%s freshness_age_ms=%d cost_units=%d truncated=%t",
		md.Source, md.FreshnessAgeMS, md.CostUnits, md.Truncated))
}

// stateBadge colors a task state for the terminal.
func stateBadge(state datatypes.TaskState) string {
	if ux.Plain() {
		return string(state)
	}
	switch state {
	case datatypes.TaskStateResolved, datatypes.TaskStateShipped:
		return ux.Styles.Success.Render(string(state))
	case datatypes.TaskStateBlocked, datatypes.TaskStateEscalated:
		return ux.Styles.Warning.Render(string(state))
	case datatypes.TaskStateUnknown:
		return ux.Styles.Muted.Render(string(state))
	default:
		return ux.Styles.Subtitle.Render(string(state))
	}
}

// reachableBadge renders a reachability verdict.
func reachableBadge(reachable bool) string {
	if reachable {
		return ux.IconSuccess.Render() + " reachable"
	}
	return ux.IconError.Render() + " unreachable"
}

// formatTime renders an optional timestamp, "-" when absent.
func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

// formatBytes renders a size in human units.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
