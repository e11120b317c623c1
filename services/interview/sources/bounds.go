// Copyright (C) 2025 PStryder (interview@legivellum.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package sources

import "time"

// Bounds resolution. Pure functions, no I/O, no side effects. Caller input
// is advisory: the effective limit and time window are always clamped here
// against configured policy, never trusted as given.

// ClampLimit returns the effective result limit.
//
// A zero requested limit selects the configured default; any other value is
// clamped into [1, max]. The default itself passes through the same clamp,
// so a misconfigured default can never exceed max.
func ClampLimit(requested, def, max int) int {
	if requested == 0 {
		requested = def
	}
	if requested < 1 {
		return 1
	}
	if requested > max {
		return max
	}
	return requested
}

// ResolveSince returns the effective history cutoff for a query.
//
// An explicit since is honored but never older than now minus the maximum
// window. Absent an explicit since, the cutoff derives from the requested
// window hours, defaulting when unset and clamped to the maximum.
func ResolveSince(since *time.Time, windowHours, defaultWindow, maxWindow int, now time.Time) time.Time {
	oldest := now.Add(-time.Duration(maxWindow) * time.Hour)
	if since != nil {
		if since.Before(oldest) {
			return oldest
		}
		return *since
	}
	w := windowHours
	if w <= 0 {
		w = defaultWindow
	}
	if w > maxWindow {
		w = maxWindow
	}
	return now.Add(-time.Duration(w) * time.Hour)
}
