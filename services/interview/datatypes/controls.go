// Copyright (C) 2025 PStryder (interview@legivellum.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import "time"

// RequestControls carries the caller's bounds and freshness preference.
//
// # Description
//
// Controls are advisory: the effective limit and time window are always
// clamped server-side against the configured maxima, regardless of what the
// caller requests. A zero limit or window selects the configured default.
//
// # Fields
//
//   - Limit: requested maximum result count. Clamped into [1, max_limit].
//   - Since: optional absolute cutoff. Never honored older than
//     now - max_time_window_hours.
//   - TimeWindowHours: window used to derive the cutoff when Since is
//     absent. Clamped to max_time_window_hours.
//   - IncludeBody: accepted for forward compatibility; v0 never returns
//     bodies in header results.
//   - Freshness: cache_ok (default), prefer_fresh, or force_fresh.
type RequestControls struct {
	Limit           int        `json:"limit" validate:"gte=0"`
	Since           *time.Time `json:"since,omitempty"`
	TimeWindowHours int        `json:"time_window_hours" validate:"gte=0"`
	IncludeBody     bool       `json:"include_body"`
	Freshness       Freshness  `json:"freshness" validate:"omitempty,oneof=cache_ok prefer_fresh force_fresh"`
}

// EnsureDefaults normalizes the freshness policy. Limit and window defaults
// are applied by the bounds resolver against live configuration, not here.
func (c *RequestControls) EnsureDefaults() {
	c.Freshness = c.Freshness.Normalize()
}

// ResponseMetadata is attached to every response and attributes the answer.
//
// # Description
//
// Source names the backing source that actually produced the returned data,
// not every source that was tried. FreshnessAgeMS is the age of that data:
// zero for data fetched live, the true per-entry age for cache hits.
// CostUnits is a coarse, source-weighted proxy for work performed: a cache
// hit costs 1, a mirror or storage query roughly 1 plus result volume, a
// component poll 5, and a global ledger query 100.
type ResponseMetadata struct {
	Source         Source `json:"source"`
	FreshnessAgeMS int64  `json:"freshness_age_ms"`
	Truncated      bool   `json:"truncated"`
	NextPageToken  string `json:"next_page_token,omitempty"`
	CostUnits      int    `json:"cost_units"`
}
