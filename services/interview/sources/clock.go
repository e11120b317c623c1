// Copyright (C) 2025 PStryder (interview@legivellum.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package sources

import "time"

// Clock supplies the current time to TTL and rate-limit bookkeeping.
//
// # Description
//
// Every age computation, lazy eviction, and sliding-window prune in this
// package reads time through a Clock rather than calling time.Now directly.
// Production code uses SystemClock; tests inject a fixed or stepped clock so
// TTL boundaries and window expiry can be exercised deterministically.
type Clock interface {
	Now() time.Time
}

// systemClock reads the wall clock.
type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the wall-clock implementation used in production.
func SystemClock() Clock {
	return systemClock{}
}
