// Copyright (C) 2025 PStryder (interview@legivellum.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package sources

import (
	"sync"
	"time"
)

// slidingWindow rate-limits calls per key over a trailing window.
//
// # Description
//
// Each key holds the timestamps of its calls within the trailing window.
// allow prunes expired timestamps, checks the ceiling, and records the new
// call as one sequence under the lock, so the slot is consumed before the
// caller issues any network request. Capacity returns as individual calls
// age out of the window, one slot per aged-out call.
//
// # Thread Safety
//
// Safe for concurrent use. The lock covers only in-memory bookkeeping,
// never a network call.
type slidingWindow struct {
	perMinute int
	window    time.Duration
	clock     Clock

	mu    sync.Mutex
	calls map[string][]time.Time
}

// newSlidingWindow creates a limiter with a trailing 60 s window.
func newSlidingWindow(perMinute int, clock Clock) *slidingWindow {
	return &slidingWindow{
		perMinute: perMinute,
		window:    time.Minute,
		clock:     clock,
		calls:     make(map[string][]time.Time),
	}
}

// allow consumes one slot for key if capacity remains in the trailing
// window, reporting whether the call may proceed. A rejected call consumes
// nothing.
func (w *slidingWindow) allow(key string) bool {
	now := w.clock.Now()

	w.mu.Lock()
	defer w.mu.Unlock()

	recent := w.calls[key]
	kept := recent[:0]
	for _, t := range recent {
		if now.Sub(t) < w.window {
			kept = append(kept, t)
		}
	}
	if len(kept) >= w.perMinute {
		w.calls[key] = kept
		return false
	}
	w.calls[key] = append(kept, now)
	return true
}
