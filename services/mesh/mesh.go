// Copyright (C) 2025 PStryder (interview@legivellum.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package mesh provides the HTTP and object-storage clients InterView uses
// to read its downstream components: the ReceiptGate ledger mirror,
// AsyncGate diagnostics, the DepotGate artifact index (or its GCS bucket
// equivalent), and the global receipt ledger.
//
// # Description
//
// Every client is read-only and owns its endpoint configuration and
// timeout. Transport failures, timeouts, undecodable bodies, and missing
// configuration are all reported as source unavailability against the
// client's source tier; absence of an entity is a nil result, never an
// error. No client retries.
//
// # Thread Safety
//
// All clients are safe for concurrent use.
package mesh

import (
	"context"
	"errors"
	"net"
)

// Mesh component names, used by the reachability probe and in diagnostics.
const (
	ComponentReceiptGate  = "receiptgate"
	ComponentAsyncGate    = "asyncgate"
	ComponentDepotGate    = "depotgate"
	ComponentMemoryGate   = "memorygate"
	ComponentGlobalLedger = "global_ledger"
)

// timedOut reports whether err is a deadline or transport timeout, as
// opposed to any other transport failure.
func timedOut(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
