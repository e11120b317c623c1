// Copyright (C) 2025 PStryder (interview@legivellum.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package auth

import (
	"crypto/subtle"
	"fmt"
	"sync"

	"github.com/awnumar/memguard"
	"golang.org/x/sys/unix"

	"github.com/PStryder/InterView/pkg/logging"
)

// MinMlockLimitKB is the minimum mlock limit required for the secure key
// vault, in kilobytes. Each stored key occupies a small number of locked
// pages including its guard pages.
const MinMlockLimitKB = 64

var (
	// memguardInitOnce ensures memguard initialization happens only once.
	memguardInitOnce sync.Once

	// mlockSufficient is set during initialization to indicate if secure
	// memory is available.
	mlockSufficient bool

	// currentMlockLimitKB stores the current mlock limit for logging.
	currentMlockLimitKB int64
)

// initMemguard initializes memguard and checks the mlock limit. Subsequent
// calls are no-ops.
func initMemguard() {
	memguardInitOnce.Do(func() {
		memguard.CatchInterrupt()
		mlockSufficient, currentMlockLimitKB = checkMlockLimit()
	})
}

// checkMlockLimit queries the kernel for the mlock resource limit and
// compares it against the vault's minimum. Returns the limit in KB, -1
// when unlimited or unknown.
func checkMlockLimit() (bool, int64) {
	var rlimit unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_MEMLOCK, &rlimit); err != nil {
		return true, -1
	}
	if rlimit.Cur == unix.RLIM_INFINITY {
		return true, -1
	}

	limitKB := int64(rlimit.Cur / 1024)
	return limitKB >= MinMlockLimitKB, limitKB
}

// Vault holds the configured API keys for verification. In secure mode
// each key lives in its own mlocked guarded buffer; in the insecure
// fallback keys are plain byte slices that are zeroed on replacement.
//
// # Thread Safety
//
// Vault is safe for concurrent use.
type Vault struct {
	mu        sync.RWMutex
	secure    bool
	buffers   []*memguard.LockedBuffer
	plain     [][]byte
	destroyed bool
	logger    *logging.Logger
}

// NewVault creates an empty key vault. When the mlock limit is below
// MinMlockLimitKB the vault falls back to plain memory if allowInsecure
// is set (INTERVIEW_INSECURE_MEMORY), and fails otherwise.
func NewVault(allowInsecure bool, logger *logging.Logger) (*Vault, error) {
	if logger == nil {
		logger = logging.Default()
	}
	initMemguard()

	if !mlockSufficient {
		if allowInsecure {
			logger.Warn("SECURITY: key vault using plain memory, mlock limit insufficient",
				"current_limit_kb", currentMlockLimitKB,
				"required_kb", MinMlockLimitKB,
				"override", "insecure_memory=true",
			)
			return newInsecureVault(logger), nil
		}
		return nil, fmt.Errorf(
			"mlock limit insufficient for secure key vault: have %d KB, need %d KB. "+
				"Raise the limit or set INTERVIEW_INSECURE_MEMORY=true",
			currentMlockLimitKB, MinMlockLimitKB,
		)
	}

	logger.Debug("Secure key vault initialized", "mlock_limit_kb", currentMlockLimitKB)
	return &Vault{secure: true, logger: logger}, nil
}

// newInsecureVault creates a plain-memory fallback vault.
func newInsecureVault(logger *logging.Logger) *Vault {
	if logger == nil {
		logger = logging.Default()
	}
	return &Vault{secure: false, logger: logger}
}

// Replace swaps the stored key set atomically. Previous keys are wiped;
// empty strings are skipped. A destroyed vault ignores the call.
func (v *Vault) Replace(keys []string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.destroyed {
		return
	}

	v.wipeLocked()
	for _, key := range keys {
		if key == "" {
			continue
		}
		if v.secure {
			v.buffers = append(v.buffers, memguard.NewBufferFromBytes([]byte(key)))
		} else {
			v.plain = append(v.plain, []byte(key))
		}
	}
}

// Verify reports whether candidate matches any stored key. Every key is
// compared in constant time with no early exit on match.
func (v *Vault) Verify(candidate string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.destroyed {
		return false
	}

	cand := []byte(candidate)
	match := 0
	for _, b := range v.buffers {
		match |= subtle.ConstantTimeCompare(b.Bytes(), cand)
	}
	for _, k := range v.plain {
		match |= subtle.ConstantTimeCompare(k, cand)
	}
	return match == 1
}

// Len returns the number of stored keys.
func (v *Vault) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.secure {
		return len(v.buffers)
	}
	return len(v.plain)
}

// Secure reports whether keys are held in locked memory.
func (v *Vault) Secure() bool {
	return v.secure
}

// Destroy wipes all stored keys. Safe to call multiple times; the vault
// cannot be reused afterwards.
func (v *Vault) Destroy() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.destroyed {
		return
	}
	v.wipeLocked()
	v.destroyed = true
}

// wipeLocked destroys every stored key. Caller holds the write lock.
func (v *Vault) wipeLocked() {
	for _, b := range v.buffers {
		b.Destroy()
	}
	v.buffers = nil

	for _, k := range v.plain {
		for i := range k {
			k[i] = 0
		}
	}
	v.plain = nil
}

// PurgeSecrets wipes all memguard-allocated memory. Call during graceful
// shutdown; all existing vaults are invalid afterwards.
func PurgeSecrets() {
	memguard.Purge()
}
