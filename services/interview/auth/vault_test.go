// Copyright (C) 2025 PStryder (interview@legivellum.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package auth

import (
	"strings"
	"testing"
)

// newTestVault creates a vault for testing. The insecure fallback keeps
// construction working when the environment lacks mlock headroom.
func newTestVault(t *testing.T) *Vault {
	t.Helper()

	v, err := NewVault(true, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return v
}

func TestVault_VerifyMatchesStoredKeys(t *testing.T) {
	v := newTestVault(t)
	defer v.Destroy()

	v.Replace([]string{"iv_alpha", "iv_beta"})

	if !v.Verify("iv_alpha") {
		t.Error("expected iv_alpha to verify")
	}
	if !v.Verify("iv_beta") {
		t.Error("expected iv_beta to verify")
	}
	if v.Verify("iv_gamma") {
		t.Error("unknown key must not verify")
	}
	if v.Verify("") {
		t.Error("empty candidate must not verify")
	}
	if v.Verify("iv_alph") {
		t.Error("prefix of a key must not verify")
	}
}

func TestVault_EmptyVaultRejectsEverything(t *testing.T) {
	v := newTestVault(t)
	defer v.Destroy()

	if v.Verify("iv_alpha") {
		t.Error("empty vault must reject all candidates")
	}
	if v.Len() != 0 {
		t.Errorf("expected 0 keys, got %d", v.Len())
	}
}

func TestVault_ReplaceSwapsWholeSet(t *testing.T) {
	v := newTestVault(t)
	defer v.Destroy()

	v.Replace([]string{"iv_old"})
	if !v.Verify("iv_old") {
		t.Fatal("expected iv_old to verify before replacement")
	}

	v.Replace([]string{"iv_new"})

	if v.Verify("iv_old") {
		t.Error("replaced key must no longer verify")
	}
	if !v.Verify("iv_new") {
		t.Error("expected iv_new to verify after replacement")
	}
	if v.Len() != 1 {
		t.Errorf("expected 1 key after replacement, got %d", v.Len())
	}
}

func TestVault_ReplaceSkipsEmptyStrings(t *testing.T) {
	v := newTestVault(t)
	defer v.Destroy()

	v.Replace([]string{"", "iv_only", ""})

	if v.Len() != 1 {
		t.Errorf("expected empty strings to be skipped, got %d keys", v.Len())
	}
	if !v.Verify("iv_only") {
		t.Error("expected iv_only to verify")
	}
}

func TestVault_DestroyIsTerminal(t *testing.T) {
	v := newTestVault(t)

	v.Replace([]string{"iv_alpha"})
	v.Destroy()

	if v.Verify("iv_alpha") {
		t.Error("destroyed vault must reject all candidates")
	}

	// Destroy is idempotent and Replace after destruction is ignored.
	v.Destroy()
	v.Replace([]string{"iv_beta"})
	if v.Len() != 0 {
		t.Errorf("destroyed vault must stay empty, got %d keys", v.Len())
	}
}

func TestVault_LongKeys(t *testing.T) {
	v := newTestVault(t)
	defer v.Destroy()

	long := "iv_" + strings.Repeat("k", 500)
	v.Replace([]string{long})

	if !v.Verify(long) {
		t.Error("expected long key to verify")
	}
	if v.Verify(long + "x") {
		t.Error("extended key must not verify")
	}
}
