// Copyright (C) 2025 PStryder (interview@legivellum.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ux

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"
)

// Helper to capture stdout
func captureStdout(f func()) string {
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	f()

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	io.Copy(&buf, r)
	return buf.String()
}

// Helper to capture stderr
func captureStderr(f func()) string {
	old := os.Stderr
	r, w, _ := os.Pipe()
	os.Stderr = w

	f()

	w.Close()
	os.Stderr = old

	var buf bytes.Buffer
	io.Copy(&buf, r)
	return buf.String()
}

// forcePlain pins plain mode for the duration of a test.
func forcePlain(t *testing.T, plain bool) {
	t.Helper()
	was := Plain()
	SetPlain(plain)
	t.Cleanup(func() { SetPlain(was) })
}

// =============================================================================
// Icon.Render Tests
// =============================================================================

func TestIcon_Render_Success(t *testing.T) {
	result := IconSuccess.Render()
	if result == "" {
		t.Error("expected non-empty result for IconSuccess")
	}
}

func TestIcon_Render_Warning(t *testing.T) {
	result := IconWarning.Render()
	if result == "" {
		t.Error("expected non-empty result for IconWarning")
	}
}

func TestIcon_Render_Error(t *testing.T) {
	result := IconError.Render()
	if result == "" {
		t.Error("expected non-empty result for IconError")
	}
}

func TestIcon_Render_Window(t *testing.T) {
	result := IconWindow.Render()
	if result == "" {
		t.Error("expected non-empty result for IconWindow")
	}
}

func TestIcon_Render_PlainIsBare(t *testing.T) {
	forcePlain(t, true)
	if got := IconSuccess.Render(); got != string(IconSuccess) {
		t.Errorf("plain icon should be bare, got %q", got)
	}
}

// =============================================================================
// Plain Mode Tests
// =============================================================================

func TestSetPlain_Overrides(t *testing.T) {
	forcePlain(t, false)
	if Plain() {
		t.Error("expected styled mode after SetPlain(false)")
	}
	SetPlain(true)
	if !Plain() {
		t.Error("expected plain mode after SetPlain(true)")
	}
}

func TestSuccess_PlainPrefix(t *testing.T) {
	forcePlain(t, true)
	out := captureStdout(func() { Success("sources resolved") })
	if !strings.HasPrefix(out, "OK: ") {
		t.Errorf("plain success should carry OK prefix, got %q", out)
	}
	if !strings.Contains(out, "sources resolved") {
		t.Errorf("message missing from output %q", out)
	}
}

func TestWarning_PlainGoesToStderr(t *testing.T) {
	forcePlain(t, true)
	errOut := captureStderr(func() { Warning("mirror stale") })
	if !strings.HasPrefix(errOut, "WARN: ") {
		t.Errorf("plain warning should carry WARN prefix on stderr, got %q", errOut)
	}
}

func TestError_PlainGoesToStderr(t *testing.T) {
	forcePlain(t, true)
	errOut := captureStderr(func() { Error("ledger unreachable") })
	if !strings.HasPrefix(errOut, "ERROR: ") {
		t.Errorf("plain error should carry ERROR prefix on stderr, got %q", errOut)
	}
}

func TestTitle_PlainIsBareText(t *testing.T) {
	forcePlain(t, true)
	out := captureStdout(func() { Title("Receipt Mesh Health") })
	if out != "Receipt Mesh Health\n" {
		t.Errorf("plain title should be bare text, got %q", out)
	}
}

func TestInfo_PlainIsBareText(t *testing.T) {
	forcePlain(t, true)
	out := captureStdout(func() { Info("projection cache warm") })
	if out != "projection cache warm\n" {
		t.Errorf("plain info should be bare text, got %q", out)
	}
}
