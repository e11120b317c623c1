// Copyright (C) 2025 PStryder (interview@legivellum.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package ux provides terminal output styling for the InterView CLI.
package ux

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// InterView color palette - pane glass blues with an amber ledger seal
var (
	// Primary palette (brightest to darkest)
	ColorPaneBright  = lipgloss.Color("#9BD4FF") // Bright glass - highlights
	ColorPanePrimary = lipgloss.Color("#5FA8E8") // Primary glass - main brand color
	ColorPaneMedium  = lipgloss.Color("#4588C6") // Medium glass - secondary elements
	ColorPaneDeep    = lipgloss.Color("#2F6DA8") // Deep glass - borders, accents

	// Ledger palette (warm accents for receipts and costs)
	ColorAmberSeal = lipgloss.Color("#E8B44C") // Amber seal - receipt highlights
	ColorParchment = lipgloss.Color("#D9CBA3") // Parchment - secondary warm text

	// Dark palette (for muted elements)
	ColorSlate   = lipgloss.Color("#46525C") // Slate - muted text, separators
	ColorDarkest = lipgloss.Color("#10161C") // Darkest - near black

	// Semantic colors
	ColorSuccess = lipgloss.Color("#6BCB77") // Green for success
	ColorWarning = lipgloss.Color("#F4D03F") // Gold for warnings
	ColorError   = lipgloss.Color("#E74C3C") // Red for errors
	ColorMuted   = lipgloss.Color("#46525C") // Slate for muted text
)

// Styles provides pre-configured lipgloss styles
var Styles = struct {
	// Text styles
	Title     lipgloss.Style
	Subtitle  lipgloss.Style
	Bold      lipgloss.Style
	Muted     lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	Highlight lipgloss.Style

	// Box styles
	Box     lipgloss.Style
	InfoBox lipgloss.Style

	// Table styles
	TableHeader lipgloss.Style
	TableCell   lipgloss.Style
}{
	// Text styles
	Title:     lipgloss.NewStyle().Bold(true).Foreground(ColorPaneBright),
	Subtitle:  lipgloss.NewStyle().Foreground(ColorPanePrimary),
	Bold:      lipgloss.NewStyle().Bold(true),
	Muted:     lipgloss.NewStyle().Foreground(ColorSlate),
	Success:   lipgloss.NewStyle().Foreground(ColorSuccess),
	Warning:   lipgloss.NewStyle().Foreground(ColorWarning),
	Error:     lipgloss.NewStyle().Foreground(ColorError),
	Highlight: lipgloss.NewStyle().Foreground(ColorAmberSeal).Bold(true),

	// Box styles
	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorPaneDeep).
		Padding(0, 1),
	InfoBox: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorPanePrimary).
		Padding(0, 1),

	// Table styles
	TableHeader: lipgloss.NewStyle().Bold(true).Foreground(ColorPanePrimary).Padding(0, 1),
	TableCell:   lipgloss.NewStyle().Padding(0, 1),
}

// plainOutput disables styled rendering. It defaults to true when stdout
// is not a terminal so piped and redirected output stays clean.
var plainOutput = !isatty.IsTerminal(os.Stdout.Fd()) &&
	!isatty.IsCygwinTerminal(os.Stdout.Fd())

// SetPlain forces plain output on or off, overriding terminal detection.
func SetPlain(plain bool) {
	plainOutput = plain
}

// Plain reports whether styled rendering is disabled.
func Plain() bool {
	return plainOutput
}

// Icon provides themed status icons
type Icon string

const (
	IconSuccess Icon = "✓"
	IconWarning Icon = "⚠"
	IconError   Icon = "✗"
	IconPending Icon = "○"
	IconArrow   Icon = "→"
	IconBullet  Icon = "•"
	IconWindow  Icon = "▢"
)

// Render returns the icon with appropriate styling
func (i Icon) Render() string {
	if plainOutput {
		return string(i)
	}
	switch i {
	case IconSuccess:
		return Styles.Success.Render(string(i))
	case IconWarning:
		return Styles.Warning.Render(string(i))
	case IconError:
		return Styles.Error.Render(string(i))
	case IconPending:
		return Styles.Muted.Render(string(i))
	case IconWindow:
		return Styles.Subtitle.Render(string(i))
	default:
		return string(i)
	}
}

// Print helpers that respect plain mode

// Title prints a styled title
func Title(text string) {
	if plainOutput {
		fmt.Println(text)
		return
	}
	fmt.Println(Styles.Title.Render(text))
}

// Success prints a success message with checkmark
func Success(text string) {
	if plainOutput {
		fmt.Fprintf(os.Stdout, "OK: %s\n", text)
		return
	}
	fmt.Printf("%s %s\n", IconSuccess.Render(), Styles.Success.Render(text))
}

// Warning prints a warning message
func Warning(text string) {
	if plainOutput {
		fmt.Fprintf(os.Stderr, "WARN: %s\n", text)
		return
	}
	fmt.Printf("%s %s\n", IconWarning.Render(), Styles.Warning.Render(text))
}

// Error prints an error message
func Error(text string) {
	if plainOutput {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", text)
		return
	}
	fmt.Printf("%s %s\n", IconError.Render(), Styles.Error.Render(text))
}

// Info prints an informational message
func Info(text string) {
	if plainOutput {
		fmt.Println(text)
		return
	}
	fmt.Printf("%s %s\n", Styles.Muted.Render("│"), text)
}
