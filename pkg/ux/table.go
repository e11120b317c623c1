// Copyright (C) 2025 PStryder (interview@legivellum.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ux

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Table renders headers and rows as a bordered table. Colors degrade
// automatically when the terminal does not support them.
func Table(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(ColorPaneDeep)).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return Styles.TableHeader
			}
			return Styles.TableCell
		}).
		Headers(headers...).
		Rows(rows...)
	return t.Render()
}

// KeyValues renders aligned key/value pairs for single-record views.
func KeyValues(pairs [][2]string) string {
	width := 0
	for _, p := range pairs {
		if len(p[0]) > width {
			width = len(p[0])
		}
	}

	var b strings.Builder
	for _, p := range pairs {
		key := fmt.Sprintf("%-*s", width, p[0])
		if plainOutput {
			fmt.Fprintf(&b, "%s  %s\n", key, p[1])
			continue
		}
		fmt.Fprintf(&b, "%s  %s\n", Styles.Muted.Render(key), p[1])
	}
	return b.String()
}
