// SPDX-FileCopyrightText: 2025 The Karei Authors
// SPDX-License-Identifier: EUPL-1.2

package models

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
	"github.com/janderssonse/applist/internal/tui/styles"
)

// RenderFooter creates the key hint line from the given bindings.
func RenderFooter(styleConfig *styles.Styles, width int, bindings []key.Binding) string {
	keyStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(styleConfig.Primary)

	actionStyle := lipgloss.NewStyle().
		Foreground(styleConfig.Muted)

	hints := make([]string, 0, len(bindings))

	for _, b := range bindings {
		if !b.Enabled() {
			continue
		}

		help := b.Help()
		hints = append(hints, keyStyle.Render("["+help.Key+"]")+" "+actionStyle.Render(help.Desc))
	}

	return lipgloss.NewStyle().
		Padding(0, 1).
		BorderStyle(lipgloss.NormalBorder()).
		BorderTop(true).
		BorderForeground(lipgloss.Color("240")).
		Width(width).
		Render(strings.Join(hints, "  "))
}
