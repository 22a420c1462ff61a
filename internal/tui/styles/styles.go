// SPDX-FileCopyrightText: 2025 The Karei Authors
// SPDX-License-Identifier: EUPL-1.2

// Package styles defines consistent visual styling for TUI components.
package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Styles contains all the styles used in the TUI.
type Styles struct {
	// Color palette
	Primary lipgloss.Color
	Success lipgloss.Color
	Error   lipgloss.Color
	Info    lipgloss.Color
	Muted   lipgloss.Color

	// Component styles
	Header     lipgloss.Style
	Selected   lipgloss.Style
	Unselected lipgloss.Style

	// Text styles (cached for performance)
	MutedText   lipgloss.Style
	PrimaryText lipgloss.Style
	SuccessText lipgloss.Style
	ErrorText   lipgloss.Style
}

// New creates a Styles instance with the Tokyo Night palette.
func New() *Styles {
	primary := lipgloss.Color("#7aa2f7")    // Blue
	success := lipgloss.Color("#9ece6a")    // Green
	errorColor := lipgloss.Color("#f7768e") // Red
	info := lipgloss.Color("#7dcfff")       // Cyan
	muted := lipgloss.Color("#565f89")      // Gray

	background := lipgloss.Color("#1a1b26")
	foreground := lipgloss.Color("#c0caf5")

	return &Styles{
		Primary: primary,
		Success: success,
		Error:   errorColor,
		Info:    info,
		Muted:   muted,

		Header: lipgloss.NewStyle().
			Background(primary).
			Foreground(background).
			Bold(true).
			Padding(0, 1),

		Selected: lipgloss.NewStyle().
			Background(primary).
			Foreground(background),

		Unselected: lipgloss.NewStyle().
			Foreground(foreground),

		MutedText:   lipgloss.NewStyle().Foreground(muted),
		PrimaryText: lipgloss.NewStyle().Foreground(primary),
		SuccessText: lipgloss.NewStyle().Foreground(success),
		ErrorText:   lipgloss.NewStyle().Foreground(errorColor),
	}
}

// StatusIcon returns styled status icons.
func (s *Styles) StatusIcon(status string) string {
	style := s.Unselected

	var icon string

	switch status {
	case "loaded":
		style = lipgloss.NewStyle().Foreground(s.Success)
		icon = "●"
	case "error":
		style = lipgloss.NewStyle().Foreground(s.Error)
		icon = "✗"
	case "pending":
		style = lipgloss.NewStyle().Foreground(s.Muted)
		icon = "⋯"
	default:
		icon = "•"
	}

	return style.Render(icon)
}

// Bar renders count out of largest as a bar of at most width cells.
func (s *Styles) Bar(count, largest, width int) string {
	if largest <= 0 || count <= 0 || width <= 0 {
		return ""
	}

	filled := max(count*width/largest, 1)

	return lipgloss.NewStyle().
		Foreground(s.Info).
		Render(strings.Repeat("█", filled))
}

// Keybinding returns styled keybinding text.
func (s *Styles) Keybinding(key, desc string) string {
	keyStyle := lipgloss.NewStyle().
		Foreground(s.Primary).
		Bold(true)

	descStyle := lipgloss.NewStyle().
		Foreground(s.Muted)

	return keyStyle.Render("["+key+"]") + " " + descStyle.Render(desc)
}
