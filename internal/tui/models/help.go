// SPDX-FileCopyrightText: 2025 The Karei Authors
// SPDX-License-Identifier: EUPL-1.2

package models

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/janderssonse/applist/internal/domain"
	"github.com/janderssonse/applist/internal/tui/styles"
)

// AutoStyle picks the glamour style from the terminal background.
const AutoStyle = "auto"

const helpIntro = `# applist

Lists the apps installed on the connected device. The list appears at once
and fills in sizes, dates and store data as details arrive; rows still
loading are marked with ⋯.

## Keys

| Key | Action |
|-----|--------|
`

const helpOutro = `
## Summary

Once every detail has loaded, the footer counts the visible apps per
category of the selected field: yes/no fields, size classes, SDK levels
and permission counts. Date and text fields have no summary.
`

// HelpModel shows the Markdown help in a scrollable viewport.
type HelpModel struct {
	styles   *styles.Styles
	keys     KeyMap
	viewport viewport.Model
	markdown string
	style    string
	width    int
}

// NewHelp creates the help screen. style is a glamour style name or AutoStyle.
func NewHelp(styleConfig *styles.Styles, keys KeyMap, style string) *HelpModel {
	return &HelpModel{
		styles:   styleConfig,
		keys:     keys,
		viewport: viewport.New(80, 20),
		markdown: HelpMarkdown(keys),
		style:    style,
	}
}

// HelpMarkdown documents every binding and field as Markdown.
func HelpMarkdown(keys KeyMap) string {
	var b strings.Builder

	b.WriteString(helpIntro)

	for _, binding := range []key.Binding{
		keys.Up, keys.Down, keys.PageUp, keys.PageDown, keys.Top, keys.Bottom,
		keys.NextField, keys.PrevField, keys.Direction, keys.System,
		keys.Refresh, keys.Search, keys.ClearQuery, keys.Help, keys.Quit,
	} {
		fmt.Fprintf(&b, "| `%s` | %s |\n", binding.Help().Key, binding.Help().Desc)
	}

	b.WriteString("\n## Fields\n\n")

	for _, f := range domain.Fields() {
		fmt.Fprintf(&b, "- **%s** (`%s`)\n", f.Title(), f.Key())
	}

	b.WriteString(helpOutro)

	return b.String()
}

// SetSize resizes the viewport and re-renders the content for width.
func (h *HelpModel) SetSize(width, height int) {
	h.viewport.Width = width
	h.viewport.Height = max(height-2, 1)

	if width != h.width {
		h.width = width
		h.viewport.SetContent(h.render(width))
	}
}

func (h *HelpModel) render(width int) string {
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(max(width-4, 20))}
	if h.style == AutoStyle {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle(h.style))
	}

	renderer, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return h.markdown
	}

	out, err := renderer.Render(h.markdown)
	if err != nil {
		return h.markdown
	}

	return out
}

// Update scrolls the viewport.
func (h *HelpModel) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd

	h.viewport, cmd = h.viewport.Update(msg)

	return cmd
}

// View renders the help screen.
func (h *HelpModel) View() string {
	footer := h.styles.Keybinding("?/esc", "close") + "  " + h.styles.Keybinding("j/k", "scroll")

	return h.viewport.View() + "\n" + footer
}
