// SPDX-FileCopyrightText: 2025 The Karei Authors
// SPDX-License-Identifier: EUPL-1.2

// Package models provides Bubble Tea models for the TUI interface.
package models

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/janderssonse/applist/internal/domain"
	"github.com/janderssonse/applist/internal/presentation"
	"github.com/janderssonse/applist/internal/tui/styles"
	"github.com/mattn/go-runewidth"
)

// Column widths of a row; the package column takes what is left.
const (
	markerWidth     = 2
	nameWidth       = 28
	valueWidth      = 20
	minPkgWidth     = 10
	chromeHeight    = 5
	summaryBarWidth = 6
)

// Dispatcher receives user events.
type Dispatcher interface {
	Dispatch(ev presentation.Event)
}

// ListModel is the app list screen. It renders view model states and turns
// key presses into view model events.
type ListModel struct {
	styles   *styles.Styles
	keys     KeyMap
	dispatch Dispatcher
	states   <-chan presentation.State

	state    presentation.State
	cursor   int
	width    int
	height   int
	ready    bool
	showHelp bool
	quitting bool

	viewport viewport.Model
	search   textinput.Model
	spinner  spinner.Model
	help     *HelpModel
}

// NewListModel creates the list screen over a view model subscription.
func NewListModel(styleConfig *styles.Styles, dispatch Dispatcher, states <-chan presentation.State, helpStyle string) *ListModel {
	search := textinput.New()
	search.Prompt = "/ "
	search.Placeholder = "name, package or value"
	search.CharLimit = 64

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = styleConfig.PrimaryText

	keys := DefaultKeyMap()

	return &ListModel{
		styles:   styleConfig,
		keys:     keys,
		dispatch: dispatch,
		states:   states,
		state:    presentation.InitialState(),
		viewport: viewport.New(80, 20),
		search:   search,
		spinner:  spin,
		help:     NewHelp(styleConfig, keys, helpStyle),
	}
}

// Init starts listening for states.
func (m *ListModel) Init() tea.Cmd {
	return tea.Batch(WaitForState(m.states), m.spinner.Tick)
}

// State returns the last rendered state.
func (m *ListModel) State() presentation.State {
	return m.state
}

// Cursor returns the selected row index.
func (m *ListModel) Cursor() int {
	return m.cursor
}

// Searching reports whether the search input has focus.
func (m *ListModel) Searching() bool {
	return m.search.Focused()
}

// Update handles messages.
func (m *ListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil
	case StateMsg:
		m.applyState(msg.State)
		return m, WaitForState(m.states)
	case StateClosedMsg:
		m.quitting = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd

		m.spinner, cmd = m.spinner.Update(msg)
		if m.state.Loading {
			m.refreshContent()
		}

		return m, cmd
	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m *ListModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		if key.Matches(msg, m.keys.Help, m.keys.ClearQuery, m.keys.Quit) {
			m.showHelp = false
			return m, nil
		}

		return m, m.help.Update(msg)
	}

	if m.search.Focused() {
		return m.handleSearchKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		m.help.SetSize(m.width, m.height)
	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1)
	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1)
	case key.Matches(msg, m.keys.PageUp):
		m.moveCursor(-m.viewport.Height)
	case key.Matches(msg, m.keys.PageDown):
		m.moveCursor(m.viewport.Height)
	case key.Matches(msg, m.keys.Top):
		m.moveCursor(-len(m.state.Items))
	case key.Matches(msg, m.keys.Bottom):
		m.moveCursor(len(m.state.Items))
	case key.Matches(msg, m.keys.NextField):
		m.dispatch.Dispatch(presentation.SelectField{Field: StepField(m.state.SelectedField, 1)})
	case key.Matches(msg, m.keys.PrevField):
		m.dispatch.Dispatch(presentation.SelectField{Field: StepField(m.state.SelectedField, -1)})
	case key.Matches(msg, m.keys.Direction):
		m.dispatch.Dispatch(presentation.ToggleDescending{})
	case key.Matches(msg, m.keys.System):
		m.dispatch.Dispatch(presentation.SetShowSystem{Show: !m.state.ShowSystem})
	case key.Matches(msg, m.keys.Refresh):
		m.dispatch.Dispatch(presentation.Refresh{})
	case key.Matches(msg, m.keys.Search):
		return m, m.search.Focus()
	case key.Matches(msg, m.keys.ClearQuery):
		if m.state.Query != "" {
			m.search.SetValue("")
			m.dispatch.Dispatch(presentation.SetQuery{Query: ""})
		}
	}

	return m, nil
}

func (m *ListModel) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type { //nolint:exhaustive // other keys go to the input
	case tea.KeyEnter:
		m.search.Blur()
		return m, nil
	case tea.KeyEsc:
		m.search.Blur()
		m.search.SetValue("")
		m.dispatch.Dispatch(presentation.SetQuery{Query: ""})

		return m, nil
	case tea.KeyCtrlC:
		m.quitting = true
		return m, tea.Quit
	}

	var cmd tea.Cmd

	before := m.search.Value()
	m.search, cmd = m.search.Update(msg)

	if m.search.Value() != before {
		m.dispatch.Dispatch(presentation.SetQuery{Query: m.search.Value()})
	}

	return m, cmd
}

// StepField returns the field delta steps away from f, wrapping around.
func StepField(f domain.Field, delta int) domain.Field {
	n := len(domain.Fields())

	return domain.Field(((int(f)+delta)%n + n) % n)
}

func (m *ListModel) resize(width, height int) {
	m.width, m.height = width, height
	m.viewport.Width = width
	m.viewport.Height = max(height-chromeHeight, 1)
	m.search.Width = max(width-6, 10)
	m.help.SetSize(width, height)
	m.ready = true
	m.refreshContent()
}

func (m *ListModel) applyState(s presentation.State) {
	m.state = s

	if s.Query != m.search.Value() && !m.search.Focused() {
		m.search.SetValue(s.Query)
	}

	m.cursor = min(m.cursor, max(len(s.Items)-1, 0))
	m.refreshContent()
}

func (m *ListModel) moveCursor(delta int) {
	if len(m.state.Items) == 0 {
		m.cursor = 0
		return
	}

	m.cursor = min(max(m.cursor+delta, 0), len(m.state.Items)-1)
	m.refreshContent()
}

func (m *ListModel) refreshContent() {
	lines := make([]string, len(m.state.Items))
	for i, item := range m.state.Items {
		lines[i] = m.renderItem(item, i == m.cursor)
	}

	m.viewport.SetContent(strings.Join(lines, "\n"))

	switch {
	case m.cursor < m.viewport.YOffset:
		m.viewport.SetYOffset(m.cursor)
	case m.cursor >= m.viewport.YOffset+m.viewport.Height:
		m.viewport.SetYOffset(m.cursor - m.viewport.Height + 1)
	}
}

func (m *ListModel) renderItem(item presentation.Item, selected bool) string {
	width := max(m.width, markerWidth+nameWidth+minPkgWidth+valueWidth+3)
	pkgWidth := width - markerWidth - nameWidth - valueWidth - 3

	marker := m.styles.StatusIcon("loaded")
	if item.Loading {
		marker = m.styles.StatusIcon("pending")
	}

	value := item.InfoText
	if item.Loading && value == "" {
		value = "…"
	}

	name := Fit(item.AppName, nameWidth)
	pkg := Fit(item.PackageName, pkgWidth)
	value = runewidth.FillLeft(runewidth.Truncate(value, valueWidth, "…"), valueWidth)

	if selected {
		return marker + " " + m.styles.Selected.Render(name+" "+pkg+" "+value)
	}

	return marker + " " + m.styles.Unselected.Render(name) + " " + m.styles.MutedText.Render(pkg) + " " + value
}

// Fit truncates or pads s to exactly width display cells.
func Fit(s string, width int) string {
	return runewidth.FillRight(runewidth.Truncate(s, width, "…"), width)
}

// View renders the screen.
func (m *ListModel) View() string {
	if m.quitting {
		return ""
	}

	if !m.ready {
		return m.spinner.View() + " Starting..."
	}

	if m.showHelp {
		return m.help.View()
	}

	sections := []string{m.renderHeader()}

	if m.search.Focused() || m.state.Query != "" {
		sections = append(sections, m.search.View())
	} else {
		sections = append(sections, m.renderStatus())
	}

	sections = append(sections, m.renderBody(), m.renderSummary(),
		RenderFooter(m.styles, m.width, m.keys.FooterBindings()))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *ListModel) renderHeader() string {
	arrow := "↑"
	if m.state.Descending {
		arrow = "↓"
	}

	title := fmt.Sprintf("applist  %s %s", m.state.SelectedField.Title(), arrow)
	if m.state.ShowSystem {
		title += "  +system"
	}

	return m.styles.Header.Width(m.width).Render(title)
}

func (m *ListModel) renderStatus() string {
	s := m.state

	switch {
	case s.Err != nil:
		return m.styles.ErrorText.Render(domain.FormatErrorMessage(s.Err, false))
	case s.Loading && len(s.Apps) == 0:
		return m.spinner.View() + " Reading installed packages..."
	case s.Loading:
		return m.spinner.View() + fmt.Sprintf(" %d apps, loading details...", len(s.Apps))
	default:
		return m.styles.SuccessText.Render(fmt.Sprintf("%d apps", len(s.Items)))
	}
}

func (m *ListModel) renderBody() string {
	if len(m.state.Items) == 0 && !m.state.Loading {
		empty := "No apps"
		if m.state.Query != "" {
			empty = fmt.Sprintf("No apps match %q", m.state.Query)
		}

		return lipgloss.NewStyle().Height(m.viewport.Height).Render(m.styles.MutedText.Render(empty))
	}

	return m.viewport.View()
}

// renderSummary shows the bucket counts once the run is complete.
func (m *ListModel) renderSummary() string {
	summary := m.state.Summary
	if summary == nil || len(summary.Buckets) == 0 {
		return ""
	}

	largest := 0
	for _, b := range summary.Buckets {
		largest = max(largest, b.Count)
	}

	parts := make([]string, 0, len(summary.Buckets))
	for _, b := range summary.Buckets {
		parts = append(parts, fmt.Sprintf("%s %d %s",
			m.styles.PrimaryText.Render(b.Label), b.Count, m.styles.Bar(b.Count, largest, summaryBarWidth)))
	}

	return lipgloss.NewStyle().MaxWidth(max(m.width, 1)).Render(strings.Join(parts, "  "))
}
