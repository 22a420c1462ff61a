// SPDX-FileCopyrightText: 2025 The Karei Authors
// SPDX-License-Identifier: EUPL-1.2

package models

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/janderssonse/applist/internal/application"
	"github.com/janderssonse/applist/internal/domain"
	"github.com/janderssonse/applist/internal/presentation"
	"github.com/janderssonse/applist/internal/tui/styles"
	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingDispatcher struct {
	events []presentation.Event
}

func (r *recordingDispatcher) Dispatch(ev presentation.Event) {
	r.events = append(r.events, ev)
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newTestModel(t *testing.T) (*ListModel, *recordingDispatcher) {
	t.Helper()

	dispatcher := &recordingDispatcher{}
	states := make(chan presentation.State)

	m := NewListModel(styles.New(), dispatcher, states, "notty")
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 20})

	return m, dispatcher
}

func loadedState(items ...presentation.Item) presentation.State {
	s := presentation.InitialState()
	s.Items = items
	s.FullyLoaded = true

	return s
}

func TestStepField(t *testing.T) {
	t.Parallel()

	last := domain.Fields()[len(domain.Fields())-1]

	tests := []struct {
		name  string
		from  domain.Field
		delta int
		want  domain.Field
	}{
		{"next", domain.FieldApkSize, 1, domain.FieldAppSize},
		{"previous", domain.FieldAppSize, -1, domain.FieldApkSize},
		{"wraps forward", last, 1, domain.FieldApkSize},
		{"wraps backward", domain.FieldApkSize, -1, last},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, StepField(tt.from, tt.delta))
		})
	}
}

func TestListModelKeysDispatchEvents(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		key  tea.KeyMsg
		want presentation.Event
	}{
		{"next field", runes("f"), presentation.SelectField{Field: domain.FieldApkSize}},
		{"tab selects next field", tea.KeyMsg{Type: tea.KeyTab}, presentation.SelectField{Field: domain.FieldApkSize}},
		{"previous field", runes("F"), presentation.SelectField{Field: domain.FieldTotalSize}},
		{"direction", runes("d"), presentation.ToggleDescending{}},
		{"system apps", runes("s"), presentation.SetShowSystem{Show: true}},
		{"refresh", runes("r"), presentation.Refresh{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m, dispatcher := newTestModel(t)
			m.Update(tt.key)

			require.Len(t, dispatcher.events, 1)
			assert.Equal(t, tt.want, dispatcher.events[0])
		})
	}
}

func TestListModelSystemToggleFollowsState(t *testing.T) {
	t.Parallel()

	m, dispatcher := newTestModel(t)

	s := loadedState()
	s.ShowSystem = true
	m.Update(StateMsg{State: s})
	m.Update(runes("s"))

	require.Len(t, dispatcher.events, 1)
	assert.Equal(t, presentation.SetShowSystem{Show: false}, dispatcher.events[0])
}

func TestListModelSearch(t *testing.T) {
	t.Parallel()

	m, dispatcher := newTestModel(t)

	m.Update(runes("/"))
	assert.True(t, m.Searching())

	m.Update(runes("ca"))
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.False(t, m.Searching())
	require.NotEmpty(t, dispatcher.events)
	assert.Equal(t, presentation.SetQuery{Query: "ca"}, dispatcher.events[len(dispatcher.events)-1])

	// Keys typed while searching do not trigger actions.
	for _, ev := range dispatcher.events {
		assert.IsType(t, presentation.SetQuery{}, ev)
	}
}

func TestListModelSearchEscapeClearsQuery(t *testing.T) {
	t.Parallel()

	m, dispatcher := newTestModel(t)

	m.Update(runes("/"))
	m.Update(runes("x"))
	m.Update(tea.KeyMsg{Type: tea.KeyEsc})

	assert.False(t, m.Searching())
	assert.Equal(t, presentation.SetQuery{Query: ""}, dispatcher.events[len(dispatcher.events)-1])
}

func TestListModelCursor(t *testing.T) {
	t.Parallel()

	m, _ := newTestModel(t)
	m.Update(StateMsg{State: loadedState(
		presentation.Item{PackageName: "a", AppName: "A"},
		presentation.Item{PackageName: "b", AppName: "B"},
		presentation.Item{PackageName: "c", AppName: "C"},
	)})

	m.Update(runes("j"))
	m.Update(runes("j"))
	m.Update(runes("j"))
	assert.Equal(t, 2, m.Cursor())

	m.Update(runes("g"))
	assert.Equal(t, 0, m.Cursor())

	m.Update(runes("G"))
	assert.Equal(t, 2, m.Cursor())

	m.Update(StateMsg{State: loadedState(presentation.Item{PackageName: "a", AppName: "A"})})
	assert.Equal(t, 0, m.Cursor())
}

func TestListModelRendersRows(t *testing.T) {
	t.Parallel()

	m, _ := newTestModel(t)

	s := loadedState(
		presentation.Item{PackageName: "com.example.camera", AppName: "Camera", InfoText: "1.2"},
		presentation.Item{PackageName: "com.example.notes", AppName: "Notes", Loading: true},
	)
	s.Loading = true
	s.FullyLoaded = false
	s.Apps = []domain.App{{PackageName: "com.example.camera"}, {PackageName: "com.example.notes"}}
	m.Update(StateMsg{State: s})

	view := m.View()

	assert.Contains(t, view, "Camera")
	assert.Contains(t, view, "com.example.notes")
	assert.Contains(t, view, "⋯")
	assert.Contains(t, view, "loading details")
	assert.Contains(t, view, "Version")
}

func TestListModelRendersEmptyQuery(t *testing.T) {
	t.Parallel()

	m, _ := newTestModel(t)

	s := loadedState()
	s.Query = "zzz"
	m.Update(StateMsg{State: s})

	assert.Contains(t, m.View(), `No apps match "zzz"`)
}

func TestListModelRendersError(t *testing.T) {
	t.Parallel()

	m, _ := newTestModel(t)

	s := loadedState()
	s.Err = errors.New("device offline")
	m.Update(StateMsg{State: s})

	assert.Contains(t, m.View(), "No usable device")
}

func TestListModelRendersSummary(t *testing.T) {
	t.Parallel()

	m, _ := newTestModel(t)

	s := loadedState(presentation.Item{PackageName: "a", AppName: "A"})
	s.Summary = &application.Summary{
		Field:   domain.FieldEnabled,
		Buckets: []domain.SummaryBucket{{Label: "Yes", Count: 1}, {Label: "No", Count: 0}},
	}
	m.Update(StateMsg{State: s})

	view := m.View()
	assert.Contains(t, view, "Yes")
	assert.Contains(t, view, "No")
}

func TestListModelHelpToggle(t *testing.T) {
	t.Parallel()

	m, dispatcher := newTestModel(t)

	m.Update(runes("?"))
	assert.Contains(t, m.View(), "close")

	m.Update(runes("r"))
	assert.Empty(t, dispatcher.events)

	m.Update(runes("?"))
	assert.NotContains(t, m.View(), "close")
}

func TestListModelQuits(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		msg  tea.Msg
	}{
		{"q", runes("q")},
		{"ctrl+c", tea.KeyMsg{Type: tea.KeyCtrlC}},
		{"closed subscription", StateClosedMsg{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m, _ := newTestModel(t)
			_, cmd := m.Update(tt.msg)

			require.NotNil(t, cmd)
			assert.IsType(t, tea.QuitMsg{}, cmd())
			assert.Empty(t, m.View())
		})
	}
}

func TestWaitForState(t *testing.T) {
	t.Parallel()

	states := make(chan presentation.State, 1)
	states <- presentation.State{Query: "x"}
	close(states)

	cmd := WaitForState(states)
	assert.Equal(t, StateMsg{State: presentation.State{Query: "x"}}, cmd())
	assert.Equal(t, StateClosedMsg{}, cmd())
}

func TestFit(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "ab   ", Fit("ab", 5))
	assert.Equal(t, 5, runewidth.StringWidth(Fit("abcdefgh", 5)))
	assert.Equal(t, 6, runewidth.StringWidth(Fit("写真アプリ", 6)))
}

func TestHelpMarkdownListsFieldsAndKeys(t *testing.T) {
	t.Parallel()

	md := HelpMarkdown(DefaultKeyMap())

	for _, f := range domain.Fields() {
		assert.Contains(t, md, f.Key())
	}

	assert.Contains(t, md, "next field")
}
