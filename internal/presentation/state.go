// SPDX-FileCopyrightText: 2025 The Karei Authors
// SPDX-License-Identifier: EUPL-1.2

// Package presentation holds the UI state of the app list and the pure
// reducer that derives it from user and loader events.
package presentation

import (
	"github.com/janderssonse/applist/internal/application"
	"github.com/janderssonse/applist/internal/domain"
)

// Item is one rendered row.
type Item struct {
	PackageName string
	AppName     string
	InfoText    string

	// Loading marks a row whose detailed record has not arrived yet.
	Loading bool
}

// State is the complete UI state. It is replaced, never mutated, on every
// transition.
type State struct {
	SelectedField domain.Field
	ShowSystem    bool
	Descending    bool
	Query         string
	Loading       bool
	FullyLoaded   bool
	Items         []Item
	FilteredApps  []domain.App
	Summary       *application.Summary

	// Apps is the unfiltered content of the last accepted snapshot.
	Apps  []domain.App
	Phase application.Phase

	// Err is the enumeration error of the current run, if any.
	Err error

	// Generation identifies the current run. Loader results carrying any
	// other generation are dropped.
	Generation uint64
}

// Options returns the load options matching s.
func (s State) Options(reload bool) application.LoadOptions {
	return application.LoadOptions{
		Field:      s.SelectedField,
		ShowSystem: s.ShowSystem,
		Descending: s.Descending,
		Reload:     reload,
	}
}

// Event is an input of Reduce.
type Event interface {
	event()
}

// Init starts the first run with the given field and system visibility.
type Init struct {
	Field      domain.Field
	ShowSystem bool
}

// SelectField changes the sort field.
type SelectField struct{ Field domain.Field }

// ToggleDescending flips the sort direction.
type ToggleDescending struct{}

// SetShowSystem changes system app visibility.
type SetShowSystem struct{ Show bool }

// SetQuery changes the free-text filter.
type SetQuery struct{ Query string }

// Refresh reloads everything.
type Refresh struct{}

// Loaded delivers a snapshot of the run with the given generation.
type Loaded struct {
	Generation uint64
	Snapshot   application.Snapshot
}

// LoadFailed ends the run with the given generation without data.
type LoadFailed struct {
	Generation uint64
	Err        error
}

func (Init) event()             {}
func (SelectField) event()      {}
func (ToggleDescending) event() {}
func (SetShowSystem) event()    {}
func (SetQuery) event()         {}
func (Refresh) event()          {}
func (Loaded) event()           {}
func (LoadFailed) event()       {}

// Load asks the caller to start an aggregation run.
type Load struct {
	Generation uint64
	Options    application.LoadOptions
}

// InitialState is the state before Init.
func InitialState() State {
	return State{SelectedField: domain.FieldVersion}
}

// Reduce returns the state following ev and, when a new run is needed, the
// Load to perform. It has no side effects.
func Reduce(s State, ev Event) (State, *Load) {
	switch ev := ev.(type) {
	case Init:
		s.SelectedField = ev.Field
		s.ShowSystem = ev.ShowSystem

		return startRun(s, false)
	case SelectField:
		s.SelectedField = ev.Field
		return startRun(s, false)
	case ToggleDescending:
		s.Descending = !s.Descending
		return startRun(s, false)
	case SetShowSystem:
		s.ShowSystem = ev.Show
		return startRun(s, true)
	case Refresh:
		return startRun(s, true)
	case SetQuery:
		s.Query = ev.Query
		return derive(s), nil
	case Loaded:
		if ev.Generation != s.Generation {
			return s, nil
		}

		s.Apps = ev.Snapshot.Apps
		s.Phase = ev.Snapshot.Phase
		s.Err = nil
		s.FullyLoaded = ev.Snapshot.Phase == application.PhaseDetailed
		s.Loading = !s.FullyLoaded

		return derive(s), nil
	case LoadFailed:
		if ev.Generation != s.Generation {
			return s, nil
		}

		s.Loading = false
		s.Err = ev.Err

		return s, nil
	default:
		return s, nil
	}
}

func startRun(s State, reload bool) (State, *Load) {
	s.Generation++
	s.Loading = true
	s.Err = nil

	return derive(s), &Load{Generation: s.Generation, Options: s.Options(reload)}
}

// derive recomputes the filtered apps, items and summary from s.Apps.
func derive(s State) State {
	s.FilteredApps = application.FilterApps(s.Apps, s.SelectedField, s.Query)

	items := make([]Item, len(s.FilteredApps))
	for i, app := range s.FilteredApps {
		items[i] = Item{
			PackageName: app.PackageName,
			AppName:     app.Name,
			InfoText:    s.SelectedField.Format(app),
			Loading:     s.Phase == application.PhaseBasic && !app.Detailed,
		}
	}

	s.Items = items
	s.Summary = nil

	if s.FullyLoaded {
		s.Summary = application.CalculateSummary(s.FilteredApps, s.SelectedField)
	}

	return s
}
