// SPDX-FileCopyrightText: 2025 The Karei Authors
// SPDX-License-Identifier: EUPL-1.2

// Package tui runs the interactive app list.
package tui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/janderssonse/applist/internal/presentation"
	"github.com/janderssonse/applist/internal/tui/models"
	"github.com/janderssonse/applist/internal/tui/styles"
)

// ErrNoTerminal is returned when the TUI is launched in a non-terminal environment.
var ErrNoTerminal = errors.New("TUI requires a terminal environment")

// ViewModel is what the TUI needs from the presentation layer.
type ViewModel interface {
	models.Dispatcher
	Subscribe() (<-chan presentation.State, func())
}

// NewModel subscribes to vm and returns the root model with its
// unsubscribe func. The first run starts once init is dispatched.
func NewModel(vm ViewModel, helpStyle string) (*models.ListModel, func()) {
	states, unsubscribe := vm.Subscribe()

	return models.NewListModel(styles.New(), vm, states, helpStyle), unsubscribe
}

// Run shows the app list until the user quits or ctx ends.
func Run(ctx context.Context, vm ViewModel, init presentation.Init) error {
	model, unsubscribe := NewModel(vm, models.AutoStyle)
	defer unsubscribe()

	vm.Dispatch(init)

	program := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)

	if _, err := program.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return ctx.Err()
		}

		return fmt.Errorf("TUI application failed: %w", err)
	}

	return nil
}
