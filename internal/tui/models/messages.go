// SPDX-FileCopyrightText: 2025 The Karei Authors
// SPDX-License-Identifier: EUPL-1.2

package models

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/janderssonse/applist/internal/presentation"
)

// StateMsg carries a new view model state.
type StateMsg struct {
	State presentation.State
}

// StateClosedMsg is sent once the state subscription has ended.
type StateClosedMsg struct{}

// WaitForState reads the next state from states.
func WaitForState(states <-chan presentation.State) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-states
		if !ok {
			return StateClosedMsg{}
		}

		return StateMsg{State: s}
	}
}
