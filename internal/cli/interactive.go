// SPDX-FileCopyrightText: 2025 The Karei Authors
// SPDX-License-Identifier: EUPL-1.2

package cli

import (
	"context"
	"errors"

	"github.com/charmbracelet/huh"
	"github.com/janderssonse/applist/internal/domain"
	"github.com/janderssonse/applist/internal/presentation"
	"github.com/janderssonse/applist/internal/tui"
	"github.com/urfave/cli/v3"
)

// ErrNotInteractive is returned when a prompt needs a terminal.
var ErrNotInteractive = errors.New("not running in a terminal")

// fieldOptions lists every field as a select option, keyed by field key.
func fieldOptions() []huh.Option[string] {
	options := make([]huh.Option[string], 0, len(domain.Fields()))
	for _, f := range domain.Fields() {
		options = append(options, huh.NewOption(f.Title(), f.Key()))
	}

	return options
}

// pickField asks for a field, starting at current.
func (app *CLI) pickField(current domain.Field) (domain.Field, error) {
	if !app.console.Interactive() {
		return current, domain.NewExitError(ExitUsageError, "--pick needs a terminal", ErrNotInteractive)
	}

	key := current.Key()

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Order apps by").
				Options(fieldOptions()...).
				Value(&key),
		),
	)

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return current, domain.NewExitError(ExitInterruptError, "Cancelled", err)
		}

		return current, err
	}

	return domain.ParseField(key)
}

func (app *CLI) runTUI(ctx context.Context, cmd *cli.Command) error {
	field := app.cfg.Field()

	if cmd.IsSet(flagField) {
		var err error
		if field, err = app.selectedField(cmd); err != nil {
			return err
		}
	}

	repo, err := app.repository()
	if err != nil {
		return app.exitError(err)
	}

	vm := presentation.NewViewModel(ctx, repo, app.logger.Named("viewmodel"))
	defer vm.Close()

	init := presentation.Init{Field: field, ShowSystem: app.showSystem(cmd)}

	if err := tui.Run(ctx, vm, init); err != nil {
		if errors.Is(err, context.Canceled) {
			return app.exitError(err)
		}

		return domain.NewExitError(ExitGeneralError, "Failed to run interactive interface (terminal required)", err)
	}

	return nil
}
