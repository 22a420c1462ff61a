// SPDX-FileCopyrightText: 2025 The Karei Authors
// SPDX-License-Identifier: EUPL-1.2

package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/janderssonse/applist/internal/application"
	"github.com/janderssonse/applist/internal/config"
	"github.com/janderssonse/applist/internal/domain"
	"github.com/urfave/cli/v3"
)

// Flag names shared by several commands.
const (
	flagField  = "field"
	flagDesc   = "desc"
	flagSystem = "system"
	flagReload = "reload"
)

func fieldFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    flagField,
		Aliases: []string{"f"},
		Usage:   "field to order or group by (see 'applist fields')",
	}
}

func systemFlag() *cli.BoolFlag {
	return &cli.BoolFlag{
		Name:  flagSystem,
		Usage: "include system packages",
	}
}

func reloadFlag() *cli.BoolFlag {
	return &cli.BoolFlag{
		Name:  flagReload,
		Usage: "discard cached usage statistics",
	}
}

func (app *CLI) createListCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List installed apps ordered by a field",
		Description: `Loads every visible app, then its details, and prints the detailed list.

EXAMPLES:
  applist list --field last-used --desc
  applist list --system --query google
  applist list --basic --json`,
		Flags: []cli.Flag{
			fieldFlag(),
			&cli.BoolFlag{Name: flagDesc, Aliases: []string{"d"}, Usage: "descending order"},
			systemFlag(),
			&cli.StringFlag{Name: "query", Usage: "only apps whose name, package or value contains this"},
			reloadFlag(),
			&cli.BoolFlag{Name: "basic", Usage: "print the fast first pass only"},
			&cli.BoolFlag{Name: "pick", Usage: "choose the field interactively"},
		},
		Action: app.deviceLocked(app.runList),
	}
}

func (app *CLI) createSummaryCommand() *cli.Command {
	return &cli.Command{
		Name:  "summary",
		Usage: "Count apps per category of a field",
		Flags: []cli.Flag{
			fieldFlag(),
			&cli.BoolFlag{Name: "all", Usage: "summarise every field that has categories"},
			systemFlag(),
			reloadFlag(),
		},
		Action: app.deviceLocked(app.runSummary),
	}
}

func (app *CLI) createFieldsCommand() *cli.Command {
	return &cli.Command{
		Name:   "fields",
		Usage:  "List the fields apps can be ordered by",
		Action: app.runFields,
	}
}

func (app *CLI) createDevicesCommand() *cli.Command {
	return &cli.Command{
		Name:   "devices",
		Usage:  "List devices visible to adb",
		Action: app.runDevices,
	}
}

func (app *CLI) createTUICommand() *cli.Command {
	return &cli.Command{
		Name:   "tui",
		Usage:  "Browse apps interactively",
		Flags:  []cli.Flag{fieldFlag(), systemFlag()},
		Action: app.deviceLocked(app.runTUI),
	}
}

func (app *CLI) createConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Show or create the config file",
		Commands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Print the effective configuration",
				Action: app.runConfigShow,
			},
			{
				Name:   "path",
				Usage:  "Print the config file path",
				Action: app.runConfigPath,
			},
			{
				Name:  "init",
				Usage: "Write a default config file",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "force", Usage: "replace an existing file"},
				},
				Action: app.runConfigInit,
			},
		},
	}
}

// selectedField resolves --field, falling back to the configured default.
func (app *CLI) selectedField(cmd *cli.Command) (domain.Field, error) {
	if !cmd.IsSet(flagField) {
		return app.cfg.Field(), nil
	}

	field, err := domain.ParseField(cmd.String(flagField))
	if err != nil {
		return 0, domain.NewExitError(ExitUsageError, domain.FormatErrorMessage(err, app.verbose), err)
	}

	return field, nil
}

func (app *CLI) showSystem(cmd *cli.Command) bool {
	if cmd.IsSet(flagSystem) {
		return cmd.Bool(flagSystem)
	}

	return app.cfg.ShowSystem
}

// load runs one aggregation and returns its last snapshot. With basicOnly
// the run stops after the first pass.
func (app *CLI) load(
	ctx context.Context,
	repo *application.AppRepository,
	opts application.LoadOptions,
	basicOnly bool,
) (application.Snapshot, error) {
	ctx, cancel := app.withTimeout(ctx)
	defer cancel()

	var (
		last application.Snapshot
		got  bool
	)

	err := repo.Load(ctx, opts, func(s application.Snapshot) {
		last, got = s, true

		if s.Phase == application.PhaseBasic {
			app.console.Progressf("Found %d apps, loading details...", len(s.Apps))

			if basicOnly {
				cancel()
			}
		}
	})

	if basicOnly && got && errors.Is(err, context.Canceled) {
		return last, nil
	}

	if err != nil {
		return application.Snapshot{}, err
	}

	return last, nil
}

func (app *CLI) runList(ctx context.Context, cmd *cli.Command) error {
	field, err := app.selectedField(cmd)
	if err != nil {
		return err
	}

	if cmd.Bool("pick") {
		if field, err = app.pickField(field); err != nil {
			return app.exitError(err)
		}
	}

	opts := application.LoadOptions{
		Field:      field,
		ShowSystem: app.showSystem(cmd),
		Descending: cmd.Bool(flagDesc),
		Reload:     cmd.Bool(flagReload),
	}

	start := time.Now()

	repo, err := app.repository()
	if err != nil {
		return app.exitError(err)
	}

	snapshot, err := app.load(ctx, repo, opts, cmd.Bool("basic"))
	if err != nil {
		return app.exitError(err)
	}

	detailed := snapshot.Phase == application.PhaseDetailed
	if detailed && field.NeedsUsage() && !anyUsed(snapshot.Apps) {
		app.console.Warningf("No usage statistics; allow usage access on the device to see %s", field.Title())
	}

	query := cmd.String("query")
	apps := application.FilterApps(snapshot.Apps, field, query)

	rows := make([]domain.AppRow, len(apps))
	for i, a := range apps {
		rows[i] = domain.AppRow{App: a, Value: field.Format(a)}

		if a.ExistsInStore != nil && *a.ExistsInStore {
			rows[i].StoreURL = repo.StoreLink(a.PackageName)
		}
	}

	return app.output.Apps(domain.ListResult{
		Field:      field.Key(),
		Descending: opts.Descending,
		ShowSystem: opts.ShowSystem,
		Query:      query,
		Detailed:   detailed,
		Apps:       rows,
		Total:      len(rows),
		Duration:   time.Since(start).Round(time.Millisecond).String(),
		Timestamp:  time.Now(),
	})
}

func anyUsed(apps []domain.App) bool {
	for _, a := range apps {
		if a.LastUsed > 0 {
			return true
		}
	}

	return false
}

func (app *CLI) runSummary(ctx context.Context, cmd *cli.Command) error {
	field, err := app.selectedField(cmd)
	if err != nil {
		return err
	}

	repo, err := app.repository()
	if err != nil {
		return app.exitError(err)
	}

	snapshot, err := app.load(ctx, repo, application.LoadOptions{
		Field:      field,
		ShowSystem: app.showSystem(cmd),
		Reload:     cmd.Bool(flagReload),
	}, false)
	if err != nil {
		return app.exitError(err)
	}

	if cmd.Bool("all") {
		return app.summaryAll(snapshot.Apps)
	}

	result := domain.SummaryResult{
		Field:     field.Key(),
		Total:     len(snapshot.Apps),
		Timestamp: time.Now(),
	}

	if summary := application.CalculateSummary(snapshot.Apps, field); summary != nil {
		result.Buckets = summary.Buckets
	}

	return app.output.Summary(result)
}

func (app *CLI) summaryAll(apps []domain.App) error {
	results := domain.SummaryResults{Timestamp: time.Now()}

	var titles []string

	for _, summary := range application.CalculateAll(apps) {
		titles = append(titles, summary.Field.Title())
		results.Summaries = append(results.Summaries, domain.SummaryResult{
			Field:     summary.Field.Key(),
			Buckets:   summary.Buckets,
			Total:     len(apps),
			Timestamp: results.Timestamp,
		})
	}

	if app.json {
		return app.output.Success("", results)
	}

	for i, result := range results.Summaries {
		if i > 0 {
			_, _ = fmt.Fprintln(app.stdout)
		}

		_, _ = fmt.Fprintln(app.stdout, app.console.Bold(titles[i]))

		if err := app.output.Summary(result); err != nil {
			return err
		}
	}

	return nil
}

func (app *CLI) runFields(_ context.Context, _ *cli.Command) error {
	groups := map[domain.SummaryGroup]string{
		domain.GroupNone:        "-",
		domain.GroupBoolean:     "yes/no",
		domain.GroupSize:        "size",
		domain.GroupSdk:         "sdk",
		domain.GroupPermissions: "count",
	}

	rows := make([][]string, 0, len(domain.Fields()))
	for _, f := range domain.Fields() {
		rows = append(rows, []string{f.Key(), f.Title(), groups[f.Group()]})
	}

	return app.output.Table([]string{"Field", "Title", "Summary"}, rows)
}

func (app *CLI) runDevices(ctx context.Context, _ *cli.Command) error {
	client, err := app.adbClient()
	if err != nil {
		return app.exitError(err)
	}

	ctx, cancel := app.withTimeout(ctx)
	defer cancel()

	devices, err := client.Devices(ctx)
	if err != nil {
		return app.exitError(err)
	}

	return app.output.Devices(devices)
}

func (app *CLI) runConfigShow(_ context.Context, _ *cli.Command) error {
	if app.json {
		return app.output.Success("", app.cfg)
	}

	data, err := app.cfg.Encode()
	if err != nil {
		return app.exitError(err)
	}

	_, _ = fmt.Fprint(app.stdout, string(data))

	return nil
}

func (app *CLI) runConfigPath(_ context.Context, _ *cli.Command) error {
	_, _ = fmt.Fprintln(app.stdout, config.ExpandPath(app.configPath))

	return nil
}

func (app *CLI) runConfigInit(_ context.Context, cmd *cli.Command) error {
	path := config.ExpandPath(app.configPath)

	if err := config.WriteDefault(path, cmd.Bool("force")); err != nil {
		return domain.NewExitError(ExitConfigError, fmt.Sprintf("Cannot write %s (use --force to replace)", path), err)
	}

	app.console.Successf("Wrote %s", path)

	return app.output.Success("", map[string]string{"path": path})
}
