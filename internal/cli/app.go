// SPDX-FileCopyrightText: 2025 The Karei Authors
// SPDX-License-Identifier: EUPL-1.2

// Package cli provides the applist command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	cliAdapter "github.com/janderssonse/applist/internal/adapters/cli"
	"github.com/janderssonse/applist/internal/adapters/platform"
	"github.com/janderssonse/applist/internal/config"
	"github.com/janderssonse/applist/internal/console"
	"github.com/janderssonse/applist/internal/domain"
	"github.com/janderssonse/applist/internal/logging"
	"github.com/janderssonse/applist/internal/metrics"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// Exit codes follow standard Unix conventions for better scripting support.
const (
	ExitSuccess         = 0  // Operation completed successfully
	ExitGeneralError    = 1  // Generic failure (catch-all)
	ExitUsageError      = 2  // Invalid command line usage
	ExitConfigError     = 3  // Configuration file error
	ExitPermissionError = 4  // Permission denied on the device
	ExitNotFoundError   = 5  // Requested resource not found
	ExitDependencyError = 10 // adb missing
	ExitNetworkError    = 11 // Store check transport failed
	ExitTimeoutError    = 13 // Operation timed out
	ExitInterruptError  = 14 // User interrupted (Ctrl+C)
	ExitDeviceError     = 20 // No usable device
)

// DefaultTimeout bounds one whole command.
const DefaultTimeout = 5 * time.Minute

// Version is set at build time.
var Version = "dev" //nolint:gochecknoglobals // set via -ldflags

var (
	// ErrADBNotFound is returned when the adb binary is not on PATH.
	ErrADBNotFound = errors.New("adb not found")
	// ErrUnknownSubcommand is returned for unknown config subcommands.
	ErrUnknownSubcommand = errors.New("unknown subcommand")
)

// CLI holds global flags and the services shared by all commands.
type CLI struct {
	app *cli.Command

	verbose     bool
	json        bool
	quiet       bool
	serial      string
	configPath  string
	lockPath    string
	metricsFile string
	timeout     time.Duration

	cfg     *config.Config
	logger  *zap.Logger
	metrics *metrics.Metrics
	output  *cliAdapter.OutputAdapter
	console *console.OutputState

	stdout io.Writer
	runner domain.CommandRunner

	// sources overrides the adb-backed sources, for tests.
	sources func() (Sources, error)
}

// NewCLI creates the applist command tree.
func NewCLI() *CLI {
	app := &CLI{
		stdout:   os.Stdout,
		console:  console.DefaultOutput,
		lockPath: config.LockPath(),
	}

	app.app = &cli.Command{
		Name:    "applist",
		Usage:   "List the apps installed on an Android device",
		Version: Version,
		Suggest: true,
		Description: `Aggregates installed packages of a device reached over adb, with sizes,
install dates, permissions, installer and store availability.

EXAMPLES:
  applist list --field total-size --desc   Largest apps first
  applist list --query maps                Apps matching "maps"
  applist summary --field total-size       Apps per size class
  applist tui                              Interactive list`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "verbose",
				Usage:       "show progress messages and debug logs on stderr",
				Aliases:     []string{"v"},
				Destination: &app.verbose,
			},
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "output structured JSON results",
				Aliases:     []string{"j"},
				Destination: &app.json,
			},
			&cli.BoolFlag{
				Name:        "quiet",
				Usage:       "suppress non-essential output",
				Aliases:     []string{"q"},
				Destination: &app.quiet,
			},
			&cli.StringFlag{
				Name:        "serial",
				Usage:       "device serial (overrides config and ANDROID_SERIAL)",
				Aliases:     []string{"s"},
				Sources:     cli.EnvVars("ANDROID_SERIAL"),
				Destination: &app.serial,
			},
			&cli.StringFlag{
				Name:        "config",
				Usage:       "config file path",
				Value:       config.DefaultPath(),
				Destination: &app.configPath,
			},
			&cli.DurationFlag{
				Name:        "timeout",
				Usage:       "timeout for the whole command (0 = no timeout)",
				Value:       DefaultTimeout,
				Destination: &app.timeout,
			},
			&cli.StringFlag{
				Name:        "metrics-file",
				Usage:       "write run metrics in textfile exporter format to this path",
				Destination: &app.metricsFile,
			},
		},
		Before:   app.initConfig,
		After:    app.finish,
		Action:   app.defaultAction,
		Commands: app.createCommands(),
	}

	return app
}

// Run executes the CLI application.
func (app *CLI) Run(ctx context.Context, args []string) error {
	return app.app.Run(ctx, args)
}

func (app *CLI) createCommands() []*cli.Command {
	return []*cli.Command{
		app.createListCommand(),
		app.createSummaryCommand(),
		app.createFieldsCommand(),
		app.createDevicesCommand(),
		app.createTUICommand(),
		app.createConfigCommand(),
	}
}

// initConfig loads the config file and builds logger, metrics and output.
func (app *CLI) initConfig(ctx context.Context, _ *cli.Command) (context.Context, error) {
	if app.json && app.verbose {
		app.verbose = false
	}

	app.console.SetMode(app.verbose, app.json, app.quiet)
	app.output = cliAdapter.NewOutputAdapterWithWriter(app.stdout, outputFormat(app.json), app.quiet)
	app.metrics = metrics.New()

	cfg, err := config.Load(config.ExpandPath(app.configPath))
	if err != nil {
		return ctx, domain.NewExitError(ExitConfigError, "Invalid configuration", err)
	}

	if app.serial != "" {
		cfg.Serial = app.serial
	}

	if app.verbose {
		cfg.Log.Level = "debug"
	}

	app.cfg = cfg
	app.logger = logging.NewOrNop(cfg.Log)

	if app.runner == nil {
		app.runner = platform.NewCommandRunner(app.logger.Named("exec"))
	}

	return ctx, nil
}

// finish writes the metrics file and flushes the logger.
func (app *CLI) finish(_ context.Context, _ *cli.Command) error {
	if app.logger != nil {
		_ = app.logger.Sync()
	}

	if app.metricsFile == "" || app.metrics == nil {
		return nil
	}

	if err := app.metrics.WriteTextfile(app.metricsFile); err != nil {
		app.console.Warningf("failed to write metrics: %v", err)
	}

	return nil
}

// defaultAction opens the TUI on a terminal and prints help otherwise.
func (app *CLI) defaultAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Present() {
		return domain.NewExitError(ExitUsageError,
			fmt.Sprintf("'%s' is not a command. Run 'applist --help'", cmd.Args().First()), nil)
	}

	if !app.json && app.console.Interactive() {
		return app.deviceLocked(app.runTUI)(ctx, cmd)
	}

	return cli.ShowAppHelp(cmd)
}

// withTimeout applies the --timeout flag to ctx.
func (app *CLI) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if app.timeout > 0 {
		return context.WithTimeout(ctx, app.timeout)
	}

	return context.WithCancel(ctx)
}

func outputFormat(json bool) cliAdapter.OutputFormat {
	if json {
		return cliAdapter.JSONFormat
	}

	return cliAdapter.TextFormat
}

// exitError maps err to an ExitError with a user-facing message.
func (app *CLI) exitError(err error) error {
	if err == nil {
		return nil
	}

	var exitErr *domain.ExitError
	if errors.As(err, &exitErr) {
		return err
	}

	code := ExitGeneralError

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		code = ExitTimeoutError
	case errors.Is(err, context.Canceled):
		code = ExitInterruptError
	case errors.Is(err, ErrADBNotFound):
		code = ExitDependencyError
	case errors.Is(err, domain.ErrNoDevice):
		code = ExitDeviceError
	case errors.Is(err, domain.ErrPermissionDenied):
		code = ExitPermissionError
	case errors.Is(err, domain.ErrInvalidField):
		code = ExitUsageError
	case errors.Is(err, domain.ErrPackageNotFound):
		code = ExitNotFoundError
	case errors.Is(err, domain.ErrNetworkFailure):
		code = ExitNetworkError
	case errors.Is(err, config.ErrInvalidConfig):
		code = ExitConfigError
	}

	return domain.NewExitError(code, domain.FormatErrorMessage(err, app.verbose), err)
}
