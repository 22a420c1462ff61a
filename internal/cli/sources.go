// SPDX-FileCopyrightText: 2025 The Karei Authors
// SPDX-License-Identifier: EUPL-1.2

package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/janderssonse/applist/internal/adapters/android"
	"github.com/janderssonse/applist/internal/adapters/fault"
	"github.com/janderssonse/applist/internal/adapters/playstore"
	"github.com/janderssonse/applist/internal/application"
	"github.com/janderssonse/applist/internal/domain"
	"golang.org/x/text/language"
)

// Sources bundles the ports an aggregation run reads from.
type Sources struct {
	Packages domain.PackageSource
	Storage  domain.StorageSource
	Usage    domain.UsageSource
	Store    domain.StoreSource
	Faults   domain.FaultReporter
}

// adbClient builds a client from the loaded config.
func (app *CLI) adbClient() (*android.Client, error) {
	client := android.NewClient(app.runner, android.Options{
		ADBPath: app.cfg.ADBPath,
		Serial:  app.cfg.Serial,
		Timeout: app.cfg.CommandTimeout.Duration,
	}, app.logger.Named("adb"))

	if !client.Available() {
		return nil, fmt.Errorf("%w: %s (install Android platform-tools or set adb_path)", ErrADBNotFound, app.cfg.ADBPath)
	}

	return client, nil
}

func (app *CLI) buildSources() (Sources, error) {
	if app.sources != nil {
		return app.sources()
	}

	client, err := app.adbClient()
	if err != nil {
		return Sources{}, err
	}

	return Sources{
		Packages: android.NewPackageService(client, app.cfg.Labels, app.logger.Named("packages")),
		Storage:  android.NewStorageService(client, app.logger.Named("storage")),
		Usage:    android.NewUsageStatsService(client, app.metrics, app.logger.Named("usage")),
		Store: playstore.New(playstore.Options{
			Enabled:           app.cfg.Store.Enabled,
			BaseURL:           playstore.DefaultBaseURL,
			Timeout:           app.cfg.Store.Timeout.Duration,
			RequestsPerSecond: app.cfg.Store.RequestsPerSecond,
			MaxRetries:        playstore.DefaultOptions().MaxRetries,
		}, app.metrics, app.logger.Named("store")),
		Faults: fault.NewReporter(app.cfg.CrashReporting, app.metrics, app.logger),
	}, nil
}

// repository builds the aggregation over the configured sources.
func (app *CLI) repository() (*application.AppRepository, error) {
	src, err := app.buildSources()
	if err != nil {
		return nil, err
	}

	return application.NewAppRepository(src.Packages, src.Storage, src.Usage, src.Store, src.Faults,
		application.WithLogger(app.logger.Named("repository")),
		application.WithMetrics(app.metrics),
		application.WithLanguage(LocaleTag()),
	), nil
}

// LocaleTag returns the collation language from LC_ALL, LC_COLLATE or LANG.
func LocaleTag() language.Tag {
	for _, key := range []string{"LC_ALL", "LC_COLLATE", "LANG"} {
		if tag, ok := parseLocale(os.Getenv(key)); ok {
			return tag
		}
	}

	return language.Und
}

// parseLocale turns "sv_SE.UTF-8" into sv-SE.
func parseLocale(value string) (language.Tag, bool) {
	value, _, _ = strings.Cut(value, ".")
	value, _, _ = strings.Cut(value, "@")

	if value == "" || value == "C" || value == "POSIX" {
		return language.Und, false
	}

	tag, err := language.Parse(strings.ReplaceAll(value, "_", "-"))
	if err != nil {
		return language.Und, false
	}

	return tag, true
}
