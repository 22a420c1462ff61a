// SPDX-FileCopyrightText: 2025 The Karei Authors
// SPDX-License-Identifier: EUPL-1.2

// Package application implements the app aggregation use cases: loading,
// sorting, filtering and summarising installed applications.
package application

import (
	"context"
	"fmt"
	"time"

	"github.com/janderssonse/applist/internal/domain"
	"github.com/janderssonse/applist/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
)

// MaxConcurrentDetails caps simultaneous per-package detail fetches.
const MaxConcurrentDetails = 4

// Phase tells how complete the apps of a Snapshot are.
type Phase int

// Snapshot phases, in emission order.
const (
	PhaseBasic Phase = iota
	PhaseDetailed
)

func (p Phase) String() string {
	if p == PhaseDetailed {
		return "detailed"
	}

	return "basic"
}

// Snapshot is one sorted emission of an aggregation run.
type Snapshot struct {
	Phase Phase
	Apps  []domain.App
}

// LoadOptions selects what a run loads and how it is ordered.
type LoadOptions struct {
	Field      domain.Field
	ShowSystem bool
	Descending bool
	Reload     bool
}

// AppRepository aggregates the package, storage, usage and store sources
// into sorted app lists.
type AppRepository struct {
	packages domain.PackageSource
	storage  domain.StorageSource
	usage    domain.UsageSource
	store    domain.StoreSource
	faults   domain.FaultReporter

	logger      *zap.Logger
	metrics     *metrics.Metrics
	concurrency int
	language    language.Tag
}

// Option configures an AppRepository.
type Option func(*AppRepository)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *AppRepository) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *AppRepository) { r.metrics = m }
}

// WithConcurrency lowers the detail fetch limit. Values outside
// 1..MaxConcurrentDetails are ignored.
func WithConcurrency(n int) Option {
	return func(r *AppRepository) {
		if n >= 1 && n <= MaxConcurrentDetails {
			r.concurrency = n
		}
	}
}

// WithLanguage sets the collation language of the name tie-break.
func WithLanguage(tag language.Tag) Option {
	return func(r *AppRepository) { r.language = tag }
}

// NewAppRepository creates a repository over the given sources.
func NewAppRepository(
	packages domain.PackageSource,
	storage domain.StorageSource,
	usage domain.UsageSource,
	store domain.StoreSource,
	faults domain.FaultReporter,
	opts ...Option,
) *AppRepository {
	r := &AppRepository{
		packages:    packages,
		storage:     storage,
		usage:       usage,
		store:       store,
		faults:      faults,
		logger:      zap.NewNop(),
		concurrency: MaxConcurrentDetails,
		language:    language.Und,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// LoadApps starts a run and returns its snapshots: the basic one, then the
// detailed one. The channel closes after both, or earlier if ctx is
// cancelled or enumeration fails.
func (r *AppRepository) LoadApps(ctx context.Context, opts LoadOptions) <-chan Snapshot {
	out := make(chan Snapshot, 2)

	go func() {
		defer close(out)

		_ = r.Load(ctx, opts, func(s Snapshot) {
			select {
			case out <- s:
			case <-ctx.Done():
			}
		})
	}()

	return out
}

// Load runs one aggregation synchronously, passing each snapshot to emit.
// The returned error is non-nil only when enumeration failed or ctx ended.
func (r *AppRepository) Load(ctx context.Context, opts LoadOptions, emit func(Snapshot)) error {
	start := time.Now()

	r.faults.Log("loading apps by " + opts.Field.Key())

	visible, err := r.enumerate(ctx, opts.ShowSystem)
	if err != nil {
		r.faults.Report(err, "enumerating installed packages")
		r.metrics.RunFinished("failed", time.Since(start))

		return err
	}

	basics := make([]domain.App, len(visible))
	for i, rec := range visible {
		basics[i] = r.basicApp(rec)
	}

	r.emit(emit, PhaseBasic, SortApps(basics, opts.Field, opts.Descending, r.language))
	r.faults.Log(fmt.Sprintf("basic list ready with %d apps", len(basics)))

	if err := ctx.Err(); err != nil {
		r.metrics.RunFinished("cancelled", time.Since(start))
		return err
	}

	lastUsed, err := r.usage.LastUsedEpochs(ctx, opts.Reload)
	if err != nil {
		r.faults.Report(err, "querying usage statistics")

		lastUsed = map[string]int64{}
	}

	detailed := make([]domain.App, len(visible))

	var group errgroup.Group

	group.SetLimit(r.concurrency)

	for i, rec := range visible {
		group.Go(func() error {
			detailed[i] = r.detailOrFallback(ctx, rec, basics[i], lastUsed)
			return nil
		})
	}

	_ = group.Wait()

	if err := ctx.Err(); err != nil {
		r.metrics.RunFinished("cancelled", time.Since(start))
		return err
	}

	r.emit(emit, PhaseDetailed, SortApps(detailed, opts.Field, opts.Descending, r.language))
	r.metrics.RunFinished("ok", time.Since(start))

	r.logger.Debug("aggregation finished",
		zap.Int("apps", len(detailed)),
		zap.Stringer("field", opts.Field),
		zap.Duration("elapsed", time.Since(start)))

	return nil
}

// StoreLink returns the store listing URL of pkg.
func (r *AppRepository) StoreLink(pkg string) string {
	return r.store.StoreLink(pkg)
}

func (r *AppRepository) emit(emit func(Snapshot), phase Phase, apps []domain.App) {
	r.metrics.SnapshotEmitted(phase.String(), len(apps))
	emit(Snapshot{Phase: phase, Apps: apps})
}

func (r *AppRepository) enumerate(ctx context.Context, showSystem bool) ([]domain.PackageRecord, error) {
	installed, err := r.packages.ListInstalled(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list installed packages: %w", err)
	}

	launchable, err := r.packages.LaunchablePackages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list launchable packages: %w", err)
	}

	visible := make([]domain.PackageRecord, 0, len(installed))
	seen := make(map[string]struct{}, len(installed))

	for _, rec := range installed {
		if rec.PackageName == "" {
			continue
		}

		if _, dup := seen[rec.PackageName]; dup {
			continue
		}

		if IsVisible(rec, launchable, showSystem) {
			seen[rec.PackageName] = struct{}{}
			visible = append(visible, rec)
		}
	}

	return visible, nil
}

func (r *AppRepository) basicApp(rec domain.PackageRecord) domain.App {
	return domain.App{
		PackageName: rec.PackageName,
		Name:        r.packages.DisplayName(rec),
		Archived:    domain.Ptr(rec.IsArchived()),
		MinSdk:      rec.MinSdk,
		TargetSdk:   rec.TargetSdk,
		Enabled:     rec.Enabled,
	}
}

// detailOrFallback never fails: any error yields the basic record and one
// fault report naming the package.
func (r *AppRepository) detailOrFallback(
	ctx context.Context,
	rec domain.PackageRecord,
	basic domain.App,
	lastUsed map[string]int64,
) domain.App {
	if ctx.Err() != nil {
		return basic
	}

	done := r.metrics.DetailStarted()

	app, err := r.detailedApp(ctx, rec, basic, lastUsed)
	if err != nil {
		done(true)

		// The run is abandoned; a cancelled fetch is not a fault.
		if ctx.Err() != nil {
			return basic
		}

		r.logger.Warn("falling back to basic record",
			zap.String("package", rec.PackageName), zap.Error(err))
		r.faults.Report(err, "loading details of "+rec.PackageName)

		return basic
	}

	done(false)

	return app
}

func (r *AppRepository) detailedApp(
	ctx context.Context,
	rec domain.PackageRecord,
	basic domain.App,
	lastUsed map[string]int64,
) (domain.App, error) {
	details, err := r.packages.PackageDetails(ctx, rec)
	if err != nil {
		return domain.App{}, fmt.Errorf("package details of %s: %w", rec.PackageName, err)
	}

	sizes := r.storage.UsageOf(ctx, rec)

	installer, err := r.packages.InstallerOf(ctx, rec)
	if err != nil {
		return domain.App{}, fmt.Errorf("installer of %s: %w", rec.PackageName, err)
	}

	app := basic
	app.VersionName = domain.Ptr(details.VersionName)
	app.FirstInstalled = domain.Ptr(details.FirstInstallTime)
	app.LastUpdated = domain.Ptr(details.LastUpdateTime)
	app.LastUsed = lastUsed[rec.PackageName]
	app.Sizes = sizes
	app.InstallerName = domain.Ptr(r.store.InstallerDisplayName(installer))
	app.ExistsInStore = r.store.ExistsInStore(ctx, rec.PackageName, installer)
	app.GrantedPermissions = domain.Ptr(len(details.GrantedPermissions))
	app.RequestedPermissions = domain.Ptr(len(details.RequestedPermissions))
	app.Detailed = true

	return app, nil
}
