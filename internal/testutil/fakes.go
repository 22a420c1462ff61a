// SPDX-FileCopyrightText: 2025 The Karei Authors
// SPDX-License-Identifier: EUPL-1.2

package testutil

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/janderssonse/applist/internal/domain"
)

// FakeApp describes one package installed on a FakeDevice.
type FakeApp struct {
	Record    domain.PackageRecord
	Label     string
	Launch    bool
	Details   domain.PackageDetails
	Usage     domain.StorageUsage
	Installer string
	LastUsed  int64
	InStore   *bool

	// FailDetails makes PackageDetails fail for this package.
	FailDetails error
}

// FakeDevice is an in-memory device implementing every source port.
// It tracks how many detail lookups run at once.
type FakeDevice struct {
	Apps []FakeApp

	// DetailDelay is slept inside every PackageDetails call.
	DetailDelay time.Duration

	// ListErr makes ListInstalled fail.
	ListErr error

	inFlight    atomic.Int32
	peak        atomic.Int32
	usageCalls  atomic.Int32
	freshUsages atomic.Int32

	mu         sync.Mutex
	usageCache map[string]int64
}

// NewFakeDevice returns a device with the given apps.
func NewFakeDevice(apps ...FakeApp) *FakeDevice {
	return &FakeDevice{Apps: apps}
}

// SyntheticApps returns n launchable user apps named "App 000".. with
// packages "com.example.app000"...
func SyntheticApps(n int) []FakeApp {
	apps := make([]FakeApp, n)
	for i := range apps {
		pkg := fmt.Sprintf("com.example.app%03d", i)
		apps[i] = FakeApp{
			Record: domain.PackageRecord{
				PackageName: pkg,
				Enabled:     true,
				MinSdk:      domain.Ptr(24),
				TargetSdk:   domain.Ptr(34),
			},
			Label:   fmt.Sprintf("App %03d", i),
			Launch:  true,
			Details: domain.PackageDetails{VersionName: "1.0." + fmt.Sprint(i)},
			Usage:   domain.NewStorageUsage(int64(i)*1024, int64(i)*2048, 0, 0, 0),
		}
	}

	return apps
}

// PeakInFlight returns the highest number of concurrent detail lookups seen.
func (d *FakeDevice) PeakInFlight() int { return int(d.peak.Load()) }

// UsageCalls returns how many times LastUsedEpochs was called.
func (d *FakeDevice) UsageCalls() int { return int(d.usageCalls.Load()) }

// FreshUsageQueries returns how many LastUsedEpochs calls bypassed the cache.
func (d *FakeDevice) FreshUsageQueries() int { return int(d.freshUsages.Load()) }

func (d *FakeDevice) find(pkg string) (FakeApp, bool) {
	for _, app := range d.Apps {
		if app.Record.PackageName == pkg {
			return app, true
		}
	}

	return FakeApp{}, false
}

// ListInstalled implements domain.PackageSource.
func (d *FakeDevice) ListInstalled(_ context.Context) ([]domain.PackageRecord, error) {
	if d.ListErr != nil {
		return nil, d.ListErr
	}

	recs := make([]domain.PackageRecord, 0, len(d.Apps))
	for _, app := range d.Apps {
		recs = append(recs, app.Record)
	}

	return recs, nil
}

// LaunchablePackages implements domain.PackageSource.
func (d *FakeDevice) LaunchablePackages(_ context.Context) (map[string]struct{}, error) {
	set := make(map[string]struct{})

	for _, app := range d.Apps {
		if app.Launch {
			set[app.Record.PackageName] = struct{}{}
		}
	}

	return set, nil
}

// DisplayName implements domain.PackageSource.
func (d *FakeDevice) DisplayName(rec domain.PackageRecord) string {
	if app, ok := d.find(rec.PackageName); ok && app.Label != "" {
		return app.Label
	}

	return rec.PackageName
}

// PackageDetails implements domain.PackageSource.
func (d *FakeDevice) PackageDetails(ctx context.Context, rec domain.PackageRecord) (domain.PackageDetails, error) {
	current := d.inFlight.Add(1)
	defer d.inFlight.Add(-1)

	for {
		seen := d.peak.Load()
		if current <= seen || d.peak.CompareAndSwap(seen, current) {
			break
		}
	}

	if d.DetailDelay > 0 {
		select {
		case <-time.After(d.DetailDelay):
		case <-ctx.Done():
			return domain.PackageDetails{}, ctx.Err()
		}
	}

	app, ok := d.find(rec.PackageName)
	if !ok {
		return domain.PackageDetails{}, fmt.Errorf("%w: %s", domain.ErrPackageNotFound, rec.PackageName)
	}

	if app.FailDetails != nil {
		return domain.PackageDetails{}, app.FailDetails
	}

	return app.Details, nil
}

// InstallerOf implements domain.PackageSource.
func (d *FakeDevice) InstallerOf(_ context.Context, rec domain.PackageRecord) (string, error) {
	app, _ := d.find(rec.PackageName)
	return app.Installer, nil
}

// UsageOf implements domain.StorageSource.
func (d *FakeDevice) UsageOf(_ context.Context, rec domain.PackageRecord) domain.StorageUsage {
	app, _ := d.find(rec.PackageName)
	return app.Usage
}

// LastUsedEpochs implements domain.UsageSource with a reload-aware cache.
func (d *FakeDevice) LastUsedEpochs(_ context.Context, reload bool) (map[string]int64, error) {
	d.usageCalls.Add(1)

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.usageCache != nil && !reload {
		return d.usageCache, nil
	}

	d.freshUsages.Add(1)

	epochs := make(map[string]int64, len(d.Apps))
	for _, app := range d.Apps {
		if app.LastUsed > 0 {
			epochs[app.Record.PackageName] = app.LastUsed
		}
	}

	d.usageCache = epochs

	return epochs, nil
}

// InstallerDisplayName implements domain.StoreSource.
func (d *FakeDevice) InstallerDisplayName(installer string) string {
	if installer == "" {
		return "Unknown"
	}

	return installer
}

// ExistsInStore implements domain.StoreSource.
func (d *FakeDevice) ExistsInStore(_ context.Context, pkg, _ string) *bool {
	app, _ := d.find(pkg)
	return app.InStore
}

// StoreLink implements domain.StoreSource.
func (d *FakeDevice) StoreLink(pkg string) string {
	return "https://store.example/" + pkg
}

// FaultRecorder is a FaultReporter that keeps every report.
type FaultRecorder struct {
	mu      sync.Mutex
	reports []FaultReport
	logs    []string
}

// FaultReport is one recorded Report call.
type FaultReport struct {
	Err     error
	Context string
}

// Log implements domain.FaultReporter.
func (r *FaultRecorder) Log(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logs = append(r.logs, message)
}

// Report implements domain.FaultReporter.
func (r *FaultRecorder) Report(err error, context string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.reports = append(r.reports, FaultReport{Err: err, Context: context})
}

// Logs returns a copy of the recorded breadcrumbs.
func (r *FaultRecorder) Logs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.logs...)
}

// Reports returns a copy of the recorded reports.
func (r *FaultRecorder) Reports() []FaultReport {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]FaultReport(nil), r.reports...)
}
