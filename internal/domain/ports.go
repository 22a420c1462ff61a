// SPDX-FileCopyrightText: 2025 The Karei Authors
// SPDX-License-Identifier: EUPL-1.2

package domain

import (
	"context"
)

// PackageSource enumerates installed packages and resolves their metadata.
// Implemented by adapters for a concrete device connection (adb, fixtures).
type PackageSource interface {
	// ListInstalled returns every installed package, including archived ones.
	ListInstalled(ctx context.Context) ([]PackageRecord, error)

	// LaunchablePackages returns the packages with a launcher or info entry point.
	LaunchablePackages(ctx context.Context) (map[string]struct{}, error)

	// DisplayName returns the user-facing label of a package.
	DisplayName(rec PackageRecord) string

	// PackageDetails resolves version, dates and permissions.
	// Returns an error wrapping ErrPackageNotFound if the package vanished.
	PackageDetails(ctx context.Context, rec PackageRecord) (PackageDetails, error)

	// InstallerOf returns the installing package, or "" when none is recorded.
	InstallerOf(ctx context.Context, rec PackageRecord) (string, error)
}

// StorageSource computes per-package disk usage.
type StorageSource interface {
	// UsageOf never fails; unavailable counters are reported as zero.
	UsageOf(ctx context.Context, rec PackageRecord) StorageUsage
}

// UsageSource returns last-used timestamps aggregated over a lookback window.
type UsageSource interface {
	// LastUsedEpochs maps package name to epoch millis. A cached map may be
	// returned unless reload is set.
	LastUsedEpochs(ctx context.Context, reload bool) (map[string]int64, error)
}

// StoreSource answers questions about the storefront a package came from.
type StoreSource interface {
	// InstallerDisplayName maps an installer package to a storefront name.
	InstallerDisplayName(installer string) string

	// ExistsInStore reports whether pkg is still listed; nil means unknown.
	ExistsInStore(ctx context.Context, pkg, installer string) *bool

	// StoreLink returns the public listing URL of pkg.
	StoreLink(pkg string) string
}

// FaultReporter receives non-fatal failures for diagnostics.
type FaultReporter interface {
	// Log records a breadcrumb message.
	Log(message string)

	// Report records err with a human-readable context.
	Report(err error, context string)
}

// CommandRunner defines the interface for executing system commands.
type CommandRunner interface {
	// Execute runs a command and returns the result.
	Execute(ctx context.Context, name string, args ...string) error

	// ExecuteWithOutput runs a command and returns the output.
	ExecuteWithOutput(ctx context.Context, name string, args ...string) (string, error)

	// CommandExists checks if a command is available on the system.
	CommandExists(name string) bool
}
