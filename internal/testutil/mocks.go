// SPDX-FileCopyrightText: 2025 The Karei Authors
// SPDX-License-Identifier: EUPL-1.2

package testutil

import (
	"context"

	"github.com/janderssonse/applist/internal/domain"
	"github.com/stretchr/testify/mock"
)

// MockPackageSource mocks the PackageSource port for testing.
type MockPackageSource struct {
	mock.Mock
}

// ListInstalled mocks package enumeration.
func (m *MockPackageSource) ListInstalled(ctx context.Context) ([]domain.PackageRecord, error) {
	args := m.Called(ctx)
	if result := args.Get(0); result != nil {
		recs, ok := result.([]domain.PackageRecord)
		if !ok {
			return nil, args.Error(1)
		}

		return recs, args.Error(1)
	}

	return nil, args.Error(1)
}

// LaunchablePackages mocks the launchable set lookup.
func (m *MockPackageSource) LaunchablePackages(ctx context.Context) (map[string]struct{}, error) {
	args := m.Called(ctx)
	if result := args.Get(0); result != nil {
		set, ok := result.(map[string]struct{})
		if !ok {
			return nil, args.Error(1)
		}

		return set, args.Error(1)
	}

	return nil, args.Error(1)
}

// DisplayName mocks label resolution.
func (m *MockPackageSource) DisplayName(rec domain.PackageRecord) string {
	args := m.Called(rec)
	return args.String(0)
}

// PackageDetails mocks the per-package detail lookup.
func (m *MockPackageSource) PackageDetails(ctx context.Context, rec domain.PackageRecord) (domain.PackageDetails, error) {
	args := m.Called(ctx, rec)
	if details, ok := args.Get(0).(domain.PackageDetails); ok {
		return details, args.Error(1)
	}

	return domain.PackageDetails{}, args.Error(1)
}

// InstallerOf mocks the installer lookup.
func (m *MockPackageSource) InstallerOf(ctx context.Context, rec domain.PackageRecord) (string, error) {
	args := m.Called(ctx, rec)
	return args.String(0), args.Error(1)
}

// MockStorageSource mocks the StorageSource port.
type MockStorageSource struct {
	mock.Mock
}

// UsageOf mocks storage usage computation.
func (m *MockStorageSource) UsageOf(ctx context.Context, rec domain.PackageRecord) domain.StorageUsage {
	args := m.Called(ctx, rec)
	if usage, ok := args.Get(0).(domain.StorageUsage); ok {
		return usage
	}

	return domain.StorageUsage{}
}

// MockUsageSource mocks the UsageSource port.
type MockUsageSource struct {
	mock.Mock
}

// LastUsedEpochs mocks the last-used map retrieval.
func (m *MockUsageSource) LastUsedEpochs(ctx context.Context, reload bool) (map[string]int64, error) {
	args := m.Called(ctx, reload)
	if result := args.Get(0); result != nil {
		epochs, ok := result.(map[string]int64)
		if !ok {
			return nil, args.Error(1)
		}

		return epochs, args.Error(1)
	}

	return nil, args.Error(1)
}

// MockStoreSource mocks the StoreSource port.
type MockStoreSource struct {
	mock.Mock
}

// InstallerDisplayName mocks the installer name table.
func (m *MockStoreSource) InstallerDisplayName(installer string) string {
	args := m.Called(installer)
	return args.String(0)
}

// ExistsInStore mocks the store existence check.
func (m *MockStoreSource) ExistsInStore(ctx context.Context, pkg, installer string) *bool {
	args := m.Called(ctx, pkg, installer)
	if exists, ok := args.Get(0).(*bool); ok {
		return exists
	}

	return nil
}

// StoreLink mocks the listing URL builder.
func (m *MockStoreSource) StoreLink(pkg string) string {
	args := m.Called(pkg)
	return args.String(0)
}

// MockFaultReporter mocks the FaultReporter port.
type MockFaultReporter struct {
	mock.Mock
}

// Log mocks breadcrumb logging.
func (m *MockFaultReporter) Log(message string) {
	m.Called(message)
}

// Report mocks fault reporting.
func (m *MockFaultReporter) Report(err error, context string) {
	m.Called(err, context)
}

// MockCommandRunner is a mock implementation of CommandRunner port.
type MockCommandRunner struct {
	mock.Mock
}

// Execute mocks command execution without output.
func (m *MockCommandRunner) Execute(ctx context.Context, name string, args ...string) error {
	// Convert variadic args to interface slice for mock.Called
	callArgs := make([]interface{}, 0, len(args)+2)

	callArgs = append(callArgs, ctx, name)
	for _, arg := range args {
		callArgs = append(callArgs, arg)
	}

	returnArgs := m.Called(callArgs...)

	return returnArgs.Error(0)
}

// ExecuteWithOutput mocks command execution with output.
func (m *MockCommandRunner) ExecuteWithOutput(ctx context.Context, name string, args ...string) (string, error) {
	// Convert variadic args to interface slice for mock.Called
	callArgs := make([]interface{}, 0, len(args)+2)

	callArgs = append(callArgs, ctx, name)
	for _, arg := range args {
		callArgs = append(callArgs, arg)
	}

	returnArgs := m.Called(callArgs...)

	return returnArgs.String(0), returnArgs.Error(1)
}

// CommandExists mocks checking if a command exists.
func (m *MockCommandRunner) CommandExists(name string) bool {
	args := m.Called(name)
	return args.Bool(0)
}
