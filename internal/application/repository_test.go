// SPDX-FileCopyrightText: 2025 The Karei Authors
// SPDX-License-Identifier: EUPL-1.2

package application_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/janderssonse/applist/internal/application"
	"github.com/janderssonse/applist/internal/domain"
	"github.com/janderssonse/applist/internal/metrics"
	"github.com/janderssonse/applist/internal/testutil"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newRepo(device *testutil.FakeDevice, faults domain.FaultReporter, opts ...application.Option) *application.AppRepository {
	return application.NewAppRepository(device, device, device, device, faults, opts...)
}

func collect(t *testing.T, ch <-chan application.Snapshot) []application.Snapshot {
	t.Helper()

	var snapshots []application.Snapshot

	timeout := time.After(10 * time.Second)

	for {
		select {
		case s, ok := <-ch:
			if !ok {
				return snapshots
			}

			snapshots = append(snapshots, s)
		case <-timeout:
			t.Fatal("aggregation did not finish")
			return nil
		}
	}
}

func packageNames(apps []domain.App) []string {
	names := make([]string, len(apps))
	for i, app := range apps {
		names[i] = app.PackageName
	}

	return names
}

func mixedDevice() *testutil.FakeDevice {
	return testutil.NewFakeDevice(
		testutil.FakeApp{
			Record: domain.PackageRecord{PackageName: "org.user.launchable", Enabled: true},
			Label:  "Launchable", Launch: true,
			Details: domain.PackageDetails{
				VersionName:          "2.1",
				FirstInstallTime:     1000,
				LastUpdateTime:       2000,
				RequestedPermissions: []string{"a", "b", "c"},
				GrantedPermissions:   []string{"a"},
			},
			Usage:     domain.NewStorageUsage(1, 2, 3, 4, 5),
			Installer: "com.android.vending",
			LastUsed:  4242,
			InStore:   domain.Ptr(true),
		},
		testutil.FakeApp{
			Record: domain.PackageRecord{PackageName: "org.user.hidden", Enabled: true},
			Label:  "Hidden",
		},
		testutil.FakeApp{
			Record: domain.PackageRecord{
				PackageName: "org.user.archived",
				MetaData:    map[string]string{domain.ArchiveMetaDataKey: "true"},
			},
			Label: "Archived",
		},
		testutil.FakeApp{
			Record: domain.PackageRecord{PackageName: "org.user.native", ArchivedFlag: domain.Ptr(true)},
			Label:  "Native Archived",
		},
		testutil.FakeApp{
			Record: domain.PackageRecord{PackageName: "android.system.ui", System: true, Enabled: true},
			Label:  "System UI", Launch: true,
		},
	)
}

func TestLoadAppsEmitsBasicThenDetailed(t *testing.T) {
	t.Parallel()

	device := mixedDevice()
	repo := newRepo(device, &testutil.FaultRecorder{})

	snapshots := collect(t, repo.LoadApps(context.Background(), application.LoadOptions{Field: domain.FieldVersion}))
	require.Len(t, snapshots, 2)

	basic, detailed := snapshots[0], snapshots[1]
	assert.Equal(t, application.PhaseBasic, basic.Phase)
	assert.Equal(t, application.PhaseDetailed, detailed.Phase)

	assert.ElementsMatch(t, packageNames(basic.Apps), packageNames(detailed.Apps))
	assert.ElementsMatch(t,
		[]string{"org.user.launchable", "org.user.archived", "org.user.native"},
		packageNames(basic.Apps))

	for _, app := range basic.Apps {
		assert.False(t, app.Detailed)
		assert.Nil(t, app.VersionName)
		assert.Nil(t, app.InstallerName)
		assert.Nil(t, app.ExistsInStore)
		assert.Zero(t, app.Sizes)
		assert.Zero(t, app.LastUsed)
	}

	for _, app := range detailed.Apps {
		assert.True(t, app.Detailed, app.PackageName)
	}
}

func TestLoadAppsDetailedFields(t *testing.T) {
	t.Parallel()

	repo := newRepo(mixedDevice(), &testutil.FaultRecorder{})

	var final application.Snapshot

	require.NoError(t, repo.Load(context.Background(), application.LoadOptions{Field: domain.FieldVersion},
		func(s application.Snapshot) { final = s }))

	var app domain.App

	for _, a := range final.Apps {
		if a.PackageName == "org.user.launchable" {
			app = a
		}
	}

	require.Equal(t, "org.user.launchable", app.PackageName)
	assert.Equal(t, "Launchable", app.Name)
	assert.Equal(t, "2.1", *app.VersionName)
	assert.Equal(t, int64(1000), *app.FirstInstalled)
	assert.Equal(t, int64(2000), *app.LastUpdated)
	assert.Equal(t, int64(4242), app.LastUsed)
	assert.Equal(t, 3, *app.RequestedPermissions)
	assert.Equal(t, 1, *app.GrantedPermissions)
	assert.Equal(t, domain.NewStorageUsage(1, 2, 3, 4, 5), app.Sizes)
	assert.Equal(t, "com.android.vending", *app.InstallerName)
	assert.True(t, *app.ExistsInStore)
	assert.False(t, *app.Archived)
}

func TestLoadAppsShowSystem(t *testing.T) {
	t.Parallel()

	repo := newRepo(mixedDevice(), &testutil.FaultRecorder{})

	snapshots := collect(t, repo.LoadApps(context.Background(), application.LoadOptions{ShowSystem: true}))
	require.Len(t, snapshots, 2)
	assert.Contains(t, packageNames(snapshots[1].Apps), "android.system.ui")
	assert.NotContains(t, packageNames(snapshots[1].Apps), "org.user.hidden")
}

func TestArchivedOnlyFromFlagOrMetadata(t *testing.T) {
	t.Parallel()

	repo := newRepo(mixedDevice(), &testutil.FaultRecorder{})

	for _, snapshot := range collect(t, repo.LoadApps(context.Background(), application.LoadOptions{ShowSystem: true})) {
		for _, app := range snapshot.Apps {
			want := app.PackageName == "org.user.archived" || app.PackageName == "org.user.native"
			assert.Equal(t, want, *app.Archived, app.PackageName)
		}
	}
}

func TestDetailFailureFallsBackToBasicRecord(t *testing.T) {
	t.Parallel()

	failure := errors.New("package vanished")
	device := mixedDevice()
	device.Apps[0].FailDetails = failure

	faults := &testutil.MockFaultReporter{}
	faults.On("Log", mock.Anything).Maybe()
	faults.On("Report", mock.MatchedBy(func(err error) bool { return errors.Is(err, failure) }),
		mock.MatchedBy(func(c string) bool { return strings.Contains(c, "org.user.launchable") })).Once()

	m := metrics.New()
	repo := newRepo(device, faults, application.WithMetrics(m))

	snapshots := collect(t, repo.LoadApps(context.Background(), application.LoadOptions{Field: domain.FieldVersion}))
	require.Len(t, snapshots, 2)

	find := func(apps []domain.App) domain.App {
		for _, app := range apps {
			if app.PackageName == "org.user.launchable" {
				return app
			}
		}

		t.Fatal("package missing")

		return domain.App{}
	}

	assert.Equal(t, find(snapshots[0].Apps), find(snapshots[1].Apps))
	faults.AssertExpectations(t)
	faults.AssertNumberOfCalls(t, "Report", 1)
	assert.InDelta(t, 1.0, promtest.ToFloat64(m.DetailFallbacks), 0)
}

func TestDetailConcurrencyIsBounded(t *testing.T) {
	t.Parallel()

	device := testutil.NewFakeDevice(testutil.SyntheticApps(200)...)
	device.DetailDelay = 2 * time.Millisecond

	repo := newRepo(device, &testutil.FaultRecorder{})

	snapshots := collect(t, repo.LoadApps(context.Background(), application.LoadOptions{Field: domain.FieldApkSize}))
	require.Len(t, snapshots, 2)
	assert.Len(t, snapshots[1].Apps, 200)
	assert.LessOrEqual(t, device.PeakInFlight(), application.MaxConcurrentDetails)
	assert.Positive(t, device.PeakInFlight())
}

func TestWithConcurrency(t *testing.T) {
	t.Parallel()

	device := testutil.NewFakeDevice(testutil.SyntheticApps(20)...)
	device.DetailDelay = time.Millisecond

	repo := newRepo(device, &testutil.FaultRecorder{}, application.WithConcurrency(1))
	require.NoError(t, repo.Load(context.Background(), application.LoadOptions{}, func(application.Snapshot) {}))
	assert.Equal(t, 1, device.PeakInFlight())
}

func TestReloadQueriesUsageSourceOnce(t *testing.T) {
	t.Parallel()

	device := mixedDevice()
	repo := newRepo(device, &testutil.FaultRecorder{})
	noop := func(application.Snapshot) {}

	require.NoError(t, repo.Load(context.Background(), application.LoadOptions{}, noop))
	require.Equal(t, 1, device.FreshUsageQueries())

	require.NoError(t, repo.Load(context.Background(), application.LoadOptions{}, noop))
	assert.Equal(t, 1, device.FreshUsageQueries(), "cached map reused without reload")

	require.NoError(t, repo.Load(context.Background(), application.LoadOptions{Reload: true}, noop))
	assert.Equal(t, 2, device.FreshUsageQueries())
	assert.Equal(t, 3, device.UsageCalls())
}

func TestReloadPassesFlagToUsageSource(t *testing.T) {
	t.Parallel()

	device := mixedDevice()

	usage := &testutil.MockUsageSource{}
	usage.On("LastUsedEpochs", mock.Anything, true).Return(map[string]int64{}, nil).Once()

	repo := application.NewAppRepository(device, device, usage, device, &testutil.FaultRecorder{})
	require.NoError(t, repo.Load(context.Background(), application.LoadOptions{Reload: true}, func(application.Snapshot) {}))

	usage.AssertExpectations(t)
	usage.AssertNumberOfCalls(t, "LastUsedEpochs", 1)
}

func TestUsageFailureIsReportedAndTolerated(t *testing.T) {
	t.Parallel()

	device := mixedDevice()

	usage := &testutil.MockUsageSource{}
	usage.On("LastUsedEpochs", mock.Anything, false).Return(nil, domain.ErrPermissionDenied)

	faults := &testutil.FaultRecorder{}
	repo := application.NewAppRepository(device, device, usage, device, faults)

	var final application.Snapshot

	require.NoError(t, repo.Load(context.Background(), application.LoadOptions{}, func(s application.Snapshot) { final = s }))
	assert.Equal(t, application.PhaseDetailed, final.Phase)

	for _, app := range final.Apps {
		assert.True(t, app.Detailed)
		assert.Zero(t, app.LastUsed)
	}

	require.Len(t, faults.Reports(), 1)
	assert.ErrorIs(t, faults.Reports()[0].Err, domain.ErrPermissionDenied)
}

func TestEnumerationFailureEmitsNothing(t *testing.T) {
	t.Parallel()

	device := mixedDevice()
	device.ListErr = domain.ErrNoDevice

	faults := &testutil.FaultRecorder{}
	repo := newRepo(device, faults)

	assert.Empty(t, collect(t, repo.LoadApps(context.Background(), application.LoadOptions{})))
	require.Len(t, faults.Reports(), 1)
	assert.ErrorIs(t, faults.Reports()[0].Err, domain.ErrNoDevice)

	err := repo.Load(context.Background(), application.LoadOptions{}, func(application.Snapshot) {
		t.Error("unexpected snapshot")
	})
	require.ErrorIs(t, err, domain.ErrNoDevice)
}

func TestCancelledRunStopsAfterBasicSnapshot(t *testing.T) {
	t.Parallel()

	device := testutil.NewFakeDevice(testutil.SyntheticApps(40)...)
	device.DetailDelay = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())

	var phases []application.Phase

	err := newRepo(device, &testutil.FaultRecorder{}).Load(ctx, application.LoadOptions{}, func(s application.Snapshot) {
		phases = append(phases, s.Phase)
		cancel()
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []application.Phase{application.PhaseBasic}, phases)
}

func TestCancelledDetailFetchesAreNotReported(t *testing.T) {
	t.Parallel()

	device := testutil.NewFakeDevice(testutil.SyntheticApps(12)...)
	device.DetailDelay = time.Second

	ctx, cancel := context.WithCancel(context.Background())
	faults := &testutil.FaultRecorder{}

	err := newRepo(device, faults).Load(ctx, application.LoadOptions{}, func(application.Snapshot) {
		time.AfterFunc(20*time.Millisecond, cancel)
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, faults.Reports())
}

func TestSnapshotsShareOrdering(t *testing.T) {
	t.Parallel()

	device := testutil.NewFakeDevice(testutil.SyntheticApps(30)...)
	repo := newRepo(device, &testutil.FaultRecorder{})

	snapshots := collect(t, repo.LoadApps(context.Background(),
		application.LoadOptions{Field: domain.FieldTargetSdk, Descending: true}))
	require.Len(t, snapshots, 2)

	// Target SDK is known in both phases, so only the name tie-break orders.
	assert.Equal(t, packageNames(snapshots[0].Apps), packageNames(snapshots[1].Apps))
	assert.Equal(t, "com.example.app029", snapshots[0].Apps[0].PackageName)
}

func TestLoadLeavesBreadcrumbs(t *testing.T) {
	t.Parallel()

	device := testutil.NewFakeDevice(testutil.SyntheticApps(3)...)
	faults := &testutil.FaultRecorder{}

	require.NoError(t, newRepo(device, faults).Load(context.Background(),
		application.LoadOptions{Field: domain.FieldApkSize}, func(application.Snapshot) {}))

	assert.Equal(t, []string{"loading apps by apk-size", "basic list ready with 3 apps"}, faults.Logs())
}

func TestStoreLinkDelegatesToStore(t *testing.T) {
	t.Parallel()

	repo := newRepo(testutil.NewFakeDevice(), &testutil.FaultRecorder{})

	assert.Equal(t, "https://store.example/com.example.app", repo.StoreLink("com.example.app"))
}
