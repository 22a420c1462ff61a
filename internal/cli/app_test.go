// SPDX-FileCopyrightText: 2025 The Karei Authors
// SPDX-License-Identifier: EUPL-1.2

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/janderssonse/applist/internal/adapters/platform"
	"github.com/janderssonse/applist/internal/application"
	"github.com/janderssonse/applist/internal/config"
	"github.com/janderssonse/applist/internal/console"
	"github.com/janderssonse/applist/internal/domain"
	"github.com/janderssonse/applist/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

type testCLI struct {
	*CLI

	out        *bytes.Buffer
	errOut     *bytes.Buffer
	configPath string
	runner     *platform.ScriptedRunner
}

func newTestCLI(t *testing.T, device *testutil.FakeDevice) *testCLI {
	t.Helper()

	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	runner := platform.NewScriptedRunner()

	app := NewCLI()
	app.stdout = out
	app.console = &console.OutputState{Err: errOut}
	app.runner = runner
	app.lockPath = filepath.Join(t.TempDir(), "applist.lock")
	app.sources = func() (Sources, error) {
		return Sources{
			Packages: device,
			Storage:  device,
			Usage:    device,
			Store:    device,
			Faults:   &testutil.FaultRecorder{},
		}, nil
	}

	return &testCLI{
		CLI:        app,
		out:        out,
		errOut:     errOut,
		configPath: filepath.Join(t.TempDir(), "config.toml"),
		runner:     runner,
	}
}

func (c *testCLI) run(args ...string) error {
	return c.runContext(context.Background(), args...)
}

func (c *testCLI) runContext(ctx context.Context, args ...string) error {
	full := append([]string{"applist", "--config", c.configPath}, args...)

	return c.Run(ctx, full)
}

func sampleDevice() *testutil.FakeDevice {
	return testutil.NewFakeDevice(
		testutil.FakeApp{
			Record:  domain.PackageRecord{PackageName: "com.example.maps", Enabled: true},
			Label:   "Maps",
			Launch:  true,
			Details: domain.PackageDetails{VersionName: "2.0"},
			Usage:   domain.NewStorageUsage(0, 30*1024*1024, 0, 0, 0),
			InStore: domain.Ptr(true),
		},
		testutil.FakeApp{
			Record:  domain.PackageRecord{PackageName: "com.example.notes", Enabled: true},
			Label:   "Notes",
			Launch:  true,
			Details: domain.PackageDetails{VersionName: "1.0"},
			Usage:   domain.NewStorageUsage(1024, 0, 0, 0, 0),
		},
		testutil.FakeApp{
			Record: domain.PackageRecord{PackageName: "com.android.shell", System: true, Enabled: true},
			Label:  "Shell",
			Launch: true,
		},
	)
}

func exitCode(t *testing.T, err error) int {
	t.Helper()

	var exitErr *domain.ExitError
	require.ErrorAs(t, err, &exitErr)

	return exitErr.Code
}

func TestListJSON(t *testing.T) {
	t.Parallel()

	app := newTestCLI(t, sampleDevice())
	require.NoError(t, app.run("--json", "list", "--field", "version"))

	var result domain.ListResult
	require.NoError(t, json.Unmarshal(app.out.Bytes(), &result))

	assert.Equal(t, "version", result.Field)
	assert.True(t, result.Detailed)
	assert.Equal(t, 2, result.Total)
	require.Len(t, result.Apps, 2)
	assert.Equal(t, "com.example.notes", result.Apps[0].PackageName)
	assert.Equal(t, "1.0", result.Apps[0].Value)
	assert.True(t, result.Apps[0].Detailed)
	assert.Empty(t, result.Apps[0].StoreURL)
	assert.Equal(t, "https://store.example/com.example.maps", result.Apps[1].StoreURL)
}

func TestListWarnsWithoutUsageStatistics(t *testing.T) {
	t.Parallel()

	app := newTestCLI(t, sampleDevice())
	require.NoError(t, app.run("list", "--field", "last-used"))
	assert.Contains(t, app.errOut.String(), "No usage statistics")

	other := newTestCLI(t, sampleDevice())
	require.NoError(t, other.run("list", "--field", "version"))
	assert.NotContains(t, other.errOut.String(), "No usage statistics")
}

func TestListText(t *testing.T) {
	t.Parallel()

	app := newTestCLI(t, sampleDevice())
	require.NoError(t, app.run("list", "--field", "version", "--desc"))

	out := app.out.String()
	assert.Contains(t, out, "Maps")
	assert.Contains(t, out, "com.example.notes")
	assert.Contains(t, out, "2 apps in")
	assert.NotContains(t, out, "com.android.shell")
	assert.Less(t, strings.Index(out, "Maps"), strings.Index(out, "Notes"))
}

func TestListQuietPrintsPackages(t *testing.T) {
	t.Parallel()

	app := newTestCLI(t, sampleDevice())
	require.NoError(t, app.run("--quiet", "list", "--system", "--query", "SHELL"))

	assert.Equal(t, "com.android.shell\n", app.out.String())
}

func TestListBasicOnly(t *testing.T) {
	t.Parallel()

	device := sampleDevice()
	device.DetailDelay = time.Hour

	app := newTestCLI(t, device)
	require.NoError(t, app.run("--json", "list", "--basic"))

	var result domain.ListResult
	require.NoError(t, json.Unmarshal(app.out.Bytes(), &result))

	assert.False(t, result.Detailed)
	require.Len(t, result.Apps, 2)

	for _, row := range result.Apps {
		assert.False(t, row.Detailed)
	}
}

func TestListInvalidField(t *testing.T) {
	t.Parallel()

	app := newTestCLI(t, sampleDevice())
	err := app.run("list", "--field", "colour")

	require.Error(t, err)
	assert.Equal(t, ExitUsageError, exitCode(t, err))
	assert.ErrorIs(t, err, domain.ErrInvalidField)
}

func TestListNoDevice(t *testing.T) {
	t.Parallel()

	device := sampleDevice()
	device.ListErr = fmt.Errorf("adb: %w", domain.ErrNoDevice)

	app := newTestCLI(t, device)
	err := app.run("list")

	require.Error(t, err)
	assert.Equal(t, ExitDeviceError, exitCode(t, err))
}

func TestSummary(t *testing.T) {
	t.Parallel()

	app := newTestCLI(t, sampleDevice())
	require.NoError(t, app.run("--json", "summary", "--field", "total-size"))

	var result domain.SummaryResult
	require.NoError(t, json.Unmarshal(app.out.Bytes(), &result))

	assert.Equal(t, "total-size", result.Field)
	assert.Equal(t, 2, result.Total)
	require.Len(t, result.Buckets, 4)
	assert.Equal(t, domain.SummaryBucket{Label: application.SizeSmall, Count: 1}, result.Buckets[0])
	assert.Equal(t, domain.SummaryBucket{Label: application.SizeMedium, Count: 1}, result.Buckets[1])
}

func TestSummaryAll(t *testing.T) {
	t.Parallel()

	app := newTestCLI(t, sampleDevice())
	require.NoError(t, app.run("--json", "summary", "--all"))

	var results domain.SummaryResults
	require.NoError(t, json.Unmarshal(app.out.Bytes(), &results))

	var want []string
	for _, f := range domain.Fields() {
		if f.Group() != domain.GroupNone {
			want = append(want, f.Key())
		}
	}

	got := make([]string, len(results.Summaries))
	for i, s := range results.Summaries {
		got[i] = s.Field
		assert.Equal(t, 2, s.Total)
	}

	assert.Equal(t, want, got)
}

func TestSummaryWithoutGrouping(t *testing.T) {
	t.Parallel()

	app := newTestCLI(t, sampleDevice())
	require.NoError(t, app.run("summary", "--field", "version"))

	assert.Contains(t, app.out.String(), "No summary for version")
}

func TestFields(t *testing.T) {
	t.Parallel()

	app := newTestCLI(t, sampleDevice())
	require.NoError(t, app.run("fields"))

	for _, f := range domain.Fields() {
		assert.Contains(t, app.out.String(), f.Key())
	}
}

func TestDevices(t *testing.T) {
	t.Parallel()

	app := newTestCLI(t, sampleDevice())
	app.runner.SetOutput("adb devices -l",
		"List of devices attached\nemulator-5554          device product:sdk model:Pixel_8 device:husky\n")

	require.NoError(t, app.run("devices"))

	out := app.out.String()
	assert.Contains(t, out, "emulator-5554")
	assert.Contains(t, out, "Pixel_8")
}

func TestConfigPathAndInit(t *testing.T) {
	t.Parallel()

	app := newTestCLI(t, sampleDevice())
	require.NoError(t, app.run("config", "path"))
	assert.Equal(t, app.configPath+"\n", app.out.String())

	require.NoError(t, app.run("config", "init"))

	_, err := os.Stat(app.configPath)
	require.NoError(t, err)

	again := newTestCLI(t, sampleDevice())
	again.configPath = app.configPath

	err = again.run("config", "init")
	require.Error(t, err)
	assert.Equal(t, ExitConfigError, exitCode(t, err))

	require.NoError(t, again.run("config", "init", "--force"))
}

func TestConfigShow(t *testing.T) {
	t.Parallel()

	app := newTestCLI(t, sampleDevice())
	require.NoError(t, app.run("config", "show"))

	assert.Contains(t, app.out.String(), "adb_path")
}

func TestInvalidConfigFile(t *testing.T) {
	t.Parallel()

	app := newTestCLI(t, sampleDevice())
	require.NoError(t, os.WriteFile(app.configPath, []byte("default_field = \"colour\"\n"), 0o600))

	err := app.run("list")
	require.Error(t, err)
	assert.Equal(t, ExitConfigError, exitCode(t, err))
}

func TestUnknownCommand(t *testing.T) {
	t.Parallel()

	app := newTestCLI(t, sampleDevice())
	err := app.run("lsit")

	require.Error(t, err)
	assert.Equal(t, ExitUsageError, exitCode(t, err))
}

func TestExitErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"timeout", context.DeadlineExceeded, ExitTimeoutError},
		{"interrupt", context.Canceled, ExitInterruptError},
		{"adb missing", ErrADBNotFound, ExitDependencyError},
		{"no device", domain.ErrNoDevice, ExitDeviceError},
		{"permission", fmt.Errorf("stat: %w", domain.ErrPermissionDenied), ExitPermissionError},
		{"invalid field", domain.ErrInvalidField, ExitUsageError},
		{"package not found", domain.ErrPackageNotFound, ExitNotFoundError},
		{"network", domain.ErrNetworkFailure, ExitNetworkError},
		{"config", config.ErrInvalidConfig, ExitConfigError},
		{"other", errors.New("boom"), ExitGeneralError},
	}

	app := NewCLI()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := app.exitError(tt.err)
			assert.Equal(t, tt.want, exitCode(t, err))
			assert.ErrorIs(t, err, tt.err)
		})
	}

	assert.NoError(t, app.exitError(nil))

	existing := domain.NewExitError(ExitUsageError, "bad", nil)
	assert.Same(t, existing, app.exitError(existing))
}

func TestParseLocale(t *testing.T) {
	t.Parallel()

	tests := []struct {
		value string
		want  language.Tag
		ok    bool
	}{
		{"sv_SE.UTF-8", language.MustParse("sv-SE"), true},
		{"de_DE@euro", language.MustParse("de-DE"), true},
		{"en", language.English, true},
		{"C", language.Und, false},
		{"POSIX", language.Und, false},
		{"", language.Und, false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Parallel()

			got, ok := parseLocale(tt.value)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDeviceCommandsWaitForLock(t *testing.T) {
	t.Parallel()

	app := newTestCLI(t, sampleDevice())

	holder := flock.New(app.lockPath)
	locked, err := holder.TryLock()
	require.NoError(t, err)
	require.True(t, locked)

	t.Cleanup(func() { _ = holder.Unlock() })

	require.NoError(t, app.run("fields"))
	require.NoError(t, app.run("config", "path"))

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	err = app.runContext(ctx, "list")
	require.Error(t, err)
	assert.Equal(t, ExitInterruptError, exitCode(t, err))
}

func TestDeviceLockIsReleased(t *testing.T) {
	t.Parallel()

	app := newTestCLI(t, sampleDevice())
	require.NoError(t, app.run("list"))

	holder := flock.New(app.lockPath)
	locked, err := holder.TryLock()
	require.NoError(t, err)
	assert.True(t, locked)

	_ = holder.Unlock()
}
