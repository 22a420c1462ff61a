// SPDX-FileCopyrightText: 2025 The Karei Authors
// SPDX-License-Identifier: EUPL-1.2

package config

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/janderssonse/applist/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, domain.FieldVersion, cfg.Field())
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
adb_path = "/opt/platform-tools/adb"
serial = "emulator-5554"
command_timeout = "45s"
crash_reporting = false
default_field = "total-size"
show_system = true

[store]
enabled = false
timeout = "3s"
requests_per_second = 1.5

[log]
level = "debug"
development = true

[labels]
"com.example.maps" = "Maps"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/opt/platform-tools/adb", cfg.ADBPath)
	assert.Equal(t, "emulator-5554", cfg.Serial)
	assert.Equal(t, 45*time.Second, cfg.CommandTimeout.Duration)
	assert.False(t, cfg.CrashReporting)
	assert.Equal(t, domain.FieldTotalSize, cfg.Field())
	assert.True(t, cfg.ShowSystem)
	assert.False(t, cfg.Store.Enabled)
	assert.Equal(t, 3*time.Second, cfg.Store.Timeout.Duration)
	assert.InDelta(t, 1.5, cfg.Store.RequestsPerSecond, 0)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.Development)
	assert.Equal(t, map[string]string{"com.example.maps": "Maps"}, cfg.Labels)
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "show_system = true\n"))
	require.NoError(t, err)

	assert.True(t, cfg.ShowSystem)
	assert.Equal(t, "adb", cfg.ADBPath)
	assert.True(t, cfg.Store.Enabled)
	assert.Equal(t, 30*time.Second, cfg.CommandTimeout.Duration)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("APPLIST_SERIAL", "R58M123")
	t.Setenv("APPLIST_COMMAND_TIMEOUT", "5s")
	t.Setenv("APPLIST_STORE_ENABLED", "false")
	t.Setenv("APPLIST_LOG_LEVEL", "error")
	t.Setenv("APPLIST_DEFAULT_FIELD", "LAST_USED")

	cfg, err := Load(writeConfig(t, "serial = \"from-file\"\n"))
	require.NoError(t, err)

	assert.Equal(t, "R58M123", cfg.Serial)
	assert.Equal(t, 5*time.Second, cfg.CommandTimeout.Duration)
	assert.False(t, cfg.Store.Enabled)
	assert.Equal(t, "error", cfg.Log.Level)
	assert.Equal(t, domain.FieldLastUsed, cfg.Field())
	assert.Equal(t, 10*time.Second, cfg.Store.Timeout.Duration)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown field", `default_field = "colour"`},
		{"zero timeout", `command_timeout = "0s"`},
		{"negative rate", "[store]\nrequests_per_second = -1"},
		{"bad level", "[log]\nlevel = \"loud\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestLoadMalformedFile(t *testing.T) {
	_, err := Load(writeConfig(t, "adb_path = [unterminated"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestLoadMalformedDuration(t *testing.T) {
	_, err := Load(writeConfig(t, `command_timeout = "soon"`))
	require.Error(t, err)
}

func TestWriteDefaultRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), AppName, FileName)

	require.NoError(t, WriteDefault(path, false))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	err = WriteDefault(path, false)
	require.ErrorIs(t, err, fs.ErrExist)
	require.NoError(t, WriteDefault(path, true))
}

func TestEncodeUsesReadableDurations(t *testing.T) {
	t.Parallel()

	data, err := Default().Encode()
	require.NoError(t, err)
	assert.Contains(t, string(data), "command_timeout = '30s'")
	assert.Contains(t, string(data), "[store]")
}
