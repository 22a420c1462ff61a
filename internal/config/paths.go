// SPDX-FileCopyrightText: 2025 The Karei Authors
// SPDX-License-Identifier: EUPL-1.2

package config

import (
	"os"
	"path/filepath"
	"strings"
)

// AppName names the config directory and the env prefix.
const AppName = "applist"

// FileName is the name of the config file inside the config directory.
const FileName = "config.toml"

// GetXDGConfigHome returns the XDG config directory.
func GetXDGConfigHome() string {
	return GetXDGConfigHomeWithEnv(os.Getenv("XDG_CONFIG_HOME"))
}

// GetXDGConfigHomeWithEnv returns the XDG config directory with a custom environment override for testing.
func GetXDGConfigHomeWithEnv(xdgConfigHome string) string {
	if xdgConfigHome != "" {
		return xdgConfigHome
	}

	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config")
	}

	return ""
}

// GetXDGStateHome returns the XDG state directory, used for the process lock.
func GetXDGStateHome() string {
	return GetXDGStateHomeWithEnv(os.Getenv("XDG_STATE_HOME"))
}

// GetXDGStateHomeWithEnv returns the XDG state directory with a custom environment override for testing.
func GetXDGStateHomeWithEnv(xdgStateHome string) string {
	if xdgStateHome != "" {
		return xdgStateHome
	}

	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "state")
	}

	return ""
}

// DefaultPath returns $XDG_CONFIG_HOME/applist/config.toml.
func DefaultPath() string {
	return filepath.Join(GetXDGConfigHome(), AppName, FileName)
}

// LockPath returns the path of the single-instance lock file.
func LockPath() string {
	return filepath.Join(GetXDGStateHome(), AppName, AppName+".lock")
}

// ExpandPath expands ~ and $XDG_CONFIG_HOME.
func ExpandPath(path string) string {
	return ExpandPathWithEnv(path, "")
}

// ExpandPathWithEnv expands paths with a custom XDG config home for testing.
func ExpandPathWithEnv(path, xdgConfigHome string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}

	if after, found := strings.CutPrefix(path, "$XDG_CONFIG_HOME"); found {
		configHome := xdgConfigHome
		if configHome == "" {
			configHome = GetXDGConfigHome()
		}

		return configHome + after
	}

	return path
}
