// SPDX-FileCopyrightText: 2025 The Karei Authors
// SPDX-License-Identifier: EUPL-1.2

// Package config loads applist settings from the TOML config file and
// APPLIST_* environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/janderssonse/applist/internal/domain"
	"github.com/janderssonse/applist/internal/logging"
	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
)

// ErrInvalidConfig is returned when a loaded value is out of range.
var ErrInvalidConfig = errors.New("invalid config")

// Duration is a time.Duration written as "30s" in TOML and env values.
type Duration struct {
	time.Duration
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}

	d.Duration = v

	return nil
}

// StoreConfig controls Play Store listing checks.
type StoreConfig struct {
	Enabled           bool     `toml:"enabled"`
	Timeout           Duration `toml:"timeout"`
	RequestsPerSecond float64  `toml:"requests_per_second"`
}

// Config is the full applist configuration.
type Config struct {
	ADBPath        string            `toml:"adb_path"`
	Serial         string            `toml:"serial,omitempty"`
	CommandTimeout Duration          `toml:"command_timeout"`
	CrashReporting bool              `toml:"crash_reporting"`
	DefaultField   string            `toml:"default_field"`
	ShowSystem     bool              `toml:"show_system"`
	Store          StoreConfig       `toml:"store"`
	Log            logging.Config    `toml:"log"`
	Labels         map[string]string `toml:"labels,omitempty"`
}

// envOverrides lists the settings that APPLIST_* variables can replace.
// Unset variables leave the pointers nil, so fields are non-struct pointers.
type envOverrides struct {
	ADBPath        *string        `envconfig:"ADB_PATH"`
	Serial         *string        `envconfig:"SERIAL"`
	CommandTimeout *time.Duration `envconfig:"COMMAND_TIMEOUT"`
	CrashReporting *bool          `envconfig:"CRASH_REPORTING"`
	DefaultField   *string        `envconfig:"DEFAULT_FIELD"`
	ShowSystem     *bool          `envconfig:"SHOW_SYSTEM"`
	StoreEnabled   *bool          `envconfig:"STORE_ENABLED"`
	StoreTimeout   *time.Duration `envconfig:"STORE_TIMEOUT"`
	StoreRPS       *float64       `envconfig:"STORE_REQUESTS_PER_SECOND"`
	LogLevel       *string        `envconfig:"LOG_LEVEL"`
	LogDevelopment *bool          `envconfig:"LOG_DEVELOPMENT"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		ADBPath:        "adb",
		CommandTimeout: Duration{30 * time.Second},
		CrashReporting: true,
		DefaultField:   domain.FieldVersion.Key(),
		Store: StoreConfig{
			Enabled:           true,
			Timeout:           Duration{10 * time.Second},
			RequestsPerSecond: 5,
		},
		Log: logging.DefaultConfig(),
	}
}

// Load reads path on top of the defaults and applies env overrides.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnv() error {
	var env envOverrides
	if err := envconfig.Process(AppName, &env); err != nil {
		return fmt.Errorf("failed to read environment: %w", err)
	}

	set(&c.ADBPath, env.ADBPath)
	set(&c.Serial, env.Serial)
	setDuration(&c.CommandTimeout, env.CommandTimeout)
	set(&c.CrashReporting, env.CrashReporting)
	set(&c.DefaultField, env.DefaultField)
	set(&c.ShowSystem, env.ShowSystem)
	set(&c.Store.Enabled, env.StoreEnabled)
	setDuration(&c.Store.Timeout, env.StoreTimeout)
	set(&c.Store.RequestsPerSecond, env.StoreRPS)
	set(&c.Log.Level, env.LogLevel)
	set(&c.Log.Development, env.LogDevelopment)

	return nil
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *Duration, v *time.Duration) {
	if v != nil {
		dst.Duration = *v
	}
}

// Validate checks value ranges and the default field.
func (c *Config) Validate() error {
	var errs []error

	if c.CommandTimeout.Duration <= 0 {
		errs = append(errs, fmt.Errorf("%w: command_timeout must be positive", ErrInvalidConfig))
	}

	if c.Store.Timeout.Duration <= 0 {
		errs = append(errs, fmt.Errorf("%w: store.timeout must be positive", ErrInvalidConfig))
	}

	if c.Store.RequestsPerSecond < 0 {
		errs = append(errs, fmt.Errorf("%w: store.requests_per_second must not be negative", ErrInvalidConfig))
	}

	if _, err := domain.ParseField(c.DefaultField); err != nil {
		errs = append(errs, fmt.Errorf("%w: default_field: %w", ErrInvalidConfig, err))
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("%w: log.level: %w", ErrInvalidConfig, err))
	}

	return errors.Join(errs...)
}

// Field returns the parsed default field.
func (c *Config) Field() domain.Field {
	field, err := domain.ParseField(c.DefaultField)
	if err != nil {
		return domain.FieldVersion
	}

	return field
}

// Encode renders c as TOML.
func (c *Config) Encode() ([]byte, error) {
	var buf bytes.Buffer

	enc := toml.NewEncoder(&buf)
	enc.SetIndentTables(true)

	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}

	return buf.Bytes(), nil
}

// WriteDefault writes the default configuration to path. It refuses to
// replace an existing file unless force is set.
func WriteDefault(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%w: %s already exists", fs.ErrExist, path)
	}

	data, err := Default().Encode()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}
