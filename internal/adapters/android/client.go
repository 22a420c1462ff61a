// SPDX-FileCopyrightText: 2025 The Karei Authors
// SPDX-License-Identifier: EUPL-1.2

// Package android implements the package, storage and usage sources against
// a device reached over adb.
package android

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/janderssonse/applist/internal/domain"
	"go.uber.org/zap"
)

// DefaultCommandTimeout bounds one adb invocation.
const DefaultCommandTimeout = 30 * time.Second

// Options configures a Client.
type Options struct {
	ADBPath string
	Serial  string
	Timeout time.Duration
}

// Client runs adb commands against one device.
type Client struct {
	runner  domain.CommandRunner
	adbPath string
	serial  string
	timeout time.Duration
	logger  *zap.Logger

	sdkMu sync.Mutex
	sdk   int
}

// NewClient creates a client. An empty ADBPath means "adb" from PATH.
func NewClient(runner domain.CommandRunner, opts Options, logger *zap.Logger) *Client {
	if opts.ADBPath == "" {
		opts.ADBPath = "adb"
	}

	if opts.Timeout <= 0 {
		opts.Timeout = DefaultCommandTimeout
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		runner:  runner,
		adbPath: opts.ADBPath,
		serial:  opts.Serial,
		timeout: opts.Timeout,
		logger:  logger,
	}
}

// Available reports whether the adb binary can be found.
func (c *Client) Available() bool {
	return c.runner.CommandExists(c.adbPath)
}

// Shell runs a command on the device and returns its stdout.
func (c *Client) Shell(ctx context.Context, args ...string) (string, error) {
	adbArgs := make([]string, 0, len(args)+3)
	if c.serial != "" {
		adbArgs = append(adbArgs, "-s", c.serial)
	}

	adbArgs = append(adbArgs, "shell")
	adbArgs = append(adbArgs, args...)

	return c.adb(ctx, adbArgs...)
}

func (c *Client) adb(ctx context.Context, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out, err := c.runner.ExecuteWithOutput(ctx, c.adbPath, args...)
	if err != nil {
		return out, classify(err)
	}

	return out, nil
}

// Devices lists the devices adb can see.
func (c *Client) Devices(ctx context.Context) ([]domain.DeviceInfo, error) {
	out, err := c.adb(ctx, "devices", "-l")
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	return parseDevices(out), nil
}

// SDKLevel returns the API level of the device. The value is cached.
func (c *Client) SDKLevel(ctx context.Context) (int, error) {
	c.sdkMu.Lock()
	defer c.sdkMu.Unlock()

	if c.sdk > 0 {
		return c.sdk, nil
	}

	out, err := c.Shell(ctx, "getprop", "ro.build.version.sdk")
	if err != nil {
		return 0, fmt.Errorf("failed to read sdk level: %w", err)
	}

	sdk, err := strconv.Atoi(strings.TrimSpace(out))
	if err != nil {
		return 0, fmt.Errorf("unexpected sdk level %q: %w", strings.TrimSpace(out), err)
	}

	c.sdk = sdk

	return sdk, nil
}

// classify wraps adb failures in the matching domain error.
func classify(err error) error {
	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "no devices/emulators found"),
		strings.Contains(msg, "device offline"),
		strings.Contains(msg, "device unauthorized"),
		strings.Contains(msg, "more than one device"),
		strings.Contains(msg, "device '") && strings.Contains(msg, "not found"):
		return fmt.Errorf("%w: %w", domain.ErrNoDevice, err)
	case strings.Contains(msg, "permission denied"),
		strings.Contains(msg, "securityexception"),
		strings.Contains(msg, "permission denial"):
		return fmt.Errorf("%w: %w", domain.ErrPermissionDenied, err)
	default:
		return err
	}
}

// parseDevices parses `adb devices -l`.
func parseDevices(out string) []domain.DeviceInfo {
	var devices []domain.DeviceInfo

	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 || strings.HasPrefix(line, "List of devices") || strings.HasPrefix(line, "*") {
			continue
		}

		dev := domain.DeviceInfo{Serial: fields[0], State: fields[1]}

		for _, attr := range fields[2:] {
			key, value, ok := strings.Cut(attr, ":")
			if !ok {
				continue
			}

			switch key {
			case "model":
				dev.Model = value
			case "device":
				dev.Device = value
			}
		}

		devices = append(devices, dev)
	}

	return devices
}
