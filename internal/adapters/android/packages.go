// SPDX-FileCopyrightText: 2025 The Karei Authors
// SPDX-License-Identifier: EUPL-1.2

package android

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/janderssonse/applist/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NativeArchiveSDK is the first API level that reports archived packages.
const NativeArchiveSDK = 35

// Intent filters that make a package launchable.
//
//nolint:gochecknoglobals // fixed lookup table
var launchIntents = [][]string{
	{"-a", "android.intent.action.MAIN", "-c", "android.intent.category.LAUNCHER"},
	{"-a", "android.intent.action.MAIN", "-c", "android.intent.category.INFO"},
}

// PackageService implements domain.PackageSource over adb.
type PackageService struct {
	client   *Client
	labels   map[string]string
	location *time.Location
	logger   *zap.Logger
}

// NewPackageService creates a package source. labels overrides display
// names per package.
func NewPackageService(client *Client, labels map[string]string, logger *zap.Logger) *PackageService {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &PackageService{
		client:   client,
		labels:   labels,
		location: time.Local,
		logger:   logger,
	}
}

// ListInstalled returns every package known to the package manager,
// including uninstalled-but-retained and archived ones.
func (s *PackageService) ListInstalled(ctx context.Context) ([]domain.PackageRecord, error) {
	sdk, err := s.client.SDKLevel(ctx)
	if err != nil {
		return nil, err
	}

	out, err := s.client.Shell(ctx, "dumpsys", "package", "packages")
	if err != nil {
		return nil, fmt.Errorf("failed to dump packages: %w", err)
	}

	records := parsePackageRecords(out, sdk >= NativeArchiveSDK)
	s.logger.Debug("packages enumerated", zap.Int("count", len(records)), zap.Int("sdk", sdk))

	return records, nil
}

// LaunchablePackages returns packages with a launcher or info activity.
func (s *PackageService) LaunchablePackages(ctx context.Context) (map[string]struct{}, error) {
	launchable := make(map[string]struct{})

	for _, intent := range launchIntents {
		args := append([]string{"cmd", "package", "query-activities", "--components"}, intent...)

		out, err := s.client.Shell(ctx, args...)
		if err != nil {
			return nil, fmt.Errorf("failed to query activities: %w", err)
		}

		parseComponents(out, launchable)
	}

	return launchable, nil
}

// DisplayName returns the configured label or a title derived from the
// last package name segment.
func (s *PackageService) DisplayName(rec domain.PackageRecord) string {
	if label, ok := s.labels[rec.PackageName]; ok && label != "" {
		return label
	}

	return DeriveLabel(rec.PackageName)
}

// DeriveLabel turns "com.example.photo_editor" into "Photo Editor".
func DeriveLabel(pkg string) string {
	segment := pkg
	if i := strings.LastIndex(pkg, "."); i >= 0 && i < len(pkg)-1 {
		segment = pkg[i+1:]
	}

	segment = strings.NewReplacer("_", " ", "-", " ").Replace(segment)

	return cases.Title(language.Und).String(segment)
}

// PackageDetails reads version, install dates and permissions of a package.
func (s *PackageService) PackageDetails(ctx context.Context, rec domain.PackageRecord) (domain.PackageDetails, error) {
	out, err := s.client.Shell(ctx, "dumpsys", "package", rec.PackageName)
	if err != nil {
		return domain.PackageDetails{}, fmt.Errorf("failed to dump %s: %w", rec.PackageName, err)
	}

	details, ok := parsePackageDetails(out, rec.PackageName, s.location)
	if !ok {
		return domain.PackageDetails{}, fmt.Errorf("%w: %s", domain.ErrPackageNotFound, rec.PackageName)
	}

	return details, nil
}

// InstallerOf returns the installing package, or "" when none is recorded.
func (s *PackageService) InstallerOf(ctx context.Context, rec domain.PackageRecord) (string, error) {
	out, err := s.client.Shell(ctx, "pm", "list", "packages", "-i", "-u", rec.PackageName)
	if err != nil {
		return "", fmt.Errorf("failed to read installer of %s: %w", rec.PackageName, err)
	}

	return parseInstaller(out, rec.PackageName), nil
}
