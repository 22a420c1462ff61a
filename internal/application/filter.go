// SPDX-FileCopyrightText: 2025 The Karei Authors
// SPDX-License-Identifier: EUPL-1.2

package application

import (
	"strings"

	"github.com/janderssonse/applist/internal/domain"
	"golang.org/x/text/cases"
)

// NormalizeQuery trims and case-folds a free-text query.
func NormalizeQuery(query string) string {
	return cases.Fold().String(strings.TrimSpace(query))
}

// MatchesQuery reports whether any of the texts contains the normalized query.
// An empty query matches everything.
func MatchesQuery(normalized string, texts ...string) bool {
	if normalized == "" {
		return true
	}

	folder := cases.Fold()

	for _, text := range texts {
		if strings.Contains(folder.String(text), normalized) {
			return true
		}
	}

	return false
}

// FilterApps keeps the apps whose name, package name or rendering of field
// contains query. The input order is preserved.
func FilterApps(apps []domain.App, field domain.Field, query string) []domain.App {
	normalized := NormalizeQuery(query)
	if normalized == "" {
		return apps
	}

	filtered := make([]domain.App, 0, len(apps))

	for _, app := range apps {
		if MatchesQuery(normalized, app.Name, app.PackageName, field.Format(app)) {
			filtered = append(filtered, app)
		}
	}

	return filtered
}

// IsVisible is the enumeration predicate: system packages only when asked for,
// and only packages that are archived or can be launched.
func IsVisible(rec domain.PackageRecord, launchable map[string]struct{}, showSystem bool) bool {
	if !showSystem && !rec.IsUserInstalled() {
		return false
	}

	if rec.IsArchived() {
		return true
	}

	_, ok := launchable[rec.PackageName]

	return ok
}
