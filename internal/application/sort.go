// SPDX-FileCopyrightText: 2025 The Karei Authors
// SPDX-License-Identifier: EUPL-1.2

package application

import (
	"slices"

	"github.com/janderssonse/applist/internal/domain"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// NewComparator orders apps by field, breaking ties by collated display name.
// Descending reverses the whole ordering, tie-break included.
//
// The returned func owns a collator and must not be shared between goroutines.
func NewComparator(field domain.Field, descending bool, tag language.Tag) func(a, b domain.App) int {
	collator := collate.New(tag)

	ascending := func(a, b domain.App) int {
		if c := field.Value(a).Compare(field.Value(b)); c != 0 {
			return c
		}

		return collator.CompareString(a.Name, b.Name)
	}

	if descending {
		return func(a, b domain.App) int { return ascending(b, a) }
	}

	return ascending
}

// SortApps returns a stably sorted copy of apps.
func SortApps(apps []domain.App, field domain.Field, descending bool, tag language.Tag) []domain.App {
	sorted := slices.Clone(apps)
	slices.SortStableFunc(sorted, NewComparator(field, descending, tag))

	return sorted
}
