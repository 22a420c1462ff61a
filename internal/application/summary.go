// SPDX-FileCopyrightText: 2025 The Karei Authors
// SPDX-License-Identifier: EUPL-1.2

package application

import (
	"cmp"
	"slices"
	"strconv"

	"github.com/janderssonse/applist/internal/domain"
)

// Size bucket thresholds.
const (
	mebibyte        = 1024 * 1024
	smallSizeLimit  = 10 * mebibyte
	mediumSizeLimit = 50 * mebibyte
	largeSizeLimit  = 100 * mebibyte
)

// Size bucket labels, in emission order.
const (
	SizeSmall  = "Small (<10 MiB)"
	SizeMedium = "Medium (<50 MiB)"
	SizeLarge  = "Large (<100 MiB)"
	SizeHuge   = "Huge (≥100 MiB)"
)

// Permission bucket labels, in emission order.
const (
	PermNone = "None"
	PermFew  = "Few (1-5)"
	PermSome = "Some (6-10)"
	PermMany = "Many (11-20)"
	PermLots = "Lots (>20)"
)

// Summary is an ordered categorical count of apps for one field.
type Summary struct {
	Field   domain.Field           `json:"field"`
	Buckets []domain.SummaryBucket `json:"buckets"`
}

// Total returns the sum of all bucket counts.
func (s *Summary) Total() int {
	if s == nil {
		return 0
	}

	total := 0
	for _, b := range s.Buckets {
		total += b.Count
	}

	return total
}

// Count returns the count of the bucket with the given label.
func (s *Summary) Count(label string) int {
	if s == nil {
		return 0
	}

	for _, b := range s.Buckets {
		if b.Label == label {
			return b.Count
		}
	}

	return 0
}

// CalculateSummary buckets apps by field. It returns nil for fields without
// a categorical grouping (version, dates, installer).
func CalculateSummary(apps []domain.App, field domain.Field) *Summary {
	var buckets []domain.SummaryBucket

	switch field.Group() {
	case domain.GroupBoolean:
		buckets = booleanBuckets(apps, field)
	case domain.GroupSize:
		buckets = sizeBuckets(apps, field)
	case domain.GroupSdk:
		buckets = sdkBuckets(apps, field)
	case domain.GroupPermissions:
		buckets = permissionBuckets(apps, field)
	case domain.GroupNone:
		return nil
	default:
		return nil
	}

	return &Summary{Field: field, Buckets: buckets}
}

// CalculateAll returns the summary of every field that has one, in field order.
func CalculateAll(apps []domain.App) []*Summary {
	var summaries []*Summary

	for _, field := range domain.Fields() {
		if s := CalculateSummary(apps, field); s != nil {
			summaries = append(summaries, s)
		}
	}

	return summaries
}

func booleanBuckets(apps []domain.App, field domain.Field) []domain.SummaryBucket {
	trueLabel, falseLabel := field.Labels()
	trueCount := 0

	for _, app := range apps {
		if field.Value(app).Truthy() {
			trueCount++
		}
	}

	return []domain.SummaryBucket{
		{Label: trueLabel, Count: trueCount},
		{Label: falseLabel, Count: len(apps) - trueCount},
	}
}

func sizeBuckets(apps []domain.App, field domain.Field) []domain.SummaryBucket {
	buckets := []domain.SummaryBucket{
		{Label: SizeSmall}, {Label: SizeMedium}, {Label: SizeLarge}, {Label: SizeHuge},
	}

	for _, app := range apps {
		size := field.Value(app).Int

		switch {
		case size < smallSizeLimit:
			buckets[0].Count++
		case size < mediumSizeLimit:
			buckets[1].Count++
		case size < largeSizeLimit:
			buckets[2].Count++
		default:
			buckets[3].Count++
		}
	}

	return buckets
}

// sdkBuckets skips apps whose SDK level is unknown.
func sdkBuckets(apps []domain.App, field domain.Field) []domain.SummaryBucket {
	counts := make(map[int64]int)

	for _, app := range apps {
		if key := field.Value(app); key.Present {
			counts[key.Int]++
		}
	}

	levels := make([]int64, 0, len(counts))
	for level := range counts {
		levels = append(levels, level)
	}

	slices.SortFunc(levels, func(a, b int64) int { return cmp.Compare(b, a) })

	buckets := make([]domain.SummaryBucket, 0, len(levels))
	for _, level := range levels {
		buckets = append(buckets, domain.SummaryBucket{
			Label: strconv.FormatInt(level, 10),
			Count: counts[level],
		})
	}

	return buckets
}

// permissionBuckets skips apps whose permission count is unknown.
func permissionBuckets(apps []domain.App, field domain.Field) []domain.SummaryBucket {
	buckets := []domain.SummaryBucket{
		{Label: PermNone}, {Label: PermFew}, {Label: PermSome}, {Label: PermMany}, {Label: PermLots},
	}

	for _, app := range apps {
		key := field.Value(app)
		if !key.Present {
			continue
		}

		switch n := key.Int; {
		case n <= 0:
			buckets[0].Count++
		case n <= 5:
			buckets[1].Count++
		case n <= 10:
			buckets[2].Count++
		case n <= 20:
			buckets[3].Count++
		default:
			buckets[4].Count++
		}
	}

	return buckets
}
