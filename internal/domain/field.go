// SPDX-FileCopyrightText: 2025 The Karei Authors
// SPDX-License-Identifier: EUPL-1.2

package domain

import (
	"cmp"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Field is an orderable, displayable attribute of an App.
type Field int

// Fields, in menu order.
const (
	FieldApkSize Field = iota
	FieldAppSize
	FieldArchived
	FieldCacheSize
	FieldDataSize
	FieldEnabled
	FieldExistsInStore
	FieldExternalCacheSize
	FieldFirstInstalled
	FieldGrantedPermissions
	FieldLastUpdated
	FieldLastUsed
	FieldMinSdk
	FieldPackageManager
	FieldRequestedPermissions
	FieldTargetSdk
	FieldTotalSize
	FieldVersion
)

// SummaryGroup says how a field buckets into a categorical summary.
type SummaryGroup int

// Summary groups.
const (
	GroupNone SummaryGroup = iota
	GroupBoolean
	GroupSize
	GroupSdk
	GroupPermissions
)

// DateLayout is used for every date-valued field.
const DateLayout = "2006-01-02 15:04"

type fieldSpec struct {
	name       string
	key        string
	title      string
	group      SummaryGroup
	needsUsage bool
	trueLabel  string
	falseLabel string
	extract    func(App) SortKey
	format     func(App) string
}

//nolint:gochecknoglobals // fixed lookup table
var fieldTable = [...]fieldSpec{
	FieldApkSize: {
		name: "APK_SIZE", key: "apk-size", title: "APK Size", group: GroupSize,
		extract: func(a App) SortKey { return IntKey(a.Sizes.ApkBytes) },
		format:  func(a App) string { return FormatSize(a.Sizes.ApkBytes) },
	},
	FieldAppSize: {
		name: "APP_SIZE", key: "app-size", title: "App Size", group: GroupSize,
		extract: func(a App) SortKey { return IntKey(a.Sizes.AppBytes) },
		format:  func(a App) string { return FormatSize(a.Sizes.AppBytes) },
	},
	FieldArchived: {
		name: "ARCHIVED", key: "archived", title: "Archived", group: GroupBoolean,
		trueLabel: "Archived", falseLabel: "Installed",
		extract: func(a App) SortKey { return optBoolKey(a.Archived) },
		format: func(a App) string {
			if a.Archived != nil && *a.Archived {
				return "Archived"
			}

			return "Installed"
		},
	},
	FieldCacheSize: {
		name: "CACHE_SIZE", key: "cache-size", title: "Cache Size", group: GroupSize,
		extract: func(a App) SortKey { return IntKey(a.Sizes.CacheBytes) },
		format:  func(a App) string { return FormatSize(a.Sizes.CacheBytes) },
	},
	FieldDataSize: {
		name: "DATA_SIZE", key: "data-size", title: "Data Size", group: GroupSize,
		extract: func(a App) SortKey { return IntKey(a.Sizes.DataBytes) },
		format:  func(a App) string { return FormatSize(a.Sizes.DataBytes) },
	},
	FieldEnabled: {
		name: "ENABLED", key: "enabled", title: "Enabled", group: GroupBoolean,
		trueLabel: "Enabled", falseLabel: "Disabled",
		extract: func(a App) SortKey { return BoolKey(a.Enabled) },
		format: func(a App) string {
			if a.Enabled {
				return "Enabled"
			}

			return "Disabled"
		},
	},
	FieldExistsInStore: {
		name: "EXISTS_IN_APP_STORE", key: "exists-in-store", title: "Exists in App Store", group: GroupBoolean,
		trueLabel: "True", falseLabel: "False",
		extract: func(a App) SortKey { return optBoolKey(a.ExistsInStore) },
		format: func(a App) string {
			switch {
			case a.ExistsInStore == nil:
				return "Unknown"
			case *a.ExistsInStore:
				return "True"
			default:
				return "False"
			}
		},
	},
	FieldExternalCacheSize: {
		name: "EXTERNAL_CACHE_SIZE", key: "external-cache-size", title: "External Cache Size", group: GroupSize,
		extract: func(a App) SortKey { return IntKey(a.Sizes.ExternalCacheBytes) },
		format:  func(a App) string { return FormatSize(a.Sizes.ExternalCacheBytes) },
	},
	FieldFirstInstalled: {
		name: "FIRST_INSTALLED", key: "first-installed", title: "First Installed",
		extract: func(a App) SortKey { return optIntKey(a.FirstInstalled) },
		format:  func(a App) string { return formatOptDate(a.FirstInstalled) },
	},
	FieldGrantedPermissions: {
		name: "GRANTED_PERMISSIONS", key: "granted-permissions", title: "Granted Permissions", group: GroupPermissions,
		extract: func(a App) SortKey { return optCountKey(a.GrantedPermissions) },
		format:  func(a App) string { return formatOptCount(a.GrantedPermissions) },
	},
	FieldLastUpdated: {
		name: "LAST_UPDATED", key: "last-updated", title: "Last Updated",
		extract: func(a App) SortKey { return optIntKey(a.LastUpdated) },
		format:  func(a App) string { return formatOptDate(a.LastUpdated) },
	},
	FieldLastUsed: {
		name: "LAST_USED", key: "last-used", title: "Last Used", needsUsage: true,
		extract: func(a App) SortKey { return IntKey(a.LastUsed) },
		format:  func(a App) string { return FormatDate(a.LastUsed) },
	},
	FieldMinSdk: {
		name: "MIN_SDK", key: "min-sdk", title: "Min SDK", group: GroupSdk,
		extract: func(a App) SortKey { return optCountKey(a.MinSdk) },
		format:  func(a App) string { return formatOptCount(a.MinSdk) },
	},
	FieldPackageManager: {
		name: "PACKAGE_MANAGER", key: "package-manager", title: "Package Manager",
		extract: func(a App) SortKey { return optStringKey(a.InstallerName) },
		format:  func(a App) string { return deref(a.InstallerName) },
	},
	FieldRequestedPermissions: {
		name: "REQUESTED_PERMISSIONS", key: "requested-permissions", title: "Requested Permissions", group: GroupPermissions,
		extract: func(a App) SortKey { return optCountKey(a.RequestedPermissions) },
		format:  func(a App) string { return formatOptCount(a.RequestedPermissions) },
	},
	FieldTargetSdk: {
		name: "TARGET_SDK", key: "target-sdk", title: "Target SDK", group: GroupSdk,
		extract: func(a App) SortKey { return optCountKey(a.TargetSdk) },
		format:  func(a App) string { return formatOptCount(a.TargetSdk) },
	},
	FieldTotalSize: {
		name: "TOTAL_SIZE", key: "total-size", title: "Total Size", group: GroupSize,
		extract: func(a App) SortKey { return IntKey(a.Sizes.Total()) },
		format:  func(a App) string { return FormatSize(a.Sizes.Total()) },
	},
	FieldVersion: {
		name: "VERSION", key: "version", title: "Version",
		extract: func(a App) SortKey { return optStringKey(a.VersionName) },
		format:  func(a App) string { return deref(a.VersionName) },
	},
}

// Fields returns every field in menu order.
func Fields() []Field {
	fields := make([]Field, len(fieldTable))
	for i := range fieldTable {
		fields[i] = Field(i)
	}

	return fields
}

// ParseField resolves a field from its key ("total-size") or its
// constant-style name ("TOTAL_SIZE"), ignoring case.
func ParseField(s string) (Field, error) {
	needle := strings.ToLower(strings.TrimSpace(s))
	for i, spec := range fieldTable {
		if needle == spec.key || needle == strings.ToLower(spec.name) {
			return Field(i), nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrInvalidField, s)
}

// Valid reports whether f is one of the declared fields.
func (f Field) Valid() bool {
	return f >= 0 && int(f) < len(fieldTable)
}

func (f Field) spec() fieldSpec {
	if !f.Valid() {
		return fieldTable[FieldVersion]
	}

	return fieldTable[f]
}

// String returns the constant-style name, e.g. "TOTAL_SIZE".
func (f Field) String() string { return f.spec().name }

// Key returns the CLI key, e.g. "total-size".
func (f Field) Key() string { return f.spec().key }

// Title returns the human-readable title.
func (f Field) Title() string { return f.spec().title }

// Group returns how the field buckets in a summary.
func (f Field) Group() SummaryGroup { return f.spec().group }

// NeedsUsage reports whether the field is only meaningful after the usage
// source has been queried.
func (f Field) NeedsUsage() bool { return f.spec().needsUsage }

// Labels returns the true and false labels of a boolean field.
func (f Field) Labels() (string, string) {
	spec := f.spec()

	return spec.trueLabel, spec.falseLabel
}

// Value extracts the sort key of f from a.
func (f Field) Value(a App) SortKey { return f.spec().extract(a) }

// Format renders the value of f for display.
func (f Field) Format(a App) string { return f.spec().format(a) }

// SortKey is the comparable value a Field extracts from an App.
// A missing key orders before any present one.
type SortKey struct {
	Present bool
	Int     int64
	Str     string
	isStr   bool
}

// IntKey returns a present numeric key.
func IntKey(v int64) SortKey { return SortKey{Present: true, Int: v} }

// StringKey returns a present string key.
func StringKey(v string) SortKey { return SortKey{Present: true, Str: v, isStr: true} }

// BoolKey returns a present key ordering false before true.
func BoolKey(v bool) SortKey {
	if v {
		return IntKey(1)
	}

	return IntKey(0)
}

// Compare orders two keys of the same field.
func (k SortKey) Compare(other SortKey) int {
	switch {
	case !k.Present && !other.Present:
		return 0
	case !k.Present:
		return -1
	case !other.Present:
		return 1
	case k.isStr || other.isStr:
		return strings.Compare(k.Str, other.Str)
	default:
		return cmp.Compare(k.Int, other.Int)
	}
}

// Truthy reports whether a boolean key is present and true.
func (k SortKey) Truthy() bool {
	return k.Present && !k.isStr && k.Int != 0
}

// FormatSize renders a byte count the way file managers do ("1.2 MB").
func FormatSize(bytes int64) string {
	if bytes <= 0 {
		return "0 B"
	}

	return humanize.Bytes(uint64(bytes))
}

// FormatDate renders epoch millis in local time; zero means unknown.
func FormatDate(epochMillis int64) string {
	if epochMillis <= 0 {
		return ""
	}

	return time.UnixMilli(epochMillis).Local().Format(DateLayout)
}

func formatOptDate(v *int64) string {
	if v == nil {
		return ""
	}

	return FormatDate(*v)
}

func formatOptCount(v *int) string {
	if v == nil {
		return ""
	}

	return strconv.Itoa(*v)
}

func optBoolKey(v *bool) SortKey {
	if v == nil {
		return SortKey{}
	}

	return BoolKey(*v)
}

func optIntKey(v *int64) SortKey {
	if v == nil {
		return SortKey{}
	}

	return IntKey(*v)
}

func optCountKey(v *int) SortKey {
	if v == nil {
		return SortKey{}
	}

	return IntKey(int64(*v))
}

func optStringKey(v *string) SortKey {
	if v == nil {
		return SortKey{}
	}

	return StringKey(*v)
}

func deref(v *string) string {
	if v == nil {
		return ""
	}

	return *v
}
