// SPDX-FileCopyrightText: 2025 The Karei Authors
// SPDX-License-Identifier: EUPL-1.2

// Package domain contains the core types and ports of applist.
package domain

// ArchiveMetaDataKey marks a package the Play Store has offloaded on platforms
// without a native archived flag.
const ArchiveMetaDataKey = "com.android.vending.archive"

// App is one installed package as surfaced to the user.
//
// A basic App carries only cheap metadata. A detailed App for the same package
// supersedes it once the slow sources have resolved; Apps are values and are
// never updated in place.
type App struct {
	PackageName          string       `json:"package"`
	Name                 string       `json:"name"`
	VersionName          *string      `json:"version,omitempty"`
	Archived             *bool        `json:"archived,omitempty"`
	MinSdk               *int         `json:"min_sdk,omitempty"`
	TargetSdk            *int         `json:"target_sdk,omitempty"`
	FirstInstalled       *int64       `json:"first_installed,omitempty"`
	LastUpdated          *int64       `json:"last_updated,omitempty"`
	LastUsed             int64        `json:"last_used"`
	Sizes                StorageUsage `json:"sizes"`
	InstallerName        *string      `json:"installer,omitempty"`
	ExistsInStore        *bool        `json:"exists_in_store,omitempty"`
	GrantedPermissions   *int         `json:"granted_permissions,omitempty"`
	RequestedPermissions *int         `json:"requested_permissions,omitempty"`
	Enabled              bool         `json:"enabled"`
	Detailed             bool         `json:"detailed"`
}

// StorageUsage is the disk usage of one package. Counters are never negative.
type StorageUsage struct {
	ApkBytes           int64 `json:"apk_bytes"`
	AppBytes           int64 `json:"app_bytes"`
	CacheBytes         int64 `json:"cache_bytes"`
	DataBytes          int64 `json:"data_bytes"`
	ExternalCacheBytes int64 `json:"external_cache_bytes"`
}

// NewStorageUsage builds a StorageUsage, clamping negative counters to zero.
func NewStorageUsage(apk, app, cache, data, externalCache int64) StorageUsage {
	return StorageUsage{
		ApkBytes:           max(apk, 0),
		AppBytes:           max(app, 0),
		CacheBytes:         max(cache, 0),
		DataBytes:          max(data, 0),
		ExternalCacheBytes: max(externalCache, 0),
	}
}

// Total returns app+cache+data+external cache. The apk size is tracked
// separately and is not part of the total.
func (s StorageUsage) Total() int64 {
	return s.AppBytes + s.CacheBytes + s.DataBytes + s.ExternalCacheBytes
}

// Add returns the element-wise sum of s and other.
func (s StorageUsage) Add(other StorageUsage) StorageUsage {
	return NewStorageUsage(
		s.ApkBytes+other.ApkBytes,
		s.AppBytes+other.AppBytes,
		s.CacheBytes+other.CacheBytes,
		s.DataBytes+other.DataBytes,
		s.ExternalCacheBytes+other.ExternalCacheBytes,
	)
}

// PackageRecord is what a PackageSource enumerates without any slow lookups.
type PackageRecord struct {
	PackageName string
	ApkPath     string
	System      bool
	Enabled     bool
	MinSdk      *int
	TargetSdk   *int

	// ArchivedFlag is the platform's own archived state; nil where the
	// platform does not report one.
	ArchivedFlag *bool
	MetaData     map[string]string
}

// IsArchived reports whether the package binary has been offloaded.
// Without a native flag, a missing store metadata key means "not archived".
func (r PackageRecord) IsArchived() bool {
	if r.ArchivedFlag != nil && *r.ArchivedFlag {
		return true
	}

	_, ok := r.MetaData[ArchiveMetaDataKey]

	return ok
}

// IsUserInstalled reports whether the package lacks the system flag.
func (r PackageRecord) IsUserInstalled() bool {
	return !r.System
}

// PackageDetails holds the per-package metadata that needs a dedicated lookup.
type PackageDetails struct {
	VersionName          string
	FirstInstallTime     int64
	LastUpdateTime       int64
	RequestedPermissions []string
	GrantedPermissions   []string
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
