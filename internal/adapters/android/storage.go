// SPDX-FileCopyrightText: 2025 The Karei Authors
// SPDX-License-Identifier: EUPL-1.2

package android

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/janderssonse/applist/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// fatSerial matches the volume id of FAT and exFAT media, e.g. "1234-ABCD".
var fatSerial = regexp.MustCompile(`^[0-9A-Fa-f]{4}-[0-9A-Fa-f]{4}$`)

// Volume is one mounted storage volume.
type Volume struct {
	ID   string
	UUID string // empty for the primary emulated volume
}

// dataRoot is where per-app external directories live on the volume.
func (v Volume) dataRoot() string {
	if v.UUID == "" {
		return "/storage/emulated/0/Android/data"
	}

	return "/storage/" + v.UUID + "/Android/data"
}

// diskStats is the per-package size snapshot from `dumpsys diskstats`.
type diskStats struct {
	app   map[string]int64
	data  map[string]int64
	cache map[string]int64
}

// StorageService implements domain.StorageSource over adb.
type StorageService struct {
	client *Client
	logger *zap.Logger

	flight singleflight.Group

	mu      sync.Mutex
	stats   *diskStats
	volumes []Volume
	scanned bool
}

// NewStorageService creates a storage source.
func NewStorageService(client *Client, logger *zap.Logger) *StorageService {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &StorageService{client: client, logger: logger}
}

// UsageOf never fails. Counters that cannot be read are zero.
func (s *StorageService) UsageOf(ctx context.Context, rec domain.PackageRecord) domain.StorageUsage {
	apk := s.apkSize(ctx, rec)

	var app, data, cache int64

	if stats, err := s.diskStats(ctx); err != nil {
		s.logger.Warn("disk stats unavailable", zap.Error(err))
	} else {
		app = stats.app[rec.PackageName]
		cache = stats.cache[rec.PackageName]
		data = stats.data[rec.PackageName] - cache
	}

	external := s.externalCache(ctx, rec.PackageName)

	return domain.NewStorageUsage(apk, app, cache, data, external)
}

func (s *StorageService) apkSize(ctx context.Context, rec domain.PackageRecord) int64 {
	if rec.ApkPath == "" {
		return 0
	}

	out, err := s.client.Shell(ctx, "stat", "-c", "%s", rec.ApkPath)
	if err != nil {
		s.logDenied("apk size", rec.PackageName, err)
		return 0
	}

	size, err := strconv.ParseInt(strings.TrimSpace(out), 10, 64)
	if err != nil {
		return 0
	}

	return size
}

// diskStats fetches `dumpsys diskstats` once per process.
func (s *StorageService) diskStats(ctx context.Context) (*diskStats, error) {
	s.mu.Lock()
	cached := s.stats
	s.mu.Unlock()

	if cached != nil {
		return cached, nil
	}

	v, err, _ := s.flight.Do("diskstats", func() (interface{}, error) {
		out, err := s.client.Shell(ctx, "dumpsys", "diskstats")
		if err != nil {
			return nil, err
		}

		stats, err := parseDiskStats(out)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		s.stats = stats
		s.mu.Unlock()

		return stats, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read disk stats: %w", err)
	}

	stats, ok := v.(*diskStats)
	if !ok {
		return nil, errors.New("unexpected disk stats type")
	}

	return stats, nil
}

// externalCache sums the app's cache directory over every mounted volume.
func (s *StorageService) externalCache(ctx context.Context, pkg string) int64 {
	var total int64

	for _, vol := range s.mountedVolumes(ctx) {
		path := vol.dataRoot() + "/" + pkg + "/cache"

		out, err := s.client.Shell(ctx, "du", "-sk", path)
		if err != nil {
			s.logDenied("external cache", pkg, err)
			continue
		}

		total += parseDuKilobytes(out) * 1024
	}

	return total
}

func (s *StorageService) mountedVolumes(ctx context.Context) []Volume {
	s.mu.Lock()
	if s.scanned {
		volumes := s.volumes
		s.mu.Unlock()

		return volumes
	}
	s.mu.Unlock()

	v, _, _ := s.flight.Do("volumes", func() (interface{}, error) {
		volumes := []Volume{{ID: "emulated;0"}}

		out, err := s.client.Shell(ctx, "sm", "list-volumes", "all")
		if err != nil {
			s.logger.Warn("volume list unavailable, using primary storage", zap.Error(err))
		} else {
			volumes = parseVolumes(out, s.logger)
		}

		s.mu.Lock()
		s.volumes = volumes
		s.scanned = true
		s.mu.Unlock()

		return volumes, nil
	})

	volumes, _ := v.([]Volume)

	return volumes
}

func (s *StorageService) logDenied(what, pkg string, err error) {
	if errors.Is(err, domain.ErrPermissionDenied) {
		s.logger.Debug(what+" not readable", zap.String("package", pkg))
		return
	}

	s.logger.Debug(what+" unavailable", zap.String("package", pkg), zap.Error(err))
}

// parseDiskStats reads the JSON arrays printed by `dumpsys diskstats`.
func parseDiskStats(out string) (*diskStats, error) {
	arrays := make(map[string]string)

	for _, line := range strings.Split(out, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}

		value = strings.TrimSpace(value)
		if strings.HasPrefix(value, "[") {
			arrays[strings.TrimSpace(key)] = value
		}
	}

	var names []string
	if err := json.Unmarshal([]byte(arrays["Package Names"]), &names); err != nil {
		return nil, fmt.Errorf("malformed package names: %w", err)
	}

	stats := &diskStats{
		app:   make(map[string]int64, len(names)),
		data:  make(map[string]int64, len(names)),
		cache: make(map[string]int64, len(names)),
	}

	for key, into := range map[string]map[string]int64{
		"App Sizes":      stats.app,
		"App Data Sizes": stats.data,
		"Cache Sizes":    stats.cache,
	} {
		var sizes []int64
		if err := json.Unmarshal([]byte(arrays[key]), &sizes); err != nil {
			return nil, fmt.Errorf("malformed %s: %w", strings.ToLower(key), err)
		}

		for i, name := range names {
			if i < len(sizes) {
				into[name] += sizes[i]
			}
		}
	}

	return stats, nil
}

// parseVolumes reads `sm list-volumes all` lines such as
// "public:179,1 mounted 1234-ABCD". Volumes with a malformed uuid are skipped.
func parseVolumes(out string, logger *zap.Logger) []Volume {
	var volumes []Volume

	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 || fields[1] != "mounted" {
			continue
		}

		id, rawUUID := fields[0], fields[2]

		switch {
		case strings.HasPrefix(id, "emulated"):
			volumes = append(volumes, Volume{ID: id})
		case strings.HasPrefix(id, "private"):
			// internal storage, covered by diskstats
		case fatSerial.MatchString(rawUUID):
			volumes = append(volumes, Volume{ID: id, UUID: strings.ToUpper(rawUUID)})
		case ValidVolumeUUID(rawUUID):
			volumes = append(volumes, Volume{ID: id, UUID: rawUUID})
		default:
			logger.Warn("skipping volume with malformed uuid",
				zap.String("volume", id), zap.String("uuid", rawUUID))
		}
	}

	return volumes
}

// ValidVolumeUUID accepts RFC 4122 uuids and FAT volume serials.
func ValidVolumeUUID(s string) bool {
	if fatSerial.MatchString(s) {
		return true
	}

	_, err := uuid.Parse(s)

	return err == nil
}

func parseDuKilobytes(out string) int64 {
	fields := strings.Fields(out)
	if len(fields) == 0 {
		return 0
	}

	kb, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return 0
	}

	return kb
}
