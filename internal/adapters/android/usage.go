// SPDX-FileCopyrightText: 2025 The Karei Authors
// SPDX-License-Identifier: EUPL-1.2

package android

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/janderssonse/applist/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// UsageLookback is how far back last-used timestamps are considered.
const UsageLookback = 2 * 365 * 24 * time.Hour

// UsageStatsService implements domain.UsageSource over adb. The last-used
// map is kept until a reload is requested.
type UsageStatsService struct {
	client   *Client
	logger   *zap.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
	location *time.Location

	flight singleflight.Group

	mu     sync.Mutex
	epochs map[string]int64
}

// NewUsageStatsService creates a usage source.
func NewUsageStatsService(client *Client, m *metrics.Metrics, logger *zap.Logger) *UsageStatsService {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &UsageStatsService{
		client:   client,
		logger:   logger,
		metrics:  m,
		now:      time.Now,
		location: time.Local,
	}
}

// SetClock replaces the clock used for the lookback window.
func (s *UsageStatsService) SetClock(now func() time.Time) {
	s.now = now
}

// LastUsedEpochs maps package names to their last use in epoch millis.
func (s *UsageStatsService) LastUsedEpochs(ctx context.Context, reload bool) (map[string]int64, error) {
	if !reload {
		s.mu.Lock()
		cached := s.epochs
		s.mu.Unlock()

		if cached != nil {
			return cached, nil
		}
	}

	key := "cached"
	if reload {
		key = "reload"
	}

	v, err, _ := s.flight.Do(key, func() (interface{}, error) {
		return s.query(ctx)
	})
	if err != nil {
		return nil, err
	}

	epochs, ok := v.(map[string]int64)
	if !ok {
		return nil, errors.New("unexpected usage map type")
	}

	return epochs, nil
}

func (s *UsageStatsService) query(ctx context.Context) (map[string]int64, error) {
	s.metrics.UsageQueried()

	out, err := s.client.Shell(ctx, "dumpsys", "usagestats")
	if err != nil {
		return nil, fmt.Errorf("failed to read usage stats: %w", err)
	}

	since := s.now().Add(-UsageLookback)
	epochs := parseLastUsed(out, since, s.location)

	s.mu.Lock()
	s.epochs = epochs
	s.mu.Unlock()

	s.logger.Debug("usage stats loaded", zap.Int("packages", len(epochs)))

	return epochs, nil
}
