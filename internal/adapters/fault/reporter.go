// SPDX-FileCopyrightText: 2025 The Karei Authors
// SPDX-License-Identifier: EUPL-1.2

// Package fault collects non-fatal failures for diagnostics.
package fault

import (
	"sync"

	"github.com/janderssonse/applist/internal/metrics"
	"go.uber.org/zap"
)

// MaxBreadcrumbs bounds how many Log messages are kept for the next report.
const MaxBreadcrumbs = 32

// Reporter implements domain.FaultReporter. Reports are written to the
// logger together with the breadcrumbs logged since the previous report.
type Reporter struct {
	logger  *zap.Logger
	metrics *metrics.Metrics

	mu          sync.Mutex
	enabled     bool
	breadcrumbs []string
	reported    int
}

// NewReporter creates a reporter. A disabled reporter drops reports.
func NewReporter(enabled bool, m *metrics.Metrics, logger *zap.Logger) *Reporter {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Reporter{
		logger:  logger.Named("fault"),
		metrics: m,
		enabled: enabled,
	}
}

// SetEnabled toggles reporting at runtime.
func (r *Reporter) SetEnabled(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.enabled = enabled
	if !enabled {
		r.breadcrumbs = nil
	}
}

// Enabled reports whether reports are recorded.
func (r *Reporter) Enabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.enabled
}

// Log records a breadcrumb message.
func (r *Reporter) Log(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.enabled {
		return
	}

	if len(r.breadcrumbs) == MaxBreadcrumbs {
		r.breadcrumbs = r.breadcrumbs[1:]
	}

	r.breadcrumbs = append(r.breadcrumbs, message)
}

// Report records err with a human-readable context.
func (r *Reporter) Report(err error, context string) {
	r.mu.Lock()

	if !r.enabled {
		r.mu.Unlock()
		r.logger.Debug("fault report dropped", zap.String("context", context), zap.Error(err))

		return
	}

	crumbs := r.breadcrumbs
	r.breadcrumbs = nil
	r.reported++
	r.mu.Unlock()

	r.metrics.FaultReported()
	r.logger.Warn(context, zap.Error(err), zap.Strings("breadcrumbs", crumbs))
}

// Reported returns how many reports were recorded.
func (r *Reporter) Reported() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.reported
}
