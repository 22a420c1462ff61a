// SPDX-FileCopyrightText: 2025 The Karei Authors
// SPDX-License-Identifier: EUPL-1.2

// Package metrics holds the Prometheus collectors of one applist process.
//
// The registry is private; a CLI run can dump it in node_exporter textfile
// format with WriteTextfile.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Store check results.
const (
	StoreFound    = "found"
	StoreMissing  = "missing"
	StoreUnknown  = "unknown"
	StoreSkipped  = "skipped"
	StoreCacheHit = "cache_hit"
)

// Metrics holds all collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	RunsTotal           *prometheus.CounterVec
	DetailDuration      prometheus.Histogram
	DetailsInFlight     prometheus.Gauge
	DetailFallbacks     prometheus.Counter
	StoreChecks         *prometheus.CounterVec
	FaultReports        prometheus.Counter
	UsageQueries        prometheus.Counter
	AppsLoaded          *prometheus.GaugeVec
	LastRunDurationSecs prometheus.Gauge
}

// New creates a metrics collector with its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "applist_aggregation_runs_total",
				Help: "Aggregation runs by outcome",
			},
			[]string{"outcome"},
		),
		DetailDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "applist_detail_fetch_duration_seconds",
				Help:    "Duration of one per-package detail fetch",
				Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
		),
		DetailsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "applist_detail_fetches_in_flight",
				Help: "Per-package detail fetches currently running",
			},
		),
		DetailFallbacks: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "applist_detail_fallbacks_total",
				Help: "Detail fetches that fell back to the basic record",
			},
		),
		StoreChecks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "applist_store_checks_total",
				Help: "Store existence checks by result",
			},
			[]string{"result"},
		),
		FaultReports: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "applist_fault_reports_total",
				Help: "Non-fatal faults reported",
			},
		),
		UsageQueries: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "applist_usage_queries_total",
				Help: "Fresh queries of the usage statistics source",
			},
		),
		AppsLoaded: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "applist_apps_loaded",
				Help: "Applications in the last emitted snapshot by phase",
			},
			[]string{"phase"},
		),
		LastRunDurationSecs: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "applist_last_run_duration_seconds",
				Help: "Wall time of the last completed aggregation run",
			},
		),
	}
}

// Registry exposes the underlying registry, e.g. for gathering in tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}

	return m.registry
}

// RunFinished records a completed aggregation run.
func (m *Metrics) RunFinished(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}

	m.RunsTotal.WithLabelValues(outcome).Inc()
	m.LastRunDurationSecs.Set(elapsed.Seconds())
}

// DetailStarted marks one detail fetch as running and returns a func that
// records its completion.
func (m *Metrics) DetailStarted() func(fallback bool) {
	if m == nil {
		return func(bool) {}
	}

	start := time.Now()

	m.DetailsInFlight.Inc()

	return func(fallback bool) {
		m.DetailsInFlight.Dec()
		m.DetailDuration.Observe(time.Since(start).Seconds())

		if fallback {
			m.DetailFallbacks.Inc()
		}
	}
}

// StoreChecked counts one store existence check.
func (m *Metrics) StoreChecked(result string) {
	if m == nil {
		return
	}

	m.StoreChecks.WithLabelValues(result).Inc()
}

// FaultReported counts one fault report.
func (m *Metrics) FaultReported() {
	if m == nil {
		return
	}

	m.FaultReports.Inc()
}

// UsageQueried counts one fresh usage statistics query.
func (m *Metrics) UsageQueried() {
	if m == nil {
		return
	}

	m.UsageQueries.Inc()
}

// SnapshotEmitted records the size of an emitted snapshot.
func (m *Metrics) SnapshotEmitted(phase string, apps int) {
	if m == nil {
		return
	}

	m.AppsLoaded.WithLabelValues(phase).Set(float64(apps))
}

// WriteTextfile writes every collector to path in textfile collector format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}

	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}

	return nil
}
