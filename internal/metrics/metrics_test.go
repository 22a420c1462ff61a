// SPDX-FileCopyrightText: 2025 The Karei Authors
// SPDX-License-Identifier: EUPL-1.2

package metrics_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/janderssonse/applist/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	t.Parallel()

	var m *metrics.Metrics

	assert.NotPanics(t, func() {
		m.RunFinished("ok", time.Second)
		m.DetailStarted()(true)
		m.StoreChecked(metrics.StoreFound)
		m.FaultReported()
		m.UsageQueried()
		m.SnapshotEmitted("basic", 3)
		require.NoError(t, m.WriteTextfile("/nonexistent/never-written"))
	})
	assert.Nil(t, m.Registry())
}

func TestDetailStarted(t *testing.T) {
	t.Parallel()

	m := metrics.New()

	done := m.DetailStarted()
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.DetailsInFlight), 0)

	done(true)
	assert.InDelta(t, 0.0, testutil.ToFloat64(m.DetailsInFlight), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.DetailFallbacks), 0)

	m.DetailStarted()(false)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.DetailFallbacks), 0)
}

func TestStoreChecked(t *testing.T) {
	t.Parallel()

	m := metrics.New()
	m.StoreChecked(metrics.StoreFound)
	m.StoreChecked(metrics.StoreFound)
	m.StoreChecked(metrics.StoreUnknown)

	assert.InDelta(t, 2.0, testutil.ToFloat64(m.StoreChecks.WithLabelValues(metrics.StoreFound)), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.StoreChecks.WithLabelValues(metrics.StoreUnknown)), 0)
}

func TestWriteTextfile(t *testing.T) {
	t.Parallel()

	m := metrics.New()
	m.RunFinished("ok", 1500*time.Millisecond)
	m.UsageQueried()

	path := filepath.Join(t.TempDir(), "applist.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `applist_aggregation_runs_total{outcome="ok"} 1`)
	assert.Contains(t, string(data), "applist_usage_queries_total 1")
}
