package main

import (
	"context"
	"database/sql"
	"testing"
	"time"

	appmetrics "github.com/emperorhan/neo-wallet-engine/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDBStatsProvider struct {
	stats sql.DBStats
}

func (f fakeDBStatsProvider) Stats() sql.DBStats {
	return f.stats
}

type panicDBStatsProvider struct{}

func (panicDBStatsProvider) Stats() sql.DBStats {
	panic("db stats temporarily unavailable")
}

type flakyDBStatsProvider struct {
	failUntil int
	stats     sql.DBStats
	calls     int
	callCh    chan int
}

func (f *flakyDBStatsProvider) Stats() sql.DBStats {
	f.calls++
	if f.callCh != nil {
		f.callCh <- f.calls
	}
	if f.calls <= f.failUntil {
		panic("db stats temporarily unavailable")
	}
	return f.stats
}

func testGauges(suffix string) dbPoolStatsGauges {
	vec := func(name string) *prometheus.GaugeVec {
		return prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: name + suffix}, []string{"backend"})
	}
	return dbPoolStatsGauges{
		open:         vec("test_db_pool_open"),
		inUse:        vec("test_db_pool_in_use"),
		idle:         vec("test_db_pool_idle"),
		waitCount:    vec("test_db_pool_wait_count"),
		waitDuration: vec("test_db_pool_wait_duration_seconds"),
	}
}

var sampleStats = sql.DBStats{
	OpenConnections: 4,
	InUse:           1,
	Idle:            3,
	WaitCount:       13,
	WaitDuration:    1500 * time.Millisecond,
}

func TestCollectDBPoolStats_RecordsBackendMetrics(t *testing.T) {
	gauges := testGauges("")

	require.NoError(t, collectDBPoolStats(fakeDBStatsProvider{stats: sampleStats}, "postgres", gauges))

	assert.Equal(t, 4.0, testutil.ToFloat64(gauges.open.WithLabelValues("postgres")))
	assert.Equal(t, 1.0, testutil.ToFloat64(gauges.inUse.WithLabelValues("postgres")))
	assert.Equal(t, 3.0, testutil.ToFloat64(gauges.idle.WithLabelValues("postgres")))
	assert.Equal(t, 13.0, testutil.ToFloat64(gauges.waitCount.WithLabelValues("postgres")))
	assert.Equal(t, 1.5, testutil.ToFloat64(gauges.waitDuration.WithLabelValues("postgres")))
}

func TestCollectDBPoolStats_ReturnsErrorOnPanic(t *testing.T) {
	err := collectDBPoolStats(panicDBStatsProvider{}, "sqlite", testGauges("_error"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db pool stats collection panicked")
}

func TestCollectDBPoolStats_NilProvider(t *testing.T) {
	err := collectDBPoolStats(nil, "sqlite", testGauges("_nil"))
	require.Error(t, err)
}

func TestStartDBPoolStatsPump_ToleratesTransientStatsFailure(t *testing.T) {
	callCh := make(chan int, 3)
	provider := &flakyDBStatsProvider{failUntil: 1, stats: sampleStats, callCh: callCh}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	startDBPoolStatsPump(ctx, provider, "pump_test", 5*time.Millisecond, testLogger())

	timeout := time.After(2 * time.Second)
	for {
		select {
		case count := <-callCh:
			if count >= 2 {
				assert.Eventually(t, func() bool {
					return testutil.ToFloat64(appmetrics.DBPoolOpen.WithLabelValues("pump_test")) == 4.0
				}, time.Second, 5*time.Millisecond)
				cancel()
				return
			}
		case <-timeout:
			t.Fatal("stats pump did not retry after a failed collection")
		}
	}
}

func TestStartDBPoolStatsPump_DisabledWithoutProvider(t *testing.T) {
	assert.NotPanics(t, func() {
		startDBPoolStatsPump(context.Background(), nil, "sqlite", time.Millisecond, testLogger())
		startDBPoolStatsPump(context.Background(), fakeDBStatsProvider{}, "sqlite", 0, testLogger())
	})
}
