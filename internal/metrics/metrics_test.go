package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_AllVariablesNonNil(t *testing.T) {
	t.Parallel()

	vars := []struct {
		name string
		val  any
	}{
		{"AggregatorRefreshTotal", AggregatorRefreshTotal},
		{"AggregatorRefreshLatency", AggregatorRefreshLatency},
		{"AggregatorFetchErrors", AggregatorFetchErrors},
		{"AggregatorInvalidAddresses", AggregatorInvalidAddresses},
		{"AggregatorWatchedAddresses", AggregatorWatchedAddresses},
		{"AggregatorPersistErrors", AggregatorPersistErrors},
		{"ClaimPhaseTransitions", ClaimPhaseTransitions},
		{"ClaimAttempts", ClaimAttempts},
		{"ClaimRetries", ClaimRetries},
		{"ClaimSucceeded", ClaimSucceeded},
		{"ClaimFailed", ClaimFailed},
		{"ClaimRejected", ClaimRejected},
		{"ClaimPendingGAS", ClaimPendingGAS},
		{"NodeProbeLatency", NodeProbeLatency},
		{"NodeProbeErrors", NodeProbeErrors},
		{"NodeBreakerState", NodeBreakerState},
		{"NodeSelectedHeight", NodeSelectedHeight},
		{"RPCCallsTotal", RPCCallsTotal},
		{"RPCCallLatency", RPCCallLatency},
		{"RPCRateLimitWaits", RPCRateLimitWaits},
		{"TokenInfoCacheLookups", TokenInfoCacheLookups},
		{"StoreOperationLatency", StoreOperationLatency},
		{"StoreErrors", StoreErrors},
		{"DBPoolOpen", DBPoolOpen},
		{"DBPoolInUse", DBPoolInUse},
		{"DBPoolIdle", DBPoolIdle},
		{"DBPoolWaitCount", DBPoolWaitCount},
		{"DBPoolWaitDurationSeconds", DBPoolWaitDurationSeconds},
		{"AlertsSentTotal", AlertsSentTotal},
		{"AlertsCooldownSkipped", AlertsCooldownSkipped},
	}

	for _, v := range vars {
		assert.NotNilf(t, v.val, "%s should not be nil", v.name)
	}
}

func TestMetrics_CounterIncrementNoPanic(t *testing.T) {
	t.Parallel()

	assert.NotPanics(t, func() { AggregatorRefreshTotal.WithLabelValues("ok").Inc() })
	assert.NotPanics(t, func() { AggregatorFetchErrors.WithLabelValues("watched").Inc() })
	assert.NotPanics(t, func() { ClaimAttempts.WithLabelValues("claim", "ok").Inc() })
	assert.NotPanics(t, func() { ClaimRetries.WithLabelValues("consolidate", "message_transient").Inc() })
	assert.NotPanics(t, func() { NodeProbeErrors.WithLabelValues("http://seed").Inc() })
	assert.NotPanics(t, func() { StoreErrors.WithLabelValues("sqlite", "get").Inc() })
	assert.NotPanics(t, func() { AggregatorRefreshLatency.Observe(0.2) })
	assert.NotPanics(t, func() { ClaimPendingGAS.Set(1.5) })
}

func TestMetrics_ClaimRejectedCounts(t *testing.T) {
	before := testutil.ToFloat64(ClaimRejected.WithLabelValues("metrics_test"))
	ClaimRejected.WithLabelValues("metrics_test").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(ClaimRejected.WithLabelValues("metrics_test")))
}
