package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "neowallet"

var (
	// Aggregator
	AggregatorRefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "aggregator",
		Name:      "refresh_total",
		Help:      "Total completed portfolio refreshes by writable fetch outcome",
	}, []string{"writable"})

	AggregatorRefreshLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "aggregator",
		Name:      "refresh_duration_seconds",
		Help:      "Portfolio refresh duration including fan-out, merge and persist",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})

	AggregatorFetchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "aggregator",
		Name:      "fetch_errors_total",
		Help:      "Account state fetches that failed and were absorbed",
	}, []string{"role"})

	AggregatorInvalidAddresses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "aggregator",
		Name:      "invalid_addresses_total",
		Help:      "Addresses skipped because they failed checksum validation",
	}, []string{"role"})

	AggregatorWatchedAddresses = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "aggregator",
		Name:      "watched_addresses",
		Help:      "Valid watched addresses in the last refresh",
	})

	AggregatorPersistErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "aggregator",
		Name:      "persist_errors_total",
		Help:      "Aggregate views that could not be written to the balance cache",
	})

	// Claim orchestrator
	ClaimPhaseTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "claim",
		Name:      "phase_transitions_total",
		Help:      "Claim state machine transitions by target phase",
	}, []string{"phase"})

	ClaimAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "claim",
		Name:      "attempts_total",
		Help:      "Consolidation and claim submissions by outcome",
	}, []string{"step", "result"})

	ClaimRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "claim",
		Name:      "retries_total",
		Help:      "Scheduled claim retries by step and classification reason",
	}, []string{"step", "reason"})

	ClaimSucceeded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "claim",
		Name:      "succeeded_total",
		Help:      "Claim sequences that ended with an accepted claim transaction",
	})

	ClaimFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "claim",
		Name:      "failed_total",
		Help:      "Claim sequences that ended without a claim",
	}, []string{"reason"})

	ClaimRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "claim",
		Name:      "rejected_total",
		Help:      "StartClaim calls rejected before any state change",
	}, []string{"reason"})

	ClaimPendingGAS = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "claim",
		Name:      "pending_claimable_gas",
		Help:      "Last observed claimable GAS for the writable address",
	})

	// Node selection
	NodeProbeLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "nodeselect",
		Name:      "probe_duration_seconds",
		Help:      "Latency of getblockcount probes per endpoint",
		Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"endpoint"})

	NodeProbeErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "nodeselect",
		Name:      "probe_errors_total",
		Help:      "Failed endpoint probes",
	}, []string{"endpoint"})

	NodeBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "nodeselect",
		Name:      "breaker_state",
		Help:      "Endpoint breaker state (0=closed, 1=open, 2=half-open)",
	}, []string{"endpoint"})

	NodeSelectedHeight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "nodeselect",
		Name:      "selected_height",
		Help:      "Block height reported by the most recently selected endpoint",
	})

	// RPC
	RPCCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "rpc",
		Name:      "calls_total",
		Help:      "Total node calls by method and status",
	}, []string{"method", "status"})

	RPCCallLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "rpc",
		Name:      "call_duration_seconds",
		Help:      "Node call duration",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"method"})

	RPCRateLimitWaits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "rpc",
		Name:      "rate_limit_waits_total",
		Help:      "Total times node calls waited for the rate limiter",
	}, []string{"client"})

	TokenInfoCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "rpc",
		Name:      "token_info_lookups_total",
		Help:      "NEP-5 metadata lookups by cache result",
	}, []string{"result"})

	// Store
	StoreOperationLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "operation_duration_seconds",
		Help:      "Key-value store operation duration",
		Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}, []string{"backend", "op"})

	StoreErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "errors_total",
		Help:      "Key-value store operation failures",
	}, []string{"backend", "op"})

	DBPoolOpen = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "db_pool_open_connections",
		Help:      "Open connections in the SQL store pool",
	}, []string{"backend"})

	DBPoolInUse = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "db_pool_in_use_connections",
		Help:      "Connections currently in use in the SQL store pool",
	}, []string{"backend"})

	DBPoolIdle = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "db_pool_idle_connections",
		Help:      "Idle connections in the SQL store pool",
	}, []string{"backend"})

	DBPoolWaitCount = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "db_pool_wait_count",
		Help:      "Total connections waited for in the SQL store pool",
	}, []string{"backend"})

	DBPoolWaitDurationSeconds = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "db_pool_wait_duration_seconds",
		Help:      "Total time blocked waiting for SQL store connections",
	}, []string{"backend"})

	// Alerts
	AlertsSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "alert",
		Name:      "sent_total",
		Help:      "Total alerts sent",
	}, []string{"channel", "alert_type"})

	AlertsCooldownSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "alert",
		Name:      "cooldown_skipped_total",
		Help:      "Total alerts skipped due to cooldown",
	}, []string{"channel", "alert_type"})
)
