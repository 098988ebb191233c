// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Sync metrics
	SyncsTotal         *prometheus.CounterVec
	SyncDuration       prometheus.Histogram
	NewLedgerRows      prometheus.Counter
	SkippedDuplicates  prometheus.Counter
	RowPersistFailures prometheus.Counter
	SpareChangeAccrued prometheus.Counter

	// Payout metrics
	BatchesCreated prometheus.Counter
	BatchValueUsd  prometheus.Histogram
	BatchDrift     prometheus.Counter

	// Pricing metrics
	PriceCacheHits     prometheus.Counter
	PriceCacheMisses   prometheus.Counter
	PriceFetchFailures prometheus.Counter
	DegradedQuotes     prometheus.Counter

	// Solana metrics
	RPCCallLatency *prometheus.HistogramVec
	WSSyncTriggers prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "solana_roundup"
	}

	return &Metrics{
		SyncsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tracker",
			Name:      "syncs_total",
			Help:      "Total number of wallet syncs by status",
		}, []string{"status"}),
		SyncDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "tracker",
			Name:      "sync_duration_seconds",
			Help:      "Wallet sync duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		NewLedgerRows: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tracker",
			Name:      "ledger_rows_created_total",
			Help:      "Total number of new spare-change ledger rows",
		}),
		SkippedDuplicates: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tracker",
			Name:      "duplicate_signatures_skipped_total",
			Help:      "Total number of already-stored signatures skipped during sync",
		}),
		RowPersistFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tracker",
			Name:      "row_persist_failures_total",
			Help:      "Total number of ledger rows that failed to persist and were skipped",
		}),
		SpareChangeAccrued: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tracker",
			Name:      "spare_change_accrued_usd_total",
			Help:      "Total spare change accrued in USD",
		}),

		BatchesCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "batcher",
			Name:      "batches_created_total",
			Help:      "Total number of payout batches created",
		}),
		BatchValueUsd: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "batcher",
			Name:      "batch_value_usd",
			Help:      "Payout batch totals in USD",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100},
		}),
		BatchDrift: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "batcher",
			Name:      "accumulator_drift_total",
			Help:      "Times the accumulator crossed the threshold with no unprocessed rows",
		}),

		PriceCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pricing",
			Name:      "cache_hits_total",
			Help:      "Total number of price cache hits",
		}),
		PriceCacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pricing",
			Name:      "cache_misses_total",
			Help:      "Total number of price cache misses",
		}),
		PriceFetchFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pricing",
			Name:      "fetch_failures_total",
			Help:      "Total number of live price fetch failures",
		}),
		DegradedQuotes: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pricing",
			Name:      "degraded_quotes_total",
			Help:      "Total number of zero-priced degraded quotes served",
		}),

		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		WSSyncTriggers: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "ws_sync_triggers_total",
			Help:      "Total number of syncs triggered by wallet activity notifications",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordSync increments the sync counter and observes its duration.
func RecordSync(status string, seconds float64) {
	DefaultMetrics.SyncsTotal.WithLabelValues(status).Inc()
	DefaultMetrics.SyncDuration.Observe(seconds)
}

// RecordAccrual records a new ledger row and its USD contribution.
func RecordAccrual(spareChangeUsd float64) {
	DefaultMetrics.NewLedgerRows.Inc()
	DefaultMetrics.SpareChangeAccrued.Add(spareChangeUsd)
}

// RecordBatchCreated records a created payout batch and its USD total.
func RecordBatchCreated(totalUsd float64) {
	DefaultMetrics.BatchesCreated.Inc()
	DefaultMetrics.BatchValueUsd.Observe(totalUsd)
}

// RecordPriceCacheHit increments the price cache hit counter.
func RecordPriceCacheHit() {
	DefaultMetrics.PriceCacheHits.Inc()
}

// RecordPriceCacheMiss increments the price cache miss counter.
func RecordPriceCacheMiss() {
	DefaultMetrics.PriceCacheMisses.Inc()
}

// RecordDegradedQuote records a price fetch failure degraded to zero.
func RecordDegradedQuote() {
	DefaultMetrics.PriceFetchFailures.Inc()
	DefaultMetrics.DegradedQuotes.Inc()
}
