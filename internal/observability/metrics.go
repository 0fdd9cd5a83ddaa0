// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"math/big"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Mirror batch metrics
	MirrorBatchesTotal  *prometheus.CounterVec
	FollowerLegsCopied  prometheus.Counter
	FollowerLegsFailed  *prometheus.CounterVec
	BatchFollowerCount  prometheus.Histogram
	BatchDuration       prometheus.Histogram

	// Vault metrics
	VaultOperationsTotal *prometheus.CounterVec
	FeesCollectedTotal   *prometheus.CounterVec

	// Gateway metrics
	GatewaySwapLatency *prometheus.HistogramVec
	GatewaySwapErrors  *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
	DBConnections   *prometheus.GaugeVec

	// Health metrics
	LastSuccessfulBatch prometheus.Gauge
	RegisteredFollowers prometheus.Gauge
	UptimeSeconds       prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "mirrorvault"
	}

	return &Metrics{
		// Mirror batch metrics
		MirrorBatchesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "mirror_batches_total",
			Help:      "Total number of mirror batches by status",
		}, []string{"status"}),
		FollowerLegsCopied: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "follower_legs_copied_total",
			Help:      "Total number of follower legs executed successfully",
		}),
		FollowerLegsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "follower_legs_failed_total",
			Help:      "Total number of follower legs failed by reason",
		}, []string{"reason"}),
		BatchFollowerCount: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "batch_follower_count",
			Help:      "Number of followers per mirror batch",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250},
		}),
		BatchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "batch_duration_seconds",
			Help:      "Mirror batch execution duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		// Vault metrics
		VaultOperationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "vault",
			Name:      "operations_total",
			Help:      "Total number of vault operations by kind and operation",
		}, []string{"kind", "operation", "status"}),
		FeesCollectedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "vault",
			Name:      "fees_collected_total",
			Help:      "Total fee amount collected in base units by fee type",
		}, []string{"fee_type"}),

		// Gateway metrics
		GatewaySwapLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "swap_latency_seconds",
			Help:      "Execution gateway swap call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"pair"}),
		GatewaySwapErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "swap_errors_total",
			Help:      "Total number of gateway swap failures by reason",
		}, []string{"reason"}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
		DBConnections: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "connections",
			Help:      "Number of database connections by state",
		}, []string{"database", "state"}),

		// Health metrics
		LastSuccessfulBatch: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_batch_timestamp",
			Help:      "Unix timestamp of last successfully settled mirror batch",
		}),
		RegisteredFollowers: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "registered_followers",
			Help:      "Current number of follower subscriptions (duplicates included)",
		}),
		UptimeSeconds: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "uptime_seconds_total",
			Help:      "Total uptime in seconds",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordBatchSettled records a successfully settled mirror batch.
func RecordBatchSettled(followers int, durationSeconds float64, timestampSec int64) {
	DefaultMetrics.MirrorBatchesTotal.WithLabelValues("settled").Inc()
	DefaultMetrics.BatchFollowerCount.Observe(float64(followers))
	DefaultMetrics.BatchDuration.Observe(durationSeconds)
	DefaultMetrics.FollowerLegsCopied.Add(float64(followers))
	DefaultMetrics.LastSuccessfulBatch.Set(float64(timestampSec))
}

// RecordBatchFailed records a rolled-back mirror batch.
func RecordBatchFailed(reason string) {
	DefaultMetrics.MirrorBatchesTotal.WithLabelValues("failed").Inc()
	DefaultMetrics.FollowerLegsFailed.WithLabelValues(reason).Inc()
}

// RecordVaultOperation records one vault operation outcome.
func RecordVaultOperation(kind, operation string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	DefaultMetrics.VaultOperationsTotal.WithLabelValues(kind, operation, status).Inc()
}

// RecordFeeCollected adds a collected fee amount in base units. Precision
// above float64 is lost in the metric; the collector keeps the exact totals.
func RecordFeeCollected(feeType string, amount *big.Int) {
	if amount == nil || amount.Sign() <= 0 {
		return
	}
	f, _ := new(big.Float).SetInt(amount).Float64()
	DefaultMetrics.FeesCollectedTotal.WithLabelValues(feeType).Add(f)
}

// RecordGatewaySwap records gateway call latency and failure reason.
func RecordGatewaySwap(pair string, seconds float64, reason string) {
	DefaultMetrics.GatewaySwapLatency.WithLabelValues(pair).Observe(seconds)
	if reason != "" {
		DefaultMetrics.GatewaySwapErrors.WithLabelValues(reason).Inc()
	}
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// UpdateRegisteredFollowers updates the subscription count gauge.
func UpdateRegisteredFollowers(count int) {
	DefaultMetrics.RegisteredFollowers.Set(float64(count))
}
