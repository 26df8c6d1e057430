// Package metrics exposes prometheus instrumentation for the discovery
// engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	registry = prometheus.NewRegistry()
	logger   *zap.Logger
)

// Initialize wires the package registry as the default registerer so
// promauto constructors land on it.
func Initialize(log *zap.Logger) {
	logger = log
	prometheus.DefaultRegisterer = registry
}

// Registry returns the registry all engine metrics are registered on.
func Registry() *prometheus.Registry {
	return registry
}

// StrategyMetrics counts the discovery pipeline: enumerated paths,
// evaluations, survivors, and chain interactions.
type StrategyMetrics struct {
	PathsEnumerated     prometheus.Counter
	PathsEvaluated      prometheus.Counter
	EvaluationErrors    prometheus.Counter
	OpportunitiesFound  prometheus.Counter
	PoolRefreshFailures prometheus.Counter
	InflightEvaluations prometheus.Gauge
	EvaluationTime      prometheus.Histogram
	GasPrice            prometheus.Histogram
}

// NewStrategyMetrics registers the strategy metric set under the given
// namespace.
func NewStrategyMetrics(namespace string) *StrategyMetrics {
	return &StrategyMetrics{
		PathsEnumerated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "paths_enumerated_total",
			Help:      "Total number of candidate paths produced by enumeration",
		}),
		PathsEvaluated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "paths_evaluated_total",
			Help:      "Total number of paths run through the evaluation pipeline",
		}),
		EvaluationErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluation_errors_total",
			Help:      "Total number of per-path evaluation failures",
		}),
		OpportunitiesFound: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "opportunities_found_total",
			Help:      "Total number of opportunities surviving filters",
		}),
		PoolRefreshFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pool_refresh_failures_total",
			Help:      "Total number of failed pool refetches",
		}),
		InflightEvaluations: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "inflight_evaluations",
			Help:      "Number of path evaluations currently running",
		}),
		EvaluationTime: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "evaluation_time_seconds",
			Help:      "Per-path evaluation latency in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12),
		}),
		GasPrice: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "gas_price_wei",
			Help:      "Observed gas prices in wei",
			Buckets:   prometheus.ExponentialBuckets(1e9, 2, 12),
		}),
	}
}
