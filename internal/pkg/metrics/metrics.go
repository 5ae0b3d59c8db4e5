package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "collateral_monitor"

var (
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
		},
		[]string{"method", "path"},
	)

	providerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "requests_total",
			Help:      "Position provider calls by outcome.",
		},
		[]string{"outcome"},
	)

	providerDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "request_duration_seconds",
			Help:      "Duration of position provider calls.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		},
	)

	snapshotWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "customers",
			Name:      "snapshot_writes_total",
			Help:      "Snapshot write-backs by result.",
		},
		[]string{"result"},
	)

	fallbacks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "customers",
			Name:      "fallbacks_total",
			Help:      "Customers served from persisted data after a provider failure.",
		},
	)

	registerOnce sync.Once
)

// MustRegisterMetrics registers all collectors with the default registry.
// Safe to call more than once.
func MustRegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			httpDuration,
			providerRequests,
			providerDuration,
			snapshotWrites,
			fallbacks,
		)
	})
}

// ObserveHTTPRequest records a finished HTTP request.
func ObserveHTTPRequest(method, path, status string, elapsed time.Duration) {
	httpRequests.WithLabelValues(method, path, status).Inc()
	httpDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

// ObserveProviderRequest records a position provider call.
func ObserveProviderRequest(outcome string, elapsed time.Duration) {
	providerRequests.WithLabelValues(outcome).Inc()
	providerDuration.Observe(elapsed.Seconds())
}

// IncSnapshotWrite counts a write-back attempt: "ok", "stale" or "error".
func IncSnapshotWrite(result string) {
	snapshotWrites.WithLabelValues(result).Inc()
}

// IncFallback counts a customer served from persisted data.
func IncFallback() {
	fallbacks.Inc()
}
