// Package metrics provides Prometheus metrics export for the thread
// resolver: resolution outcomes, latency, cache effectiveness, and adapter
// health.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aico-ai/aico/ai/cache"
)

// PrometheusExporter exports resolver metrics in Prometheus format.
type PrometheusExporter struct {
	registry *prometheus.Registry

	// Resolution metrics
	resolutions    *prometheus.CounterVec
	resolveLatency *prometheus.HistogramVec
	activeResolves prometheus.Gauge
	timeouts       prometheus.Counter
	failures       *prometheus.CounterVec

	// Cache metrics
	cacheHits      *prometheus.GaugeVec
	cacheMisses    *prometheus.GaugeVec
	cacheEvictions *prometheus.GaugeVec
	cacheEntries   *prometheus.GaugeVec

	// Adapter metrics
	adapterErrors *prometheus.CounterVec
}

// Config configures the Prometheus exporter.
type Config struct {
	// Registry to use (if nil, creates a new one)
	Registry *prometheus.Registry

	// Buckets for latency histograms (in seconds)
	LatencyBuckets []float64
}

// DefaultConfig returns default Prometheus configuration. The buckets bracket
// the resolver's 3s deadline.
func DefaultConfig() Config {
	return Config{
		LatencyBuckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5},
	}
}

// NewPrometheusExporter creates a new Prometheus metrics exporter.
func NewPrometheusExporter(cfg Config) *PrometheusExporter {
	if len(cfg.LatencyBuckets) == 0 {
		cfg.LatencyBuckets = DefaultConfig().LatencyBuckets
	}

	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	e := &PrometheusExporter{registry: registry}

	e.resolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aico",
			Subsystem: "resolver",
			Name:      "resolutions_total",
			Help:      "Total number of thread resolutions",
		},
		[]string{"action", "reason"},
	)

	e.resolveLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "aico",
			Subsystem: "resolver",
			Name:      "resolve_latency_seconds",
			Help:      "Thread resolution latency in seconds",
			Buckets:   cfg.LatencyBuckets,
		},
		[]string{"action"},
	)

	e.activeResolves = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "aico",
			Subsystem: "resolver",
			Name:      "resolves_active",
			Help:      "Number of in-flight resolve calls",
		},
	)

	e.timeouts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "aico",
			Subsystem: "resolver",
			Name:      "timeouts_total",
			Help:      "Total resolve calls that hit the umbrella deadline",
		},
	)

	e.failures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aico",
			Subsystem: "resolver",
			Name:      "failures_total",
			Help:      "Total internal resolution failures",
		},
		[]string{"stage"},
	)

	e.cacheHits = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "aico",
			Subsystem: "resolver",
			Name:      "cache_hits",
			Help:      "Cumulative cache hits per cache",
		},
		[]string{"cache_type"},
	)

	e.cacheMisses = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "aico",
			Subsystem: "resolver",
			Name:      "cache_misses",
			Help:      "Cumulative cache misses per cache",
		},
		[]string{"cache_type"},
	)

	e.cacheEvictions = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "aico",
			Subsystem: "resolver",
			Name:      "cache_evictions",
			Help:      "Cumulative cache evictions per cache",
		},
		[]string{"cache_type"},
	)

	e.cacheEntries = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "aico",
			Subsystem: "resolver",
			Name:      "cache_entries",
			Help:      "Current cache entry count per cache",
		},
		[]string{"cache_type"},
	)

	e.adapterErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aico",
			Subsystem: "resolver",
			Name:      "adapter_errors_total",
			Help:      "Total external adapter failures",
		},
		[]string{"adapter"},
	)

	registry.MustRegister(
		e.resolutions,
		e.resolveLatency,
		e.activeResolves,
		e.timeouts,
		e.failures,
		e.cacheHits,
		e.cacheMisses,
		e.cacheEvictions,
		e.cacheEntries,
		e.adapterErrors,
	)

	return e
}

// RecordResolution records one completed resolve call.
func (e *PrometheusExporter) RecordResolution(action, reason string, latency time.Duration) {
	e.resolutions.WithLabelValues(action, reason).Inc()
	e.resolveLatency.WithLabelValues(action).Observe(latency.Seconds())
}

// RecordTimeout records a resolve call that hit the umbrella deadline.
func (e *PrometheusExporter) RecordTimeout() {
	e.timeouts.Inc()
}

// RecordFailure records an internal failure in the given stage.
func (e *PrometheusExporter) RecordFailure(stage string) {
	e.failures.WithLabelValues(stage).Inc()
}

// RecordAdapterError records an external adapter failure.
func (e *PrometheusExporter) RecordAdapterError(adapter string) {
	e.adapterErrors.WithLabelValues(adapter).Inc()
}

// ResolveStarted marks a resolve call in flight.
func (e *PrometheusExporter) ResolveStarted() {
	e.activeResolves.Inc()
}

// ResolveFinished marks a resolve call done.
func (e *PrometheusExporter) ResolveFinished() {
	e.activeResolves.Dec()
}

// SyncCacheStats publishes a cache's counters under the given cache type.
// Called on scrape-adjacent paths; counters are monotonic snapshots.
func (e *PrometheusExporter) SyncCacheStats(cacheType string, stats cache.Stats) {
	e.cacheHits.WithLabelValues(cacheType).Set(float64(stats.Hits))
	e.cacheMisses.WithLabelValues(cacheType).Set(float64(stats.Misses))
	e.cacheEvictions.WithLabelValues(cacheType).Set(float64(stats.Evictions))
	e.cacheEntries.WithLabelValues(cacheType).Set(float64(stats.Size))
}

// Handler returns the HTTP handler serving the metrics endpoint.
func (e *PrometheusExporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for test scrapes.
func (e *PrometheusExporter) Registry() *prometheus.Registry {
	return e.registry
}
