package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusExporter exports metrics to Prometheus format.
type PrometheusExporter struct {
	collector *Collector

	cacheHits          prometheus.CounterFunc
	cacheMisses        prometheus.CounterFunc
	cacheHitRate       prometheus.Gauge
	cacheKeys          prometheus.Gauge
	cacheEvictions     prometheus.CounterFunc
	relationshipEvents *prometheus.CounterVec
	grpcRequests       *prometheus.CounterVec
	grpcDuration       *prometheus.HistogramVec
	grpcErrors         *prometheus.CounterVec
}

// NewPrometheusExporter creates a new Prometheus exporter.
// Metrics are registered with the default registry, so create one per process.
func NewPrometheusExporter(collector *Collector) *PrometheusExporter {
	return &PrometheusExporter{
		collector: collector,
		cacheHits: promauto.NewCounterFunc(prometheus.CounterOpts{
			Name: "kazoku_member_cache_hits_total",
			Help: "Total number of member lookup cache hits",
		}, func() float64 { return float64(collector.GetCacheMetrics().Hits) }),
		cacheMisses: promauto.NewCounterFunc(prometheus.CounterOpts{
			Name: "kazoku_member_cache_misses_total",
			Help: "Total number of member lookup cache misses",
		}, func() float64 { return float64(collector.GetCacheMetrics().Misses) }),
		cacheHitRate: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "kazoku_member_cache_hit_rate",
			Help: "Current member cache hit rate (0.0 to 1.0)",
		}),
		cacheKeys: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "kazoku_member_cache_keys_current",
			Help: "Current number of members in the lookup cache",
		}),
		cacheEvictions: promauto.NewCounterFunc(prometheus.CounterOpts{
			Name: "kazoku_member_cache_evictions_total",
			Help: "Total number of member cache evictions",
		}, func() float64 { return float64(collector.GetCacheMetrics().Evictions) }),
		relationshipEvents: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kazoku_relationship_events_total",
				Help: "Relationship engine events (created, corrected, duplicate, deleted, ...)",
			},
			[]string{"event"},
		),
		grpcRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kazoku_grpc_requests_total",
				Help: "Total number of gRPC requests",
			},
			[]string{"method"},
		),
		grpcDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kazoku_grpc_request_duration_seconds",
				Help:    "Duration of gRPC requests in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 10.0},
			},
			[]string{"method"},
		),
		grpcErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kazoku_grpc_errors_total",
				Help: "Total number of gRPC errors",
			},
			[]string{"method"},
		),
	}
}

// Update updates Gauge metrics from the collector.
// This should be called periodically (e.g., every 10 seconds).
func (e *PrometheusExporter) Update() {
	cacheMetrics := e.collector.GetCacheMetrics()
	e.cacheHitRate.Set(cacheMetrics.HitRate)
	e.cacheKeys.Set(float64(cacheMetrics.KeysCurrent))
}

// RecordRequest records a request in Prometheus.
func (e *PrometheusExporter) RecordRequest(method string) {
	e.grpcRequests.WithLabelValues(method).Inc()
}

// RecordDuration records a duration in Prometheus.
func (e *PrometheusExporter) RecordDuration(method string, durationSeconds float64) {
	e.grpcDuration.WithLabelValues(method).Observe(durationSeconds)
}

// RecordError records an error in Prometheus.
func (e *PrometheusExporter) RecordError(method string) {
	e.grpcErrors.WithLabelValues(method).Inc()
}

// RecordRelationshipEvent records a relationship engine event in Prometheus.
func (e *PrometheusExporter) RecordRelationshipEvent(event string) {
	e.relationshipEvents.WithLabelValues(event).Inc()
}
