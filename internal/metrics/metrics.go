package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus metrics for the pattern and notification engine.
//
// Every Metrics owns its registry, so tests can build as many as they need.
//
// Metrics:
//   - migrainauts_pattern_passes_total{result} - check passes by outcome
//   - migrainauts_patterns_mined - patterns found by the latest pass
//   - migrainauts_notifications_dispatched_total{type} - notifications handed to the sink
//   - migrainauts_notifications_suppressed_total{type,gate} - notifications stopped by a gate
//   - migrainauts_delivery_failures_total{type} - sink errors
//   - migrainauts_http_requests_total{method,route,status} - API requests served
//   - migrainauts_http_request_duration_seconds{method,route} - API latency
type Metrics struct {
	registry *prometheus.Registry

	PatternPasses           *prometheus.CounterVec
	PatternsMined           prometheus.Gauge
	NotificationsDispatched *prometheus.CounterVec
	NotificationsSuppressed *prometheus.CounterVec
	DeliveryFailures        *prometheus.CounterVec

	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates and registers the engine metrics plus the Go runtime collectors
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		PatternPasses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "migrainauts_pattern_passes_total",
				Help: "Total number of pattern check passes",
			},
			[]string{"result"}, // "completed", "skipped", "failed"
		),

		PatternsMined: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "migrainauts_patterns_mined",
				Help: "Number of patterns mined by the most recent pass",
			},
		),

		NotificationsDispatched: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "migrainauts_notifications_dispatched_total",
				Help: "Total number of notifications handed to the delivery sink",
			},
			[]string{"type"},
		),

		NotificationsSuppressed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "migrainauts_notifications_suppressed_total",
				Help: "Total number of notifications suppressed by a gate",
			},
			[]string{"type", "gate"}, // "disabled", "quiet_hours", "type_disabled", "daily_cap"
		),

		DeliveryFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "migrainauts_delivery_failures_total",
				Help: "Total number of failed deliveries",
			},
			[]string{"type"},
		),

		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "migrainauts_http_requests_total",
				Help: "Total number of API requests",
			},
			[]string{"method", "route", "status"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "migrainauts_http_request_duration_seconds",
				Help:    "API request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
