// Package exporter exposes zschema operational metrics for Prometheus.
//
// Metrics live in a private registry so tests and embedded uses never
// collide with the process-wide default registry.
package exporter

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zdb/zschema/core/schema"
)

// Config configures the metrics set.
type Config struct {
	// Namespace prefixes every metric name (default: "zschema").
	Namespace string

	// Runtime adds the Go runtime and process collectors.
	Runtime bool
}

// Metrics holds the collectors used across the service.
type Metrics struct {
	registry *prometheus.Registry

	SchemasRegistered prometheus.Gauge
	Validations       *prometheus.CounterVec
	Renders           *prometheus.CounterVec
	RenderDuration    *prometheus.HistogramVec
	HTTPRequests      *prometheus.CounterVec
	HTTPDuration      *prometheus.HistogramVec
}

// New creates the metrics set on a fresh registry.
func New(cfg Config) *Metrics {
	if cfg.Namespace == "" {
		cfg.Namespace = "zschema"
	}
	reg := prometheus.NewRegistry()
	if cfg.Runtime {
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		SchemasRegistered: f.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Name:      "schemas_registered",
			Help:      "Number of schemas in the finalized registry",
		}),
		Validations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "validations_total",
			Help:      "Documents validated, by schema and result",
		}, []string{"schema", "result"}),
		Renders: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "renders_total",
			Help:      "Schema renders, by schema and target",
		}, []string{"schema", "target"}),
		RenderDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Name:      "render_duration_seconds",
			Help:      "Time spent rendering a schema",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}, []string{"target"}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served, by method, route and status",
		}, []string{"method", "route", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveValidation counts one validated document.
func (m *Metrics) ObserveValidation(res schema.ValidationResult) {
	result := "valid"
	if !res.Valid {
		result = "invalid"
	}
	m.Validations.WithLabelValues(res.Schema, result).Inc()
}

// ObserveRender counts one render and its duration.
func (m *Metrics) ObserveRender(name string, t schema.Target, d time.Duration) {
	m.Renders.WithLabelValues(name, string(t)).Inc()
	m.RenderDuration.WithLabelValues(string(t)).Observe(d.Seconds())
}
