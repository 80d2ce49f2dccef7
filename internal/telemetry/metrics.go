package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors exported by a refresh process.
type Metrics struct {
	Retrievals *prometheus.CounterVec
	Errors     *prometheus.CounterVec
	Rows       prometheus.Histogram
	LastRun    prometheus.Gauge

	registry *prometheus.Registry
}

// New registers the metrics on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Retrievals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assetkeeper_retrievals_total",
			Help: "Total number of asset retrievals by backend and status",
		}, []string{"backend", "status"}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assetkeeper_retrieval_errors_total",
			Help: "Total number of failed retrievals by error kind",
		}, []string{"kind"}),
		Rows: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "assetkeeper_retrieval_rows",
			Help:    "Rows in successfully retrieved tables",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}),
		LastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "assetkeeper_last_refresh_timestamp_seconds",
			Help: "Unix time of the last completed refresh pass",
		}),
		registry: reg,
	}
	reg.MustRegister(m.Retrievals, m.Errors, m.Rows, m.LastRun)
	return m
}

// ObserveSuccess records a retrieval that stored a table.
func (m *Metrics) ObserveSuccess(backend string, rows int) {
	m.Retrievals.WithLabelValues(backend, "ok").Inc()
	m.Rows.Observe(float64(rows))
}

// ObserveFailure records a retrieval that produced no data.
func (m *Metrics) ObserveFailure(backend, kind string) {
	m.Retrievals.WithLabelValues(backend, "failed").Inc()
	m.Errors.WithLabelValues(kind).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
