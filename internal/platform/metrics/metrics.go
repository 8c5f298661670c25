package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds process-wide Prometheus metrics. Registry-specific counters
// live in each registry's metrics package.
type Metrics struct {
	EndpointLatency *prometheus.HistogramVec
	AuthFailures    prometheus.Counter
	AuditEvents     *prometheus.CounterVec
}

// New creates and registers all process-wide Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		EndpointLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "trustledger_endpoint_latency_seconds",
			Help:    "Latency of endpoints in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		AuthFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trustledger_auth_failures_total",
			Help: "Total number of authentication failures",
		}),
		AuditEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "trustledger_audit_events_total",
			Help: "Total number of audit events emitted, labeled by action",
		}, []string{"action"}),
	}
}

// ObserveEndpointLatency records a latency observation for the endpoint.
func (m *Metrics) ObserveEndpointLatency(endpoint string, seconds float64) {
	m.EndpointLatency.WithLabelValues(endpoint).Observe(seconds)
}

// IncrementAuthFailures increments the authentication failure counter by 1.
func (m *Metrics) IncrementAuthFailures() {
	m.AuthFailures.Inc()
}
