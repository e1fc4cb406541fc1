package server

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for the flow service.
type Metrics struct {
	registry *prometheus.Registry

	// TransformsTotal counts transformation attempts by workspace and
	// outcome ("ok" or "error").
	TransformsTotal *prometheus.CounterVec

	// RequestsTotal counts HTTP requests by method and route.
	RequestsTotal *prometheus.CounterVec

	// FlowsStored tracks the number of flows currently stored.
	FlowsStored prometheus.Gauge
}

// NewMetrics creates and registers the service collectors on a fresh
// registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		TransformsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flowplan",
			Name:      "transforms_total",
			Help:      "Number of flow transformations by workspace and outcome.",
		}, []string{"workspace", "outcome"}),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flowplan",
			Name:      "http_requests_total",
			Help:      "Number of HTTP requests by method and route.",
		}, []string{"method", "route"}),
		FlowsStored: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "flowplan",
			Name:      "flows_stored",
			Help:      "Number of flows currently stored.",
		}),
	}

	reg.MustRegister(m.TransformsTotal, m.RequestsTotal, m.FlowsStored)
	return m
}

// Registry exposes the underlying registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) observeTransform(workspace string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.TransformsTotal.WithLabelValues(workspace, outcome).Inc()
}
