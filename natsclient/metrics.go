package natsclient

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/statesync/metric"
)

type clientMetrics struct {
	connected  prometheus.Gauge
	reconnects prometheus.Counter
}

func newClientMetrics(registry *metric.MetricsRegistry, componentName string) *clientMetrics {
	if registry == nil {
		return nil
	}

	m := &clientMetrics{
		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "statesync",
			Subsystem: "nats",
			Name:      "connected",
			Help:      "NATS connection status (0=disconnected, 1=connected)",
		}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "statesync",
			Subsystem: "nats",
			Name:      "reconnects_total",
			Help:      "Total NATS reconnections",
		}),
	}

	registry.RegisterGauge(componentName, "connected", m.connected)
	registry.RegisterCounter(componentName, "reconnects", m.reconnects)

	return m
}
