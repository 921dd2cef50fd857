package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains platform-level metrics shared by all statesync
// components (not component-specific).
type Metrics struct {
	// Session metrics
	SessionStatus  *prometheus.GaugeVec
	EventsReceived *prometheus.CounterVec
	ErrorsTotal    *prometheus.CounterVec

	// Stream transport metrics
	StreamConnected  prometheus.Gauge
	StreamReconnects prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all platform metrics
func NewMetrics() *Metrics {
	return &Metrics{
		SessionStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "statesync",
				Subsystem: "session",
				Name:      "status",
				Help:      "Session status (0=stopped, 1=starting, 2=running, 3=stopping)",
			},
			[]string{"session"},
		),

		EventsReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "statesync",
				Subsystem: "events",
				Name:      "received_total",
				Help:      "Total number of state events received",
			},
			[]string{"session"},
		),

		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "statesync",
				Subsystem: "errors",
				Name:      "total",
				Help:      "Total number of errors",
			},
			[]string{"session", "type"},
		),

		StreamConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "statesync",
				Subsystem: "stream",
				Name:      "connected",
				Help:      "State stream connection status (0=disconnected, 1=connected)",
			},
		),

		StreamReconnects: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "statesync",
				Subsystem: "stream",
				Name:      "reconnects_total",
				Help:      "Total number of stream reconnect attempts",
			},
		),
	}
}
