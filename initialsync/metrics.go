package initialsync

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/statesync/metric"
)

// Metrics holds Prometheus metrics for the Filter.
type Metrics struct {
	eventsReceived  *prometheus.CounterVec
	eventsSwallowed *prometheus.CounterVec
	eventsForwarded *prometheus.CounterVec
	pendingEntities prometheus.Gauge
	waitDuration    *prometheus.HistogramVec
}

// newMetrics creates and registers Filter metrics
func newMetrics(registry *metric.MetricsRegistry, componentName string) *Metrics {
	if registry == nil {
		return nil
	}

	metrics := &Metrics{
		eventsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "statesync",
			Subsystem: "initial_filter",
			Name:      "events_received_total",
			Help:      "Total state events delivered to the filter",
		}, []string{"component"}),

		eventsSwallowed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "statesync",
			Subsystem: "initial_filter",
			Name:      "events_swallowed_total",
			Help:      "Initial state snapshots suppressed from downstream delivery",
		}, []string{"component"}),

		eventsForwarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "statesync",
			Subsystem: "initial_filter",
			Name:      "events_forwarded_total",
			Help:      "State events forwarded to the downstream consumer",
		}, []string{"component"}),

		pendingEntities: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "statesync",
			Subsystem: "initial_filter",
			Name:      "pending_entities",
			Help:      "Entities still awaiting their initial state snapshot",
		}),

		waitDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "statesync",
			Subsystem: "initial_filter",
			Name:      "wait_duration_seconds",
			Help:      "Duration of waits for initial state completion",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 10.0},
		}, []string{"component", "outcome"}),
	}

	registry.RegisterCounterVec(componentName, "events_received", metrics.eventsReceived)
	registry.RegisterCounterVec(componentName, "events_swallowed", metrics.eventsSwallowed)
	registry.RegisterCounterVec(componentName, "events_forwarded", metrics.eventsForwarded)
	registry.RegisterGauge(componentName, "pending_entities", metrics.pendingEntities)
	registry.RegisterHistogramVec(componentName, "wait_duration", metrics.waitDuration)

	return metrics
}
