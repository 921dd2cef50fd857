// Package metric provides Prometheus metrics infrastructure for statesync.
//
// MetricsRegistry wraps a private prometheus.Registry with per-component
// namespacing and duplicate detection, so independent components (the
// initial-state filter, the stream transport, a session) can register
// their own collectors without colliding. Core platform metrics are
// always registered; component metrics are opt-in.
//
// Server exposes a registry over HTTP in Prometheus exposition format,
// useful when a harness run is long enough to be worth scraping.
//
// Metrics are strictly observability: no statesync semantics depend on
// them, and every component accepts a nil registry.
package metric
