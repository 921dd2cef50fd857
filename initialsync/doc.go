// Package initialsync suppresses the initial state burst a device emits
// when a client first subscribes to its live state stream.
//
// # Overview
//
// On connection a device reports the current state of every unit before
// it starts emitting genuine change events. Test code that asserts on
// changes must not observe that burst, but it must know when the burst is
// over and be able to inspect what was reported. initialsync provides
// exactly that: a Filter that swallows the first state per tracked unit,
// records it, and resolves a one-shot Signal once every tracked unit has
// reported.
//
// # Components
//
//   - PendingTracker: the monotonically shrinking set of identities still
//     awaiting their first report.
//   - Signal: a one-shot, memoized latch with bounded waiting.
//   - Filter: the orchestrator installed as the stream subscriber. It
//     owns the tracker, the snapshot map, and the signal.
//
// # Guarantees
//
// Exactly one event per tracked identity is swallowed, regardless of
// arrival order, duplicate deliveries, or concurrent delivery goroutines.
// Events for unknown identities always pass through: the filter stays
// transparent to any device behavior it does not specifically understand,
// because hiding a genuine device anomaly behind a spurious internal
// error would corrupt the tests this package supports. A timed-out wait
// is a distinguishable, retryable outcome, never a silent failure, and
// never invalidates the filter.
package initialsync
