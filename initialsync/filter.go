package initialsync

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/c360/statesync/entity"
	"github.com/c360/statesync/errors"
	"github.com/c360/statesync/metric"
)

// DefaultWaitTimeout bounds Wait when the caller does not override it.
const DefaultWaitTimeout = 5 * time.Second

// Downstream receives every state event the filter does not swallow.
type Downstream func(entity.State)

// FilterDeps holds the dependencies for a Filter.
type FilterDeps struct {
	// Inventory describes the reporting units known at session start
	// (required). All stateful units are tracked for an initial snapshot.
	Inventory *entity.Inventory
	// Downstream is the caller's state callback (required). It is invoked
	// for every non-swallowed event, in delivery order.
	Downstream Downstream
	// Name identifies this filter in logs and metrics. Defaults to
	// "initial_filter".
	Name string
	// Logger is optional; nil disables logging.
	Logger *slog.Logger
	// MetricsRegistry is optional; nil disables Prometheus metrics.
	MetricsRegistry *metric.MetricsRegistry
}

// Filter suppresses each tracked unit's initial state snapshot, records
// it for inspection, and forwards everything else to the downstream
// consumer. It owns the pending tracker, the snapshot map, and the
// completion signal for the lifetime of one session; no other component
// writes them.
//
// Install OnState as the subscriber on the device's live state stream,
// then call Wait before driving test stimulus:
//
//	filter, _ := initialsync.NewFilter(initialsync.FilterDeps{
//	    Inventory:  inv,
//	    Downstream: onChange,
//	})
//	unsub, _ := stream.SubscribeStates(filter.OnState)
//	defer unsub()
//	if err := filter.Wait(initialsync.DefaultWaitTimeout); err != nil {
//	    return err
//	}
type Filter struct {
	name       string
	inventory  *entity.Inventory
	downstream Downstream
	logger     *slog.Logger
	metrics    *Metrics

	// mu makes the pending-discard and the became-empty check one atomic
	// step, and guards first-write-wins on the snapshot map, so OnState
	// stays correct when the transport delivers from multiple goroutines.
	mu      sync.Mutex
	pending *PendingTracker
	initial map[uint32]entity.State
	signal  *Signal
}

// NewFilter constructs a Filter from an inventory snapshot. If the
// inventory has no stateful units, the completion signal is resolved
// before NewFilter returns: a device with no stateful units must never
// require a wait.
func NewFilter(deps FilterDeps) (*Filter, error) {
	if deps.Inventory == nil {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: inventory is required", errors.ErrInvalidConfig),
			"Filter", "NewFilter", "validate dependencies")
	}
	if deps.Downstream == nil {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: downstream callback is required", errors.ErrInvalidConfig),
			"Filter", "NewFilter", "validate dependencies")
	}

	name := deps.Name
	if name == "" {
		name = "initial_filter"
	}

	tracked := deps.Inventory.Stateful()
	f := &Filter{
		name:       name,
		inventory:  deps.Inventory,
		downstream: deps.Downstream,
		logger:     deps.Logger,
		metrics:    newMetrics(deps.MetricsRegistry, name),
		pending:    NewPendingTracker(tracked),
		initial:    make(map[uint32]entity.State, len(tracked)),
		signal:     NewSignal(),
	}

	if f.metrics != nil {
		f.metrics.pendingEntities.Set(float64(len(tracked)))
	}

	if f.logger != nil {
		f.logger.Debug("tracking entities for initial states",
			"component", f.name,
			"total", deps.Inventory.Len(),
			"tracked", len(tracked))
	}

	if len(tracked) == 0 {
		f.signal.Resolve()
	}

	return f, nil
}

// OnState classifies one incoming state event as initial or pass-through.
// The first event per tracked identity is recorded and swallowed; all
// others, including events for identities never present in the inventory,
// are forwarded downstream unchanged. OnState never blocks and performs
// no I/O, so it cannot stall the delivery stream.
func (f *Filter) OnState(state entity.State) {
	id := state.ID()

	if f.metrics != nil {
		f.metrics.eventsReceived.WithLabelValues(f.name).Inc()
	}

	f.mu.Lock()
	swallowed := f.pending.Discard(id)
	if swallowed {
		// First write wins: a second tracked identity sharing this key
		// must not overwrite the snapshot already recorded for it.
		if _, exists := f.initial[state.Key]; !exists {
			f.initial[state.Key] = state
		}
	}
	remaining := f.pending.Len()
	f.mu.Unlock()

	if !swallowed {
		if f.metrics != nil {
			f.metrics.eventsForwarded.WithLabelValues(f.name).Inc()
		}
		f.downstream(state)
		return
	}

	if f.metrics != nil {
		f.metrics.eventsSwallowed.WithLabelValues(f.name).Inc()
		f.metrics.pendingEntities.Set(float64(remaining))
	}
	if f.logger != nil {
		f.logger.Debug("swallowed initial state",
			"component", f.name,
			"entity", f.inventory.ObjectID(id),
			"remaining", remaining)
	}

	if remaining == 0 {
		f.signal.Resolve()
	}
}

// Wait blocks until every tracked unit has reported its initial snapshot
// or timeout elapses. On timeout it returns an error wrapping
// errors.ErrWaitTimeout that names the still-pending identities. A
// timed-out wait leaves the filter fully operational: late events are
// still recorded and a subsequent Wait may succeed.
func (f *Filter) Wait(timeout time.Duration) error {
	start := time.Now()
	outcome := f.signal.Await(timeout)
	return f.finishWait(outcome, start)
}

// WaitContext is Wait bounded by a context instead of a duration.
func (f *Filter) WaitContext(ctx context.Context) error {
	start := time.Now()
	outcome := f.signal.AwaitContext(ctx)
	return f.finishWait(outcome, start)
}

func (f *Filter) finishWait(outcome Outcome, start time.Time) error {
	if f.metrics != nil {
		f.metrics.waitDuration.WithLabelValues(f.name, outcome.String()).
			Observe(time.Since(start).Seconds())
	}

	if outcome == Resolved {
		return nil
	}

	pending := f.Pending()
	names := make([]string, len(pending))
	for i, id := range pending {
		names[i] = f.inventory.ObjectID(id)
	}
	if f.logger != nil {
		f.logger.Warn("timed out waiting for initial states",
			"component", f.name,
			"pending", names)
	}
	return errors.WrapTransient(
		fmt.Errorf("%w: %d entities still pending: %v", errors.ErrWaitTimeout, len(pending), names),
		"Filter", "Wait", "await initial states")
}

// InitialStates returns a copy of the recorded initial snapshots, keyed
// by entity key. It may be read during or after the wait.
func (f *Filter) InitialStates() map[uint32]entity.State {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make(map[uint32]entity.State, len(f.initial))
	for k, v := range f.initial {
		out[k] = v
	}
	return out
}

// Pending returns the identities still awaiting their first report.
func (f *Filter) Pending() []entity.ID {
	return f.pending.Remaining()
}

// Signal exposes the completion latch for callers that want to select
// across multiple wait conditions.
func (f *Filter) Signal() *Signal {
	return f.signal
}
