package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/c360/statesync/entity"
	"github.com/c360/statesync/errors"
	"github.com/c360/statesync/initialsync"
	"github.com/c360/statesync/metric"
	"github.com/c360/statesync/storage/snapshotstore"
	"github.com/c360/statesync/transport"
)

// Session status values reported on the session status gauge.
const (
	statusStopped  = 0
	statusStarting = 1
	statusRunning  = 2
	statusStopping = 3
)

// Deps holds the dependencies for a Session.
type Deps struct {
	// Stream is the connected device client (required).
	Stream transport.StateStream
	// Downstream receives every non-swallowed state event. Nil means
	// pass-through events are dropped, which suits tests that only care
	// about the initial snapshot.
	Downstream initialsync.Downstream
	// Name identifies the session in logs and metrics. Defaults to a
	// generated "session-<id>" name.
	Name string
	// Logger is optional; nil disables logging.
	Logger *slog.Logger
	// MetricsRegistry is optional; nil disables metrics.
	MetricsRegistry *metric.MetricsRegistry
	// Snapshots, when set, persists recorded initial snapshots at Stop.
	Snapshots *snapshotstore.Store
}

// Session runs the full initial-state flow against one device: enumerate
// units, install the filter as the stream subscriber, wait out the
// snapshot burst, then hand genuine change events to the downstream
// consumer until Stop.
type Session struct {
	name       string
	stream     transport.StateStream
	downstream initialsync.Downstream
	logger     *slog.Logger
	registry   *metric.MetricsRegistry
	snapshots  *snapshotstore.Store

	lifecycleMu sync.Mutex
	started     atomic.Bool
	inventory   *entity.Inventory
	filter      *initialsync.Filter
	unsubscribe transport.Unsubscribe
}

// New creates a Session.
func New(deps Deps) (*Session, error) {
	if deps.Stream == nil {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: stream is required", errors.ErrInvalidConfig),
			"Session", "New", "validate dependencies")
	}

	name := deps.Name
	if name == "" {
		name = "session-" + uuid.NewString()[:8]
	}

	downstream := deps.Downstream
	if downstream == nil {
		downstream = func(entity.State) {}
	}

	return &Session{
		name:       name,
		stream:     deps.Stream,
		downstream: downstream,
		logger:     deps.Logger,
		registry:   deps.MetricsRegistry,
		snapshots:  deps.Snapshots,
	}, nil
}

// Name returns the session's log/metric identity.
func (s *Session) Name() string {
	return s.name
}

// Start enumerates the device's units, builds the inventory and filter,
// and installs the filter on the live state stream. After Start returns,
// the device's initial snapshot burst is being absorbed; call
// WaitForInitialStates before driving test stimulus.
func (s *Session) Start(ctx context.Context) error {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	if s.started.Load() {
		return errors.WrapFatal(errors.ErrAlreadyStarted, "Session", "Start", "check state")
	}
	s.setStatus(statusStarting)

	infos, err := s.stream.ListEntities(ctx)
	if err != nil {
		s.setStatus(statusStopped)
		return errors.Wrap(err, "Session", "Start", "enumerate entities")
	}

	inventory, err := entity.NewInventory(infos)
	if err != nil {
		s.setStatus(statusStopped)
		return err
	}

	filter, err := initialsync.NewFilter(initialsync.FilterDeps{
		Inventory:       inventory,
		Downstream:      s.observe(s.downstream),
		Name:            s.name,
		Logger:          s.logger,
		MetricsRegistry: s.registry,
	})
	if err != nil {
		s.setStatus(statusStopped)
		return err
	}

	unsubscribe, err := s.stream.SubscribeStates(filter.OnState)
	if err != nil {
		s.setStatus(statusStopped)
		return errors.Wrap(err, "Session", "Start", "subscribe to state stream")
	}

	s.inventory = inventory
	s.filter = filter
	s.unsubscribe = unsubscribe
	s.started.Store(true)
	s.setStatus(statusRunning)

	if s.logger != nil {
		s.logger.Info("session started",
			"session", s.name,
			"entities", inventory.Len(),
			"tracked", len(inventory.Stateful()))
	}
	return nil
}

// WaitForInitialStates blocks until every tracked unit has reported its
// initial snapshot, bounded by timeout (0 means the default 5s). On
// timeout the error names the still-pending identities; the session
// remains usable and the wait may be retried.
func (s *Session) WaitForInitialStates(timeout time.Duration) error {
	filter, err := s.runningFilter()
	if err != nil {
		return err
	}
	if timeout == 0 {
		timeout = initialsync.DefaultWaitTimeout
	}
	return filter.Wait(timeout)
}

// WaitForInitialStatesContext is WaitForInitialStates bounded by ctx.
func (s *Session) WaitForInitialStatesContext(ctx context.Context) error {
	filter, err := s.runningFilter()
	if err != nil {
		return err
	}
	return filter.WaitContext(ctx)
}

// InitialStates returns the recorded initial snapshots, keyed by entity
// key. Valid during or after the wait.
func (s *Session) InitialStates() map[uint32]entity.State {
	if !s.started.Load() {
		return nil
	}
	return s.filter.InitialStates()
}

// Inventory returns the device inventory enumerated at Start, or nil
// before Start.
func (s *Session) Inventory() *entity.Inventory {
	if !s.started.Load() {
		return nil
	}
	return s.inventory
}

// Stop uninstalls the subscription and, when a snapshot store is
// configured, persists the recorded initial snapshots.
func (s *Session) Stop(timeout time.Duration) error {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	if !s.started.Load() {
		return nil
	}
	s.setStatus(statusStopping)

	s.unsubscribe()

	var err error
	if s.snapshots != nil {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		err = s.snapshots.Store(ctx, s.filter.InitialStates())
	}

	s.started.Store(false)
	s.setStatus(statusStopped)

	if s.logger != nil {
		s.logger.Info("session stopped", "session", s.name)
	}
	return err
}

func (s *Session) runningFilter() (*initialsync.Filter, error) {
	if !s.started.Load() {
		return nil, errors.WrapFatal(errors.ErrNotStarted, "Session", "WaitForInitialStates", "check state")
	}
	return s.filter, nil
}

// observe wraps the downstream callback with the session event counter.
func (s *Session) observe(downstream initialsync.Downstream) initialsync.Downstream {
	if s.registry == nil {
		return downstream
	}
	events := s.registry.CoreMetrics().EventsReceived
	return func(state entity.State) {
		events.WithLabelValues(s.name).Inc()
		downstream(state)
	}
}

func (s *Session) setStatus(status float64) {
	if s.registry != nil {
		s.registry.CoreMetrics().SessionStatus.WithLabelValues(s.name).Set(status)
	}
}
