package initialsync

import (
	"context"
	"sync"
	"time"
)

// Outcome is the result of a single wait on a Signal.
type Outcome int

const (
	// Resolved means the signal fired before the deadline.
	Resolved Outcome = iota
	// TimedOut means the deadline elapsed first. The signal itself is
	// unaffected: a later wait may still return Resolved.
	TimedOut
)

// String returns the string representation of the Outcome.
func (o Outcome) String() string {
	switch o {
	case Resolved:
		return "resolved"
	case TimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// Signal is a one-shot, memoized completion latch. Resolve transitions it
// exactly once; every wait after resolution returns Resolved immediately
// without blocking. A timed-out wait does not consume or invalidate the
// signal.
type Signal struct {
	once sync.Once
	done chan struct{}
}

// NewSignal creates an unresolved Signal.
func NewSignal() *Signal {
	return &Signal{done: make(chan struct{})}
}

// Resolve fires the signal. Subsequent calls are no-ops, and it is safe
// to resolve with no one waiting.
func (s *Signal) Resolve() {
	s.once.Do(func() {
		close(s.done)
	})
}

// Resolved reports whether the signal has fired, without blocking.
func (s *Signal) Resolved() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Done returns a channel closed when the signal resolves, for callers
// that want to select across multiple wait conditions.
func (s *Signal) Done() <-chan struct{} {
	return s.done
}

// Await blocks until the signal resolves or timeout elapses.
func (s *Signal) Await(timeout time.Duration) Outcome {
	// Fast path: already resolved, no timer needed.
	if s.Resolved() {
		return Resolved
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-s.done:
		return Resolved
	case <-timer.C:
		return TimedOut
	}
}

// AwaitContext blocks until the signal resolves or ctx is done. Context
// cancellation and deadline expiry both surface as TimedOut.
func (s *Signal) AwaitContext(ctx context.Context) Outcome {
	if s.Resolved() {
		return Resolved
	}

	select {
	case <-s.done:
		return Resolved
	case <-ctx.Done():
		return TimedOut
	}
}
