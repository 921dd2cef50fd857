package initialsync

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSignal_ResolveBeforeAwait(t *testing.T) {
	sig := NewSignal()
	sig.Resolve()

	start := time.Now()
	assert.Equal(t, Resolved, sig.Await(time.Minute))
	assert.Less(t, time.Since(start), 100*time.Millisecond, "resolved signal must not block")
}

func TestSignal_AwaitTimeout(t *testing.T) {
	sig := NewSignal()

	assert.Equal(t, TimedOut, sig.Await(10*time.Millisecond))
	assert.False(t, sig.Resolved(), "timeout does not resolve the signal")

	// Resolution after a timed-out wait still works.
	sig.Resolve()
	assert.Equal(t, Resolved, sig.Await(10*time.Millisecond))
}

func TestSignal_ResolveIdempotent(t *testing.T) {
	sig := NewSignal()
	sig.Resolve()
	sig.Resolve()
	sig.Resolve()

	assert.True(t, sig.Resolved())
	assert.Equal(t, Resolved, sig.Await(0))
}

func TestSignal_AwaitZeroTimeout(t *testing.T) {
	sig := NewSignal()
	assert.Equal(t, TimedOut, sig.Await(0))

	sig.Resolve()
	assert.Equal(t, Resolved, sig.Await(0), "already-resolved fast path ignores the timeout")
}

func TestSignal_ConcurrentWaiters(t *testing.T) {
	sig := NewSignal()

	var wg sync.WaitGroup
	outcomes := make([]Outcome, 8)
	for i := range outcomes {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			outcomes[n] = sig.Await(5 * time.Second)
		}(i)
	}

	time.Sleep(10 * time.Millisecond)
	sig.Resolve()
	wg.Wait()

	for _, outcome := range outcomes {
		assert.Equal(t, Resolved, outcome)
	}
}

func TestSignal_ConcurrentResolve(t *testing.T) {
	sig := NewSignal()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sig.Resolve()
		}()
	}
	wg.Wait()

	assert.True(t, sig.Resolved())
}

func TestSignal_AwaitContext(t *testing.T) {
	sig := NewSignal()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Equal(t, TimedOut, sig.AwaitContext(ctx))

	sig.Resolve()
	assert.Equal(t, Resolved, sig.AwaitContext(context.Background()))
}

func TestSignal_Done(t *testing.T) {
	sig := NewSignal()

	select {
	case <-sig.Done():
		t.Fatal("done channel closed before resolve")
	default:
	}

	sig.Resolve()
	select {
	case <-sig.Done():
	case <-time.After(time.Second):
		t.Fatal("done channel not closed after resolve")
	}
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "resolved", Resolved.String())
	assert.Equal(t, "timed_out", TimedOut.String())
	assert.Equal(t, "unknown", Outcome(42).String())
}
