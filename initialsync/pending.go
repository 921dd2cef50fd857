package initialsync

import (
	"sync"

	"github.com/c360/statesync/entity"
)

// PendingTracker is the set of identities still awaiting their first state
// report. It is seeded once at construction and only ever shrinks: Discard
// is the sole state transition, and each identity is removed at most once.
type PendingTracker struct {
	mu      sync.Mutex
	pending map[entity.ID]struct{}
}

// NewPendingTracker seeds a tracker with the given identities.
func NewPendingTracker(ids []entity.ID) *PendingTracker {
	pending := make(map[entity.ID]struct{}, len(ids))
	for _, id := range ids {
		pending[id] = struct{}{}
	}
	return &PendingTracker{pending: pending}
}

// Discard removes id from the set if present and reports whether it was
// present. Discarding an absent identity is a safe no-op returning false,
// so duplicate deliveries and never-tracked identities take the same path.
// The check and the removal are one atomic step.
func (t *PendingTracker) Discard(id entity.ID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.pending[id]; !ok {
		return false
	}
	delete(t.pending, id)
	return true
}

// Empty reports whether every tracked identity has been discarded.
func (t *PendingTracker) Empty() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending) == 0
}

// Len returns the number of identities still pending.
func (t *PendingTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

// Remaining returns a snapshot of the identities still pending, for
// timeout diagnostics. Order is not specified.
func (t *PendingTracker) Remaining() []entity.ID {
	t.mu.Lock()
	defer t.mu.Unlock()

	ids := make([]entity.ID, 0, len(t.pending))
	for id := range t.pending {
		ids = append(ids, id)
	}
	return ids
}
