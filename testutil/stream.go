// Package testutil provides test doubles for statesync with no transport
// dependencies: an in-process StateStream fake and canned inventories.
package testutil

import (
	"context"
	"sync"

	"github.com/c360/statesync/entity"
	"github.com/c360/statesync/transport"
)

// FakeStream implements transport.StateStream entirely in process. Tests
// script its inventory, then push events by hand with Emit; EmitAll
// replays the initial snapshot burst a real device would send on
// subscription.
type FakeStream struct {
	mu      sync.Mutex
	infos   []entity.Info
	handler transport.StateHandler

	// ListErr / SubscribeErr force the corresponding call to fail.
	ListErr      error
	SubscribeErr error

	// ListCalls counts ListEntities invocations.
	ListCalls int
}

var _ transport.StateStream = (*FakeStream)(nil)

// NewFakeStream creates a fake stream reporting the given units.
func NewFakeStream(infos []entity.Info) *FakeStream {
	return &FakeStream{infos: infos}
}

// ListEntities returns the scripted inventory.
func (f *FakeStream) ListEntities(_ context.Context) ([]entity.Info, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.ListCalls++
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	out := make([]entity.Info, len(f.infos))
	copy(out, f.infos)
	return out, nil
}

// SubscribeStates installs the handler. Unlike a real device, the fake
// does not emit anything on its own; tests drive delivery explicitly.
func (f *FakeStream) SubscribeStates(handler transport.StateHandler) (transport.Unsubscribe, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.SubscribeErr != nil {
		return nil, f.SubscribeErr
	}
	f.handler = handler

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			f.handler = nil
			f.mu.Unlock()
		})
	}, nil
}

// Subscribed reports whether a handler is currently installed.
func (f *FakeStream) Subscribed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handler != nil
}

// Emit delivers one event to the subscriber, synchronously on the
// caller's goroutine. Emitting with no subscriber is a no-op.
func (f *FakeStream) Emit(state entity.State) {
	f.mu.Lock()
	handler := f.handler
	f.mu.Unlock()

	if handler != nil {
		handler(state)
	}
}

// EmitAll replays the initial snapshot burst: one state per stateful
// unit in the scripted inventory, with an empty payload.
func (f *FakeStream) EmitAll() {
	f.mu.Lock()
	infos := make([]entity.Info, len(f.infos))
	copy(infos, f.infos)
	f.mu.Unlock()

	for _, info := range infos {
		if info.Classification != entity.Stateful {
			continue
		}
		f.Emit(entity.State{DeviceID: info.ID.DeviceID, Key: info.ID.Key})
	}
}
