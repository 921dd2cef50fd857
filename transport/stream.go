// Package transport defines the contract between statesync and the
// client that talks to a device. The core never dials anything itself;
// it consumes whatever implements StateStream, so tests can swap in an
// in-process fake and production harnesses can use wsstream.
package transport

import (
	"context"

	"github.com/c360/statesync/entity"
)

// StateHandler receives state events from a live subscription, in
// delivery order. Implementations of StateStream decide the delivery
// context; handlers must not assume a single goroutine.
type StateHandler func(entity.State)

// Unsubscribe tears down a live state subscription. Calling it more
// than once is a no-op.
type Unsubscribe func()

// StateStream is a connected device client: it can enumerate the
// device's reporting units and deliver its live state stream.
type StateStream interface {
	// ListEntities enumerates the device's reporting units in device
	// order. Called once per session, before subscribing.
	ListEntities(ctx context.Context) ([]entity.Info, error)

	// SubscribeStates installs handler as the subscriber on the live
	// state stream. The device responds by reporting the current state
	// of every unit, then emits genuine change events. Only one
	// subscription per stream is supported.
	SubscribeStates(handler StateHandler) (Unsubscribe, error)
}
