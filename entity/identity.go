package entity

import (
	"encoding/json"
	"fmt"
)

// ID is the composite identity of one reporting unit on a device.
// Two IDs are equal iff both fields match; the type is comparable and
// safe to use as a map key.
type ID struct {
	// DeviceID identifies the device that owns the unit.
	DeviceID int64 `json:"device_id"`
	// Key identifies the unit within the device. Keys are unique per
	// device for the device's lifetime.
	Key uint32 `json:"key"`
}

// String returns a compact "deviceID/key" form for logs and diagnostics.
func (id ID) String() string {
	return fmt.Sprintf("%d/%d", id.DeviceID, id.Key)
}

// Classification describes whether a reporting unit carries persistent
// state worth snapshotting.
type Classification int

const (
	// Stateful units report a meaningful state snapshot on connection.
	Stateful Classification = iota
	// Stateless units (e.g. momentary action triggers) never produce an
	// initial snapshot distinct from an action and are excluded from
	// initial-state tracking.
	Stateless
)

// String returns the string representation of the Classification.
func (c Classification) String() string {
	switch c {
	case Stateful:
		return "stateful"
	case Stateless:
		return "stateless"
	default:
		return "unknown"
	}
}

// State is one state report from a reporting unit. The payload is opaque
// to statesync: it is tagged with its origin and carried unchanged, never
// parsed or mutated.
type State struct {
	DeviceID int64           `json:"device_id"`
	Key      uint32          `json:"key"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

// ID returns the identity of the unit that produced this state.
func (s State) ID() ID {
	return ID{DeviceID: s.DeviceID, Key: s.Key}
}

// Info describes one reporting unit known at session start.
type Info struct {
	// ID is the unit's identity, used for all comparisons.
	ID ID `json:"id"`
	// ObjectID is a human-readable identifier retained for diagnostics
	// only. It plays no part in identity comparison.
	ObjectID string `json:"object_id,omitempty"`
	// Classification decides whether the unit is tracked for an initial
	// snapshot.
	Classification Classification `json:"classification"`
}
