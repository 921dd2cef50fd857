// Package entity defines the identity model for device reporting units.
//
// A device exposes a set of reporting units, each identified by a
// (device ID, key) pair that is unique for the device's lifetime. Units
// are classified as stateful or stateless at enumeration time; only
// stateful units are tracked for an initial state snapshot.
//
// The package owns three value types: ID (the composite identity), State
// (an opaque payload tagged with its origin), and Info (an inventory
// entry). Inventory is the immutable, ordered collection of Infos built
// once per session from the device's enumeration response.
//
// statesync never interprets the content of a State payload. Only its
// identity and arrival order matter.
package entity
