package entity

import (
	"fmt"
	"strings"

	"github.com/c360/statesync/errors"
)

// Inventory is the immutable set of reporting units known at session
// start. It preserves the order the device enumerated them in and
// classifies which units are expected to report an initial snapshot.
//
// Duplicate identities are a caller error: NewInventory fails with
// errors.ErrDuplicateIdentity rather than silently keeping one entry.
type Inventory struct {
	infos []Info
	byID  map[ID]Info
}

// NewInventory builds an Inventory from the device's enumerated units.
func NewInventory(infos []Info) (*Inventory, error) {
	byID := make(map[ID]Info, len(infos))
	for _, info := range infos {
		if _, exists := byID[info.ID]; exists {
			return nil, errors.WrapInvalid(
				fmt.Errorf("%w: %s (object_id %q)", errors.ErrDuplicateIdentity, info.ID, info.ObjectID),
				"Inventory", "NewInventory", "validate identities")
		}
		byID[info.ID] = info
	}

	inv := &Inventory{
		infos: make([]Info, len(infos)),
		byID:  byID,
	}
	copy(inv.infos, infos)
	return inv, nil
}

// Len returns the number of units in the inventory.
func (inv *Inventory) Len() int {
	return len(inv.infos)
}

// All returns the units in enumeration order. The returned slice is a copy.
func (inv *Inventory) All() []Info {
	out := make([]Info, len(inv.infos))
	copy(out, inv.infos)
	return out
}

// Stateful returns the identities of all stateful units, in enumeration
// order. These are the units expected to report an initial snapshot.
func (inv *Inventory) Stateful() []ID {
	var ids []ID
	for _, info := range inv.infos {
		if info.Classification == Stateful {
			ids = append(ids, info.ID)
		}
	}
	return ids
}

// Lookup returns the Info for an identity, if present.
func (inv *Inventory) Lookup(id ID) (Info, bool) {
	info, ok := inv.byID[id]
	return info, ok
}

// ObjectID returns a diagnostic name for an identity: the unit's ObjectID
// when known, otherwise the identity's string form.
func (inv *Inventory) ObjectID(id ID) string {
	if info, ok := inv.byID[id]; ok && info.ObjectID != "" {
		return info.ObjectID
	}
	return id.String()
}

// MapKeysByObjectID builds a mapping from unit keys to friendly names by
// substring match against each unit's lowercased ObjectID. Test harnesses
// use this to translate raw keys in received states back to the names
// they configured. The first matching name wins per unit.
func MapKeysByObjectID(infos []Info, names []string) map[uint32]string {
	keyToName := make(map[uint32]string)
	for _, info := range infos {
		objID := strings.ToLower(info.ObjectID)
		for _, name := range names {
			if strings.Contains(objID, name) {
				keyToName[info.ID.Key] = name
				break
			}
		}
	}
	return keyToName
}
