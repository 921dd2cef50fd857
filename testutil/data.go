package testutil

import "github.com/c360/statesync/entity"

// TypicalInventory is a small mixed inventory: three stateful units and
// one stateless trigger, across two devices.
func TypicalInventory() []entity.Info {
	return []entity.Info{
		{ID: entity.ID{DeviceID: 1, Key: 10}, ObjectID: "test_light", Classification: entity.Stateful},
		{ID: entity.ID{DeviceID: 1, Key: 11}, ObjectID: "test_sensor", Classification: entity.Stateful},
		{ID: entity.ID{DeviceID: 1, Key: 12}, ObjectID: "test_button", Classification: entity.Stateless},
		{ID: entity.ID{DeviceID: 2, Key: 20}, ObjectID: "test_switch", Classification: entity.Stateful},
	}
}

// StatelessOnlyInventory has no stateful units, so a session over it
// must complete its initial-state wait without blocking.
func StatelessOnlyInventory() []entity.Info {
	return []entity.Info{
		{ID: entity.ID{DeviceID: 1, Key: 30}, ObjectID: "reboot_button", Classification: entity.Stateless},
		{ID: entity.ID{DeviceID: 1, Key: 31}, ObjectID: "identify_button", Classification: entity.Stateless},
	}
}

// StateFor builds a state event for an identity with a canned payload.
func StateFor(id entity.ID, payload string) entity.State {
	return entity.State{DeviceID: id.DeviceID, Key: id.Key, Payload: []byte(payload)}
}
