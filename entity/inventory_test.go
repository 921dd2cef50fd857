package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/statesync/errors"
)

func testInfos() []Info {
	return []Info{
		{ID: ID{DeviceID: 1, Key: 10}, ObjectID: "living_room_light", Classification: Stateful},
		{ID: ID{DeviceID: 1, Key: 11}, ObjectID: "kitchen_sensor", Classification: Stateful},
		{ID: ID{DeviceID: 1, Key: 12}, ObjectID: "restart_button", Classification: Stateless},
		{ID: ID{DeviceID: 2, Key: 10}, ObjectID: "garage_door", Classification: Stateful},
	}
}

func TestNewInventory(t *testing.T) {
	inv, err := NewInventory(testInfos())
	require.NoError(t, err)

	assert.Equal(t, 4, inv.Len())

	stateful := inv.Stateful()
	require.Len(t, stateful, 3, "stateless units must be excluded")
	assert.Equal(t, ID{DeviceID: 1, Key: 10}, stateful[0])
	assert.Equal(t, ID{DeviceID: 1, Key: 11}, stateful[1])
	assert.Equal(t, ID{DeviceID: 2, Key: 10}, stateful[2])
}

func TestNewInventory_Empty(t *testing.T) {
	inv, err := NewInventory(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, inv.Len())
	assert.Empty(t, inv.Stateful())
}

func TestNewInventory_DuplicateIdentity(t *testing.T) {
	infos := testInfos()
	infos = append(infos, Info{ID: ID{DeviceID: 1, Key: 10}, ObjectID: "shadow", Classification: Stateful})

	_, err := NewInventory(infos)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrDuplicateIdentity)
	assert.True(t, errors.IsInvalid(err), "duplicate identity is a caller error, not retryable")
}

func TestNewInventory_SameKeyDifferentDevice(t *testing.T) {
	// (1,10) and (2,10) share a key but are distinct identities.
	inv, err := NewInventory([]Info{
		{ID: ID{DeviceID: 1, Key: 10}, Classification: Stateful},
		{ID: ID{DeviceID: 2, Key: 10}, Classification: Stateful},
	})
	require.NoError(t, err)
	assert.Len(t, inv.Stateful(), 2)
}

func TestInventory_Lookup(t *testing.T) {
	inv, err := NewInventory(testInfos())
	require.NoError(t, err)

	info, ok := inv.Lookup(ID{DeviceID: 1, Key: 11})
	require.True(t, ok)
	assert.Equal(t, "kitchen_sensor", info.ObjectID)

	_, ok = inv.Lookup(ID{DeviceID: 9, Key: 99})
	assert.False(t, ok)
}

func TestInventory_ObjectID(t *testing.T) {
	inv, err := NewInventory(testInfos())
	require.NoError(t, err)

	assert.Equal(t, "garage_door", inv.ObjectID(ID{DeviceID: 2, Key: 10}))
	assert.Equal(t, "9/99", inv.ObjectID(ID{DeviceID: 9, Key: 99}), "unknown identities fall back to deviceID/key")
}

func TestStateID(t *testing.T) {
	s := State{DeviceID: 3, Key: 7, Payload: []byte(`{"on":true}`)}
	assert.Equal(t, ID{DeviceID: 3, Key: 7}, s.ID())
}

func TestClassification_String(t *testing.T) {
	assert.Equal(t, "stateful", Stateful.String())
	assert.Equal(t, "stateless", Stateless.String())
	assert.Equal(t, "unknown", Classification(42).String())
}

func TestMapKeysByObjectID(t *testing.T) {
	infos := []Info{
		{ID: ID{DeviceID: 1, Key: 10}, ObjectID: "Test_Light_Main"},
		{ID: ID{DeviceID: 1, Key: 11}, ObjectID: "test_sensor_temp"},
		{ID: ID{DeviceID: 1, Key: 12}, ObjectID: "unrelated"},
	}

	mapping := MapKeysByObjectID(infos, []string{"light", "sensor"})

	assert.Equal(t, map[uint32]string{
		10: "light",
		11: "sensor",
	}, mapping)
}
