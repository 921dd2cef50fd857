package initialsync

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/c360/statesync/entity"
)

// Property: for any stateful inventory and any delivery order with
// arbitrary duplicates, exactly one event per tracked identity is
// swallowed, everything else is forwarded, and the signal resolves once
// every identity has reported.
func TestFilter_AnyOrderAnyDuplicates(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		deviceIDs := rapid.SliceOfNDistinct(
			rapid.Int64Range(1, 5), 1, 3, rapid.ID[int64]).Draw(t, "devices")

		var infos []entity.Info
		var ids []entity.ID
		for _, dev := range deviceIDs {
			keys := rapid.SliceOfNDistinct(
				rapid.Uint32Range(1, 20), 1, 5, rapid.ID[uint32]).Draw(t, fmt.Sprintf("keys-%d", dev))
			for _, key := range keys {
				id := entity.ID{DeviceID: dev, Key: key}
				ids = append(ids, id)
				infos = append(infos, entity.Info{
					ID:             id,
					ObjectID:       fmt.Sprintf("unit_%d_%d", dev, key),
					Classification: entity.Stateful,
				})
			}
		}

		inv, err := entity.NewInventory(infos)
		require.NoError(t, err)

		rec := &recorder{}
		filter, err := NewFilter(FilterDeps{Inventory: inv, Downstream: rec.record})
		require.NoError(t, err)

		// One initial report per identity, then extra duplicates, shuffled
		// into an arbitrary delivery order.
		events := make([]entity.State, 0, len(ids)*2)
		for seq, id := range ids {
			events = append(events, stateFor(id.DeviceID, id.Key, fmt.Sprintf(`{"seq":%d}`, seq)))
		}
		extras := rapid.IntRange(0, 10).Draw(t, "extras")
		for i := 0; i < extras; i++ {
			id := rapid.SampledFrom(ids).Draw(t, fmt.Sprintf("extra-%d", i))
			events = append(events, stateFor(id.DeviceID, id.Key, fmt.Sprintf(`{"extra":%d}`, i)))
		}
		order := rapid.Permutation(events).Draw(t, "order")

		for _, ev := range order {
			filter.OnState(ev)
		}

		require.True(t, filter.Signal().Resolved())
		require.NoError(t, filter.Wait(time.Second))
		require.Empty(t, filter.Pending())
		require.Len(t, rec.all(), extras, "every event beyond the first per identity is forwarded")
	})
}
