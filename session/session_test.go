package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/statesync/entity"
	"github.com/c360/statesync/errors"
	"github.com/c360/statesync/metric"
	"github.com/c360/statesync/storage/snapshotstore"
	"github.com/c360/statesync/testutil"
)

func TestNew_RequiresStream(t *testing.T) {
	_, err := New(Deps{})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)
}

func TestNew_GeneratesName(t *testing.T) {
	sess, err := New(Deps{Stream: testutil.NewFakeStream(nil)})
	require.NoError(t, err)
	assert.Contains(t, sess.Name(), "session-")

	named, err := New(Deps{Stream: testutil.NewFakeStream(nil), Name: "climate-test"})
	require.NoError(t, err)
	assert.Equal(t, "climate-test", named.Name())
}

func TestSession_FullFlow(t *testing.T) {
	stream := testutil.NewFakeStream(testutil.TypicalInventory())

	var forwarded []entity.State
	sess, err := New(Deps{
		Stream:     stream,
		Downstream: func(s entity.State) { forwarded = append(forwarded, s) },
		Name:       "full-flow",
	})
	require.NoError(t, err)

	require.NoError(t, sess.Start(context.Background()))
	defer func() { _ = sess.Stop(time.Second) }()

	assert.True(t, stream.Subscribed())
	assert.Equal(t, 1, stream.ListCalls)

	// The snapshot burst is swallowed and finishes the wait.
	stream.EmitAll()
	require.NoError(t, sess.WaitForInitialStates(time.Second))
	assert.Empty(t, forwarded)

	initial := sess.InitialStates()
	assert.Len(t, initial, 3, "one snapshot per stateful unit")

	// Subsequent events flow through.
	change := testutil.StateFor(entity.ID{DeviceID: 1, Key: 10}, `{"on":false}`)
	stream.Emit(change)
	require.Len(t, forwarded, 1)
	assert.Equal(t, change.ID(), forwarded[0].ID())
}

func TestSession_WaitTimeout(t *testing.T) {
	stream := testutil.NewFakeStream(testutil.TypicalInventory())
	sess, err := New(Deps{Stream: stream})
	require.NoError(t, err)

	require.NoError(t, sess.Start(context.Background()))
	defer func() { _ = sess.Stop(time.Second) }()

	// Only one of three stateful units reports.
	stream.Emit(testutil.StateFor(entity.ID{DeviceID: 1, Key: 10}, `{}`))

	err = sess.WaitForInitialStates(50 * time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrWaitTimeout)

	// The session survives a timed-out wait: late snapshots still count.
	stream.Emit(testutil.StateFor(entity.ID{DeviceID: 1, Key: 11}, `{}`))
	stream.Emit(testutil.StateFor(entity.ID{DeviceID: 2, Key: 20}, `{}`))
	require.NoError(t, sess.WaitForInitialStates(time.Second))
}

func TestSession_StatelessOnlyNeverWaits(t *testing.T) {
	stream := testutil.NewFakeStream(testutil.StatelessOnlyInventory())
	sess, err := New(Deps{Stream: stream})
	require.NoError(t, err)

	require.NoError(t, sess.Start(context.Background()))
	defer func() { _ = sess.Stop(time.Second) }()

	// No events delivered at all; the wait must complete immediately.
	require.NoError(t, sess.WaitForInitialStates(time.Millisecond))
	assert.Empty(t, sess.InitialStates())
}

func TestSession_WaitContext(t *testing.T) {
	stream := testutil.NewFakeStream(testutil.TypicalInventory())
	sess, err := New(Deps{Stream: stream})
	require.NoError(t, err)

	require.NoError(t, sess.Start(context.Background()))
	defer func() { _ = sess.Stop(time.Second) }()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err = sess.WaitForInitialStatesContext(ctx)
	assert.ErrorIs(t, err, errors.ErrWaitTimeout)
}

func TestSession_ListEntitiesFailure(t *testing.T) {
	stream := testutil.NewFakeStream(nil)
	stream.ListErr = fmt.Errorf("device unreachable")

	sess, err := New(Deps{Stream: stream})
	require.NoError(t, err)

	err = sess.Start(context.Background())
	require.Error(t, err)
	assert.False(t, stream.Subscribed())
}

func TestSession_DuplicateInventoryFailsStart(t *testing.T) {
	infos := testutil.TypicalInventory()
	infos = append(infos, infos[0])
	stream := testutil.NewFakeStream(infos)

	sess, err := New(Deps{Stream: stream})
	require.NoError(t, err)

	err = sess.Start(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrDuplicateIdentity)
}

func TestSession_LifecycleGuards(t *testing.T) {
	stream := testutil.NewFakeStream(testutil.StatelessOnlyInventory())
	sess, err := New(Deps{Stream: stream})
	require.NoError(t, err)

	// Wait before Start is an error, not a hang.
	err = sess.WaitForInitialStates(time.Millisecond)
	assert.ErrorIs(t, err, errors.ErrNotStarted)
	assert.Nil(t, sess.InitialStates())
	assert.Nil(t, sess.Inventory())

	require.NoError(t, sess.Start(context.Background()))
	assert.ErrorIs(t, sess.Start(context.Background()), errors.ErrAlreadyStarted)

	require.NoError(t, sess.Stop(time.Second))
	require.NoError(t, sess.Stop(time.Second), "second stop is a no-op")
	assert.False(t, stream.Subscribed())
}

func TestSession_WithMetrics(t *testing.T) {
	registry := metric.NewMetricsRegistry()
	stream := testutil.NewFakeStream(testutil.TypicalInventory())

	sess, err := New(Deps{
		Stream:          stream,
		Name:            "metrics-session",
		MetricsRegistry: registry,
	})
	require.NoError(t, err)

	require.NoError(t, sess.Start(context.Background()))
	defer func() { _ = sess.Stop(time.Second) }()

	stream.EmitAll()
	require.NoError(t, sess.WaitForInitialStates(time.Second))

	// Pass-through events increment the session counter.
	stream.Emit(testutil.StateFor(entity.ID{DeviceID: 1, Key: 10}, `{}`))

	families, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	found := false
	for _, mf := range families {
		if mf.GetName() == "statesync_events_received_total" {
			found = true
		}
	}
	assert.True(t, found, "session event counter should be exported")
}

// memKV is an in-memory snapshotstore.KV covering the Put path used by
// Stop; reads are not exercised here.
type memKV struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemKV() *memKV {
	return &memKV{data: make(map[string][]byte)}
}

func (m *memKV) Put(_ context.Context, key string, value []byte) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return uint64(len(m.data)), nil
}

func (m *memKV) Get(context.Context, string) (jetstream.KeyValueEntry, error) {
	return nil, jetstream.ErrKeyNotFound
}

func (m *memKV) ListKeys(context.Context, ...jetstream.WatchOpt) (jetstream.KeyLister, error) {
	return nil, fmt.Errorf("not implemented")
}

func TestSession_StopPersistsSnapshots(t *testing.T) {
	kv := newMemKV()
	snapshots, err := snapshotstore.NewStore(snapshotstore.StoreDeps{KV: kv})
	require.NoError(t, err)

	stream := testutil.NewFakeStream(testutil.TypicalInventory())
	sess, err := New(Deps{Stream: stream, Snapshots: snapshots})
	require.NoError(t, err)

	require.NoError(t, sess.Start(context.Background()))
	stream.EmitAll()
	require.NoError(t, sess.WaitForInitialStates(time.Second))

	require.NoError(t, sess.Stop(time.Second))

	kv.mu.Lock()
	defer kv.mu.Unlock()
	assert.Len(t, kv.data, 3, "one stored snapshot per stateful unit")
	for key := range kv.data {
		assert.Contains(t, key, "snapshot.")
	}
}
