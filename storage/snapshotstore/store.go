// Package snapshotstore persists recorded initial state snapshots to a
// JetStream key-value bucket, so a harness run's view of the device at
// connection time survives the process and can be inspected afterwards.
//
// Storage is strictly off the hot path: the filter records snapshots in
// memory and a session flushes them here once, at teardown.
package snapshotstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360/statesync/entity"
	"github.com/c360/statesync/errors"
)

// DefaultBucket is the bucket name used when the config does not name one.
const DefaultBucket = "INITIAL_SNAPSHOTS"

// KV is the subset of jetstream.KeyValue the store needs, kept narrow so
// unit tests can use a fake.
type KV interface {
	Put(ctx context.Context, key string, value []byte) (uint64, error)
	Get(ctx context.Context, key string) (jetstream.KeyValueEntry, error)
	ListKeys(ctx context.Context, opts ...jetstream.WatchOpt) (jetstream.KeyLister, error)
}

// StoreDeps holds the dependencies for a Store.
type StoreDeps struct {
	// KV is the backing bucket (required).
	KV KV
	// Logger is optional; nil disables logging.
	Logger *slog.Logger
}

// Store reads and writes snapshots under "snapshot.<deviceID>.<key>".
type Store struct {
	kv     KV
	logger *slog.Logger
}

// OpenBucket gets or creates the snapshot bucket on a JetStream context.
func OpenBucket(ctx context.Context, js jetstream.JetStream, bucket string) (KV, error) {
	if bucket == "" {
		bucket = DefaultBucket
	}

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "Initial state snapshots recorded by statesync sessions",
	})
	if err != nil {
		return nil, errors.WrapTransient(err, "snapshotstore", "OpenBucket", "create key-value bucket")
	}
	return kv, nil
}

// NewStore creates a Store over an existing bucket.
func NewStore(deps StoreDeps) (*Store, error) {
	if deps.KV == nil {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: key-value bucket is required", errors.ErrInvalidConfig),
			"snapshotstore", "NewStore", "validate dependencies")
	}
	return &Store{kv: deps.KV, logger: deps.Logger}, nil
}

func snapshotKey(id entity.ID) string {
	return fmt.Sprintf("snapshot.%d.%d", id.DeviceID, id.Key)
}

// Store writes every snapshot in the map. Writes are last-write-wins at
// the bucket level; the in-memory first-write-wins policy already decided
// which snapshot each key holds.
func (s *Store) Store(ctx context.Context, snapshots map[uint32]entity.State) error {
	for _, state := range snapshots {
		data, err := json.Marshal(state)
		if err != nil {
			return errors.WrapInvalid(err, "snapshotstore", "Store", "marshal snapshot")
		}

		key := snapshotKey(state.ID())
		if _, err := s.kv.Put(ctx, key, data); err != nil {
			return errors.WrapTransient(err, "snapshotstore", "Store",
				fmt.Sprintf("put snapshot %s", key))
		}
	}

	if s.logger != nil {
		s.logger.Debug("persisted initial snapshots", "count", len(snapshots))
	}
	return nil
}

// Load reads back every stored snapshot, keyed by entity key the same
// way Filter.InitialStates reports them.
func (s *Store) Load(ctx context.Context) (map[uint32]entity.State, error) {
	lister, err := s.kv.ListKeys(ctx)
	if err != nil {
		return nil, errors.WrapTransient(err, "snapshotstore", "Load", "list snapshot keys")
	}
	defer func() { _ = lister.Stop() }()

	snapshots := make(map[uint32]entity.State)
	for key := range lister.Keys() {
		if !strings.HasPrefix(key, "snapshot.") {
			continue
		}

		entry, err := s.kv.Get(ctx, key)
		if err != nil {
			return nil, errors.WrapTransient(err, "snapshotstore", "Load",
				fmt.Sprintf("get snapshot %s", key))
		}

		var state entity.State
		if err := json.Unmarshal(entry.Value(), &state); err != nil {
			return nil, errors.WrapInvalid(err, "snapshotstore", "Load",
				fmt.Sprintf("unmarshal snapshot %s", key))
		}
		snapshots[state.Key] = state
	}

	return snapshots, nil
}
