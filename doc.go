// Package statesync provides initial-state synchronization for test
// harnesses that observe live entity-state streams from remote devices.
//
// # The Problem
//
// When a harness subscribes to a device's state stream, the device first
// replays a snapshot of every reporting unit's current state before it
// starts sending genuine change events. A test that asserts "the switch
// turned on" must not confuse the replayed snapshot with the reaction to
// its own stimulus, and must not start driving stimulus before the
// replay has finished.
//
// statesync solves both: it swallows exactly one event per stateful
// unit, records those snapshots for inspection, forwards everything else
// untouched, and exposes a one-shot awaitable that resolves once every
// tracked unit has reported.
//
// # Architecture
//
//	┌──────────────┐   state events   ┌──────────────┐   forwarded   ┌────────────┐
//	│    Device    ├─────────────────►│   Filter     ├──────────────►│ Downstream │
//	│ (StateStream)│                  │ (initialsync)│               │  consumer  │
//	└──────────────┘                  └──────┬───────┘               └────────────┘
//	                                         │ first event per unit
//	                                         ▼
//	                                  initial snapshots + completion signal
//
// # Packages
//
// Core:
//   - entity: identities, classifications, states, inventories
//   - initialsync: the filter, pending tracker, and completion signal
//   - transport: the StateStream interface the filter subscribes to
//
// Infrastructure:
//   - transport/wsstream: WebSocket StateStream client
//   - natsclient: NATS connection management
//   - output/natsforward: publish forwarded events to NATS subjects
//   - storage/snapshotstore: persist snapshots to a JetStream KV bucket
//   - session: ties stream, filter, and outputs into one lifecycle
//   - metric: Prometheus registry and /metrics server
//   - errors: classified error handling
//   - config: application configuration for the statesync binary
//   - testutil: fakes and canned data for consumer tests
//
// # Usage
//
// Library use against any StateStream:
//
//	infos, _ := stream.ListEntities(ctx)
//	inv, _ := entity.NewInventory(infos)
//	filter, _ := initialsync.NewFilter(initialsync.FilterDeps{
//	    Inventory:  inv,
//	    Downstream: onChange,
//	})
//	unsub, _ := stream.SubscribeStates(filter.OnState)
//	defer unsub()
//	if err := filter.Wait(initialsync.DefaultWaitTimeout); err != nil {
//	    return err // names the units that never reported
//	}
//	// drive stimulus; onChange now sees only genuine changes
//
// Or let a session run the whole flow:
//
//	sess, _ := session.New(session.Deps{Stream: stream, Downstream: onChange})
//	sess.Start(ctx)
//	sess.WaitForInitialStates(5 * time.Second)
//	defer sess.Stop(10 * time.Second)
//
// # Binary
//
// cmd/statesync runs the flow standalone: connect to a device over
// WebSocket, absorb the snapshot burst, forward changes to NATS, and
// persist the recorded snapshots to a JetStream KV bucket.
//
//	./bin/statesync --config configs/statesync.json
package statesync
