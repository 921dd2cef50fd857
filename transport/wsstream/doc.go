// Package wsstream implements transport.StateStream over a WebSocket
// connection to a device.
//
// All traffic uses a JSON envelope with type discrimination. The client
// sends "list_entities" (correlated by UUID) and "subscribe_states";
// the device replies with "entities" and then streams "state" envelopes,
// starting with a snapshot of every unit's current state.
//
// A single read loop goroutine owns the connection's read side, so state
// events reach the installed handler in delivery order. The initial dial
// is retried with backoff because devices are often still booting when
// a test harness first connects.
package wsstream
