// Package natsclient manages the NATS connection shared by the state
// forwarder and the snapshot store.
//
// The client wraps nats.go's built-in reconnect machinery and mirrors
// connection state into Prometheus when a metrics registry is attached.
// Conn satisfies the forwarder's Publisher interface and JetStream
// feeds the snapshot store's KV bucket:
//
//	nc, _ := natsclient.NewClient(url, natsclient.WithLogger(logger))
//	if err := nc.Connect(ctx); err != nil {
//	    return err
//	}
//	defer nc.Close()
//	kv, _ := snapshotstore.OpenBucket(ctx, nc.JetStream(), bucket)
package natsclient
