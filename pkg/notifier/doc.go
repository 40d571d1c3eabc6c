// Package notifier implements the push side of the VTN: a registry binding
// authenticated clients to live WebSocket channels, a bounded per-client
// delivery pipeline, and the HTTP handlers that admit new channels.
//
// Producers (REST handlers for programs, events and reports) never touch the
// registry. They depend on the Publisher interface:
//
//	n, err := notifier.New(cfg,
//		notifier.WithLogger(log),
//		notifier.WithIdentifier(identify),
//	)
//	if err != nil {
//		return err
//	}
//	defer n.Close(context.Background())
//
//	r.Get("/notifiers", n.CapabilitiesHandler())
//	r.Get("/notifiers/websocket", n.UpgradeHandler())
//
//	// somewhere in the event service
//	switch n.Publish(ctx, venID, notifier.Notification{Type: "event", Payload: evt}) {
//	case notifier.NoSuchClient:
//		// the VEN is not connected, it will poll
//	case notifier.BufferFull:
//		// dropped under the configured backpressure policy
//	}
//
// # Channel lifecycle
//
// A client holds at most one channel. The upgrade handler reserves the
// client's registry slot before the protocol switch and answers 409 when the
// slot is taken. After the switch a forwarding loop owns the socket: it drains
// the client's buffer in FIFO order, serializes each notification as a
// {"type": ..., "payload": ...} text frame and writes it out. Whatever ends the
// loop (peer close, write error, idle timeout, Disconnect, Close) it removes
// its own registry entry before releasing anything else. Removal compares the
// handle identity, so a newer channel bound to the same client is never
// evicted by a stale loop.
//
// # Backpressure
//
// Every client buffer holds Config.BufferCapacity notifications. The
// registry-wide Policy decides what happens when it is full:
//
//   - DropNewest rejects the new notification (BufferFull).
//   - DropOldest evicts the oldest queued notification and accepts the new one.
//   - BlockProducer suspends Publish until there is room or ctx is done.
//
// Every drop is counted in the vtn_notifier_dropped_total metric and logged,
// with log output throttled per client.
package notifier
