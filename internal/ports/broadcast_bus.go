package ports

import "context"

// Subscription is a live interest in one order's broadcast channel.
type Subscription interface {
	// Events yields published payloads in publish order. The channel is
	// closed after Close (or when the bus shuts down).
	Events() <-chan []byte

	// Close releases the subscription. Safe to call more than once.
	Close() error
}

// Port: per-order publish/subscribe fan-out.
//
// Delivery is best-effort and at-most-once per subscriber: with nobody
// attached an event is dropped, and a stalled subscriber loses its oldest
// queued events rather than blocking the publisher. All methods are safe for
// concurrent use.
type BroadcastBus interface {
	Publish(ctx context.Context, orderID string, payload []byte) error
	Subscribe(ctx context.Context, orderID string) (Subscription, error)
}
