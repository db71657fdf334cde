package broker

import (
	"context"
	"sync"

	"delivery-tracking-service/internal/ports"
)

// ChannelBus is the in-process implementation of the BroadcastBus port, used
// for tests and single-node deployments without Redis. Semantics mirror the
// Redis bus: per-order channels, no buffering for absent subscribers, and a
// bounded per-subscriber queue that drops oldest under pressure.
type ChannelBus struct {
	mu   sync.Mutex
	subs map[string]map[*channelSubscription]struct{}
}

func NewChannelBus() *ChannelBus {
	return &ChannelBus{
		subs: make(map[string]map[*channelSubscription]struct{}),
	}
}

func (b *ChannelBus) Publish(_ context.Context, orderID string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for sub := range b.subs[orderID] {
		deliver(sub.events, payload)
	}
	return nil
}

func (b *ChannelBus) Subscribe(_ context.Context, orderID string) (ports.Subscription, error) {
	sub := &channelSubscription{
		bus:     b,
		orderID: orderID,
		events:  make(chan []byte, subscriberQueueSize),
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subs[orderID] == nil {
		b.subs[orderID] = make(map[*channelSubscription]struct{})
	}
	b.subs[orderID][sub] = struct{}{}

	return sub, nil
}

func (b *ChannelBus) unsubscribe(sub *channelSubscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	set := b.subs[sub.orderID]
	if set == nil {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(b.subs, sub.orderID)
	}
}

type channelSubscription struct {
	bus     *ChannelBus
	orderID string
	events  chan []byte
	once    sync.Once
}

func (s *channelSubscription) Events() <-chan []byte { return s.events }

func (s *channelSubscription) Close() error {
	s.once.Do(func() {
		// Unregister before closing so a concurrent Publish cannot send on a
		// closed channel (Publish holds the same lock unsubscribe takes).
		s.bus.unsubscribe(s)
		close(s.events)
	})
	return nil
}
