package broker

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"delivery-tracking-service/internal/ports"
	"delivery-tracking-service/pkg/logger"
)

// Per-subscriber queue depth. When a consumer stalls, the oldest queued
// events are dropped so the publisher never blocks.
const subscriberQueueSize = 16

func channelName(orderID string) string {
	return "track.order." + orderID
}

// RedisBus implements the BroadcastBus port on Redis pub/sub, one channel per
// order. Events are not buffered server-side: with no subscriber attached a
// publish is a no-op, which is exactly the contract (the gateway replays the
// latest stored sample on connect instead).
type RedisBus struct {
	client *redis.Client
	logger *logger.Logger
}

func NewRedisBus(client *redis.Client, log *logger.Logger) *RedisBus {
	return &RedisBus{
		client: client,
		logger: log.Named("redis-bus"),
	}
}

func (b *RedisBus) Publish(ctx context.Context, orderID string, payload []byte) error {
	if err := b.client.Publish(ctx, channelName(orderID), payload).Err(); err != nil {
		return fmt.Errorf("publish to %q: %w", channelName(orderID), err)
	}
	return nil
}

func (b *RedisBus) Subscribe(ctx context.Context, orderID string) (ports.Subscription, error) {
	pubsub := b.client.Subscribe(ctx, channelName(orderID))

	// Force the SUBSCRIBE round-trip so a dead Redis surfaces here, not on
	// the first missed event.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe to %q: %w", channelName(orderID), err)
	}

	sub := &redisSubscription{
		pubsub: pubsub,
		events: make(chan []byte, subscriberQueueSize),
	}
	go sub.forward()

	b.logger.Debug("subscriber attached", logger.String("order_id", orderID))
	return sub, nil
}

type redisSubscription struct {
	pubsub *redis.PubSub
	events chan []byte
	once   sync.Once
}

func (s *redisSubscription) forward() {
	defer close(s.events)
	for msg := range s.pubsub.Channel() {
		deliver(s.events, []byte(msg.Payload))
	}
}

func (s *redisSubscription) Events() <-chan []byte { return s.events }

func (s *redisSubscription) Close() error {
	var err error
	s.once.Do(func() {
		// Closing the pubsub ends forward(), which closes the events channel.
		err = s.pubsub.Close()
	})
	return err
}

// deliver enqueues without ever blocking: when the queue is full the oldest
// event is discarded to make room.
func deliver(queue chan []byte, payload []byte) {
	select {
	case queue <- payload:
		return
	default:
	}

	select {
	case <-queue:
	default:
	}

	select {
	case queue <- payload:
	default:
	}
}
