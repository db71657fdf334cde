package broker

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"delivery-tracking-service/pkg/logger"
)

// RedisGuard implements the IdempotencyGuard port with a single atomic
// SET NX EX round-trip.
//
// When Redis is unreachable the guard fails open: every request is treated as
// the first claimant. Duplicate samples are display-only and totally ordered
// by ingest sequence, so availability wins over exact-once here.
type RedisGuard struct {
	client *redis.Client
	logger *logger.Logger
}

func NewRedisGuard(client *redis.Client, log *logger.Logger) *RedisGuard {
	return &RedisGuard{
		client: client,
		logger: log.Named("redis-guard"),
	}
}

func (g *RedisGuard) Claim(ctx context.Context, scopeKey string, ttl time.Duration) (bool, error) {
	first, err := g.client.SetNX(ctx, scopeKey, "1", ttl).Result()
	if err != nil {
		g.logger.Warn("idempotency backend unavailable, failing open",
			logger.String("scope_key", scopeKey),
			logger.Error(err),
		)
		return true, nil
	}
	return first, nil
}
