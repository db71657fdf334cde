package ports

import (
	"context"
	"time"
)

// Port: short-TTL deduplication of retried requests.
type IdempotencyGuard interface {
	// Claim atomically records scopeKey for ttl and reports whether this
	// caller was the first claimant. Implementations fail open: when the
	// backing store is unreachable every claim succeeds.
	Claim(ctx context.Context, scopeKey string, ttl time.Duration) (bool, error)
}
