package broker

import (
	"context"
	"sync"
	"time"
)

// MemoryGuard is the in-process implementation of the IdempotencyGuard port
// (tests, single-node deployments without Redis). Expired claims are reaped
// lazily on each call.
type MemoryGuard struct {
	mu     sync.Mutex
	claims map[string]time.Time
	now    func() time.Time
}

func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{
		claims: make(map[string]time.Time),
		now:    time.Now,
	}
}

func (g *MemoryGuard) Claim(_ context.Context, scopeKey string, ttl time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	for key, expiry := range g.claims {
		if now.After(expiry) {
			delete(g.claims, key)
		}
	}

	if expiry, ok := g.claims[scopeKey]; ok && now.Before(expiry) {
		return false, nil
	}

	g.claims[scopeKey] = now.Add(ttl)
	return true, nil
}
