package rategate

import (
	"context"
	"sync"
	"time"
)

// InMemoryGate is a process-local Gate used in tests and single-process
// deployments where a shared Redis is unavailable.
type InMemoryGate struct {
	mu       sync.Mutex
	expiries map[string]time.Time
}

// NewInMemoryGate returns an empty InMemoryGate.
func NewInMemoryGate() *InMemoryGate {
	return &InMemoryGate{expiries: make(map[string]time.Time)}
}

func (g *InMemoryGate) Check(_ context.Context, domain string) (time.Duration, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	expiry, ok := g.expiries[domain]
	if !ok {
		return 0, nil
	}
	remaining := time.Until(expiry)
	if remaining <= 0 {
		delete(g.expiries, domain)
		return 0, nil
	}
	return remaining, nil
}

func (g *InMemoryGate) Set(_ context.Context, domain string, ttl time.Duration) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.expiries[domain] = time.Now().Add(ttl)
	return nil
}
