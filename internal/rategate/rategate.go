// Package rategate enforces per-domain politeness windows shared across
// every worker process. A domain that was just scraped carries a TTL key;
// a worker about to fetch that domain checks the remaining TTL and waits
// it out rather than skipping the fetch.
package rategate

import (
	"context"
	"time"
)

// Gate is the per-domain rate-limit contract. Implementations must be
// safe for concurrent use by multiple worker processes.
type Gate interface {
	// Check returns the remaining TTL for domain's rate-limit key, or
	// zero if the domain is not currently gated.
	Check(ctx context.Context, domain string) (time.Duration, error)

	// Set gates domain for the given duration.
	Set(ctx context.Context, domain string, ttl time.Duration) error
}
