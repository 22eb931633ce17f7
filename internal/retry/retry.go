// Package retry implements the fleet's single canonical backoff policy:
// an asynchronous fallible operation is retried with exponential backoff
// and jitter, capped at a configurable ceiling, up to a maximum number of
// attempts. Two near-identical retry helpers existed in the system this
// was distilled from; this package is the one canonical replacement.
package retry

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

// Policy configures a retry loop. Zero values are replaced by the defaults
// documented on each field.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	// Defaults to 3.
	MaxAttempts int

	// Base is the exponential backoff base duration. Defaults to 2s.
	Base time.Duration

	// Jitter is the fractional jitter applied to each sleep, e.g. 0.3
	// means the sleep is scaled by a uniform value in [0.7, 1.3].
	// Defaults to 0.3.
	Jitter float64

	// Ceiling caps the computed sleep duration. Defaults to 30s.
	Ceiling time.Duration

	// ShouldRetry decides whether an error is retryable. A nil filter
	// retries every non-context error.
	ShouldRetry func(error) bool
}

// DefaultPolicy returns the spec's default backoff policy.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		Base:        2 * time.Second,
		Jitter:      0.3,
		Ceiling:     30 * time.Second,
	}
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.Base <= 0 {
		p.Base = 2 * time.Second
	}
	if p.Jitter <= 0 {
		p.Jitter = 0.3
	}
	if p.Ceiling <= 0 {
		p.Ceiling = 30 * time.Second
	}
	return p
}

// Do runs op, retrying on failure per the policy. Attempts are numbered
// starting at 1. Errors that ShouldRetry rejects propagate immediately
// without being retried. Context cancellation during a backoff sleep
// aborts the loop promptly and is never itself retried.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context, attempt int) (T, error)) (T, error) {
	p = p.withDefaults()

	var zero T
	var lastErr error

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := op(ctx, attempt)
		if err == nil {
			return result, nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return zero, err
		}

		lastErr = err

		if p.ShouldRetry != nil && !p.ShouldRetry(err) {
			return zero, err
		}

		if attempt == p.MaxAttempts {
			break
		}

		sleep := backoffSleep(p, attempt)
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(sleep):
		}
	}

	return zero, lastErr
}

// backoffSleep computes base^attempt seconds scaled by uniform jitter,
// capped at the ceiling.
func backoffSleep(p Policy, attempt int) time.Duration {
	rawSeconds := pow(p.Base.Seconds(), attempt)
	lo, hi := 1-p.Jitter, 1+p.Jitter
	scaledSeconds := rawSeconds * (lo + rand.Float64()*(hi-lo))
	d := time.Duration(scaledSeconds * float64(time.Second))
	if d > p.Ceiling {
		d = p.Ceiling
	}
	return d
}

func pow(base float64, exp int) float64 {
	result := 1.0
	for i := 0; i < exp; i++ {
		result *= base
	}
	return result
}
