package ratelimit

import (
	"context"
	"fmt"
	"time"

	"genq/internal/store"
)

// Limiter is a fixed-window counter shared across replicas through the
// store. The first increment of a window sets the TTL; the counter resets
// to absent when the TTL elapses. Increments racing the TTL reset at a
// window boundary can admit up to a 2x burst; that imprecision is
// inherent to the fixed-window algorithm and accepted here.
type Limiter struct {
	store store.Store
}

// Decision is the caller-facing outcome of one rate-limit check.
type Decision struct {
	Allowed   bool
	Remaining int
}

func New(s store.Store) *Limiter {
	return &Limiter{store: s}
}

func counterKey(identity string) string { return "ratelimit:" + identity }

// Allow counts one request for identity against max requests per window.
// Fail-closed: any store failure denies the request and returns the error
// for logging.
func (l *Limiter) Allow(ctx context.Context, identity string, max int, window time.Duration) (Decision, error) {
	key := counterKey(identity)
	n, err := l.store.Incr(ctx, key)
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit incr %s: %w", identity, err)
	}
	if n == 1 {
		if err := l.store.Expire(ctx, key, window); err != nil {
			return Decision{}, fmt.Errorf("rate limit expire %s: %w", identity, err)
		}
	}
	remaining := max - int(n)
	if remaining < 0 {
		remaining = 0
	}
	return Decision{Allowed: int(n) <= max, Remaining: remaining}, nil
}
