package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key is absent, or when a blocking pop
// times out with nothing to deliver.
var ErrNotFound = errors.New("store: key not found")

// ErrUnavailable wraps transport-level failures talking to the backing
// store. Callers decide fail-open vs fail-closed: the rate limiter denies
// the request, the job queue surfaces the error to its caller.
var ErrUnavailable = errors.New("store: unavailable")

// Store is the shared key-value/list/pubsub contract backing the job
// queue, the rate limiter and the ephemeral cache. All mutation goes
// through its atomic primitives; the blocking list pop is the only
// coordination point between worker replicas.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	// Set stores value and overwrites any existing value and its TTL.
	// A zero ttl means no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Delete is idempotent; removing an absent key is not an error.
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	// Incr atomically increments the integer at key, initializing an
	// absent key to 0 first.
	Incr(ctx context.Context, key string) (int64, error)
	// Expire sets or refreshes the TTL on an existing key; it is a no-op
	// if the key is absent.
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// LPush pushes onto the head of the named list; BRPop blocks up to
	// timeout for the tail element and returns ErrNotFound on timeout,
	// giving push/pop FIFO semantics end to end.
	LPush(ctx context.Context, key, value string) error
	BRPop(ctx context.Context, timeout time.Duration, key string) (string, error)

	Publish(ctx context.Context, channel, message string) error

	Ping(ctx context.Context) error
	Close() error
}
