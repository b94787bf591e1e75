package objstore

import (
	"context"
	"io"
)

// Store is the object-storage contract for user uploads. Delete is
// idempotent: removing an absent object is not an error, which keeps the
// ephemeral double-delete path quiet.
type Store interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}
