package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"genq/internal/store"
)

// Queue persists job envelopes in a side-table keyed by job id and pushes
// them onto a named list for workers to pop. Multiple producers and
// consumers may share a queue; the store's atomic pop guarantees each job
// is handed to at most one worker.
type Queue struct {
	store store.Store
	ttl   time.Duration
}

// New returns a Queue whose side-table entries expire after entryTTL.
// A zero entryTTL keeps entries until the store evicts them.
func New(s store.Store, entryTTL time.Duration) *Queue {
	return &Queue{store: s, ttl: entryTTL}
}

func jobKey(id string) string { return "job:" + id }

// Enqueue generates a fresh job id, persists the envelope and pushes it
// onto the named queue. It returns as soon as the job is durable; it does
// not wait for a worker.
func (q *Queue) Enqueue(ctx context.Context, queueName string, payload map[string]any) (string, error) {
	id := uuid.NewString()
	env := &Envelope{ID: id, Status: StatusPending, Data: payload}
	raw, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("marshal envelope: %w", err)
	}
	// Side-table first so the status is readable the moment the job is
	// poppable.
	if err := q.store.Set(ctx, jobKey(id), string(raw), q.ttl); err != nil {
		return "", fmt.Errorf("persist job %s: %w", id, err)
	}
	if err := q.store.LPush(ctx, queueName, string(raw)); err != nil {
		return "", fmt.Errorf("push job %s: %w", id, err)
	}
	return id, nil
}

// Dequeue blocks up to timeout for the next job. A nil envelope with a
// nil error means the poll timed out; callers loop and re-check their
// shutdown flag.
func (q *Queue) Dequeue(ctx context.Context, queueName string, timeout time.Duration) (*Envelope, error) {
	raw, err := q.store.BRPop(ctx, timeout, queueName)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("pop %s: %w", queueName, err)
	}
	var env Envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	return &env, nil
}

// Get returns the envelope for id, or nil if the job is unknown.
func (q *Queue) Get(ctx context.Context, id string) (*Envelope, error) {
	raw, err := q.store.Get(ctx, jobKey(id))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	var env Envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	return &env, nil
}

// Update overwrites the job's status, and its result when non-nil. The
// original payload is preserved verbatim. Updating an unknown id is a
// logged no-op: the entry may simply have expired. The read-modify-write
// is not guarded against concurrent writers; exactly one worker owns a
// job after dequeue.
func (q *Queue) Update(ctx context.Context, id string, status Status, result map[string]any) error {
	env, err := q.Get(ctx, id)
	if err != nil {
		return err
	}
	if env == nil {
		log.Warn().Str("jobId", id).Str("status", string(status)).Msg("update for unknown job ignored")
		return nil
	}
	env.Status = status
	if result != nil {
		env.Result = result
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	if err := q.store.Set(ctx, jobKey(id), string(raw), q.ttl); err != nil {
		return fmt.Errorf("persist job %s: %w", id, err)
	}
	return nil
}
