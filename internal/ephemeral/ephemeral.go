// Package ephemeral deletes user uploads after a short grace period.
// Uploads submitted for processing only are never meant to outlive the
// request that used them; deletion is best effort and never surfaces to
// the upload path.
package ephemeral

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"genq/internal/metrics"
	"genq/internal/objstore"
)

const deleteTimeout = 10 * time.Second

// Scheduler arms a fire-once timer per scheduled key.
type Scheduler struct {
	objects objstore.Store

	mu      sync.Mutex
	pending map[string]*time.Timer
}

func NewScheduler(objects objstore.Store) *Scheduler {
	return &Scheduler{objects: objects, pending: make(map[string]*time.Timer)}
}

// ScheduleDeletion removes the object at key once delay elapses.
// Re-scheduling the same key resets its timer.
func (s *Scheduler) ScheduleDeletion(key string, delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.pending[key]; ok {
		t.Stop()
	}
	s.pending[key] = time.AfterFunc(delay, func() { s.fire(key) })
}

func (s *Scheduler) fire(key string) {
	s.mu.Lock()
	delete(s.pending, key)
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), deleteTimeout)
	defer cancel()
	if err := s.objects.Delete(ctx, key); err != nil {
		metrics.EphemeralDeletionsTotal.WithLabelValues("error").Inc()
		log.Error().Err(err).Str("key", key).Msg("failed to delete ephemeral upload")
		return
	}
	metrics.EphemeralDeletionsTotal.WithLabelValues("ok").Inc()
	log.Info().Str("key", key).Msg("ephemeral upload deleted")
}

// DeleteNow cancels any pending deletion for key and removes the object
// immediately. Deleting an object that is already gone is not an error,
// so a user delete racing the timer stays quiet on both paths.
func (s *Scheduler) DeleteNow(ctx context.Context, key string) error {
	s.mu.Lock()
	if t, ok := s.pending[key]; ok {
		t.Stop()
		delete(s.pending, key)
	}
	s.mu.Unlock()
	return s.objects.Delete(ctx, key)
}

// Stop flushes every pending deletion immediately. Called on shutdown so
// grace periods are not silently extended past the process's life.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	keys := make([]string, 0, len(s.pending))
	for key, t := range s.pending {
		t.Stop()
		keys = append(keys, key)
	}
	s.pending = make(map[string]*time.Timer)
	s.mu.Unlock()

	for _, key := range keys {
		ctx, cancel := context.WithTimeout(context.Background(), deleteTimeout)
		if err := s.objects.Delete(ctx, key); err != nil {
			log.Error().Err(err).Str("key", key).Msg("failed to delete ephemeral upload on shutdown")
		}
		cancel()
	}
}
