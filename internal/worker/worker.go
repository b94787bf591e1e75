package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"genq/internal/metrics"
	"genq/internal/notify"
	"genq/internal/queue"
)

// HandlerFunc is the pluggable generation callback. It receives the job
// payload and returns the success result, or an error that becomes the
// job's failure payload. This is the only place external AI/network work
// happens.
type HandlerFunc func(ctx context.Context, payload map[string]any) (map[string]any, error)

// Mux dispatches jobs to handlers by the payload's job_type field, so a
// single worker can serve video, poster and voice jobs from one queue.
type Mux struct {
	handlers map[string]HandlerFunc
}

func NewMux() *Mux {
	return &Mux{handlers: make(map[string]HandlerFunc)}
}

func (m *Mux) Handle(jobType string, h HandlerFunc) {
	m.handlers[jobType] = h
}

// Dispatch is itself a HandlerFunc; jobs with an unregistered type fail.
func (m *Mux) Dispatch(ctx context.Context, payload map[string]any) (map[string]any, error) {
	t, _ := payload["job_type"].(string)
	h, ok := m.handlers[t]
	if !ok {
		return nil, fmt.Errorf("unknown job type: %q", t)
	}
	return h(ctx, payload)
}

var errDeadline = errors.New("generation deadline exceeded")

// Config bounds one worker loop.
type Config struct {
	Queue         string
	MaxConcurrent int           // concurrency slots, default 4
	PollTimeout   time.Duration // dequeue poll, default 1s
	JobTimeout    time.Duration // per-job deadline, 0 disables
}

// Worker is a single logical consumer: one polling loop that dequeues,
// dispatches to the handler under a bounded number of concurrency slots,
// and writes status transitions back to the queue's side-table. Multiple
// Worker processes may consume the same queue across machines.
type Worker struct {
	jobs     *queue.Queue
	handler  HandlerFunc
	notifier *notify.Notifier // optional
	cfg      Config

	running  atomic.Bool
	inflight atomic.Int64
	wg       sync.WaitGroup
}

// New returns a Worker; notifier may be nil to disable push events.
func New(jobs *queue.Queue, handler HandlerFunc, notifier *notify.Notifier, cfg Config) *Worker {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 4
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = time.Second
	}
	return &Worker{jobs: jobs, handler: handler, notifier: notifier, cfg: cfg}
}

// Run polls the queue until Stop is called or ctx is cancelled, then
// waits for in-flight jobs to finish. Loop-level failures are logged and
// followed by a short pause; a bad job never crashes the loop.
func (w *Worker) Run(ctx context.Context) {
	w.running.Store(true)
	log.Info().
		Str("queue", w.cfg.Queue).
		Int("maxConcurrent", w.cfg.MaxConcurrent).
		Dur("jobTimeout", w.cfg.JobTimeout).
		Msg("worker started")

	for w.running.Load() && ctx.Err() == nil {
		if int(w.inflight.Load()) >= w.cfg.MaxConcurrent {
			sleep(ctx, 500*time.Millisecond)
			continue
		}

		env, err := w.jobs.Dequeue(ctx, w.cfg.Queue, w.cfg.PollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			log.Error().Err(err).Str("queue", w.cfg.Queue).Msg("failed to dequeue")
			sleep(ctx, time.Second)
			continue
		}
		if env == nil {
			continue
		}

		w.inflight.Add(1)
		metrics.JobsInFlight.Inc()
		w.wg.Add(1)
		// In-flight jobs survive loop shutdown; they run to completion
		// on their own deadline.
		jobCtx := context.WithoutCancel(ctx)
		go func(env *queue.Envelope) {
			defer w.wg.Done()
			defer metrics.JobsInFlight.Dec()
			defer w.inflight.Add(-1)
			w.process(jobCtx, env)
		}(env)
	}

	w.wg.Wait()
	log.Info().Str("queue", w.cfg.Queue).Msg("worker stopped")
}

// Stop prevents new dequeues; Run returns once in-flight jobs finish.
func (w *Worker) Stop() {
	w.running.Store(false)
}

// InFlight reports the number of occupied concurrency slots.
func (w *Worker) InFlight() int {
	return int(w.inflight.Load())
}

func (w *Worker) process(ctx context.Context, env *queue.Envelope) {
	jt := jobType(env)
	start := time.Now()
	log.Info().Str("jobId", env.ID).Str("jobType", jt).Msg("processing job")

	if err := w.jobs.Update(ctx, env.ID, queue.StatusProcessing, nil); err != nil {
		log.Error().Err(err).Str("jobId", env.ID).Msg("failed to mark job processing")
	}
	w.publish(ctx, env.ID, queue.StatusProcessing)

	result, err := w.invoke(ctx, env.Data)
	switch {
	case errors.Is(err, errDeadline):
		w.finish(ctx, env.ID, queue.StatusTimeout, map[string]any{
			"error": fmt.Sprintf("generation timed out after %s", w.cfg.JobTimeout),
		})
		metrics.JobsTimedOutTotal.WithLabelValues(jt).Inc()
	case err != nil:
		w.finish(ctx, env.ID, queue.StatusFailed, map[string]any{"error": err.Error()})
		metrics.JobsFailedTotal.WithLabelValues(jt).Inc()
	default:
		w.finish(ctx, env.ID, queue.StatusCompleted, result)
		metrics.JobsCompletedTotal.WithLabelValues(jt).Inc()
	}
	metrics.JobDurationSeconds.WithLabelValues(jt).Observe(time.Since(start).Seconds())
}

// invoke runs the handler, applying the per-job deadline when configured.
// On deadline expiry the handler is abandoned and its eventual result
// discarded; the concurrency slot is freed immediately.
func (w *Worker) invoke(ctx context.Context, payload map[string]any) (result map[string]any, err error) {
	if w.cfg.JobTimeout <= 0 {
		return w.call(ctx, payload)
	}

	cctx, cancel := context.WithTimeout(ctx, w.cfg.JobTimeout)
	defer cancel()

	type outcome struct {
		result map[string]any
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := w.call(cctx, payload)
		done <- outcome{res, err}
	}()

	select {
	case out := <-done:
		return out.result, out.err
	case <-cctx.Done():
		return nil, errDeadline
	}
}

// call shields the loop from a panicking handler.
func (w *Worker) call(ctx context.Context, payload map[string]any) (result map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("generation panicked: %v", r)
		}
	}()
	return w.handler(ctx, payload)
}

func (w *Worker) finish(ctx context.Context, id string, status queue.Status, result map[string]any) {
	if err := w.jobs.Update(ctx, id, status, result); err != nil {
		log.Error().Err(err).Str("jobId", id).Str("status", string(status)).Msg("failed to update job status")
	}
	w.publish(ctx, id, status)
	log.Info().Str("jobId", id).Str("status", string(status)).Msg("job finished")
}

func (w *Worker) publish(ctx context.Context, id string, status queue.Status) {
	if w.notifier == nil {
		return
	}
	if err := w.notifier.Publish(ctx, id, status); err != nil {
		log.Error().Err(err).Str("jobId", id).Msg("failed to publish the notification")
	}
}

func jobType(env *queue.Envelope) string {
	if t, ok := env.Data["job_type"].(string); ok && t != "" {
		return t
	}
	return "unknown"
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
