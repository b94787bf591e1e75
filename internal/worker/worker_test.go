package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"genq/internal/notify"
	"genq/internal/queue"
	"genq/internal/store"
)

func waitForTerminal(t *testing.T, q *queue.Queue, id string, timeout time.Duration) *queue.Envelope {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		env, err := q.Get(context.Background(), id)
		if err != nil {
			t.Fatal(err)
		}
		if env != nil && env.Status.Terminal() {
			return env
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s never reached a terminal status", id)
	return nil
}

func startWorker(t *testing.T, w *Worker) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		w.Run(context.Background())
		close(done)
	}()
	t.Cleanup(func() {
		w.Stop()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Error("worker did not stop")
		}
	})
}

func TestEchoScenario(t *testing.T) {
	st := store.NewMemoryStore()
	q := queue.New(st, 0)

	echo := func(_ context.Context, p map[string]any) (map[string]any, error) {
		return map[string]any{"echo": p["text"]}, nil
	}
	w := New(q, echo, nil, Config{Queue: "greet", PollTimeout: 20 * time.Millisecond})
	startWorker(t, w)

	id, err := q.Enqueue(context.Background(), "greet", map[string]any{"text": "hi"})
	if err != nil {
		t.Fatal(err)
	}

	env := waitForTerminal(t, q, id, 2*time.Second)
	if env.Status != queue.StatusCompleted {
		t.Fatalf("status = %s, want completed", env.Status)
	}
	if env.Result["echo"] != "hi" {
		t.Fatalf("result = %v", env.Result)
	}
}

func TestFIFOCompletionOrder(t *testing.T) {
	st := store.NewMemoryStore()
	q := queue.New(st, 0)

	var mu sync.Mutex
	var order []string
	handler := func(_ context.Context, p map[string]any) (map[string]any, error) {
		mu.Lock()
		order = append(order, p["n"].(string))
		mu.Unlock()
		return map[string]any{}, nil
	}
	w := New(q, handler, nil, Config{Queue: "fifo", MaxConcurrent: 1, PollTimeout: 20 * time.Millisecond})
	startWorker(t, w)

	var ids []string
	for i := 0; i < 5; i++ {
		id, err := q.Enqueue(context.Background(), "fifo", map[string]any{"n": fmt.Sprint(i)})
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, id)
	}
	waitForTerminal(t, q, ids[len(ids)-1], 2*time.Second)

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 5 {
		t.Fatalf("processed %d jobs, want 5", len(order))
	}
	for i, n := range order {
		if n != fmt.Sprint(i) {
			t.Fatalf("completion order %v is not enqueue order", order)
		}
	}
}

func TestHandlerErrorMarksFailedAndLoopContinues(t *testing.T) {
	st := store.NewMemoryStore()
	q := queue.New(st, 0)

	handler := func(_ context.Context, p map[string]any) (map[string]any, error) {
		if p["boom"] == true {
			return nil, errors.New("generation exploded")
		}
		return map[string]any{"ok": true}, nil
	}
	w := New(q, handler, nil, Config{Queue: "jobs", PollTimeout: 20 * time.Millisecond})
	startWorker(t, w)

	bad, err := q.Enqueue(context.Background(), "jobs", map[string]any{"boom": true})
	if err != nil {
		t.Fatal(err)
	}
	good, err := q.Enqueue(context.Background(), "jobs", map[string]any{})
	if err != nil {
		t.Fatal(err)
	}

	badEnv := waitForTerminal(t, q, bad, 2*time.Second)
	if badEnv.Status != queue.StatusFailed {
		t.Fatalf("bad job status = %s, want failed", badEnv.Status)
	}
	msg, _ := badEnv.Result["error"].(string)
	if msg == "" {
		t.Fatal("failed job has no error field")
	}

	goodEnv := waitForTerminal(t, q, good, 2*time.Second)
	if goodEnv.Status != queue.StatusCompleted {
		t.Fatalf("good job status = %s; worker did not survive the failure", goodEnv.Status)
	}
}

func TestHandlerPanicMarksFailed(t *testing.T) {
	st := store.NewMemoryStore()
	q := queue.New(st, 0)

	handler := func(_ context.Context, _ map[string]any) (map[string]any, error) {
		panic("unexpected payload shape")
	}
	w := New(q, handler, nil, Config{Queue: "jobs", PollTimeout: 20 * time.Millisecond})
	startWorker(t, w)

	id, err := q.Enqueue(context.Background(), "jobs", map[string]any{})
	if err != nil {
		t.Fatal(err)
	}
	env := waitForTerminal(t, q, id, 2*time.Second)
	if env.Status != queue.StatusFailed {
		t.Fatalf("status = %s, want failed", env.Status)
	}
	if msg, _ := env.Result["error"].(string); !strings.Contains(msg, "panicked") {
		t.Fatalf("error = %q", msg)
	}
}

func TestJobTimeoutFreesSlot(t *testing.T) {
	st := store.NewMemoryStore()
	q := queue.New(st, 0)

	handler := func(ctx context.Context, p map[string]any) (map[string]any, error) {
		if p["hang"] == true {
			time.Sleep(300 * time.Millisecond)
		}
		return map[string]any{"ok": true}, nil
	}
	w := New(q, handler, nil, Config{
		Queue:         "jobs",
		MaxConcurrent: 1,
		PollTimeout:   20 * time.Millisecond,
		JobTimeout:    40 * time.Millisecond,
	})
	startWorker(t, w)

	hung, err := q.Enqueue(context.Background(), "jobs", map[string]any{"hang": true})
	if err != nil {
		t.Fatal(err)
	}
	quick, err := q.Enqueue(context.Background(), "jobs", map[string]any{})
	if err != nil {
		t.Fatal(err)
	}

	hungEnv := waitForTerminal(t, q, hung, 2*time.Second)
	if hungEnv.Status != queue.StatusTimeout {
		t.Fatalf("hung job status = %s, want timeout", hungEnv.Status)
	}
	if msg, _ := hungEnv.Result["error"].(string); msg == "" {
		t.Fatal("timed-out job has no error field")
	}

	// The slot was released before the hung handler returned, so the
	// second job completes well inside the handler's sleep.
	quickEnv := waitForTerminal(t, q, quick, 2*time.Second)
	if quickEnv.Status != queue.StatusCompleted {
		t.Fatalf("quick job status = %s", quickEnv.Status)
	}
}

func TestMuxDispatch(t *testing.T) {
	st := store.NewMemoryStore()
	q := queue.New(st, 0)

	mux := NewMux()
	mux.Handle("echo", func(_ context.Context, p map[string]any) (map[string]any, error) {
		return map[string]any{"echo": p["text"]}, nil
	})
	w := New(q, mux.Dispatch, nil, Config{Queue: "jobs", PollTimeout: 20 * time.Millisecond})
	startWorker(t, w)

	known, err := q.Enqueue(context.Background(), "jobs", map[string]any{"job_type": "echo", "text": "hi"})
	if err != nil {
		t.Fatal(err)
	}
	unknown, err := q.Enqueue(context.Background(), "jobs", map[string]any{"job_type": "hologram"})
	if err != nil {
		t.Fatal(err)
	}

	if env := waitForTerminal(t, q, known, 2*time.Second); env.Status != queue.StatusCompleted {
		t.Fatalf("echo job status = %s", env.Status)
	}
	env := waitForTerminal(t, q, unknown, 2*time.Second)
	if env.Status != queue.StatusFailed {
		t.Fatalf("unknown type status = %s, want failed", env.Status)
	}
	if msg, _ := env.Result["error"].(string); !strings.Contains(msg, "unknown job type") {
		t.Fatalf("error = %q", msg)
	}
}

func TestNotifierPublishesTransitions(t *testing.T) {
	st := store.NewMemoryStore()
	q := queue.New(st, 0)
	n := notify.New(st, "jobs:events")

	handler := func(_ context.Context, _ map[string]any) (map[string]any, error) {
		return map[string]any{}, nil
	}
	w := New(q, handler, n, Config{Queue: "jobs", PollTimeout: 20 * time.Millisecond})
	startWorker(t, w)

	id, err := q.Enqueue(context.Background(), "jobs", map[string]any{})
	if err != nil {
		t.Fatal(err)
	}
	waitForTerminal(t, q, id, 2*time.Second)

	msgs := st.Messages("jobs:events")
	if len(msgs) < 2 {
		t.Fatalf("got %d notifications, want processing + completed", len(msgs))
	}
	var last notify.Notification
	if err := json.Unmarshal([]byte(msgs[len(msgs)-1]), &last); err != nil {
		t.Fatal(err)
	}
	if last.JobID != id || last.Status != queue.StatusCompleted {
		t.Fatalf("last notification = %+v", last)
	}
}
