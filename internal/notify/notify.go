package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"genq/internal/queue"
	"genq/internal/store"
)

// Notification is the event published on a job status transition.
type Notification struct {
	JobID  string       `json:"job_id"`
	Status queue.Status `json:"status"`
}

// Notifier publishes job status transitions for consumers that prefer
// push over polling the status endpoint. Polling stays the correctness
// baseline; nothing depends on these events being delivered.
type Notifier struct {
	store   store.Store
	channel string
}

func New(s store.Store, channel string) *Notifier {
	return &Notifier{store: s, channel: channel}
}

func (n *Notifier) Publish(ctx context.Context, jobID string, status queue.Status) error {
	raw, err := json.Marshal(&Notification{JobID: jobID, Status: status})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	return n.store.Publish(ctx, n.channel, string(raw))
}
