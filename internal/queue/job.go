package queue

// Status is the lifecycle state of a job. Transitions are forward-only:
// pending -> queued -> processing -> {completed, failed, cancelled, timeout}.
type Status string

const (
	StatusPending    Status = "pending"
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
	StatusTimeout    Status = "timeout"
)

// Terminal reports whether a job in this status will not transition again.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled, StatusTimeout:
		return true
	}
	return false
}

// Envelope is the stored record representing one job. Data is fixed at
// enqueue time and never mutated; Result is set only on the transition to
// completed (success payload) or failed/timeout (error payload).
type Envelope struct {
	ID     string         `json:"id"`
	Status Status         `json:"status"`
	Data   map[string]any `json:"data"`
	Result map[string]any `json:"result,omitempty"`
}
