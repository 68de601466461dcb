package queue

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Priority orders pending messages (0-100, higher is served first).
type Priority int8

const (
	PriorityMin    Priority = 0
	PriorityLow    Priority = 25
	PriorityNormal Priority = 50
	PriorityHigh   Priority = 75
	PriorityMax    Priority = 100

	PriorityDefault Priority = PriorityNormal
)

// Valid checks if the priority is within valid range.
func (p Priority) Valid() bool {
	return p >= PriorityMin && p <= PriorityMax
}

// Message is a pending push send. Priority is fixed at enqueue time;
// Attempts counts queue-level redeliveries tracked by the caller, which is
// distinct from the retry executor's per-send attempt counter.
type Message struct {
	ID         uuid.UUID       `json:"id"`
	Payload    json.RawMessage `json:"payload"`
	Priority   Priority        `json:"priority"`
	Attempts   int             `json:"attempts"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

// Metrics is a point-in-time snapshot of queue activity counters.
type Metrics struct {
	Size      int    `json:"size"`
	Paused    bool   `json:"paused"`
	Enqueued  uint64 `json:"enqueued"`
	Dequeued  uint64 `json:"dequeued"`
	Completed uint64 `json:"completed"`
	Failed    uint64 `json:"failed"`
	Dropped   uint64 `json:"dropped"`
}
