package queue

import (
	"context"

	"github.com/google/uuid"
)

// Storage is the adapter contract queue backends satisfy. The in-memory
// reference implementation and the persistent backends all expose this
// shape, keeping the Manager's processing logic backend-agnostic.
//
// Dequeued messages stay tracked by the backend until the caller settles
// them with Complete or Fail; Retry returns a failed message to the
// pending set.
type Storage interface {
	// Enqueue adds a message to the pending set. Returns ErrQueueFull
	// when a configured capacity is reached.
	Enqueue(ctx context.Context, msg Message) error

	// Dequeue removes and returns the highest-priority pending message.
	// Returns ErrQueueEmpty when nothing is pending and ErrQueuePaused
	// while the queue is paused.
	Dequeue(ctx context.Context) (*Message, error)

	// DequeueBatch dequeues up to n messages, stopping early when the
	// queue drains.
	DequeueBatch(ctx context.Context, n int) ([]Message, error)

	// Remove cancels a not-yet-dequeued message by id.
	Remove(ctx context.Context, id uuid.UUID) error

	// Complete settles a dequeued message as delivered.
	Complete(ctx context.Context, id uuid.UUID) error

	// Fail settles a dequeued message as permanently failed.
	Fail(ctx context.Context, id uuid.UUID, errMsg string) error

	// Retry returns a failed message to the pending set, incrementing
	// its queue-level attempt counter.
	Retry(ctx context.Context, id uuid.UUID) error

	// Size reports the number of pending messages.
	Size(ctx context.Context) (int, error)

	// Clear drops all pending messages.
	Clear(ctx context.Context) error

	// Pause stops dequeueing until Resume is called. Enqueueing is unaffected.
	Pause(ctx context.Context) error

	// Resume re-enables dequeueing.
	Resume(ctx context.Context) error

	// Metrics reports queue activity counters.
	Metrics(ctx context.Context) (Metrics, error)
}
