package queue

import "errors"

var (
	// ErrStorageNil is returned when a nil storage is provided.
	ErrStorageNil = errors.New("storage cannot be nil")

	// ErrSendFuncNil is returned when a manager is constructed without a send function.
	ErrSendFuncNil = errors.New("send function cannot be nil")

	// ErrQueueFull is returned when the queue reached its configured capacity.
	ErrQueueFull = errors.New("queue is full")

	// ErrQueueEmpty is returned when dequeueing from an empty queue.
	ErrQueueEmpty = errors.New("queue is empty")

	// ErrQueuePaused is returned when dequeueing from a paused queue.
	ErrQueuePaused = errors.New("queue is paused")

	// ErrMessageNotFound is returned when a message id does not resolve.
	ErrMessageNotFound = errors.New("message not found")

	// ErrManagerDisabled is returned when a disabled manager is used.
	ErrManagerDisabled = errors.New("queue manager is disabled")

	// ErrInvalidConcurrency is returned when worker concurrency is below 1.
	ErrInvalidConcurrency = errors.New("concurrency must be at least 1")

	// ErrInvalidPriority is returned when priority is outside the valid range.
	ErrInvalidPriority = errors.New("priority must be between 0 and 100")

	// ErrInvalidBatchSize is returned when a batch dequeue size is below 1.
	ErrInvalidBatchSize = errors.New("batch size must be at least 1")

	// ErrPayloadEmpty is returned when enqueueing an empty payload.
	ErrPayloadEmpty = errors.New("payload cannot be empty")
)
