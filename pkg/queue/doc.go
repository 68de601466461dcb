// Package queue provides a priority queue for pending push sends and a
// worker pool that drains it through rate limiting and retries.
//
// # Architecture
//
// The package is split along a narrow storage contract:
//
//   - Storage: the adapter contract every queue backend satisfies
//   - MemoryStorage: the volatile in-process reference backend (priority
//     heap with FIFO ordering among equal priorities)
//   - RedisStorage, PostgresStorage, MongoStorage: persistent backends
//   - Manager: a fixed pool of workers pulling from a Storage and driving
//     sends through the shared rate limiter and retry executor
//
// # Basic Usage
//
//	storage := queue.NewMemoryStorage(queue.WithMaxSize(10_000))
//
//	manager, err := queue.NewManager(storage, sendFunc, queue.Config{
//	    Enabled:     true,
//	    Concurrency: 5,
//	}, queue.WithManagerLimiter(limiter), queue.WithManagerRetrier(executor))
//	if err != nil {
//	    // Handle error
//	}
//
//	if err := manager.Start(ctx); err != nil {
//	    // Handle error
//	}
//	defer manager.Stop()
//
//	id, err := manager.Enqueue(ctx, payload, queue.WithPriority(queue.PriorityHigh))
//
// # Ordering
//
// Higher-priority messages are always dequeued before lower-priority ones
// present at dequeue time; equal priorities preserve insertion order via a
// monotonically increasing sequence number. With more than one worker
// there is no global completion order across the pipeline.
//
// # Failure Handling
//
// A message whose send fails permanently (retries exhausted or the error
// is non-retryable) is recorded as failed, reported through the drop hook,
// and never crashes the worker loop. Queue-capacity rejections surface
// ErrQueueFull synchronously to the enqueue caller.
package queue
