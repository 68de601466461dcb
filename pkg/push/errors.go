package push

import "errors"

var (
	// ErrProviderRequired indicates New was called without a provider.
	ErrProviderRequired = errors.New("push provider is required")
	// ErrQueueNotConfigured indicates EnqueueSend was called on a client
	// built without a queue.
	ErrQueueNotConfigured = errors.New("push queue is not configured")
)
