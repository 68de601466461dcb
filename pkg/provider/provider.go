package provider

import "context"

// Provider sends push notifications through a concrete backend.
type Provider interface {
	// Name returns the provider identifier, e.g. "fcm" or "dev".
	Name() string
	// Send delivers a single notification. A non-nil error describes why
	// delivery failed; *Error values carry the stable code and retryability.
	Send(ctx context.Context, n Notification) (SendResult, error)
	// SendBulk delivers a batch, honoring the provider's MaxBatchSize.
	// Individual failures are reported per-notification in the result; the
	// returned error is reserved for failures affecting the whole batch.
	SendBulk(ctx context.Context, ns []Notification) (BulkResult, error)
	// Capabilities describes what this backend supports.
	Capabilities() Capabilities
}

// Capabilities describes provider features the orchestration layer adapts to.
type Capabilities struct {
	MaxBatchSize   int
	SupportsTopics bool
	SupportsImages bool
}

// SendResult is the outcome of a single delivery attempt.
type SendResult struct {
	// MessageID is the provider-assigned identifier, empty on failure.
	MessageID string
	Success   bool
	// Err preserves the failure cause when Success is false.
	Err error
}

// BulkResult aggregates per-notification outcomes of a batch send.
type BulkResult struct {
	Results      []SendResult
	SuccessCount int
	FailureCount int
}
