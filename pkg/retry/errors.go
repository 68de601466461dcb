package retry

import "errors"

var (
	// ErrNilOperation is returned when Do is called with a nil operation.
	ErrNilOperation = errors.New("operation cannot be nil")

	// ErrInvalidMaxAttempts is returned when the attempt budget is below 1.
	ErrInvalidMaxAttempts = errors.New("max attempts must be at least 1")

	// ErrInvalidDelay is returned when a backoff delay is negative.
	ErrInvalidDelay = errors.New("backoff delay cannot be negative")

	// ErrInvalidMultiplier is returned when the backoff multiplier is below 1.
	ErrInvalidMultiplier = errors.New("backoff multiplier must be at least 1")
)
