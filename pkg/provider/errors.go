package provider

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidNotification indicates the notification failed validation
	// before it reached the provider.
	ErrInvalidNotification = errors.New("invalid notification")
	// ErrProviderNotFound indicates no factory is registered under the
	// requested identifier.
	ErrProviderNotFound = errors.New("provider not found")
	// ErrProviderAlreadyRegistered indicates a duplicate Register call for
	// the same identifier.
	ErrProviderAlreadyRegistered = errors.New("provider already registered")
	// ErrNilFactory indicates Register was called with a nil factory.
	ErrNilFactory = errors.New("provider factory cannot be nil")
)

// Stable error codes shared by all provider implementations.
const (
	CodeInvalidMessage     = "invalid_message"
	CodeInvalidCredentials = "invalid_credentials"
	CodeUnregistered       = "unregistered"
	CodeRateLimited        = "rate_limited"
	CodeUnavailable        = "unavailable"
	CodeInternal           = "internal"
	CodeTimeout            = "timeout"
)

// Error is a structured delivery failure. Code is stable across providers,
// IsRetryable tells retry machinery whether another attempt can succeed, and
// Err preserves the underlying cause.
type Error struct {
	Code        string
	Message     string
	IsRetryable bool
	Err         error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("push provider error [%s]: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("push provider error [%s]: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure is transient. It satisfies the
// interface the retry classifier probes with errors.As.
func (e *Error) Retryable() bool {
	return e.IsRetryable
}

// NewError creates a structured provider error.
func NewError(code, message string, retryable bool, cause error) *Error {
	return &Error{
		Code:        code,
		Message:     message,
		IsRetryable: retryable,
		Err:         cause,
	}
}
