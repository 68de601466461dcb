package retry

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"
)

// retryable is implemented by structured errors that carry their own
// retryability decision, such as provider errors.
type retryable interface {
	Retryable() bool
}

// IsRetryable reports whether an error is worth retrying.
//
// Errors that explicitly implement Retryable() bool decide for themselves.
// Otherwise transient network conditions are retried: timeouts, connection
// resets and refusals, DNS failures, and truncated responses. Context
// cancellation is never retried because it means the caller gave up.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) {
		return false
	}

	var r retryable
	if errors.As(err, &r) {
		return r.Retryable()
	}

	// Attempt-scoped timeout; the next attempt gets a fresh deadline.
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}

	if errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	return false
}

// RetryableStatus reports whether an HTTP status code represents a
// transient condition. Most 4xx codes indicate requests that will not
// change on retry; 408, 425, and 429 are timing or rate-limit conditions
// that resolve on their own, as do all 5xx codes.
func RetryableStatus(status int) bool {
	if status >= 400 && status < 500 {
		switch status {
		case 408, 425, 429:
			return true
		default:
			return false
		}
	}
	return status >= 500
}
