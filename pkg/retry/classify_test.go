package retry_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/pushkit/pkg/retry"
)

type flaggedError struct {
	retryable bool
}

func (e flaggedError) Error() string   { return "flagged" }
func (e flaggedError) Retryable() bool { return e.retryable }

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestIsRetryable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil error", err: nil, want: false},
		{name: "plain error", err: errors.New("malformed message"), want: false},
		{name: "context cancelled", err: context.Canceled, want: false},
		{name: "wrapped cancellation", err: fmt.Errorf("send: %w", context.Canceled), want: false},
		{name: "deadline exceeded", err: context.DeadlineExceeded, want: true},
		{name: "net timeout", err: timeoutError{}, want: true},
		{name: "dns failure", err: &net.DNSError{Err: "no such host", Name: "fcm.googleapis.com"}, want: true},
		{name: "connection reset", err: fmt.Errorf("write: %w", syscall.ECONNRESET), want: true},
		{name: "connection refused", err: syscall.ECONNREFUSED, want: true},
		{name: "unexpected eof", err: io.ErrUnexpectedEOF, want: true},
		{name: "flagged retryable", err: flaggedError{retryable: true}, want: true},
		{name: "flagged permanent", err: flaggedError{retryable: false}, want: false},
		{name: "wrapped flagged permanent", err: fmt.Errorf("send: %w", flaggedError{retryable: false}), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, retry.IsRetryable(tt.err))
		})
	}
}

func TestRetryableStatus(t *testing.T) {
	t.Parallel()

	retryable := []int{408, 425, 429, 500, 502, 503, 504}
	for _, status := range retryable {
		assert.True(t, retry.RetryableStatus(status), "status %d", status)
	}

	permanent := []int{200, 204, 301, 400, 401, 403, 404, 422}
	for _, status := range permanent {
		assert.False(t, retry.RetryableStatus(status), "status %d", status)
	}
}
