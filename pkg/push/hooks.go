package push

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/pushkit/pkg/queue"
	"github.com/dmitrymomot/pushkit/pkg/retry"
)

// Hooks are optional callbacks fired around delivery lifecycle events.
// All fields may be nil. Every invocation is panic-isolated: a panicking
// hook is logged and never disturbs delivery.
type Hooks struct {
	// OnSendStart fires before a direct send attempt.
	OnSendStart func(n Notification)
	// OnSendSuccess fires after a successful direct send.
	OnSendSuccess func(n Notification, res SendResult)
	// OnSendFailure fires when a direct send fails after all retries.
	OnSendFailure func(n Notification, err error)
	// OnRetry fires before each re-attempt of a failed send.
	OnRetry func(a retry.Attempt)
	// OnRateLimitWait fires when a send is delayed by the rate limiter.
	OnRateLimitWait func(n Notification, wait time.Duration)
	// OnDrop fires when a queued message is dropped (capacity or
	// exhausted delivery).
	OnDrop func(msg queue.Message, err error)
}

// safeHook runs fn shielded from panics.
func safeHook(logger *slog.Logger, name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("push hook panicked", "hook", name, "panic", r)
		}
	}()
	fn()
}

func (h Hooks) sendStart(logger *slog.Logger, n Notification) {
	if h.OnSendStart != nil {
		safeHook(logger, "OnSendStart", func() { h.OnSendStart(n) })
	}
}

func (h Hooks) sendSuccess(logger *slog.Logger, n Notification, res SendResult) {
	if h.OnSendSuccess != nil {
		safeHook(logger, "OnSendSuccess", func() { h.OnSendSuccess(n, res) })
	}
}

func (h Hooks) sendFailure(logger *slog.Logger, n Notification, err error) {
	if h.OnSendFailure != nil {
		safeHook(logger, "OnSendFailure", func() { h.OnSendFailure(n, err) })
	}
}

func (h Hooks) retryAttempt(logger *slog.Logger, a retry.Attempt) {
	if h.OnRetry != nil {
		safeHook(logger, "OnRetry", func() { h.OnRetry(a) })
	}
}

func (h Hooks) rateLimitWait(logger *slog.Logger, n Notification, wait time.Duration) {
	if h.OnRateLimitWait != nil {
		safeHook(logger, "OnRateLimitWait", func() { h.OnRateLimitWait(n, wait) })
	}
}
