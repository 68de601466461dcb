// Package retry drives repeated invocation of failing operations with
// exponential backoff and retryability classification.
//
// The Executor wraps an operation and re-invokes it until it succeeds, the
// configured attempt budget is exhausted, or the error is classified as
// non-retryable. Backoff between attempts grows multiplicatively and can
// be jittered to avoid synchronized retry storms across concurrent callers.
//
// # Basic Usage
//
//	executor, err := retry.New(retry.Config{
//	    Enabled:      true,
//	    MaxAttempts:  3,
//	    InitialDelay: time.Second,
//	    MaxDelay:     30 * time.Second,
//	    Multiplier:   2,
//	    Jitter:       true,
//	})
//	if err != nil {
//	    // Handle error
//	}
//
//	err = executor.Do(ctx, func(ctx context.Context) error {
//	    return client.Deliver(ctx, msg)
//	})
//
// # Retryability
//
// By default errors are classified by IsRetryable: network timeouts,
// connection resets, DNS failures, and errors carrying a Retryable() bool
// method reporting true are retried; everything else fails immediately.
// A custom classifier can be supplied with WithClassifier.
//
// # Observability
//
// WithOnRetry installs a hook invoked before each backoff sleep. Hook
// panics are recovered and logged so observability code can never
// destabilize the retry loop.
package retry
