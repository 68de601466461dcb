// Package ratelimit provides in-process token bucket rate limiting for
// outbound push delivery.
//
// The package is built around two pieces:
//
//   - TokenBucket: a single self-refilling bucket with burst capacity
//   - Limiter: two buckets enforcing per-second and per-minute ceilings
//     simultaneously
//
// The limiter admits a request only when both windows have capacity, so it
// is always as strict as its tightest window. Consumption is atomic across
// both buckets: a rejected request never debits either bucket.
//
// # Basic Usage
//
//	limiter, err := ratelimit.NewLimiter(ratelimit.Config{
//	    Enabled:      true,
//	    MaxPerSecond: 100,
//	    MaxPerMinute: 3000,
//	})
//	if err != nil {
//	    // Handle error
//	}
//
//	// Non-blocking check
//	if ok, wait := limiter.Acquire(1); !ok {
//	    // Denied; retry after wait
//	}
//
//	// Blocking acquisition
//	if err := limiter.Wait(ctx, 1); err != nil {
//	    // Context cancelled before capacity became available
//	}
//
// # Burst Capacity
//
// With AllowBurst enabled, bucket capacities are multiplied by
// BurstMultiplier (default 1.5), allowing short spikes above the sustained
// rate while the long-run average stays within the configured ceilings.
//
// # Concurrency
//
// All types are safe for concurrent use. Limiter state is process-local
// and is not shared across processes.
package ratelimit
