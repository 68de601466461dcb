package ratelimit

import (
	"math"
	"sync"
	"time"
)

// TokenBucket is a single self-refilling token bucket. Tokens accumulate
// continuously at a fixed rate up to the bucket capacity; each admitted
// operation debits the bucket.
//
// Refill happens lazily on every operation rather than via a background
// timer: the elapsed time since the last operation is converted into
// tokens and capped at capacity. Granularity therefore equals call
// frequency, which is sufficient for rate limiting outbound sends.
type TokenBucket struct {
	mu          sync.Mutex
	capacity    float64
	refillPerMs float64
	tokens      float64
	lastRefill  time.Time
}

// NewTokenBucket creates a bucket that starts full.
// Capacity is the maximum token level; refillPerMs is the refill rate in
// tokens per millisecond.
func NewTokenBucket(capacity, refillPerMs float64) *TokenBucket {
	return &TokenBucket{
		capacity:    capacity,
		refillPerMs: refillPerMs,
		tokens:      capacity,
		lastRefill:  time.Now(),
	}
}

// TryConsume deducts n tokens if available after refill. It returns false
// and leaves the bucket untouched when fewer than n tokens are available.
// It never blocks.
func (b *TokenBucket) TryConsume(n float64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refillAt(time.Now())
	return b.consume(n)
}

// WaitTime reports how long until n tokens become available, or 0 if they
// already are. It does not consume anything.
func (b *TokenBucket) WaitTime(n float64) time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refillAt(time.Now())
	return b.waitTime(n)
}

// Tokens returns the current token level after refill.
func (b *TokenBucket) Tokens() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refillAt(time.Now())
	return b.tokens
}

// Capacity returns the maximum token level.
func (b *TokenBucket) Capacity() float64 {
	return b.capacity
}

// refillAt credits tokens for the time elapsed since the last refill and
// advances the timestamp. Callers must hold the mutex.
func (b *TokenBucket) refillAt(now time.Time) {
	elapsed := now.Sub(b.lastRefill)
	if elapsed <= 0 {
		return
	}

	// Fractional milliseconds matter here: whole-ms truncation would lose
	// time under sub-millisecond call spacing.
	elapsedMs := float64(elapsed) / float64(time.Millisecond)
	b.tokens = math.Min(b.capacity, b.tokens+elapsedMs*b.refillPerMs)
	b.lastRefill = now
}

// consume debits n tokens if available. Callers must hold the mutex and
// must have refilled first.
func (b *TokenBucket) consume(n float64) bool {
	if b.tokens < n {
		return false
	}
	b.tokens -= n
	return true
}

// waitTime computes the delay until n tokens are available based on the
// current level and refill rate. Callers must hold the mutex and must have
// refilled first.
func (b *TokenBucket) waitTime(n float64) time.Duration {
	if b.tokens >= n {
		return 0
	}
	if b.refillPerMs <= 0 {
		// A bucket that never refills can never satisfy the request;
		// report the longest representable wait instead of dividing by zero.
		return time.Duration(math.MaxInt64)
	}

	ms := math.Ceil((n - b.tokens) / b.refillPerMs)
	return time.Duration(ms) * time.Millisecond
}
