package ratelimit

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"
)

const defaultBurstMultiplier = 1.5

// Limiter enforces per-second and per-minute admission ceilings
// simultaneously. A request is admitted only when both windows have
// capacity, making the limiter as strict as its tightest window.
type Limiter struct {
	// mu guards both buckets so a single acquisition observes and mutates
	// them atomically. The buckets' own locks are bypassed via the
	// unexported operations.
	mu      sync.Mutex
	second  *TokenBucket
	minute  *TokenBucket
	enabled bool
}

// Status is a read-only snapshot of limiter state.
type Status struct {
	Enabled        bool
	SecondTokens   float64
	SecondCapacity float64
	MinuteTokens   float64
	MinuteCapacity float64
}

// NewLimiter creates a dual-window limiter from the given configuration.
// When AllowBurst is set, bucket capacities are multiplied by
// BurstMultiplier (1.5 when unset); refill rates always reflect the
// sustained ceilings.
func NewLimiter(cfg Config) (*Limiter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if !cfg.Enabled {
		return &Limiter{enabled: false}, nil
	}

	multiplier := 1.0
	if cfg.AllowBurst {
		multiplier = cfg.BurstMultiplier
		if multiplier == 0 {
			multiplier = defaultBurstMultiplier
		}
	}

	return &Limiter{
		second:  NewTokenBucket(cfg.MaxPerSecond*multiplier, cfg.MaxPerSecond/1000),
		minute:  NewTokenBucket(cfg.MaxPerMinute*multiplier, cfg.MaxPerMinute/60000),
		enabled: true,
	}, nil
}

// Enabled reports whether the limiter enforces anything. A disabled
// limiter admits every request immediately.
func (l *Limiter) Enabled() bool {
	return l.enabled
}

// MaxCount returns the largest token count a single acquisition can ever
// admit: the smaller of the two window capacities. Tokens are capped at
// capacity, so a request above this bound never succeeds no matter how
// long the caller waits. A disabled limiter imposes no bound.
func (l *Limiter) MaxCount() float64 {
	if !l.enabled {
		return math.Inf(1)
	}
	return math.Min(l.second.capacity, l.minute.capacity)
}

// Acquire attempts to consume count tokens from both windows. Both wait
// times are computed before any consumption is committed, so a denied
// request never debits one bucket while failing on the other. On denial it
// returns the wait until both windows would admit the request, which is
// the maximum of the two individual waits.
func (l *Limiter) Acquire(count float64) (bool, time.Duration) {
	if !l.enabled {
		return true, 0
	}
	if count <= 0 {
		return true, 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	l.second.refillAt(now)
	l.minute.refillAt(now)

	waitSec := l.second.waitTime(count)
	waitMin := l.minute.waitTime(count)
	if waitSec > 0 || waitMin > 0 {
		return false, maxDuration(waitSec, waitMin)
	}

	l.second.consume(count)
	l.minute.consume(count)
	return true, 0
}

// Wait blocks until count tokens are acquired or the context is cancelled.
// There is no upper bound on the total wait: a saturated limiter blocks
// until capacity frees up, and the caller controls cancellation through
// the context. A count above MaxCount fails immediately instead of
// spinning on an unsatisfiable request.
func (l *Limiter) Wait(ctx context.Context, count float64) error {
	if count > l.MaxCount() {
		return fmt.Errorf("%w: %g tokens requested, at most %g admissible", ErrCountExceedsCapacity, count, l.MaxCount())
	}

	for {
		ok, wait := l.Acquire(count)
		if ok {
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Status returns the current token levels of both windows. Token levels
// are refreshed as a side effect but nothing is consumed.
func (l *Limiter) Status() Status {
	if !l.enabled {
		return Status{Enabled: false}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	l.second.refillAt(now)
	l.minute.refillAt(now)

	return Status{
		Enabled:        true,
		SecondTokens:   l.second.tokens,
		SecondCapacity: l.second.capacity,
		MinuteTokens:   l.minute.tokens,
		MinuteCapacity: l.minute.capacity,
	}
}

func maxDuration(a, b time.Duration) time.Duration {
	if a > b {
		return a
	}
	return b
}
