package retry

import (
	"math"
	"math/rand/v2"
	"time"
)

// jitterFactor is the relative spread applied around a jittered delay.
const jitterFactor = 0.25

// Strategy computes the delay before a retry attempt.
// Implementations must be safe for concurrent use.
type Strategy interface {
	// Delay returns how long to wait after the given failed attempt.
	// Attempt is zero-based: attempt 0 is the initial call, so the first
	// retry waits Delay(0).
	Delay(attempt int) time.Duration
}

// Exponential grows the delay multiplicatively with the attempt number,
// capped at Max. With Jitter enabled the capped delay is perturbed
// uniformly by ±25% to prevent coordinated retry storms.
type Exponential struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	Jitter     bool
}

// Delay returns min(Initial * Multiplier^attempt, Max), jittered when enabled.
func (e Exponential) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	initial := e.Initial
	if initial == 0 {
		initial = time.Second
	}

	maxDelay := e.Max
	if maxDelay == 0 {
		maxDelay = 30 * time.Second
	}

	multiplier := e.Multiplier
	if multiplier == 0 {
		multiplier = 2
	}

	delay := float64(initial) * math.Pow(multiplier, float64(attempt))
	if delay > float64(maxDelay) {
		delay = float64(maxDelay)
	}

	if e.Jitter {
		delay *= 1 + (rand.Float64()*2-1)*jitterFactor
		if delay < 0 {
			delay = 0
		}
	}

	return time.Duration(math.Floor(delay))
}

// Linear increases the delay by a fixed step each attempt, capped at Max.
type Linear struct {
	Step time.Duration
	Max  time.Duration
}

// Delay returns min(Step * (attempt+1), Max).
func (l Linear) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	step := l.Step
	if step == 0 {
		step = time.Second
	}

	delay := step * time.Duration(attempt+1)
	if l.Max > 0 && delay > l.Max {
		return l.Max
	}
	return delay
}

// Fixed always waits the same interval between attempts.
type Fixed struct {
	Interval time.Duration
}

// Delay returns the fixed interval regardless of attempt number.
func (f Fixed) Delay(_ int) time.Duration {
	return f.Interval
}
