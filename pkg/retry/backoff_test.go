package retry_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/pushkit/pkg/retry"
)

func TestExponential_Delay(t *testing.T) {
	t.Parallel()

	t.Run("growth capped at max", func(t *testing.T) {
		t.Parallel()

		strategy := retry.Exponential{
			Initial:    time.Second,
			Max:        5 * time.Second,
			Multiplier: 2,
		}

		expected := []time.Duration{
			1000 * time.Millisecond,
			2000 * time.Millisecond,
			4000 * time.Millisecond,
			5000 * time.Millisecond, // capped
		}
		for attempt, want := range expected {
			assert.Equal(t, want, strategy.Delay(attempt), "attempt %d", attempt)
		}
	})

	t.Run("defaults applied for zero values", func(t *testing.T) {
		t.Parallel()

		strategy := retry.Exponential{}
		assert.Equal(t, time.Second, strategy.Delay(0))
		assert.Equal(t, 2*time.Second, strategy.Delay(1))
		assert.Equal(t, 30*time.Second, strategy.Delay(10))
	})

	t.Run("negative attempt treated as zero", func(t *testing.T) {
		t.Parallel()

		strategy := retry.Exponential{Initial: time.Second, Max: time.Minute, Multiplier: 2}
		assert.Equal(t, time.Second, strategy.Delay(-3))
	})

	t.Run("jitter stays within quarter spread", func(t *testing.T) {
		t.Parallel()

		strategy := retry.Exponential{
			Initial:    time.Second,
			Max:        time.Minute,
			Multiplier: 2,
			Jitter:     true,
		}

		for range 100 {
			delay := strategy.Delay(2) // base 4s
			assert.GreaterOrEqual(t, delay, 3*time.Second)
			assert.LessOrEqual(t, delay, 5*time.Second)
		}
	})
}

func TestLinear_Delay(t *testing.T) {
	t.Parallel()

	strategy := retry.Linear{Step: time.Second, Max: 3 * time.Second}
	assert.Equal(t, time.Second, strategy.Delay(0))
	assert.Equal(t, 2*time.Second, strategy.Delay(1))
	assert.Equal(t, 3*time.Second, strategy.Delay(2))
	assert.Equal(t, 3*time.Second, strategy.Delay(9))
}

func TestFixed_Delay(t *testing.T) {
	t.Parallel()

	strategy := retry.Fixed{Interval: 250 * time.Millisecond}
	for attempt := range 5 {
		assert.Equal(t, 250*time.Millisecond, strategy.Delay(attempt))
	}
}
