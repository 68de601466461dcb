package ratelimit_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/pushkit/pkg/ratelimit"
)

func TestTokenBucket_TryConsume(t *testing.T) {
	t.Parallel()

	t.Run("starts full", func(t *testing.T) {
		t.Parallel()

		bucket := ratelimit.NewTokenBucket(10, 0.001)
		assert.InDelta(t, 10, bucket.Tokens(), 0.1)
		assert.True(t, bucket.TryConsume(10))
	})

	t.Run("denies when insufficient tokens", func(t *testing.T) {
		t.Parallel()

		// Slow refill (1 token/s) so the drained state is observable.
		bucket := ratelimit.NewTokenBucket(10, 0.001)
		require.True(t, bucket.TryConsume(10))

		assert.False(t, bucket.TryConsume(1))
	})

	t.Run("denial does not mutate the bucket", func(t *testing.T) {
		t.Parallel()

		bucket := ratelimit.NewTokenBucket(10, 0.001)
		require.True(t, bucket.TryConsume(8))

		before := bucket.Tokens()
		require.False(t, bucket.TryConsume(5))
		assert.InDelta(t, before, bucket.Tokens(), 0.1)
	})

	t.Run("partial consumption", func(t *testing.T) {
		t.Parallel()

		bucket := ratelimit.NewTokenBucket(10, 0.001)
		require.True(t, bucket.TryConsume(4))
		require.True(t, bucket.TryConsume(4))
		require.True(t, bucket.TryConsume(2))
		assert.False(t, bucket.TryConsume(1))
	})
}

func TestTokenBucket_WaitTime(t *testing.T) {
	t.Parallel()

	t.Run("zero when tokens available", func(t *testing.T) {
		t.Parallel()

		bucket := ratelimit.NewTokenBucket(10, 0.001)
		assert.Equal(t, time.Duration(0), bucket.WaitTime(5))
	})

	t.Run("proportional to deficit and refill rate", func(t *testing.T) {
		t.Parallel()

		// 0.01 tokens/ms: one token takes 100ms to accumulate.
		bucket := ratelimit.NewTokenBucket(10, 0.01)
		require.True(t, bucket.TryConsume(10))

		wait := bucket.WaitTime(1)
		assert.Greater(t, wait, time.Duration(0))
		assert.InDelta(t, float64(100*time.Millisecond), float64(wait), float64(20*time.Millisecond))
		assert.False(t, bucket.TryConsume(1))
	})
}

func TestTokenBucket_Refill(t *testing.T) {
	t.Parallel()

	t.Run("refills over time", func(t *testing.T) {
		t.Parallel()

		// 0.1 tokens/ms: 50ms restores ~5 tokens.
		bucket := ratelimit.NewTokenBucket(10, 0.1)
		require.True(t, bucket.TryConsume(10))
		require.False(t, bucket.TryConsume(1))

		time.Sleep(60 * time.Millisecond)
		assert.True(t, bucket.TryConsume(1))
	})

	t.Run("refill capped at capacity", func(t *testing.T) {
		t.Parallel()

		bucket := ratelimit.NewTokenBucket(5, 1)
		time.Sleep(20 * time.Millisecond)

		assert.InDelta(t, 5, bucket.Tokens(), 0.1)
		assert.Equal(t, 5.0, bucket.Capacity())
	})
}
