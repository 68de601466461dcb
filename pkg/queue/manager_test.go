package queue_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/pushkit/pkg/queue"
	"github.com/dmitrymomot/pushkit/pkg/ratelimit"
	"github.com/dmitrymomot/pushkit/pkg/retry"
)

func managerConfig() queue.Config {
	return queue.Config{
		Enabled:      true,
		Concurrency:  2,
		PollInterval: 5 * time.Millisecond,
		SendTimeout:  time.Second,
	}
}

func noopSend(ctx context.Context, msg queue.Message) error { return nil }

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met within timeout")
}

func TestNewManager(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		storage     queue.Storage
		send        queue.SendFunc
		cfg         queue.Config
		expectError error
	}{
		{
			name:    "valid",
			storage: queue.NewMemoryStorage(),
			send:    noopSend,
			cfg:     managerConfig(),
		},
		{
			name:        "nil storage",
			storage:     nil,
			send:        noopSend,
			cfg:         managerConfig(),
			expectError: queue.ErrStorageNil,
		},
		{
			name:        "nil send func",
			storage:     queue.NewMemoryStorage(),
			send:        nil,
			cfg:         managerConfig(),
			expectError: queue.ErrSendFuncNil,
		},
		{
			name:        "zero concurrency",
			storage:     queue.NewMemoryStorage(),
			send:        noopSend,
			cfg:         queue.Config{Enabled: true, Concurrency: 0},
			expectError: queue.ErrInvalidConcurrency,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			manager, err := queue.NewManager(tt.storage, tt.send, tt.cfg)
			if tt.expectError != nil {
				require.ErrorIs(t, err, tt.expectError)
				assert.Nil(t, manager)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, manager)
		})
	}
}

func TestManager_ProcessesQueuedMessages(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := queue.NewMemoryStorage()

	var processed atomic.Int32
	manager, err := queue.NewManager(storage, func(ctx context.Context, msg queue.Message) error {
		processed.Add(1)
		return nil
	}, managerConfig())
	require.NoError(t, err)

	require.NoError(t, manager.Start(ctx))
	defer manager.Stop()

	for range 10 {
		_, err := manager.Enqueue(ctx, json.RawMessage(`{"title":"hi"}`))
		require.NoError(t, err)
	}

	waitFor(t, 2*time.Second, func() bool { return processed.Load() == 10 })

	metrics, err := storage.Metrics(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), metrics.Completed)
}

func TestManager_Enqueue(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("disabled manager rejects", func(t *testing.T) {
		t.Parallel()

		manager, err := queue.NewManager(queue.NewMemoryStorage(), noopSend, queue.Config{Enabled: false})
		require.NoError(t, err)

		_, err = manager.Enqueue(ctx, json.RawMessage(`{}`))
		require.ErrorIs(t, err, queue.ErrManagerDisabled)
	})

	t.Run("empty payload rejected", func(t *testing.T) {
		t.Parallel()

		manager, err := queue.NewManager(queue.NewMemoryStorage(), noopSend, managerConfig())
		require.NoError(t, err)

		_, err = manager.Enqueue(ctx, nil)
		require.ErrorIs(t, err, queue.ErrPayloadEmpty)
	})

	t.Run("invalid priority rejected", func(t *testing.T) {
		t.Parallel()

		manager, err := queue.NewManager(queue.NewMemoryStorage(), noopSend, managerConfig())
		require.NoError(t, err)

		_, err = manager.Enqueue(ctx, json.RawMessage(`{}`), queue.WithPriority(-1))
		require.ErrorIs(t, err, queue.ErrInvalidPriority)
	})

	t.Run("capacity rejection fires drop hook", func(t *testing.T) {
		t.Parallel()

		var droppedErr error
		var mu sync.Mutex

		storage := queue.NewMemoryStorage(queue.WithMaxSize(1))
		manager, err := queue.NewManager(storage, noopSend, queue.Config{
			Enabled:     true,
			Concurrency: 1,
			// AutoStart off so the first message stays queued.
		}, queue.WithDropHook(func(msg queue.Message, cause error) {
			mu.Lock()
			droppedErr = cause
			mu.Unlock()
		}))
		require.NoError(t, err)

		_, err = manager.Enqueue(ctx, json.RawMessage(`{}`))
		require.NoError(t, err)

		_, err = manager.Enqueue(ctx, json.RawMessage(`{}`))
		require.ErrorIs(t, err, queue.ErrQueueFull)

		mu.Lock()
		defer mu.Unlock()
		require.ErrorIs(t, droppedErr, queue.ErrQueueFull)
	})
}

func TestManager_StopDrainsWorkers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := queue.NewMemoryStorage()

	var processed atomic.Int32
	blocker := make(chan struct{})

	manager, err := queue.NewManager(storage, func(ctx context.Context, msg queue.Message) error {
		<-blocker
		processed.Add(1)
		return nil
	}, managerConfig())
	require.NoError(t, err)

	require.NoError(t, manager.Start(ctx))

	// Two workers pick up two messages; the rest stay queued.
	for range 5 {
		_, err := manager.Enqueue(ctx, json.RawMessage(`{}`))
		require.NoError(t, err)
	}
	waitFor(t, time.Second, func() bool {
		size, _ := storage.Size(ctx)
		return size == 3
	})

	done := make(chan struct{})
	go func() {
		manager.Stop()
		close(done)
	}()

	// Stop must wait for the in-flight sends rather than kill them.
	select {
	case <-done:
		t.Fatal("Stop returned while sends were in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(blocker)
	<-done

	// In-flight messages completed; queued ones were not dequeued.
	assert.Equal(t, int32(2), processed.Load())

	status := manager.Status(ctx)
	assert.False(t, status.Processing)
	assert.Equal(t, 0, status.Workers)
	assert.Equal(t, 3, status.Size)
}

func TestManager_StartIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	manager, err := queue.NewManager(queue.NewMemoryStorage(), noopSend, managerConfig())
	require.NoError(t, err)

	require.NoError(t, manager.Start(ctx))
	require.NoError(t, manager.Start(ctx))
	require.NoError(t, manager.Start(ctx))
	defer manager.Stop()

	waitFor(t, time.Second, func() bool {
		return manager.Status(ctx).Workers == 2
	})

	// Give stray workers a chance to appear if Start ever double-spawned.
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 2, manager.Status(ctx).Workers)
}

func TestManager_PermanentFailureDoesNotCrashWorkers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := queue.NewMemoryStorage()

	permanent := errors.New("invalid device token")
	var processed atomic.Int32
	var dropped atomic.Int32

	executor, err := retry.New(retry.Config{
		Enabled:      true,
		MaxAttempts:  2,
		InitialDelay: time.Millisecond,
		MaxDelay:     time.Millisecond,
		Multiplier:   2,
	})
	require.NoError(t, err)

	manager, err := queue.NewManager(storage, func(ctx context.Context, msg queue.Message) error {
		if processed.Add(1) == 1 {
			return permanent
		}
		return nil
	}, managerConfig(),
		queue.WithManagerRetrier(executor),
		queue.WithDropHook(func(msg queue.Message, cause error) {
			dropped.Add(1)
		}),
	)
	require.NoError(t, err)

	require.NoError(t, manager.Start(ctx))
	defer manager.Stop()

	for range 3 {
		_, err := manager.Enqueue(ctx, json.RawMessage(`{}`))
		require.NoError(t, err)
	}

	// One message fails permanently, the remaining two still complete.
	waitFor(t, 2*time.Second, func() bool {
		metrics, _ := storage.Metrics(ctx)
		return metrics.Completed == 2 && metrics.Failed == 1
	})
	assert.Equal(t, int32(1), dropped.Load())
}

func TestManager_PanickingSendIsIsolated(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := queue.NewMemoryStorage()

	var calls atomic.Int32
	manager, err := queue.NewManager(storage, func(ctx context.Context, msg queue.Message) error {
		if calls.Add(1) == 1 {
			panic("provider bug")
		}
		return nil
	}, managerConfig())
	require.NoError(t, err)

	require.NoError(t, manager.Start(ctx))
	defer manager.Stop()

	for range 2 {
		_, err := manager.Enqueue(ctx, json.RawMessage(`{}`))
		require.NoError(t, err)
	}

	waitFor(t, 2*time.Second, func() bool {
		metrics, _ := storage.Metrics(ctx)
		return metrics.Completed == 1 && metrics.Failed == 1
	})
}

func TestManager_RateLimitWaitHook(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := queue.NewMemoryStorage()

	limiter, err := ratelimit.NewLimiter(ratelimit.Config{
		Enabled:      true,
		MaxPerSecond: 50,
		MaxPerMinute: 10000,
	})
	require.NoError(t, err)

	var waits atomic.Int32
	var processed atomic.Int32

	cfg := managerConfig()
	cfg.Concurrency = 1

	manager, err := queue.NewManager(storage, func(ctx context.Context, msg queue.Message) error {
		processed.Add(1)
		return nil
	}, cfg,
		queue.WithManagerLimiter(limiter),
		queue.WithRateLimitWaitHook(func(msg queue.Message, wait time.Duration) {
			waits.Add(1)
		}),
	)
	require.NoError(t, err)

	require.NoError(t, manager.Start(ctx))
	defer manager.Stop()

	// Burst far beyond the per-second budget to force waiting.
	for range 60 {
		_, err := manager.Enqueue(ctx, json.RawMessage(`{}`))
		require.NoError(t, err)
	}

	waitFor(t, 5*time.Second, func() bool { return processed.Load() == 60 })
	assert.Positive(t, waits.Load())
}

func TestManager_SubTokenLimiterDropsInsteadOfStalling(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := queue.NewMemoryStorage()

	// Half a token per second: a single send can never be admitted, so the
	// worker must settle the message as failed rather than wait forever.
	limiter, err := ratelimit.NewLimiter(ratelimit.Config{
		Enabled:      true,
		MaxPerSecond: 0.5,
		MaxPerMinute: 60,
	})
	require.NoError(t, err)

	var dropped atomic.Int32
	var dropErr atomic.Value

	cfg := managerConfig()
	cfg.Concurrency = 1

	manager, err := queue.NewManager(storage, func(ctx context.Context, msg queue.Message) error {
		return nil
	}, cfg,
		queue.WithManagerLimiter(limiter),
		queue.WithDropHook(func(msg queue.Message, cause error) {
			dropErr.Store(cause)
			dropped.Add(1)
		}),
	)
	require.NoError(t, err)

	require.NoError(t, manager.Start(ctx))
	defer manager.Stop()

	_, err = manager.Enqueue(ctx, json.RawMessage(`{}`))
	require.NoError(t, err)

	waitFor(t, 5*time.Second, func() bool { return dropped.Load() == 1 })

	cause, ok := dropErr.Load().(error)
	require.True(t, ok)
	assert.ErrorIs(t, cause, ratelimit.ErrCountExceedsCapacity)
}

func TestManager_AutoStart(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := queue.NewMemoryStorage()

	var processed atomic.Int32
	cfg := managerConfig()
	cfg.AutoStart = true

	manager, err := queue.NewManager(storage, func(ctx context.Context, msg queue.Message) error {
		processed.Add(1)
		return nil
	}, cfg)
	require.NoError(t, err)
	defer manager.Stop()

	_, err = manager.Enqueue(ctx, json.RawMessage(`{}`))
	require.NoError(t, err)

	waitFor(t, time.Second, func() bool { return processed.Load() == 1 })
	assert.True(t, manager.Status(ctx).Processing)
}

func TestManager_RemoveCancelsPending(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := queue.NewMemoryStorage()

	manager, err := queue.NewManager(storage, noopSend, managerConfig())
	require.NoError(t, err)

	id, err := manager.Enqueue(ctx, json.RawMessage(`{}`))
	require.NoError(t, err)

	require.NoError(t, manager.Remove(ctx, id))

	size, err := storage.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, size)
}
