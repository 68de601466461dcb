package queue_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/pushkit/pkg/queue"
)

func newMessage(priority queue.Priority) queue.Message {
	return queue.Message{
		ID:         uuid.New(),
		Payload:    json.RawMessage(`{"title":"hello"}`),
		Priority:   priority,
		EnqueuedAt: time.Now(),
	}
}

func TestMemoryStorage_PriorityOrdering(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := queue.NewMemoryStorage()

	low := newMessage(1)
	high := newMessage(5)
	mid := newMessage(3)

	require.NoError(t, storage.Enqueue(ctx, low))
	require.NoError(t, storage.Enqueue(ctx, high))
	require.NoError(t, storage.Enqueue(ctx, mid))

	first, err := storage.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, high.ID, first.ID)

	second, err := storage.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, mid.ID, second.ID)

	third, err := storage.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, low.ID, third.ID)

	_, err = storage.Dequeue(ctx)
	require.ErrorIs(t, err, queue.ErrQueueEmpty)
}

func TestMemoryStorage_FIFOAmongEqualPriorities(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := queue.NewMemoryStorage()

	var order []uuid.UUID
	for range 20 {
		msg := newMessage(queue.PriorityNormal)
		order = append(order, msg.ID)
		require.NoError(t, storage.Enqueue(ctx, msg))
	}

	for i, want := range order {
		got, err := storage.Dequeue(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, got.ID, "position %d", i)
	}
}

func TestMemoryStorage_CapacityEnforcement(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := queue.NewMemoryStorage(queue.WithMaxSize(2))

	require.NoError(t, storage.Enqueue(ctx, newMessage(queue.PriorityNormal)))
	require.NoError(t, storage.Enqueue(ctx, newMessage(queue.PriorityNormal)))

	err := storage.Enqueue(ctx, newMessage(queue.PriorityNormal))
	require.ErrorIs(t, err, queue.ErrQueueFull)

	size, err := storage.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, size)

	metrics, err := storage.Metrics(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), metrics.Dropped)
}

func TestMemoryStorage_DequeueBatch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := queue.NewMemoryStorage()

	for i := range 5 {
		require.NoError(t, storage.Enqueue(ctx, newMessage(queue.Priority(i*10))))
	}

	t.Run("invalid batch size", func(t *testing.T) {
		_, err := storage.DequeueBatch(ctx, 0)
		require.ErrorIs(t, err, queue.ErrInvalidBatchSize)
	})

	t.Run("batch respects priority order", func(t *testing.T) {
		batch, err := storage.DequeueBatch(ctx, 3)
		require.NoError(t, err)
		require.Len(t, batch, 3)
		assert.Equal(t, queue.Priority(40), batch[0].Priority)
		assert.Equal(t, queue.Priority(30), batch[1].Priority)
		assert.Equal(t, queue.Priority(20), batch[2].Priority)
	})

	t.Run("batch stops at drain", func(t *testing.T) {
		batch, err := storage.DequeueBatch(ctx, 10)
		require.NoError(t, err)
		assert.Len(t, batch, 2)
	})

	t.Run("empty queue", func(t *testing.T) {
		_, err := storage.DequeueBatch(ctx, 10)
		require.ErrorIs(t, err, queue.ErrQueueEmpty)
	})
}

func TestMemoryStorage_Remove(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := queue.NewMemoryStorage()

	keep := newMessage(queue.PriorityHigh)
	cancel := newMessage(queue.PriorityMax)
	require.NoError(t, storage.Enqueue(ctx, keep))
	require.NoError(t, storage.Enqueue(ctx, cancel))

	require.NoError(t, storage.Remove(ctx, cancel.ID))
	require.ErrorIs(t, storage.Remove(ctx, cancel.ID), queue.ErrMessageNotFound)

	got, err := storage.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, keep.ID, got.ID)
}

func TestMemoryStorage_Settlement(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := queue.NewMemoryStorage()

	msg := newMessage(queue.PriorityNormal)
	require.NoError(t, storage.Enqueue(ctx, msg))

	t.Run("complete requires dequeue", func(t *testing.T) {
		require.ErrorIs(t, storage.Complete(ctx, msg.ID), queue.ErrMessageNotFound)
	})

	got, err := storage.Dequeue(ctx)
	require.NoError(t, err)

	t.Run("fail then retry re-enqueues with attempt count", func(t *testing.T) {
		require.NoError(t, storage.Fail(ctx, got.ID, "unavailable"))
		require.NoError(t, storage.Retry(ctx, got.ID))

		again, err := storage.Dequeue(ctx)
		require.NoError(t, err)
		assert.Equal(t, msg.ID, again.ID)
		assert.Equal(t, 1, again.Attempts)

		require.NoError(t, storage.Complete(ctx, again.ID))

		metrics, err := storage.Metrics(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), metrics.Completed)
		assert.Equal(t, uint64(1), metrics.Failed)
	})
}

func TestMemoryStorage_PauseResume(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := queue.NewMemoryStorage()

	require.NoError(t, storage.Enqueue(ctx, newMessage(queue.PriorityNormal)))
	require.NoError(t, storage.Pause(ctx))

	_, err := storage.Dequeue(ctx)
	require.ErrorIs(t, err, queue.ErrQueuePaused)

	// Enqueueing is unaffected by pause.
	require.NoError(t, storage.Enqueue(ctx, newMessage(queue.PriorityNormal)))

	require.NoError(t, storage.Resume(ctx))
	_, err = storage.Dequeue(ctx)
	require.NoError(t, err)
}

func TestMemoryStorage_Clear(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := queue.NewMemoryStorage()

	for range 5 {
		require.NoError(t, storage.Enqueue(ctx, newMessage(queue.PriorityNormal)))
	}

	require.NoError(t, storage.Clear(ctx))

	size, err := storage.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, size)

	_, err = storage.Dequeue(ctx)
	require.ErrorIs(t, err, queue.ErrQueueEmpty)
}
