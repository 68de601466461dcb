package queue

import (
	"container/heap"
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryStorage is the volatile in-process queue backend. Messages live in
// a priority heap: higher priority first, and a monotonically increasing
// sequence number keeps FIFO order among equal priorities regardless of
// heap internals.
type MemoryStorage struct {
	mu         sync.Mutex
	pending    messageHeap
	byID       map[uuid.UUID]*heapItem
	processing map[uuid.UUID]*Message
	failed     map[uuid.UUID]*Message
	maxSize    int
	paused     bool
	seq        uint64

	enqueued  uint64
	dequeued  uint64
	completed uint64
	failures  uint64
	dropped   uint64
}

// MemoryOption configures a MemoryStorage.
type MemoryOption func(*MemoryStorage)

// WithMaxSize caps the pending set; 0 means unbounded.
func WithMaxSize(n int) MemoryOption {
	return func(ms *MemoryStorage) {
		if n >= 0 {
			ms.maxSize = n
		}
	}
}

// NewMemoryStorage creates an unbounded in-memory queue backend.
func NewMemoryStorage(opts ...MemoryOption) *MemoryStorage {
	ms := &MemoryStorage{
		byID:       make(map[uuid.UUID]*heapItem),
		processing: make(map[uuid.UUID]*Message),
		failed:     make(map[uuid.UUID]*Message),
	}

	for _, opt := range opts {
		opt(ms)
	}

	return ms
}

// Enqueue implements Storage.
func (ms *MemoryStorage) Enqueue(ctx context.Context, msg Message) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.maxSize > 0 && ms.pending.Len() >= ms.maxSize {
		ms.dropped++
		return ErrQueueFull
	}

	ms.seq++
	item := &heapItem{msg: msg, seq: ms.seq}
	heap.Push(&ms.pending, item)
	ms.byID[msg.ID] = item
	ms.enqueued++

	return nil
}

// Dequeue implements Storage.
func (ms *MemoryStorage) Dequeue(ctx context.Context) (*Message, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	return ms.dequeueLocked()
}

// DequeueBatch implements Storage.
func (ms *MemoryStorage) DequeueBatch(ctx context.Context, n int) ([]Message, error) {
	if n < 1 {
		return nil, ErrInvalidBatchSize
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	batch := make([]Message, 0, n)
	for len(batch) < n {
		msg, err := ms.dequeueLocked()
		if err != nil {
			if len(batch) > 0 {
				return batch, nil
			}
			return nil, err
		}
		batch = append(batch, *msg)
	}

	return batch, nil
}

// Remove implements Storage. Only not-yet-dequeued messages can be removed.
func (ms *MemoryStorage) Remove(ctx context.Context, id uuid.UUID) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	item, ok := ms.byID[id]
	if !ok {
		return ErrMessageNotFound
	}

	heap.Remove(&ms.pending, item.index)
	delete(ms.byID, id)

	return nil
}

// Complete implements Storage.
func (ms *MemoryStorage) Complete(ctx context.Context, id uuid.UUID) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, ok := ms.processing[id]; !ok {
		return ErrMessageNotFound
	}

	delete(ms.processing, id)
	ms.completed++

	return nil
}

// Fail implements Storage. The message is kept in the failed set so it can
// be inspected or returned to the queue with Retry.
func (ms *MemoryStorage) Fail(ctx context.Context, id uuid.UUID, errMsg string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	msg, ok := ms.processing[id]
	if !ok {
		return ErrMessageNotFound
	}

	delete(ms.processing, id)
	ms.failed[id] = msg
	ms.failures++

	return nil
}

// Retry implements Storage.
func (ms *MemoryStorage) Retry(ctx context.Context, id uuid.UUID) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	msg, ok := ms.failed[id]
	if !ok {
		return ErrMessageNotFound
	}

	if ms.maxSize > 0 && ms.pending.Len() >= ms.maxSize {
		return ErrQueueFull
	}

	delete(ms.failed, id)
	msg.Attempts++

	ms.seq++
	item := &heapItem{msg: *msg, seq: ms.seq}
	heap.Push(&ms.pending, item)
	ms.byID[msg.ID] = item

	return nil
}

// Size implements Storage.
func (ms *MemoryStorage) Size(ctx context.Context) (int, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	return ms.pending.Len(), nil
}

// Clear implements Storage.
func (ms *MemoryStorage) Clear(ctx context.Context) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.pending = nil
	ms.byID = make(map[uuid.UUID]*heapItem)

	return nil
}

// Pause implements Storage.
func (ms *MemoryStorage) Pause(ctx context.Context) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.paused = true
	return nil
}

// Resume implements Storage.
func (ms *MemoryStorage) Resume(ctx context.Context) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.paused = false
	return nil
}

// Metrics implements Storage.
func (ms *MemoryStorage) Metrics(ctx context.Context) (Metrics, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	return Metrics{
		Size:      ms.pending.Len(),
		Paused:    ms.paused,
		Enqueued:  ms.enqueued,
		Dequeued:  ms.dequeued,
		Completed: ms.completed,
		Failed:    ms.failures,
		Dropped:   ms.dropped,
	}, nil
}

// dequeueLocked pops the highest-priority message and moves it to the
// processing set. Callers must hold the mutex.
func (ms *MemoryStorage) dequeueLocked() (*Message, error) {
	if ms.paused {
		return nil, ErrQueuePaused
	}
	if ms.pending.Len() == 0 {
		return nil, ErrQueueEmpty
	}

	item := heap.Pop(&ms.pending).(*heapItem)
	delete(ms.byID, item.msg.ID)

	msg := item.msg
	ms.processing[msg.ID] = &msg
	ms.dequeued++

	out := msg
	return &out, nil
}

// heapItem wraps a message with its heap bookkeeping.
type heapItem struct {
	msg   Message
	seq   uint64
	index int
}

// messageHeap orders by descending priority, then ascending sequence so
// equal priorities keep their insertion order.
type messageHeap []*heapItem

func (h messageHeap) Len() int { return len(h) }

func (h messageHeap) Less(i, j int) bool {
	if h[i].msg.Priority != h[j].msg.Priority {
		return h[i].msg.Priority > h[j].msg.Priority
	}
	return h[i].seq < h[j].seq
}

func (h messageHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *messageHeap) Push(x any) {
	item := x.(*heapItem)
	item.index = len(*h)
	*h = append(*h, item)
}

func (h *messageHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*h = old[:n-1]
	return item
}
