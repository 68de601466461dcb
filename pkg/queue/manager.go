package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/pushkit/pkg/ratelimit"
	"github.com/dmitrymomot/pushkit/pkg/retry"
)

// SendFunc delivers one dequeued message. The manager converts any
// returned error into the configured retry and drop handling.
type SendFunc func(ctx context.Context, msg Message) error

// Manager bridges a Storage to a provider send function through a fixed
// pool of workers. It holds (but does not own) the shared rate limiter and
// retry executor supplied at construction.
type Manager struct {
	storage Storage
	send    SendFunc
	limiter *ratelimit.Limiter
	retrier *retry.Executor
	cfg     Config
	logger  *slog.Logger

	onDrop func(Message, error)
	onWait func(Message, time.Duration)

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running atomic.Bool
	workers atomic.Int32
}

// Status reports the manager's runtime state.
type Status struct {
	Size       int  `json:"size"`
	Processing bool `json:"processing"`
	Workers    int  `json:"workers"`
	Enabled    bool `json:"enabled"`
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithManagerLimiter sets the shared rate limiter applied before each send.
func WithManagerLimiter(limiter *ratelimit.Limiter) ManagerOption {
	return func(m *Manager) {
		m.limiter = limiter
	}
}

// WithManagerRetrier sets the shared retry executor driving each send.
func WithManagerRetrier(retrier *retry.Executor) ManagerOption {
	return func(m *Manager) {
		m.retrier = retrier
	}
}

// WithManagerLogger sets the logger.
func WithManagerLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithDropHook installs a callback fired when a message is permanently
// discarded: capacity rejection at enqueue or send failure surviving
// retries. The hook is panic-isolated.
func WithDropHook(fn func(Message, error)) ManagerOption {
	return func(m *Manager) {
		m.onDrop = fn
	}
}

// WithRateLimitWaitHook installs a callback fired each time a worker has
// to wait for rate-limit capacity. The hook is panic-isolated.
func WithRateLimitWaitHook(fn func(Message, time.Duration)) ManagerOption {
	return func(m *Manager) {
		m.onWait = fn
	}
}

// NewManager creates a queue manager over the given storage.
func NewManager(storage Storage, send SendFunc, cfg Config, opts ...ManagerOption) (*Manager, error) {
	if storage == nil {
		return nil, ErrStorageNil
	}
	if send == nil {
		return nil, ErrSendFuncNil
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 100 * time.Millisecond
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = time.Minute
	}

	m := &Manager{
		storage: storage,
		send:    send,
		cfg:     cfg,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m, nil
}

// EnqueueOption is a functional option for the Enqueue method.
type EnqueueOption func(*enqueueOptions)

type enqueueOptions struct {
	priority Priority
	attempts int
}

// WithPriority sets the message priority (0-100, higher served first).
func WithPriority(priority Priority) EnqueueOption {
	return func(o *enqueueOptions) {
		o.priority = priority
	}
}

// WithAttempts seeds the queue-level attempt counter, for callers
// re-enqueueing a message they track themselves.
func WithAttempts(n int) EnqueueOption {
	return func(o *enqueueOptions) {
		if n > 0 {
			o.attempts = n
		}
	}
}

// Enqueue adds a payload to the queue and returns the message id for later
// cancellation. A full queue surfaces ErrQueueFull to the caller and fires
// the drop hook. When AutoStart is configured the worker pool is started
// on first use.
func (m *Manager) Enqueue(ctx context.Context, payload json.RawMessage, opts ...EnqueueOption) (uuid.UUID, error) {
	if !m.cfg.Enabled {
		return uuid.Nil, ErrManagerDisabled
	}
	if len(payload) == 0 {
		return uuid.Nil, ErrPayloadEmpty
	}

	options := &enqueueOptions{priority: PriorityDefault}
	for _, opt := range opts {
		opt(options)
	}
	if !options.priority.Valid() {
		return uuid.Nil, ErrInvalidPriority
	}

	msg := Message{
		ID:         uuid.New(),
		Payload:    payload,
		Priority:   options.priority,
		Attempts:   options.attempts,
		EnqueuedAt: time.Now(),
	}

	if err := m.storage.Enqueue(ctx, msg); err != nil {
		if errors.Is(err, ErrQueueFull) {
			m.notifyDrop(msg, err)
		}
		return uuid.Nil, err
	}

	if m.cfg.AutoStart && !m.running.Load() {
		_ = m.Start(context.Background())
	}

	return msg.ID, nil
}

// Remove cancels a not-yet-dequeued message. In-flight sends are not
// cancellable; they run to their retry-exhausted conclusion.
func (m *Manager) Remove(ctx context.Context, id uuid.UUID) error {
	return m.storage.Remove(ctx, id)
}

// Pause stops workers from dequeueing without stopping the pool.
func (m *Manager) Pause(ctx context.Context) error {
	return m.storage.Pause(ctx)
}

// Resume re-enables dequeueing after Pause.
func (m *Manager) Resume(ctx context.Context) error {
	return m.storage.Resume(ctx)
}

// Start spawns the worker pool. It is idempotent: calling Start on a
// running manager is a no-op and never exceeds the configured concurrency.
func (m *Manager) Start(ctx context.Context) error {
	if !m.cfg.Enabled {
		return ErrManagerDisabled
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running.Load() {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running.Store(true)

	for i := range m.cfg.Concurrency {
		m.wg.Add(1)
		m.workers.Add(1)
		go m.worker(runCtx, i)
	}

	m.logger.Info("queue manager started",
		slog.Int("concurrency", m.cfg.Concurrency),
		slog.Duration("poll_interval", m.cfg.PollInterval))

	return nil
}

// Stop flips the processing flag and waits for all in-flight workers to
// finish their current message. Workers are never killed mid-send.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running.Load() {
		m.mu.Unlock()
		return
	}
	m.running.Store(false)
	cancel := m.cancel
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()

	m.logger.Info("queue manager stopped")
}

// Status reports queue size and worker-pool state.
func (m *Manager) Status(ctx context.Context) Status {
	size, err := m.storage.Size(ctx)
	if err != nil {
		m.logger.Error("failed to read queue size", slog.String("error", err.Error()))
	}

	return Status{
		Size:       size,
		Processing: m.running.Load(),
		Workers:    int(m.workers.Load()),
		Enabled:    m.cfg.Enabled,
	}
}

// worker is one pool loop: dequeue, process, idle-wait when the queue is
// empty. The poll interval decouples workers from queue activity so an
// empty queue never busy-spins.
func (m *Manager) worker(ctx context.Context, id int) {
	defer m.wg.Done()
	defer m.workers.Add(-1)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msg, err := m.storage.Dequeue(ctx)
		if err != nil {
			if !errors.Is(err, ErrQueueEmpty) && !errors.Is(err, ErrQueuePaused) {
				m.logger.Error("dequeue failed",
					slog.Int("worker", id),
					slog.String("error", err.Error()))
			}
			m.idle(ctx)
			continue
		}

		m.process(ctx, *msg)
	}
}

// idle sleeps one poll interval or until shutdown.
func (m *Manager) idle(ctx context.Context) {
	timer := time.NewTimer(m.cfg.PollInterval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// process drives one message through rate limiting, retries, and
// settlement. The send runs under its own timeout detached from the pool
// context so graceful shutdown lets in-flight sends complete. A permanent
// failure is settled and reported via the drop hook; it never escapes the
// worker loop.
func (m *Manager) process(ctx context.Context, msg Message) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("send panicked",
				slog.String("message_id", msg.ID.String()),
				slog.Any("panic", r))
			m.settleFailure(msg, errors.New("panic during send"))
		}
	}()

	if err := m.acquireRateLimit(ctx, msg); err != nil {
		// Shutdown while waiting, or capacity the limiter can never grant;
		// the message was already dequeued, so settle it as failed rather
		// than losing it silently.
		m.settleFailure(msg, err)
		return
	}

	sendCtx, cancel := context.WithTimeout(context.Background(), m.cfg.SendTimeout)
	defer cancel()

	op := func(ctx context.Context) error {
		return m.send(ctx, msg)
	}

	var err error
	if m.retrier != nil {
		err = m.retrier.Do(sendCtx, op)
	} else {
		err = op(sendCtx)
	}

	if err != nil {
		m.logger.Error("message dropped after failed delivery",
			slog.String("message_id", msg.ID.String()),
			slog.Int("priority", int(msg.Priority)),
			slog.String("error", err.Error()))
		m.settleFailure(msg, err)
		return
	}

	if err := m.storage.Complete(context.Background(), msg.ID); err != nil {
		m.logger.Error("failed to settle completed message",
			slog.String("message_id", msg.ID.String()),
			slog.String("error", err.Error()))
	}
}

// acquireRateLimit blocks until the shared limiter admits one send,
// firing the wait hook before each sleep. Only pool shutdown interrupts
// the wait.
func (m *Manager) acquireRateLimit(ctx context.Context, msg Message) error {
	if m.limiter == nil {
		return nil
	}

	if 1 > m.limiter.MaxCount() {
		return fmt.Errorf("%w: limiter admits fewer than one token", ratelimit.ErrCountExceedsCapacity)
	}

	for {
		ok, wait := m.limiter.Acquire(1)
		if ok {
			return nil
		}

		m.notifyWait(msg, wait)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// settleFailure records the failure in storage and fires the drop hook.
func (m *Manager) settleFailure(msg Message, cause error) {
	if err := m.storage.Fail(context.Background(), msg.ID, cause.Error()); err != nil {
		m.logger.Error("failed to settle failed message",
			slog.String("message_id", msg.ID.String()),
			slog.String("error", err.Error()))
	}
	m.notifyDrop(msg, cause)
}

func (m *Manager) notifyDrop(msg Message, cause error) {
	if m.onDrop == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("drop hook panicked",
				slog.String("message_id", msg.ID.String()),
				slog.Any("panic", r))
		}
	}()

	m.onDrop(msg, cause)
}

func (m *Manager) notifyWait(msg Message, wait time.Duration) {
	if m.onWait == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("rate limit wait hook panicked",
				slog.String("message_id", msg.ID.String()),
				slog.Any("panic", r))
		}
	}()

	m.onWait(msg, wait)
}
