package push

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/pushkit/pkg/config"
	"github.com/dmitrymomot/pushkit/pkg/provider"
	"github.com/dmitrymomot/pushkit/pkg/queue"
	"github.com/dmitrymomot/pushkit/pkg/ratelimit"
	"github.com/dmitrymomot/pushkit/pkg/retry"
)

// Aliases so callers of the facade work with one package.
type (
	Notification = provider.Notification
	SendResult   = provider.SendResult
	BulkResult   = provider.BulkResult
)

// Client orchestrates push delivery: rate limiting, retries, hooks, and an
// optional background queue in front of a single provider.
type Client struct {
	provider provider.Provider
	limiter  *ratelimit.Limiter
	retrier  *retry.Executor
	manager  *queue.Manager
	hooks    Hooks
	logger   *slog.Logger
}

// Option configures the client.
type Option func(*clientOptions)

type clientOptions struct {
	limiter      *ratelimit.Limiter
	retrier      *retry.Executor
	queueStorage queue.Storage
	queueCfg     queue.Config
	hooks        Hooks
	logger       *slog.Logger
}

// WithLimiter attaches a rate limiter shared by the direct and queued paths.
func WithLimiter(l *ratelimit.Limiter) Option {
	return func(o *clientOptions) { o.limiter = l }
}

// WithRetrier attaches a retry executor shared by the direct and queued paths.
func WithRetrier(r *retry.Executor) Option {
	return func(o *clientOptions) { o.retrier = r }
}

// WithQueue enables background delivery through the given storage backend.
func WithQueue(s queue.Storage, cfg queue.Config) Option {
	return func(o *clientOptions) {
		o.queueStorage = s
		o.queueCfg = cfg
	}
}

// WithHooks installs lifecycle callbacks.
func WithHooks(h Hooks) Option {
	return func(o *clientOptions) { o.hooks = h }
}

// WithLogger sets the logger, slog.Default otherwise.
func WithLogger(logger *slog.Logger) Option {
	return func(o *clientOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// New creates a push client in front of the given provider.
func New(p provider.Provider, opts ...Option) (*Client, error) {
	if p == nil {
		return nil, ErrProviderRequired
	}

	o := &clientOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}

	c := &Client{
		provider: p,
		limiter:  o.limiter,
		retrier:  o.retrier,
		hooks:    o.hooks,
		logger:   o.logger,
	}

	if o.queueStorage != nil {
		mgrOpts := []queue.ManagerOption{
			queue.WithManagerLogger(c.logger),
			queue.WithDropHook(c.queueDrop),
			queue.WithRateLimitWaitHook(c.queueWait),
		}
		if c.limiter != nil {
			mgrOpts = append(mgrOpts, queue.WithManagerLimiter(c.limiter))
		}
		if c.retrier != nil {
			mgrOpts = append(mgrOpts, queue.WithManagerRetrier(c.retrier))
		}

		mgr, err := queue.NewManager(o.queueStorage, c.queueSend, o.queueCfg, mgrOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to build queue manager: %w", err)
		}
		c.manager = mgr
	}

	return c, nil
}

// NewFromEnv creates a client configured from environment variables, using
// an in-memory queue backend when the queue is enabled. Explicit options
// are applied after the environment and take precedence.
func NewFromEnv(p provider.Provider, opts ...Option) (*Client, error) {
	var (
		rlCfg    ratelimit.Config
		retryCfg retry.Config
		qCfg     queue.Config
	)
	if err := config.Load(&rlCfg); err != nil {
		return nil, fmt.Errorf("failed to load rate limit config: %w", err)
	}
	if err := config.Load(&retryCfg); err != nil {
		return nil, fmt.Errorf("failed to load retry config: %w", err)
	}
	if err := config.Load(&qCfg); err != nil {
		return nil, fmt.Errorf("failed to load queue config: %w", err)
	}

	envOpts := make([]Option, 0, 3)
	if rlCfg.Enabled {
		limiter, err := ratelimit.NewLimiter(rlCfg)
		if err != nil {
			return nil, err
		}
		envOpts = append(envOpts, WithLimiter(limiter))
	}
	if retryCfg.Enabled {
		retrier, err := retry.New(retryCfg)
		if err != nil {
			return nil, err
		}
		envOpts = append(envOpts, WithRetrier(retrier))
	}
	if qCfg.Enabled {
		var memOpts []queue.MemoryOption
		if qCfg.MaxSize > 0 {
			memOpts = append(memOpts, queue.WithMaxSize(qCfg.MaxSize))
		}
		envOpts = append(envOpts, WithQueue(queue.NewMemoryStorage(memOpts...), qCfg))
	}

	return New(p, append(envOpts, opts...)...)
}

// Provider returns the wrapped provider.
func (c *Client) Provider() provider.Provider {
	return c.provider
}

// Queue returns the background delivery manager, nil when not configured.
func (c *Client) Queue() *queue.Manager {
	return c.manager
}

// Start launches the queue workers. No-op without a queue.
func (c *Client) Start(ctx context.Context) error {
	if c.manager == nil {
		return nil
	}
	return c.manager.Start(ctx)
}

// Stop drains the queue workers, waiting for in-flight sends.
func (c *Client) Stop() {
	if c.manager != nil {
		c.manager.Stop()
	}
}

// Send delivers a notification synchronously through the rate limiter and
// retry executor. On failure the result carries the final cause; provider
// errors keep their stable code.
func (c *Client) Send(ctx context.Context, n Notification) (SendResult, error) {
	if err := n.Validate(); err != nil {
		return SendResult{Err: err}, err
	}

	c.hooks.sendStart(c.logger, n)

	if err := c.waitRateLimit(ctx, n, 1); err != nil {
		c.hooks.sendFailure(c.logger, n, err)
		return SendResult{Err: err}, err
	}

	res, err := c.deliver(ctx, n)
	if err != nil {
		res.Success = false
		if res.Err == nil {
			res.Err = err
		}
		c.logger.ErrorContext(ctx, "push send failed",
			"provider", c.provider.Name(),
			"error", err,
		)
		c.hooks.sendFailure(c.logger, n, err)
		return res, err
	}

	c.hooks.sendSuccess(c.logger, n, res)
	return res, nil
}

// SendBulk delivers notifications in chunks bounded by the provider's
// MaxBatchSize and by the rate limiter's admissible count, so a chunk is
// never larger than the limiter can ever grant. The rate limiter is
// charged per chunk with the chunk size.
func (c *Client) SendBulk(ctx context.Context, ns []Notification) (BulkResult, error) {
	if len(ns) == 0 {
		return BulkResult{}, nil
	}

	chunkSize := c.provider.Capabilities().MaxBatchSize
	if chunkSize <= 0 {
		chunkSize = len(ns)
	}
	if c.limiter != nil && c.limiter.Enabled() {
		if admissible := c.limiter.MaxCount(); float64(chunkSize) > admissible && admissible >= 1 {
			chunkSize = int(admissible)
		}
	}

	var out BulkResult
	for start := 0; start < len(ns); start += chunkSize {
		end := min(start+chunkSize, len(ns))
		chunk := ns[start:end]

		if err := c.waitRateLimit(ctx, chunk[0], float64(len(chunk))); err != nil {
			return out, err
		}

		res, err := c.provider.SendBulk(ctx, chunk)
		out.Results = append(out.Results, res.Results...)
		out.SuccessCount += res.SuccessCount
		out.FailureCount += res.FailureCount
		if err != nil {
			return out, fmt.Errorf("bulk send failed: %w", err)
		}
	}

	return out, nil
}

// EnqueueSend hands the notification to the background queue and returns
// its message id.
func (c *Client) EnqueueSend(ctx context.Context, n Notification, opts ...queue.EnqueueOption) (uuid.UUID, error) {
	if c.manager == nil {
		return uuid.Nil, ErrQueueNotConfigured
	}
	if err := n.Validate(); err != nil {
		return uuid.Nil, err
	}

	payload, err := json.Marshal(n)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to encode notification: %w", err)
	}

	return c.manager.Enqueue(ctx, payload, opts...)
}

// deliver runs a single send through the retry executor when configured.
// The OnRetry hook fires before every re-attempt.
func (c *Client) deliver(ctx context.Context, n Notification) (SendResult, error) {
	if c.retrier == nil {
		return c.provider.Send(ctx, n)
	}

	var (
		res      SendResult
		attempts int
		lastErr  error
	)
	err := c.retrier.Do(ctx, func(ctx context.Context) error {
		if attempts > 0 {
			c.hooks.retryAttempt(c.logger, retry.Attempt{Number: attempts, Err: lastErr})
		}
		attempts++

		var sendErr error
		res, sendErr = c.provider.Send(ctx, n)
		lastErr = sendErr
		return sendErr
	})
	return res, err
}

// waitRateLimit blocks until count tokens are granted, firing the wait hook
// on every denial. A count the limiter can never admit fails immediately
// rather than looping forever.
func (c *Client) waitRateLimit(ctx context.Context, n Notification, count float64) error {
	if c.limiter == nil || !c.limiter.Enabled() {
		return nil
	}

	if count > c.limiter.MaxCount() {
		return fmt.Errorf("%w: %g tokens requested, at most %g admissible",
			ratelimit.ErrCountExceedsCapacity, count, c.limiter.MaxCount())
	}

	for {
		ok, wait := c.limiter.Acquire(count)
		if ok {
			return nil
		}

		c.hooks.rateLimitWait(c.logger, n, wait)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// queueSend is the queue manager's delivery function.
func (c *Client) queueSend(ctx context.Context, msg queue.Message) error {
	var n Notification
	if err := json.Unmarshal(msg.Payload, &n); err != nil {
		return fmt.Errorf("failed to decode queued notification: %w", err)
	}

	_, err := c.provider.Send(ctx, n)
	return err
}

func (c *Client) queueDrop(msg queue.Message, cause error) {
	if c.hooks.OnDrop != nil {
		safeHook(c.logger, "OnDrop", func() { c.hooks.OnDrop(msg, cause) })
	}
}

func (c *Client) queueWait(msg queue.Message, wait time.Duration) {
	if c.hooks.OnRateLimitWait == nil {
		return
	}
	var n Notification
	_ = json.Unmarshal(msg.Payload, &n)
	c.hooks.rateLimitWait(c.logger, n, wait)
}
