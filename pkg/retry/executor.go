package retry

import (
	"context"
	"log/slog"
	"time"
)

// Operation is the unit of work driven by the executor.
type Operation func(ctx context.Context) error

// Attempt describes one failed pass through the retry loop. It is passed
// to the OnRetry hook before the backoff sleep.
type Attempt struct {
	// Number is the zero-based index of the attempt that just failed.
	Number int

	// MaxAttempts is the configured attempt budget.
	MaxAttempts int

	// Err is the error the failed attempt returned.
	Err error

	// Delay is the backoff the executor will sleep before the next attempt.
	Delay time.Duration

	// TotalDelay is the backoff accumulated across this execution,
	// including Delay.
	TotalDelay time.Duration
}

// Executor re-invokes failing operations according to its configuration.
// It is safe for concurrent use; each Do call keeps its own attempt state.
type Executor struct {
	cfg      Config
	strategy Strategy
	classify func(error) bool
	onRetry  func(Attempt)
	logger   *slog.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithClassifier replaces the default retryability classifier.
func WithClassifier(fn func(error) bool) Option {
	return func(e *Executor) {
		if fn != nil {
			e.classify = fn
		}
	}
}

// WithOnRetry installs a hook invoked before each backoff sleep.
func WithOnRetry(fn func(Attempt)) Option {
	return func(e *Executor) {
		e.onRetry = fn
	}
}

// WithStrategy replaces the backoff strategy derived from the config.
func WithStrategy(s Strategy) Option {
	return func(e *Executor) {
		if s != nil {
			e.strategy = s
		}
	}
}

// WithLogger sets the logger used for hook panic reports.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New creates a retry executor.
func New(cfg Config, opts ...Option) (*Executor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Executor{
		cfg:      cfg,
		strategy: cfg.backoff(),
		classify: IsRetryable,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

// Do invokes op until it succeeds, the attempt budget is exhausted, or the
// error is classified as non-retryable. The returned error is the last
// error op produced, unwrapped, so callers can compare it against the
// original cause. A disabled executor invokes op exactly once.
func (e *Executor) Do(ctx context.Context, op Operation) error {
	return e.do(ctx, e.cfg, e.strategy, op)
}

// DoWithConfig runs op under a one-shot configuration override. The
// executor's own configuration is untouched, so concurrent Do calls are
// unaffected and no restore step can be missed on failure.
func (e *Executor) DoWithConfig(ctx context.Context, cfg Config, op Operation) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	return e.do(ctx, cfg, cfg.backoff(), op)
}

func (e *Executor) do(ctx context.Context, cfg Config, strategy Strategy, op Operation) error {
	if op == nil {
		return ErrNilOperation
	}

	if !cfg.Enabled {
		return op(ctx)
	}

	var (
		lastErr    error
		totalDelay time.Duration
	)

	for attempt := range cfg.MaxAttempts {
		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt == cfg.MaxAttempts-1 {
			break
		}
		if !e.classify(err) {
			return err
		}

		delay := strategy.Delay(attempt)
		totalDelay += delay

		e.notifyRetry(Attempt{
			Number:      attempt,
			MaxAttempts: cfg.MaxAttempts,
			Err:         err,
			Delay:       delay,
			TotalDelay:  totalDelay,
		})

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return lastErr
}

// notifyRetry invokes the OnRetry hook, recovering panics so observability
// code can never break the retry loop.
func (e *Executor) notifyRetry(a Attempt) {
	if e.onRetry == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("retry hook panicked",
				slog.Int("attempt", a.Number),
				slog.Any("panic", r))
		}
	}()

	e.onRetry(a)
}
