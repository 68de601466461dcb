package provider

import (
	"context"
	"log/slog"
	"strconv"
	"sync/atomic"
)

// DevProvider implements Provider for local development. It logs every
// notification instead of delivering it and records a running sent counter.
// An injected failure error makes it useful as a failing provider in tests.
type DevProvider struct {
	logger  *slog.Logger
	failErr error
	sent    atomic.Int64
}

// DevOption configures the development provider.
type DevOption func(*DevProvider)

// WithDevLogger sets the logger used to print notifications.
func WithDevLogger(logger *slog.Logger) DevOption {
	return func(d *DevProvider) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithDevFailure makes every send fail with the given error.
func WithDevFailure(err error) DevOption {
	return func(d *DevProvider) {
		d.failErr = err
	}
}

// NewDevProvider creates a development provider that logs and succeeds.
func NewDevProvider(opts ...DevOption) *DevProvider {
	d := &DevProvider{logger: slog.Default()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Name implements Provider.
func (d *DevProvider) Name() string {
	return "dev"
}

// Capabilities implements Provider.
func (d *DevProvider) Capabilities() Capabilities {
	return Capabilities{
		MaxBatchSize:   100,
		SupportsTopics: true,
		SupportsImages: true,
	}
}

// Send implements Provider. It validates, logs, and reports success unless
// a failure was injected.
func (d *DevProvider) Send(ctx context.Context, n Notification) (SendResult, error) {
	if err := n.Validate(); err != nil {
		return SendResult{Err: err}, err
	}
	if d.failErr != nil {
		return SendResult{Err: d.failErr}, d.failErr
	}

	seq := d.sent.Add(1)
	d.logger.InfoContext(ctx, "push notification (dev)",
		"token", n.Token,
		"topic", n.Topic,
		"title", n.Title,
		"body", n.Body,
		"data_keys", len(n.Data),
	)

	return SendResult{
		MessageID: devMessageID(seq),
		Success:   true,
	}, nil
}

// SendBulk implements Provider by sending each notification in turn.
func (d *DevProvider) SendBulk(ctx context.Context, ns []Notification) (BulkResult, error) {
	res := BulkResult{Results: make([]SendResult, 0, len(ns))}
	for _, n := range ns {
		r, err := d.Send(ctx, n)
		if err != nil {
			res.FailureCount++
		} else {
			res.SuccessCount++
		}
		res.Results = append(res.Results, r)
	}
	return res, nil
}

// Sent returns how many notifications were accepted.
func (d *DevProvider) Sent() int64 {
	return d.sent.Load()
}

func devMessageID(seq int64) string {
	return "dev-" + strconv.FormatInt(seq, 10)
}
