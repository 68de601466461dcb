package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisStorage is a Redis-backed queue backend. Pending messages live in a
// sorted set whose score encodes priority and arrival order, so ZPOPMIN
// always yields the highest-priority, earliest-enqueued message.
type RedisStorage struct {
	client  redis.UniversalClient
	prefix  string
	maxSize int
}

// failedEnvelope wraps a failed message with its last error for the failed set.
type failedEnvelope struct {
	Message Message `json:"message"`
	Error   string  `json:"error"`
}

// RedisOption configures a RedisStorage.
type RedisOption func(*RedisStorage)

// WithRedisPrefix overrides the key prefix (default "pushkit:queue").
func WithRedisPrefix(prefix string) RedisOption {
	return func(rs *RedisStorage) {
		if prefix != "" {
			rs.prefix = prefix
		}
	}
}

// WithRedisMaxSize caps the pending set; 0 means unbounded.
func WithRedisMaxSize(n int) RedisOption {
	return func(rs *RedisStorage) {
		if n >= 0 {
			rs.maxSize = n
		}
	}
}

// NewRedisStorage creates a Redis-backed queue backend on the given client.
func NewRedisStorage(client redis.UniversalClient, opts ...RedisOption) (*RedisStorage, error) {
	if client == nil {
		return nil, ErrStorageNil
	}

	rs := &RedisStorage{
		client: client,
		prefix: "pushkit:queue",
	}

	for _, opt := range opts {
		opt(rs)
	}

	return rs, nil
}

func (rs *RedisStorage) pendingKey() string    { return rs.prefix + ":pending" }
func (rs *RedisStorage) messagesKey() string   { return rs.prefix + ":messages" }
func (rs *RedisStorage) processingKey() string { return rs.prefix + ":processing" }
func (rs *RedisStorage) failedKey() string     { return rs.prefix + ":failed" }
func (rs *RedisStorage) pausedKey() string     { return rs.prefix + ":paused" }
func (rs *RedisStorage) seqKey() string        { return rs.prefix + ":seq" }
func (rs *RedisStorage) metricsKey() string    { return rs.prefix + ":metrics" }

// score encodes descending priority and ascending arrival order into a
// single float: lower scores pop first, so priority is inverted. Sequence
// numbers up to 2^40 fit losslessly alongside the priority component
// within float64 precision.
func score(priority Priority, seq int64) float64 {
	return float64(int64(PriorityMax-priority)<<40 + seq)
}

// Enqueue implements Storage.
func (rs *RedisStorage) Enqueue(ctx context.Context, msg Message) error {
	if rs.maxSize > 0 {
		size, err := rs.client.ZCard(ctx, rs.pendingKey()).Result()
		if err != nil {
			return fmt.Errorf("failed to check queue size: %w", err)
		}
		if size >= int64(rs.maxSize) {
			rs.client.HIncrBy(ctx, rs.metricsKey(), "dropped", 1)
			return ErrQueueFull
		}
	}

	seq, err := rs.client.Incr(ctx, rs.seqKey()).Result()
	if err != nil {
		return fmt.Errorf("failed to allocate sequence: %w", err)
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	pipe := rs.client.TxPipeline()
	pipe.HSet(ctx, rs.messagesKey(), msg.ID.String(), data)
	pipe.ZAdd(ctx, rs.pendingKey(), redis.Z{Score: score(msg.Priority, seq), Member: msg.ID.String()})
	pipe.HIncrBy(ctx, rs.metricsKey(), "enqueued", 1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to enqueue message: %w", err)
	}

	return nil
}

// Dequeue implements Storage.
func (rs *RedisStorage) Dequeue(ctx context.Context) (*Message, error) {
	paused, err := rs.client.Exists(ctx, rs.pausedKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to check pause flag: %w", err)
	}
	if paused > 0 {
		return nil, ErrQueuePaused
	}

	// ZPOPMIN hands each member to exactly one consumer.
	popped, err := rs.client.ZPopMin(ctx, rs.pendingKey(), 1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to pop message: %w", err)
	}
	if len(popped) == 0 {
		return nil, ErrQueueEmpty
	}

	id := popped[0].Member.(string)
	data, err := rs.client.HGet(ctx, rs.messagesKey(), id).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMessageNotFound
		}
		return nil, fmt.Errorf("failed to load message %s: %w", id, err)
	}

	var msg Message
	if err := json.Unmarshal([]byte(data), &msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message %s: %w", id, err)
	}

	pipe := rs.client.TxPipeline()
	pipe.HDel(ctx, rs.messagesKey(), id)
	pipe.HSet(ctx, rs.processingKey(), id, data)
	pipe.HIncrBy(ctx, rs.metricsKey(), "dequeued", 1)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to claim message %s: %w", id, err)
	}

	return &msg, nil
}

// DequeueBatch implements Storage.
func (rs *RedisStorage) DequeueBatch(ctx context.Context, n int) ([]Message, error) {
	if n < 1 {
		return nil, ErrInvalidBatchSize
	}

	batch := make([]Message, 0, n)
	for len(batch) < n {
		msg, err := rs.Dequeue(ctx)
		if err != nil {
			if len(batch) > 0 && (errors.Is(err, ErrQueueEmpty) || errors.Is(err, ErrQueuePaused)) {
				return batch, nil
			}
			return nil, err
		}
		batch = append(batch, *msg)
	}

	return batch, nil
}

// Remove implements Storage.
func (rs *RedisStorage) Remove(ctx context.Context, id uuid.UUID) error {
	removed, err := rs.client.ZRem(ctx, rs.pendingKey(), id.String()).Result()
	if err != nil {
		return fmt.Errorf("failed to remove message %s: %w", id, err)
	}
	if removed == 0 {
		return ErrMessageNotFound
	}

	rs.client.HDel(ctx, rs.messagesKey(), id.String())
	return nil
}

// Complete implements Storage.
func (rs *RedisStorage) Complete(ctx context.Context, id uuid.UUID) error {
	removed, err := rs.client.HDel(ctx, rs.processingKey(), id.String()).Result()
	if err != nil {
		return fmt.Errorf("failed to complete message %s: %w", id, err)
	}
	if removed == 0 {
		return ErrMessageNotFound
	}

	rs.client.HIncrBy(ctx, rs.metricsKey(), "completed", 1)
	return nil
}

// Fail implements Storage.
func (rs *RedisStorage) Fail(ctx context.Context, id uuid.UUID, errMsg string) error {
	data, err := rs.client.HGet(ctx, rs.processingKey(), id.String()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrMessageNotFound
		}
		return fmt.Errorf("failed to load message %s: %w", id, err)
	}

	var msg Message
	if err := json.Unmarshal([]byte(data), &msg); err != nil {
		return fmt.Errorf("failed to unmarshal message %s: %w", id, err)
	}

	envelope, err := json.Marshal(failedEnvelope{Message: msg, Error: errMsg})
	if err != nil {
		return fmt.Errorf("failed to marshal failed message %s: %w", id, err)
	}

	pipe := rs.client.TxPipeline()
	pipe.HDel(ctx, rs.processingKey(), id.String())
	pipe.HSet(ctx, rs.failedKey(), id.String(), envelope)
	pipe.HIncrBy(ctx, rs.metricsKey(), "failed", 1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to settle message %s: %w", id, err)
	}

	return nil
}

// Retry implements Storage.
func (rs *RedisStorage) Retry(ctx context.Context, id uuid.UUID) error {
	data, err := rs.client.HGet(ctx, rs.failedKey(), id.String()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrMessageNotFound
		}
		return fmt.Errorf("failed to load failed message %s: %w", id, err)
	}

	var envelope failedEnvelope
	if err := json.Unmarshal([]byte(data), &envelope); err != nil {
		return fmt.Errorf("failed to unmarshal failed message %s: %w", id, err)
	}

	msg := envelope.Message
	msg.Attempts++

	if err := rs.Enqueue(ctx, msg); err != nil {
		return err
	}

	rs.client.HDel(ctx, rs.failedKey(), id.String())
	return nil
}

// Size implements Storage.
func (rs *RedisStorage) Size(ctx context.Context) (int, error) {
	size, err := rs.client.ZCard(ctx, rs.pendingKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read queue size: %w", err)
	}
	return int(size), nil
}

// Clear implements Storage.
func (rs *RedisStorage) Clear(ctx context.Context) error {
	if err := rs.client.Del(ctx, rs.pendingKey(), rs.messagesKey()).Err(); err != nil {
		return fmt.Errorf("failed to clear queue: %w", err)
	}
	return nil
}

// Pause implements Storage.
func (rs *RedisStorage) Pause(ctx context.Context) error {
	return rs.client.Set(ctx, rs.pausedKey(), "1", 0).Err()
}

// Resume implements Storage.
func (rs *RedisStorage) Resume(ctx context.Context) error {
	return rs.client.Del(ctx, rs.pausedKey()).Err()
}

// Metrics implements Storage.
func (rs *RedisStorage) Metrics(ctx context.Context) (Metrics, error) {
	size, err := rs.client.ZCard(ctx, rs.pendingKey()).Result()
	if err != nil {
		return Metrics{}, fmt.Errorf("failed to read queue size: %w", err)
	}

	paused, err := rs.client.Exists(ctx, rs.pausedKey()).Result()
	if err != nil {
		return Metrics{}, fmt.Errorf("failed to check pause flag: %w", err)
	}

	counters, err := rs.client.HGetAll(ctx, rs.metricsKey()).Result()
	if err != nil {
		return Metrics{}, fmt.Errorf("failed to read metrics: %w", err)
	}

	metrics := Metrics{
		Size:      int(size),
		Paused:    paused > 0,
		Enqueued:  counter(counters, "enqueued"),
		Dequeued:  counter(counters, "dequeued"),
		Completed: counter(counters, "completed"),
		Failed:    counter(counters, "failed"),
		Dropped:   counter(counters, "dropped"),
	}
	return metrics, nil
}

func counter(m map[string]string, field string) uint64 {
	v, err := strconv.ParseUint(m[field], 10, 64)
	if err != nil {
		return 0
	}
	return v
}
