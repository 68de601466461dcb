package queue

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStorage is a PostgreSQL-backed queue backend. Claims use
// FOR UPDATE SKIP LOCKED so concurrent workers never hand out the same
// message twice, ordered by priority then arrival sequence.
type PostgresStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresStorage creates a PostgreSQL-backed queue backend on the
// given pool. Call MigratePostgres first to ensure the schema exists.
func NewPostgresStorage(pool *pgxpool.Pool) (*PostgresStorage, error) {
	if pool == nil {
		return nil, ErrStorageNil
	}
	return &PostgresStorage{pool: pool}, nil
}

// MigratePostgres applies the queue schema migrations using goose.
// The pgx pool is bridged to database/sql because goose does not speak
// pgx natively.
func MigratePostgres(ctx context.Context, pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer func(db *sql.DB) { _ = db.Close() }(db)

	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectPostgres, db, sub)
	if err != nil {
		return fmt.Errorf("failed to create migration provider: %w", err)
	}

	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("failed to apply queue migrations: %w", err)
	}

	return nil
}

// Enqueue implements Storage.
func (ps *PostgresStorage) Enqueue(ctx context.Context, msg Message) error {
	_, err := ps.pool.Exec(ctx, `
		INSERT INTO pushkit_queue (id, payload, priority, attempts, enqueued_at)
		VALUES ($1, $2, $3, $4, $5)`,
		msg.ID, msg.Payload, msg.Priority, msg.Attempts, msg.EnqueuedAt)
	if err != nil {
		return fmt.Errorf("failed to enqueue message: %w", err)
	}

	_, err = ps.pool.Exec(ctx, `UPDATE pushkit_queue_state SET enqueued = enqueued + 1 WHERE id = 1`)
	if err != nil {
		return fmt.Errorf("failed to update queue counters: %w", err)
	}

	return nil
}

// Dequeue implements Storage.
func (ps *PostgresStorage) Dequeue(ctx context.Context) (*Message, error) {
	var paused bool
	if err := ps.pool.QueryRow(ctx, `SELECT paused FROM pushkit_queue_state WHERE id = 1`).Scan(&paused); err != nil {
		return nil, fmt.Errorf("failed to check pause flag: %w", err)
	}
	if paused {
		return nil, ErrQueuePaused
	}

	var msg Message
	err := ps.pool.QueryRow(ctx, `
		UPDATE pushkit_queue SET status = 'processing'
		WHERE id = (
			SELECT id FROM pushkit_queue
			WHERE status = 'pending'
			ORDER BY priority DESC, seq ASC
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		RETURNING id, payload, priority, attempts, enqueued_at`).
		Scan(&msg.ID, &msg.Payload, &msg.Priority, &msg.Attempts, &msg.EnqueuedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrQueueEmpty
		}
		return nil, fmt.Errorf("failed to claim message: %w", err)
	}

	_, err = ps.pool.Exec(ctx, `UPDATE pushkit_queue_state SET dequeued = dequeued + 1 WHERE id = 1`)
	if err != nil {
		return nil, fmt.Errorf("failed to update queue counters: %w", err)
	}

	return &msg, nil
}

// DequeueBatch implements Storage.
func (ps *PostgresStorage) DequeueBatch(ctx context.Context, n int) ([]Message, error) {
	if n < 1 {
		return nil, ErrInvalidBatchSize
	}

	batch := make([]Message, 0, n)
	for len(batch) < n {
		msg, err := ps.Dequeue(ctx)
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
func (ps *PostgresStorage) Remove(ctx context.Context, id uuid.UUID) error {
	tag, err := ps.pool.Exec(ctx, `DELETE FROM pushkit_queue WHERE id = $1 AND status = 'pending'`, id)
	if err != nil {
		return fmt.Errorf("failed to remove message %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrMessageNotFound
	}
	return nil
}

// Complete implements Storage. Delivered rows are deleted rather than
// kept: the queue is a delivery buffer, not an audit log.
func (ps *PostgresStorage) Complete(ctx context.Context, id uuid.UUID) error {
	tag, err := ps.pool.Exec(ctx, `DELETE FROM pushkit_queue WHERE id = $1 AND status = 'processing'`, id)
	if err != nil {
		return fmt.Errorf("failed to complete message %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrMessageNotFound
	}

	_, err = ps.pool.Exec(ctx, `UPDATE pushkit_queue_state SET completed = completed + 1 WHERE id = 1`)
	if err != nil {
		return fmt.Errorf("failed to update queue counters: %w", err)
	}

	return nil
}

// Fail implements Storage.
func (ps *PostgresStorage) Fail(ctx context.Context, id uuid.UUID, errMsg string) error {
	tag, err := ps.pool.Exec(ctx, `
		UPDATE pushkit_queue SET status = 'failed', error = $2
		WHERE id = $1 AND status = 'processing'`, id, errMsg)
	if err != nil {
		return fmt.Errorf("failed to settle message %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrMessageNotFound
	}

	_, err = ps.pool.Exec(ctx, `UPDATE pushkit_queue_state SET failed = failed + 1 WHERE id = 1`)
	if err != nil {
		return fmt.Errorf("failed to update queue counters: %w", err)
	}

	return nil
}

// Retry implements Storage.
func (ps *PostgresStorage) Retry(ctx context.Context, id uuid.UUID) error {
	tag, err := ps.pool.Exec(ctx, `
		UPDATE pushkit_queue
		SET status = 'pending', error = NULL, attempts = attempts + 1, seq = nextval('pushkit_queue_seq_seq')
		WHERE id = $1 AND status = 'failed'`, id)
	if err != nil {
		return fmt.Errorf("failed to retry message %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrMessageNotFound
	}
	return nil
}

// Size implements Storage.
func (ps *PostgresStorage) Size(ctx context.Context) (int, error) {
	var size int
	err := ps.pool.QueryRow(ctx, `SELECT count(*) FROM pushkit_queue WHERE status = 'pending'`).Scan(&size)
	if err != nil {
		return 0, fmt.Errorf("failed to read queue size: %w", err)
	}
	return size, nil
}

// Clear implements Storage.
func (ps *PostgresStorage) Clear(ctx context.Context) error {
	if _, err := ps.pool.Exec(ctx, `DELETE FROM pushkit_queue WHERE status = 'pending'`); err != nil {
		return fmt.Errorf("failed to clear queue: %w", err)
	}
	return nil
}

// Pause implements Storage.
func (ps *PostgresStorage) Pause(ctx context.Context) error {
	_, err := ps.pool.Exec(ctx, `UPDATE pushkit_queue_state SET paused = TRUE WHERE id = 1`)
	return err
}

// Resume implements Storage.
func (ps *PostgresStorage) Resume(ctx context.Context) error {
	_, err := ps.pool.Exec(ctx, `UPDATE pushkit_queue_state SET paused = FALSE WHERE id = 1`)
	return err
}

// Metrics implements Storage.
func (ps *PostgresStorage) Metrics(ctx context.Context) (Metrics, error) {
	var metrics Metrics
	err := ps.pool.QueryRow(ctx, `
		SELECT s.paused, s.enqueued, s.dequeued, s.completed, s.failed, s.dropped,
		       (SELECT count(*) FROM pushkit_queue WHERE status = 'pending')
		FROM pushkit_queue_state s WHERE s.id = 1`).
		Scan(&metrics.Paused, &metrics.Enqueued, &metrics.Dequeued,
			&metrics.Completed, &metrics.Failed, &metrics.Dropped, &metrics.Size)
	if err != nil {
		return Metrics{}, fmt.Errorf("failed to read queue metrics: %w", err)
	}
	return metrics, nil
}
