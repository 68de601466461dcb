package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	mongoQueueCollection = "pushkit_queue"
	mongoStateCollection = "pushkit_queue_state"
	mongoStateID         = "state"
	mongoSeqID           = "seq"
)

// MongoStorage is a MongoDB-backed queue backend. Claims use an atomic
// FindOneAndUpdate so concurrent workers never hand out the same message
// twice.
type MongoStorage struct {
	queue *mongo.Collection
	state *mongo.Collection
}

type mongoMessage struct {
	ID         string    `bson:"_id"`
	Payload    []byte    `bson:"payload"`
	Priority   int       `bson:"priority"`
	Seq        int64     `bson:"seq"`
	Status     string    `bson:"status"`
	Attempts   int       `bson:"attempts"`
	Error      string    `bson:"error,omitempty"`
	EnqueuedAt time.Time `bson:"enqueued_at"`
}

// NewMongoStorage creates a MongoDB-backed queue backend in the given
// database and ensures the claim index exists.
func NewMongoStorage(ctx context.Context, db *mongo.Database) (*MongoStorage, error) {
	if db == nil {
		return nil, ErrStorageNil
	}

	ms := &MongoStorage{
		queue: db.Collection(mongoQueueCollection),
		state: db.Collection(mongoStateCollection),
	}

	_, err := ms.queue.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "status", Value: 1},
			{Key: "priority", Value: -1},
			{Key: "seq", Value: 1},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create queue index: %w", err)
	}

	return ms, nil
}

// nextSeq allocates the next arrival sequence number.
func (ms *MongoStorage) nextSeq(ctx context.Context) (int64, error) {
	var doc struct {
		Value int64 `bson:"value"`
	}

	err := ms.state.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: mongoSeqID}},
		bson.D{{Key: "$inc", Value: bson.D{{Key: "value", Value: int64(1)}}}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate sequence: %w", err)
	}

	return doc.Value, nil
}

func (ms *MongoStorage) incrCounter(ctx context.Context, field string) error {
	_, err := ms.state.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: mongoStateID}},
		bson.D{{Key: "$inc", Value: bson.D{{Key: field, Value: int64(1)}}}},
		options.UpdateOne().SetUpsert(true),
	)
	return err
}

// Enqueue implements Storage.
func (ms *MongoStorage) Enqueue(ctx context.Context, msg Message) error {
	seq, err := ms.nextSeq(ctx)
	if err != nil {
		return err
	}

	_, err = ms.queue.InsertOne(ctx, mongoMessage{
		ID:         msg.ID.String(),
		Payload:    msg.Payload,
		Priority:   int(msg.Priority),
		Seq:        seq,
		Status:     "pending",
		Attempts:   msg.Attempts,
		EnqueuedAt: msg.EnqueuedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to enqueue message: %w", err)
	}

	return ms.incrCounter(ctx, "enqueued")
}

// Dequeue implements Storage.
func (ms *MongoStorage) Dequeue(ctx context.Context) (*Message, error) {
	var state struct {
		Paused bool `bson:"paused"`
	}
	err := ms.state.FindOne(ctx, bson.D{{Key: "_id", Value: mongoStateID}}).Decode(&state)
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to check pause flag: %w", err)
	}
	if state.Paused {
		return nil, ErrQueuePaused
	}

	var doc mongoMessage
	err = ms.queue.FindOneAndUpdate(ctx,
		bson.D{{Key: "status", Value: "pending"}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "status", Value: "processing"}}}},
		options.FindOneAndUpdate().
			SetSort(bson.D{{Key: "priority", Value: -1}, {Key: "seq", Value: 1}}).
			SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrQueueEmpty
		}
		return nil, fmt.Errorf("failed to claim message: %w", err)
	}

	if err := ms.incrCounter(ctx, "dequeued"); err != nil {
		return nil, fmt.Errorf("failed to update queue counters: %w", err)
	}

	return doc.toMessage()
}

// DequeueBatch implements Storage.
func (ms *MongoStorage) DequeueBatch(ctx context.Context, n int) ([]Message, error) {
	if n < 1 {
		return nil, ErrInvalidBatchSize
	}

	batch := make([]Message, 0, n)
	for len(batch) < n {
		msg, err := ms.Dequeue(ctx)
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
func (ms *MongoStorage) Remove(ctx context.Context, id uuid.UUID) error {
	res, err := ms.queue.DeleteOne(ctx, bson.D{
		{Key: "_id", Value: id.String()},
		{Key: "status", Value: "pending"},
	})
	if err != nil {
		return fmt.Errorf("failed to remove message %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return ErrMessageNotFound
	}
	return nil
}

// Complete implements Storage.
func (ms *MongoStorage) Complete(ctx context.Context, id uuid.UUID) error {
	res, err := ms.queue.DeleteOne(ctx, bson.D{
		{Key: "_id", Value: id.String()},
		{Key: "status", Value: "processing"},
	})
	if err != nil {
		return fmt.Errorf("failed to complete message %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return ErrMessageNotFound
	}
	return ms.incrCounter(ctx, "completed")
}

// Fail implements Storage.
func (ms *MongoStorage) Fail(ctx context.Context, id uuid.UUID, errMsg string) error {
	res, err := ms.queue.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: id.String()}, {Key: "status", Value: "processing"}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "status", Value: "failed"},
			{Key: "error", Value: errMsg},
		}}},
	)
	if err != nil {
		return fmt.Errorf("failed to settle message %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return ErrMessageNotFound
	}
	return ms.incrCounter(ctx, "failed")
}

// Retry implements Storage.
func (ms *MongoStorage) Retry(ctx context.Context, id uuid.UUID) error {
	seq, err := ms.nextSeq(ctx)
	if err != nil {
		return err
	}

	res, err := ms.queue.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: id.String()}, {Key: "status", Value: "failed"}},
		bson.D{
			{Key: "$set", Value: bson.D{
				{Key: "status", Value: "pending"},
				{Key: "seq", Value: seq},
			}},
			{Key: "$unset", Value: bson.D{{Key: "error", Value: ""}}},
			{Key: "$inc", Value: bson.D{{Key: "attempts", Value: 1}}},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to retry message %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return ErrMessageNotFound
	}
	return nil
}

// Size implements Storage.
func (ms *MongoStorage) Size(ctx context.Context) (int, error) {
	count, err := ms.queue.CountDocuments(ctx, bson.D{{Key: "status", Value: "pending"}})
	if err != nil {
		return 0, fmt.Errorf("failed to read queue size: %w", err)
	}
	return int(count), nil
}

// Clear implements Storage.
func (ms *MongoStorage) Clear(ctx context.Context) error {
	if _, err := ms.queue.DeleteMany(ctx, bson.D{{Key: "status", Value: "pending"}}); err != nil {
		return fmt.Errorf("failed to clear queue: %w", err)
	}
	return nil
}

// Pause implements Storage.
func (ms *MongoStorage) Pause(ctx context.Context) error {
	return ms.setPaused(ctx, true)
}

// Resume implements Storage.
func (ms *MongoStorage) Resume(ctx context.Context) error {
	return ms.setPaused(ctx, false)
}

func (ms *MongoStorage) setPaused(ctx context.Context, paused bool) error {
	_, err := ms.state.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: mongoStateID}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "paused", Value: paused}}}},
		options.UpdateOne().SetUpsert(true),
	)
	return err
}

// Metrics implements Storage.
func (ms *MongoStorage) Metrics(ctx context.Context) (Metrics, error) {
	size, err := ms.Size(ctx)
	if err != nil {
		return Metrics{}, err
	}

	var state struct {
		Paused    bool   `bson:"paused"`
		Enqueued  uint64 `bson:"enqueued"`
		Dequeued  uint64 `bson:"dequeued"`
		Completed uint64 `bson:"completed"`
		Failed    uint64 `bson:"failed"`
		Dropped   uint64 `bson:"dropped"`
	}
	err = ms.state.FindOne(ctx, bson.D{{Key: "_id", Value: mongoStateID}}).Decode(&state)
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return Metrics{}, fmt.Errorf("failed to read queue metrics: %w", err)
	}

	return Metrics{
		Size:      size,
		Paused:    state.Paused,
		Enqueued:  state.Enqueued,
		Dequeued:  state.Dequeued,
		Completed: state.Completed,
		Failed:    state.Failed,
		Dropped:   state.Dropped,
	}, nil
}

func (d mongoMessage) toMessage() (*Message, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse message id %q: %w", d.ID, err)
	}

	return &Message{
		ID:         id,
		Payload:    d.Payload,
		Priority:   Priority(d.Priority),
		Attempts:   d.Attempts,
		EnqueuedAt: d.EnqueuedAt,
	}, nil
}
