// Package mongostore wires checkpoint.Store to MongoDB, the durable backend
// for multi-process deployments (spec.md §4.10).
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"goa.design/skillrt/checkpoint"
	"goa.design/skillrt/rterrors"
	"goa.design/skillrt/schema"
)

const defaultCollection = "checkpoints"

// Options configures the Mongo-backed Store.
type Options struct {
	Client     *mongo.Client
	Database   string
	Collection string
	Dimension  int
	Timeout    time.Duration
	// Schemas, if non-nil, is validated against on every Put.
	Schemas *schema.Registry
}

// Store implements checkpoint.Store against a MongoDB collection, indexed
// by (thread_id, timestamp) for chain ordering reads.
type Store struct {
	coll      *mongo.Collection
	dimension int
	timeout   time.Duration
	schemas   *schema.Registry
}

// doc is the on-disk shape; checkpoint_id doubles as the document's _id so
// Put is naturally idempotent on retry.
type doc struct {
	ID        string         `bson:"_id"`
	ThreadID  string         `bson:"thread_id"`
	Timestamp time.Time      `bson:"timestamp"`
	Content   map[string]any `bson:"content"`
	ParentID  string         `bson:"parent_id,omitempty"`
	Embedding []float32      `bson:"embedding,omitempty"`
	Metadata  map[string]any `bson:"metadata,omitempty"`
}

// New constructs a Store and ensures the supporting index exists.
func New(ctx context.Context, opts Options) (*Store, error) {
	if opts.Client == nil {
		return nil, errors.New("checkpoint: mongo client is required")
	}
	if opts.Database == "" {
		return nil, errors.New("checkpoint: database name is required")
	}
	collName := opts.Collection
	if collName == "" {
		collName = defaultCollection
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	coll := opts.Client.Database(opts.Database).Collection(collName)
	idxCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	_, err := coll.Indexes().CreateOne(idxCtx, mongo.IndexModel{
		Keys: bson.D{{Key: "thread_id", Value: 1}, {Key: "timestamp", Value: 1}},
	})
	if err != nil {
		return nil, fmt.Errorf("checkpoint: ensure index: %w", err)
	}

	return &Store{coll: coll, dimension: opts.Dimension, timeout: timeout, schemas: opts.Schemas}, nil
}

func (s *Store) Put(ctx context.Context, cp checkpoint.Checkpoint) error {
	if s.dimension > 0 && len(cp.Embedding) > 0 && len(cp.Embedding) != s.dimension {
		return &rterrors.StorageError{
			Op:   "put",
			Code: rterrors.CodeStorageDimension,
			Err:  fmt.Errorf("checkpoint %q has embedding of length %d, want %d", cp.CheckpointID, len(cp.Embedding), s.dimension),
		}
	}
	if s.schemas != nil {
		if err := checkpoint.ValidateRecord(s.schemas, cp); err != nil {
			return err
		}
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	d := doc{
		ID:        cp.CheckpointID,
		ThreadID:  cp.ThreadID,
		Timestamp: cp.Timestamp,
		Content:   cp.Content,
		ParentID:  cp.ParentID,
		Embedding: cp.Embedding,
		Metadata:  cp.Metadata,
	}
	_, err := s.coll.InsertOne(ctx, d)
	if mongo.IsDuplicateKeyError(err) {
		// Put is append-only and idempotent on the checkpoint's own ID:
		// a retried write for the same checkpoint is not an error.
		return nil
	}
	if err != nil {
		return &rterrors.StorageError{Op: "put", Code: rterrors.CodeStorageIO, Err: err}
	}
	return nil
}

func (s *Store) GetTuple(ctx context.Context, threadID string) (checkpoint.Checkpoint, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	opts := options.FindOne().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	var d doc
	err := s.coll.FindOne(ctx, bson.D{{Key: "thread_id", Value: threadID}}, opts).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return checkpoint.Checkpoint{}, false, nil
	}
	if err != nil {
		return checkpoint.Checkpoint{}, false, &rterrors.StorageError{Op: "get_tuple", Code: rterrors.CodeStorageIO, Err: err}
	}
	return toCheckpoint(d), true, nil
}

func (s *Store) List(ctx context.Context, threadID string) ([]checkpoint.Checkpoint, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}})
	cur, err := s.coll.Find(ctx, bson.D{{Key: "thread_id", Value: threadID}}, opts)
	if err != nil {
		return nil, &rterrors.StorageError{Op: "list", Code: rterrors.CodeStorageIO, Err: err}
	}
	defer cur.Close(ctx)

	var out []checkpoint.Checkpoint
	for cur.Next(ctx) {
		var d doc
		if err := cur.Decode(&d); err != nil {
			return nil, &rterrors.StorageError{Op: "list", Code: rterrors.CodeStorageIO, Err: err}
		}
		out = append(out, toCheckpoint(d))
	}
	if err := cur.Err(); err != nil {
		return nil, &rterrors.StorageError{Op: "list", Code: rterrors.CodeStorageIO, Err: err}
	}
	return out, nil
}

func toCheckpoint(d doc) checkpoint.Checkpoint {
	return checkpoint.Checkpoint{
		CheckpointID: d.ID,
		ThreadID:     d.ThreadID,
		Timestamp:    d.Timestamp,
		Content:      d.Content,
		ParentID:     d.ParentID,
		Embedding:    d.Embedding,
		Metadata:     d.Metadata,
	}
}
