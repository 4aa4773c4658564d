package inmem_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goa.design/skillrt/checkpoint"
	"goa.design/skillrt/checkpoint/inmem"
	"goa.design/skillrt/schema"
)

func TestStorePutGetTupleList(t *testing.T) {
	s := inmem.New(4, nil)
	ctx := context.Background()

	cp1 := checkpoint.Checkpoint{
		CheckpointID: checkpoint.NewCheckpointID(time.Now()),
		ThreadID:     "thread-1",
		Timestamp:    time.Now(),
		Content:      map[string]any{"step": 1},
	}
	time.Sleep(time.Millisecond)
	cp2 := checkpoint.Checkpoint{
		CheckpointID: checkpoint.NewCheckpointID(time.Now()),
		ThreadID:     "thread-1",
		Timestamp:    time.Now(),
		Content:      map[string]any{"step": 2},
		ParentID:     cp1.CheckpointID,
	}

	require.NoError(t, s.Put(ctx, cp1))
	require.NoError(t, s.Put(ctx, cp2))

	latest, ok, err := s.GetTuple(ctx, "thread-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, cp2.CheckpointID, latest.CheckpointID)

	chain, err := s.List(ctx, "thread-1")
	require.NoError(t, err)
	require.Len(t, chain, 2)
	assert.Equal(t, cp1.CheckpointID, chain[0].CheckpointID, "chain must preserve append order")
	assert.Equal(t, cp2.CheckpointID, chain[1].CheckpointID)
}

func TestStoreRejectsDimensionMismatch(t *testing.T) {
	s := inmem.New(4, nil)
	err := s.Put(context.Background(), checkpoint.Checkpoint{
		CheckpointID: "x", ThreadID: "t", Embedding: []float32{1, 2},
	})
	require.Error(t, err)
}

func TestStoreThreadIsolation(t *testing.T) {
	s := inmem.New(0, nil)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, checkpoint.Checkpoint{CheckpointID: "a", ThreadID: "t1"}))
	require.NoError(t, s.Put(ctx, checkpoint.Checkpoint{CheckpointID: "b", ThreadID: "t2"}))

	chain1, err := s.List(ctx, "t1")
	require.NoError(t, err)
	assert.Len(t, chain1, 1)

	chain2, err := s.List(ctx, "t2")
	require.NoError(t, err)
	assert.Len(t, chain2, 1)
}

func TestGetTupleEmptyThread(t *testing.T) {
	s := inmem.New(0, nil)
	_, ok, err := s.GetTuple(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStoreRejectsCheckpointFailingSchemaValidation(t *testing.T) {
	schemas, err := schema.NewRegistry()
	require.NoError(t, err)
	s := inmem.New(0, schemas)

	// Missing ThreadID violates checkpoint.json's "required" list.
	err = s.Put(context.Background(), checkpoint.Checkpoint{CheckpointID: "x"})
	require.Error(t, err)

	chain, listErr := s.List(context.Background(), "")
	require.NoError(t, listErr)
	assert.Empty(t, chain, "a checkpoint rejected by schema validation must never land in the chain")
}

func TestStoreAcceptsWellFormedCheckpointWithSchema(t *testing.T) {
	schemas, err := schema.NewRegistry()
	require.NoError(t, err)
	s := inmem.New(0, schemas)

	now := time.Now()
	cp := checkpoint.Checkpoint{
		CheckpointID: checkpoint.NewCheckpointID(now),
		ThreadID:     "thread-schema",
		Timestamp:    now,
		Content:      map[string]any{"step": "fetch"},
	}
	require.NoError(t, s.Put(context.Background(), cp))

	got, ok, err := s.GetTuple(context.Background(), "thread-schema")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, cp.CheckpointID, got.CheckpointID)
}
