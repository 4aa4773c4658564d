// Package inmem implements an in-process checkpoint.Store, the default
// backend used by tests and single-process deployments.
package inmem

import (
	"context"
	"fmt"
	"sync"

	"goa.design/skillrt/checkpoint"
	"goa.design/skillrt/rterrors"
	"goa.design/skillrt/schema"
)

// Store is a thread-safe, in-memory checkpoint.Store. Each thread's chain
// is stored as an ordered slice; Put appends, never mutates or reorders.
type Store struct {
	mu        sync.RWMutex
	dimension int
	schemas   *schema.Registry
	threads   map[string][]checkpoint.Checkpoint
}

// New constructs an empty Store. dimension, if nonzero, is enforced on
// every Put call; pass 0 to accept checkpoints of any embedding length
// (or none). schemas, if non-nil, is validated against on every Put; pass
// nil to skip schema validation (tests that don't exercise it).
func New(dimension int, schemas *schema.Registry) *Store {
	return &Store{dimension: dimension, schemas: schemas, threads: map[string][]checkpoint.Checkpoint{}}
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
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threads[cp.ThreadID] = append(s.threads[cp.ThreadID], cp)
	return nil
}

func (s *Store) GetTuple(ctx context.Context, threadID string) (checkpoint.Checkpoint, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chain := s.threads[threadID]
	if len(chain) == 0 {
		return checkpoint.Checkpoint{}, false, nil
	}
	return chain[len(chain)-1], true, nil
}

func (s *Store) List(ctx context.Context, threadID string) ([]checkpoint.Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chain := s.threads[threadID]
	out := make([]checkpoint.Checkpoint, len(chain))
	copy(out, chain)
	return out, nil
}
