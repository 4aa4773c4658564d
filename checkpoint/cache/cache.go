// Package cache wraps a checkpoint.Store with a Redis write-through cache
// for the most recent checkpoint per thread, the hot path GetTuple serves
// on every workflow resume (spec.md §4.10).
package cache

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"goa.design/skillrt/checkpoint"
)

const keyPrefix = "skillrt:checkpoint:latest:"

// Store wraps an underlying checkpoint.Store with a Redis write-through
// cache: Put writes to both backends (the durable store first, then Redis;
// a Redis failure after a successful durable write is ignored); GetTuple
// reads Redis first and
// falls back to the underlying store on a cache miss, repopulating Redis.
type Store struct {
	underlying checkpoint.Store
	redis      *redis.Client
	ttl        time.Duration
}

// New wraps underlying with a Redis cache using client, keyed by thread ID
// with the given TTL.
func New(underlying checkpoint.Store, client *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Store{underlying: underlying, redis: client, ttl: ttl}
}

func (s *Store) Put(ctx context.Context, cp checkpoint.Checkpoint) error {
	if err := s.underlying.Put(ctx, cp); err != nil {
		return err
	}
	raw, err := encode(cp)
	if err != nil {
		// The durable write already succeeded; a cache encoding failure
		// degrades to a cache miss on the next read, not data loss.
		return nil //nolint:nilerr
	}
	_ = s.redis.Set(ctx, keyPrefix+cp.ThreadID, raw, s.ttl).Err()
	return nil
}

func (s *Store) GetTuple(ctx context.Context, threadID string) (checkpoint.Checkpoint, bool, error) {
	raw, err := s.redis.Get(ctx, keyPrefix+threadID).Bytes()
	if err == nil {
		cp, decErr := decode(raw)
		if decErr == nil {
			return cp, true, nil
		}
	}
	cp, ok, err := s.underlying.GetTuple(ctx, threadID)
	if err != nil {
		return checkpoint.Checkpoint{}, false, err
	}
	if ok {
		if raw, encErr := encode(cp); encErr == nil {
			_ = s.redis.Set(ctx, keyPrefix+threadID, raw, s.ttl).Err()
		}
	}
	return cp, ok, nil
}

func (s *Store) List(ctx context.Context, threadID string) ([]checkpoint.Checkpoint, error) {
	// The full chain is never cached, only the latest tuple: Redis would
	// otherwise need invalidation on every append, and List is the cold
	// path (resume-from-scratch, audit), not the per-step hot path.
	return s.underlying.List(ctx, threadID)
}

func encode(cp checkpoint.Checkpoint) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(cp); err != nil {
		return nil, fmt.Errorf("checkpoint cache: encode: %w", err)
	}
	return buf.Bytes(), nil
}

func decode(raw []byte) (checkpoint.Checkpoint, error) {
	var cp checkpoint.Checkpoint
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&cp); err != nil {
		return checkpoint.Checkpoint{}, fmt.Errorf("checkpoint cache: decode: %w", err)
	}
	return cp, nil
}
