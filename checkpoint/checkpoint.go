// Package checkpoint implements the checkpointed workflow state store
// (spec.md §4.10): an append-only, per-thread chain of schema-validated
// records, with pluggable in-memory, MongoDB, and Redis-cached backends.
package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"goa.design/skillrt/rterrors"
	"goa.design/skillrt/schema"
)

// Checkpoint is one append-only record in a thread's chain, matching the
// checkpoint.json schema.
type Checkpoint struct {
	CheckpointID string         `json:"checkpoint_id"`
	ThreadID     string         `json:"thread_id"`
	Timestamp    time.Time      `json:"timestamp"`
	Content      map[string]any `json:"content"`
	ParentID     string         `json:"parent_id,omitempty"`
	Embedding    []float32      `json:"embedding,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// NewCheckpointID mints a lexically sortable, monotonic-within-process
// checkpoint ID. ULIDs carry their creation instant in their first 48
// bits, so chain ordering (spec.md §8 "checkpoint chain ordering") holds
// even when two checkpoints are appended within the same millisecond on
// different goroutines, as long as the entropy source is monotonic.
var ulidEntropy = ulid.DefaultEntropy()

func NewCheckpointID(t time.Time) string {
	return ulid.MustNew(ulid.Timestamp(t), ulidEntropy).String()
}

// ValidateRecord checks cp against the checkpoint.json schema before a
// backend's Put writes it, matching spec.md §4.9/§8's testable invariant
// that every checkpoint written satisfies validate(checkpoint_schema,
// payload). Content and Metadata are opaque application payloads the
// schema models as encoded JSON strings, and Timestamp is rendered as a
// Unix-epoch number rather than Go's RFC3339 time.Time encoding, so the
// wire shape matches schemas/checkpoint.json rather than Checkpoint's own
// json tags.
func ValidateRecord(schemas *schema.Registry, cp Checkpoint) error {
	payload := map[string]any{
		"checkpoint_id": cp.CheckpointID,
		"thread_id":     cp.ThreadID,
		"timestamp":     float64(cp.Timestamp.UnixNano()) / 1e9,
		"content":       encodeJSONString(cp.Content),
	}
	if cp.ParentID != "" {
		payload["parent_id"] = cp.ParentID
	}
	if len(cp.Embedding) > 0 {
		payload["embedding"] = cp.Embedding
	}
	if len(cp.Metadata) > 0 {
		payload["metadata"] = encodeJSONString(cp.Metadata)
	}
	if err := schemas.Validate(schema.Checkpoint, payload); err != nil {
		if verr, ok := err.(*schema.ValidationError); ok {
			return &rterrors.ContractError{Schema: string(verr.Schema), JSONPointer: verr.JSONPointer, Msg: verr.Msg}
		}
		return fmt.Errorf("checkpoint: %w", err)
	}
	return nil
}

func encodeJSONString(v map[string]any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(raw)
}

// Store is the append-only checkpoint persistence surface. Put appends;
// GetTuple retrieves the most recent checkpoint for a thread (its ParentID
// names the checkpoint before it); List returns every checkpoint for a
// thread in chain order.
type Store interface {
	// Put appends cp to its thread's chain. Put rejects a Checkpoint whose
	// Embedding length doesn't match the store's configured dimension,
	// before any write lands (spec.md "dimension-mismatch rejection
	// before write").
	Put(ctx context.Context, cp Checkpoint) error

	// GetTuple returns the most recent checkpoint for threadID, or
	// ok=false if the thread has no checkpoints.
	GetTuple(ctx context.Context, threadID string) (Checkpoint, bool, error)

	// List returns every checkpoint for threadID in chain order (oldest
	// first).
	List(ctx context.Context, threadID string) ([]Checkpoint, error)
}
