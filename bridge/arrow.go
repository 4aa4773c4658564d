package bridge

import (
	"bytes"
	"encoding/gob"
	"fmt"
)

// Batch is the native bridge's bulk-transfer envelope: a column-oriented
// slice of Documents moved in one call instead of one round trip per
// document (spec.md §4.9's "Arrow IPC hot path"). No Go binding for Apache
// Arrow IPC appears anywhere in the retrieved corpus (the only lead,
// lancedb-go, ships its own dependency on Arrow commented out and broken in
// the one example that references it), so this bridge uses encoding/gob as
// the binary batch envelope instead: it is the standard-library analogue
// of a columnar wire format — self-describing, streamable, and already the
// corpus's convention for binary snapshotting (see checkpoint/cache's Redis
// value encoding).
type Batch struct {
	Documents []Document
}

// EncodeBatch serializes docs into a gob-encoded Batch envelope.
func EncodeBatch(docs []Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(Batch{Documents: docs}); err != nil {
		return nil, fmt.Errorf("bridge: encode batch: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeBatch deserializes a gob-encoded Batch envelope back into its
// Documents.
func DecodeBatch(raw []byte) ([]Document, error) {
	var batch Batch
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&batch); err != nil {
		return nil, fmt.Errorf("bridge: decode batch: %w", err)
	}
	return batch.Documents, nil
}
