// Package bridge implements the native bridge (spec.md §4.9): a uniform,
// asynchronous handle over the four storage surfaces the rest of the
// runtime depends on — vector search, keyword search, the relationship
// graph, and checkpoint persistence. Every method blocks only on the
// context passed to it; callers that want fire-and-forget semantics run the
// call in a goroutine themselves, the same convention the teacher's
// toolregistry/executor package uses for its Pulse-backed calls.
package bridge

import (
	"context"

	"goa.design/skillrt/schema"
)

// VectorMatch is one nearest-neighbor result from the vector store.
type VectorMatch struct {
	ID       string
	Score    float64
	Metadata map[string]string
}

// KeywordMatch is one result from the keyword index.
type KeywordMatch struct {
	ID    string
	Score float64
}

// Document is the unit indexed by both the vector store and the keyword
// index, keyed by a shared ID so the router can fuse scores across them.
type Document struct {
	ID       string
	Text     string
	Vector   []float32
	Metadata map[string]string
}

// Bridge is the native bridge's full surface. Its implementation is Store
// (the chromem-go/bleve/JSON-graph backend); opened with an empty
// persistPath, Store keeps everything in memory, which is how tests use it.
type Bridge interface {
	// Dimension returns the embedding dimension this bridge was opened
	// with. Upsert and vector Search reject vectors of any other length.
	Dimension() int

	Upsert(ctx context.Context, docs []Document) error
	VectorSearch(ctx context.Context, vector []float32, topN int) ([]VectorMatch, error)
	KeywordSearch(ctx context.Context, query string, topN int) ([]KeywordMatch, error)

	Graph() *RelationshipGraph

	CheckpointRegistry() *schema.Registry
}
