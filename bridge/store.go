package bridge

import (
	"context"
	"fmt"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/philippgille/chromem-go"

	"goa.design/skillrt/rterrors"
	"goa.design/skillrt/schema"
)

// bleveDoc is the shape indexed into bleve: a flat document keyed by ID,
// matching the "new schema" spec.md calls for — no opaque metadata blob,
// every field a first-class, independently queryable column.
type bleveDoc struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Store is the production Bridge: chromem-go for vector search, bleve for
// keyword search, and an in-process RelationshipGraph, all behind one
// handle. Open rejects a non-positive dimension; it does not compare the
// dimension with vectors already persisted at persistPath. Upsert and
// VectorSearch reject vectors whose length differs from the dimension
// rather than truncating or padding them.
type Store struct {
	mu        sync.RWMutex
	dimension int

	db         *chromem.DB
	collection *chromem.Collection
	index      bleve.Index
	graph      *RelationshipGraph
	schemas    *schema.Registry
}

// Open constructs a Store with an in-memory chromem-go database and an
// in-memory bleve index. persistPath, if non-empty, makes chromem-go
// persist its collection to disk between restarts.
func Open(ctx context.Context, dimension int, persistPath string) (*Store, error) {
	if dimension <= 0 {
		return nil, &rterrors.StorageError{Op: "open", Code: rterrors.CodeStorageDimension, Err: fmt.Errorf("dimension must be positive, got %d", dimension)}
	}

	var db *chromem.DB
	var err error
	if persistPath != "" {
		db, err = chromem.NewPersistentDB(persistPath, false)
	} else {
		db = chromem.NewDB()
	}
	if err != nil {
		return nil, &rterrors.StorageError{Op: "open", Code: rterrors.CodeStorageIO, Err: err}
	}

	coll, err := db.GetOrCreateCollection("documents", nil, nil)
	if err != nil {
		return nil, &rterrors.StorageError{Op: "open", Code: rterrors.CodeStorageIO, Err: err}
	}

	mapping := bleve.NewIndexMapping()
	idx, err := bleve.NewMemOnly(mapping)
	if err != nil {
		return nil, &rterrors.StorageError{Op: "open", Code: rterrors.CodeStorageIO, Err: err}
	}

	registry, err := schema.NewRegistry()
	if err != nil {
		return nil, &rterrors.StorageError{Op: "open", Code: rterrors.CodeStorageSchema, Err: err}
	}

	return &Store{
		dimension:  dimension,
		db:         db,
		collection: coll,
		index:      idx,
		graph:      NewRelationshipGraph(),
		schemas:    registry,
	}, nil
}

func (s *Store) Dimension() int { return s.dimension }

// Upsert writes docs to both the vector store and the keyword index. If any
// document has a non-empty Vector whose length does not match Dimension,
// the whole batch is rejected before any write is attempted. A document
// with an empty Vector is indexed for keyword search only. A storage error
// partway through a batch leaves the documents written before it in place.
func (s *Store) Upsert(ctx context.Context, docs []Document) error {
	for _, d := range docs {
		if len(d.Vector) != 0 && len(d.Vector) != s.dimension {
			return &rterrors.StorageError{
				Op:   "upsert",
				Code: rterrors.CodeStorageDimension,
				Err:  fmt.Errorf("document %q has vector of length %d, want %d", d.ID, len(d.Vector), s.dimension),
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, d := range docs {
		if len(d.Vector) > 0 {
			doc := chromem.Document{ID: d.ID, Content: d.Text, Embedding: d.Vector, Metadata: d.Metadata}
			if err := s.collection.AddDocument(ctx, doc); err != nil {
				return &rterrors.StorageError{Op: "upsert", Code: rterrors.CodeStorageIO, Err: err}
			}
		}
		if err := s.index.Index(d.ID, bleveDoc{ID: d.ID, Text: d.Text}); err != nil {
			return &rterrors.StorageError{Op: "upsert", Code: rterrors.CodeStorageIO, Err: err}
		}
	}
	return nil
}

// VectorSearch returns the topN nearest documents to vector by cosine
// similarity, as computed by chromem-go.
func (s *Store) VectorSearch(ctx context.Context, vector []float32, topN int) ([]VectorMatch, error) {
	if len(vector) != s.dimension {
		return nil, &rterrors.StorageError{
			Op:   "vector_search",
			Code: rterrors.CodeStorageDimension,
			Err:  fmt.Errorf("query vector has length %d, want %d", len(vector), s.dimension),
		}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	results, err := s.collection.QueryEmbedding(ctx, vector, topN, nil, nil)
	if err != nil {
		return nil, &rterrors.StorageError{Op: "vector_search", Code: rterrors.CodeStorageIO, Err: err}
	}
	out := make([]VectorMatch, 0, len(results))
	for _, r := range results {
		out = append(out, VectorMatch{ID: r.ID, Score: float64(r.Similarity), Metadata: r.Metadata})
	}
	return out, nil
}

// KeywordSearch runs a bleve match query over the indexed text and returns
// the topN hits by BM25-class score.
func (s *Store) KeywordSearch(ctx context.Context, query string, topN int) ([]KeywordMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	req := bleve.NewSearchRequestOptions(bleve.NewMatchQuery(query), topN, 0, false)
	result, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, &rterrors.StorageError{Op: "keyword_search", Code: rterrors.CodeStorageIO, Err: err}
	}
	out := make([]KeywordMatch, 0, len(result.Hits))
	for _, hit := range result.Hits {
		out = append(out, KeywordMatch{ID: hit.ID, Score: hit.Score})
	}
	return out, nil
}

func (s *Store) Graph() *RelationshipGraph { return s.graph }

func (s *Store) CheckpointRegistry() *schema.Registry { return s.schemas }
