// Package embedding provides a deterministic stand-in embedder for the
// cmd/ entrypoints. A real embedding model is explicitly out of scope for
// this runtime (spec.md treats the embedding call as a pluggable dependency
// the host process supplies); HashEmbedder exists only so the demo host and
// ingest CLI have something to pass to toolindex.Ingestor and router.Router
// without wiring an external provider.
package embedding

import (
	"context"
	"hash/fnv"
)

// HashEmbedder turns text into a fixed-width vector by hashing overlapping
// trigrams into buckets, giving near-duplicate strings similar vectors
// without calling out to any model. It satisfies toolindex.Embedder and
// router.Embedder.
type HashEmbedder struct {
	Dimension int
}

// NewHashEmbedder constructs a HashEmbedder of the given width.
func NewHashEmbedder(dimension int) HashEmbedder {
	return HashEmbedder{Dimension: dimension}
}

// Embed implements the Embedder interfaces toolindex and router depend on.
func (e HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	v := make([]float32, e.Dimension)
	if e.Dimension == 0 {
		return v, nil
	}
	const n = 3
	runes := []rune(text)
	if len(runes) < n {
		h := fnv.New32a()
		_, _ = h.Write([]byte(text))
		v[int(h.Sum32())%e.Dimension] += 1
		return v, nil
	}
	for i := 0; i+n <= len(runes); i++ {
		h := fnv.New32a()
		_, _ = h.Write([]byte(string(runes[i : i+n])))
		v[int(h.Sum32())%e.Dimension] += 1
	}
	return v, nil
}
