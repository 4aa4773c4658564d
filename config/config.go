// Package config holds the recognized runtime configuration options
// (spec.md §6). Components accept a *Config (or a narrow slice of it)
// rather than reading globals, so the whole runtime can be constructed
// multiple times in the same process (as tests do).
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config aggregates every recognized option from spec.md's configuration
// table. Zero values fall back to the defaults documented per field.
type Config struct {
	Embedding  EmbeddingConfig
	Router     RouterConfig
	Loader     LoaderConfig
	Workflow   WorkflowConfig
	Chunk      ChunkConfig
	Execution  ExecutionConfig
	Cache      CacheConfig
	Memory     MemoryConfig
}

// EmbeddingConfig controls the vector dimension used by the tool index and
// checkpoint embeddings. bridge.Open does not compare it with vectors
// already persisted on disk; Upsert and VectorSearch reject vectors of any
// other length.
type EmbeddingConfig struct {
	// Dimension is the embedding vector width. Defaults to 1536.
	Dimension int
}

// RouterConfig controls hybrid-search fusion weights and confidence bands.
type RouterConfig struct {
	// Alpha weighs vector similarity against keyword score in [0,1].
	// Defaults to 0.7.
	Alpha float64
	// RelationshipBoost (β) scales the neighbor boost added during
	// relationship rerank. Defaults to 0.06.
	RelationshipBoost float64
	// ConfidenceHigh is the score floor for "high" confidence. Defaults to 0.75.
	ConfidenceHigh float64
	// ConfidenceMedium is the score floor for "medium" confidence. Defaults to 0.45.
	ConfidenceMedium float64
	// VectorTopN bounds vector search fan-out before fusion. Defaults to 10.
	VectorTopN int
}

// LoaderConfig controls skill discovery and hot reload.
type LoaderConfig struct {
	// HotReload enables the filesystem watcher that reloads a skill when
	// its files change.
	HotReload bool
	// SchemaTTL is how long a generated input schema is cached before
	// regeneration is forced. Defaults to 10 minutes.
	SchemaTTL time.Duration
}

// WorkflowConfig controls the workflow engine's default concurrency.
type WorkflowConfig struct {
	// MaxConcurrent bounds concurrent node execution within one fan-out
	// level. Zero means unbounded.
	MaxConcurrent int
}

// ChunkConfig bounds fan-out normalization (spec.md §4.10, §8).
type ChunkConfig struct {
	// MaxPerChunk is the maximum size any single normalized chunk may have.
	MaxPerChunk int
	// MaxTotal caps the sum of all chunk sizes after normalization.
	MaxTotal int
	// MinToMerge is the size threshold under which consecutive tiny
	// chunks are merged, as long as the merge stays ≤ MaxPerChunk.
	MinToMerge int
}

// ExecutionConfig controls the kernel's per-call timeout.
type ExecutionConfig struct {
	// Timeout bounds a single tool invocation. Zero means no timeout.
	Timeout time.Duration
	// ChunkThreshold is the result size (item count) above which the
	// kernel switches a handler's return value to the chunked
	// start/batch pull contract instead of returning it inline.
	// Defaults to 200.
	ChunkThreshold int
	// ChunkBatchSize is the size of each batch the kernel splits an
	// oversized result into. Defaults to 50.
	ChunkBatchSize int
	// SessionTTL bounds how long a chunk session's remaining batches
	// stay pullable before the session store evicts it. Defaults to 10
	// minutes.
	SessionTTL time.Duration
}

// CacheConfig controls the command schema cache TTL.
type CacheConfig struct {
	// SchemaTTL is how long a generated command input schema is cached.
	SchemaTTL time.Duration
}

// MemoryConfig bounds process memory growth during long ingests.
type MemoryConfig struct {
	// CapMB is the soft process memory cap in megabytes.
	CapMB int
	// DeltaMB is the growth delta that triggers eviction of cached handles.
	DeltaMB int
}

// Default returns a Config populated with the defaults named throughout
// spec.md.
func Default() *Config {
	return &Config{
		Embedding: EmbeddingConfig{Dimension: 1536},
		Router: RouterConfig{
			Alpha:             0.7,
			RelationshipBoost: 0.06,
			ConfidenceHigh:    0.75,
			ConfidenceMedium:  0.45,
			VectorTopN:        10,
		},
		Loader: LoaderConfig{
			HotReload: true,
			SchemaTTL: 10 * time.Minute,
		},
		Workflow: WorkflowConfig{MaxConcurrent: 0},
		Chunk: ChunkConfig{
			MaxPerChunk: 50,
			MaxTotal:    500,
			MinToMerge:  5,
		},
		Execution: ExecutionConfig{
			Timeout:        30 * time.Second,
			ChunkThreshold: 200,
			ChunkBatchSize: 50,
			SessionTTL:     10 * time.Minute,
		},
		Cache:     CacheConfig{SchemaTTL: 10 * time.Minute},
		Memory:    MemoryConfig{CapMB: 1024, DeltaMB: 256},
	}
}

// Load reads a YAML config file and overlays it onto Default(), so a file
// only needs to name the fields it overrides. A missing path is not an
// error — callers pass an empty string to mean "use defaults", the same
// convention cmd/skillrtd's --config flag follows.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}
