package workflow_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goa.design/skillrt/config"
	"goa.design/skillrt/workflow"
)

func targets(n int, prefix string) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = prefix + string(rune('a'+i))
	}
	return out
}

func TestNormalizeChunksSplitsOversized(t *testing.T) {
	cfg := config.ChunkConfig{MaxPerChunk: 3, MaxTotal: 0, MinToMerge: 0}
	plan := []workflow.Chunk{{ChunkID: "c1", Targets: targets(7, "t")}}

	out := workflow.NormalizeChunks(plan, cfg)

	require := func(cond bool, msg string) {
		if !cond {
			t.Fatal(msg)
		}
	}
	require(len(out) == 3, "expected 3 parts")
	assert.Equal(t, 3, len(out[0].Targets))
	assert.Equal(t, 3, len(out[1].Targets))
	assert.Equal(t, 1, len(out[2].Targets))
}

func TestNormalizeChunksCapsTotal(t *testing.T) {
	cfg := config.ChunkConfig{MaxPerChunk: 0, MaxTotal: 5, MinToMerge: 0}
	plan := []workflow.Chunk{
		{ChunkID: "c1", Targets: targets(3, "a")},
		{ChunkID: "c2", Targets: targets(4, "b")},
	}

	out := workflow.NormalizeChunks(plan, cfg)

	total := 0
	for _, c := range out {
		total += len(c.Targets)
	}
	assert.Equal(t, 5, total)
}

func TestNormalizeChunksMergesTiny(t *testing.T) {
	cfg := config.ChunkConfig{MaxPerChunk: 10, MaxTotal: 0, MinToMerge: 3}
	plan := []workflow.Chunk{
		{ChunkID: "c1", Targets: targets(1, "a")},
		{ChunkID: "c2", Targets: targets(1, "b")},
		{ChunkID: "c3", Targets: targets(5, "c")}, // already big enough, stays separate
	}

	out := workflow.NormalizeChunks(plan, cfg)

	require := func(cond bool, msg string) {
		if !cond {
			t.Fatal(msg)
		}
	}
	require(len(out) == 2, "expected the two tiny chunks merged, the big one separate")
	assert.Equal(t, 2, len(out[0].Targets))
	assert.Equal(t, 5, len(out[1].Targets))
}

func TestNormalizeChunksMergesChunkEqualToThreshold(t *testing.T) {
	cfg := config.ChunkConfig{MaxPerChunk: 10, MaxTotal: 0, MinToMerge: 3}
	plan := []workflow.Chunk{
		{ChunkID: "c1", Targets: targets(3, "a")}, // size == MinToMerge, still tiny
		{ChunkID: "c2", Targets: targets(1, "b")},
	}

	out := workflow.NormalizeChunks(plan, cfg)

	require.Len(t, out, 1, "a chunk whose size equals MinToMerge must still merge")
	assert.Equal(t, 4, len(out[0].Targets))
}

func TestNormalizeChunksMergeRespectsMaxPerChunk(t *testing.T) {
	cfg := config.ChunkConfig{MaxPerChunk: 2, MaxTotal: 0, MinToMerge: 3}
	plan := []workflow.Chunk{
		{ChunkID: "c1", Targets: targets(1, "a")},
		{ChunkID: "c2", Targets: targets(1, "b")},
		{ChunkID: "c3", Targets: targets(1, "c")},
	}

	out := workflow.NormalizeChunks(plan, cfg)

	// merging all three would exceed MaxPerChunk=2, so it stops at two.
	for _, c := range out {
		assert.LessOrEqual(t, len(c.Targets), 2)
	}
}
