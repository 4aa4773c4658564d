package bridge_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goa.design/skillrt/bridge"
)

func TestRelationshipGraphRelated(t *testing.T) {
	g := bridge.NewRelationshipGraph()
	g.RecordCooccurrence([]string{"filesystem.read_files", "filesystem.write_files"})
	g.RecordCooccurrence([]string{"filesystem.read_files", "filesystem.write_files"})
	g.RecordCooccurrence([]string{"filesystem.read_files", "git.status"})

	related := g.Related("filesystem.read_files", 10)
	require.Len(t, related, 2)
	assert.Equal(t, "filesystem.write_files", related[0].ID, "stronger co-occurrence should rank first")
}

func TestRelationshipGraphSaveLoadRoundTrip(t *testing.T) {
	g := bridge.NewRelationshipGraph()
	g.RecordCooccurrence([]string{"a", "b"})
	g.RecordCooccurrence([]string{"a", "c"})

	path := filepath.Join(t.TempDir(), "graph.json")
	require.NoError(t, g.Save(path))

	loaded, err := bridge.LoadRelationshipGraph(path)
	require.NoError(t, err)
	assert.Equal(t, g.Related("a", 10), loaded.Related("a", 10))
}

func TestLoadRelationshipGraphMissingFileIsEmpty(t *testing.T) {
	g, err := bridge.LoadRelationshipGraph(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.Empty(t, g.Related("anything", 10))
}

func TestBatchEncodeDecodeRoundTrip(t *testing.T) {
	docs := []bridge.Document{
		{ID: "a", Text: "alpha", Vector: []float32{0.1, 0.2}},
		{ID: "b", Text: "beta", Metadata: map[string]string{"k": "v"}},
	}
	raw, err := bridge.EncodeBatch(docs)
	require.NoError(t, err)

	decoded, err := bridge.DecodeBatch(raw)
	require.NoError(t, err)
	assert.Equal(t, docs, decoded)
}
