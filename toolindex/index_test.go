package toolindex_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goa.design/skillrt/bridge"
	"goa.design/skillrt/command"
	"goa.design/skillrt/skill"
	"goa.design/skillrt/toolindex"
)

type stubEmbedder struct{ dim int }

func (s stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	v := make([]float32, s.dim)
	for i := range v {
		v[i] = float32(len(text)%7) / 7
	}
	return v, nil
}

func TestIngestorIngestTableIsIdempotent(t *testing.T) {
	ctx := context.Background()
	br, err := bridge.Open(ctx, 8, "")
	require.NoError(t, err)

	tbl := command.NewTable(command.NewSchemaCache(time.Minute))
	require.NoError(t, tbl.Register("filesystem", 1, []skill.CommandDef{
		{Name: "filesystem.read_files", Handler: func(context.Context, map[string]any) (any, error) { return nil, nil }},
	}))
	tbl.RegisterSpec(command.Spec{Name: "filesystem.read_files", Description: "reads file contents"})

	in := toolindex.NewIngestor(br, stubEmbedder{dim: 8}, nil)

	n, err := in.IngestTable(ctx, tbl)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// Re-ingesting the same table must not error or duplicate rows.
	n, err = in.IngestTable(ctx, tbl)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stats := in.GetStats(ctx, tbl)
	assert.Equal(t, 1, stats.DocumentCount)
}

func TestIngestorWithoutEmbedderSkipsVectors(t *testing.T) {
	ctx := context.Background()
	br, err := bridge.Open(ctx, 4, "")
	require.NoError(t, err)

	tbl := command.NewTable(command.NewSchemaCache(time.Minute))
	require.NoError(t, tbl.Register("calc", 1, []skill.CommandDef{
		{Name: "calc.add"},
	}))

	in := toolindex.NewIngestor(br, nil, nil)
	n, err := in.IngestTable(ctx, tbl)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
