package retriever_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goa.design/skillrt/bridge"
	"goa.design/skillrt/command"
	"goa.design/skillrt/config"
	"goa.design/skillrt/retriever"
	"goa.design/skillrt/router"
	"goa.design/skillrt/schema"
	"goa.design/skillrt/skill"
	"goa.design/skillrt/telemetry"
	"goa.design/skillrt/toolindex"
)

type identityEmbedder struct{ dim int }

func (e identityEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	v := make([]float32, e.dim)
	for i := range text {
		v[i%e.dim] += float32(text[i])
	}
	return v, nil
}

func setup(t *testing.T) *retriever.Retriever {
	t.Helper()
	ctx := context.Background()
	br, err := bridge.Open(ctx, 8, "")
	require.NoError(t, err)

	tbl := command.NewTable(command.NewSchemaCache(time.Minute))
	require.NoError(t, tbl.Register("filesystem", 1, []skill.CommandDef{{Name: "filesystem.read_files"}}))
	tbl.RegisterSpec(command.Spec{Name: "filesystem.read_files", Description: "read files from disk"})

	in := toolindex.NewIngestor(br, identityEmbedder{dim: 8}, telemetry.NewNoopLogger())
	_, err = in.IngestTable(ctx, tbl)
	require.NoError(t, err)

	r := router.New(br, tbl, identityEmbedder{dim: 8}, config.Default().Router, nil)
	ret, err := retriever.New(r, in, tbl, retriever.Options{})
	require.NoError(t, err)
	return ret
}

func setupWithSchemas(t *testing.T) *retriever.Retriever {
	t.Helper()
	ctx := context.Background()
	br, err := bridge.Open(ctx, 8, "")
	require.NoError(t, err)

	tbl := command.NewTable(command.NewSchemaCache(time.Minute))
	require.NoError(t, tbl.Register("filesystem", 1, []skill.CommandDef{{Name: "filesystem.read_files"}}))
	tbl.RegisterSpec(command.Spec{Name: "filesystem.read_files", Description: "read files from disk"})

	in := toolindex.NewIngestor(br, identityEmbedder{dim: 8}, telemetry.NewNoopLogger())
	_, err = in.IngestTable(ctx, tbl)
	require.NoError(t, err)

	r := router.New(br, tbl, identityEmbedder{dim: 8}, config.Default().Router, nil)
	schemas, err := schema.NewRegistry()
	require.NoError(t, err)
	ret, err := retriever.New(r, in, tbl, retriever.Options{Schemas: schemas})
	require.NoError(t, err)
	return ret
}

func TestRetrieverDiscoverReturnsOrderedValidatedMatches(t *testing.T) {
	ret := setupWithSchemas(t)
	matches, err := ret.Discover(context.Background(), retriever.DiscoverRequest{Query: "filesystem.read_files"})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "filesystem.read_files", matches[0].Tool)
	assert.Equal(t, "read files from disk", matches[0].UsageTemplate)
	assert.NotEmpty(t, matches[0].InputSchemaDigest)
	assert.Equal(t, "explicit_command", matches[0].RankingReason)
}

func TestRetrieverDiscoverRespectsTopN(t *testing.T) {
	ret := setupWithSchemas(t)
	matches, err := ret.Discover(context.Background(), retriever.DiscoverRequest{Query: "read files from disk", TopN: 1})
	require.NoError(t, err)
	assert.LessOrEqual(t, len(matches), 1)
}

func TestRetrieverSearchDefaultsToHybrid(t *testing.T) {
	ret := setup(t)
	res, err := ret.Search(context.Background(), retriever.SearchRequest{Query: "filesystem.read_files"})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "filesystem.read_files", res.Command)
}

func TestRetrieverRejectsUnknownBackend(t *testing.T) {
	ret := setup(t)
	_, err := ret.Search(context.Background(), retriever.SearchRequest{Query: "x", Backend: "nonsense"})
	require.Error(t, err)
}

func TestRetrieverRejectsLegacyBackendAlias(t *testing.T) {
	ret := setup(t)
	_, err := ret.Search(context.Background(), retriever.SearchRequest{Query: "x", Backend: "semantic"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vector")
}

func TestRetrieverNewRejectsUnknownDefaultBackend(t *testing.T) {
	_, err := retriever.New(nil, nil, nil, retriever.Options{DefaultBackend: "bm25"})
	require.Error(t, err)
}

func TestRetrieverGetStatsReportsIndexedDocuments(t *testing.T) {
	ret := setup(t)
	stats := ret.GetStats(context.Background())
	assert.Equal(t, 1, stats.DocumentCount)
}

func TestRetrieverIndexIsIdempotent(t *testing.T) {
	ret := setup(t)
	n, err := ret.Index(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
