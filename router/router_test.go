package router_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goa.design/skillrt/bridge"
	"goa.design/skillrt/command"
	"goa.design/skillrt/config"
	"goa.design/skillrt/router"
	"goa.design/skillrt/skill"
)

type identityEmbedder struct{ dim int }

func (e identityEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	v := make([]float32, e.dim)
	for i := range text {
		v[i%e.dim] += float32(text[i])
	}
	return v, nil
}

func setup(t *testing.T) (*router.Router, *command.Table) {
	t.Helper()
	ctx := context.Background()
	br, err := bridge.Open(ctx, 8, "")
	require.NoError(t, err)

	tbl := command.NewTable(command.NewSchemaCache(time.Minute))
	require.NoError(t, tbl.Register("filesystem", 1, []skill.CommandDef{
		{Name: "filesystem.read_files"},
	}))
	tbl.RegisterSpec(command.Spec{Name: "filesystem.read_files", Description: "read files from disk"})

	require.NoError(t, br.Upsert(ctx, []bridge.Document{
		{ID: "filesystem.read_files", Text: "read files from disk", Vector: []float32{1, 0, 0, 0, 0, 0, 0, 0}},
	}))

	cfg := config.Default().Router
	r := router.New(br, tbl, identityEmbedder{dim: 8}, cfg, nil)
	return r, tbl
}

func TestRouteExplicitCommandShortcut(t *testing.T) {
	r, _ := setup(t)
	res, err := r.Route(context.Background(), "filesystem.read_files", router.Context{})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, router.ConfidenceHigh, res.Confidence)
	assert.Equal(t, 1.0, res.Score)
	assert.Equal(t, "explicit_command", res.Reason)
}

func TestRouteUnknownExplicitCommandFallsThroughToSearch(t *testing.T) {
	r, _ := setup(t)
	res, err := r.Route(context.Background(), "git.status", router.Context{})
	require.NoError(t, err)
	// "git.status" isn't registered and won't score via keyword search
	// against "read files from disk" either; a nil result is valid here.
	if res != nil {
		assert.NotEqual(t, "git.status", res.Command)
	}
}

func TestRouteFiltersByScope(t *testing.T) {
	r, _ := setup(t)
	res, err := r.Route(context.Background(), "read files from disk", router.Context{Grants: []string{"git:*"}})
	require.NoError(t, err)
	assert.Nil(t, res, "filesystem command must be filtered out without a filesystem grant")
}

func TestRankReturnsExplicitCommandAsSingleEntry(t *testing.T) {
	r, _ := setup(t)
	res, err := r.Rank(context.Background(), "filesystem.read_files", router.Context{}, 5)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "filesystem.read_files", res[0].Command)
}

func TestRankOrdersCandidatesBestFirst(t *testing.T) {
	r, _ := setup(t)
	res, err := r.Rank(context.Background(), "read files from disk", router.Context{}, 0)
	require.NoError(t, err)
	require.NotEmpty(t, res)
	for i := 1; i < len(res); i++ {
		assert.GreaterOrEqual(t, res[i-1].Score, res[i].Score, "Rank must return candidates best score first")
	}
}

func TestRankRespectsTopN(t *testing.T) {
	r, _ := setup(t)
	res, err := r.Rank(context.Background(), "read files from disk", router.Context{}, 1)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(res), 1)
}

func TestRankFiltersByScope(t *testing.T) {
	r, _ := setup(t)
	res, err := r.Rank(context.Background(), "read files from disk", router.Context{Grants: []string{"git:*"}}, 0)
	require.NoError(t, err)
	assert.Empty(t, res, "filesystem command must be filtered out without a filesystem grant")
}

func TestTimeoutBucketing(t *testing.T) {
	assert.Equal(t, router.TimeoutShort, router.BucketFor(50*time.Millisecond))
	assert.Equal(t, router.TimeoutMedium, router.BucketFor(500*time.Millisecond))
	assert.Equal(t, router.TimeoutLong, router.BucketFor(5*time.Second))
}

func TestPersonalizedPageRankDegradesOnEmptySeeds(t *testing.T) {
	r, _ := setup(t)
	_, ok := r.PersonalizedPageRank(context.Background(), router.PPROptions{})
	assert.False(t, ok)
}

func TestMultiHiveFallsBackToDefaultDomain(t *testing.T) {
	r, _ := setup(t)
	mh := router.NewMultiHive("default")
	mh.Add("default", r)

	res, err := mh.Route(context.Background(), "filesystem.read_files", router.Context{Domain: "unregistered"})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "filesystem.read_files", res.Command)
}
