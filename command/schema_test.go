package command_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goa.design/skillrt/command"
	"goa.design/skillrt/skill"
)

func TestParseArgsDoc(t *testing.T) {
	doc := `Reads the contents of a file.

Args:
    path (string, required): absolute path to the file to read.
    encoding (string): text encoding; defaults to utf-8.
    max_bytes (integer, required): maximum bytes to read.

Returns:
    the file contents as a string.
`
	params := command.ParseArgsDoc(doc)
	require.Len(t, params, 3)
	assert.Equal(t, "path", params[0].Name)
	assert.Equal(t, "string", params[0].Type)
	assert.True(t, params[0].Required)
	assert.Equal(t, "encoding", params[1].Name)
	assert.False(t, params[1].Required)
	assert.Equal(t, "max_bytes", params[2].Name)
	assert.Equal(t, "integer", params[2].Type)
	assert.True(t, params[2].Required)
}

func TestBuildInputSchema(t *testing.T) {
	params := []command.Param{
		{Name: "path", Type: "string", Required: true},
		{Name: "encoding", Type: "string"},
	}
	schema := command.BuildInputSchema(params)
	assert.Equal(t, "object", schema["type"])
	required, ok := schema["required"].([]string)
	require.True(t, ok)
	assert.Equal(t, []string{"path"}, required)
}

func TestValidateCallReportsAllMissing(t *testing.T) {
	spec := command.Spec{
		Name: "filesystem.read_files",
		Params: []command.Param{
			{Name: "path", Required: true},
			{Name: "max_bytes", Required: true},
		},
	}
	err := command.ValidateCall(spec, map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path")
	assert.Contains(t, err.Error(), "max_bytes")

	require.NoError(t, command.ValidateCall(spec, map[string]any{"path": "/tmp/x", "max_bytes": 10}))
}

func TestSchemaCacheTTL(t *testing.T) {
	cache := command.NewSchemaCache(50 * time.Millisecond)
	params := []command.Param{{Name: "a", Type: "string"}}
	first := cache.Get("s.a", params)
	second := cache.Get("s.a", params)
	assert.Equal(t, first, second)

	cache.Invalidate("s.a")
	rebuilt := cache.Get("s.a", params)
	assert.Equal(t, first, rebuilt)
}

func TestTableRegisterAndDispatch(t *testing.T) {
	tbl := command.NewTable(command.NewSchemaCache(time.Minute))
	called := false
	err := tbl.Register("calc", 1, []skill.CommandDef{
		{Name: "calc.add", Handler: func(ctx context.Context, args map[string]any) (any, error) {
			called = true
			return 42, nil
		}},
	})
	require.NoError(t, err)

	cmd, ok := tbl.Lookup("calc.add")
	require.True(t, ok)
	assert.Equal(t, 1, cmd.Epoch)

	result, err := tbl.Dispatch(context.Background(), "calc.add", nil)
	require.NoError(t, err)
	assert.Equal(t, 42, result)
	assert.True(t, called)
}

func TestTableReloadReplacesSkillCommandsAtomically(t *testing.T) {
	tbl := command.NewTable(command.NewSchemaCache(time.Minute))
	require.NoError(t, tbl.Register("calc", 1, []skill.CommandDef{
		{Name: "calc.add"}, {Name: "calc.sub"},
	}))
	require.NoError(t, tbl.Register("calc", 2, []skill.CommandDef{
		{Name: "calc.add"},
	}))

	_, ok := tbl.Lookup("calc.sub")
	assert.False(t, ok, "reload must drop commands the new epoch no longer publishes")

	cmd, ok := tbl.Lookup("calc.add")
	require.True(t, ok)
	assert.Equal(t, 2, cmd.Epoch)
}

func TestTableRegisterRejectsMalformedName(t *testing.T) {
	tbl := command.NewTable(command.NewSchemaCache(time.Minute))
	err := tbl.Register("calc", 1, []skill.CommandDef{{Name: "noseparator"}})
	require.Error(t, err)
}
