package engineinmem_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goa.design/skillrt/checkpoint/inmem"
	"goa.design/skillrt/config"
	"goa.design/skillrt/workflow"
	"goa.design/skillrt/workflow/engineinmem"
)

type dispatcherFunc func(ctx context.Context, toolName string, args map[string]any) (any, error)

func (f dispatcherFunc) Call(ctx context.Context, toolName string, args map[string]any) (any, error) {
	return f(ctx, toolName, args)
}

func TestEngineRunReturnsMergedState(t *testing.T) {
	disp := dispatcherFunc(func(_ context.Context, toolName string, _ map[string]any) (any, error) {
		return toolName + "-result", nil
	})
	store := inmem.New(0, nil)
	eng := engineinmem.New(disp, store, config.ChunkConfig{}, 0)

	bp := workflow.Blueprint{
		Name:       "greet",
		EntryPoint: "hello",
		Nodes: map[string]workflow.Node{
			"hello": {ID: "hello", Kind: workflow.NodeKindCommand, Command: "greet.hello"},
		},
	}

	result, err := eng.Run(context.Background(), workflow.RunRequest{ThreadID: "t1", Blueprint: bp})
	require.NoError(t, err)
	assert.Equal(t, "greet.hello-result", result.State["hello"])
	assert.Equal(t, "t1", result.ThreadID)
}

func TestEngineResumeWithNoCheckpointRunsFromStart(t *testing.T) {
	disp := dispatcherFunc(func(_ context.Context, toolName string, _ map[string]any) (any, error) {
		return "ran", nil
	})
	store := inmem.New(0, nil)
	eng := engineinmem.New(disp, store, config.ChunkConfig{}, 0)

	bp := workflow.Blueprint{
		Name:       "fresh",
		EntryPoint: "step",
		Nodes: map[string]workflow.Node{
			"step": {ID: "step", Kind: workflow.NodeKindCommand, Command: "noop.step"},
		},
	}

	result, err := eng.Resume(context.Background(), bp, "never-started")
	require.NoError(t, err)
	assert.Equal(t, "ran", result.State["step"])
}
