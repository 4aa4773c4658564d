package workflow_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goa.design/skillrt/checkpoint"
	"goa.design/skillrt/checkpoint/inmem"
	"goa.design/skillrt/config"
	"goa.design/skillrt/workflow"
)

type fakeDispatcher struct {
	mu    sync.Mutex
	calls []string
}

func (d *fakeDispatcher) Call(_ context.Context, toolName string, args map[string]any) (any, error) {
	d.mu.Lock()
	d.calls = append(d.calls, toolName)
	d.mu.Unlock()
	if toolName == "fail.always" {
		return nil, fmt.Errorf("boom")
	}
	return map[string]any{"echo": args}, nil
}

func linearBlueprint() workflow.Blueprint {
	return workflow.Blueprint{
		Name:       "linear",
		EntryPoint: "fetch",
		Nodes: map[string]workflow.Node{
			"fetch":   {ID: "fetch", Kind: workflow.NodeKindCommand, Command: "data.fetch"},
			"analyze": {ID: "analyze", Kind: workflow.NodeKindCommand, Command: "data.analyze"},
		},
		Edges: []workflow.Edge{
			{From: "fetch", To: "analyze"},
		},
	}
}

func TestExecutorRunWalksLinearGraphAndCheckpoints(t *testing.T) {
	disp := &fakeDispatcher{}
	store := inmem.New(0, nil)
	exec := workflow.NewExecutor(disp, store, config.ChunkConfig{}, 0)

	final, err := exec.Run(context.Background(), "thread-1", linearBlueprint(), workflow.State{})
	require.NoError(t, err)
	assert.Contains(t, final, "fetch")
	assert.Contains(t, final, "analyze")
	assert.Equal(t, []string{"data.fetch", "data.analyze"}, disp.calls)

	chain, err := store.List(context.Background(), "thread-1")
	require.NoError(t, err)
	assert.Len(t, chain, 2, "one checkpoint per node")
}

func TestExecutorResumeContinuesFromLastCheckpoint(t *testing.T) {
	store := inmem.New(0, nil)
	ctx := context.Background()
	bp := linearBlueprint()

	// Simulate a process that crashed right after "fetch" checkpointed,
	// by seeding the store with the checkpoint it would have written.
	now := time.Now()
	require.NoError(t, store.Put(ctx, checkpoint.Checkpoint{
		CheckpointID: checkpoint.NewCheckpointID(now),
		ThreadID:     "thread-2",
		Timestamp:    now,
		Content:      map[string]any{"fetch": "fetched", "__next_node": "analyze"},
	}))

	disp := &fakeDispatcher{}
	exec := workflow.NewExecutor(disp, store, config.ChunkConfig{}, 0)
	final, err := exec.Resume(ctx, bp, "thread-2")
	require.NoError(t, err)
	assert.Equal(t, "fetched", final["fetch"], "resumed state carries forward the checkpointed value")
	assert.Contains(t, final, "analyze")
	assert.Equal(t, []string{"data.analyze"}, disp.calls, "resume only re-runs the node after the checkpoint")
}

func TestExecutorFanOutRunsChunksAndMerges(t *testing.T) {
	disp := &fakeDispatcher{}
	store := inmem.New(0, nil)
	exec := workflow.NewExecutor(disp, store, config.ChunkConfig{MaxPerChunk: 2}, 4)

	bp := workflow.Blueprint{
		Name:       "fanout",
		EntryPoint: "scan",
		Nodes: map[string]workflow.Node{
			"scan": {
				ID: "scan", Master: true,
				Command: "files.scan",
				ChunkFunc: func(_ context.Context, _ workflow.State) ([]workflow.Chunk, error) {
					return []workflow.Chunk{{ChunkID: "root", Targets: []string{"a", "b", "c", "d", "e"}}}, nil
				},
			},
		},
	}

	final, err := exec.Run(context.Background(), "thread-3", bp, workflow.State{})
	require.NoError(t, err)
	assert.Contains(t, final, "scan")
	// 5 targets split at MaxPerChunk=2 => 3 chunks => 3 dispatch calls.
	assert.Len(t, disp.calls, 3)
}

func TestExecutorFanOutEscalatesChunkFailure(t *testing.T) {
	disp := &fakeDispatcher{}
	store := inmem.New(0, nil)
	exec := workflow.NewExecutor(disp, store, config.ChunkConfig{}, 0)

	bp := workflow.Blueprint{
		Name:       "fanout-fail",
		EntryPoint: "scan",
		Nodes: map[string]workflow.Node{
			"scan": {
				ID: "scan", Master: true,
				Command: "fail.always",
				ChunkFunc: func(_ context.Context, _ workflow.State) ([]workflow.Chunk, error) {
					return []workflow.Chunk{{ChunkID: "only", Targets: []string{"x"}}}, nil
				},
			},
		},
	}

	_, err := exec.Run(context.Background(), "thread-4", bp, workflow.State{})
	require.Error(t, err)
}

func TestExecutorFunctionNodeRunsWithoutDispatcher(t *testing.T) {
	store := inmem.New(0, nil)
	exec := workflow.NewExecutor(nil, store, config.ChunkConfig{}, 0)

	bp := workflow.Blueprint{
		Name:       "pure",
		EntryPoint: "classify",
		Nodes: map[string]workflow.Node{
			"classify": {
				ID: "classify", Kind: workflow.NodeKindFunction,
				Func: func(_ context.Context, s workflow.State) (workflow.State, error) {
					return workflow.State{"label": "ok"}, nil
				},
			},
		},
	}

	final, err := exec.Run(context.Background(), "thread-5", bp, workflow.State{})
	require.NoError(t, err)
	assert.Equal(t, "ok", final["label"])
}

func TestExecutorEdgePredicateSelectsBranch(t *testing.T) {
	disp := &fakeDispatcher{}
	store := inmem.New(0, nil)
	exec := workflow.NewExecutor(disp, store, config.ChunkConfig{}, 0)

	bp := workflow.Blueprint{
		Name:       "branch",
		EntryPoint: "start",
		Nodes: map[string]workflow.Node{
			"start": {
				ID: "start", Kind: workflow.NodeKindFunction,
				Func: func(_ context.Context, _ workflow.State) (workflow.State, error) {
					return workflow.State{"needs_fix": true}, nil
				},
			},
			"fix": {ID: "fix", Kind: workflow.NodeKindCommand, Command: "code.fix"},
			"done": {ID: "done", Kind: workflow.NodeKindFunction,
				Func: func(_ context.Context, _ workflow.State) (workflow.State, error) {
					return workflow.State{"terminal": true}, nil
				},
			},
		},
		Edges: []workflow.Edge{
			{From: "start", To: "fix", Predicate: func(s workflow.State) bool {
				v, _ := s.Get("needs_fix")
				b, _ := v.(bool)
				return b
			}},
			{From: "start", To: "done"},
		},
	}

	final, err := exec.Run(context.Background(), "thread-6", bp, workflow.State{})
	require.NoError(t, err)
	assert.Contains(t, final, "fix")
	assert.NotContains(t, final, "terminal")
	assert.Equal(t, []string{"code.fix"}, disp.calls)
}
