// Package engineinmem provides the default, in-process workflow.Engine: it
// runs a Blueprint directly on the caller's goroutine tree rather than
// durably scheduling it, suitable for single-process deployments and tests.
package engineinmem

import (
	"context"

	"goa.design/skillrt/checkpoint"
	"goa.design/skillrt/config"
	"goa.design/skillrt/workflow"
)

// Engine implements workflow.Engine by running the graph inline through a
// workflow.Executor. Crash recovery works the same way it would against any
// backend: a new process calls Resume against the same checkpoint.Store.
type Engine struct {
	exec *workflow.Executor
}

// New builds an in-memory Engine dispatching commands through disp and
// checkpointing to store.
func New(disp workflow.Dispatcher, store checkpoint.Store, chunkCfg config.ChunkConfig, maxConcurrent int) *Engine {
	return &Engine{exec: workflow.NewExecutor(disp, store, chunkCfg, maxConcurrent)}
}

func (e *Engine) Run(ctx context.Context, req workflow.RunRequest) (workflow.RunResult, error) {
	s, err := e.exec.Run(ctx, req.ThreadID, req.Blueprint, req.Initial)
	return workflow.RunResult{ThreadID: req.ThreadID, State: s}, err
}

func (e *Engine) Resume(ctx context.Context, bp workflow.Blueprint, threadID string) (workflow.RunResult, error) {
	s, err := e.exec.Resume(ctx, bp, threadID)
	return workflow.RunResult{ThreadID: threadID, State: s}, err
}
