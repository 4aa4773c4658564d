// Package enginetemporal backs workflow.Engine with Temporal: every command
// node dispatch and every checkpoint write runs as a Temporal activity (the
// only place side effects belong in a deterministic workflow function), and
// the workflow function itself only walks the blueprint graph and merges
// state. Grounded in the teacher's runtime/agent/engine/temporal adapter,
// narrowed from its generic RegisterWorkflow/RegisterActivity surface down
// to the one blueprint-shaped workflow this package registers internally.
package enginetemporal

import (
	"context"
	"fmt"
	"sync"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	temporalworkflow "go.temporal.io/sdk/workflow"

	"goa.design/skillrt/checkpoint"
	"goa.design/skillrt/config"
	"goa.design/skillrt/telemetry"
	skillworkflow "goa.design/skillrt/workflow"
)

const blueprintWorkflowName = "SkillBlueprintWorkflow"

// Options configures the Temporal-backed Engine.
type Options struct {
	// Client is a pre-configured Temporal client. Required.
	Client client.Client
	// TaskQueue is the queue the engine's worker polls. Required.
	TaskQueue string
	// WorkerOptions is forwarded to worker.New.
	WorkerOptions worker.Options
	Logger        telemetry.Logger
}

// Engine implements skillworkflow.Engine on top of a Temporal worker running
// a single registered workflow (blueprintWorkflowName) and two activities:
// dispatching a command node and writing a checkpoint. The Dispatcher and
// checkpoint store are bound once in New. Blueprints are registered ahead of
// time in a process-local map with RegisterBlueprint, and only a
// blueprint's Name is passed as workflow input on each Run; nothing is
// registered per-blueprint with Temporal beyond the one generic workflow
// function.
type Engine struct {
	client    client.Client
	taskQueue string
	log       telemetry.Logger

	mu      sync.Mutex
	started bool
	worker  worker.Worker

	dispatcher  skillworkflow.Dispatcher
	checkpoints checkpoint.Store
	chunkCfg    config.ChunkConfig
}

// New constructs a temporal Engine. dispatcher and store are bound once:
// every Run/Resume on this Engine shares them, since they represent the
// process's one skill-command table and checkpoint backend.
func New(opts Options, dispatcher skillworkflow.Dispatcher, store checkpoint.Store, chunkCfg config.ChunkConfig) (*Engine, error) {
	if opts.Client == nil {
		return nil, fmt.Errorf("temporal engine: client is required")
	}
	if opts.TaskQueue == "" {
		return nil, fmt.Errorf("temporal engine: task queue is required")
	}
	log := opts.Logger
	if log == nil {
		log = telemetry.NewNoopLogger()
	}
	e := &Engine{
		client:      opts.Client,
		taskQueue:   opts.TaskQueue,
		log:         log,
		dispatcher:  dispatcher,
		checkpoints: store,
		chunkCfg:    chunkCfg,
	}
	e.worker = worker.New(opts.Client, opts.TaskQueue, opts.WorkerOptions)
	e.worker.RegisterWorkflowWithOptions(runBlueprint, temporalworkflow.RegisterOptions{Name: blueprintWorkflowName})
	act := &activities{dispatcher: dispatcher, checkpoints: store}
	e.worker.RegisterActivity(act.DispatchCommand)
	e.worker.RegisterActivity(act.WriteCheckpoint)
	return e, nil
}

// Start launches the worker. Run/Resume do not require it to have been
// called if another process in the deployment already runs a worker on the
// same task queue.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return nil
	}
	e.started = true
	go func() {
		if err := e.worker.Run(worker.InterruptCh()); err != nil {
			e.log.Error(context.Background(), "temporal worker exited", "queue", e.taskQueue, "error", err)
		}
	}()
	return nil
}

// Stop gracefully stops the worker.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.started {
		return
	}
	e.worker.Stop()
	e.started = false
}

// Run requires req.Blueprint to have already been registered via
// RegisterBlueprint (matched by name) on every worker process serving the
// engine's task queue.
func (e *Engine) Run(ctx context.Context, req skillworkflow.RunRequest) (skillworkflow.RunResult, error) {
	return e.execute(ctx, req.ThreadID, req.Blueprint.Name, req.Initial, req.Blueprint.EntryPoint)
}

func (e *Engine) Resume(ctx context.Context, bp skillworkflow.Blueprint, threadID string) (skillworkflow.RunResult, error) {
	if e.checkpoints == nil {
		return skillworkflow.RunResult{}, fmt.Errorf("temporal engine: resume requires a checkpoint store")
	}
	cp, ok, err := e.checkpoints.GetTuple(ctx, threadID)
	if err != nil {
		return skillworkflow.RunResult{}, fmt.Errorf("temporal engine: resume: load checkpoint: %w", err)
	}
	if !ok {
		return e.Run(ctx, skillworkflow.RunRequest{ThreadID: threadID, Blueprint: bp})
	}
	s := make(skillworkflow.State, len(cp.Content))
	for k, v := range cp.Content {
		if k == "__next_node" {
			continue
		}
		s[k] = v
	}
	next, _ := cp.Content["__next_node"].(string)
	if next == "" {
		return skillworkflow.RunResult{ThreadID: threadID, State: s}, nil
	}
	return e.execute(ctx, threadID, bp.Name, s, next)
}

func (e *Engine) execute(ctx context.Context, threadID, blueprintName string, initial skillworkflow.State, startNode string) (skillworkflow.RunResult, error) {
	input := workflowInput{
		ThreadID:      threadID,
		BlueprintName: blueprintName,
		State:         initial,
		StartNode:     startNode,
		ChunkCfg:      e.chunkCfg,
	}
	run, err := e.client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        threadID,
		TaskQueue: e.taskQueue,
	}, blueprintWorkflowName, input)
	if err != nil {
		return skillworkflow.RunResult{}, fmt.Errorf("temporal engine: start workflow: %w", err)
	}
	var out workflowOutput
	if err := run.Get(ctx, &out); err != nil {
		return skillworkflow.RunResult{}, fmt.Errorf("temporal engine: workflow run: %w", err)
	}
	return skillworkflow.RunResult{ThreadID: threadID, State: out.State}, nil
}
