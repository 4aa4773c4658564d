package workflow

import "context"

// RunRequest describes one workflow execution.
type RunRequest struct {
	// ThreadID identifies the checkpoint chain this run appends to. Two
	// runs sharing a ThreadID are the same logical thread: Resume picks
	// up from whichever run last checkpointed.
	ThreadID string
	Blueprint Blueprint
	Initial   State
}

// RunResult is what a completed or resumed run returns.
type RunResult struct {
	ThreadID string
	State    State
}

// Engine abstracts Blueprint execution so the same graph can run against
// different backends (in-memory goroutines, Temporal) without the caller
// changing. It is deliberately narrower than a generic workflow-engine
// abstraction: a Blueprint already fully describes the workflow, so there is
// no separate RegisterWorkflow/RegisterActivity step, and a Dispatcher (not
// engine-specific activity registration) is how nodes reach skill commands.
type Engine interface {
	// Run executes req.Blueprint from its EntryPoint, checkpointing after
	// every node, and returns the final merged state.
	Run(ctx context.Context, req RunRequest) (RunResult, error)

	// Resume continues the run on threadID from its latest checkpoint,
	// re-entering bp at the node the checkpoint recorded as next. If the
	// checkpointed run had already reached a terminal node, Resume
	// returns the checkpointed state unchanged.
	Resume(ctx context.Context, bp Blueprint, threadID string) (RunResult, error)
}
