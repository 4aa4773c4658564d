package enginetemporal

import (
	"context"
	"time"

	"goa.design/skillrt/checkpoint"
	skillworkflow "goa.design/skillrt/workflow"
)

const (
	activityNameDispatch   = "skillrt.workflow.dispatch_command"
	activityNameCheckpoint = "skillrt.workflow.write_checkpoint"
)

type dispatchInput struct {
	ToolName string
	Args     map[string]any
}

type dispatchOutput struct {
	Result any
}

type checkpointInput struct {
	ThreadID string
	Content  map[string]any
}

// activities wraps the process's Dispatcher and checkpoint.Store as
// Temporal activities: the only two side effects a blueprint node ever
// performs, kept outside the deterministic workflow function.
type activities struct {
	dispatcher  skillworkflow.Dispatcher
	checkpoints checkpoint.Store
}

func (a *activities) DispatchCommand(ctx context.Context, in dispatchInput) (dispatchOutput, error) {
	result, err := a.dispatcher.Call(ctx, in.ToolName, in.Args)
	if err != nil {
		return dispatchOutput{}, err
	}
	return dispatchOutput{Result: result}, nil
}

func (a *activities) WriteCheckpoint(ctx context.Context, in checkpointInput) error {
	if a.checkpoints == nil {
		return nil
	}
	now := time.Now()
	return a.checkpoints.Put(ctx, checkpoint.Checkpoint{
		CheckpointID: checkpoint.NewCheckpointID(now),
		ThreadID:     in.ThreadID,
		Timestamp:    now,
		Content:      in.Content,
	})
}
