package enginetemporal

import (
	"context"
	"fmt"
	"time"

	temporalworkflow "go.temporal.io/sdk/workflow"

	"goa.design/skillrt/config"
	skillworkflow "goa.design/skillrt/workflow"
)

// activityTimeout bounds a single command dispatch or checkpoint write
// activity. Generous relative to the in-process kernel timeout because it
// also covers Temporal's own scheduling and retry overhead.
const activityTimeout = 5 * time.Minute

type workflowInput struct {
	ThreadID      string
	BlueprintName string
	State         skillworkflow.State
	StartNode     string
	ChunkCfg      config.ChunkConfig
}

type workflowOutput struct {
	State skillworkflow.State
}

// runBlueprint is the one Temporal workflow function this engine registers.
// It walks the named Blueprint exactly like skillworkflow.Executor, except
// every side effect (command dispatch, checkpoint write) goes through a
// Temporal activity instead of a direct call, keeping the workflow function
// itself deterministic and replay-safe. Unlike Executor, a master node's
// chunks run one at a time in normalized order; their Dependencies are not
// grouped into levels.
func runBlueprint(ctx temporalworkflow.Context, in workflowInput) (workflowOutput, error) {
	bp, ok := lookupBlueprint(in.BlueprintName)
	if !ok {
		return workflowOutput{}, fmt.Errorf("temporal engine: blueprint %q is not registered on this worker", in.BlueprintName)
	}

	s := in.State
	if s == nil {
		s = skillworkflow.State{}
	}
	nodeID := in.StartNode

	ao := temporalworkflow.ActivityOptions{StartToCloseTimeout: activityTimeout}
	actx := temporalworkflow.WithActivityOptions(ctx, ao)

	for nodeID != "" {
		node, ok := bp.Nodes[nodeID]
		if !ok {
			return workflowOutput{State: s}, fmt.Errorf("temporal engine: node %q not found in blueprint %q", nodeID, bp.Name)
		}

		var delta skillworkflow.State
		var err error
		if node.Master {
			delta, err = runFanOutActivity(actx, node, s, in.ChunkCfg)
		} else {
			delta, err = runNodeActivity(actx, node, s)
		}
		if err != nil {
			return workflowOutput{State: s}, fmt.Errorf("temporal engine: node %q: %w", nodeID, err)
		}
		s = s.Merge(delta)

		next := nextNode(bp, nodeID, s)
		if err := writeCheckpointActivity(actx, in.ThreadID, s, next); err != nil {
			return workflowOutput{State: s}, err
		}
		nodeID = next
	}
	return workflowOutput{State: s}, nil
}

func nextNode(bp skillworkflow.Blueprint, from string, s skillworkflow.State) string {
	for _, edge := range bp.Edges {
		if edge.From != from {
			continue
		}
		if edge.Predicate == nil || edge.Predicate(s) {
			return edge.To
		}
	}
	return ""
}

func runNodeActivity(ctx temporalworkflow.Context, node skillworkflow.Node, s skillworkflow.State) (skillworkflow.State, error) {
	switch node.Kind {
	case skillworkflow.NodeKindFunction:
		// Function nodes are Go closures registered in-process alongside
		// the blueprint: calling them directly is deterministic as long as
		// the closure itself has no side effects, the same contract
		// Executor (the in-memory engine) places on them. They receive a
		// plain background context since they must not block on or derive
		// cancellation from the (non-standard) temporal workflow context.
		if node.Func == nil {
			return nil, fmt.Errorf("function node %q has no Func", node.ID)
		}
		return node.Func(context.Background(), s)
	case skillworkflow.NodeKindCommand:
		args := make(map[string]any, len(node.FixedArgs)+len(node.StateInputMap))
		for k, v := range node.FixedArgs {
			args[k] = v
		}
		for argName, statePath := range node.StateInputMap {
			if v, ok := s.Get(statePath); ok {
				args[argName] = v
			}
		}
		var out dispatchOutput
		if err := temporalworkflow.ExecuteActivity(ctx, activityNameDispatch, dispatchInput{ToolName: node.Command, Args: args}).Get(ctx, &out); err != nil {
			return nil, err
		}
		return skillworkflow.State{node.ID: out.Result}, nil
	default:
		return nil, fmt.Errorf("node %q: unknown kind %d", node.ID, node.Kind)
	}
}

func runFanOutActivity(ctx temporalworkflow.Context, node skillworkflow.Node, s skillworkflow.State, chunkCfg config.ChunkConfig) (skillworkflow.State, error) {
	if node.ChunkFunc == nil {
		return nil, fmt.Errorf("master node %q has no ChunkFunc", node.ID)
	}
	// ChunkFunc runs in-process, same determinism contract as NodeFunc.
	plan, err := node.ChunkFunc(context.Background(), s)
	if err != nil {
		return nil, fmt.Errorf("node %q: compute chunk plan: %w", node.ID, err)
	}
	chunks := skillworkflow.NormalizeChunks(plan, chunkCfg)

	delta := skillworkflow.State{}
	current := s
	for _, chunk := range chunks {
		template := node.ChunkTemplate
		if template == nil {
			template = &skillworkflow.Node{ID: node.ID, Kind: skillworkflow.NodeKindCommand, Command: node.Command, FixedArgs: node.FixedArgs, StateInputMap: node.StateInputMap}
		}
		args := make(map[string]any, len(template.FixedArgs)+len(template.StateInputMap))
		for k, v := range template.FixedArgs {
			args[k] = v
		}
		chunkState := current.Merge(skillworkflow.State{"chunk": skillworkflow.State{
			"chunk_id":    chunk.ChunkID,
			"name":        chunk.Name,
			"targets":     toAnySlice(chunk.Targets),
			"description": chunk.Description,
		}})
		for argName, statePath := range template.StateInputMap {
			if v, ok := chunkState.Get(statePath); ok {
				args[argName] = v
			}
		}
		var out dispatchOutput
		if err := temporalworkflow.ExecuteActivity(ctx, activityNameDispatch, dispatchInput{ToolName: template.Command, Args: args}).Get(ctx, &out); err != nil {
			return nil, fmt.Errorf("chunk %q: %w", chunk.ChunkID, err)
		}
		delta = delta.Merge(skillworkflow.State{node.ID: out.Result})
		current = s.Merge(delta)
	}
	return delta, nil
}

func toAnySlice(xs []string) []any {
	out := make([]any, len(xs))
	for i, x := range xs {
		out[i] = x
	}
	return out
}

func writeCheckpointActivity(ctx temporalworkflow.Context, threadID string, s skillworkflow.State, next string) error {
	content := make(map[string]any, len(s)+1)
	for k, v := range s {
		content[k] = v
	}
	content["__next_node"] = next
	return temporalworkflow.ExecuteActivity(ctx, activityNameCheckpoint, checkpointInput{ThreadID: threadID, Content: content}).Get(ctx, nil)
}
