package workflow

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"goa.design/skillrt/checkpoint"
	"goa.design/skillrt/config"
)

// Executor walks Blueprint graphs against a Dispatcher, checkpointing node
// results through a checkpoint.Store. engineinmem builds its Engine on top
// of one; enginetemporal walks the graph in its own workflow function and
// does not use Executor.
type Executor struct {
	Dispatcher    Dispatcher
	Checkpoints   checkpoint.Store
	ChunkConfig   config.ChunkConfig
	MaxConcurrent int
}

// NewExecutor constructs an Executor. maxConcurrent bounds how many chunks
// of a single fan-out level run at once; zero means one goroutine per chunk
// in that level.
func NewExecutor(disp Dispatcher, store checkpoint.Store, chunkCfg config.ChunkConfig, maxConcurrent int) *Executor {
	return &Executor{Dispatcher: disp, Checkpoints: store, ChunkConfig: chunkCfg, MaxConcurrent: maxConcurrent}
}

// Run walks bp from bp.EntryPoint.
func (e *Executor) Run(ctx context.Context, threadID string, bp Blueprint, initial State) (State, error) {
	return e.run(ctx, threadID, bp, initial, bp.EntryPoint)
}

// Resume loads the latest checkpoint for threadID and continues execution
// from the node it recorded as next, or returns the checkpointed state
// unchanged if the run had already reached a terminal node.
func (e *Executor) Resume(ctx context.Context, bp Blueprint, threadID string) (State, error) {
	if e.Checkpoints == nil {
		return nil, fmt.Errorf("workflow: resume requires a checkpoint store")
	}
	cp, ok, err := e.Checkpoints.GetTuple(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("workflow: resume: load checkpoint: %w", err)
	}
	if !ok {
		return e.Run(ctx, threadID, bp, State{})
	}
	s := stateFromContent(cp.Content)
	next, _ := cp.Content["__next_node"].(string)
	if next == "" {
		return s, nil
	}
	return e.run(ctx, threadID, bp, s, next)
}

func (e *Executor) run(ctx context.Context, threadID string, bp Blueprint, s State, nodeID string) (State, error) {
	for nodeID != "" {
		if err := ctx.Err(); err != nil {
			return s, err
		}
		node, ok := bp.Nodes[nodeID]
		if !ok {
			return s, fmt.Errorf("workflow: node %q not found in blueprint %q", nodeID, bp.Name)
		}

		var delta State
		var err error
		if node.Master {
			delta, err = e.runFanOut(ctx, threadID, node, s)
		} else {
			delta, err = e.runOne(ctx, node, s)
		}
		if err != nil {
			return s, fmt.Errorf("workflow: node %q: %w", nodeID, err)
		}
		s = s.Merge(delta)

		next := e.nextNode(bp, nodeID, s)
		if err := e.checkpoint(ctx, threadID, s, next); err != nil {
			return s, err
		}
		nodeID = next
	}
	return s, nil
}

// nextNode returns the first outgoing edge from "from" whose predicate
// passes (a nil predicate always passes), or "" if none does: blueprint
// authors order edges from most to least specific, matching an if/elif
// chain rather than fan-out-on-all-matches.
func (e *Executor) nextNode(bp Blueprint, from string, s State) string {
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

func (e *Executor) checkpoint(ctx context.Context, threadID string, s State, next string) error {
	if e.Checkpoints == nil {
		return nil
	}
	content := make(map[string]any, len(s)+1)
	for k, v := range s {
		content[k] = v
	}
	content["__next_node"] = next
	now := time.Now()
	cp := checkpoint.Checkpoint{
		CheckpointID: checkpoint.NewCheckpointID(now),
		ThreadID:     threadID,
		Timestamp:    now,
		Content:      content,
	}
	if err := e.Checkpoints.Put(ctx, cp); err != nil {
		return fmt.Errorf("workflow: checkpoint: %w", err)
	}
	return nil
}

func stateFromContent(content map[string]any) State {
	s := make(State, len(content))
	for k, v := range content {
		if k == "__next_node" {
			continue
		}
		s[k] = v
	}
	return s
}

func (e *Executor) runOne(ctx context.Context, node Node, s State) (State, error) {
	switch node.Kind {
	case NodeKindFunction:
		if node.Func == nil {
			return nil, fmt.Errorf("function node %q has no Func", node.ID)
		}
		return node.Func(ctx, s)
	case NodeKindCommand:
		if e.Dispatcher == nil {
			return nil, fmt.Errorf("command node %q requires a Dispatcher", node.ID)
		}
		args := resolveArgs(node, s)
		result, err := e.Dispatcher.Call(ctx, node.Command, args)
		if err != nil {
			return nil, err
		}
		return State{node.ID: result}, nil
	default:
		return nil, fmt.Errorf("node %q: unknown kind %d", node.ID, node.Kind)
	}
}

func resolveArgs(node Node, s State) map[string]any {
	args := make(map[string]any, len(node.FixedArgs)+len(node.StateInputMap))
	for k, v := range node.FixedArgs {
		args[k] = v
	}
	for argName, statePath := range node.StateInputMap {
		if v, ok := s.Get(statePath); ok {
			args[argName] = v
		}
	}
	return args
}

// runFanOut implements spec.md §4.10's fan-out (chunked) path: compute the
// raw chunk plan, normalize it, group chunks into dependency levels, and
// run each level's chunks concurrently bounded by MaxConcurrent. A chunk
// failure escalates once its level finishes (return_exceptions=false
// semantics) without merging that level's results; siblings already
// launched in the same level are allowed to finish since they share no
// state until the merge.
func (e *Executor) runFanOut(ctx context.Context, threadID string, node Node, s State) (State, error) {
	if node.ChunkFunc == nil {
		return nil, fmt.Errorf("master node %q has no ChunkFunc", node.ID)
	}
	plan, err := node.ChunkFunc(ctx, s)
	if err != nil {
		return nil, fmt.Errorf("node %q: compute chunk plan: %w", node.ID, err)
	}
	chunks := NormalizeChunks(plan, e.ChunkConfig)
	levels, err := chunkLevels(chunks)
	if err != nil {
		return nil, fmt.Errorf("node %q: %w", node.ID, err)
	}

	maxConcurrent := e.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = len(chunks)
	}
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	sem := semaphore.NewWeighted(int64(maxConcurrent))

	delta := State{}
	current := s
	for _, level := range levels {
		type outcome struct {
			delta State
			err   error
		}
		results := make([]outcome, len(level))
		var wg sync.WaitGroup
		for i, chunk := range level {
			wg.Add(1)
			go func(i int, chunk Chunk) {
				defer wg.Done()
				if err := sem.Acquire(ctx, 1); err != nil {
					results[i] = outcome{err: fmt.Errorf("chunk %q: %w", chunk.ChunkID, err)}
					return
				}
				defer sem.Release(1)
				childID := buildChildID(threadID, chunk.ChunkID)
				d, err := e.runChunk(ctx, node, chunk, current)
				if err != nil {
					results[i] = outcome{err: fmt.Errorf("chunk %q: %w", childID, err)}
					return
				}
				results[i] = outcome{delta: d}
			}(i, chunk)
		}
		wg.Wait()

		for _, r := range results {
			if r.err != nil {
				return nil, r.err
			}
			delta = delta.Merge(r.delta)
		}
		current = s.Merge(delta)
	}
	return delta, nil
}

func (e *Executor) runChunk(ctx context.Context, node Node, chunk Chunk, base State) (State, error) {
	template := node.ChunkTemplate
	if template == nil {
		template = &Node{ID: node.ID, Kind: NodeKindCommand, Command: node.Command, FixedArgs: node.FixedArgs, StateInputMap: node.StateInputMap}
	}
	chunkState := base.Merge(State{"chunk": chunkToState(chunk)})
	return e.runOne(ctx, *template, chunkState)
}

func chunkToState(c Chunk) State {
	targets := make([]any, len(c.Targets))
	for i, t := range c.Targets {
		targets[i] = t
	}
	return State{
		"chunk_id":    c.ChunkID,
		"name":        c.Name,
		"targets":     targets,
		"description": c.Description,
	}
}

// buildChildID derives an identifier for one chunk of a fan-out from the
// parent thread and the chunk ID; runFanOut uses it to label a failed
// chunk's error. No checkpoint is written under it.
func buildChildID(threadID, chunkID string) string {
	return fmt.Sprintf("%s/chunk-%s", threadID, chunkID)
}

// chunkLevels groups chunks into levels by Dependencies (Kahn's algorithm):
// a chunk's Dependencies are ChunkIDs from the same plan that must have
// completed before it may start. Chunks with no unresolved dependency left
// in the current level run concurrently.
func chunkLevels(chunks []Chunk) ([][]Chunk, error) {
	byID := make(map[string]Chunk, len(chunks))
	indeg := make(map[string]int, len(chunks))
	for _, c := range chunks {
		byID[c.ChunkID] = c
		if _, ok := indeg[c.ChunkID]; !ok {
			indeg[c.ChunkID] = 0
		}
	}
	dependents := make(map[string][]string)
	for _, c := range chunks {
		for _, dep := range c.Dependencies {
			if _, ok := byID[dep]; !ok {
				continue
			}
			indeg[c.ChunkID]++
			dependents[dep] = append(dependents[dep], c.ChunkID)
		}
	}

	var levels [][]Chunk
	remaining := len(chunks)
	for remaining > 0 {
		var level []Chunk
		for id, deg := range indeg {
			if deg == 0 {
				level = append(level, byID[id])
			}
		}
		if len(level) == 0 {
			return nil, fmt.Errorf("chunk dependency cycle detected")
		}
		sort.Slice(level, func(i, j int) bool { return level[i].ChunkID < level[j].ChunkID })
		for _, c := range level {
			delete(indeg, c.ChunkID)
			for _, dep := range dependents[c.ChunkID] {
				indeg[dep]--
			}
		}
		levels = append(levels, level)
		remaining -= len(level)
	}
	return levels, nil
}
