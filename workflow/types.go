// Package workflow implements the checkpointed workflow engine (spec.md
// §4.10): a directed graph of skill-command or pure-function nodes,
// executed with fan-out normalization, level-parallel execution bounded by
// a semaphore, and checkpoint-based resume.
package workflow

import (
	"context"
)

// State is the mutable data a workflow execution threads through its
// nodes. Keys are merged by the reducer rules in Merge: list-valued keys
// append, everything else last-write-wins, matching spec.md §3/§5's
// "state reducers ... associative for list-append / key-last fields".
type State map[string]any

// Merge applies delta onto s, returning a new State. s is never mutated in
// place so concurrent branches of a fan-out level can merge independently
// without a data race.
func (s State) Merge(delta State) State {
	out := make(State, len(s)+len(delta))
	for k, v := range s {
		out[k] = v
	}
	for k, v := range delta {
		if existing, ok := out[k]; ok {
			if merged, ok := appendIfList(existing, v); ok {
				out[k] = merged
				continue
			}
		}
		out[k] = v
	}
	return out
}

func appendIfList(existing, incoming any) (any, bool) {
	existingList, ok := existing.([]any)
	if !ok {
		return nil, false
	}
	incomingList, ok := incoming.([]any)
	if !ok {
		return nil, false
	}
	merged := make([]any, 0, len(existingList)+len(incomingList))
	merged = append(merged, existingList...)
	merged = append(merged, incomingList...)
	return merged, true
}

// Get reads a dotted path like "analysis.needs_fix" out of nested State
// maps, used to evaluate edge predicates.
func (s State) Get(path string) (any, bool) {
	cur := any(s)
	for _, part := range splitPath(path) {
		m, ok := cur.(map[string]any)
		if !ok {
			if sm, ok2 := cur.(State); ok2 {
				m = sm
			} else {
				return nil, false
			}
		}
		v, ok := m[part]
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

func splitPath(path string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(path); i++ {
		if path[i] == '.' {
			parts = append(parts, path[start:i])
			start = i + 1
		}
	}
	parts = append(parts, path[start:])
	return parts
}

// NodeFunc is a pure function node: it reads state and returns a delta to
// merge, with no side effects beyond what it returns.
type NodeFunc func(ctx context.Context, s State) (State, error)

// NodeKind distinguishes a skill-backed node from a pure function node.
type NodeKind int

const (
	NodeKindCommand NodeKind = iota
	NodeKindFunction
)

// Node is one vertex in a workflow blueprint.
type Node struct {
	ID   string
	Kind NodeKind

	// Command identifies the skill command this node dispatches to, when
	// Kind is NodeKindCommand.
	Command string
	// FixedArgs are merged with args derived from StateInputMap before
	// dispatch.
	FixedArgs map[string]any
	// StateInputMap maps a command argument name to a State path its
	// value is read from.
	StateInputMap map[string]string

	// Func runs when Kind is NodeKindFunction.
	Func NodeFunc

	// Master, when true, means this node fans out: ChunkFunc produces the
	// raw chunk plan, which is normalized (see NormalizeChunks) and then
	// run once per chunk through ChunkTemplate, level by level, bounded
	// by the executor's concurrency limit (spec.md §4.10 "Fan-out
	// (chunked) path").
	Master bool
	// ChunkFunc computes the unnormalized chunk plan for a Master node.
	ChunkFunc ChunkFunc
	// ChunkTemplate is the node run once per normalized chunk. Its
	// StateInputMap can read "chunk.chunk_id", "chunk.name",
	// "chunk.targets", and "chunk.description", which the executor
	// injects for the duration of that chunk's run. Defaults to a
	// command node reusing Command/FixedArgs/StateInputMap from the
	// Master node itself when nil.
	ChunkTemplate *Node
}

// ChunkFunc computes the chunk plan a Master node fans out over.
type ChunkFunc func(ctx context.Context, s State) ([]Chunk, error)

// Edge connects two nodes, optionally guarded by a predicate over state.
type Edge struct {
	From      string
	To        string
	Predicate func(s State) bool
}

// Blueprint is a workflow's static definition: its graph plus the entry
// point node ID.
type Blueprint struct {
	Name       string
	EntryPoint string
	Nodes      map[string]Node
	Edges      []Edge
}

// Dispatcher is the one path a workflow node uses to invoke a skill
// command, implemented by kernel.Kernel in production.
type Dispatcher interface {
	Call(ctx context.Context, toolName string, args map[string]any) (any, error)
}
