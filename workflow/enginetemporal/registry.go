package enginetemporal

import (
	"fmt"
	"sync"

	skillworkflow "goa.design/skillrt/workflow"
)

// blueprints holds Blueprints the process has registered, keyed by name.
// Temporal workflow input must be serializable, but a Blueprint carries Go
// closures (Edge.Predicate, Node.Func, Node.ChunkFunc) that are not — so
// blueprints live in this process-local registry and only their Name
// crosses the workflow-input boundary, the same way Temporal workflow/
// activity functions themselves are registered ahead of time rather than
// shipped as data.
var blueprints = struct {
	mu sync.RWMutex
	m  map[string]skillworkflow.Blueprint
}{m: make(map[string]skillworkflow.Blueprint)}

// RegisterBlueprint makes bp runnable by name on this engine's worker. Must
// be called before any Run/Resume referencing bp.Name, on every process
// running a worker for the engine's task queue.
func (e *Engine) RegisterBlueprint(bp skillworkflow.Blueprint) error {
	if bp.Name == "" {
		return fmt.Errorf("temporal engine: blueprint name is required")
	}
	blueprints.mu.Lock()
	defer blueprints.mu.Unlock()
	blueprints.m[bp.Name] = bp
	return nil
}

func lookupBlueprint(name string) (skillworkflow.Blueprint, bool) {
	blueprints.mu.RLock()
	defer blueprints.mu.RUnlock()
	bp, ok := blueprints.m[name]
	return bp, ok
}
