// Package schema loads and caches the JSON schemas that every cross-boundary
// payload in the runtime is validated against: checkpoint records, discover
// matches, memory-gate events, route traces, link-graph search options, and
// skills-monitor signals. It is the single place that knows how to compile
// and validate these schemas (spec.md §4.2).
package schema

import (
	"embed"
	"encoding/json"
	"fmt"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed schemas/*.json
var embeddedSchemas embed.FS

// Name identifies one of the fixed schemas in the family.
type Name string

// The fixed schema family named in spec.md §4.2.
const (
	Checkpoint       Name = "checkpoint"
	DiscoverMatch    Name = "discover_match"
	MemoryGateEvent  Name = "memory_gate_event"
	RouteTrace       Name = "route_trace"
	LinkGraphOptions Name = "link_graph_options"
	MonitorSignal    Name = "monitor_signal"
)

var schemaFiles = map[Name]string{
	Checkpoint:       "schemas/checkpoint.json",
	DiscoverMatch:    "schemas/discover_match.json",
	MemoryGateEvent:  "schemas/memory_gate_event.json",
	RouteTrace:       "schemas/route_trace.json",
	LinkGraphOptions: "schemas/link_graph_options.json",
	MonitorSignal:    "schemas/monitor_signal.json",
}

// ValidationError reports the JSON pointer of the first offending field, per
// spec.md §4.2's "carry the JSON-pointer of the first offending field" rule.
type ValidationError struct {
	Schema      Name
	JSONPointer string
	Msg         string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("schema %q: %s: %s", e.Schema, e.JSONPointer, e.Msg)
}

// Registry compiles and caches the fixed schema family. It is one of the
// runtime's three process-wide singletons (spec.md §9); construct it once at
// startup with NewRegistry and share it.
type Registry struct {
	compiled map[Name]*jsonschema.Schema
}

// NewRegistry compiles every schema in the fixed family. A missing or
// malformed schema file is a hard failure at process start, matching
// spec.md's "Missing schema file at process start is a hard failure".
func NewRegistry() (*Registry, error) {
	c := jsonschema.NewCompiler()
	r := &Registry{compiled: make(map[Name]*jsonschema.Schema, len(schemaFiles))}
	for name, path := range schemaFiles {
		raw, err := embeddedSchemas.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("schema registry: read %s: %w", path, err)
		}
		var doc any
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("schema registry: parse %s: %w", path, err)
		}
		url := "mem://" + string(name) + ".json"
		if err := c.AddResource(url, doc); err != nil {
			return nil, fmt.Errorf("schema registry: add resource %s: %w", name, err)
		}
		sch, err := c.Compile(url)
		if err != nil {
			return nil, fmt.Errorf("schema registry: compile %s: %w", name, err)
		}
		r.compiled[name] = sch
	}
	return r, nil
}

// MustNewRegistry is NewRegistry but panics on failure. Intended for process
// init where a broken schema family should abort startup immediately (one of
// the few places in this codebase where panic-on-init is appropriate).
func MustNewRegistry() *Registry {
	r, err := NewRegistry()
	if err != nil {
		panic(err)
	}
	return r
}

// Validate checks payload (any JSON-marshalable value) against the named
// schema. On failure it returns a *ValidationError carrying the JSON pointer
// of the first offending field.
func (r *Registry) Validate(name Name, payload any) error {
	sch, ok := r.compiled[name]
	if !ok {
		return fmt.Errorf("schema registry: unknown schema %q", name)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("schema registry: marshal payload for %q: %w", name, err)
	}
	var inst any
	if err := json.Unmarshal(raw, &inst); err != nil {
		return fmt.Errorf("schema registry: unmarshal payload for %q: %w", name, err)
	}
	if err := sch.Validate(inst); err != nil {
		if verr, ok := err.(*jsonschema.ValidationError); ok {
			leaf := firstLeaf(verr)
			return &ValidationError{
				Schema:      name,
				JSONPointer: "/" + leaf.InstanceLocation.String(),
				Msg:         leaf.Error(),
			}
		}
		return &ValidationError{Schema: name, JSONPointer: "/", Msg: err.Error()}
	}
	return nil
}

// firstLeaf descends to the first leaf cause of a validation error tree so
// callers get the most specific offending field rather than the top-level
// summary.
func firstLeaf(verr *jsonschema.ValidationError) *jsonschema.ValidationError {
	for len(verr.Causes) > 0 {
		verr = verr.Causes[0]
	}
	return verr
}
