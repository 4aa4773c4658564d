package command

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"goa.design/skillrt/rterrors"
	"goa.design/skillrt/skill"
)

// Table is the runtime's live command dispatch surface. It implements
// skill.CommandSink: the skill registry pushes a skill's commands here on
// load and reload. Reads (Lookup, Snapshot) are lock-free, served from an
// atomically-swapped map so in-flight kernel dispatches never block behind
// a concurrent reload, and a dispatch that captured an older table
// reference keeps running against that epoch's commands even after a newer
// epoch is published (spec.md §8 "hot-reload safety").
type Table struct {
	cache *SchemaCache
	cur   atomic.Pointer[tableState]
	mu    sync.Mutex // serializes Register calls; reads never take it
}

type tableState struct {
	commands map[string]*Command // "category.action" -> command
}

// NewTable constructs an empty Table backed by the given schema cache (see
// NewSchemaCache).
func NewTable(cache *SchemaCache) *Table {
	t := &Table{cache: cache}
	t.cur.Store(&tableState{commands: map[string]*Command{}})
	return t
}

// Register implements skill.CommandSink. It replaces every command
// previously published by skillName with defs, tagged with epoch, via a
// copy-on-write swap of the whole table: readers either see the full
// pre-reload state or the full post-reload state, never a partial mix.
func (t *Table) Register(skillName string, epoch int, defs []skill.CommandDef) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	old := t.cur.Load()
	next := &tableState{commands: make(map[string]*Command, len(old.commands))}
	for name, cmd := range old.commands {
		if cmd.Skill != skillName {
			next.commands[name] = cmd
		}
	}
	for _, def := range defs {
		if def.Name == "" {
			return fmt.Errorf("command: skill %q published an unnamed command", skillName)
		}
		if _, _, ok := splitName(def.Name); !ok {
			return fmt.Errorf("command: skill %q published malformed command name %q (want \"category.action\")", skillName, def.Name)
		}
		next.commands[def.Name] = &Command{
			Spec:    Spec{Name: def.Name, Skill: skillName},
			Handler: def.Handler,
			Skill:   skillName,
			Epoch:   epoch,
		}
	}
	t.cur.Store(next)
	return nil
}

// RegisterSpec attaches or replaces a fuller Spec (params, description) for
// an already-registered command name, invalidating any cached schema. The
// registry only knows about bare CommandDefs; callers that parse a skill's
// docstrings call this afterward to enrich the published command.
func (t *Table) RegisterSpec(spec Spec) {
	t.mu.Lock()
	defer t.mu.Unlock()
	old := t.cur.Load()
	cmd, ok := old.commands[spec.Name]
	if !ok {
		return
	}
	next := &tableState{commands: make(map[string]*Command, len(old.commands))}
	for name, c := range old.commands {
		next.commands[name] = c
	}
	updated := *cmd
	updated.Spec = spec
	next.commands[spec.Name] = &updated
	t.cur.Store(next)
	t.cache.Invalidate(spec.Name)
}

// Lookup returns the current command for name, if any.
func (t *Table) Lookup(name string) (*Command, bool) {
	st := t.cur.Load()
	cmd, ok := st.commands[name]
	return cmd, ok
}

// Snapshot returns every currently published command, sorted by name, for
// indexing (toolindex) or listing.
func (t *Table) Snapshot() []*Command {
	st := t.cur.Load()
	out := make([]*Command, 0, len(st.commands))
	for _, c := range st.commands {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Spec.Name < out[j].Spec.Name })
	return out
}

// InputSchema returns the (possibly cached) JSON Schema for a command.
func (t *Table) InputSchema(cmd *Command) map[string]any {
	if cmd.Spec.InputSchema != nil {
		return cmd.Spec.InputSchema
	}
	return t.cache.Get(cmd.Spec.Name, cmd.Spec.Params)
}

// Dispatch looks up name and invokes its Handler, returning a
// *rterrors-compatible error via ResolutionError semantics when the command
// is unknown. It does not validate arguments or check permissions — that is
// the execution kernel's pipeline (package kernel); Table is a pure
// lookup-and-call surface.
func (t *Table) Dispatch(ctx context.Context, name string, args map[string]any) (any, error) {
	cmd, ok := t.Lookup(name)
	if !ok {
		return nil, &rterrors.ResolutionError{Name: name}
	}
	return cmd.Handler(ctx, args)
}

func splitName(name string) (category, action string, ok bool) {
	for i := 0; i < len(name); i++ {
		if name[i] == '.' {
			if i == 0 || i == len(name)-1 {
				return "", "", false
			}
			return name[:i], name[i+1:], true
		}
	}
	return "", "", false
}
