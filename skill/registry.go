package skill

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"goa.design/skillrt/telemetry"
)

// Module is the compiled-in implementation behind a skill. Go has no
// equivalent of importing an arbitrary scripts/<name>/__init__.py at
// runtime, so modules self-register instead: a skill's package calls
// Register from an init() func (conventionally via a blank import in
// cmd/skillrtd), the same pattern database/sql uses for drivers.
type Module interface {
	// Commands returns the tool specifications this module contributes to
	// the command table, each named "category.action".
	Commands(ext Extensions) []CommandDef

	// Close releases any resources held by the module. Called when the
	// registry unloads or reloads the skill.
	Close(ctx context.Context) error
}

// CommandDef is the minimal shape registry.go needs from a module's command;
// the full command.Spec/command.Command types live in package command and
// are built from these by the CommandSink (command.Table.Register) when a
// loaded skill's commands are published.
type CommandDef struct {
	Name    string
	Handler func(ctx context.Context, args map[string]any) (any, error)
}

// Extensions exposes the native-accelerator fixtures discovered under a
// skill's extensions/ directory, keyed by extension name. A Module consults
// this to substitute a compiled accelerator for its default implementation
// when one is present (spec.md §4.4/§9).
type Extensions map[string]any

// Factory constructs a Module for one skill instance. Registered factories
// are looked up by skill name at Load time.
type Factory func(root string, manifest *Manifest) (Module, error)

var (
	factoriesMu sync.RWMutex
	factories   = map[string]Factory{}
)

// Register adds a Factory for the named skill. Called from an init() in the
// skill's own package. Panics on duplicate registration, matching
// database/sql.Register's contract: a double-registered driver is always a
// programming error, never a runtime condition to recover from.
func Register(name string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	if _, dup := factories[name]; dup {
		panic(fmt.Sprintf("skill: Register called twice for %q", name))
	}
	factories[name] = f
}

func lookupFactory(name string) (Factory, bool) {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	f, ok := factories[name]
	return f, ok
}

// Registry discovers, loads, and hot-reloads skills (spec.md §4.4). It is
// safe for concurrent use; Load/Unload serialize against a single mutex
// while Get/Snapshot take a read lock so in-flight tool calls are never
// blocked behind a slow reload.
type Registry struct {
	mu       sync.RWMutex
	skills   map[string]*Skill
	modules  map[string]Module
	nextEpoch int
	log      telemetry.Logger
}

// NewRegistry constructs an empty Registry. Skills are added via Discover
// and brought to StatusLoaded via Load.
func NewRegistry(log telemetry.Logger) *Registry {
	if log == nil {
		log = telemetry.NewNoopLogger()
	}
	return &Registry{
		skills:  map[string]*Skill{},
		modules: map[string]Module{},
		log:     log,
	}
}

// Discover walks dir for immediate subdirectories containing a SKILL.md,
// parses each manifest, and registers a StatusDiscovered Skill record. It
// does not load any skill; call Load (directly, or via LoadAll) to bring
// discovered skills to StatusLoaded.
func (r *Registry) Discover(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("skill: read skills dir %s: %w", dir, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		root := filepath.Join(dir, e.Name())
		manifestPath := filepath.Join(root, "SKILL.md")
		if _, err := os.Stat(manifestPath); err != nil {
			continue
		}
		m, err := ParseManifest(manifestPath)
		if err != nil {
			r.log.Error(context.Background(), "skill: discover failed", "dir", root, "error", err)
			continue
		}
		ext, err := DiscoverExtensions(root)
		if err != nil {
			r.log.Error(context.Background(), "skill: extension discovery failed", "dir", root, "error", err)
		}
		r.skills[m.Name] = &Skill{
			Name:         m.Name,
			Version:      ResolveVersion(root, m),
			Description:  m.Description,
			Permissions:  m.Permissions,
			Dependencies: m.Dependencies,
			ScriptEntry:  m.ScriptEntry,
			Extensions:   ext,
			Root:         root,
			Status:       StatusDiscovered,
		}
	}
	return nil
}

// Get returns the current record for a skill by name.
func (r *Registry) Get(name string) (*Skill, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.skills[name]
	return s, ok
}

// Snapshot returns a defensive copy of every skill record, stable for
// iteration (e.g. building the command table) without holding the lock.
func (r *Registry) Snapshot() []*Skill {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Skill, 0, len(r.skills))
	for _, s := range r.skills {
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// LoadOrder topologically sorts discovered skills by Dependencies, so that
// every skill is loaded only after all of its dependencies. It returns a
// *DependencyError naming the offending cycle if one exists.
func (r *Registry) LoadOrder() ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return topoSort(r.skills)
}

// DependencyError reports a dependency cycle found during LoadOrder.
type DependencyError struct {
	Cycle []string
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("skill: dependency cycle detected: %v", e.Cycle)
}

const (
	stateUnvisited = iota
	stateVisiting
	stateDone
)

func topoSort(skills map[string]*Skill) ([]string, error) {
	state := make(map[string]int, len(skills))
	order := make([]string, 0, len(skills))
	var path []string

	var visit func(name string) error
	visit = func(name string) error {
		switch state[name] {
		case stateDone:
			return nil
		case stateVisiting:
			cycle := append(append([]string{}, path...), name)
			return &DependencyError{Cycle: cycle}
		}
		state[name] = stateVisiting
		path = append(path, name)

		s, ok := skills[name]
		if ok {
			deps := append([]string{}, s.Dependencies...)
			sort.Strings(deps)
			for _, dep := range deps {
				if _, exists := skills[dep]; !exists {
					return fmt.Errorf("skill: %q depends on undiscovered skill %q", name, dep)
				}
				if err := visit(dep); err != nil {
					return err
				}
			}
		}

		path = path[:len(path)-1]
		state[name] = stateDone
		order = append(order, name)
		return nil
	}

	names := make([]string, 0, len(skills))
	for name := range skills {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := visit(name); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// LoadAll loads every discovered skill in dependency order, stopping at the
// first failure. Already-loaded skills in the same call are left loaded;
// the caller decides whether a partial load is acceptable.
func (r *Registry) LoadAll(ctx context.Context, ext Extensions) error {
	order, err := r.LoadOrder()
	if err != nil {
		return err
	}
	for _, name := range order {
		if err := r.Load(ctx, name, ext); err != nil {
			return fmt.Errorf("skill: load %q: %w", name, err)
		}
	}
	return nil
}

// Load brings a single discovered skill to StatusLoaded: it looks up the
// skill's registered Factory, constructs the Module, and records a new
// LoadEpoch. Loading a skill whose dependencies are not yet StatusLoaded
// returns an error; call LoadAll to respect dependency order automatically.
func (r *Registry) Load(ctx context.Context, name string, ext Extensions) error {
	r.mu.Lock()
	s, ok := r.skills[name]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("skill: %q not discovered", name)
	}
	for _, dep := range s.Dependencies {
		depSkill, ok := r.skills[dep]
		if !ok || depSkill.Status != StatusLoaded {
			r.mu.Unlock()
			return fmt.Errorf("skill: %q requires %q to be loaded first", name, dep)
		}
	}
	root, manifest := s.Root, &Manifest{
		Name: s.Name, Version: s.Version, Description: s.Description,
		Permissions: s.Permissions, Dependencies: s.Dependencies, ScriptEntry: s.ScriptEntry,
	}
	r.mu.Unlock()

	factory, ok := lookupFactory(name)
	if !ok {
		r.markFailed(name, fmt.Sprintf("no registered module for skill %q", name))
		return fmt.Errorf("skill: no factory registered for %q (forgot a blank import?)", name)
	}

	mod, err := factory(root, manifest)
	if err != nil {
		r.markFailed(name, err.Error())
		return fmt.Errorf("skill: construct module %q: %w", name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if old, wasLoaded := r.modules[name]; wasLoaded {
		if cerr := old.Close(ctx); cerr != nil {
			r.log.Error(ctx, "skill: close previous module instance", "skill", name, "error", cerr)
		}
	}
	r.modules[name] = mod
	r.nextEpoch++
	s.Status = StatusLoaded
	s.FailureReason = ""
	s.LoadEpoch = r.nextEpoch
	s.LoadedAt = time.Now()
	r.log.Info(ctx, "skill loaded", "skill", name, "epoch", s.LoadEpoch, "version", s.Version)
	return nil
}

// Unload closes a skill's Module and marks it StatusUnloaded. Safe to call
// on an already-unloaded skill.
func (r *Registry) Unload(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.skills[name]
	if !ok {
		return fmt.Errorf("skill: %q not discovered", name)
	}
	if mod, ok := r.modules[name]; ok {
		delete(r.modules, name)
		if err := mod.Close(ctx); err != nil {
			return fmt.Errorf("skill: close module %q: %w", name, err)
		}
	}
	s.Status = StatusUnloaded
	return nil
}

func (r *Registry) markFailed(name, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.skills[name]; ok {
		s.Status = StatusFailed
		s.FailureReason = reason
	}
}

// Module returns the live Module instance for a loaded skill.
func (r *Registry) Module(name string) (Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.modules[name]
	return m, ok
}
