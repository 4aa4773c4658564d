package skill

import (
	"context"
	"fmt"
	"plugin"
)

// CommandSink receives the commands contributed by a loaded skill. Package
// command implements this to build the runtime's command table; tests can
// supply a simpler in-memory sink.
type CommandSink interface {
	Register(skillName string, epoch int, defs []CommandDef) error
}

// LoadInto runs LoadAll and then, for every loaded skill, pushes its
// Module's commands into sink. This is the bridge step between the registry
// and the command table: the registry owns skill lifecycle, the sink owns
// the epoch-keyed dispatch table that the kernel reads.
func (r *Registry) LoadInto(ctx context.Context, sink CommandSink) error {
	order, err := r.LoadOrder()
	if err != nil {
		return err
	}
	for _, name := range order {
		ext, err := r.buildExtensions(name)
		if err != nil {
			return fmt.Errorf("skill: build extensions for %q: %w", name, err)
		}
		if err := r.Load(ctx, name, ext); err != nil {
			return fmt.Errorf("skill: load %q: %w", name, err)
		}
		if err := r.publish(name, sink); err != nil {
			return err
		}
	}
	return nil
}

// Reload re-loads a single skill (e.g. in response to an fsnotify event, see
// watcher.go) and republishes its commands under a new LoadEpoch. In-flight
// invocations that captured the prior epoch's command table are unaffected;
// see Skill.LoadEpoch.
func (r *Registry) Reload(ctx context.Context, name string, sink CommandSink) error {
	ext, err := r.buildExtensions(name)
	if err != nil {
		return fmt.Errorf("skill: build extensions for %q: %w", name, err)
	}
	if err := r.Load(ctx, name, ext); err != nil {
		return err
	}
	return r.publish(name, sink)
}

func (r *Registry) publish(name string, sink CommandSink) error {
	mod, ok := r.Module(name)
	if !ok {
		return fmt.Errorf("skill: %q has no live module after load", name)
	}
	s, ok := r.Get(name)
	if !ok {
		return fmt.Errorf("skill: %q vanished from registry after load", name)
	}
	ext, err := r.buildExtensions(name)
	if err != nil {
		return err
	}
	defs := mod.Commands(ext)
	if err := sink.Register(name, s.LoadEpoch, defs); err != nil {
		return fmt.Errorf("skill: register commands for %q: %w", name, err)
	}
	return nil
}

// buildExtensions loads the compiled accelerator for each extension name
// discovered under the skill's extensions/ directory (spec.md §4.4/§9:
// "extension/fixture native-accelerator substitution"). Each extension
// directory is expected to contain exactly one Go plugin (*.so) exporting a
// package-level "New" symbol; a missing or malformed plugin is a hard error,
// since an extension that a skill declares but cannot load would silently
// fall back to a slower default and mask a packaging bug.
func (r *Registry) buildExtensions(name string) (Extensions, error) {
	s, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("skill: %q not discovered", name)
	}
	if len(s.Extensions) == 0 {
		return nil, nil
	}
	out := make(Extensions, len(s.Extensions))
	for _, extName := range s.Extensions {
		so := s.Root + "/extensions/" + extName + "/" + extName + ".so"
		p, err := plugin.Open(so)
		if err != nil {
			return nil, fmt.Errorf("skill: open extension plugin %s: %w", so, err)
		}
		sym, err := p.Lookup("New")
		if err != nil {
			return nil, fmt.Errorf("skill: extension %s missing New symbol: %w", extName, err)
		}
		ctor, ok := sym.(func() any)
		if !ok {
			return nil, fmt.Errorf("skill: extension %s New has unexpected signature", extName)
		}
		out[extName] = ctor()
	}
	return out, nil
}
