package skill

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"goa.design/skillrt/telemetry"
)

// Watcher observes a skills directory and reloads a skill's module whenever
// its SKILL.md or extensions/ subtree changes, publishing the new epoch to
// sink (spec.md §4.4/§8 "hot-reload safety"). It is optional: registries
// constructed via LoadInto work without ever starting a Watcher.
type Watcher struct {
	reg  *Registry
	fsw  *fsnotify.Watcher
	sink CommandSink
	log  telemetry.Logger
}

// NewWatcher creates a Watcher bound to reg and sink. Call Watch to start
// watching a directory and Run to begin processing events.
func NewWatcher(reg *Registry, sink CommandSink, log telemetry.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = telemetry.NewNoopLogger()
	}
	return &Watcher{reg: reg, fsw: fsw, sink: sink, log: log}, nil
}

// Watch adds dir (a skill's root, or its skills-parent directory) to the
// watch set. fsnotify is non-recursive, so Watch must be called once per
// skill root to also observe its extensions/ subdirectory.
func (w *Watcher) Watch(root string) error {
	if err := w.fsw.Add(root); err != nil {
		return err
	}
	extDir := filepath.Join(root, "extensions")
	if err := w.fsw.Add(extDir); err != nil {
		// extensions/ is optional; absence is not an error.
		return nil //nolint:nilerr
	}
	return nil
}

// Run processes fsnotify events until ctx is cancelled, reloading the
// skill whose root contains the changed path. A skill without a registered
// Factory (e.g. one still under construction) logs the reload failure and
// keeps serving its previous epoch rather than tearing down the command
// table.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.handle(ctx, ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Error(ctx, "skill: watcher error", "error", err)
		}
	}
}

func (w *Watcher) handle(ctx context.Context, ev fsnotify.Event) {
	name, ok := w.skillForPath(ev.Name)
	if !ok {
		return
	}
	if err := w.reg.Reload(ctx, name, w.sink); err != nil {
		w.log.Error(ctx, "skill: hot reload failed, keeping previous epoch", "skill", name, "error", err)
		return
	}
	w.log.Info(ctx, "skill: hot reload applied", "skill", name)
}

func (w *Watcher) skillForPath(path string) (string, bool) {
	dir := filepath.Dir(path)
	base := filepath.Base(dir)
	if base == "extensions" {
		dir = filepath.Dir(dir)
	}
	for _, s := range w.reg.Snapshot() {
		if s.Root == dir {
			return s.Name, true
		}
	}
	return "", false
}
