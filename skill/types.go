// Package skill implements the skill registry and loader (spec.md §4.4):
// discovery, manifest parsing, dependency topological load, hot reload, and
// extension-fixture injection.
package skill

import (
	"regexp"
	"time"
)

// nameRE enforces spec.md §3's skill name grammar: lowercase,
// [a-z_][a-z0-9_-]*.
var nameRE = regexp.MustCompile(`^[a-z_][a-z0-9_-]*$`)

// ValidName reports whether name satisfies the skill naming grammar.
func ValidName(name string) bool {
	return nameRE.MatchString(name)
}

// Status is a skill's lifecycle state within the registry.
type Status string

const (
	StatusDiscovered Status = "discovered"
	StatusLoaded     Status = "loaded"
	StatusUnloaded   Status = "unloaded"
	StatusFailed     Status = "failed"
)

// Skill is the registry's record of one unit of behavior (spec.md §3).
type Skill struct {
	// Name is the unique skill identifier; must satisfy ValidName.
	Name string
	// Version is the resolved semantic version, per the chain in
	// ResolveVersion: .omni-lock.json → SKILL.md → git rev-parse HEAD
	// (+dirty marker) → "unknown".
	Version string
	// Description is a short human-readable summary from SKILL.md.
	Description string
	// Permissions is the skill's grant list: "category:action",
	// "category:*", or "*" entries, consulted by the permission package.
	Permissions []string
	// Dependencies names other skills this skill requires to load first.
	Dependencies []string
	// ScriptEntry is the conventional entry point path recorded in the
	// manifest (informational; the actual Go implementation is located via
	// the Factories registry, see registry.go).
	ScriptEntry string
	// Extensions lists the names of extension packages discovered under
	// extensions/<name>/ at the skill root.
	Extensions []string
	// Root is the filesystem path to the skill's directory.
	Root string

	// Status is the current lifecycle state.
	Status Status
	// FailureReason explains why Status is StatusFailed. Empty otherwise.
	FailureReason string
	// LoadEpoch increments every time this skill is (re)loaded, and is used
	// to make hot reload observably atomic: in-flight invocations keep a
	// reference to the epoch's command table and complete against it even
	// if a newer epoch is published mid-call (spec.md §8, "hot-reload
	// safety").
	LoadEpoch int
	// LoadedAt records when the current epoch was published.
	LoadedAt time.Time
}

// Manifest is the parsed content of a SKILL.md YAML front-matter block.
type Manifest struct {
	Name         string   `yaml:"name"`
	Version      string   `yaml:"version"`
	Description  string   `yaml:"description"`
	Permissions  []string `yaml:"permissions"`
	Dependencies []string `yaml:"dependencies"`
	ScriptEntry  string   `yaml:"script_entry"`
}

// LockFile is the decoded content of an optional .omni-lock.json, used by
// the version resolution chain before falling back to SKILL.md or git.
type LockFile struct {
	Version string `json:"version"`
	Commit  string `json:"commit,omitempty"`
}
