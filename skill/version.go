package skill

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
)

const lockFileName = ".omni-lock.json"

// ResolveVersion implements the non-blocking version resolution chain from
// spec.md §4.4: .omni-lock.json → SKILL.md → git rev-parse HEAD (+dirty
// marker) → "unknown". Each step is best-effort; failures fall through to
// the next step rather than aborting the load.
func ResolveVersion(root string, manifest *Manifest) string {
	if v, ok := readLockVersion(root); ok {
		return v
	}
	if manifest != nil && manifest.Version != "" {
		return manifest.Version
	}
	if v, ok := gitRevision(root); ok {
		return v
	}
	return "unknown"
}

func readLockVersion(root string) (string, bool) {
	raw, err := os.ReadFile(filepath.Join(root, lockFileName))
	if err != nil {
		return "", false
	}
	var lock LockFile
	if err := json.Unmarshal(raw, &lock); err != nil {
		return "", false
	}
	if lock.Version == "" {
		return "", false
	}
	return lock.Version, true
}

// gitRevision resolves HEAD for the repository containing root, appending a
// "-dirty" marker when the worktree has uncommitted changes. It returns
// ok=false when root is not inside a git repository, matching the
// "non-blocking" contract: callers fall back to "unknown".
func gitRevision(root string) (string, bool) {
	repo, err := git.PlainOpenWithOptions(root, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", false
	}
	head, err := repo.Head()
	if err != nil {
		return "", false
	}
	rev := head.Hash().String()

	wt, err := repo.Worktree()
	if err != nil {
		return rev, true
	}
	status, err := wt.Status()
	if err != nil {
		return rev, true
	}
	if !status.IsClean() {
		rev += "-dirty"
	}
	return rev, true
}

// Diff reports the per-file worktree status for a skill whose root is a git
// checkout, keyed by path relative to the repository root. This is an
// additive diagnostic accessor (SPEC_FULL.md §4.4a); the registry and the
// loader do not call it. It augments version resolution without changing
// the required Skill fields.
// A nil, nil result means root is not inside a git repository or has no
// pending changes.
func Diff(root string) (git.Status, error) {
	repo, err := git.PlainOpenWithOptions(root, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, nil //nolint:nilerr // not a git repo is not an error for this diagnostic accessor
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("skill: load worktree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("skill: worktree status: %w", err)
	}
	if status.IsClean() {
		return nil, nil
	}
	return status, nil
}
