package permission_test

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goa.design/skillrt/permission"
)

// TestGatekeeperTotality encodes spec.md §8's invariant: for every
// (skill, tool, grants), Validate returns a boolean (never panics); an empty
// grant list always denies; a "*" grant always allows.
func TestGatekeeperTotality(t *testing.T) {
	params := gopter.DefaultTestParameters()
	props := gopter.NewProperties(params)

	categoryGen := gen.OneConstOf("filesystem", "git", "calc", "research", "memory")
	actionGen := gen.OneConstOf("read_files", "write_files", "status", "run", "search")

	props.Property("empty grants always deny", prop.ForAll(
		func(skill, category, action string) bool {
			return !permission.Validate(skill, category+"."+action, nil) &&
				!permission.Validate(skill, category+"."+action, []string{})
		},
		gen.AlphaString(), categoryGen, actionGen,
	))

	props.Property("wildcard grant always allows", prop.ForAll(
		func(skill, category, action string) bool {
			return permission.Validate(skill, category+"."+action, []string{"*"})
		},
		gen.AlphaString(), categoryGen, actionGen,
	))

	props.Property("category wildcard covers any action in that category", prop.ForAll(
		func(skill, category, action string) bool {
			return permission.Validate(skill, category+"."+action, []string{category + ":*"})
		},
		gen.AlphaString(), categoryGen, actionGen,
	))

	props.Property("exact grant covers only its own action", prop.ForAll(
		func(skill, category, action, otherAction string) bool {
			if action == otherAction {
				return true
			}
			grants := []string{category + ":" + action}
			return permission.Validate(skill, category+"."+action, grants) &&
				!permission.Validate(skill, category+"."+otherAction, grants)
		},
		gen.AlphaString(), categoryGen, actionGen, actionGen,
	))

	props.TestingRun(t)
}

func TestValidateOrRaise(t *testing.T) {
	err := permission.ValidateOrRaise("calc", "filesystem.read_files", nil)
	require.Error(t, err)
	var denied *permission.DeniedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, "calc", denied.Skill)
	assert.Equal(t, "filesystem.read_files", denied.Tool)
	assert.Equal(t, "filesystem:read_files", denied.RequiredGrant)

	require.NoError(t, permission.ValidateOrRaise("calc", "filesystem.read_files", []string{"filesystem:*"}))
}

// TestConcreteScenario3 is the exact worked example from spec.md §8.
func TestConcreteScenario3(t *testing.T) {
	assert.False(t, permission.Validate("calc", "filesystem.read_files", []string{}))
	assert.True(t, permission.Validate("calc", "filesystem.read_files", []string{"filesystem:*"}))
}

// TestGrantCoverageBoundary is the boundary behavior named in spec.md §8:
// "filesystem:*" covers filesystem.read_files and filesystem.write_files but
// not git.status.
func TestGrantCoverageBoundary(t *testing.T) {
	grants := []string{"filesystem:*"}
	assert.True(t, permission.Validate("s", "filesystem.read_files", grants))
	assert.True(t, permission.Validate("s", "filesystem.write_files", grants))
	assert.False(t, permission.Validate("s", "git.status", grants))
}
