package skill_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goa.design/skillrt/skill"
)

func TestParseManifestReaderValid(t *testing.T) {
	front := "---\nname: filesystem\nversion: \"1.2.0\"\ndescription: reads and writes files\npermissions:\n  - filesystem:read_files\n  - filesystem:write_files\ndependencies: []\nscript_entry: main.py\n---\n\n# Filesystem skill\n"
	m, err := skill.ParseManifestFromReader(strings.NewReader(front))
	require.NoError(t, err)
	assert.Equal(t, "filesystem", m.Name)
	assert.Equal(t, "1.2.0", m.Version)
	assert.ElementsMatch(t, []string{"filesystem:read_files", "filesystem:write_files"}, m.Permissions)
}

func TestParseManifestReaderRejectsMissingName(t *testing.T) {
	_, err := skill.ParseManifestFromReader(strings.NewReader("---\nversion: \"1.0.0\"\n---\n"))
	require.Error(t, err)
}

func TestParseManifestReaderRejectsInvalidName(t *testing.T) {
	_, err := skill.ParseManifestFromReader(strings.NewReader("---\nname: Not-Valid!\n---\n"))
	require.Error(t, err)
}

func TestParseManifestReaderRequiresFrontMatter(t *testing.T) {
	_, err := skill.ParseManifestFromReader(strings.NewReader("# just a heading\n"))
	require.Error(t, err)
}

func TestValidName(t *testing.T) {
	assert.True(t, skill.ValidName("filesystem"))
	assert.True(t, skill.ValidName("git_status-v2"))
	assert.False(t, skill.ValidName("Filesystem"))
	assert.False(t, skill.ValidName("1skill"))
	assert.False(t, skill.ValidName(""))
}
