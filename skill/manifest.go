package skill

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const frontMatterDelim = "---"

// ParseManifest reads a SKILL.md file and decodes its YAML front matter
// (delimited by leading and trailing "---" lines). The markdown body after
// the front matter, if any, is ignored by the loader; it is documentation
// for humans, not loader input.
func ParseManifest(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("skill: open manifest %s: %w", path, err)
	}
	defer f.Close()
	return ParseManifestFromReader(f)
}

// ParseManifestFromReader is ParseManifest taking an io.Reader directly,
// exported for tests that don't want to touch the filesystem.
func ParseManifestFromReader(r io.Reader) (*Manifest, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if !scanner.Scan() {
		return nil, fmt.Errorf("skill: manifest is empty")
	}
	if bytes.TrimSpace(scanner.Bytes())[0] != '-' || scanner.Text() != frontMatterDelim {
		return nil, fmt.Errorf("skill: manifest must start with %q front matter", frontMatterDelim)
	}

	var buf bytes.Buffer
	closed := false
	for scanner.Scan() {
		line := scanner.Text()
		if line == frontMatterDelim {
			closed = true
			break
		}
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("skill: read manifest: %w", err)
	}
	if !closed {
		return nil, fmt.Errorf("skill: manifest front matter not closed")
	}

	var m Manifest
	if err := yaml.Unmarshal(buf.Bytes(), &m); err != nil {
		return nil, fmt.Errorf("skill: parse front matter: %w", err)
	}
	if m.Name == "" {
		return nil, fmt.Errorf("skill: manifest missing required field \"name\"")
	}
	if !ValidName(m.Name) {
		return nil, fmt.Errorf("skill: invalid skill name %q", m.Name)
	}
	return &m, nil
}

// DiscoverExtensions lists the subdirectory names under root/extensions, the
// native-accelerator fixture packages described in spec.md §4.4/§9. A
// missing extensions directory is not an error — most skills have none.
func DiscoverExtensions(root string) ([]string, error) {
	dir := filepath.Join(root, "extensions")
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("skill: read extensions dir %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}
