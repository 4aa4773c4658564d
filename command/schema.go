package command

import (
	"bufio"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"
)

// argsLineRE matches one "Args:" entry: "name (type, required): description"
// or the shorter "name (type): description". Required defaults to false
// when unstated, matching the teacher corpus convention that optional
// parameters are the common case.
var argsLineRE = regexp.MustCompile(`^\s*(\w+)\s*\(([a-zA-Z]+)(?:,\s*(required))?\)\s*:\s*(.*)$`)

// ParseArgsDoc extracts Param entries from a tool docstring's "Args:"
// section, e.g.:
//
//	Reads the contents of a file.
//
//	Args:
//	    path (string, required): absolute path to the file to read.
//	    encoding (string): text encoding; defaults to utf-8.
//
// This is the Go-side substitute for reflecting over a Python function's
// signature and docstring: the docstring remains the single source of
// truth for parameter names, but the runtime parses it explicitly instead
// of relying on language-level introspection.
func ParseArgsDoc(doc string) []Param {
	var params []Param
	sc := bufio.NewScanner(strings.NewReader(doc))
	inArgs := false
	for sc.Scan() {
		line := sc.Text()
		trimmed := strings.TrimSpace(line)
		if strings.EqualFold(trimmed, "Args:") {
			inArgs = true
			continue
		}
		if !inArgs {
			continue
		}
		if trimmed == "" {
			continue
		}
		m := argsLineRE.FindStringSubmatch(line)
		if m == nil {
			// A non-bullet, non-blank line ends the Args: block.
			break
		}
		params = append(params, Param{
			Name:        m[1],
			Type:        normalizeType(m[2]),
			Required:    m[3] == "required",
			Description: strings.TrimSpace(m[4]),
		})
	}
	return params
}

func normalizeType(t string) string {
	switch strings.ToLower(t) {
	case "str", "string":
		return "string"
	case "int", "integer":
		return "integer"
	case "float", "number":
		return "number"
	case "bool", "boolean":
		return "boolean"
	case "list", "array":
		return "array"
	case "dict", "object":
		return "object"
	default:
		return "string"
	}
}

// BuildInputSchema renders params into a JSON Schema object, the same shape
// schema.Registry expects for validation and the same shape
// retriever.Discover hashes into a discover_match record's
// input_schema_digest.
func BuildInputSchema(params []Param) map[string]any {
	props := make(map[string]any, len(params))
	var required []string
	for _, p := range params {
		prop := map[string]any{"type": p.Type}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		props[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// SchemaCache renders and caches a Spec's InputSchema for ttl, avoiding
// rebuilding the schema object on every router or kernel lookup. Building a
// schema is cheap, but the router calls it per candidate per query, so a
// short TTL still pays for itself under load.
type SchemaCache struct {
	mu  sync.Mutex
	ttl time.Duration
	m   map[string]cacheEntry
}

// NewSchemaCache constructs a SchemaCache with the given TTL. A TTL of zero
// disables caching: every call rebuilds the schema.
func NewSchemaCache(ttl time.Duration) *SchemaCache {
	return &SchemaCache{ttl: ttl, m: map[string]cacheEntry{}}
}

// Get returns the cached InputSchema for name, building it from params with
// BuildInputSchema and caching it if absent or expired.
func (c *SchemaCache) Get(name string, params []Param) map[string]any {
	if c.ttl <= 0 {
		return BuildInputSchema(params)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.m[name]; ok && time.Now().Before(e.expires) {
		return e.schema
	}
	schema := BuildInputSchema(params)
	c.m[name] = cacheEntry{schema: schema, expires: time.Now().Add(c.ttl)}
	return schema
}

// Invalidate drops a cached entry, used when a skill reload changes a
// command's parameter list under the same name.
func (c *SchemaCache) Invalidate(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.m, name)
}

// ValidateCall checks a proposed tool call's arguments against spec's
// required parameters, returning a human-readable error listing every
// missing field rather than failing on the first one — the same "collect
// every issue" ergonomics the teacher's FieldIssue type supports.
func ValidateCall(spec Spec, args map[string]any) error {
	var missing []string
	for _, p := range spec.Params {
		if !p.Required {
			continue
		}
		if _, ok := args[p.Name]; !ok {
			missing = append(missing, p.Name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("command: %s missing required argument(s): %s", spec.Name, strings.Join(missing, ", "))
	}
	return nil
}
