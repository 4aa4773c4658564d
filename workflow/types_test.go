package workflow_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"goa.design/skillrt/workflow"
)

func TestStateMergeAppendsLists(t *testing.T) {
	s := workflow.State{"findings": []any{"a"}}
	out := s.Merge(workflow.State{"findings": []any{"b", "c"}})
	assert.Equal(t, []any{"a", "b", "c"}, out["findings"])
	// original is untouched
	assert.Equal(t, []any{"a"}, s["findings"])
}

func TestStateMergeLastWriteWinsForNonLists(t *testing.T) {
	s := workflow.State{"status": "pending"}
	out := s.Merge(workflow.State{"status": "done"})
	assert.Equal(t, "done", out["status"])
}

func TestStateGetDottedPath(t *testing.T) {
	s := workflow.State{"analysis": map[string]any{"needs_fix": true}}
	v, ok := s.Get("analysis.needs_fix")
	assert.True(t, ok)
	assert.Equal(t, true, v)

	_, ok = s.Get("analysis.missing")
	assert.False(t, ok)

	_, ok = s.Get("missing.path")
	assert.False(t, ok)
}

func TestStateGetThroughNestedState(t *testing.T) {
	s := workflow.State{"chunk": workflow.State{"chunk_id": "c1"}}
	v, ok := s.Get("chunk.chunk_id")
	assert.True(t, ok)
	assert.Equal(t, "c1", v)
}
