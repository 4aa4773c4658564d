package kernel

import (
	"context"
	"fmt"
)

// WorkflowDispatcher adapts a Kernel to the narrow Call(ctx, toolName,
// args) (any, error) shape workflow.Dispatcher expects, filling in a
// CallContext from fixed grants rather than a per-request caller identity.
// A workflow node has no human operator behind it to attribute a call to,
// so its CallContext.Skill and Grants are the workflow engine's own
// identity, set once at construction.
type WorkflowDispatcher struct {
	kernel *Kernel
	base   CallContext
}

// NewWorkflowDispatcher wraps k, stamping every dispatched call with base
// (skill name and grants the workflow engine itself runs under).
func NewWorkflowDispatcher(k *Kernel, base CallContext) *WorkflowDispatcher {
	return &WorkflowDispatcher{kernel: k, base: base}
}

// Call implements workflow.Dispatcher. A kernel-level StatusBlocked or
// StatusError response becomes a Go error so the workflow executor's
// escalation path (spec.md §4.10's fan-out failure handling) can treat it
// the same as a transport-level failure.
func (d *WorkflowDispatcher) Call(ctx context.Context, toolName string, args map[string]any) (any, error) {
	cc := d.base
	if cc.SelectedRoute == "" {
		cc.SelectedRoute = toolName
	}
	if cc.Confidence == "" {
		cc.Confidence = "high"
	}
	resp := d.kernel.Call(ctx, toolName, args, cc)
	switch resp.Status {
	case StatusOK, StatusStart:
		return resp.Data, nil
	default:
		return nil, fmt.Errorf("kernel: %s: %s", resp.ErrorCode, resp.ErrorMessage)
	}
}
