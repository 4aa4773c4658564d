// Package kernel implements the execution kernel (spec.md §4.8): the
// resolve → validate → authorize → inject → dispatch → normalize → trace
// pipeline every tool call passes through, producing a canonical
// ToolResponse regardless of how the underlying handler behaves.
package kernel

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"goa.design/skillrt/command"
	"goa.design/skillrt/config"
	"goa.design/skillrt/permission"
	"goa.design/skillrt/rterrors"
	"goa.design/skillrt/schema"
	"goa.design/skillrt/telemetry"
)

func newSessionID() string { return uuid.NewString() }

// Status is a ToolResponse's top-level outcome.
type Status string

const (
	StatusOK      Status = "success"
	StatusError   Status = "error"
	StatusBlocked Status = "blocked"
	StatusStart   Status = "start"
)

// ToolResponse is the canonical shape every tool call resolves to (spec.md
// §4.8 step 6), whatever the handler itself returned.
type ToolResponse struct {
	Status       Status         `json:"status"`
	Data         any            `json:"data,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
	ErrorCode    rterrors.Code  `json:"error_code,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	Timestamp    time.Time      `json:"timestamp"`
}

// Injector supplies autowired parameters (project root, config paths) to
// handlers that declare them, step 4 of the pipeline. Handlers opt in by
// naming the parameter in their Spec; Kernel does not inspect function
// signatures (Go has no such reflection over arbitrary closures).
type Injector interface {
	Inject(ctx context.Context, paramName string) (any, bool)
}

// CallContext carries the caller-scoped inputs the kernel needs per call:
// which skill is invoking the tool and with what grants, plus trace
// identifiers.
type CallContext struct {
	SessionID string
	TurnID    string
	Skill     string
	Grants    []string

	// SelectedRoute and Confidence, when set, come from a prior
	// router.Result and are carried into the emitted RouteTrace as-is.
	// A direct kernel call bypassing the router (e.g. an explicit
	// command invocation) defaults SelectedRoute to toolName and
	// Confidence to "high", since the caller already knows exactly
	// which tool it wants.
	SelectedRoute string
	Confidence    string
	RiskLevel     string
	ToolTrustClass string
}

// Kernel binds a command table to the permission gatekeeper, a schema
// registry for trace validation, and an execution timeout.
type Kernel struct {
	tbl       *command.Table
	schemas   *schema.Registry
	injector  Injector
	cfg       config.ExecutionConfig
	log       telemetry.Logger
	tracer    telemetry.Tracer
	sessions  *SessionStore
	onTrace   func(context.Context, RouteTrace)
}

// Option configures a Kernel at construction.
type Option func(*Kernel)

// WithInjector sets the autowire Injector for step 4.
func WithInjector(inj Injector) Option { return func(k *Kernel) { k.injector = inj } }

// WithLogger sets the kernel's structured logger.
func WithLogger(log telemetry.Logger) Option { return func(k *Kernel) { k.log = log } }

// WithTracer sets the kernel's tracer.
func WithTracer(tracer telemetry.Tracer) Option { return func(k *Kernel) { k.tracer = tracer } }

// WithTraceSink registers a callback invoked with every RouteTrace the
// kernel emits, e.g. to persist it via the schema-validated route_trace
// record.
func WithTraceSink(fn func(context.Context, RouteTrace)) Option {
	return func(k *Kernel) { k.onTrace = fn }
}

// New constructs a Kernel bound to tbl and schemas.
func New(tbl *command.Table, schemas *schema.Registry, cfg config.ExecutionConfig, opts ...Option) *Kernel {
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	k := &Kernel{
		tbl:      tbl,
		schemas:  schemas,
		cfg:      cfg,
		log:      telemetry.NewNoopLogger(),
		tracer:   telemetry.NewNoopTracer(),
		sessions: NewSessionStore(ttl),
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// Call runs the full pipeline for one tool invocation.
func (k *Kernel) Call(ctx context.Context, toolName string, args map[string]any, cc CallContext) ToolResponse {
	start := time.Now()
	ctx, span := k.tracer.Start(ctx, "kernel.Call")
	defer span.End()

	selectedRoute := cc.SelectedRoute
	if selectedRoute == "" {
		selectedRoute = toolName
	}
	confidence := cc.Confidence
	if confidence == "" {
		confidence = "high"
	}
	trace := RouteTrace{
		SessionID:      cc.SessionID,
		TurnID:         cc.TurnID,
		SelectedRoute:  selectedRoute,
		Confidence:     confidence,
		RiskLevel:      cc.RiskLevel,
		ToolTrustClass: cc.ToolTrustClass,
		ToolChain:      []string{toolName},
	}
	resp := k.call(ctx, toolName, args, cc, &trace)
	trace.LatencyMS = time.Since(start).Milliseconds()
	if k.schemas != nil {
		if err := k.schemas.Validate(schema.RouteTrace, trace); err != nil {
			k.log.Error(ctx, "kernel: route trace failed schema validation, dropping", "error", err)
		} else if k.onTrace != nil {
			k.onTrace(ctx, trace)
		}
	} else if k.onTrace != nil {
		k.onTrace(ctx, trace)
	}
	return resp
}

func (k *Kernel) call(ctx context.Context, toolName string, args map[string]any, cc CallContext, trace *RouteTrace) ToolResponse {
	now := time.Now()

	// Chunked output pull: a "batch" action reads from the session store
	// instead of re-dispatching a handler.
	if action, _ := args["action"].(string); action == "batch" {
		return k.batch(args, now)
	}

	// 1. Resolve.
	cmd, ok := k.tbl.Lookup(toolName)
	if !ok {
		trace.FailureTaxonomy = string(rterrors.CodeToolNotFound)
		return errorResponse(rterrors.CodeToolNotFound, fmt.Sprintf("no such tool %q", toolName), now)
	}

	// 2. Validate.
	if err := command.ValidateCall(cmd.Spec, args); err != nil {
		trace.FailureTaxonomy = string(rterrors.CodeParamInvalid)
		return errorResponse(rterrors.CodeParamInvalid, err.Error(), now)
	}

	// 3. Authorize.
	if err := permission.ValidateOrRaise(cc.Skill, toolName, cc.Grants); err != nil {
		trace.FailureTaxonomy = string(rterrors.CodeBlocked)
		return ToolResponse{Status: StatusBlocked, ErrorMessage: err.Error(), ErrorCode: rterrors.CodeBlocked, Timestamp: now}
	}

	// 4. Inject.
	callArgs := args
	if k.injector != nil {
		callArgs = k.injectParams(ctx, cmd, args)
	}

	// 5. Dispatch, with a per-call timeout.
	callCtx := ctx
	var cancel context.CancelFunc
	if k.cfg.Timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, k.cfg.Timeout)
		defer cancel()
	}
	result, err := k.dispatch(callCtx, cmd, callArgs)
	if callCtx.Err() != nil {
		trace.FailureTaxonomy = string(rterrors.CodeTimeout)
		return errorResponse(rterrors.CodeTimeout, fmt.Sprintf("tool %q exceeded its execution timeout", toolName), now)
	}
	if err != nil {
		code := rterrors.CodeOf(err)
		trace.FailureTaxonomy = string(code)
		return errorResponse(code, sanitize(err), now)
	}

	// 6. Normalize.
	resp := k.normalize(result, now)
	return k.maybeChunk(resp, now)
}

// maybeChunk switches an oversized []any payload to the start/batch pull
// contract (spec.md §4.8 "Chunked output contract"). Anything smaller than
// the configured threshold, or not a slice, passes through unchanged.
func (k *Kernel) maybeChunk(resp ToolResponse, now time.Time) ToolResponse {
	if resp.Status != StatusOK {
		return resp
	}
	items, ok := resp.Data.([]any)
	threshold := k.cfg.ChunkThreshold
	if threshold <= 0 {
		threshold = 200
	}
	if !ok || len(items) <= threshold {
		return resp
	}
	batchSize := k.cfg.ChunkBatchSize
	if batchSize <= 0 {
		batchSize = 50
	}
	sessionID := newSessionID()
	first, count := k.sessions.Start(sessionID, items, batchSize)
	return ToolResponse{
		Status: StatusStart,
		Data: map[string]any{
			"session_id":  sessionID,
			"batch_count": count,
			"batch_size":  batchSize,
			"first_batch": first,
		},
		Timestamp: now,
	}
}

func (k *Kernel) dispatch(ctx context.Context, cmd *command.Command, args map[string]any) (any, error) {
	type dispatchResult struct {
		val any
		err error
	}
	done := make(chan dispatchResult, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- dispatchResult{err: fmt.Errorf("tool panicked: %v", rec)}
			}
		}()
		v, err := cmd.Handler(ctx, args)
		done <- dispatchResult{val: v, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		return r.val, r.err
	}
}

func (k *Kernel) injectParams(ctx context.Context, cmd *command.Command, args map[string]any) map[string]any {
	out := make(map[string]any, len(args))
	for key, val := range args {
		out[key] = val
	}
	for _, p := range cmd.Spec.Params {
		if _, present := out[p.Name]; present {
			continue
		}
		if v, ok := k.injector.Inject(ctx, p.Name); ok {
			out[p.Name] = v
		}
	}
	return out
}

// normalize maps a handler's raw return value to the canonical
// ToolResponse shape (spec.md §4.8 step 6). A *ToolResponse passes through
// unchanged; a map with a "status" key is rewrapped; anything else is
// treated as a plain success payload.
func (k *Kernel) normalize(result any, now time.Time) ToolResponse {
	switch v := result.(type) {
	case ToolResponse:
		return v
	case *ToolResponse:
		return *v
	case map[string]any:
		if status, ok := v["status"].(string); ok {
			return ToolResponse{
				Status:    Status(status),
				Data:      v["data"],
				Timestamp: now,
			}
		}
		return ToolResponse{Status: StatusOK, Data: v, Timestamp: now}
	default:
		return ToolResponse{Status: StatusOK, Data: v, Timestamp: now}
	}
}

func errorResponse(code rterrors.Code, msg string, now time.Time) ToolResponse {
	return ToolResponse{Status: StatusError, ErrorCode: code, ErrorMessage: msg, Timestamp: now}
}

// sanitize strips an error down to a message safe to surface to a caller:
// no stack traces, no internal file paths beyond the error's own text.
func sanitize(err error) string {
	return err.Error()
}
