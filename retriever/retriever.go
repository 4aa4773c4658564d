// Package retriever is the one typed path through which workflow nodes
// touch the tool index and router (spec.md §4.11): five named operations
// (search, hybrid_search, index, get_stats, discover) instead of letting workflow
// authors reach into bridge/toolindex/router internals directly.
package retriever

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"goa.design/skillrt/command"
	"goa.design/skillrt/router"
	"goa.design/skillrt/schema"
	"goa.design/skillrt/toolindex"
)

// Backend names a retrieval strategy search() can be pointed at.
type Backend string

const (
	BackendHybrid   Backend = "hybrid"
	BackendVector   Backend = "vector"
	BackendKeyword  Backend = "keyword"
	BackendGraphPPR Backend = "graph_ppr"
)

var knownBackends = map[Backend]bool{
	BackendHybrid:   true,
	BackendVector:   true,
	BackendKeyword:  true,
	BackendGraphPPR: true,
}

// legacyBackendAliases maps retired backend names to their replacement, so
// older blueprints referencing them fail with an actionable message instead
// of silently routing through the wrong strategy.
var legacyBackendAliases = map[Backend]Backend{
	"semantic": BackendVector,
	"bm25":     BackendKeyword,
}

// Options configures a Retriever.
type Options struct {
	DefaultBackend Backend
	// Schemas, if non-nil, is validated against every match Discover
	// builds, per spec.md §6's discover-match schema contract.
	Schemas *schema.Registry
}

// Retriever wires toolindex.Ingestor and router.Router into the five
// operations a workflow node is allowed to call.
type Retriever struct {
	router         *router.Router
	ingestor       *toolindex.Ingestor
	tbl            *command.Table
	defaultBackend Backend
	schemas        *schema.Registry
}

// New constructs a Retriever. defaultBackend falls back to BackendHybrid
// when opts.DefaultBackend is empty.
func New(r *router.Router, in *toolindex.Ingestor, tbl *command.Table, opts Options) (*Retriever, error) {
	backend := opts.DefaultBackend
	if backend == "" {
		backend = BackendHybrid
	}
	if err := validateBackend(backend); err != nil {
		return nil, err
	}
	return &Retriever{router: r, ingestor: in, tbl: tbl, defaultBackend: backend, schemas: opts.Schemas}, nil
}

func validateBackend(b Backend) error {
	if repl, legacy := legacyBackendAliases[b]; legacy {
		return fmt.Errorf("retriever: backend %q was retired, use %q", b, repl)
	}
	if !knownBackends[b] {
		return fmt.Errorf("retriever: unknown backend %q", b)
	}
	return nil
}

// SearchRequest is the input to Search.
type SearchRequest struct {
	Query   string
	Backend Backend
	Domain  string
	Grants  []string
}

// Search runs req against the configured backend, defaulting to the
// Retriever's DefaultBackend when req.Backend is empty.
func (r *Retriever) Search(ctx context.Context, req SearchRequest) (*router.Result, error) {
	backend := req.Backend
	if backend == "" {
		backend = r.defaultBackend
	}
	if err := validateBackend(backend); err != nil {
		return nil, err
	}
	rc := router.Context{Domain: req.Domain, Grants: req.Grants}
	switch backend {
	case BackendGraphPPR:
		return r.searchGraphPPR(ctx, req, rc)
	default:
		// BackendVector and BackendKeyword run the same hybrid Route as
		// BackendHybrid: the router's fusion weight is not changed per
		// backend, so all three return the same result.
		return r.router.Route(ctx, req.Query, rc)
	}
}

// HybridSearch is Search with BackendHybrid forced, the explicit named
// entry point spec.md calls out alongside the generic Search.
func (r *Retriever) HybridSearch(ctx context.Context, req SearchRequest) (*router.Result, error) {
	req.Backend = BackendHybrid
	return r.Search(ctx, req)
}

// DiscoverMatch is one ranked command entry in an ordered discovery result,
// shaped to the discover_match.json schema (spec.md §6's discovery
// contract).
type DiscoverMatch struct {
	Tool              string  `json:"tool"`
	UsageTemplate     string  `json:"usage_template,omitempty"`
	Score             float64 `json:"score"`
	FinalScore        float64 `json:"final_score"`
	Confidence        string  `json:"confidence"`
	RankingReason     string  `json:"ranking_reason,omitempty"`
	InputSchemaDigest string  `json:"input_schema_digest,omitempty"`
	DocumentationPath string  `json:"documentation_path,omitempty"`
}

// DiscoverRequest is the input to Discover.
type DiscoverRequest struct {
	Query  string
	Domain string
	Grants []string
	// TopN caps the returned match list; TopN<=0 means unbounded.
	TopN int
}

// Discover runs the router's ranking pipeline and returns an ordered,
// schema-validated match list, the discover tool spec.md §6 calls for
// alongside Search's single best guess.
func (r *Retriever) Discover(ctx context.Context, req DiscoverRequest) ([]DiscoverMatch, error) {
	rc := router.Context{Domain: req.Domain, Grants: req.Grants}
	ranked, err := r.router.Rank(ctx, req.Query, rc, req.TopN)
	if err != nil {
		return nil, fmt.Errorf("retriever: discover: %w", err)
	}
	out := make([]DiscoverMatch, 0, len(ranked))
	for _, res := range ranked {
		match := DiscoverMatch{
			Tool:          res.Command,
			Score:         res.Score,
			FinalScore:    res.Score,
			Confidence:    string(res.Confidence),
			RankingReason: res.Reason,
		}
		if cmd, ok := r.tbl.Lookup(res.Command); ok {
			match.UsageTemplate = usageTemplate(cmd.Spec)
			match.InputSchemaDigest = schemaDigest(r.tbl.InputSchema(cmd))
		}
		if r.schemas != nil {
			if err := r.schemas.Validate(schema.DiscoverMatch, match); err != nil {
				return nil, fmt.Errorf("retriever: discover: %w", err)
			}
		}
		out = append(out, match)
	}
	return out, nil
}

// usageTemplate renders a one-line invocation hint from a command's spec,
// falling back to its description when one is set.
func usageTemplate(spec command.Spec) string {
	if spec.Description != "" {
		return spec.Description
	}
	names := make([]string, 0, len(spec.Params))
	for _, p := range spec.Params {
		names = append(names, p.Name)
	}
	return fmt.Sprintf("%s(%s)", spec.Name, strings.Join(names, ", "))
}

// schemaDigest fingerprints a command's input schema so callers can detect
// a contract change without diffing the full schema document.
func schemaDigest(inputSchema map[string]any) string {
	raw, err := json.Marshal(inputSchema)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

func (r *Retriever) searchGraphPPR(ctx context.Context, req SearchRequest, rc router.Context) (*router.Result, error) {
	result, err := r.router.Route(ctx, req.Query, rc)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}
	scores, ok := r.router.PersonalizedPageRank(ctx, router.DefaultPPROptions([]string{result.Command}))
	if !ok {
		// Graceful degradation to the vector/keyword fusion result
		// already computed, per spec.md's PPR timeout/empty-seed rule.
		return result, nil
	}
	if best, ok := bestScored(scores); ok && best != result.Command {
		result.Reason = fmt.Sprintf("%s (graph_ppr prefers %s)", result.Reason, best)
	}
	return result, nil
}

func bestScored(scores map[string]float64) (string, bool) {
	var best string
	var bestScore float64
	found := false
	for id, score := range scores {
		if !found || score > bestScore {
			best, bestScore, found = id, score, true
		}
	}
	return best, found
}

// Index ingests the live command table into the bridge, the same
// idempotent-by-ID upsert toolindex.Ingestor.IngestTable performs outside a
// workflow.
func (r *Retriever) Index(ctx context.Context) (int, error) {
	return r.ingestor.IngestTable(ctx, r.tbl)
}

// GetStats reports current index size, for workflow nodes that branch on
// whether the index has been populated yet.
func (r *Retriever) GetStats(ctx context.Context) toolindex.Stats {
	return r.ingestor.GetStats(ctx, r.tbl)
}
