// Package router implements the hybrid router (spec.md §4.7): explicit
// command shortcut, fused vector/keyword/relationship scoring, confidence
// banding, scope filtering, and a fallback chain that degrades gracefully
// when no candidate clears the minimum floor.
package router

import (
	"context"
	"fmt"
	"regexp"
	"sort"

	"goa.design/skillrt/bridge"
	"goa.design/skillrt/command"
	"goa.design/skillrt/config"
	"goa.design/skillrt/permission"
	"goa.design/skillrt/telemetry"
)

// explicitCommandRE matches the shortcut grammar from spec.md §4.7: a
// lowercase category, a literal '.', and a lowercase action.
var explicitCommandRE = regexp.MustCompile(`^[a-z][a-z0-9_]*\.[a-z][a-z0-9_]*$`)

// Confidence bands a route's final score.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Mode is the retrieval plan's selected strategy.
type Mode string

const (
	ModeVectorOnly Mode = "vector_only"
	ModeGraphOnly  Mode = "graph_only"
	ModeHybrid     Mode = "hybrid"
)

// RetrievalPlan documents how a route was produced, surfaced in traces and
// overridable by the kernel (e.g. falling back to vector-only when the
// graph is empty).
type RetrievalPlan struct {
	SelectedMode Mode
	Reason       string
}

// Result is one routed candidate. A nil *Result from Route means no
// candidate cleared the minimum floor; callers consult FallbackSuggestion for a
// suggestion.
type Result struct {
	Skill      string
	Command    string
	Score      float64
	Confidence Confidence
	Reason     string
	Plan       RetrievalPlan
}

// Context carries per-call routing inputs beyond the query string: the
// caller's working domain and the grants active for this call, used for
// scope filtering (spec.md §4.7 step 3).
type Context struct {
	Domain string
	Grants []string
}

// Embedder turns a query into a vector for vector search. Satisfied by the
// same interface toolindex.Ingestor uses for document embedding.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Router is the hybrid router bound to one tool-index bridge and command
// table.
type Router struct {
	br       bridge.Bridge
	tbl      *command.Table
	embedder Embedder
	cfg      config.RouterConfig
	log      telemetry.Logger
}

// New constructs a Router.
func New(br bridge.Bridge, tbl *command.Table, embedder Embedder, cfg config.RouterConfig, log telemetry.Logger) *Router {
	if log == nil {
		log = telemetry.NewNoopLogger()
	}
	return &Router{br: br, tbl: tbl, embedder: embedder, cfg: cfg, log: log}
}

// FallbackSuggestion is returned alongside a nil Result when no candidate
// clears the minimum floor (spec.md §4.7 step 5).
const FallbackSuggestion = "use terminal or filesystem skills"

// Route runs the full algorithm from spec.md §4.7 against query.
func (r *Router) Route(ctx context.Context, query string, rc Context) (*Result, error) {
	if explicitCommandRE.MatchString(query) {
		if cmd, ok := r.tbl.Lookup(query); ok {
			return &Result{
				Skill: cmd.Skill, Command: query, Score: 1.0, Confidence: ConfidenceHigh,
				Reason: "explicit_command",
				Plan:   RetrievalPlan{SelectedMode: ModeVectorOnly, Reason: "explicit shortcut bypasses retrieval"},
			}, nil
		}
	}

	candidates, plan, err := r.hybridSearch(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("router: hybrid search: %w", err)
	}

	candidates = r.filterByScope(candidates, rc)
	if len(candidates) == 0 {
		return nil, nil
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Score > candidates[j].Score })
	best := candidates[0]

	if best.Score < r.cfg.ConfidenceMedium*0.5 {
		// Below even a generous floor: no-result marker, fallback chain
		// applies (spec.md §4.7 step 5).
		return nil, nil
	}

	return &Result{
		Skill:      best.skill,
		Command:    best.id,
		Score:      best.Score,
		Confidence: r.band(best.Score),
		Reason:     "hybrid_search",
		Plan:       plan,
	}, nil
}

// Rank runs the same retrieval pipeline as Route but returns every
// candidate clearing the minimum floor, best-first, instead of collapsing
// to a single guess. This backs the discovery contract (spec.md §6): "a
// discover tool returns an ordered match list". topN caps the returned
// list; topN<=0 means unbounded.
func (r *Router) Rank(ctx context.Context, query string, rc Context, topN int) ([]Result, error) {
	if explicitCommandRE.MatchString(query) {
		if cmd, ok := r.tbl.Lookup(query); ok {
			return []Result{{
				Skill: cmd.Skill, Command: query, Score: 1.0, Confidence: ConfidenceHigh,
				Reason: "explicit_command",
				Plan:   RetrievalPlan{SelectedMode: ModeVectorOnly, Reason: "explicit shortcut bypasses retrieval"},
			}}, nil
		}
	}

	candidates, plan, err := r.hybridSearch(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("router: hybrid search: %w", err)
	}
	candidates = r.filterByScope(candidates, rc)
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Score > candidates[j].Score })

	floor := r.cfg.ConfidenceMedium * 0.5
	out := make([]Result, 0, len(candidates))
	for _, c := range candidates {
		if c.Score < floor {
			break
		}
		out = append(out, Result{
			Skill:      c.skill,
			Command:    c.id,
			Score:      c.Score,
			Confidence: r.band(c.Score),
			Reason:     "hybrid_search",
			Plan:       plan,
		})
		if topN > 0 && len(out) >= topN {
			break
		}
	}
	return out, nil
}

type scoredCandidate struct {
	id    string
	skill string
	Score float64
}

func (r *Router) band(score float64) Confidence {
	switch {
	case score >= r.cfg.ConfidenceHigh:
		return ConfidenceHigh
	case score >= r.cfg.ConfidenceMedium:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// hybridSearch embeds the query, runs vector and keyword search, and fuses
// scores per spec.md §4.7 step 2: final = α·vector + (1−α)·keyword_norm +
// relationship_boost, capped at 1.0.
func (r *Router) hybridSearch(ctx context.Context, query string) ([]scoredCandidate, RetrievalPlan, error) {
	topN := r.cfg.VectorTopN
	if topN <= 0 {
		topN = 10
	}

	scores := map[string]float64{}
	mode := ModeHybrid
	reason := "vector + keyword + relationship fusion"

	if r.embedder != nil {
		vec, err := r.embedder.Embed(ctx, query)
		if err == nil {
			matches, err := r.br.VectorSearch(ctx, vec, topN)
			if err == nil {
				for _, m := range matches {
					scores[m.ID] += r.cfg.Alpha * m.Score
				}
			}
		}
	} else {
		mode = ModeGraphOnly
		reason = "no embedder configured; degraded to keyword + relationship"
	}

	kwMatches, err := r.br.KeywordSearch(ctx, query, topN)
	if err != nil {
		return nil, RetrievalPlan{}, err
	}
	kwNorm := normalize(kwMatches)
	for id, norm := range kwNorm {
		scores[id] += (1 - r.cfg.Alpha) * norm
	}

	if len(scores) == 0 {
		return nil, RetrievalPlan{SelectedMode: ModeVectorOnly, Reason: "no vector or keyword candidates"}, nil
	}

	// Relationship boost applies to neighbors of the current top result.
	topID := topScoringID(scores)
	for _, rel := range r.br.Graph().Related(topID, 5) {
		if _, exists := scores[rel.ID]; exists {
			boost := r.cfg.RelationshipBoost * rel.Score
			scores[rel.ID] = capScore(scores[rel.ID] + boost)
		}
	}

	out := make([]scoredCandidate, 0, len(scores))
	for id, score := range scores {
		cmd, ok := r.tbl.Lookup(id)
		if !ok {
			continue
		}
		out = append(out, scoredCandidate{id: id, skill: cmd.Skill, Score: capScore(score)})
	}
	return out, RetrievalPlan{SelectedMode: mode, Reason: reason}, nil
}

func (r *Router) filterByScope(cands []scoredCandidate, rc Context) []scoredCandidate {
	if len(rc.Grants) == 0 {
		return cands
	}
	out := cands[:0]
	for _, c := range cands {
		category, action, ok := splitName(c.id)
		if !ok {
			continue
		}
		if permission.Validate(c.skill, category+"."+action, rc.Grants) {
			out = append(out, c)
		}
	}
	return out
}

func topScoringID(scores map[string]float64) string {
	var best string
	var bestScore float64 = -1
	for id, s := range scores {
		if s > bestScore {
			best, bestScore = id, s
		}
	}
	return best
}

func normalize(matches []bridge.KeywordMatch) map[string]float64 {
	out := map[string]float64{}
	if len(matches) == 0 {
		return out
	}
	max := matches[0].Score
	for _, m := range matches {
		if m.Score > max {
			max = m.Score
		}
	}
	if max == 0 {
		return out
	}
	for _, m := range matches {
		out[m.ID] = m.Score / max
	}
	return out
}

func capScore(s float64) float64 {
	if s > 1.0 {
		return 1.0
	}
	if s < 0 {
		return 0
	}
	return s
}

func splitName(name string) (category, action string, ok bool) {
	for i := 0; i < len(name); i++ {
		if name[i] == '.' {
			if i == 0 || i == len(name)-1 {
				return "", "", false
			}
			return name[:i], name[i+1:], true
		}
	}
	return "", "", false
}

