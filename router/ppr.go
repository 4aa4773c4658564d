package router

import (
	"context"
	"time"
)

// TimeoutBucket classifies a graph-fused lookup's deadline for tracing,
// per spec.md §4.7: "Timeouts are bounded and bucketed (short/medium/long)".
type TimeoutBucket string

const (
	TimeoutShort  TimeoutBucket = "short"
	TimeoutMedium TimeoutBucket = "medium"
	TimeoutLong   TimeoutBucket = "long"
)

// BucketFor classifies d into the nearest timeout bucket.
func BucketFor(d time.Duration) TimeoutBucket {
	switch {
	case d <= 200*time.Millisecond:
		return TimeoutShort
	case d <= time.Second:
		return TimeoutMedium
	default:
		return TimeoutLong
	}
}

// PPROptions configures a personalized-PageRank pass over the relationship
// graph, seeded at the query's top anchor candidates.
type PPROptions struct {
	Alpha   float64 // damping factor; 1-Alpha is the restart probability back to the seed set
	MaxIter int
	Tol     float64
	Seeds   []string
	Timeout time.Duration
}

// DefaultPPROptions returns conservative defaults: alpha=0.85 (the
// canonical PageRank damping factor), 20 iterations, and a tolerance tight
// enough to converge well before that cap on a tool-index-sized graph.
func DefaultPPROptions(seeds []string) PPROptions {
	return PPROptions{Alpha: 0.85, MaxIter: 20, Tol: 1e-6, Seeds: seeds, Timeout: 200 * time.Millisecond}
}

// PersonalizedPageRank runs power iteration over r's relationship graph,
// restarting to opts.Seeds with probability (1-opts.Alpha) at each step.
// On timeout or empty seed set it returns (nil, false) — degrading
// gracefully to vector-only, per spec.md's "timeout degrades gracefully"
// rule — rather than an error, since a graph boost is always optional.
func (r *Router) PersonalizedPageRank(ctx context.Context, opts PPROptions) (map[string]float64, bool) {
	if len(opts.Seeds) == 0 {
		return nil, false
	}
	deadline := time.Now().Add(opts.Timeout)

	scores := make(map[string]float64, len(opts.Seeds))
	seedWeight := 1.0 / float64(len(opts.Seeds))
	for _, s := range opts.Seeds {
		scores[s] = seedWeight
	}

	for iter := 0; iter < opts.MaxIter; iter++ {
		if time.Now().After(deadline) {
			return nil, false
		}
		next := make(map[string]float64, len(scores))
		for id, mass := range scores {
			related := r.br.Graph().Related(id, 0)
			if len(related) == 0 {
				next[id] += mass * opts.Alpha
				continue
			}
			var total float64
			for _, rel := range related {
				total += rel.Score
			}
			if total == 0 {
				next[id] += mass * opts.Alpha
				continue
			}
			for _, rel := range related {
				next[rel.ID] += mass * opts.Alpha * (rel.Score / total)
			}
		}
		for _, s := range opts.Seeds {
			next[s] += (1 - opts.Alpha) * seedWeight
		}

		var delta float64
		for id, v := range next {
			if d := v - scores[id]; d > 0 {
				delta += d
			} else {
				delta -= d
			}
		}
		scores = next
		if delta < opts.Tol {
			break
		}
	}
	return scores, true
}
