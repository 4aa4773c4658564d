package workflow

import (
	"fmt"

	"goa.design/skillrt/config"
)

// Chunk is one unit of fan-out work a master node emits.
type Chunk struct {
	ChunkID     string
	Name        string
	Targets     []string
	Description string
	Dependencies []string
}

// NormalizeChunks applies spec.md §4.10 step 1's three normalization
// passes, in order: split any chunk whose size exceeds MaxPerChunk; cap
// total size at MaxTotal (dropping the tail, least-important chunks
// first, i.e. last in submission order); merge consecutive tiny chunks (up
// to MinToMerge) while staying ≤ MaxPerChunk.
func NormalizeChunks(plan []Chunk, cfg config.ChunkConfig) []Chunk {
	split := splitOversized(plan, cfg.MaxPerChunk)
	capped := capTotal(split, cfg.MaxTotal)
	return mergeTiny(capped, cfg.MinToMerge, cfg.MaxPerChunk)
}

func splitOversized(plan []Chunk, maxPerChunk int) []Chunk {
	if maxPerChunk <= 0 {
		return plan
	}
	var out []Chunk
	for _, c := range plan {
		if len(c.Targets) <= maxPerChunk {
			out = append(out, c)
			continue
		}
		part := 0
		for i := 0; i < len(c.Targets); i += maxPerChunk {
			end := i + maxPerChunk
			if end > len(c.Targets) {
				end = len(c.Targets)
			}
			out = append(out, Chunk{
				ChunkID:      fmt.Sprintf("%s-part%d", c.ChunkID, part),
				Name:         c.Name,
				Targets:      c.Targets[i:end],
				Description:  c.Description,
				Dependencies: c.Dependencies,
			})
			part++
		}
	}
	return out
}

func capTotal(plan []Chunk, maxTotal int) []Chunk {
	if maxTotal <= 0 {
		return plan
	}
	var out []Chunk
	total := 0
	for _, c := range plan {
		if total >= maxTotal {
			break
		}
		remaining := maxTotal - total
		if len(c.Targets) > remaining {
			c.Targets = c.Targets[:remaining]
		}
		if len(c.Targets) == 0 {
			continue
		}
		total += len(c.Targets)
		out = append(out, c)
	}
	return out
}

func mergeTiny(plan []Chunk, minToMerge, maxPerChunk int) []Chunk {
	if minToMerge <= 0 {
		return plan
	}
	var out []Chunk
	i := 0
	for i < len(plan) {
		cur := plan[i]
		if len(cur.Targets) > minToMerge {
			out = append(out, cur)
			i++
			continue
		}
		// Merge consecutive tiny chunks while staying within bounds. A
		// chunk whose size equals minToMerge is still merge-eligible.
		merged := cur
		j := i + 1
		for j < len(plan) && len(plan[j].Targets) <= minToMerge {
			if maxPerChunk > 0 && len(merged.Targets)+len(plan[j].Targets) > maxPerChunk {
				break
			}
			merged.Targets = append(append([]string{}, merged.Targets...), plan[j].Targets...)
			merged.ChunkID = merged.ChunkID + "+" + plan[j].ChunkID
			j++
		}
		out = append(out, merged)
		i = j
	}
	return out
}
