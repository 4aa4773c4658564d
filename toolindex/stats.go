package toolindex

import (
	"context"

	"goa.design/skillrt/command"
)

// Stats summarizes the current index state, mirroring spec.md §4.11's
// retriever.get_stats operation.
type Stats struct {
	DocumentCount int
	GraphNodes    int
}

// GetStats reports the current size of tbl's published commands and the
// relationship graph's node count, used by operators and by the workflow
// engine's retrieval invoker to decide whether an index is warm enough to
// route against.
func (in *Ingestor) GetStats(ctx context.Context, tbl *command.Table) Stats {
	cmds := tbl.Snapshot()
	nodes := map[string]struct{}{}
	for _, cmd := range cmds {
		for _, rel := range in.br.Graph().Related(cmd.Spec.Name, 1<<30) {
			nodes[rel.ID] = struct{}{}
		}
		nodes[cmd.Spec.Name] = struct{}{}
	}
	return Stats{DocumentCount: len(cmds), GraphNodes: len(nodes)}
}
