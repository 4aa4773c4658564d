// Package toolindex implements tool discovery ingestion (spec.md §4.2): it
// turns the live command table into searchable rows in the native bridge,
// one flat row per tool with no opaque metadata blob, and rebuilds the
// keyword index and relationship graph after each ingest run.
package toolindex

import (
	"context"
	"fmt"

	"goa.design/skillrt/bridge"
	"goa.design/skillrt/command"
	"goa.design/skillrt/telemetry"
)

// Entry is one tool's row in the index: the flat, independently queryable
// fields the router scores against, as opposed to a single opaque
// description blob.
type Entry struct {
	ID              string // "category.action"
	Skill           string
	Description     string
	UsageTemplate   string
	Tags            []string
	InputSchemaHash string
}

// Embedder turns a tool's indexable text into a vector. Production wiring
// supplies a real embedding client; tests can use a deterministic stub.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Ingestor builds bridge.Document rows from the command table and
// idempotently upserts them, so re-running ingestion after a hot reload
// never produces duplicate rows for an unchanged tool.
type Ingestor struct {
	br       bridge.Bridge
	embedder Embedder
	log      telemetry.Logger
}

// NewIngestor constructs an Ingestor. embedder may be nil to skip vector
// embedding and rely on keyword search alone (e.g. in tests, or while an
// embedding backend is unavailable).
func NewIngestor(br bridge.Bridge, embedder Embedder, log telemetry.Logger) *Ingestor {
	if log == nil {
		log = telemetry.NewNoopLogger()
	}
	return &Ingestor{br: br, embedder: embedder, log: log}
}

// IngestTable builds a bridge.Document for every command in tbl
// and upserts them as one batch. Re-ingesting the same table is safe: the
// bridge's Upsert is keyed by ID, so a tool present in two successive
// ingestion runs simply overwrites its prior row.
func (in *Ingestor) IngestTable(ctx context.Context, tbl *command.Table) (int, error) {
	cmds := tbl.Snapshot()
	docs := make([]bridge.Document, 0, len(cmds))
	ids := make([]string, 0, len(cmds))

	for _, cmd := range cmds {
		text := indexableText(cmd)
		var vec []float32
		if in.embedder != nil {
			v, err := in.embedder.Embed(ctx, text)
			if err != nil {
				return 0, fmt.Errorf("toolindex: embed %q: %w", cmd.Spec.Name, err)
			}
			vec = v
		}
		docs = append(docs, bridge.Document{
			ID:     cmd.Spec.Name,
			Text:   text,
			Vector: vec,
			Metadata: map[string]string{
				"skill": cmd.Skill,
			},
		})
		ids = append(ids, cmd.Spec.Name)
	}

	if len(docs) == 0 {
		return 0, nil
	}
	if err := in.br.Upsert(ctx, docs); err != nil {
		return 0, fmt.Errorf("toolindex: upsert batch: %w", err)
	}

	// A single ingestion run is one co-occurrence observation: tools
	// ingested together are more likely to be used together, giving the
	// relationship graph a reasonable prior before any real usage data
	// accumulates.
	in.br.Graph().RecordCooccurrence(ids)

	in.log.Info(ctx, "toolindex: ingested commands", "count", len(docs))
	return len(docs), nil
}

func indexableText(cmd *command.Command) string {
	if cmd.Spec.Description != "" {
		return cmd.Spec.Name + ": " + cmd.Spec.Description
	}
	return cmd.Spec.Name
}
