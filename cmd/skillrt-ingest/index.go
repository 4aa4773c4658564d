package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"goa.design/skillrt/bridge"
	"goa.design/skillrt/config"
	"goa.design/skillrt/telemetry"
	"goa.design/skillrt/toolindex"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Discover skills, build the command table, and index it into the bridge",
	RunE:  runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	log := telemetry.NewNoopLogger()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	br, err := bridge.Open(ctx, cfg.Embedding.Dimension, persistPath)
	if err != nil {
		return fmt.Errorf("open bridge: %w", err)
	}

	tbl, err := buildTable(cfg, log)
	if err != nil {
		return err
	}

	ingestor := toolindex.NewIngestor(br, embedderFor(cfg), log)
	n, err := ingestor.IngestTable(ctx, tbl)
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}

	stats := ingestor.GetStats(ctx, tbl)
	fmt.Fprintf(cmd.OutOrStdout(), "indexed %d commands (%d graph nodes, %d documents total)\n", n, stats.GraphNodes, stats.DocumentCount)
	return nil
}
