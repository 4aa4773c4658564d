// Command skillrt-ingest discovers skills, builds the command table they
// publish, and indexes it into the native bridge (spec.md §4.11's "index"
// operation) so the router has something to search against. It is wiring,
// not a product: see cmd/skillrtd for the host process that actually runs
// workflows against the index this command builds.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"goa.design/skillrt/command"
	"goa.design/skillrt/config"
	"goa.design/skillrt/embedding"
	"goa.design/skillrt/skill"
	_ "goa.design/skillrt/skill/builtin/echo"
	"goa.design/skillrt/telemetry"
	"goa.design/skillrt/toolindex"
)

var (
	skillsDir   string
	persistPath string
	configPath  string
)

var rootCmd = &cobra.Command{
	Use:   "skillrt-ingest",
	Short: "Discover skills and index their commands into the native bridge",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&skillsDir, "skills-dir", "skills", "directory of SKILL.md-described skills to discover")
	rootCmd.PersistentFlags().StringVar(&persistPath, "persist-path", "", "on-disk path for the vector store (empty means in-memory only)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file overriding the defaults")
}

// Execute runs the command tree, exiting non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// buildTable discovers every skill under skillsDir and publishes its
// commands into a fresh command.Table, the same sequence cmd/skillrtd runs
// at startup before handing the table to the kernel.
func buildTable(cfg *config.Config, log telemetry.Logger) (*command.Table, error) {
	reg := skill.NewRegistry(log)
	if err := reg.Discover(skillsDir); err != nil {
		return nil, fmt.Errorf("discover skills: %w", err)
	}
	tbl := command.NewTable(command.NewSchemaCache(cfg.Cache.SchemaTTL))
	if err := reg.LoadInto(context.Background(), tbl); err != nil {
		return nil, fmt.Errorf("load skills: %w", err)
	}
	return tbl, nil
}

// embedderFor constructs the stand-in embedder the index and router use;
// see package embedding's doc comment for why this isn't a real model.
func embedderFor(cfg *config.Config) toolindex.Embedder {
	return embedding.NewHashEmbedder(cfg.Embedding.Dimension)
}
