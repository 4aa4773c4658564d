package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"goa.design/skillrt/config"
	"goa.design/skillrt/telemetry"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Discover skills under --skills-dir and list the commands they publish",
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	tbl, err := buildTable(cfg, telemetry.NewNoopLogger())
	if err != nil {
		return err
	}
	for _, c := range tbl.Snapshot() {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", c.Spec.Name, c.Spec.Description)
	}
	return nil
}
