package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"goa.design/skillrt/retriever"
)

var discoverTopN int

var discoverCmd = &cobra.Command{
	Use:   "discover [query]",
	Short: "Return an ordered, schema-validated match list for a query",
	Args:  cobra.ExactArgs(1),
	RunE:  runDiscover,
}

func init() {
	discoverCmd.Flags().IntVar(&discoverTopN, "top", 5, "maximum number of matches to return")
	rootCmd.AddCommand(discoverCmd)
}

func runDiscover(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	h, err := newHost(ctx)
	if err != nil {
		return err
	}

	matches, err := h.retriever.Discover(ctx, retriever.DiscoverRequest{Query: args[0], TopN: discoverTopN})
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no match")
		return nil
	}
	for _, m := range matches {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%.3f\t%s\n", m.Tool, m.Confidence, m.FinalScore, m.RankingReason)
	}
	return nil
}
