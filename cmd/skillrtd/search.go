package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"goa.design/skillrt/retriever"
)

var searchBackend string

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Route a query through the retriever against the indexed commands",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().StringVar(&searchBackend, "backend", "", "retrieval backend: hybrid, vector, keyword, or graph_ppr (default hybrid)")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	h, err := newHost(ctx)
	if err != nil {
		return err
	}

	res, err := h.retriever.Search(ctx, retriever.SearchRequest{
		Query:   args[0],
		Backend: retriever.Backend(searchBackend),
	})
	if err != nil {
		return err
	}
	if res == nil {
		fmt.Fprintln(cmd.OutOrStdout(), "no match")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%.3f\t%s\n", res.Command, res.Confidence, res.Score, res.Reason)
	return nil
}
