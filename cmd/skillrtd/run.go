package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"goa.design/skillrt/workflow"
)

var (
	runText  string
	runShout bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the echo-demo blueprint from its entry point, checkpointing as it goes",
	RunE:  runRun,
}

func init() {
	runCmd.Flags().StringVar(&runText, "text", "hello from skillrtd", "text to pass into the blueprint's initial state")
	runCmd.Flags().BoolVar(&runShout, "shout", false, "upper-case the echoed text")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	h, err := newHost(ctx)
	if err != nil {
		return err
	}

	initial := workflow.State{"input": workflow.State{"text": runText, "shout": runShout}}
	result, err := h.engine.Run(ctx, workflow.RunRequest{
		ThreadID:  threadID,
		Blueprint: echoBlueprint(),
		Initial:   initial,
	})
	if err != nil {
		return fmt.Errorf("run blueprint: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "thread %q finished: %+v\n", result.ThreadID, result.State)
	return nil
}
