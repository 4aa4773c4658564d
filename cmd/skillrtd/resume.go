package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume the echo-demo blueprint on --thread-id from its latest checkpoint",
	RunE:  runResume,
}

func init() {
	rootCmd.AddCommand(resumeCmd)
}

func runResume(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	h, err := newHost(ctx)
	if err != nil {
		return err
	}

	result, err := h.engine.Resume(ctx, echoBlueprint(), threadID)
	if err != nil {
		return fmt.Errorf("resume blueprint: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "thread %q resumed: %+v\n", result.ThreadID, result.State)
	return nil
}
