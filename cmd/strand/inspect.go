package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"strand/internal/snapshot"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <snapshot.msgpack>",
	Short: "Render a previously written stack snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := snapshot.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read snapshot: %w", err)
		}

		quiet, _ := cmd.Root().PersistentFlags().GetBool("quiet")
		if !quiet {
			rooted, leaves := snap.Counts()
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d rooted, %d leaf stacks\n", args[0], rooted, leaves)
		}
		snap.Render(cmd.OutOrStdout(), colorEnabled(cmd, os.Stdout))
		return nil
	},
}
