package cmd

import (
	"github.com/spf13/cobra"
)

func newTuiCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "tui [prompt...]",
		Short:         "Force TUI mode for an interactive build",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Force TUI; if stdout is not a terminal, ui.Run will error appropriately.
			return buildExecute(cmd, args, runMode{ForceTUI: true})
		},
	}
	bindBuildFlags(cmd.Flags())
	// In TUI mode, '--no-ui' makes no sense, but keep flag for compatibility.
	if f := cmd.Flags().Lookup("no-ui"); f != nil {
		f.Hidden = true
	}
	return cmd
}
