package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"promptreel/internal/build"
	"promptreel/internal/cli"
)

func newPlanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "plan [prompt...]",
		Short:         "Show the build order without generating anything",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return buildExecute(cmd, args, runMode{PlanOnly: true})
		},
	}
	// Reuse same flags; plan never contacts the real backend
	bindBuildFlags(cmd.Flags())
	return cmd
}

func planExecute(cmd *cobra.Command, in cli.Inputs) error {
	// Planning always runs against the stub so no remote call happens.
	in.Settings.TestMode = true
	in.Enhance = cli.EnhanceNone

	svc, err := cli.NewService(&in)
	if err != nil {
		return &ExitError{Code: ExitMissingDep, Err: err}
	}
	defer func() {
		if !in.KeepWorkdir {
			_ = os.RemoveAll(svc.WorkDir)
		}
	}()

	p, err := svc.ExtractPrompt(cmd.Context(), in)
	if err != nil {
		return &ExitError{Code: ExitCLIError, Err: err}
	}
	in.Settings.Prompt = p

	root, err := svc.ComposeTree(cmd.Context(), in, p)
	if err != nil {
		return &ExitError{Code: ExitCLIError, Err: err}
	}
	if err := root.PrepareBuild(cmd.Context(), in.Settings); err != nil {
		return &ExitError{Code: ExitCLIError, Err: err}
	}

	order := build.ResolveOrder(root)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Build plan (%d nodes):\n", len(order))
	for i, n := range order {
		deps := ""
		if d := n.Dependencies(); len(d) > 0 {
			deps = fmt.Sprintf("  (after %d dependency nodes)", len(d))
		}
		fmt.Fprintf(out, "%3d. %-11s %s%s\n", i+1, n.ShortTypeName(), truncateTitle(n.Title()), deps)
	}
	fmt.Fprintf(out, "Output: %s\n", filepath.Join(in.Settings.TargetDirPath, in.Settings.OutputFileName))
	if p != nil {
		fmt.Fprintf(out, "Scenes: %d, total %.1fs\n", len(p.Subtitles), p.DurationS)
	}
	fmt.Fprintf(out, "Interpolation: %v, music: %v, narration: %v\n",
		in.Settings.InterpolateEffective(), in.Settings.Music.ApplyBackgroundMusic, in.Settings.IncludeReadAloudPrompt)
	return nil
}

func truncateTitle(s string) string {
	const max = 60
	rs := []rune(s)
	if len(rs) <= max {
		return s
	}
	return string(rs[:max-1]) + "…"
}
