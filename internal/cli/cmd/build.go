package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"promptreel/internal/build"
	"promptreel/internal/cli"
	"promptreel/internal/progress"
	"promptreel/internal/ui"
)

type runMode struct {
	ForceTUI bool
	PlanOnly bool
}

func newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "build [prompt...]",
		Short:         "Build a video from a prompt, recording or clips",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return buildExecute(cmd, args, runMode{})
		},
	}
	// Bind same flags as root for explicit subcommand usage
	bindBuildFlags(cmd.Flags())
	return cmd
}

func buildExecute(cmd *cobra.Command, args []string, mode runMode) error {
	in, err := cli.Assemble(cmd, args)
	if err != nil {
		return &ExitError{Code: ExitCLIError, Err: err}
	}
	if err := ensureDir(in.Settings.TargetDirPath); err != nil {
		return &ExitError{Code: ExitCLIError, Err: fmt.Errorf("failed to create target dir: %v", err)}
	}

	if mode.PlanOnly {
		return planExecute(cmd, in)
	}

	// TUI path (forced or auto if TTY and not disabled)
	useTUI := mode.ForceTUI || (!in.NoUI && isTerminal())
	if useTUI {
		job := ui.Job{
			ID:    "build-0",
			Label: buildLabel(in),
			Run: func(ctx context.Context, rep progress.Reporter) (string, error) {
				return runBuild(ctx, in, rep)
			},
		}
		if err := ui.Run(cmd.Context(), []ui.Job{job}, ui.Options{
			Workers:     in.Jobs,
			FFmpegPath:  in.FFmpegPath,
			FFprobePath: in.FFprobePath,
		}); err != nil {
			return &ExitError{Code: ExitBuildError, Err: err}
		}
		return nil
	}

	rep := cli.ConsoleReporter{Out: os.Stdout, Verbose: in.Settings.Verbose}
	if _, err := runBuild(cmd.Context(), in, rep); err != nil {
		if ee, ok := err.(*ExitError); ok {
			return ee
		}
		return &ExitError{Code: ExitBuildError, Err: err}
	}
	return nil
}

// runBuild wires the service, extracts the prompt, composes the tree
// and drives the engine. It returns the final output path.
func runBuild(ctx context.Context, in cli.Inputs, rep progress.Reporter) (string, error) {
	svc, err := cli.NewService(&in)
	if err != nil {
		return "", &ExitError{Code: ExitMissingDep, Err: err}
	}

	p, err := svc.ExtractPrompt(ctx, in)
	if err != nil {
		return "", err
	}
	in.Settings.Prompt = p

	root, err := svc.ComposeTree(ctx, in, p)
	if err != nil {
		return "", &ExitError{Code: ExitCLIError, Err: err}
	}

	builder := &build.Builder{
		Gateway:  svc.Gateway,
		Toolbox:  svc.Toolbox,
		Reporter: rep,
	}
	out, err := builder.Build(ctx, root, in.Settings)
	if err != nil {
		return "", err
	}

	if !in.KeepWorkdir && !within(out, svc.WorkDir) {
		_ = os.RemoveAll(svc.WorkDir)
	}
	return out, nil
}

func buildLabel(in cli.Inputs) string {
	switch {
	case in.PromptText != "":
		return in.PromptText
	case in.AudioPath != "":
		return in.AudioPath
	case in.ImagePath != "":
		return in.ImagePath
	case len(in.ImportPaths) > 0:
		return fmt.Sprintf("%d imported clip(s)", len(in.ImportPaths))
	default:
		return "build"
	}
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func within(path, dir string) bool {
	return dir != "" && len(path) > len(dir) && path[:len(dir)] == dir
}
