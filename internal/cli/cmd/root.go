package cmd

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"promptreel/internal/config"
	"promptreel/internal/gateway"
)

const (
	ExitOK           = 0
	ExitCLIError     = 1
	ExitMissingDep   = 2
	ExitGatewayError = 3
	ExitBuildError   = 4
)

// ExitError wraps an error with a process exit code.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "promptreel [prompt...]",
		Short:         "Turn a prompt into an assembled video",
		Long:          "Promptreel turns a natural-language prompt, a narration recording, or a still image into a finished video: it decomposes the input into timed scenes, commissions clips and transitions from remote generators, and stitches them together with music and narration.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Default to the build behavior when no subcommand is given.
			return buildExecute(cmd, args, runMode{})
		},
	}

	// Persistent flags available to all subcommands
	root.PersistentFlags().StringP("target-dir", "o", ".", "Directory for the final video")
	root.PersistentFlags().BoolP("verbose", "v", false, "Show full subprocess commands/output")
	root.PersistentFlags().String("provider", "videocrafter", "Clip generator: videocrafter, stabilityai, haiper, vikit")
	root.PersistentFlags().Int("max-inflight", gateway.DefaultMaxInflight, "Max concurrent gateway calls")
	root.PersistentFlags().Int("max-retries", gateway.DefaultMaxRetries, "Max attempts per gateway call")
	root.PersistentFlags().String("gateway-url", "", "Base URL of the generation backend")
	root.PersistentFlags().String("ffmpeg", "", "Path to ffmpeg")
	root.PersistentFlags().String("ffprobe", "", "Path to ffprobe")
	root.PersistentFlags().Int("jobs", 2, "Max concurrent builds in TUI")

	// Also bind build flags on root, so `promptreel "a prompt"` works.
	bindBuildFlags(root.Flags())

	// Subcommands
	root.AddCommand(newBuildCmd())
	root.AddCommand(newPlanCmd())
	root.AddCommand(newTuiCmd())
	root.AddCommand(newDoctorCmd())
	root.AddCommand(newCompletionCmd())

	return root
}

func bindBuildFlags(fs *pflag.FlagSet) {
	fs.String("audio", "", "Narration recording to transcribe into scenes")
	fs.String("image", "", "Still image to animate into a clip")
	fs.StringArray("import", nil, "Existing clip to include (repeatable)")
	fs.String("output", "video.mp4", "Final file name inside the target dir")
	fs.Float64("expected-length", 0, "Target total duration in seconds; 0 keeps natural length")
	fs.String("interpolate", "auto", "Frame interpolation: auto, on, off")
	fs.String("enhance", "keywords", "Prompt rewriting: none, keywords, enhanced")

	fs.Bool("music", false, "Lay background music under the video")
	fs.Bool("generate-music", false, "Generate the background track from the prompt")
	fs.Float64("music-length", 0, "Generated music length in seconds; 0 follows the prompt")
	fs.Bool("use-recorded-audio", false, "Use the narration recording as the music track")
	fs.String("default-music", "", "Stock track for plain background music")
	fs.Bool("read-aloud", false, "Overlay the narration (synthesized when not recorded)")

	fs.Int("words-per-subtitle", 7, "Scene length in words for text prompts")
	fs.Float64("seconds-per-word", 0.5, "Reading pace for text prompts")
	fs.Float64("min-subtitle-duration", 7, "Minimum scene duration when transcribing")
	fs.Float64("chunk-length", 30, "Transcription chunk length in seconds")

	fs.Bool("async", true, "Dispatch independent nodes concurrently")
	fs.Bool("test", false, "Use the offline stub backend")
	fs.String("stub-manifest", "", "YAML manifest of sample assets for the stub")
	fs.String("workdir", "", "Working directory; default is a fresh temp dir")
	fs.Bool("keep-workdir", false, "Keep intermediate artifacts")
	fs.Bool("no-ui", false, "Disable TUI; use plain textual output")
}

// Execute runs the CLI with the provided context.
func Execute(ctx context.Context) error {
	root := newRootCmd()
	_ = config.Init(root)
	return root.ExecuteContext(ctx)
}

func ensureDir(path string) error {
	if path == "" {
		path = "."
	}
	return os.MkdirAll(filepath.Clean(path), 0o755)
}
