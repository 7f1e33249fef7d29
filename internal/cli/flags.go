// Package cli assembles build inputs from flags, environment and config
// into the settings bundle the engine consumes, and wires the concrete
// gateway and toolbox for a run.
package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"promptreel/internal/model"
)

// EnhanceMode selects how subtitle text is rewritten before clip
// generation.
type EnhanceMode string

const (
	EnhanceNone     EnhanceMode = "none"
	EnhanceKeywords EnhanceMode = "keywords"
	EnhanceEnhanced EnhanceMode = "enhanced"
)

// Inputs is the parsed, validated form of one invocation.
type Inputs struct {
	Settings model.BuildSettings

	// One of these supplies the content.
	PromptText  string
	AudioPath   string
	ImagePath   string
	ImportPaths []string

	Enhance          EnhanceMode
	WordsPerSubtitle int
	SecondsPerWord   float64
	MinSubtitleS     float64
	ChunkS           float64

	GatewayURL  string
	GatewayKey  string
	FFmpegPath  string
	FFprobePath string

	StubManifest string
	KeepWorkdir  bool
	NoUI         bool
	Jobs         int
}

// Assemble reads the command's flags (with viper supplying env/config
// fallbacks for the persistent ones) into Inputs.
func Assemble(cmd *cobra.Command, args []string) (Inputs, error) {
	var in Inputs

	in.PromptText = strings.TrimSpace(strings.Join(args, " "))
	in.AudioPath, _ = cmd.Flags().GetString("audio")
	in.ImagePath, _ = cmd.Flags().GetString("image")
	in.ImportPaths, _ = cmd.Flags().GetStringArray("import")

	sources := 0
	for _, set := range []bool{in.PromptText != "", in.AudioPath != "", in.ImagePath != "", len(in.ImportPaths) > 0} {
		if set {
			sources++
		}
	}
	if sources == 0 {
		return in, fmt.Errorf("nothing to build: give prompt text, --audio, --image or --import")
	}
	if in.PromptText != "" && in.AudioPath != "" {
		return in, fmt.Errorf("prompt text and --audio are mutually exclusive; the narration is transcribed")
	}

	provider := model.Provider(viper.GetString("provider"))
	if !model.KnownProvider(provider) {
		return in, fmt.Errorf("invalid --provider: %q (valid: videocrafter|stabilityai|haiper|vikit)", provider)
	}

	interpolate, _ := cmd.Flags().GetString("interpolate")
	var interpolatePtr *bool
	switch strings.ToLower(interpolate) {
	case "", "auto":
	case "on", "true", "yes":
		v := true
		interpolatePtr = &v
	case "off", "false", "no":
		v := false
		interpolatePtr = &v
	default:
		return in, fmt.Errorf("invalid --interpolate: %q (valid: auto|on|off)", interpolate)
	}

	enhance, _ := cmd.Flags().GetString("enhance")
	switch EnhanceMode(strings.ToLower(enhance)) {
	case EnhanceNone, EnhanceKeywords, EnhanceEnhanced:
		in.Enhance = EnhanceMode(strings.ToLower(enhance))
	default:
		return in, fmt.Errorf("invalid --enhance: %q (valid: none|keywords|enhanced)", enhance)
	}

	music, _ := cmd.Flags().GetBool("music")
	generateMusic, _ := cmd.Flags().GetBool("generate-music")
	useRecorded, _ := cmd.Flags().GetBool("use-recorded-audio")
	musicLength, _ := cmd.Flags().GetFloat64("music-length")
	defaultMusic, _ := cmd.Flags().GetString("default-music")
	if generateMusic && useRecorded {
		return in, fmt.Errorf("--generate-music and --use-recorded-audio are mutually exclusive")
	}
	if (generateMusic || useRecorded) && !music {
		music = true
	}
	if music && !generateMusic && !useRecorded && defaultMusic == "" {
		return in, fmt.Errorf("--music needs --generate-music, --use-recorded-audio or --default-music")
	}

	readAloud, _ := cmd.Flags().GetBool("read-aloud")
	expectedLength, _ := cmd.Flags().GetFloat64("expected-length")
	output, _ := cmd.Flags().GetString("output")
	async, _ := cmd.Flags().GetBool("async")
	testMode, _ := cmd.Flags().GetBool("test")
	workDir, _ := cmd.Flags().GetString("workdir")
	in.KeepWorkdir, _ = cmd.Flags().GetBool("keep-workdir")
	in.NoUI, _ = cmd.Flags().GetBool("no-ui")
	in.StubManifest, _ = cmd.Flags().GetString("stub-manifest")

	in.WordsPerSubtitle, _ = cmd.Flags().GetInt("words-per-subtitle")
	in.SecondsPerWord, _ = cmd.Flags().GetFloat64("seconds-per-word")
	in.MinSubtitleS, _ = cmd.Flags().GetFloat64("min-subtitle-duration")
	in.ChunkS, _ = cmd.Flags().GetFloat64("chunk-length")

	targetDir := viper.GetString("target_dir")
	if targetDir == "" {
		targetDir = "."
	}
	targetDir = filepath.Clean(targetDir)
	if output == "" {
		output = "video.mp4"
	}

	in.Jobs, _ = cmd.Flags().GetInt("jobs")
	if in.Jobs <= 0 {
		in.Jobs = 2
	}

	in.GatewayURL = viper.GetString("gateway_url")
	in.GatewayKey = viper.GetString("api_key")
	in.FFmpegPath = viper.GetString("ffmpeg")
	in.FFprobePath = viper.GetString("ffprobe")

	in.Settings = model.BuildSettings{
		TestMode:            testMode,
		TargetModelProvider: provider,
		Interpolate:         interpolatePtr,

		IncludeReadAloudPrompt: readAloud,
		Music: model.MusicBuildingContext{
			ApplyBackgroundMusic:     music,
			GenerateBackgroundMusic:  generateMusic,
			UseRecordedPromptAsAudio: useRecorded,
			ExpectedMusicLengthS:     musicLength,
			DefaultMusicPath:         defaultMusic,
		},

		ExpectedLengthS: expectedLength,
		TargetDirPath:   targetDir,
		OutputFileName:  output,
		RunAsync:        async,
		MaxInflight:     viper.GetInt("max_inflight"),
		MaxRetries:      viper.GetInt("max_retries"),
		WorkDir:         workDir,
		Verbose:         viper.GetBool("verbose"),
	}
	return in, nil
}
