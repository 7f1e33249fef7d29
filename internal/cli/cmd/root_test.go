package cmd

import (
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"promptreel/internal/cli"
	"promptreel/internal/model"
)

// assemble parses args against the build flag set and runs the input
// assembly, mirroring what buildExecute does before dispatch.
func assemble(t *testing.T, provider string, flags []string, args []string) (cli.Inputs, error) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.Set("provider", provider)

	cmd := &cobra.Command{Use: "test"}
	bindBuildFlags(cmd.Flags())
	if err := cmd.Flags().Parse(flags); err != nil {
		t.Fatal(err)
	}
	return cli.Assemble(cmd, args)
}

func TestAssembleDefaults(t *testing.T) {
	in, err := assemble(t, "videocrafter", nil, []string{"a", "calm", "scene"})
	if err != nil {
		t.Fatal(err)
	}
	if in.PromptText != "a calm scene" {
		t.Fatalf("prompt: got %q", in.PromptText)
	}
	s := in.Settings
	if s.TargetModelProvider != model.ProviderVideocrafter {
		t.Fatalf("provider: got %q", s.TargetModelProvider)
	}
	if s.Interpolate != nil {
		t.Fatal("auto interpolation should leave the setting unset")
	}
	if s.OutputFileName != "video.mp4" || s.TargetDirPath != "." {
		t.Fatalf("output defaults: %q in %q", s.OutputFileName, s.TargetDirPath)
	}
	if !s.RunAsync {
		t.Fatal("async should default on")
	}
	if in.Enhance != cli.EnhanceKeywords {
		t.Fatalf("enhance default: got %q", in.Enhance)
	}
}

func TestAssembleInterpolateTriState(t *testing.T) {
	in, err := assemble(t, "vikit", []string{"--interpolate", "on"}, []string{"x"})
	if err != nil {
		t.Fatal(err)
	}
	if in.Settings.Interpolate == nil || !*in.Settings.Interpolate {
		t.Fatal("explicit on not recorded")
	}
	in, err = assemble(t, "videocrafter", []string{"--interpolate", "off"}, []string{"x"})
	if err != nil {
		t.Fatal(err)
	}
	if in.Settings.Interpolate == nil || *in.Settings.Interpolate {
		t.Fatal("explicit off not recorded")
	}
}

func TestAssembleMusicImpliedByItsSource(t *testing.T) {
	in, err := assemble(t, "vikit", []string{"--generate-music"}, []string{"x"})
	if err != nil {
		t.Fatal(err)
	}
	if !in.Settings.Music.ApplyBackgroundMusic || !in.Settings.Music.GenerateBackgroundMusic {
		t.Fatalf("music flags: %+v", in.Settings.Music)
	}
}

func TestAssembleRejectsBadCombinations(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		flags    []string
		args     []string
		wantErr  string
	}{
		{
			name:     "no content source",
			provider: "vikit",
			wantErr:  "nothing to build",
		},
		{
			name:     "prompt and audio together",
			provider: "vikit",
			flags:    []string{"--audio", "/tmp/a.mp3"},
			args:     []string{"some", "prompt"},
			wantErr:  "mutually exclusive",
		},
		{
			name:     "unknown provider",
			provider: "dalle",
			args:     []string{"x"},
			wantErr:  "invalid --provider",
		},
		{
			name:     "bad interpolate value",
			provider: "vikit",
			flags:    []string{"--interpolate", "maybe"},
			args:     []string{"x"},
			wantErr:  "invalid --interpolate",
		},
		{
			name:     "bad enhance value",
			provider: "vikit",
			flags:    []string{"--enhance", "fancy"},
			args:     []string{"x"},
			wantErr:  "invalid --enhance",
		},
		{
			name:     "generated and recorded music together",
			provider: "vikit",
			flags:    []string{"--generate-music", "--use-recorded-audio"},
			args:     []string{"x"},
			wantErr:  "mutually exclusive",
		},
		{
			name:     "music without any source",
			provider: "vikit",
			flags:    []string{"--music"},
			args:     []string{"x"},
			wantErr:  "--music needs",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := assemble(t, tc.provider, tc.flags, tc.args)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("error %q does not mention %q", err, tc.wantErr)
			}
		})
	}
}
