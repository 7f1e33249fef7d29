package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"promptreel/internal/dirs"
	"promptreel/internal/util/deps"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "doctor",
		Short:         "Diagnose external dependencies (ffmpeg, ffprobe, gateway)",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ff, ferr := deps.FindFFmpeg(viper.GetString("ffmpeg"))
			if ferr != nil {
				return &ExitError{Code: ExitMissingDep, Err: ferr}
			}
			fp, perr := deps.FindFFprobe(viper.GetString("ffprobe"))
			if perr != nil {
				return &ExitError{Code: ExitMissingDep, Err: perr}
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "FFmpeg:  %s\n", ff)
			fmt.Fprintf(out, "FFprobe: %s\n", fp)

			if url := viper.GetString("gateway_url"); url != "" {
				fmt.Fprintf(out, "Gateway: %s\n", url)
			} else {
				fmt.Fprintln(out, "Gateway: not configured (set --gateway-url or PROMPTREEL_GATEWAY_URL; --test works without)")
			}
			if viper.GetString("api_key") != "" {
				fmt.Fprintln(out, "API key: set")
			} else {
				fmt.Fprintln(out, "API key: missing (set PROMPTREEL_API_KEY)")
			}
			if cfgDir, err := dirs.ConfigDir(); err == nil {
				fmt.Fprintf(out, "Config:  %s\n", cfgDir)
			}
			return nil
		},
	}
}
