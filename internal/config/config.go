package config

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"promptreel/internal/dirs"
)

// Init wires Viper with config paths, env, defaults, and flag bindings.
// It is non-fatal: any errors are returned for optional handling by caller.
func Init(root *cobra.Command) error {
	// Ensure base directories exist
	_ = dirs.EnsureAll()

	// Setup config search path
	if cfgDir, err := dirs.ConfigDir(); err == nil {
		_ = dirs.Ensure(cfgDir)
		viper.AddConfigPath(cfgDir)
	}
	viper.SetConfigName("config") // supports config.{yaml|yml|json|toml}

	// Environment variables: PROMPTREEL_*
	viper.SetEnvPrefix("PROMPTREEL")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	// Bind root persistent flags to Viper keys
	_ = viper.BindPFlag("target_dir", root.PersistentFlags().Lookup("target-dir"))
	_ = viper.BindPFlag("verbose", root.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("provider", root.PersistentFlags().Lookup("provider"))
	_ = viper.BindPFlag("max_inflight", root.PersistentFlags().Lookup("max-inflight"))
	_ = viper.BindPFlag("max_retries", root.PersistentFlags().Lookup("max-retries"))
	_ = viper.BindPFlag("gateway_url", root.PersistentFlags().Lookup("gateway-url"))
	_ = viper.BindPFlag("ffmpeg", root.PersistentFlags().Lookup("ffmpeg"))
	_ = viper.BindPFlag("ffprobe", root.PersistentFlags().Lookup("ffprobe"))

	// Read config file if present (ignore not found)
	_ = viper.ReadInConfig()

	return nil
}
