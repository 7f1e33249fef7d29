package dirs

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
)

const appName = "promptreel"

// AppName returns the canonical application name for directory paths.
func AppName() string {
	return appName
}

// ConfigDir returns the app's configuration directory.
// - Linux: $XDG_CONFIG_HOME/promptreel or ~/.config/promptreel
// - macOS: ~/Library/Application Support/promptreel
// - Windows: %AppData%/promptreel (fallback to os.UserConfigDir)
func ConfigDir() (string, error) {
	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Application Support", AppName()), nil
	case "linux":
		xdg := os.Getenv("XDG_CONFIG_HOME")
		if xdg != "" {
			return filepath.Join(xdg, AppName()), nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", AppName()), nil
	default:
		cfg, err := os.UserConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(cfg, AppName()), nil
	}
}

// DataDir returns the app's data directory, home of per-build working
// directories.
// - Linux: $XDG_DATA_HOME/promptreel or ~/.local/share/promptreel
// - macOS: ~/Library/Application Support/promptreel
// - Windows: %AppData%/promptreel (fallback to os.UserConfigDir)
func DataDir() (string, error) {
	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Application Support", AppName()), nil
	case "linux":
		xdg := os.Getenv("XDG_DATA_HOME")
		if xdg != "" {
			return filepath.Join(xdg, AppName()), nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".local", "share", AppName()), nil
	default:
		cfg, err := os.UserConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(cfg, AppName()), nil
	}
}

// BuildsDir returns the directory that holds per-build working
// directories.
func BuildsDir() (string, error) {
	data, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(data, "builds"), nil
}

// Ensure creates the given directory if missing.
func Ensure(path string) error {
	if path == "" {
		return errors.New("empty path")
	}
	return os.MkdirAll(path, 0o755)
}

// EnsureAll creates the standard app directories, ignoring individual
// failures so a read-only config dir does not block a build.
func EnsureAll() error {
	var firstErr error
	for _, f := range []func() (string, error){ConfigDir, DataDir, BuildsDir} {
		p, err := f()
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if err := Ensure(p); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
