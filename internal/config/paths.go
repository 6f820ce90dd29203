package config

import (
	"os"
	"path/filepath"
)

// appDirName is the XDG-style subdirectory name under which this tool
// keeps its config, state, and runtime files — following the teacher's
// own convention of namespacing everything under one directory instead of
// scattering files across $HOME.
const appDirName = "chunkupload"

// ConfigDir returns $XDG_CONFIG_HOME/chunkupload, falling back to
// ~/.config/chunkupload.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appDirName)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", appDirName)
	}

	return filepath.Join(home, ".config", appDirName)
}

// StateDir returns $XDG_STATE_HOME/chunkupload, falling back to
// ~/.local/state/chunkupload. The history database and PID file live here.
func StateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, appDirName)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", appDirName)
	}

	return filepath.Join(home, ".local", "state", appDirName)
}

// DefaultConfigPath returns the default location for config.toml.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// PIDFilePath returns the default location for the watch daemon's PID file.
func PIDFilePath() string {
	return filepath.Join(StateDir(), "watch.pid")
}

// TokenFilePath returns the default location for the saved OAuth2 token.
func TokenFilePath() string {
	return filepath.Join(StateDir(), "token.json")
}

// HistoryDBPath returns the default location for the upload-history ledger.
func HistoryDBPath() string {
	return filepath.Join(StateDir(), "history.db")
}
