// Package config loads the engine's target configuration: where the
// upload server lives, which drop folder to watch, and where runtime
// state (PID file, token file, history database) is kept. It follows the
// teacher's four-layer precedence — built-in defaults, then the TOML file,
// then CHUNKUPLOAD_* environment variables (env.go), then explicit CLI
// flags — the last layer applied by root.go, which is the only caller that
// knows about cobra flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the on-disk TOML shape (spec §10's target/profile config).
type Config struct {
	Target Target `toml:"target"`
}

// Target describes one upload endpoint and its local runtime paths.
type Target struct {
	// BaseURL is prefixed onto the session-open/chunk/finish paths below
	// unless they are already absolute URLs.
	BaseURL string `toml:"base_url"`

	OpenPath   string `toml:"open_path"`
	ChunkPath  string `toml:"chunk_path"`  // formatted with the server's upload ID (%s), then the chunk index (%d)
	FinishPath string `toml:"finish_path"` // formatted with the server's upload ID (%s)

	// WatchDir is the drop folder the watch command observes.
	WatchDir string `toml:"watch_dir"`

	// ChunkSizeHint is loaded and saved with the config, but no code reads
	// it: it is not sent to the server, whose session-open response alone
	// decides the chunk size.
	ChunkSizeHint int64 `toml:"chunk_size_hint"`

	// OAuth describes the device-code authorization server fronting the
	// upload server, if any. A zero-value OAuth means requests are
	// unauthenticated.
	OAuth OAuthConfig `toml:"oauth"`
}

// OAuthConfig is the device-code client registration used by "login".
type OAuthConfig struct {
	ClientID      string   `toml:"client_id"`
	DeviceAuthURL string   `toml:"device_auth_url"`
	TokenURL      string   `toml:"token_url"`
	Scopes        []string `toml:"scopes"`
}

// Enabled reports whether OAuth is configured at all.
func (o OAuthConfig) Enabled() bool {
	return o.DeviceAuthURL != "" && o.TokenURL != ""
}

// defaultConfigPermissions matches the teacher's convention for config
// files written by the CLI itself (owner read/write only).
const defaultConfigPermissions = 0o600

// defaultDirPermissions matches the teacher's data-directory convention.
const defaultDirPermissions = 0o755

// Default returns a Config with sensible zero-config defaults: a loopback
// dev server and a watch directory under the user's home.
func Default() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	return &Config{
		Target: Target{
			BaseURL:       "http://localhost:8080",
			OpenPath:      "/uploads",
			ChunkPath:     "/uploads/%s/chunks/%d",
			FinishPath:    "/uploads/%s/finish",
			WatchDir:      filepath.Join(home, "Uploads"),
			ChunkSizeHint: 4 << 20, //nolint:mnd // 4 MiB, a reasonable chunk-size default
		},
	}
}

// Load reads and parses the TOML file at path, overlaying it onto
// Default(). A missing file is not an error — it simply yields the
// defaults, mirroring the teacher's config.LoadOrDefault behavior.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}

		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// Write serializes cfg to path as TOML, creating parent directories as
// needed. Writes are not atomic across process crashes — acceptable here
// since this is the engine's own config, rewritten rarely and never
// consulted mid-upload (spec's resumption path never touches this file).
func Write(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), defaultDirPermissions); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, defaultConfigPermissions)
	if err != nil {
		return fmt.Errorf("opening config %s for write: %w", path, err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	return nil
}
