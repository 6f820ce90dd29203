package config

import "os"

// Environment variable names for overrides, applied between the TOML file
// and CLI flags in the precedence chain (default < file < env < flag).
const (
	EnvConfigPath = "CHUNKUPLOAD_CONFIG"
	EnvBaseURL    = "CHUNKUPLOAD_BASE_URL"
	EnvWatchDir   = "CHUNKUPLOAD_WATCH_DIR"
)

// EnvOverrides holds values read from CHUNKUPLOAD_* environment variables.
// Empty fields mean "not set" — callers only overlay the non-empty ones.
type EnvOverrides struct {
	ConfigPath string
	BaseURL    string
	WatchDir   string
}

// ReadEnvOverrides reads the CHUNKUPLOAD_* environment variables. It does
// not modify a Config — callers decide which fields to overlay and in what
// order relative to CLI flags.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath: os.Getenv(EnvConfigPath),
		BaseURL:    os.Getenv(EnvBaseURL),
		WatchDir:   os.Getenv(EnvWatchDir),
	}
}

// Apply overlays the non-empty fields in env onto cfg's target, taking
// precedence over whatever the TOML file set.
func (env EnvOverrides) Apply(cfg *Config) {
	if env.BaseURL != "" {
		cfg.Target.BaseURL = env.BaseURL
	}

	if env.WatchDir != "" {
		cfg.Target.WatchDir = env.WatchDir
	}
}

// ResolveConfigPath determines the config file path using the three-layer
// priority CLI flag > environment variable > platform default.
func ResolveConfigPath(env EnvOverrides, flagPath string) string {
	if flagPath != "" {
		return flagPath
	}

	if env.ConfigPath != "" {
		return env.ConfigPath
	}

	return DefaultConfigPath()
}
