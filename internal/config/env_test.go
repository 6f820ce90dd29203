package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadEnvOverrides(t *testing.T) {
	t.Setenv(EnvConfigPath, "/tmp/override.toml")
	t.Setenv(EnvBaseURL, "https://env.example.test")
	t.Setenv(EnvWatchDir, "")

	env := ReadEnvOverrides()
	require.Equal(t, "/tmp/override.toml", env.ConfigPath)
	require.Equal(t, "https://env.example.test", env.BaseURL)
	require.Equal(t, "", env.WatchDir)
}

func TestEnvOverridesApply(t *testing.T) {
	cfg := Default()

	env := EnvOverrides{BaseURL: "https://env.example.test"}
	env.Apply(cfg)

	require.Equal(t, "https://env.example.test", cfg.Target.BaseURL)
	require.Equal(t, Default().Target.WatchDir, cfg.Target.WatchDir)
}

func TestResolveConfigPathPrecedence(t *testing.T) {
	require.Equal(t, DefaultConfigPath(), ResolveConfigPath(EnvOverrides{}, ""))
	require.Equal(t, "/env/path.toml", ResolveConfigPath(EnvOverrides{ConfigPath: "/env/path.toml"}, ""))
	require.Equal(t, "/flag/path.toml", ResolveConfigPath(EnvOverrides{ConfigPath: "/env/path.toml"}, "/flag/path.toml"))
}
