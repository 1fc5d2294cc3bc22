package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/reallyoldfogie/mcreplay/internal/config"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	require.Equal(t, 25565, cfg.Server.Port)
	require.Equal(t, 20, cfg.Server.MaxPlayers)
	require.Equal(t, "file", cfg.Recorder.SaveMode)
	require.Empty(t, cfg.Server.MOTD, "default motd must be empty so callers can generate the duration banner")
}

func TestDurationMOTDFormatsBanner(t *testing.T) {
	got := config.DurationMOTD(92*time.Minute + 4*time.Second)
	require.Equal(t, "Replay Viewer\nDuration: 1h32m4s", got)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	require.Equal(t, config.DefaultConfig().Server.Host, cfg.Server.Host)
}

func TestLoadDecodesTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mcreplay.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[server]
host = "127.0.0.1"
port = 25577
motd = "custom motd"
max_players = 5

[recorder]
save_mode = "memory"
`), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1", cfg.Server.Host)
	require.Equal(t, 25577, cfg.Server.Port)
	require.Equal(t, "custom motd", cfg.Server.MOTD)
	require.Equal(t, 5, cfg.Server.MaxPlayers)
	require.Equal(t, "memory", cfg.Recorder.SaveMode)
}

func TestEnvOverridesFallBackWhenConfigValueUnset(t *testing.T) {
	t.Setenv("MCREPLAY_LOG_LEVEL", "debug")
	cfg := config.DefaultConfig()
	cfg.Logging.Level = ""
	cfg.ApplyEnvOverrides()
	require.Equal(t, "debug", cfg.Logging.Level)
}

func TestConfigPortTakesPriorityOverEnv(t *testing.T) {
	t.Setenv("MCREPLAY_PORT", "9999")
	cfg := config.DefaultConfig()
	cfg.Server.Port = 25577
	cfg.ApplyEnvOverrides()
	require.Equal(t, 25577, cfg.Server.Port)
}

func TestEnvPortUsedWhenConfigValueUnset(t *testing.T) {
	t.Setenv("MCREPLAY_PORT", "9999")
	cfg := config.DefaultConfig()
	cfg.Server.Port = 0
	cfg.ApplyEnvOverrides()
	require.Equal(t, 9999, cfg.Server.Port)
}
