// Package config loads this module's TOML configuration, in the shape
// writerslogic-witnessd's internal/config package uses (a struct decoded by
// github.com/BurntSushi/toml, with defaults applied before decode and
// environment-variable overrides applied after), and with annel0-mmo-game's
// config-then-env-then-default fallback order for individual scalar
// fields.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// ServerConfig is the viewer-facing server's configuration surface (spec
// §6): listen address, advertised protocol version, and the handful of
// fields safe to change without a restart.
type ServerConfig struct {
	Host       string `toml:"host"`
	Port       int    `toml:"port"`
	Version    string `toml:"version"`
	OnlineMode bool   `toml:"online_mode"`
	MOTD       string `toml:"motd"`
	MaxPlayers int    `toml:"max_players"`
}

// RecorderConfig configures the recorder feed's own output (spec §4.8).
type RecorderConfig struct {
	SaveMode   string `toml:"save_mode"` // "file" or "memory"
	OutputPath string `toml:"output_path"`
	Debug      bool   `toml:"debug"`
}

// LoggingConfig configures internal/logging's level.
type LoggingConfig struct {
	Level string `toml:"level"`
}

// Config is the root configuration document.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Recorder RecorderConfig `toml:"recorder"`
	Logging  LoggingConfig  `toml:"logging"`
}

// DefaultConfig returns the configuration used when no file is present.
// Server.MOTD is left empty: an empty MOTD means the operator never set
// one, and callers serving a loaded replay should fill it in with
// DurationMOTD before advertising it (spec §6's generated
// "Replay Viewer\nDuration: X" banner).
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:       "0.0.0.0",
			Port:       25565,
			Version:    "1.8.9",
			OnlineMode: false,
			MOTD:       "",
			MaxPlayers: 20,
		},
		Recorder: RecorderConfig{
			SaveMode:   "file",
			OutputPath: "recording.mcreplay",
			Debug:      false,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads and decodes the TOML file at path. A missing file is not an
// error -- it yields DefaultConfig(), matching witnessd's Load.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		cfg.ApplyEnvOverrides()
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.ApplyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}

	cfg.ApplyEnvOverrides()
	return cfg, nil
}

// ApplyEnvOverrides applies MCREPLAY_-prefixed environment overrides,
// config value taking priority, falling back to env, falling back to
// whatever DefaultConfig/the file already set -- the same three-tier
// lookup annel0-mmo-game's getPortWithEnvFallback uses for its server
// ports.
func (c *Config) ApplyEnvOverrides() {
	c.Server.Port = intEnvFallback(c.Server.Port, "MCREPLAY_PORT", c.Server.Port)
	c.Server.Host = strEnvFallback(c.Server.Host, "MCREPLAY_HOST", c.Server.Host)
	c.Server.MaxPlayers = intEnvFallback(c.Server.MaxPlayers, "MCREPLAY_MAX_PLAYERS", c.Server.MaxPlayers)
	c.Recorder.OutputPath = strEnvFallback(c.Recorder.OutputPath, "MCREPLAY_OUTPUT_PATH", c.Recorder.OutputPath)
	c.Logging.Level = strEnvFallback(c.Logging.Level, "MCREPLAY_LOG_LEVEL", c.Logging.Level)
}

func intEnvFallback(configVal int, envVar string, fallback int) int {
	if configVal > 0 {
		return configVal
	}
	if v := os.Getenv(envVar); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func strEnvFallback(configVal, envVar, fallback string) string {
	if configVal != "" {
		return configVal
	}
	if v := os.Getenv(envVar); v != "" {
		return v
	}
	return fallback
}

// DurationMOTD builds the generated banner spec §6 documents as the motd
// default: "Replay Viewer\nDuration: X", with X the replay's length
// rendered the way time.Duration already formats it (e.g. "1h32m4s").
func DurationMOTD(replayLength time.Duration) string {
	return fmt.Sprintf("Replay Viewer\nDuration: %s", replayLength)
}
