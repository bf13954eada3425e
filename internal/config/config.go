// Package config loads the stellar YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/edumarques81/stellar-playback/internal/domain/player"
)

// Output names accepted by playback.output.
const (
	OutputSpeaker = "speaker"
	OutputNull    = "null"
)

// Config represents the application configuration
type Config struct {
	Playback PlaybackConfig `yaml:"playback"`
	Library  LibraryConfig  `yaml:"library"`
	Cache    CacheConfig    `yaml:"cache"`
	MPD      MPDConfig      `yaml:"mpd"`
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
}

// PlaybackConfig tunes the transport engine and audio output.
type PlaybackConfig struct {
	TrackerInterval time.Duration `yaml:"tracker_interval"`
	StopGrace       time.Duration `yaml:"stop_grace"`
	ReplayWindow    time.Duration `yaml:"replay_window"`
	Volume          float64       `yaml:"volume"`
	Output          string        `yaml:"output"`
	BufferSize      time.Duration `yaml:"buffer_size"`
	Repeat          string        `yaml:"repeat"`
	AutoContinue    bool          `yaml:"auto_continue"`
}

// LibraryConfig locates playlist files.
type LibraryConfig struct {
	PlaylistDir    string `yaml:"playlist_dir"`
	WatchPlaylists bool   `yaml:"watch_playlists"`
	CoverSize      int    `yaml:"cover_size"`
}

// CacheConfig points at the probe cache database. An empty path disables it.
type CacheConfig struct {
	Path string `yaml:"path"`
}

// MPDConfig enables importing MPD stored playlists. An empty host disables it.
type MPDConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password,omitempty"`
	MusicDir string `yaml:"music_dir"`
}

// ServerConfig configures `stellar serve`.
type ServerConfig struct {
	Port               int           `yaml:"port"`
	MaxExternalClients int           `yaml:"max_external_clients"`
	PositionThrottle   time.Duration `yaml:"position_throttle"`
	// CORSOrigins is a comma-separated origin list; "*" allows any origin.
	CORSOrigins string `yaml:"cors_origins"`
}

// LogConfig sets the log level.
type LogConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Playback: PlaybackConfig{
			TrackerInterval: player.DefaultTrackerInterval,
			StopGrace:       player.DefaultStopGrace,
			ReplayWindow:    player.DefaultReplayWindow,
			Volume:          1,
			Output:          OutputSpeaker,
			BufferSize:      100 * time.Millisecond,
			Repeat:          "off",
		},
		Library: LibraryConfig{
			PlaylistDir:    "playlists",
			WatchPlaylists: true,
			CoverSize:      300,
		},
		Cache: CacheConfig{
			Path: filepath.Join("data", "probes.db"),
		},
		MPD: MPDConfig{
			Port: 6600,
		},
		Server: ServerConfig{
			Port:               3000,
			MaxExternalClients: 1,
			PositionThrottle:   250 * time.Millisecond,
			CORSOrigins:        "*",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration from file. A missing file yields the
// defaults; keys absent from the file keep their default values.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// SaveConfig saves configuration to file
func SaveConfig(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if err := c.Playback.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("playback: %w", err))
	}
	if c.Library.CoverSize < 0 {
		errs = append(errs, errors.New("library: cover_size must be non-negative"))
	}
	if c.MPD.Host != "" && (c.MPD.Port <= 0 || c.MPD.Port > 65535) {
		errs = append(errs, fmt.Errorf("mpd: invalid port %d", c.MPD.Port))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server: invalid port %d", c.Server.Port))
	}
	switch c.Log.Level {
	case "", "trace", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log: unknown level %q", c.Log.Level))
	}

	return errors.Join(errs...)
}

// Validate checks PlaybackConfig for errors.
func (c *PlaybackConfig) Validate() error {
	if c.TrackerInterval <= 0 {
		return errors.New("tracker_interval must be positive")
	}
	if c.StopGrace <= 0 || c.StopGrace >= time.Second {
		return errors.New("stop_grace must be between 0 and 1s")
	}
	if c.ReplayWindow < 0 {
		return errors.New("replay_window must be non-negative")
	}
	if c.Volume < 0 || c.Volume > 1 {
		return errors.New("volume must be between 0 and 1")
	}
	switch c.Output {
	case OutputSpeaker, OutputNull:
	default:
		return fmt.Errorf("unknown output %q", c.Output)
	}
	if _, err := player.ParseRepeatMode(c.Repeat); err != nil {
		return err
	}
	return nil
}

// RepeatMode returns the configured initial repeat mode.
func (c *PlaybackConfig) RepeatMode() player.RepeatMode {
	m, _ := player.ParseRepeatMode(c.Repeat)
	return m
}
