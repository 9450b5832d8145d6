// Package config loads reel settings from a config file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. REEL_PLAYER_TICK=50ms.
const EnvPrefix = "REEL"

// Config is the full reel configuration.
type Config struct {
	Player  PlayerConfig  `mapstructure:"player" json:"player"`
	Logging LoggingConfig `mapstructure:"logging" json:"logging"`
	TUI     TUIConfig     `mapstructure:"tui" json:"tui"`
	Scripts ScriptsConfig `mapstructure:"scripts" json:"scripts"`

	source string
}

// PlayerConfig holds playback defaults.
type PlayerConfig struct {
	Tick  time.Duration `mapstructure:"tick" json:"tick"`
	Hold  time.Duration `mapstructure:"hold" json:"hold"`
	Loop  bool          `mapstructure:"loop" json:"loop"`
	Speed float64       `mapstructure:"speed" json:"speed"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level" json:"level"`
	Format string `mapstructure:"format" json:"format"`
}

// TUIConfig holds terminal UI settings.
type TUIConfig struct {
	Theme string `mapstructure:"theme" json:"theme"`
}

// ScriptsConfig lists extra script directories searched after the project.
type ScriptsConfig struct {
	Dirs []string `mapstructure:"dirs" json:"dirs"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Player: PlayerConfig{
			Tick:  100 * time.Millisecond,
			Hold:  2 * time.Second,
			Speed: 1,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		TUI: TUIConfig{
			Theme: "default",
		},
		Scripts: ScriptsConfig{
			Dirs: []string{},
		},
	}
}

// Source returns the config file that was read, or "" when none was found.
func (c *Config) Source() string {
	return c.source
}

// Load reads configuration. An explicit path must exist; otherwise reel.yaml
// is looked up in the working directory and ~/.config/reel, and a missing
// file just means defaults. Environment variables override both.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("reel")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil && home != "" {
			v.AddConfigPath(filepath.Join(home, ".config", "reel"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.source = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	def := DefaultConfig()
	v.SetDefault("player.tick", def.Player.Tick)
	v.SetDefault("player.hold", def.Player.Hold)
	v.SetDefault("player.loop", def.Player.Loop)
	v.SetDefault("player.speed", def.Player.Speed)
	v.SetDefault("logging.level", def.Logging.Level)
	v.SetDefault("logging.format", def.Logging.Format)
	v.SetDefault("tui.theme", def.TUI.Theme)
	v.SetDefault("scripts.dirs", def.Scripts.Dirs)
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Player.Tick <= 0 {
		return fmt.Errorf("player.tick must be greater than 0, got %s", c.Player.Tick)
	}
	if c.Player.Hold < 0 {
		return fmt.Errorf("player.hold must not be negative, got %s", c.Player.Hold)
	}
	if c.Player.Speed <= 0 {
		return fmt.Errorf("player.speed must be greater than 0, got %g", c.Player.Speed)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "error", "fatal", "panic", "disabled":
	default:
		return fmt.Errorf("logging.level %q is not a valid level", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.TUI.Theme {
	case "default", "high-contrast":
	default:
		return fmt.Errorf("tui.theme must be default or high-contrast, got %q", c.TUI.Theme)
	}
	return nil
}
