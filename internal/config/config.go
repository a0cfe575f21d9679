// ABOUTME: Configuration loading and validation for modclock
// ABOUTME: TOML or YAML with ${VAR} expansion, .env support, defaults and duration parsing

package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Supported platforms.
const (
	PlatformDiscord = "discord"
	PlatformMatrix  = "matrix"
)

// Config represents the complete modclock configuration.
type Config struct {
	Platform string        `toml:"platform" yaml:"platform"`
	Discord  DiscordConfig `toml:"discord" yaml:"discord"`
	Matrix   MatrixConfig  `toml:"matrix" yaml:"matrix"`
	Roster   RosterConfig  `toml:"roster" yaml:"roster"`
	Topic    TopicConfig   `toml:"topic" yaml:"topic"`
	Logging  LoggingConfig `toml:"logging" yaml:"logging"`
}

// DiscordConfig holds Discord bot configuration
type DiscordConfig struct {
	Token string `toml:"token" yaml:"token"`

	// GuildID scopes slash command registration to one guild. Empty registers globally.
	GuildID string `toml:"guild_id" yaml:"guild_id"`
}

// MatrixConfig holds Matrix bot configuration
type MatrixConfig struct {
	Homeserver    string   `toml:"homeserver" yaml:"homeserver"`
	UserID        string   `toml:"user_id" yaml:"user_id"`
	AccessToken   string   `toml:"access_token" yaml:"access_token"`
	RecoveryKey   string   `toml:"recovery_key" yaml:"recovery_key"`
	CommandPrefix string   `toml:"command_prefix" yaml:"command_prefix"`
	AllowedRooms  []string `toml:"allowed_rooms" yaml:"allowed_rooms"`
	DataDir       string   `toml:"data_dir" yaml:"data_dir"`
}

// RosterConfig holds roster rendering options
type RosterConfig struct {
	Label string `toml:"label" yaml:"label"`
}

// TopicConfig holds channel topic refresh timing
type TopicConfig struct {
	FollowReactions bool `toml:"follow_reactions" yaml:"follow_reactions"`
	Burst           int  `toml:"burst" yaml:"burst"`

	FlushInterval time.Duration `toml:"-" yaml:"-"`
	MinInterval   time.Duration `toml:"-" yaml:"-"`

	// Raw string values for decoding
	FlushIntervalRaw string `toml:"flush_interval" yaml:"flush_interval"`
	MinIntervalRaw   string `toml:"min_interval" yaml:"min_interval"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"`
}

// Default returns the configuration every file is decoded on top of.
func Default() *Config {
	return &Config{
		Platform: PlatformDiscord,
		Matrix: MatrixConfig{
			CommandPrefix: "!clock",
		},
		Roster: RosterConfig{
			Label: "🕒 Mod List",
		},
		Topic: TopicConfig{
			FollowReactions:  true,
			Burst:            2,
			FlushIntervalRaw: "1m",
			MinIntervalRaw:   "5m",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a configuration file and returns a parsed, validated Config.
// Files ending in .yaml or .yml are YAML; everything else is TOML.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(strings.NewReader(expanded))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	default:
		md, err := toml.Decode(expanded, cfg)
		if err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("parsing config file: unknown key %q", undecoded[0].String())
		}
	}

	if err := finish(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv builds a Discord configuration from DISCORD_TOKEN and GUILD_ID.
func FromEnv() (*Config, error) {
	cfg := Default()
	cfg.Platform = PlatformDiscord
	cfg.Discord.Token = os.Getenv("DISCORD_TOKEN")
	cfg.Discord.GuildID = os.Getenv("GUILD_ID")
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}

	if err := finish(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv loads KEY=VALUE pairs from path into the environment without
// overriding variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

func finish(cfg *Config) error {
	if err := parseDurations(cfg); err != nil {
		return fmt.Errorf("parsing durations: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}
	return nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	switch c.Platform {
	case PlatformDiscord:
		if c.Discord.Token == "" {
			return fmt.Errorf("discord.token is required (or set DISCORD_TOKEN)")
		}
	case PlatformMatrix:
		if c.Matrix.Homeserver == "" {
			return fmt.Errorf("matrix.homeserver is required")
		}
		u, err := url.Parse(c.Matrix.Homeserver)
		if err != nil {
			return fmt.Errorf("matrix.homeserver is not a valid URL: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("matrix.homeserver must use http or https scheme")
		}
		if !strings.HasPrefix(c.Matrix.UserID, "@") || !strings.Contains(c.Matrix.UserID, ":") {
			return fmt.Errorf("matrix.user_id must look like @name:server")
		}
		if c.Matrix.AccessToken == "" {
			return fmt.Errorf("matrix.access_token is required")
		}
		if strings.TrimSpace(c.Matrix.CommandPrefix) == "" {
			return fmt.Errorf("matrix.command_prefix must not be empty")
		}
	default:
		return fmt.Errorf("platform must be %q or %q, got %q", PlatformDiscord, PlatformMatrix, c.Platform)
	}

	if c.Topic.Burst < 1 {
		return fmt.Errorf("topic.burst must be at least 1")
	}
	if c.Topic.FlushInterval <= 0 {
		return fmt.Errorf("topic.flush_interval must be positive")
	}
	if c.Topic.MinInterval <= 0 {
		return fmt.Errorf("topic.min_interval must be positive")
	}

	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error")
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json")
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Topic.FlushIntervalRaw != "" {
		cfg.Topic.FlushInterval, err = time.ParseDuration(cfg.Topic.FlushIntervalRaw)
		if err != nil {
			return fmt.Errorf("parsing flush_interval %q: %w", cfg.Topic.FlushIntervalRaw, err)
		}
	}

	if cfg.Topic.MinIntervalRaw != "" {
		cfg.Topic.MinInterval, err = time.ParseDuration(cfg.Topic.MinIntervalRaw)
		if err != nil {
			return fmt.Errorf("parsing min_interval %q: %w", cfg.Topic.MinIntervalRaw, err)
		}
	}

	return nil
}
