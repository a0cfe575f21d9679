// ABOUTME: Entry point for modclock
// ABOUTME: Loads config, picks the chat platform and runs the bot with the topic scheduler

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/2389/modclock/internal/config"
	"github.com/2389/modclock/internal/platform/discord"
	"github.com/2389/modclock/internal/platform/matrix"
	"github.com/2389/modclock/internal/render"
	"github.com/2389/modclock/internal/roster"
)

const banner = `
                         _       _            _
  _ __ ___   ___   __| | ___| | ___   ___| | __
 | '_ ' _ \ / _ \ / _' |/ __| |/ _ \ / __| |/ /
 | | | | | | (_) | (_| | (__| | (_) | (__|   <
 |_| |_| |_|\___/ \__,_|\___|_|\___/ \___|_|\_\
`

// chatBot is a platform front end the engine runs behind.
type chatBot interface {
	Platform() roster.Platform
	Run(ctx context.Context, engine *roster.Engine) error
}

// getConfigPath returns the config file location.
// Priority: --config flag > MODCLOCK_CONFIG env var > XDG_CONFIG_HOME/modclock/modclock.toml > ~/.config/modclock/modclock.toml
func getConfigPath(flagPath string) (path string, explicit bool) {
	if flagPath != "" {
		return flagPath, true
	}
	if envPath := os.Getenv("MODCLOCK_CONFIG"); envPath != "" {
		return envPath, true
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "modclock.toml", false
		}
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "modclock", "modclock.toml"), false
}

// getDataPath returns the modclock data directory.
// Priority: XDG_DATA_HOME/modclock > ~/.local/share/modclock
func getDataPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data"
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}
	return filepath.Join(dataDir, "modclock")
}

func main() {
	if len(os.Args) > 1 && os.Args[1] == "init" {
		if err := runInit(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := pflag.NewFlagSet("modclock", pflag.ContinueOnError)
	configFlag := flags.StringP("config", "c", "", "path to config file (TOML or YAML)")
	platformFlag := flags.StringP("platform", "p", "", "chat platform to run on: discord or matrix")
	logLevelFlag := flags.String("log-level", "", "log level: debug, info, warn or error")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	if err := config.LoadDotEnv(".env"); err != nil {
		return err
	}

	cfg, source, err := loadConfig(*configFlag)
	if err != nil {
		return err
	}
	if err := applyOverrides(cfg, *platformFlag, *logLevelFlag); err != nil {
		return err
	}

	logger := setupLogger(cfg.Logging.Level, cfg.Logging.Format)

	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Config:   %s\n", source)
	green.Print("    ▶ ")
	fmt.Printf("Platform: %s\n", cfg.Platform)
	green.Print("    ▶ ")
	fmt.Printf("Topic:    flush every %s, one edit per %s (burst %d)\n", cfg.Topic.FlushInterval, cfg.Topic.MinInterval, cfg.Topic.Burst)
	if cfg.Platform == config.PlatformMatrix && cfg.Matrix.RecoveryKey != "" {
		green.Print("    ▶ ")
		fmt.Println("Encryption: enabled")
	}
	fmt.Println()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	bot, renderer, err := newChatBot(cfg, logger)
	if err != nil {
		return err
	}

	engine := roster.New(bot.Platform(), roster.Options{
		Renderer:              renderer,
		TopicFollowsReactions: cfg.Topic.FollowReactions,
		Logger:                logger,
	})
	scheduler := roster.NewTopicScheduler(engine, roster.TopicSchedulerConfig{
		FlushInterval: cfg.Topic.FlushInterval,
		MinInterval:   cfg.Topic.MinInterval,
		Burst:         cfg.Topic.Burst,
	}, logger)
	engine.SetTopicNotifier(scheduler)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return bot.Run(gctx, engine)
	})
	g.Go(func() error {
		return scheduler.Run(gctx)
	})

	logger.Info("modclock running", "platform", cfg.Platform)
	return g.Wait()
}

// loadConfig finds and loads the configuration. Without a file, DISCORD_TOKEN
// alone is enough to run on Discord.
func loadConfig(flagPath string) (*config.Config, string, error) {
	path, explicit := getConfigPath(flagPath)

	if _, err := os.Stat(path); err == nil || explicit {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, "", fmt.Errorf("loading config from %s: %w", path, err)
		}
		return cfg, path, nil
	}

	if os.Getenv("DISCORD_TOKEN") != "" {
		cfg, err := config.FromEnv()
		if err != nil {
			return nil, "", fmt.Errorf("loading config from environment: %w", err)
		}
		return cfg, "environment (DISCORD_TOKEN)", nil
	}

	return nil, "", fmt.Errorf("no config at %s and DISCORD_TOKEN is not set; run 'modclock init' to create one", path)
}

// applyOverrides applies command line flags on top of the loaded config.
func applyOverrides(cfg *config.Config, platform, logLevel string) error {
	if platform == "" && logLevel == "" {
		return nil
	}
	if platform != "" {
		cfg.Platform = platform
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating flags: %w", err)
	}
	return nil
}

// newChatBot builds the front end for cfg.Platform and the renderer to match.
func newChatBot(cfg *config.Config, logger *slog.Logger) (chatBot, *render.Renderer, error) {
	renderer := render.New(cfg.Roster.Label)

	switch cfg.Platform {
	case config.PlatformMatrix:
		dataDir := cfg.Matrix.DataDir
		if dataDir == "" {
			dataDir = getDataPath()
		}
		renderer.Mention = matrix.Mention
		bot, err := matrix.NewBot(cfg.Matrix, dataDir, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("creating matrix bot: %w", err)
		}
		return bot, renderer, nil
	default:
		bot, err := discord.NewBot(cfg.Discord, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("creating discord bot: %w", err)
		}
		return bot, renderer, nil
	}
}

func setupLogger(level, format string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
