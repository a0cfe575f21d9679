// ABOUTME: Tests for modclock startup helpers
// ABOUTME: Covers config discovery, env-only mode, flag overrides, the init wizard and platform selection

package main

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/modclock/internal/config"
	"github.com/2389/modclock/internal/platform/discord"
	"github.com/2389/modclock/internal/platform/matrix"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestGetConfigPath(t *testing.T) {
	t.Setenv("MODCLOCK_CONFIG", "")
	t.Setenv("XDG_CONFIG_HOME", "/xdg")

	path, explicit := getConfigPath("")
	assert.Equal(t, filepath.Join("/xdg", "modclock", "modclock.toml"), path)
	assert.False(t, explicit)

	t.Setenv("MODCLOCK_CONFIG", "/etc/modclock.yaml")
	path, explicit = getConfigPath("")
	assert.Equal(t, "/etc/modclock.yaml", path)
	assert.True(t, explicit)

	path, explicit = getConfigPath("./local.toml")
	assert.Equal(t, "./local.toml", path)
	assert.True(t, explicit)
}

func TestGetDataPath(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/data")
	assert.Equal(t, filepath.Join("/data", "modclock"), getDataPath())
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "modclock.toml")
	require.NoError(t, os.WriteFile(path, []byte("[discord]\ntoken = \"file-token\"\n"), 0600))

	cfg, source, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, path, source)
	assert.Equal(t, "file-token", cfg.Discord.Token)
}

func TestLoadConfig_ExplicitMissingFileFails(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "env-token")

	_, _, err := loadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading config from")
}

func TestLoadConfig_EnvOnly(t *testing.T) {
	t.Setenv("MODCLOCK_CONFIG", "")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("DISCORD_TOKEN", "env-token")
	t.Setenv("GUILD_ID", "42")

	cfg, source, err := loadConfig("")
	require.NoError(t, err)
	assert.Contains(t, source, "DISCORD_TOKEN")
	assert.Equal(t, config.PlatformDiscord, cfg.Platform)
	assert.Equal(t, "env-token", cfg.Discord.Token)
	assert.Equal(t, "42", cfg.Discord.GuildID)
}

func TestLoadConfig_NothingConfigured(t *testing.T) {
	t.Setenv("MODCLOCK_CONFIG", "")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("DISCORD_TOKEN", "")

	_, _, err := loadConfig("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "modclock init")
}

func TestApplyOverrides(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "env-token")
	cfg, err := config.FromEnv()
	require.NoError(t, err)

	require.NoError(t, applyOverrides(cfg, "", "debug"))
	assert.Equal(t, "debug", cfg.Logging.Level)

	err = applyOverrides(cfg, config.PlatformMatrix, "")
	require.Error(t, err, "matrix needs its own section")

	err = applyOverrides(cfg, config.PlatformDiscord, "loud")
	require.Error(t, err)
}

func TestRenderInitConfig_Loads(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "from-env")

	tests := []initAnswers{
		{Platform: config.PlatformDiscord, DiscordToken: "${DISCORD_TOKEN}", DiscordGuildID: "123"},
		{
			Platform:          config.PlatformMatrix,
			MatrixHomeserver:  "https://matrix.example.org",
			MatrixUserID:      "@clock:example.org",
			MatrixAccessToken: "syt_abc",
			MatrixRecoveryKey: "EsT0 abcd",
			CommandPrefix:     "!mods",
		},
	}
	for _, a := range tests {
		t.Run(a.Platform, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "modclock.toml")
			require.NoError(t, os.WriteFile(path, []byte(renderInitConfig(a)), 0600))

			cfg, err := config.Load(path)
			require.NoError(t, err)
			assert.Equal(t, a.Platform, cfg.Platform)
			if a.Platform == config.PlatformDiscord {
				assert.Equal(t, "from-env", cfg.Discord.Token)
				assert.Equal(t, "123", cfg.Discord.GuildID)
			} else {
				assert.Equal(t, "@clock:example.org", cfg.Matrix.UserID)
				assert.Equal(t, "EsT0 abcd", cfg.Matrix.RecoveryKey)
				assert.Equal(t, "!mods", cfg.Matrix.CommandPrefix)
			}
		})
	}
}

func TestAskInit(t *testing.T) {
	input := strings.Join([]string{
		"matrix",
		"",
		"@clock:example.org",
		"",
		"",
		"",
	}, "\n") + "\n"

	var prompts []string
	a := askInit(bufio.NewReader(strings.NewReader(input)), func(label string) {
		prompts = append(prompts, label)
	})

	assert.Equal(t, config.PlatformMatrix, a.Platform)
	assert.Equal(t, "https://matrix.org", a.MatrixHomeserver)
	assert.Equal(t, "@clock:example.org", a.MatrixUserID)
	assert.Equal(t, "${MATRIX_TOKEN}", a.MatrixAccessToken)
	assert.Empty(t, a.MatrixRecoveryKey)
	assert.Equal(t, "!clock", a.CommandPrefix)
	assert.Len(t, prompts, 6)
}

func TestAskInit_DefaultsToDiscord(t *testing.T) {
	a := askInit(bufio.NewReader(strings.NewReader("")), func(string) {})

	assert.Equal(t, config.PlatformDiscord, a.Platform)
	assert.Equal(t, "${DISCORD_TOKEN}", a.DiscordToken)
	assert.Empty(t, a.DiscordGuildID)
}

func TestSetupLogger(t *testing.T) {
	assert.True(t, setupLogger("debug", "text").Enabled(context.Background(), slog.LevelDebug))
	assert.False(t, setupLogger("warn", "json").Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, setupLogger("bogus", "text").Enabled(context.Background(), slog.LevelInfo))
}

func TestNewChatBot(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	cfg := config.Default()
	cfg.Discord.Token = "token"
	cfg.Roster.Label = "Staff"
	bot, renderer, err := newChatBot(cfg, discardLogger())
	require.NoError(t, err)
	assert.IsType(t, &discord.Bot{}, bot)
	assert.Equal(t, "Staff", renderer.Label)
	assert.Equal(t, "<@42>", renderer.Mention("42"))

	cfg.Platform = config.PlatformMatrix
	cfg.Matrix = config.MatrixConfig{
		Homeserver:    "https://matrix.example.org",
		UserID:        "@clock:example.org",
		AccessToken:   "token",
		CommandPrefix: "!clock",
	}
	bot, renderer, err = newChatBot(cfg, discardLogger())
	require.NoError(t, err)
	assert.IsType(t, &matrix.Bot{}, bot)
	assert.Equal(t, "@someone:example.org", renderer.Mention("@someone:example.org"))
}
