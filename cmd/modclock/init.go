// ABOUTME: Interactive "modclock init" wizard
// ABOUTME: Prompts for platform credentials and writes a starter TOML config

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/pflag"

	"github.com/2389/modclock/internal/config"
)

// initAnswers are the values gathered by the init wizard.
type initAnswers struct {
	Platform string

	DiscordToken   string
	DiscordGuildID string

	MatrixHomeserver  string
	MatrixUserID      string
	MatrixAccessToken string
	MatrixRecoveryKey string
	CommandPrefix     string
}

func runInit(args []string) error {
	flags := pflag.NewFlagSet("modclock init", pflag.ContinueOnError)
	configFlag := flags.StringP("config", "c", "", "where to write the config file")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cyan := color.New(color.FgCyan)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	cyan.Print(banner)
	fmt.Println("    Interactive Setup")
	fmt.Println("    -----------------")
	fmt.Println()

	configPath, _ := getConfigPath(*configFlag)
	reader := bufio.NewReader(os.Stdin)

	if _, err := os.Stat(configPath); err == nil {
		yellow.Printf("    Config already exists at %s\n", configPath)
		if strings.ToLower(prompt(reader, "Overwrite? [y/N]", "")) != "y" {
			fmt.Println("    Aborted.")
			return nil
		}
		fmt.Println()
	}

	answers := askInit(reader, func(label string) {
		green.Print("    ▶ ")
		fmt.Print(label)
	})

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(configPath, []byte(renderInitConfig(answers)), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	fmt.Println()
	green.Printf("    ✓ Config written to %s\n", configPath)
	fmt.Println()
	fmt.Println("    Next steps:")
	fmt.Println("    1. Run: modclock")
	if answers.Platform == config.PlatformDiscord {
		fmt.Println("    2. In your server, run /clock_setup in the channel for the mod list")
	} else {
		fmt.Println("    2. Invite the bot and send '" + answers.CommandPrefix + " setup' in the room")
	}
	fmt.Println()

	return nil
}

// askInit walks through the questions. show prints each prompt label.
func askInit(reader *bufio.Reader, show func(label string)) initAnswers {
	ask := func(question, def string) string {
		label := question + ": "
		if def != "" {
			label = fmt.Sprintf("%s [%s]: ", question, def)
		}
		show(label)
		return readLine(reader, def)
	}

	a := initAnswers{}
	a.Platform = strings.ToLower(ask("Platform (discord or matrix)", config.PlatformDiscord))
	if a.Platform != config.PlatformMatrix {
		a.Platform = config.PlatformDiscord
	}

	switch a.Platform {
	case config.PlatformDiscord:
		a.DiscordToken = ask("Discord bot token", "${DISCORD_TOKEN}")
		a.DiscordGuildID = ask("Guild ID for command registration (optional)", "")
	case config.PlatformMatrix:
		a.MatrixHomeserver = ask("Matrix homeserver URL", "https://matrix.org")
		a.MatrixUserID = ask("Matrix user ID (e.g. @modclock:matrix.org)", "")
		a.MatrixAccessToken = ask("Matrix access token", "${MATRIX_TOKEN}")
		a.MatrixRecoveryKey = ask("Matrix recovery key (optional, for E2EE)", "")
		a.CommandPrefix = ask("Command prefix", "!clock")
	}
	return a
}

func prompt(reader *bufio.Reader, question, def string) string {
	fmt.Printf("    %s: ", question)
	return readLine(reader, def)
}

func readLine(reader *bufio.Reader, def string) string {
	line, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return def
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return def
	}
	return line
}

// renderInitConfig produces the starter config file.
func renderInitConfig(a initAnswers) string {
	var b strings.Builder
	b.WriteString("# modclock configuration\n# Generated by modclock init\n\n")
	fmt.Fprintf(&b, "platform = %q\n", a.Platform)

	switch a.Platform {
	case config.PlatformMatrix:
		fmt.Fprintf(&b, `
[matrix]
homeserver = %q
user_id = %q
access_token = %q
`, a.MatrixHomeserver, a.MatrixUserID, a.MatrixAccessToken)
		if a.MatrixRecoveryKey != "" {
			fmt.Fprintf(&b, "recovery_key = %q\n", a.MatrixRecoveryKey)
		}
		fmt.Fprintf(&b, `command_prefix = %q
# Only respond in these rooms (empty = all joined rooms)
allowed_rooms = []
`, a.CommandPrefix)
	default:
		fmt.Fprintf(&b, `
[discord]
token = %q
# Register slash commands in one guild (empty = global)
guild_id = %q
`, a.DiscordToken, a.DiscordGuildID)
	}

	b.WriteString(`
[roster]
label = "🕒 Mod List"

[topic]
# Mark the status channel topic for refresh on every reaction change
follow_reactions = true
flush_interval = "1m"
# Discord allows two topic edits per ten minutes
min_interval = "5m"
burst = 2

[logging]
level = "info"
format = "text"
`)
	return b.String()
}
