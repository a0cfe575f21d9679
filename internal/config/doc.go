// Package config handles configuration loading for modclock.
//
// # Overview
//
// Configuration is read from a TOML or YAML file (picked by extension) with
// environment variable expansion, decoded on top of defaults, and validated.
// A .env file in the working directory is loaded into the environment first.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from the --config flag
//  2. Path from MODCLOCK_CONFIG environment variable
//  3. $XDG_CONFIG_HOME/modclock/modclock.toml
//  4. ~/.config/modclock/modclock.toml
//
// When no file exists and DISCORD_TOKEN is set, FromEnv builds a Discord
// configuration from DISCORD_TOKEN and GUILD_ID alone.
//
// # Environment Variable Expansion
//
//	[discord]
//	token = "${DISCORD_TOKEN}"
//
// Unset variables expand to the empty string.
//
// # Configuration Sections
//
//	platform = "discord"            # discord, matrix
//
//	[discord]
//	token = "${DISCORD_TOKEN}"
//	guild_id = "${GUILD_ID}"        # optional: register commands in one guild
//
//	[matrix]
//	homeserver = "https://matrix.org"
//	user_id = "@modclock:matrix.org"
//	access_token = "${MATRIX_TOKEN}"
//	recovery_key = ""               # optional: enables E2EE
//	command_prefix = "!clock"
//	allowed_rooms = []              # empty = all joined rooms
//	data_dir = ""                   # crypto store; defaults to XDG data dir
//
//	[roster]
//	label = "🕒 Mod List"
//
//	[topic]
//	follow_reactions = true
//	flush_interval = "1m"
//	min_interval = "5m"
//	burst = 2
//
//	[logging]
//	level = "info"                  # debug, info, warn, error
//	format = "text"                 # text, json
//
// # Duration Parsing
//
// Durations use Go's time.ParseDuration syntax and are parsed after decoding.
package config
