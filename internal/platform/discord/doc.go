// Package discord runs the mod list on Discord through discordgo.
//
// # Overview
//
// Adapter implements roster.Platform over the Discord REST API. Bot owns the
// gateway session: it turns MESSAGE_REACTION_ADD and MESSAGE_REACTION_REMOVE
// into engine events and serves the clock_* slash commands.
//
// # Slash Commands
//
//	/clock_setup                 post or refresh the roster message here
//	/clock_setchannel <channel>  mirror statuses into the channel topic
//	/clock_in                    set yourself to Modding
//	/clock_break                 set yourself to Break
//	/clock_out                   set yourself to Away
//
// Commands are registered in one guild when discord.guild_id is set and
// globally otherwise. Replies are ephemeral.
//
// # Errors
//
// REST failures are wrapped with the roster sentinel errors:
//
//	10008 Unknown Message          roster.ErrMessageNotFound
//	10003 Unknown Channel          roster.ErrChannelUnavailable
//	50001, 50013 or HTTP 403       roster.ErrNotAuthorized
package discord
