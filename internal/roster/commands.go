// ABOUTME: Chat commands shared by the platform front ends
// ABOUTME: Maps setup, set-channel and clock in/break/out onto the engine with user-facing replies

package roster

import (
	"context"
	"errors"

	"github.com/2389/modclock/internal/status"
)

// Command names. Matrix reads them after the command prefix; Discord maps
// its clock_* slash command names onto them.
type Command string

const (
	CommandSetup      Command = "setup"
	CommandSetChannel Command = "channel"
	CommandIn         Command = "in"
	CommandBreak      Command = "break"
	CommandOut        Command = "out"
)

// Commands lists every command in help order.
var Commands = []Command{CommandSetup, CommandSetChannel, CommandIn, CommandBreak, CommandOut}

// Replies that do not depend on engine state.
const (
	ReplyGuildOnly          = "This command can only be used in a server text channel."
	ReplyNeedManageChannels = "I need **Manage Channels** in that channel."
	ReplyChannelSet         = "Status channel set; its topic now mirrors the mod list."
	ReplyMissingChannel     = "Name the channel whose topic should show statuses."
	ReplyUnknownCommand     = "Unknown command. Try: setup, channel, in, break, out."
	ReplyFailed             = "Something went wrong; please try again."
)

// CommandRequest is one invocation from a chat front end.
type CommandRequest struct {
	Command Command
	Guild   status.GuildID
	Channel status.ChannelID
	User    status.UserID

	// Target is the channel argument of CommandSetChannel.
	Target status.ChannelID
}

// CommandStatus returns the status a clock command selects.
func CommandStatus(c Command) (status.Status, bool) {
	switch c {
	case CommandIn:
		return status.Modding, true
	case CommandBreak:
		return status.Break, true
	case CommandOut:
		return status.Away, true
	default:
		return 0, false
	}
}

// StatusReply confirms a status change to the member.
func StatusReply(st status.Status) string {
	switch st {
	case status.Modding:
		return "You are now **Modding** 🟢"
	case status.Break:
		return "You are now on **Break** ☕"
	case status.Away:
		return "You are now **Away** ⛔"
	default:
		return ReplyFailed
	}
}

// Execute runs a command and returns the reply for the invoking member.
// Errors are logged here and turned into reply text.
func (e *Engine) Execute(ctx context.Context, req CommandRequest) string {
	if req.Guild == "" || req.Channel == "" {
		return ReplyGuildOnly
	}
	log := e.logger.With("command", string(req.Command), "guild", req.Guild, "user", req.User)

	switch req.Command {
	case CommandSetup:
		res, err := e.Setup(ctx, req.Guild, req.Channel)
		if err != nil {
			log.Warn("setup failed", "channel", req.Channel, "error", err)
			return errorReply(err)
		}
		return res.Message()

	case CommandSetChannel:
		if req.Target == "" {
			return ReplyMissingChannel
		}
		if err := e.SetStatusChannel(ctx, req.Guild, req.Target); err != nil {
			log.Warn("setting status channel failed", "channel", req.Target, "error", err)
			if errors.Is(err, ErrNotAuthorized) {
				return ReplyNeedManageChannels
			}
			return errorReply(err)
		}
		return ReplyChannelSet

	case CommandIn, CommandBreak, CommandOut:
		st, _ := CommandStatus(req.Command)
		if err := e.SetStatus(ctx, req.Guild, req.User, st); err != nil {
			log.Warn("set status failed", "error", err)
			return errorReply(err)
		}
		return StatusReply(st)

	default:
		return ReplyUnknownCommand
	}
}

func errorReply(err error) string {
	switch {
	case errors.Is(err, ErrNotAuthorized):
		return "I don't have permission to do that here."
	case errors.Is(err, ErrChannelUnavailable):
		return "That channel is not available to me."
	default:
		return ReplyFailed
	}
}
