// ABOUTME: Platform contract the engine needs from a chat client
// ABOUTME: Message, reaction, topic and member primitives plus sentinel errors

package roster

import (
	"context"
	"errors"

	"github.com/2389/modclock/internal/status"
)

// Platform errors. Adapters wrap their native errors with these.
var (
	// ErrMessageNotFound means the message no longer exists.
	ErrMessageNotFound = errors.New("message not found")

	// ErrNotAuthorized means the bot lacks permission for the call.
	ErrNotAuthorized = errors.New("not authorized")

	// ErrChannelUnavailable means the channel is gone or not a text channel.
	ErrChannelUnavailable = errors.New("channel unavailable")
)

// Message is the subset of a platform message the engine looks at.
type Message struct {
	ID      status.MessageID
	Channel status.ChannelID
	Content string
}

// Platform is the chat client surface used by the engine. All calls may block
// on network I/O.
type Platform interface {
	SendMessage(ctx context.Context, channel status.ChannelID, text string) (status.MessageID, error)
	EditMessage(ctx context.Context, channel status.ChannelID, message status.MessageID, text string) error
	FetchMessage(ctx context.Context, channel status.ChannelID, message status.MessageID) (*Message, error)

	AddReaction(ctx context.Context, channel status.ChannelID, message status.MessageID, emoji string) error
	RemoveReaction(ctx context.Context, channel status.ChannelID, message status.MessageID, emoji string, user status.UserID) error
	ListReactionUsers(ctx context.Context, channel status.ChannelID, message status.MessageID, emoji string) ([]status.UserID, error)

	EditChannelTopic(ctx context.Context, channel status.ChannelID, text string) error

	// MemberName resolves a guild member's display name. ok is false when the
	// user is not (or no longer) a member.
	MemberName(ctx context.Context, guild status.GuildID, user status.UserID) (name string, ok bool)
}

// ReactionEvent is an inbound reaction add or remove.
type ReactionEvent struct {
	Guild   status.GuildID
	Channel status.ChannelID
	Message status.MessageID
	User    status.UserID
	Emoji   string

	// IsSelf is true when the bot itself reacted.
	IsSelf bool
}
