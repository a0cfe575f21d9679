// ABOUTME: roster.Platform implementation over the Discord REST API
// ABOUTME: Maps REST error codes to roster sentinels and resolves member display names

package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"

	"github.com/2389/modclock/internal/roster"
	"github.com/2389/modclock/internal/status"
)

// reactionPageSize is the largest page Discord returns for reaction users.
const reactionPageSize = 100

// Adapter implements roster.Platform with a discordgo session.
type Adapter struct {
	session *discordgo.Session
}

// NewAdapter wraps session. The session does not need to be open for REST calls.
func NewAdapter(session *discordgo.Session) *Adapter {
	return &Adapter{session: session}
}

// SendMessage posts text and returns the new message ID.
func (a *Adapter) SendMessage(ctx context.Context, channel status.ChannelID, text string) (status.MessageID, error) {
	msg, err := a.session.ChannelMessageSend(string(channel), text, discordgo.WithContext(ctx))
	if err != nil {
		return "", mapError("sending message", err)
	}
	return status.MessageID(msg.ID), nil
}

// EditMessage replaces a message's content.
func (a *Adapter) EditMessage(ctx context.Context, channel status.ChannelID, message status.MessageID, text string) error {
	if _, err := a.session.ChannelMessageEdit(string(channel), string(message), text, discordgo.WithContext(ctx)); err != nil {
		return mapError("editing message", err)
	}
	return nil
}

// FetchMessage loads a message.
func (a *Adapter) FetchMessage(ctx context.Context, channel status.ChannelID, message status.MessageID) (*roster.Message, error) {
	msg, err := a.session.ChannelMessage(string(channel), string(message), discordgo.WithContext(ctx))
	if err != nil {
		return nil, mapError("fetching message", err)
	}
	return &roster.Message{
		ID:      status.MessageID(msg.ID),
		Channel: status.ChannelID(msg.ChannelID),
		Content: msg.Content,
	}, nil
}

// AddReaction reacts to a message as the bot.
func (a *Adapter) AddReaction(ctx context.Context, channel status.ChannelID, message status.MessageID, emoji string) error {
	if err := a.session.MessageReactionAdd(string(channel), string(message), emoji, discordgo.WithContext(ctx)); err != nil {
		return mapError("adding reaction", err)
	}
	return nil
}

// RemoveReaction removes one user's reaction. Needs Manage Messages.
func (a *Adapter) RemoveReaction(ctx context.Context, channel status.ChannelID, message status.MessageID, emoji string, user status.UserID) error {
	if err := a.session.MessageReactionRemove(string(channel), string(message), emoji, string(user), discordgo.WithContext(ctx)); err != nil {
		return mapError("removing reaction", err)
	}
	return nil
}

// ListReactionUsers pages through everyone who reacted with emoji.
func (a *Adapter) ListReactionUsers(ctx context.Context, channel status.ChannelID, message status.MessageID, emoji string) ([]status.UserID, error) {
	var users []status.UserID
	after := ""
	for {
		page, err := a.session.MessageReactions(string(channel), string(message), emoji, reactionPageSize, "", after, discordgo.WithContext(ctx))
		if err != nil {
			return nil, mapError("listing reactions", err)
		}
		for _, u := range page {
			users = append(users, status.UserID(u.ID))
		}
		if len(page) < reactionPageSize {
			return users, nil
		}
		after = page[len(page)-1].ID
	}
}

// EditChannelTopic sets a text channel's topic. Needs Manage Channels.
func (a *Adapter) EditChannelTopic(ctx context.Context, channel status.ChannelID, text string) error {
	if _, err := a.session.ChannelEdit(string(channel), &discordgo.ChannelEdit{Topic: text}, discordgo.WithContext(ctx)); err != nil {
		return mapError("editing channel topic", err)
	}
	return nil
}

// MemberName resolves a member from the state cache, falling back to REST.
func (a *Adapter) MemberName(ctx context.Context, guild status.GuildID, user status.UserID) (string, bool) {
	if m, err := a.session.State.Member(string(guild), string(user)); err == nil {
		return displayName(m)
	}

	m, err := a.session.GuildMember(string(guild), string(user), discordgo.WithContext(ctx))
	if err != nil {
		return "", false
	}
	// Best effort: fails when the guild itself is not cached.
	_ = a.session.State.MemberAdd(m)
	return displayName(m)
}

// displayName picks the name Discord shows: nickname, then global name, then username.
func displayName(m *discordgo.Member) (string, bool) {
	if m == nil {
		return "", false
	}
	if m.Nick != "" {
		return m.Nick, true
	}
	if m.User == nil {
		return "", false
	}
	if m.User.GlobalName != "" {
		return m.User.GlobalName, true
	}
	if m.User.Username != "" {
		return m.User.Username, true
	}
	return "", false
}

// mapError wraps err with the roster sentinel matching its REST error code.
func mapError(op string, err error) error {
	var rest *discordgo.RESTError
	if !errors.As(err, &rest) {
		return fmt.Errorf("%s: %w", op, err)
	}

	if rest.Message != nil {
		switch rest.Message.Code {
		case discordgo.ErrCodeUnknownMessage:
			return fmt.Errorf("%s: %w: %w", op, roster.ErrMessageNotFound, err)
		case discordgo.ErrCodeUnknownChannel:
			return fmt.Errorf("%s: %w: %w", op, roster.ErrChannelUnavailable, err)
		case discordgo.ErrCodeMissingAccess, discordgo.ErrCodeMissingPermissions:
			return fmt.Errorf("%s: %w: %w", op, roster.ErrNotAuthorized, err)
		}
	}
	if rest.Response != nil && rest.Response.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%s: %w: %w", op, roster.ErrNotAuthorized, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
