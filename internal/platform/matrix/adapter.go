// ABOUTME: roster.Platform implementation over the Matrix client-server API
// ABOUTME: Roster edits via m.replace, reactions via annotations and redactions, topic via state

package matrix

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/2389/modclock/internal/render"
	"github.com/2389/modclock/internal/roster"
	"github.com/2389/modclock/internal/status"
)

// relationsPageSize is how many annotations are requested per page.
const relationsPageSize = 100

// Adapter implements roster.Platform with a mautrix client.
type Adapter struct {
	client *mautrix.Client
	index  *reactionIndex
	logger *slog.Logger
}

// NewAdapter wraps client. Reaction events it lists are recorded so later
// redactions of them can be recognised.
func NewAdapter(client *mautrix.Client, logger *slog.Logger) *Adapter {
	return &Adapter{
		client: client,
		index:  newReactionIndex(defaultIndexSize),
		logger: logger,
	}
}

// SendMessage posts text as an m.notice with an HTML rendering.
func (a *Adapter) SendMessage(ctx context.Context, channel status.ChannelID, text string) (status.MessageID, error) {
	resp, err := a.client.SendMessageEvent(ctx, id.RoomID(channel), event.EventMessage, a.notice(text))
	if err != nil {
		return "", mapError("sending message", err)
	}
	return status.MessageID(resp.EventID), nil
}

// EditMessage sends an m.replace edit of message.
func (a *Adapter) EditMessage(ctx context.Context, channel status.ChannelID, message status.MessageID, text string) error {
	content := a.notice(text)
	content.SetEdit(id.EventID(message))
	if _, err := a.client.SendMessageEvent(ctx, id.RoomID(channel), event.EventMessage, content); err != nil {
		return mapError("editing message", err)
	}
	return nil
}

// FetchMessage loads an event. Redacted events count as deleted.
func (a *Adapter) FetchMessage(ctx context.Context, channel status.ChannelID, message status.MessageID) (*roster.Message, error) {
	evt, err := a.client.GetEvent(ctx, id.RoomID(channel), id.EventID(message))
	if err != nil {
		return nil, mapError("fetching message", err)
	}
	if evt.Unsigned.RedactedBecause != nil {
		return nil, fmt.Errorf("fetching message %s: redacted: %w", message, roster.ErrMessageNotFound)
	}

	msg := &roster.Message{ID: status.MessageID(evt.ID), Channel: status.ChannelID(evt.RoomID)}
	if body, ok := evt.Content.Raw["body"].(string); ok {
		msg.Content = body
	}
	return msg, nil
}

// AddReaction annotates message with emoji as the bot.
func (a *Adapter) AddReaction(ctx context.Context, channel status.ChannelID, message status.MessageID, emoji string) error {
	resp, err := a.client.SendReaction(ctx, id.RoomID(channel), id.EventID(message), emoji)
	if err != nil {
		return mapError("adding reaction", err)
	}
	a.index.Put(resp.EventID, reactionRef{
		Room:   id.RoomID(channel),
		Target: id.EventID(message),
		Key:    emoji,
		Sender: a.client.UserID,
	})
	return nil
}

// RemoveReaction redacts user's emoji annotations on message. Redacting
// someone else's event needs the redact power level.
func (a *Adapter) RemoveReaction(ctx context.Context, channel status.ChannelID, message status.MessageID, emoji string, user status.UserID) error {
	reactions, err := a.annotations(ctx, id.RoomID(channel), id.EventID(message))
	if err != nil {
		return err
	}
	for _, r := range reactions {
		if r.ref.Key != emoji || r.ref.Sender != id.UserID(user) {
			continue
		}
		if _, err := a.client.RedactEvent(ctx, id.RoomID(channel), r.id, mautrix.ReqRedact{Reason: "status changed"}); err != nil {
			return mapError("removing reaction", err)
		}
	}
	return nil
}

// ListReactionUsers returns everyone with a live emoji annotation on message.
func (a *Adapter) ListReactionUsers(ctx context.Context, channel status.ChannelID, message status.MessageID, emoji string) ([]status.UserID, error) {
	reactions, err := a.annotations(ctx, id.RoomID(channel), id.EventID(message))
	if err != nil {
		return nil, err
	}
	var users []status.UserID
	for _, r := range reactions {
		u := status.UserID(r.ref.Sender)
		if r.ref.Key == emoji && !slices.Contains(users, u) {
			users = append(users, u)
		}
	}
	return users, nil
}

// EditChannelTopic replaces the room's m.room.topic state.
func (a *Adapter) EditChannelTopic(ctx context.Context, channel status.ChannelID, text string) error {
	if _, err := a.client.SendStateEvent(ctx, id.RoomID(channel), event.StateTopic, "", &event.TopicEventContent{Topic: text}); err != nil {
		return mapError("setting room topic", err)
	}
	return nil
}

// MemberName returns a joined member's display name, or the localpart when
// they have none set.
func (a *Adapter) MemberName(ctx context.Context, guild status.GuildID, user status.UserID) (string, bool) {
	var member event.MemberEventContent
	if err := a.client.StateEvent(ctx, id.RoomID(guild), event.StateMember, string(user), &member); err != nil {
		return "", false
	}
	return memberName(id.UserID(user), &member)
}

func memberName(user id.UserID, member *event.MemberEventContent) (string, bool) {
	if member.Membership != event.MembershipJoin {
		return "", false
	}
	if member.Displayname != "" {
		return member.Displayname, true
	}
	localpart, _, err := user.Parse()
	if err != nil || localpart == "" {
		return string(user), true
	}
	return localpart, true
}

type annotation struct {
	id  id.EventID
	ref reactionRef
}

// annotations pages through every annotation on message and indexes them.
func (a *Adapter) annotations(ctx context.Context, room id.RoomID, message id.EventID) ([]annotation, error) {
	var out []annotation
	req := &mautrix.ReqGetRelations{
		RelationType: event.RelAnnotation,
		Limit:        relationsPageSize,
	}
	for {
		resp, err := a.client.GetRelations(ctx, room, message, req)
		if err != nil {
			return nil, mapError("listing reactions", err)
		}
		for _, evt := range resp.Chunk {
			rel, ok := relatesTo(evt)
			if !ok || rel.Type != event.RelAnnotation || rel.EventID != message {
				continue
			}
			ref := reactionRef{Room: room, Target: message, Key: rel.Key, Sender: evt.Sender}
			a.index.Put(evt.ID, ref)
			out = append(out, annotation{id: evt.ID, ref: ref})
		}
		if resp.NextBatch == "" || len(resp.Chunk) == 0 {
			return out, nil
		}
		req.From = resp.NextBatch
	}
}

// relatesTo reads m.relates_to from the raw content. Encrypted events keep it
// in cleartext, so this works for both m.reaction and m.room.encrypted.
func relatesTo(evt *event.Event) (*event.RelatesTo, bool) {
	raw := evt.Content.VeryRaw
	if len(raw) == 0 {
		var err error
		if raw, err = json.Marshal(evt.Content.Raw); err != nil {
			return nil, false
		}
	}
	var content struct {
		RelatesTo *event.RelatesTo `json:"m.relates_to"`
	}
	if err := json.Unmarshal(raw, &content); err != nil || content.RelatesTo == nil {
		return nil, false
	}
	return content.RelatesTo, true
}

// notice builds an m.notice with a Markdown body and its HTML rendering.
func (a *Adapter) notice(text string) *event.MessageEventContent {
	content := &event.MessageEventContent{
		MsgType: event.MsgNotice,
		Body:    text,
	}
	formatted, err := render.HTML(text)
	if err != nil {
		a.logger.Debug("markdown rendering failed, sending plain body", "error", err)
		return content
	}
	content.Format = event.FormatHTML
	content.FormattedBody = formatted
	return content
}

// mapError wraps err with the roster sentinel matching its Matrix error code.
func mapError(op string, err error) error {
	switch {
	case errors.Is(err, mautrix.MNotFound):
		return fmt.Errorf("%s: %w: %w", op, roster.ErrMessageNotFound, err)
	case errors.Is(err, mautrix.MForbidden):
		return fmt.Errorf("%s: %w: %w", op, roster.ErrNotAuthorized, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
