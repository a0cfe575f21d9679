// ABOUTME: Reconciliation engine: reaction events in, roster and topic edits out
// ABOUTME: Owns status state and enforces one status selection per member

package roster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"

	"github.com/2389/modclock/internal/render"
	"github.com/2389/modclock/internal/status"
)

// SetupResult tells the invoking user what Setup did.
type SetupResult int

const (
	// SetupCreated means a new roster message was posted.
	SetupCreated SetupResult = iota + 1

	// SetupRefreshed means the existing roster message was re-rendered.
	SetupRefreshed
)

// Message returns the confirmation shown to the invoking user.
func (r SetupResult) Message() string {
	switch r {
	case SetupCreated:
		return "Roster message created and controls added."
	case SetupRefreshed:
		return "Roster message already exists; refreshed its content."
	default:
		return ""
	}
}

// TopicNotifier receives topic change hints. TopicScheduler implements it.
type TopicNotifier interface {
	MarkDirty(guild status.GuildID)
	FlushNow(ctx context.Context, guild status.GuildID)
}

// Options configures an Engine.
type Options struct {
	// Renderer builds topic and roster text. Defaults to render.New("").
	Renderer *render.Renderer

	// TopicFollowsReactions marks the topic dirty on every reaction-driven change.
	TopicFollowsReactions bool

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Engine reconciles member reactions with the roster message and channel topic.
type Engine struct {
	platform Platform
	store    *status.Store
	registry *status.Registry
	topics   *status.TopicChannels
	renderer *render.Renderer
	locks    guildLocks

	topicNotifier         TopicNotifier
	topicFollowsReactions bool

	logger *slog.Logger
}

// New creates an Engine with empty state.
func New(platform Platform, opts Options) *Engine {
	if opts.Renderer == nil {
		opts.Renderer = render.New("")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Engine{
		platform:              platform,
		store:                 status.NewStore(),
		registry:              status.NewRegistry(),
		topics:                status.NewTopicChannels(),
		renderer:              opts.Renderer,
		topicFollowsReactions: opts.TopicFollowsReactions,
		logger:                opts.Logger.With("component", "engine"),
	}
}

// SetTopicNotifier wires the topic scheduler. Must be called before events flow.
func (e *Engine) SetTopicNotifier(n TopicNotifier) {
	e.topicNotifier = n
}

// Status returns a member's current status.
func (e *Engine) Status(guild status.GuildID, user status.UserID) (status.Status, bool) {
	return e.store.Get(guild, user)
}

// Anchor returns the guild's live roster anchor.
func (e *Engine) Anchor(guild status.GuildID) (status.Anchor, bool) {
	return e.registry.Get(guild)
}

// Setup posts a roster message in channel, or refreshes the guild's existing one
// when it is still reachable.
func (e *Engine) Setup(ctx context.Context, guild status.GuildID, channel status.ChannelID) (SetupResult, error) {
	unlock := e.locks.lock(guild)
	defer unlock()

	log := e.traceLogger("setup", guild).With("channel", channel)

	if anchor, ok := e.registry.Get(guild); ok {
		_, err := e.platform.FetchMessage(ctx, anchor.Channel, anchor.Message)
		switch {
		case err == nil:
			if err := e.platform.EditMessage(ctx, anchor.Channel, anchor.Message, e.rosterText(ctx, guild)); err != nil {
				return 0, fmt.Errorf("refreshing roster message: %w", err)
			}
			log.Info("roster refreshed", "message", anchor.Message)
			return SetupRefreshed, nil
		case errors.Is(err, ErrMessageNotFound), errors.Is(err, ErrChannelUnavailable):
			log.Info("previous roster anchor is gone, creating a new one",
				"old_channel", anchor.Channel,
				"old_message", anchor.Message)
		default:
			return 0, fmt.Errorf("fetching roster message: %w", err)
		}
	}

	msgID, err := e.platform.SendMessage(ctx, channel, e.rosterText(ctx, guild))
	if err != nil {
		return 0, fmt.Errorf("sending roster message: %w", err)
	}
	e.registry.Put(guild, channel, msgID)

	for _, emoji := range status.Selectors() {
		if err := e.platform.AddReaction(ctx, channel, msgID, emoji); err != nil {
			log.Warn("failed to add selector reaction", "message", msgID, "emoji", emoji, "error", err)
		}
	}

	log.Info("roster created", "message", msgID)
	return SetupCreated, nil
}

// HandleReactionAdded applies a selector reaction on the roster message.
// Failures are logged, never returned.
func (e *Engine) HandleReactionAdded(ctx context.Context, ev ReactionEvent) {
	if ev.IsSelf {
		return
	}

	unlock := e.locks.lock(ev.Guild)
	defer unlock()

	anchor, ok := e.relevantAnchor(ev)
	if !ok {
		return
	}
	st, ok := status.FromEmoji(ev.Emoji)
	if !ok {
		return
	}

	log := e.traceLogger("reaction_added", ev.Guild).With("user", ev.User, "status", st.String())

	e.store.Set(ev.Guild, ev.User, st)
	e.stripOtherSelectors(ctx, log, anchor, ev.User, st)
	e.editRoster(ctx, log, ev.Guild, anchor)

	if e.topicFollowsReactions {
		e.markTopicDirty(ev.Guild)
	}
	log.Debug("status selected")
}

// HandleReactionRemoved sets a member to Away once they hold none of the
// selector reactions. Failures are logged, never returned.
func (e *Engine) HandleReactionRemoved(ctx context.Context, ev ReactionEvent) {
	if ev.IsSelf || !status.IsSelector(ev.Emoji) {
		return
	}

	unlock := e.locks.lock(ev.Guild)
	defer unlock()

	anchor, ok := e.relevantAnchor(ev)
	if !ok {
		return
	}

	log := e.traceLogger("reaction_removed", ev.Guild).With("user", ev.User, "emoji", ev.Emoji)

	holds, err := e.holdsSelector(ctx, anchor, ev.User)
	if err != nil {
		log.Warn("failed to inspect roster reactions", "message", anchor.Message, "error", err)
		return
	}
	if holds {
		// Switching: the matching add event sets the status.
		return
	}

	e.store.Set(ev.Guild, ev.User, status.Away)
	e.editRoster(ctx, log, ev.Guild, anchor)

	if e.topicFollowsReactions {
		e.markTopicDirty(ev.Guild)
	}
	log.Debug("all selectors retracted, defaulted to away")
}

// SetStatus sets a member's status from a command. The roster and its
// reactions are brought in line on a best-effort basis; the topic refresh is
// attempted right away when the topic rate limit allows.
func (e *Engine) SetStatus(ctx context.Context, guild status.GuildID, user status.UserID, st status.Status) error {
	if !st.Valid() {
		return fmt.Errorf("invalid status %d", st)
	}

	unlock := e.locks.lock(guild)
	log := e.traceLogger("set_status", guild).With("user", user, "status", st.String())

	e.store.Set(guild, user, st)
	if anchor, ok := e.registry.Get(guild); ok {
		e.stripOtherSelectors(ctx, log, anchor, user, st)
		e.editRoster(ctx, log, guild, anchor)
	}
	unlock()

	if _, ok := e.topics.Get(guild); !ok {
		return nil
	}
	if e.topicNotifier != nil {
		e.topicNotifier.FlushNow(ctx, guild)
		return nil
	}
	if err := e.RefreshTopic(ctx, guild); err != nil {
		log.Warn("failed to refresh topic", "error", err)
	}
	return nil
}

// SetStatusChannel makes channel the guild's topic mirror and renders it now.
func (e *Engine) SetStatusChannel(ctx context.Context, guild status.GuildID, channel status.ChannelID) error {
	e.topics.Put(guild, channel)
	return e.RefreshTopic(ctx, guild)
}

// RefreshTopic re-renders the guild's topic channel. It is a no-op when no
// topic channel is configured.
func (e *Engine) RefreshTopic(ctx context.Context, guild status.GuildID) error {
	unlock := e.locks.lock(guild)
	defer unlock()

	channel, ok := e.topics.Get(guild)
	if !ok {
		return nil
	}

	text := e.renderer.Topic(e.store.Snapshot(guild), e.resolver(ctx, guild))
	if err := e.platform.EditChannelTopic(ctx, channel, text); err != nil {
		return fmt.Errorf("editing channel topic: %w", err)
	}
	e.logger.Debug("topic refreshed", "guild", guild, "channel", channel)
	return nil
}

// relevantAnchor returns the guild's anchor when ev targets it.
func (e *Engine) relevantAnchor(ev ReactionEvent) (status.Anchor, bool) {
	anchor, ok := e.registry.Get(ev.Guild)
	if !ok || anchor.Message != ev.Message {
		return status.Anchor{}, false
	}
	return anchor, true
}

// stripOtherSelectors removes the user's selector reactions other than keep's.
func (e *Engine) stripOtherSelectors(ctx context.Context, log *slog.Logger, anchor status.Anchor, user status.UserID, keep status.Status) {
	for _, emoji := range status.Selectors() {
		if emoji == keep.Emoji() {
			continue
		}
		if err := e.platform.RemoveReaction(ctx, anchor.Channel, anchor.Message, emoji, user); err != nil {
			log.Warn("failed to remove competing reaction",
				"message", anchor.Message,
				"emoji", emoji,
				"error", err)
		}
	}
}

// holdsSelector reports whether user still has any selector reaction on the anchor.
func (e *Engine) holdsSelector(ctx context.Context, anchor status.Anchor, user status.UserID) (bool, error) {
	for _, emoji := range status.Selectors() {
		users, err := e.platform.ListReactionUsers(ctx, anchor.Channel, anchor.Message, emoji)
		if err != nil {
			return false, fmt.Errorf("listing %s reactions: %w", emoji, err)
		}
		if slices.Contains(users, user) {
			return true, nil
		}
	}
	return false, nil
}

func (e *Engine) editRoster(ctx context.Context, log *slog.Logger, guild status.GuildID, anchor status.Anchor) {
	if err := e.platform.EditMessage(ctx, anchor.Channel, anchor.Message, e.rosterText(ctx, guild)); err != nil {
		log.Warn("failed to edit roster message",
			"channel", anchor.Channel,
			"message", anchor.Message,
			"error", err)
	}
}

func (e *Engine) rosterText(ctx context.Context, guild status.GuildID) string {
	return e.renderer.Roster(e.store.Snapshot(guild), e.resolver(ctx, guild))
}

func (e *Engine) resolver(ctx context.Context, guild status.GuildID) render.NameResolver {
	return func(user status.UserID) (string, bool) {
		return e.platform.MemberName(ctx, guild, user)
	}
}

func (e *Engine) markTopicDirty(guild status.GuildID) {
	if e.topicNotifier != nil {
		e.topicNotifier.MarkDirty(guild)
	}
}

// traceLogger tags one trigger's log lines with a shared trace ID.
func (e *Engine) traceLogger(trigger string, guild status.GuildID) *slog.Logger {
	return e.logger.With("trace", uuid.NewString(), "trigger", trigger, "guild", guild)
}
