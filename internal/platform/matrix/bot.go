// ABOUTME: Matrix sync loop feeding reactions, redactions and text commands to the engine
// ABOUTME: Drops replayed events by ID and limits handling to the allowed rooms

package matrix

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/2389/modclock/internal/config"
	"github.com/2389/modclock/internal/dedupe"
	"github.com/2389/modclock/internal/roster"
	"github.com/2389/modclock/internal/status"
)

// networkTimeout is the timeout for the Matrix API calls one event causes.
const networkTimeout = 30 * time.Second

// Seen-event cache bounds.
const (
	seenTTL     = time.Hour
	seenMaxSize = 10000
)

// Bot connects a Matrix client to the roster engine.
type Bot struct {
	config  config.MatrixConfig
	dataDir string
	client  *mautrix.Client
	adapter *Adapter
	engine  *roster.Engine
	seen    *dedupe.Cache
	logger  *slog.Logger

	ctx context.Context
}

// NewBot creates a Bot. dataDir holds the crypto store when encryption is on.
func NewBot(cfg config.MatrixConfig, dataDir string, logger *slog.Logger) (*Bot, error) {
	client, err := mautrix.NewClient(cfg.Homeserver, id.UserID(cfg.UserID), cfg.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("creating matrix client: %w", err)
	}
	logger = logger.With("component", "matrix")

	return &Bot{
		config:  cfg,
		dataDir: dataDir,
		client:  client,
		adapter: NewAdapter(client, logger),
		seen:    dedupe.New(seenTTL, seenMaxSize),
		logger:  logger,
		ctx:     context.Background(),
	}, nil
}

// Platform returns the adapter the engine should use.
func (b *Bot) Platform() roster.Platform {
	return b.adapter
}

// Mention renders an unresolved member as their raw MXID.
func Mention(user status.UserID) string {
	return string(user)
}

// Run syncs until ctx is cancelled.
func (b *Bot) Run(ctx context.Context, engine *roster.Engine) error {
	b.logger.Info("starting matrix bot",
		"homeserver", b.config.Homeserver,
		"user_id", b.config.UserID,
	)
	b.engine = engine

	var cancel context.CancelFunc
	b.ctx, cancel = context.WithCancel(ctx)
	defer cancel()

	if b.client.DeviceID == "" {
		whoami, err := b.client.Whoami(ctx)
		if err != nil {
			return fmt.Errorf("matrix whoami: %w", err)
		}
		b.client.DeviceID = whoami.DeviceID
	}

	if b.config.RecoveryKey != "" {
		crypto, err := SetupCrypto(ctx, b.client, b.config.UserID, b.config.RecoveryKey, b.dataDir, b.logger)
		if err != nil {
			return fmt.Errorf("setting up encryption: %w", err)
		}
		defer crypto.Close()
	} else {
		b.logger.Info("encryption disabled (no recovery key)")
	}

	syncer, ok := b.client.Syncer.(*mautrix.DefaultSyncer)
	if !ok {
		return fmt.Errorf("unexpected syncer type: %T", b.client.Syncer)
	}
	syncer.OnSync(b.client.DontProcessOldEvents)
	syncer.OnEventType(event.EventReaction, b.handleReaction)
	syncer.OnEventType(event.EventRedaction, b.handleRedaction)
	syncer.OnEventType(event.EventMessage, b.handleMessage)

	syncErr := make(chan error, 1)
	go func() {
		syncErr <- b.client.SyncWithContext(b.ctx)
	}()

	b.logger.Info("matrix bot running")

	select {
	case <-ctx.Done():
		b.logger.Info("shutting down matrix bot")
		cancel()
		return nil
	case err := <-syncErr:
		return fmt.Errorf("matrix sync failed: %w", err)
	}
}

func (b *Bot) handleReaction(_ context.Context, evt *event.Event) {
	if !b.accept(evt) {
		return
	}
	rel, ok := relatesTo(evt)
	if !ok || rel.Type != event.RelAnnotation {
		return
	}
	b.adapter.index.Put(evt.ID, reactionRef{
		Room:   evt.RoomID,
		Target: rel.EventID,
		Key:    rel.Key,
		Sender: evt.Sender,
	})

	ctx, cancel := context.WithTimeout(b.ctx, networkTimeout)
	defer cancel()
	b.engine.HandleReactionAdded(ctx, b.reactionEvent(evt.RoomID, rel.EventID, evt.Sender, rel.Key))
}

func (b *Bot) handleRedaction(_ context.Context, evt *event.Event) {
	if !b.accept(evt) {
		return
	}
	target := evt.Redacts
	if target == "" {
		target = evt.Content.AsRedaction().Redacts
	}
	ref, ok := b.adapter.index.Take(target)
	if !ok || ref.Room != evt.RoomID {
		return
	}

	ctx, cancel := context.WithTimeout(b.ctx, networkTimeout)
	defer cancel()
	b.engine.HandleReactionRemoved(ctx, b.reactionEvent(ref.Room, ref.Target, ref.Sender, ref.Key))
}

func (b *Bot) handleMessage(_ context.Context, evt *event.Event) {
	if evt.Sender == b.client.UserID || !b.accept(evt) {
		return
	}
	content, ok := evt.Content.Parsed.(*event.MessageEventContent)
	if !ok || content.MsgType != event.MsgText || content.RelatesTo.GetReplaceID() != "" {
		return
	}
	req, ok := parseCommand(b.config.CommandPrefix, content.Body)
	if !ok {
		return
	}
	req.Guild = status.GuildID(evt.RoomID)
	req.Channel = status.ChannelID(evt.RoomID)
	req.User = status.UserID(evt.Sender)
	if req.Command == roster.CommandSetChannel && req.Target == "" {
		req.Target = req.Channel
	}

	b.logger.Info("command", "command", string(req.Command), "room", evt.RoomID, "sender", evt.Sender)

	ctx, cancel := context.WithTimeout(b.ctx, networkTimeout)
	defer cancel()
	reply := matrixReply(b.engine.Execute(ctx, req))
	if _, err := b.adapter.SendMessage(ctx, req.Channel, reply); err != nil {
		b.logger.Warn("failed to send reply", "room", evt.RoomID, "error", err)
	}
}

// accept filters disallowed rooms and events already handled.
func (b *Bot) accept(evt *event.Event) bool {
	if !b.isRoomAllowed(evt.RoomID) {
		return false
	}
	return !b.seen.Seen(evt.ID.String())
}

func (b *Bot) isRoomAllowed(room id.RoomID) bool {
	if len(b.config.AllowedRooms) == 0 {
		return true
	}
	return slices.Contains(b.config.AllowedRooms, room.String())
}

func (b *Bot) reactionEvent(room id.RoomID, target id.EventID, sender id.UserID, key string) roster.ReactionEvent {
	return roster.ReactionEvent{
		Guild:   status.GuildID(room),
		Channel: status.ChannelID(room),
		Message: status.MessageID(target),
		User:    status.UserID(sender),
		Emoji:   key,
		IsSelf:  sender == b.client.UserID,
	}
}

// parseCommand splits "<prefix> <command> [room]". ok is false when body does
// not start with the prefix.
func parseCommand(prefix, body string) (roster.CommandRequest, bool) {
	body = strings.TrimSpace(body)
	if !strings.HasPrefix(body, prefix) {
		return roster.CommandRequest{}, false
	}
	rest := strings.TrimPrefix(body, prefix)
	// "!clockwork" is not "!clock work".
	if rest != "" && rest[0] != ' ' && rest[0] != '\t' {
		return roster.CommandRequest{}, false
	}

	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return roster.CommandRequest{Command: "help"}, true
	}
	req := roster.CommandRequest{Command: roster.Command(strings.ToLower(fields[0]))}
	if len(fields) > 1 {
		req.Target = status.ChannelID(fields[1])
	}
	return req, true
}

// matrixReply rewords replies that name Discord-only concepts.
func matrixReply(reply string) string {
	switch reply {
	case roster.ReplyNeedManageChannels:
		return "I need permission to change the topic in that room."
	case roster.ReplyGuildOnly:
		return "This command can only be used in a room."
	default:
		return reply
	}
}
