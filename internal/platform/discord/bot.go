// ABOUTME: Discord gateway session: reaction events and clock_* slash commands
// ABOUTME: Registers commands on ready and answers interactions ephemerally

package discord

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/2389/modclock/internal/config"
	"github.com/2389/modclock/internal/roster"
	"github.com/2389/modclock/internal/status"
)

// slashNames are the registered slash command names. The engine's verbs are
// shared with Matrix, so Discord names are mapped explicitly.
var slashNames = map[roster.Command]string{
	roster.CommandSetup:      "clock_setup",
	roster.CommandSetChannel: "clock_setchannel",
	roster.CommandIn:         "clock_in",
	roster.CommandBreak:      "clock_break",
	roster.CommandOut:        "clock_out",
}

// commandForSlash returns the engine command a slash command name invokes.
func commandForSlash(name string) (roster.Command, bool) {
	for cmd, slash := range slashNames {
		if slash == name {
			return cmd, true
		}
	}
	return "", false
}

// handlerTimeout bounds the platform calls one gateway event may cause.
const handlerTimeout = 30 * time.Second

// Intents the bot subscribes to. GuildMembers keeps display names cached.
const intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsGuildMessageReactions |
	discordgo.IntentsGuildMembers

// Bot connects a Discord session to the roster engine.
type Bot struct {
	config  config.DiscordConfig
	session *discordgo.Session
	adapter *Adapter
	engine  *roster.Engine
	logger  *slog.Logger

	ctx        context.Context
	registered atomic.Bool

	// Lookups through the session; replaced in tests.
	lookupChannel  func(channelID string) (*discordgo.Channel, error)
	botPermissions func(channelID string) (int64, error)
}

// NewBot creates a Bot. The session is opened by Run.
func NewBot(cfg config.DiscordConfig, logger *slog.Logger) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("creating discord session: %w", err)
	}
	session.Identify.Intents = intents

	b := &Bot{
		config:  cfg,
		session: session,
		adapter: NewAdapter(session),
		logger:  logger.With("component", "discord"),
		ctx:     context.Background(),
	}
	b.lookupChannel = func(channelID string) (*discordgo.Channel, error) {
		if ch, err := session.State.Channel(channelID); err == nil {
			return ch, nil
		}
		return session.Channel(channelID)
	}
	b.botPermissions = func(channelID string) (int64, error) {
		return session.UserChannelPermissions(b.selfID(), channelID)
	}
	return b, nil
}

// Platform returns the REST adapter the engine should use.
func (b *Bot) Platform() roster.Platform {
	return b.adapter
}

// Run opens the gateway and feeds engine until ctx is cancelled.
func (b *Bot) Run(ctx context.Context, engine *roster.Engine) error {
	b.engine = engine
	b.ctx = ctx

	removers := []func(){
		b.session.AddHandler(b.onReady),
		b.session.AddHandler(b.onReactionAdd),
		b.session.AddHandler(b.onReactionRemove),
		b.session.AddHandler(b.onInteraction),
	}
	defer func() {
		for _, remove := range removers {
			remove()
		}
	}()

	b.logger.Info("connecting to discord gateway")
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("opening discord session: %w", err)
	}
	defer func() {
		if err := b.session.Close(); err != nil {
			b.logger.Warn("closing discord session", "error", err)
		}
	}()

	<-ctx.Done()
	b.logger.Info("shutting down discord bot")
	return nil
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	b.logger.Info("logged in", "user", r.User.Username, "guilds", len(r.Guilds))

	if b.registered.Load() {
		return
	}
	appID := r.User.ID
	if r.Application != nil && r.Application.ID != "" {
		appID = r.Application.ID
	}

	ctx, cancel := context.WithTimeout(b.ctx, handlerTimeout)
	defer cancel()
	cmds, err := s.ApplicationCommandBulkOverwrite(appID, b.config.GuildID, applicationCommands(), discordgo.WithContext(ctx))
	if err != nil {
		b.logger.Error("command sync failed", "guild", b.config.GuildID, "error", err)
		return
	}
	b.registered.Store(true)
	b.logger.Info("slash commands registered", "count", len(cmds), "guild", b.config.GuildID)
}

func (b *Bot) onReactionAdd(_ *discordgo.Session, r *discordgo.MessageReactionAdd) {
	ev, ok := b.reactionEvent(r.MessageReaction)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(b.ctx, handlerTimeout)
	defer cancel()
	b.engine.HandleReactionAdded(ctx, ev)
}

func (b *Bot) onReactionRemove(_ *discordgo.Session, r *discordgo.MessageReactionRemove) {
	ev, ok := b.reactionEvent(r.MessageReaction)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(b.ctx, handlerTimeout)
	defer cancel()
	b.engine.HandleReactionRemoved(ctx, ev)
}

// reactionEvent converts a gateway reaction. DM reactions and custom emoji are dropped.
func (b *Bot) reactionEvent(r *discordgo.MessageReaction) (roster.ReactionEvent, bool) {
	if r == nil || r.GuildID == "" || r.Emoji.ID != "" {
		return roster.ReactionEvent{}, false
	}
	return roster.ReactionEvent{
		Guild:   status.GuildID(r.GuildID),
		Channel: status.ChannelID(r.ChannelID),
		Message: status.MessageID(r.MessageID),
		User:    status.UserID(r.UserID),
		Emoji:   r.Emoji.Name,
		IsSelf:  r.UserID == b.selfID(),
	}, true
}

func (b *Bot) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	if _, ok := commandForSlash(i.ApplicationCommandData().Name); !ok {
		return
	}

	ctx, cancel := context.WithTimeout(b.ctx, handlerTimeout)
	defer cancel()

	// Setup can take longer than the three seconds Discord allows for a reply.
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	}, discordgo.WithContext(ctx))
	if err != nil {
		b.logger.Warn("failed to acknowledge interaction", "command", i.ApplicationCommandData().Name, "error", err)
		return
	}

	reply := b.commandReply(ctx, i.Interaction)
	if _, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{Content: &reply}, discordgo.WithContext(ctx)); err != nil {
		b.logger.Warn("failed to reply to interaction", "command", i.ApplicationCommandData().Name, "error", err)
	}
}

// commandReply runs a slash command and returns the text to show the invoker.
func (b *Bot) commandReply(ctx context.Context, i *discordgo.Interaction) string {
	req := commandRequest(i)

	if req.Guild == "" {
		return roster.ReplyGuildOnly
	}

	switch req.Command {
	case roster.CommandSetup:
		ch, err := b.lookupChannel(string(req.Channel))
		if err != nil || !isTextChannel(ch) {
			return roster.ReplyGuildOnly
		}
	case roster.CommandSetChannel:
		if req.Target != "" {
			perms, err := b.botPermissions(string(req.Target))
			if err != nil {
				b.logger.Warn("failed to read channel permissions", "channel", req.Target, "error", err)
			}
			if err != nil || perms&discordgo.PermissionManageChannels == 0 {
				return roster.ReplyNeedManageChannels
			}
		}
	}

	b.logger.Info("command", "command", string(req.Command), "guild", req.Guild, "user", req.User)
	return b.engine.Execute(ctx, req)
}

// commandRequest translates an application command interaction.
func commandRequest(i *discordgo.Interaction) roster.CommandRequest {
	data := i.ApplicationCommandData()
	cmd, ok := commandForSlash(data.Name)
	if !ok {
		cmd = roster.Command(data.Name)
	}
	req := roster.CommandRequest{
		Command: cmd,
		Guild:   status.GuildID(i.GuildID),
		Channel: status.ChannelID(i.ChannelID),
	}
	if i.Member != nil && i.Member.User != nil {
		req.User = status.UserID(i.Member.User.ID)
	} else if i.User != nil {
		req.User = status.UserID(i.User.ID)
	}
	for _, opt := range data.Options {
		if opt.Name == "channel" {
			if id, ok := opt.Value.(string); ok {
				req.Target = status.ChannelID(id)
			}
		}
	}
	return req
}

func isTextChannel(ch *discordgo.Channel) bool {
	if ch == nil || ch.GuildID == "" {
		return false
	}
	return ch.Type == discordgo.ChannelTypeGuildText || ch.Type == discordgo.ChannelTypeGuildNews
}

func (b *Bot) selfID() string {
	b.session.State.RLock()
	defer b.session.State.RUnlock()
	if b.session.State.User == nil {
		return ""
	}
	return b.session.State.User.ID
}

// applicationCommands describes the slash commands for bulk registration.
func applicationCommands() []*discordgo.ApplicationCommand {
	manageChannels := int64(discordgo.PermissionManageChannels)
	dm := false

	return []*discordgo.ApplicationCommand{
		{
			Name:                     slashNames[roster.CommandSetup],
			Description:              "Create the roster message here and add reaction controls.",
			DefaultMemberPermissions: &manageChannels,
			DMPermission:             &dm,
		},
		{
			Name:                     slashNames[roster.CommandSetChannel],
			Description:              "Mirror mod statuses into a channel's topic.",
			DefaultMemberPermissions: &manageChannels,
			DMPermission:             &dm,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:         discordgo.ApplicationCommandOptionChannel,
					Name:         "channel",
					Description:  "Channel whose topic shows the statuses",
					Required:     true,
					ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
				},
			},
		},
		{
			Name:         slashNames[roster.CommandIn],
			Description:  "Set yourself to Modding.",
			DMPermission: &dm,
		},
		{
			Name:         slashNames[roster.CommandBreak],
			Description:  "Set yourself to Break.",
			DMPermission: &dm,
		},
		{
			Name:         slashNames[roster.CommandOut],
			Description:  "Set yourself to Away.",
			DMPermission: &dm,
		},
	}
}
