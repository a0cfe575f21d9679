// ABOUTME: Opaque platform identifiers used to partition status state
// ABOUTME: Guild, channel, message and user IDs as distinct string types

package status

// GuildID identifies an independent server context (a Discord guild, a Matrix room).
type GuildID string

// ChannelID identifies a channel within a guild.
type ChannelID string

// MessageID identifies a message within a channel.
type MessageID string

// UserID identifies a platform user.
type UserID string
