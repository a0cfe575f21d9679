// ABOUTME: Per-guild pointers to the live roster anchor and the topic channel
// ABOUTME: Plain overwrite-on-put maps guarded by a RWMutex

package status

import "sync"

// Anchor is the (channel, message) pair holding a guild's live roster.
type Anchor struct {
	Channel ChannelID
	Message MessageID
}

// Registry records the roster anchor for each guild.
type Registry struct {
	mu      sync.RWMutex
	anchors map[GuildID]Anchor
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{anchors: make(map[GuildID]Anchor)}
}

// Get returns the guild's anchor, if any.
func (r *Registry) Get(guild GuildID) (Anchor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.anchors[guild]
	return a, ok
}

// Put records the anchor unconditionally.
func (r *Registry) Put(guild GuildID, channel ChannelID, message MessageID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.anchors[guild] = Anchor{Channel: channel, Message: message}
}

// TopicChannels records which channel's topic mirrors each guild's roster.
type TopicChannels struct {
	mu       sync.RWMutex
	channels map[GuildID]ChannelID
}

// NewTopicChannels creates an empty TopicChannels.
func NewTopicChannels() *TopicChannels {
	return &TopicChannels{channels: make(map[GuildID]ChannelID)}
}

// Get returns the guild's topic channel, if configured.
func (t *TopicChannels) Get(guild GuildID) (ChannelID, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	c, ok := t.channels[guild]
	return c, ok
}

// Put sets the guild's topic channel.
func (t *TopicChannels) Put(guild GuildID, channel ChannelID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.channels[guild] = channel
}
