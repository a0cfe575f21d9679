// ABOUTME: In-memory Platform implementation for testing
// ABOUTME: Tracks messages, reactions, topics and members; injects per-operation failures

package roster

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/2389/modclock/internal/status"
)

// Operation names accepted by MockPlatform.Fail.
const (
	OpSendMessage       = "SendMessage"
	OpEditMessage       = "EditMessage"
	OpFetchMessage      = "FetchMessage"
	OpAddReaction       = "AddReaction"
	OpRemoveReaction    = "RemoveReaction"
	OpListReactionUsers = "ListReactionUsers"
	OpEditChannelTopic  = "EditChannelTopic"
)

type mockMessage struct {
	channel   status.ChannelID
	text      string
	reactions map[string][]status.UserID // emoji -> users in reaction order
}

// MockPlatform is an in-memory Platform for tests.
type MockPlatform struct {
	mu       sync.Mutex
	botID    status.UserID
	nextID   int
	messages map[status.MessageID]*mockMessage
	topics   map[status.ChannelID]string
	members  map[status.GuildID]map[status.UserID]string
	failures map[string]error
	calls    map[string]int
}

// NewMockPlatform creates a MockPlatform whose own reactions use botID.
func NewMockPlatform(botID status.UserID) *MockPlatform {
	return &MockPlatform{
		botID:    botID,
		messages: make(map[status.MessageID]*mockMessage),
		topics:   make(map[status.ChannelID]string),
		members:  make(map[status.GuildID]map[status.UserID]string),
		failures: make(map[string]error),
		calls:    make(map[string]int),
	}
}

// SetMember registers a guild member's display name.
func (m *MockPlatform) SetMember(guild status.GuildID, user status.UserID, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.members[guild] == nil {
		m.members[guild] = make(map[status.UserID]string)
	}
	m.members[guild][user] = name
}

// RemoveMember makes a user unresolvable, as if they left the guild.
func (m *MockPlatform) RemoveMember(guild status.GuildID, user status.UserID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.members[guild], user)
}

// Fail makes every later call to op return err. A nil err clears it.
func (m *MockPlatform) Fail(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, op)
		return
	}
	m.failures[op] = err
}

// Calls returns how many times op was invoked.
func (m *MockPlatform) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// DeleteMessage removes a message, as a moderator would.
func (m *MockPlatform) DeleteMessage(message status.MessageID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.messages, message)
}

// Text returns a message's current content.
func (m *MockPlatform) Text(message status.MessageID) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[message]
	if !ok {
		return "", false
	}
	return msg.text, true
}

// MessageCount returns how many messages exist.
func (m *MockPlatform) MessageCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages)
}

// Topic returns a channel's current topic.
func (m *MockPlatform) Topic(channel status.ChannelID) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.topics[channel]
}

// React records a user's reaction without going through the engine.
func (m *MockPlatform) React(message status.MessageID, emoji string, user status.UserID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if msg, ok := m.messages[message]; ok {
		m.addReactionLocked(msg, emoji, user)
	}
}

// Unreact removes a user's reaction without going through the engine.
func (m *MockPlatform) Unreact(message status.MessageID, emoji string, user status.UserID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if msg, ok := m.messages[message]; ok {
		m.removeReactionLocked(msg, emoji, user)
	}
}

// Reactions returns the emoji a user currently holds on a message, in selector order.
func (m *MockPlatform) Reactions(message status.MessageID, user status.UserID) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[message]
	if !ok {
		return nil
	}
	var out []string
	for _, emoji := range status.Selectors() {
		if slices.Contains(msg.reactions[emoji], user) {
			out = append(out, emoji)
		}
	}
	return out
}

// SendMessage posts a new message.
func (m *MockPlatform) SendMessage(_ context.Context, channel status.ChannelID, text string) (status.MessageID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.beginLocked(OpSendMessage); err != nil {
		return "", err
	}
	m.nextID++
	id := status.MessageID(fmt.Sprintf("m%d", m.nextID))
	m.messages[id] = &mockMessage{
		channel:   channel,
		text:      text,
		reactions: make(map[string][]status.UserID),
	}
	return id, nil
}

// EditMessage replaces a message's content.
func (m *MockPlatform) EditMessage(_ context.Context, channel status.ChannelID, message status.MessageID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.beginLocked(OpEditMessage); err != nil {
		return err
	}
	msg, err := m.lookupLocked(channel, message)
	if err != nil {
		return err
	}
	msg.text = text
	return nil
}

// FetchMessage returns a message.
func (m *MockPlatform) FetchMessage(_ context.Context, channel status.ChannelID, message status.MessageID) (*Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.beginLocked(OpFetchMessage); err != nil {
		return nil, err
	}
	msg, err := m.lookupLocked(channel, message)
	if err != nil {
		return nil, err
	}
	return &Message{ID: message, Channel: channel, Content: msg.text}, nil
}

// AddReaction reacts as the bot.
func (m *MockPlatform) AddReaction(_ context.Context, channel status.ChannelID, message status.MessageID, emoji string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.beginLocked(OpAddReaction); err != nil {
		return err
	}
	msg, err := m.lookupLocked(channel, message)
	if err != nil {
		return err
	}
	m.addReactionLocked(msg, emoji, m.botID)
	return nil
}

// RemoveReaction removes a user's reaction. Missing reactions are a no-op.
func (m *MockPlatform) RemoveReaction(_ context.Context, channel status.ChannelID, message status.MessageID, emoji string, user status.UserID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.beginLocked(OpRemoveReaction); err != nil {
		return err
	}
	msg, err := m.lookupLocked(channel, message)
	if err != nil {
		return err
	}
	m.removeReactionLocked(msg, emoji, user)
	return nil
}

// ListReactionUsers returns the users holding emoji on a message.
func (m *MockPlatform) ListReactionUsers(_ context.Context, channel status.ChannelID, message status.MessageID, emoji string) ([]status.UserID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.beginLocked(OpListReactionUsers); err != nil {
		return nil, err
	}
	msg, err := m.lookupLocked(channel, message)
	if err != nil {
		return nil, err
	}
	return slices.Clone(msg.reactions[emoji]), nil
}

// EditChannelTopic sets a channel topic.
func (m *MockPlatform) EditChannelTopic(_ context.Context, channel status.ChannelID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.beginLocked(OpEditChannelTopic); err != nil {
		return err
	}
	m.topics[channel] = text
	return nil
}

// MemberName resolves a registered member.
func (m *MockPlatform) MemberName(_ context.Context, guild status.GuildID, user status.UserID) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	name, ok := m.members[guild][user]
	return name, ok
}

// beginLocked counts the call and returns any injected failure.
func (m *MockPlatform) beginLocked(op string) error {
	m.calls[op]++
	return m.failures[op]
}

func (m *MockPlatform) lookupLocked(channel status.ChannelID, message status.MessageID) (*mockMessage, error) {
	msg, ok := m.messages[message]
	if !ok || msg.channel != channel {
		return nil, fmt.Errorf("message %s in %s: %w", message, channel, ErrMessageNotFound)
	}
	return msg, nil
}

func (m *MockPlatform) addReactionLocked(msg *mockMessage, emoji string, user status.UserID) {
	if slices.Contains(msg.reactions[emoji], user) {
		return
	}
	msg.reactions[emoji] = append(msg.reactions[emoji], user)
}

func (m *MockPlatform) removeReactionLocked(msg *mockMessage, emoji string, user status.UserID) {
	users := msg.reactions[emoji]
	if i := slices.Index(users, user); i >= 0 {
		msg.reactions[emoji] = slices.Delete(users, i, i+1)
	}
}
