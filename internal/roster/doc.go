// Package roster keeps a guild's status board consistent with its members'
// reaction choices.
//
// # Architecture
//
// The Engine owns the status Store, the anchor Registry and the topic channel
// map. Platform adapters feed it four kinds of trigger:
//
//   - Setup: create the roster message in a channel, or refresh the live one
//   - ReactionAdded: a member picked a status emoji on the roster message
//   - ReactionRemoved: a member took a reaction back
//   - SetStatus / SetStatusChannel: command-driven status and topic setup
//
// Each trigger reads the store, computes the new state, renders text and writes
// it back through the Platform interface. Work for one guild is serialized by a
// per-guild mutex so "read status, recompute, write roster" is atomic with
// respect to other events for that guild. Different guilds run in parallel.
//
// # Single Selection
//
// When a member adds one selector emoji, the engine removes their other two.
// Removal is best effort: the platform may deliver the resulting remove events
// in any order, and a transient flicker settles on the next event.
//
// Only removals of a selector emoji are considered. Removing any other
// reaction from the roster message leaves the member's status alone, even if
// they hold no selector at that moment.
//
// # Error Handling
//
// Reaction handlers never return errors. Platform failures are logged and the
// event is abandoned; the store was already updated, so the next event for the
// guild renders the right state. Setup, SetStatus and SetStatusChannel return
// errors so the command layer can tell the invoking user.
//
// Adapters translate platform failures into ErrMessageNotFound,
// ErrNotAuthorized and ErrChannelUnavailable.
//
// # Commands
//
// Engine.Execute serves the chat commands both front ends share (setup,
// channel, in, break, out) and turns errors into short replies, so the
// adapters only translate their native command shapes into a CommandRequest.
//
// # Topic
//
// Channel topics are rate limited hard on most platforms. Reaction-driven
// changes only mark a guild dirty; TopicScheduler flushes dirty guilds on a
// ticker through a per-guild token bucket.
//
// # Testing
//
// MockPlatform is an in-memory Platform that tracks messages, reactions and
// topics, and can inject a failure per operation:
//
//	p := roster.NewMockPlatform("bot")
//	e := roster.New(p, roster.Options{})
package roster
