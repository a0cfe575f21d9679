// Package status holds the in-memory state behind a guild's status board.
//
// # Overview
//
// Three structures live here, all partitioned by guild:
//
//   - Store: user -> Status, iterated in first-set order
//   - Registry: the one live roster anchor (channel + message) per guild
//   - TopicChannels: the channel whose topic mirrors the roster, per guild
//
// None of them perform I/O. They are safe for concurrent use, but callers that
// need read-modify-write atomicity across several calls (the reconciliation
// engine) serialize per guild on their own.
//
// # Statuses and Emoji
//
// A user is in exactly one of Modding, Break or Away, or has no entry at all.
// Each status has a selector emoji used on the roster message:
//
//	🟢 Modding
//	☕ Break
//	⛔ Away
//
// Selectors returns them in the order they are attached to a new roster.
//
// # Lifetime
//
// Entries are created on first selection and never expire. A full retraction
// sets Away rather than deleting the entry. Everything is lost on restart.
package status
