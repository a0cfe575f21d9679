// Package matrix runs the mod list in Matrix rooms through mautrix.
//
// # Mapping
//
// A room plays the part of both guild and channel, an event ID identifies a
// message, and an MXID identifies a member. The roster is an m.notice whose
// edits are m.replace relations carrying goldmark-rendered HTML.
//
// # Reactions
//
// Adding a status is an m.reaction annotation on the roster event. Matrix has
// no "reaction removed" event, only a redaction of the reaction event, so the
// adapter keeps a bounded index of reaction event IDs it has seen. Redactions
// of reactions outside that index are ignored.
//
// Reaction users are listed through the relations API. m.relates_to is read
// from the raw content so reactions sent in encrypted rooms count too.
//
// # Commands
//
// Text messages starting with the command prefix (default "!clock"):
//
//	!clock setup            post or refresh the roster message in this room
//	!clock channel [room]   mirror statuses into a room topic (default: this room)
//	!clock in               set yourself to Modding
//	!clock break            set yourself to Break
//	!clock out              set yourself to Away
//
// # Encryption
//
// When matrix.recovery_key is set the bot joins encrypted rooms with a
// cryptohelper backed by SQLite and verifies itself with the recovery key.
package matrix
