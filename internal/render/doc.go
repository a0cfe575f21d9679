// Package render turns a guild's status snapshot into text.
//
// Two views exist. The topic is a single line meant for a channel topic and is
// clipped to the platform's 1024 character limit:
//
//	🕒 Mod List • 🟢Modding: Alice | ☕Break: ~ | ⛔Away: Bob • 14:05 UTC
//
// The roster is the multi-line body of the pinned status message:
//
//	**🕒 Mod List**
//	-------------------
//	🟢 Modding: Alice
//	☕ Break: —
//	⛔ Away: Bob
//	-------------------
//	*Updated 14:05 UTC*
//
// Users who can no longer be resolved (they left the guild) are dropped from the
// topic but shown as a mention placeholder in the roster. Within each status,
// users appear in the order they first picked a status.
//
// Timestamps come from the Renderer's clock at render time, never from the
// event that caused the render.
package render
