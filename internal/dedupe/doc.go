// Package dedupe drops platform events that are delivered more than once.
//
// Matrix /sync can hand the same event to the bot again after a reconnect or
// a token rollback. The adapter keys the cache by event ID; a key seen within
// the TTL is reported as a duplicate. The cache is bounded and evicts the
// oldest keys first. Expired keys are purged lazily on insert, so no
// background goroutine is needed.
package dedupe
