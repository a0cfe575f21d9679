// ABOUTME: Per-guild mutexes serializing read-modify-write cycles
// ABOUTME: Lazily creates one mutex per guild; guilds never contend with each other

package roster

import (
	"sync"

	"github.com/2389/modclock/internal/status"
)

// guildLocks hands out one mutex per guild. The zero value is ready to use.
type guildLocks struct {
	mu    sync.Mutex
	locks map[status.GuildID]*sync.Mutex
}

// lock blocks until the guild's mutex is held and returns its unlock func.
func (l *guildLocks) lock(guild status.GuildID) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[status.GuildID]*sync.Mutex)
	}
	m, ok := l.locks[guild]
	if !ok {
		m = &sync.Mutex{}
		l.locks[guild] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
