// ABOUTME: Per-guild user status map that remembers first-set order
// ABOUTME: Backs roster rendering; order is stable across updates to the same user

package status

import "sync"

// Entry is one user's status as seen in a snapshot.
type Entry struct {
	User   UserID
	Status Status
}

// guildStatuses keeps a guild's statuses plus the order users first appeared.
type guildStatuses struct {
	order  []UserID
	byUser map[UserID]Status
}

// Store maps guild -> user -> Status.
type Store struct {
	mu     sync.RWMutex
	guilds map[GuildID]*guildStatuses
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{guilds: make(map[GuildID]*guildStatuses)}
}

// Get returns the user's status in the guild. ok is false when unset.
func (s *Store) Get(guild GuildID, user UserID) (Status, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.guilds[guild]
	if !ok {
		return 0, false
	}
	st, ok := g.byUser[user]
	return st, ok
}

// Set inserts or overwrites the user's status. Overwrites keep the user's
// original position in snapshot order. Invalid statuses are ignored.
func (s *Store) Set(guild GuildID, user UserID, st Status) {
	if !st.Valid() {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.guilds[guild]
	if !ok {
		g = &guildStatuses{byUser: make(map[UserID]Status)}
		s.guilds[guild] = g
	}
	if _, exists := g.byUser[user]; !exists {
		g.order = append(g.order, user)
	}
	g.byUser[user] = st
}

// Snapshot returns a copy of the guild's entries in first-set order.
func (s *Store) Snapshot(guild GuildID) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.guilds[guild]
	if !ok {
		return nil
	}
	out := make([]Entry, 0, len(g.order))
	for _, u := range g.order {
		out = append(out, Entry{User: u, Status: g.byUser[u]})
	}
	return out
}
