// ABOUTME: Bounded index of reaction events for translating redactions
// ABOUTME: Remembers which message, emoji and sender each reaction event belongs to

package matrix

import (
	"sync"

	"maunium.net/go/mautrix/id"
)

// defaultIndexSize bounds how many reaction events are remembered.
const defaultIndexSize = 10000

// reactionRef describes one m.reaction event.
type reactionRef struct {
	Room   id.RoomID
	Target id.EventID
	Key    string
	Sender id.UserID
}

// reactionIndex maps reaction event IDs to what they reacted to. The oldest
// entries are forgotten first once the index is full.
type reactionIndex struct {
	mu      sync.Mutex
	entries map[id.EventID]reactionRef
	order   []id.EventID
	max     int
}

func newReactionIndex(max int) *reactionIndex {
	if max < 1 {
		max = 1
	}
	return &reactionIndex{
		entries: make(map[id.EventID]reactionRef),
		max:     max,
	}
}

// Put records a reaction event. Re-recording an ID keeps its original slot.
func (x *reactionIndex) Put(evt id.EventID, ref reactionRef) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if _, ok := x.entries[evt]; ok {
		x.entries[evt] = ref
		return
	}
	for len(x.order) >= x.max {
		delete(x.entries, x.order[0])
		x.order = x.order[1:]
	}
	x.entries[evt] = ref
	x.order = append(x.order, evt)
}

// Take returns and forgets the reaction a redaction points at.
func (x *reactionIndex) Take(evt id.EventID) (reactionRef, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()

	ref, ok := x.entries[evt]
	if !ok {
		return reactionRef{}, false
	}
	delete(x.entries, evt)
	for i, e := range x.order {
		if e == evt {
			x.order = append(x.order[:i], x.order[i+1:]...)
			break
		}
	}
	return ref, true
}

// Len returns the number of remembered reactions.
func (x *reactionIndex) Len() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.entries)
}
