// ABOUTME: TTL- and size-bounded set of recently seen event keys
// ABOUTME: Lets adapters drop replayed platform events before they reach the engine

package dedupe

import (
	"container/list"
	"sync"
	"time"
)

// entry is one remembered key and when it was marked.
type entry struct {
	key string
	at  time.Time
}

// Cache remembers keys for a TTL. Keys are kept in mark order (oldest at
// front), which is also timestamp order, so expiry and eviction both pop from
// the front.
type Cache struct {
	mu      sync.Mutex
	seen    map[string]*list.Element
	order   *list.List
	ttl     time.Duration
	maxSize int
	now     func() time.Time
}

// New creates a cache holding at most maxSize keys for ttl each.
func New(ttl time.Duration, maxSize int) *Cache {
	if maxSize < 1 {
		maxSize = 1
	}
	return &Cache{
		seen:    make(map[string]*list.Element),
		order:   list.New(),
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
	}
}

// Seen reports whether key was already marked within the TTL. A new or
// expired key is marked and false is returned, atomically.
func (c *Cache) Seen(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.purgeLocked(now)

	if elem, ok := c.seen[key]; ok {
		if now.Sub(elem.Value.(*entry).at) < c.ttl {
			return true
		}
		c.removeLocked(elem)
	}

	if len(c.seen) >= c.maxSize {
		c.removeLocked(c.order.Front())
	}
	c.seen[key] = c.order.PushBack(&entry{key: key, at: now})
	return false
}

// Len returns how many keys are remembered, including not yet purged ones.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}

// purgeLocked drops expired keys from the front. Must be called with mu held.
func (c *Cache) purgeLocked(now time.Time) {
	for front := c.order.Front(); front != nil; front = c.order.Front() {
		if now.Sub(front.Value.(*entry).at) < c.ttl {
			return
		}
		c.removeLocked(front)
	}
}

// removeLocked drops one element. Must be called with mu held.
func (c *Cache) removeLocked(elem *list.Element) {
	if elem == nil {
		return
	}
	c.order.Remove(elem)
	delete(c.seen, elem.Value.(*entry).key)
}
