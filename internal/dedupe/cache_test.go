// ABOUTME: Tests for the event dedupe cache
// ABOUTME: Validates duplicate detection, TTL expiry, size-bounded eviction and concurrency

package dedupe

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestCache(ttl time.Duration, size int) (*Cache, *time.Time) {
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := New(ttl, size)
	c.now = func() time.Time { return clock }
	return c, &clock
}

func TestCache_FirstSightingIsNew(t *testing.T) {
	c, _ := newTestCache(time.Minute, 10)

	assert.False(t, c.Seen("$evt1"))
	assert.True(t, c.Seen("$evt1"), "second sighting is a duplicate")
	assert.False(t, c.Seen("$evt2"))
}

func TestCache_ExpiresAfterTTL(t *testing.T) {
	c, clock := newTestCache(time.Minute, 10)

	c.Seen("$evt1")
	*clock = clock.Add(59 * time.Second)
	assert.True(t, c.Seen("$evt1"))

	*clock = clock.Add(2 * time.Second)
	assert.False(t, c.Seen("$evt1"), "expired key is new again")
	assert.True(t, c.Seen("$evt1"))
}

func TestCache_PurgesExpiredOnInsert(t *testing.T) {
	c, clock := newTestCache(time.Minute, 10)

	c.Seen("a")
	c.Seen("b")
	*clock = clock.Add(2 * time.Minute)
	c.Seen("c")

	assert.Equal(t, 1, c.Len())
}

func TestCache_EvictsOldestAtCapacity(t *testing.T) {
	c, clock := newTestCache(time.Hour, 3)

	for _, k := range []string{"first", "second", "third"} {
		c.Seen(k)
		*clock = clock.Add(time.Millisecond)
	}
	c.Seen("fourth")

	assert.Equal(t, 3, c.Len())
	assert.False(t, c.Seen("first"), "oldest key should have been evicted")
	// Re-marking "first" evicted "second".
	assert.False(t, c.Seen("second"))
	assert.True(t, c.Seen("fourth"))
}

func TestCache_MinimumSize(t *testing.T) {
	c, _ := newTestCache(time.Hour, 0)
	c.Seen("a")
	c.Seen("b")
	assert.Equal(t, 1, c.Len())
}

func TestCache_ConcurrentSameKeyHasOneWinner(t *testing.T) {
	c := New(time.Minute, 100)

	var winners atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !c.Seen("contested") {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), winners.Load())
}

func TestCache_ConcurrentDistinctKeys(t *testing.T) {
	c := New(time.Minute, 10_000)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				c.Seen(fmt.Sprintf("evt-%d-%d", i, j))
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1000, c.Len())
}
