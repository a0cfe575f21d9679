// ABOUTME: Tests for the roster anchor Registry and TopicChannels
// ABOUTME: Covers missing entries and unconditional overwrite

package status

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_GetMissing(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Get("g1")
	assert.False(t, ok)
}

func TestRegistry_PutOverwrites(t *testing.T) {
	r := NewRegistry()
	r.Put("g1", "c1", "m1")
	r.Put("g1", "c2", "m2")

	a, ok := r.Get("g1")
	require.True(t, ok)
	assert.Equal(t, Anchor{Channel: "c2", Message: "m2"}, a)
}

func TestTopicChannels(t *testing.T) {
	tc := NewTopicChannels()
	_, ok := tc.Get("g1")
	assert.False(t, ok)

	tc.Put("g1", "c9")
	c, ok := tc.Get("g1")
	require.True(t, ok)
	assert.Equal(t, ChannelID("c9"), c)
}
