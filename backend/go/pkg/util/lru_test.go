package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c, err := NewWithConfig(CacheConfig[string, int]{Capacity: 2})
	require.NoError(t, err)

	c.Put("a", 1, 1)
	c.Put("b", 2, 1)
	_, _ = c.Get("a")
	c.Put("c", 3, 1)

	_, ok := c.Get("b")
	assert.False(t, ok)
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, 2, c.Len())
}

func TestLRUWeightAndDelete(t *testing.T) {
	c, err := NewWithConfig(CacheConfig[string, string]{MaxWeight: 10})
	require.NoError(t, err)

	c.Put("small", "x", 3)
	c.Put("big", "y", 8)
	_, ok := c.Get("small")
	assert.False(t, ok)
	assert.Equal(t, 8, c.Weight())

	assert.True(t, c.Delete("big"))
	assert.False(t, c.Delete("big"))
	assert.Equal(t, 0, c.Weight())
}

func TestLRUTTL(t *testing.T) {
	now := time.Unix(0, 0)
	c, err := NewWithConfig(CacheConfig[int, int]{
		Capacity: 4,
		TTL:      time.Minute,
		Now:      func() time.Time { return now },
	})
	require.NoError(t, err)

	c.Put(1, 1, 1)
	now = now.Add(30 * time.Second)
	_, ok := c.Get(1)
	assert.True(t, ok)

	now = now.Add(time.Minute)
	_, ok = c.Get(1)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestLRURequiresLimit(t *testing.T) {
	_, err := NewWithConfig(CacheConfig[int, int]{})
	assert.Error(t, err)
}
