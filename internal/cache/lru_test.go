package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	_, _ = c.Get("a")
	c.Set("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok, "b was least recently used")
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, 2, c.Size())
}

func TestLRUCache_TTL(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewLRUCache[string](10, time.Second)
	c.now = func() time.Time { return now }

	c.Set("k", "v")
	c.Set("other", "v")
	now = now.Add(2 * time.Second)

	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 1, c.CleanExpired())
	assert.Zero(t, c.Size())
}

func TestLRUCache_PurgeAndStats(t *testing.T) {
	c := NewLRUCache[float64](4, time.Minute)
	c.Set("total", 10)
	_, _ = c.Get("total")
	_, _ = c.Get("missing")

	c.Purge()
	_, ok := c.Get("total")
	assert.False(t, ok)

	assert.Equal(t, Stats{Hits: 1, Misses: 2, Size: 0}, c.Stats())
}

func TestJanitor_Sweep(t *testing.T) {
	now := time.Now()
	a := NewLRUCache[int](4, time.Millisecond)
	a.now = func() time.Time { return now }
	a.Set("x", 1)
	a.now = func() time.Time { return now.Add(time.Second) }

	j := NewJanitor(nil, a)
	assert.Equal(t, 1, j.Sweep())

	j.Start(time.Hour)
	j.Stop()
}
