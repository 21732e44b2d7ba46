package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRUGetPut(t *testing.T) {
	c := New[string, int](4)

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Put("a", 1)
	c.Put("b", 2)

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, 2, c.Len())

	// Replacing a key must not grow the cache.
	c.Put("a", 10)
	v, ok = c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 10, v)
	assert.Equal(t, 2, c.Len())
}

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c := New[string, int](3)
	c.Put("a", 1)
	c.Put("b", 2)
	c.Put("c", 3)

	// Touch "a" so "b" becomes the eviction candidate.
	_, ok := c.Get("a")
	require.True(t, ok)

	c.Put("d", 4)

	_, ok = c.Get("b")
	assert.False(t, ok, "least recently used entry should have been evicted")
	for _, key := range []string{"a", "c", "d"} {
		_, ok := c.Get(key)
		assert.True(t, ok, "entry %q should survive eviction", key)
	}
	assert.Equal(t, 3, c.Len())
	assert.Equal(t, uint64(1), c.Stats().Evictions)
}

func TestLRUNeverExceedsCapacity(t *testing.T) {
	const capacity = 16
	c := New[string, int](capacity)
	for i := 0; i < capacity*4; i++ {
		c.Put(fmt.Sprintf("key-%d", i), i)
		assert.LessOrEqual(t, c.Len(), capacity)
	}
	assert.Equal(t, capacity, c.Len())
}

func TestLRUDefaultCapacity(t *testing.T) {
	c := New[string, int](0)
	assert.Equal(t, DefaultCapacity, c.Stats().Capacity)

	c = New[string, int](-5)
	assert.Equal(t, DefaultCapacity, c.Stats().Capacity)
}

func TestLRUReset(t *testing.T) {
	c := New[string, int](8)
	c.Put("a", 1)
	c.Put("b", 2)

	c.Reset()

	assert.Equal(t, 0, c.Len())
	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestLRUStats(t *testing.T) {
	c := New[string, int](8)
	c.Put("a", 1)

	c.Get("a")
	c.Get("a")
	c.Get("nope")

	stats := c.Stats()
	assert.Equal(t, uint64(2), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, 1, stats.Size)
	assert.Equal(t, 8, stats.Capacity)
}

func TestLRUConcurrentAccess(t *testing.T) {
	c := New[int, int](64)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				c.Put(i%100, g)
				c.Get(i % 100)
			}
		}(g)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 64)
}
