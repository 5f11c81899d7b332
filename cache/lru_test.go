package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/poiesic/gradebook/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doc(id string) core.Document {
	return core.Document{"id": id, "name": "doc " + id}
}

func TestNew_ClampsMax(t *testing.T) {
	assert.Equal(t, 1, New(0).Max())
	assert.Equal(t, 1, New(-5).Max())
	assert.Equal(t, 7, New(7).Max())
}

func TestGetPut(t *testing.T) {
	c := New(4)

	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Put("a", doc("a"))
	got, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, doc("a"), got)

	c.Put("a", core.Document{"id": "a", "name": "updated"})
	got, _ = c.Get("a")
	assert.Equal(t, "updated", got["name"])
	assert.Equal(t, 1, c.Len())

	stats := c.Stats()
	assert.Equal(t, uint64(2), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
}

func TestPut_IgnoresEmpty(t *testing.T) {
	c := New(2)
	c.Put("", doc("x"))
	c.Put("x", nil)
	assert.Equal(t, 0, c.Len())
}

func TestSnapshotsAreIsolated(t *testing.T) {
	c := New(2)
	d := core.Document{"id": "a", "tags": []any{"x"}}
	c.Put("a", d)

	d["tags"].([]any)[0] = "mutated"
	got, _ := c.Get("a")
	assert.Equal(t, []any{"x"}, got["tags"])

	got["tags"] = "changed"
	again, _ := c.Get("a")
	assert.Equal(t, []any{"x"}, again["tags"])
}

func TestEvictsLeastRecentlyUsed(t *testing.T) {
	c := New(2)

	c.Put("A", doc("A"))
	c.Put("B", doc("B"))
	_, ok := c.Get("A")
	require.True(t, ok)
	c.Put("C", doc("C"))

	assert.True(t, c.Contains("A"))
	assert.False(t, c.Contains("B"))
	assert.True(t, c.Contains("C"))
	assert.Equal(t, uint64(1), c.Stats().Evictions)
}

func TestSizeOneCache(t *testing.T) {
	c := New(1)
	c.Put("a", doc("a"))
	c.Put("b", doc("b"))
	assert.Equal(t, 1, c.Len())
	assert.True(t, c.Contains("b"))
}

func TestHitNeverEvicts(t *testing.T) {
	c := New(2)
	c.Put("a", doc("a"))
	c.Put("b", doc("b"))
	for i := 0; i < 10; i++ {
		c.Get("a")
		c.Get("b")
		c.Get("missing")
	}
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, uint64(0), c.Stats().Evictions)
}

func TestInvalidateAndClear(t *testing.T) {
	c := New(3)
	c.Put("a", doc("a"))
	c.Put("b", doc("b"))
	c.Put("c", doc("c"))

	c.Invalidate("a", "missing")
	assert.False(t, c.Contains("a"))
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, uint64(0), c.Stats().Evictions)

	c.Clear()
	assert.Equal(t, 0, c.Len())
	c.Clear()
	assert.Equal(t, 0, c.Len())
}

func TestBoundHoldsUnderConcurrency(t *testing.T) {
	c := New(3)
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				id := fmt.Sprintf("%d-%d", w, i%10)
				c.Put(id, doc(id))
				c.Get(id)
				if i%7 == 0 {
					c.Invalidate(id)
				}
				assert.LessOrEqual(t, c.Len(), 3)
			}
		}(w)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 3)
}
