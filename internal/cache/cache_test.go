package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evhub/internal/clock"
)

func newTestClock() *clock.MockClock {
	return &clock.MockClock{CurrentTime: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func TestCache_RoundTrip(t *testing.T) {
	clk := newTestClock()
	c := New[string](30*time.Second, 10, clk)

	c.Set("k1", "v1")

	got, ok := c.Get("k1")
	require.True(t, ok)
	assert.Equal(t, "v1", got)
}

func TestCache_TTLExpiry(t *testing.T) {
	clk := newTestClock()
	c := New[string](30*time.Second, 10, clk)

	c.Set("k1", "v1")

	// Just inside the window
	clk.Advance(29 * time.Second)
	_, ok := c.Get("k1")
	assert.True(t, ok)

	// TTL elapsed
	clk.Advance(2 * time.Second)
	_, ok = c.Get("k1")
	assert.False(t, ok)
}

func TestCache_MissOnUnknownKey(t *testing.T) {
	c := New[int](time.Minute, 10, newTestClock())

	_, ok := c.Get("missing")
	assert.False(t, ok)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(0), stats.Hits)
}

func TestCache_CapacityEviction(t *testing.T) {
	c := New[int](time.Minute, 2, newTestClock())

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3) // evicts oldest-inserted "a"

	_, ok := c.Get("a")
	assert.False(t, ok)

	got, ok := c.Get("b")
	require.True(t, ok)
	assert.Equal(t, 2, got)

	got, ok = c.Get("c")
	require.True(t, ok)
	assert.Equal(t, 3, got)

	assert.Equal(t, int64(1), c.Stats().Evictions)
}

func TestCache_Delete(t *testing.T) {
	c := New[string](time.Minute, 10, newTestClock())

	c.Set("k1", "v1")
	c.Delete("k1")

	_, ok := c.Get("k1")
	assert.False(t, ok)
}

func TestCache_Clear(t *testing.T) {
	c := New[string](time.Minute, 10, newTestClock())

	c.Set("k1", "v1")
	c.Set("k2", "v2")
	c.Clear()

	assert.Equal(t, 0, c.Stats().Size)
	_, ok := c.Get("k1")
	assert.False(t, ok)
}

func TestCache_OverwriteRefreshesTTL(t *testing.T) {
	clk := newTestClock()
	c := New[string](30*time.Second, 10, clk)

	c.Set("k1", "v1")
	clk.Advance(20 * time.Second)
	c.Set("k1", "v2")
	clk.Advance(20 * time.Second)

	got, ok := c.Get("k1")
	require.True(t, ok)
	assert.Equal(t, "v2", got)
}
