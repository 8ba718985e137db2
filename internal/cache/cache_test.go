package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_SetGetDel(t *testing.T) {
	t.Parallel()
	c := New[string](Config{TTL: time.Minute})

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Set("k", "v")
	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", v)

	c.Del("k")
	_, ok = c.Get("k")
	assert.False(t, ok)

	c.Del("missing") // no-op
}

func TestCache_SharesPointerValues(t *testing.T) {
	t.Parallel()
	type entity struct{ n int }
	c := New[*entity](Config{TTL: time.Minute})

	e := &entity{n: 1}
	c.Set("k", e)

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Same(t, e, got)
}

func TestCache_Expiry(t *testing.T) {
	t.Parallel()
	c := New[int](Config{TTL: 20 * time.Millisecond, CleanupInterval: 10 * time.Millisecond})

	c.Set("k", 7)
	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, 7, v)

	time.Sleep(50 * time.Millisecond)
	_, ok = c.Get("k")
	assert.False(t, ok, "entries expire after the TTL")
}

func TestCache_ZeroConfigDefaults(t *testing.T) {
	t.Parallel()
	c := New[int](Config{})

	c.Set("k", 1)
	_, ok := c.Get("k")
	assert.True(t, ok)
}
