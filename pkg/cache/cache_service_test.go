package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()

	t.Run("Get returns ErrCacheMiss for unknown key", func(t *testing.T) {
		c := NewMemoryCache()
		var v string
		assert.ErrorIs(t, c.Get(ctx, "missing", &v), ErrCacheMiss)
	})

	t.Run("Set then Get round trips JSON", func(t *testing.T) {
		c := NewMemoryCache()
		require.NoError(t, c.Set(ctx, "k", map[string]int{"a": 1}, time.Minute))

		var v map[string]int
		require.NoError(t, c.Get(ctx, "k", &v))
		assert.Equal(t, 1, v["a"])
	})

	t.Run("SetNX only writes once", func(t *testing.T) {
		c := NewMemoryCache()
		ok, err := c.SetNX(ctx, "evt_1", true, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = c.SetNX(ctx, "evt_1", true, time.Minute)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("expired entries are misses", func(t *testing.T) {
		c := NewMemoryCache()
		require.NoError(t, c.Set(ctx, "k", 1, -time.Second))

		exists, err := c.Exists(ctx, "k")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("InvalidatePattern removes matching keys", func(t *testing.T) {
		c := NewMemoryCache()
		require.NoError(t, c.Set(ctx, "catalog:list:a", 1, time.Minute))
		require.NoError(t, c.Set(ctx, "catalog:product:p1", 1, time.Minute))
		require.NoError(t, c.Set(ctx, "webhook:evt_1", 1, time.Minute))

		require.NoError(t, c.InvalidatePattern(ctx, "catalog:*"))

		exists, _ := c.Exists(ctx, "catalog:list:a")
		assert.False(t, exists)
		exists, _ = c.Exists(ctx, "webhook:evt_1")
		assert.True(t, exists)
	})
}
