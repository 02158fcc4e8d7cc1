package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := NewRedisCache(mr.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestRedisCache_SetAndGet(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.SetWithTTL(ctx, "chat:auto:1", true, 0))

	var enabled bool
	require.NoError(t, c.Get(ctx, "chat:auto:1", &enabled))
	assert.True(t, enabled)
}

func TestRedisCache_GetMissing(t *testing.T) {
	c, _ := newTestCache(t)

	var v string
	err := c.Get(context.Background(), "missing", &v)

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisCache_TTLExpires(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.SetWithTTL(ctx, "k", "v", time.Minute))
	mr.FastForward(2 * time.Minute)

	var v string
	assert.ErrorIs(t, c.Get(ctx, "k", &v), ErrNotFound)
}

func TestRedisCache_Delete(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.SetWithTTL(ctx, "k", "v", 0))
	require.NoError(t, c.Delete(ctx, "k"))

	assert.False(t, mr.Exists("k"))
}

func TestNewRedisCache_Unreachable(t *testing.T) {
	_, err := NewRedisCache("127.0.0.1:1", "", 0)
	assert.Error(t, err)
}

func TestChatAutoCacheKey(t *testing.T) {
	assert.Equal(t, "chat:auto:123456", ChatAutoCacheKey(123456))
	assert.Equal(t, "chat:auto:-10042", ChatAutoCacheKey(-10042))
}
