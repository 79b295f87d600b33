package cache

import (
	"context"
	"testing"

	"github.com/jjjimenez100/backend-coding-test/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledCache(t *testing.T) {
	c, err := NewRedisCache(config.RedisConfig{Enabled: false})
	require.NoError(t, err)
	assert.False(t, c.Enabled())

	ctx := context.Background()
	var out string
	assert.ErrorIs(t, c.Get(ctx, "k", &out), ErrCacheDisabled)
	assert.ErrorIs(t, c.Set(ctx, "k", "v", 0), ErrCacheDisabled)
	assert.ErrorIs(t, c.Ping(ctx), ErrCacheDisabled)
	assert.NoError(t, c.Close())
}

func TestNilCacheIsDisabled(t *testing.T) {
	var c *RedisCache
	assert.False(t, c.Enabled())
	assert.NoError(t, c.Close())
}

func TestGetRideCacheKey(t *testing.T) {
	assert.Equal(t, "ride:42", GetRideCacheKey(42))
}
