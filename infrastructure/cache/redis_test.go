package cache

import (
	"chat-relay/errors"
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func newCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	server := miniredis.RunT(t)
	cache, err := NewRedisCache(context.Background(), "redis://"+server.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })
	return cache, server
}

func TestRedisCache_Set_Get_Del(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	cache, _ := newCache(t)

	// Given a stored value
	req.NoError(cache.Set(ctx, "contact:42", `{"id":"42"}`, time.Minute))

	// Then it can be read back
	value, err := cache.Get(ctx, "contact:42")
	req.NoError(err)
	req.Equal(`{"id":"42"}`, value)

	// When it is deleted
	req.NoError(cache.Del(ctx, "contact:42"))

	// Then it is a miss
	_, err = cache.Get(ctx, "contact:42")
	req.ErrorIs(err, errors.ErrNotFound)
}

func TestRedisCache_Entries_Expire(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	cache, server := newCache(t)

	req.NoError(cache.Set(ctx, "contact:42", "x", time.Minute))

	// When the ttl elapses
	server.FastForward(2 * time.Minute)

	// Then the entry is gone
	_, err := cache.Get(ctx, "contact:42")
	req.ErrorIs(err, errors.ErrNotFound)
}

func TestRedisCache_Del_Without_Keys(t *testing.T) {
	req := require.New(t)
	cache, _ := newCache(t)

	req.NoError(cache.Del(context.Background()))
}

func TestRedisCache_Unreachable(t *testing.T) {
	req := require.New(t)

	_, err := NewRedisCache(context.Background(), "redis://127.0.0.1:1")

	req.Error(err)
}

func TestRedisCache_CompareAndSet(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	cache, server := newCache(t)
	keepLarger := func(candidate string) func(string, bool) (string, bool) {
		return func(current string, found bool) (string, bool) {
			return candidate, !found || candidate > current
		}
	}

	// Given an empty key, the first value is written with the ttl
	req.NoError(cache.CompareAndSet(ctx, "contact:42", time.Minute, keepLarger("b")))
	value, err := cache.Get(ctx, "contact:42")
	req.NoError(err)
	req.Equal("b", value)
	req.Equal(time.Minute, server.TTL("contact:42"))

	// When decide refuses the replacement
	req.NoError(cache.CompareAndSet(ctx, "contact:42", time.Minute, keepLarger("a")))

	// Then the entry is untouched
	value, err = cache.Get(ctx, "contact:42")
	req.NoError(err)
	req.Equal("b", value)

	// And an accepted replacement lands
	req.NoError(cache.CompareAndSet(ctx, "contact:42", time.Minute, keepLarger("c")))
	value, err = cache.Get(ctx, "contact:42")
	req.NoError(err)
	req.Equal("c", value)
}
