package cache

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	k := Key(3, "lista los alumnos")
	assert.True(t, strings.HasPrefix(k, "reply:3:"))
	assert.Len(t, strings.TrimPrefix(k, "reply:3:"), 64)

	assert.Equal(t, k, Key(3, "lista los alumnos"))
	assert.NotEqual(t, k, Key(4, "lista los alumnos"))
	assert.NotEqual(t, k, Key(3, "lista los alumnos!"))
}

func TestNop(t *testing.T) {
	var c Cache = Nop{}
	c.Set(context.Background(), "k", "v")
	_, ok := c.Get(context.Background(), "k")
	assert.False(t, ok)
}

// Runs only against a real server: ROSTER_TEST_REDIS=127.0.0.1:6379
func TestRedisCache(t *testing.T) {
	addr := os.Getenv("ROSTER_TEST_REDIS")
	if addr == "" {
		t.Skip("ROSTER_TEST_REDIS not set")
	}
	ctx := context.Background()
	client, err := Connect(ctx, addr, "", 0)
	require.NoError(t, err)
	defer client.Close()

	c := NewRedisCache(client, time.Minute, nil)
	key := Key(uint64(time.Now().UnixNano()), "test")
	_, ok := c.Get(ctx, key)
	assert.False(t, ok)

	c.Set(ctx, key, "hola")
	got, ok := c.Get(ctx, key)
	require.True(t, ok)
	assert.Equal(t, "hola", got)
	client.Del(ctx, key)
}

func TestConnectFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := Connect(ctx, "127.0.0.1:1", "", 0)
	assert.Error(t, err)
}

func newMiniredisCache(t *testing.T, ttl time.Duration) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisCache(client, ttl, nil), mr
}

func TestRedisCacheMissHitExpire(t *testing.T) {
	ctx := context.Background()
	c, mr := newMiniredisCache(t, time.Minute)
	key := Key(1, "listá los alumnos")

	_, ok := c.Get(ctx, key)
	assert.False(t, ok)

	c.Set(ctx, key, "📌 Ana Gómez - Curso: 5A")
	got, ok := c.Get(ctx, key)
	require.True(t, ok)
	assert.Equal(t, "📌 Ana Gómez - Curso: 5A", got)
	assert.Equal(t, time.Minute, mr.TTL(key))

	mr.FastForward(time.Minute + time.Second)
	_, ok = c.Get(ctx, key)
	assert.False(t, ok)
}

func TestRedisCacheUnreachableIsMiss(t *testing.T) {
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	defer client.Close()
	c := NewRedisCache(client, time.Minute, nil)

	c.Set(ctx, "k", "v")
	got, ok := c.Get(ctx, "k")
	assert.False(t, ok)
	assert.Equal(t, "", got)
}
