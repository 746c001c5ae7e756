package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := NewClient(mr.Addr())
	require.NoError(t, err)
	prev := GetClient()
	SetClient(c)
	t.Cleanup(func() {
		SetClient(prev)
		_ = c.Close()
	})
	return mr
}

type cachedThing struct {
	Name string `json:"name"`
}

func TestAside_FetchesOnceThenServesFromRedis(t *testing.T) {
	mr := useMiniredis(t)
	ctx := context.Background()
	calls := 0
	fetch := func(dest *cachedThing) func() error {
		return func() error {
			calls++
			dest.Name = "cats"
			return nil
		}
	}

	var first cachedThing
	require.NoError(t, Aside(ctx, GroupKey("cats"), &first, GroupTTL, fetch(&first)))
	var second cachedThing
	require.NoError(t, Aside(ctx, GroupKey("cats"), &second, GroupTTL, fetch(&second)))

	assert.Equal(t, 1, calls)
	assert.Equal(t, "cats", second.Name)
	assert.True(t, mr.Exists("group:cats"))
	assert.Equal(t, GroupTTL, mr.TTL("group:cats"))

	InvalidateGroups(ctx, "cats")
	assert.False(t, mr.Exists("group:cats"))
}

func TestAside_FetchErrorIsNotCached(t *testing.T) {
	mr := useMiniredis(t)
	boom := errors.New("db down")

	var dest cachedThing
	err := Aside(context.Background(), PostKey(9), &dest, PostTTL, func() error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("post:9"))
}

func TestAside_WithoutRedisCallsFetch(t *testing.T) {
	prev := GetClient()
	SetClient(nil)
	t.Cleanup(func() { SetClient(prev) })

	calls := 0
	for i := 0; i < 2; i++ {
		var dest cachedThing
		require.NoError(t, Aside(context.Background(), UserKey("Leo"), &dest, UserTTL, func() error {
			calls++
			return nil
		}))
	}
	assert.Equal(t, 2, calls)
	Invalidate(context.Background(), UserKey("Leo"))
}

func TestUserKeyKeepsCase(t *testing.T) {
	assert.Equal(t, "user:Leo", UserKey("Leo"))
	assert.NotEqual(t, UserKey("leo"), UserKey("Leo"))
}

func TestPageCache_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	ctx := context.Background()

	pc := NewPageCache(rdb, 20*time.Second)
	key := PageKey("index", 0, "/?page=2")
	assert.Equal(t, "page:index:0:/?page=2", key)

	_, ok := pc.Get(ctx, "index", key)
	assert.False(t, ok)

	pc.Set(ctx, key, []byte("<html>snapshot</html>"))
	body, ok := pc.Get(ctx, "index", key)
	require.True(t, ok)
	assert.Equal(t, "<html>snapshot</html>", string(body))
	assert.Equal(t, 20*time.Second, mr.TTL(key))

	require.NoError(t, mr.Set("user:leo", "{}"))
	require.NoError(t, pc.Clear(ctx))
	_, ok = pc.Get(ctx, "index", key)
	assert.False(t, ok)
	assert.True(t, mr.Exists("user:leo"), "clear only touches pages")

	pc.Set(ctx, key, []byte("again"))
	mr.FastForward(21 * time.Second)
	_, ok = pc.Get(ctx, "index", key)
	assert.False(t, ok)
}

func TestPageCache_InMemory(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	pc := NewPageCache(nil, 20*time.Second)
	pc.now = func() time.Time { return now }

	anon := PageKey("index", 0, "/")
	member := PageKey("index", 7, "/")

	buf := []byte("anonymous view")
	pc.Set(ctx, anon, buf)
	buf[0] = 'X'

	body, ok := pc.Get(ctx, "index", anon)
	require.True(t, ok)
	assert.Equal(t, "anonymous view", string(body))
	_, ok = pc.Get(ctx, "index", member)
	assert.False(t, ok)

	now = now.Add(19 * time.Second)
	_, ok = pc.Get(ctx, "index", anon)
	assert.True(t, ok)

	now = now.Add(time.Second)
	_, ok = pc.Get(ctx, "index", anon)
	assert.False(t, ok)

	pc.Set(ctx, anon, []byte("v2"))
	require.NoError(t, pc.Clear(ctx))
	_, ok = pc.Get(ctx, "index", anon)
	assert.False(t, ok)
}

func TestPageCache_ZeroTTLStoresNothing(t *testing.T) {
	pc := NewPageCache(nil, 0)
	pc.Set(context.Background(), "k", []byte("x"))
	_, ok := pc.Get(context.Background(), "index", "k")
	assert.False(t, ok)
}

func TestInitRedis_UnreachableDisablesClient(t *testing.T) {
	prev := GetClient()
	t.Cleanup(func() { SetClient(prev) })

	assert.Nil(t, InitRedis("redis://%zz"))
	assert.Nil(t, GetClient())

	mr := miniredis.RunT(t)
	c := InitRedis(mr.Addr())
	require.NotNil(t, c)
	t.Cleanup(func() { _ = c.Close() })
	assert.Same(t, c, GetClient())
}
