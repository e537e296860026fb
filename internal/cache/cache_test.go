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

type payload struct {
	Title    string `json:"title"`
	Revision uint64 `json:"revision"`
}

func payloadRevision(p *payload) uint64 { return p.Revision }

func setupMiniRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb, err := NewClient(mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestNewClient_ParsesURL(t *testing.T) {
	t.Parallel()
	rdb, err := NewClient("redis://localhost:6380/2")
	require.NoError(t, err)
	defer func() { _ = rdb.Close() }()
	assert.Equal(t, "localhost:6380", rdb.Options().Addr)
	assert.Equal(t, 2, rdb.Options().DB)

	_, err = NewClient("redis://%zz")
	assert.Error(t, err)
}

func TestAside(t *testing.T) {
	mr, rdb := setupMiniRedis(t)
	ctx := context.Background()

	loads := 0
	load := func(context.Context) (*payload, error) {
		loads++
		return &payload{Title: "hello"}, nil
	}

	first, err := Aside(ctx, rdb, BlogKey(1), BlogTTL, payloadRevision, load)
	require.NoError(t, err)
	second, err := Aside(ctx, rdb, BlogKey(1), BlogTTL, payloadRevision, load)
	require.NoError(t, err)

	assert.Equal(t, 1, loads, "second read must be served from redis")
	assert.Equal(t, first, second)
	assert.True(t, mr.Exists("blog:1"))

	require.NoError(t, Invalidate(ctx, rdb, BlogKey(1)))
	_, err = Aside(ctx, rdb, BlogKey(1), BlogTTL, payloadRevision, load)
	require.NoError(t, err)
	assert.Equal(t, 2, loads)
}

func TestAside_LoaderErrorIsNotCached(t *testing.T) {
	mr, rdb := setupMiniRedis(t)
	boom := errors.New("boom")

	_, err := Aside(context.Background(), rdb, BlogKey(2), BlogTTL, payloadRevision, func(context.Context) (*payload, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("blog:2"))
}

func TestAside_RedisDownFallsBackToLoader(t *testing.T) {
	mr, rdb := setupMiniRedis(t)
	mr.Close()

	got, err := Aside(context.Background(), rdb, BlogKey(3), BlogTTL, payloadRevision, func(context.Context) (*payload, error) {
		return &payload{Title: "from store"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "from store", got.Title)
}

func TestAside_NilClient(t *testing.T) {
	t.Parallel()
	got, err := Aside(context.Background(), nil, "k", time.Minute, func(int) uint64 { return 0 }, func(context.Context) (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, got)
}

func TestAside_StaleFillDoesNotReplaceNewerRevision(t *testing.T) {
	_, rdb := setupMiniRedis(t)
	ctx := context.Background()
	key := BlogKey(4)

	// A reader loads revision 1, then a save publishes revision 2 before the
	// reader fills the cache.
	got, err := Aside(ctx, rdb, key, BlogTTL, payloadRevision, func(ctx context.Context) (*payload, error) {
		require.NoError(t, Store(ctx, rdb, key, BlogTTL, 2, &payload{Title: "v2", Revision: 2}))
		return &payload{Title: "v1", Revision: 1}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "v1", got.Title)

	cached, err := Aside(ctx, rdb, key, BlogTTL, payloadRevision, func(context.Context) (*payload, error) {
		t.Fatal("expected a cache hit")
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "v2", cached.Title)

	require.NoError(t, Store(ctx, rdb, key, BlogTTL, 3, &payload{Title: "v3", Revision: 3}))
	cached, err = Aside(ctx, rdb, key, BlogTTL, payloadRevision, func(context.Context) (*payload, error) {
		return nil, errors.New("unexpected load")
	})
	require.NoError(t, err)
	assert.Equal(t, "v3", cached.Title)
}

func TestTombstone(t *testing.T) {
	mr, rdb := setupMiniRedis(t)
	ctx := context.Background()
	key := BlogKey(5)

	require.NoError(t, Store(ctx, rdb, key, BlogTTL, 1, &payload{Title: "v1", Revision: 1}))
	require.NoError(t, Tombstone(ctx, rdb, key, BlogTTL))
	require.NoError(t, Store(ctx, rdb, key, BlogTTL, 7, &payload{Title: "late fill", Revision: 7}))

	_, err := Aside(ctx, rdb, key, BlogTTL, payloadRevision, func(context.Context) (*payload, error) {
		return &payload{Title: "loaded"}, nil
	})
	assert.ErrorIs(t, err, ErrDeleted)

	mr.FastForward(BlogTTL + time.Second)
	got, err := Aside(ctx, rdb, key, BlogTTL, payloadRevision, func(context.Context) (*payload, error) {
		return &payload{Title: "loaded"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "loaded", got.Title)
}

func TestTokenRevocations(t *testing.T) {
	mr, rdb := setupMiniRedis(t)
	ctx := context.Background()
	revocations := NewTokenRevocations(rdb)

	revoked, err := revocations.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, revocations.Revoke(ctx, "jti-1", time.Now().Add(time.Hour)))
	revoked, err = revocations.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	require.NoError(t, revocations.Revoke(ctx, "jti-old", time.Now().Add(-time.Minute)))
	assert.False(t, mr.Exists("revoked:jti-old"))

	mr.FastForward(2 * time.Hour)
	revoked, err = revocations.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestTokenRevocations_WithoutRedis(t *testing.T) {
	t.Parallel()
	revocations := NewTokenRevocations(nil)

	err := revocations.Revoke(context.Background(), "jti", time.Now().Add(time.Hour))
	assert.ErrorIs(t, err, ErrRevocationUnavailable)

	revoked, err := revocations.IsRevoked(context.Background(), "jti")
	assert.NoError(t, err)
	assert.False(t, revoked)
}
