package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"writeflow/internal/middleware"
	"writeflow/internal/observability"

	"github.com/redis/go-redis/v9"
)

// ErrDeleted is returned by Aside when the key holds a tombstone.
var ErrDeleted = errors.New("cache: entry deleted")

// tombstoneRevision outranks any real revision and still fits a Lua number
// without losing precision.
const tombstoneRevision = 1 << 53

// Entries are hashes of {rev, data}. A write only lands when its revision is
// strictly newer than the cached one, so a reader that loaded before a save
// cannot put the older document back after the save published its own.
var storeIfNewer = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'rev')
if cur and tonumber(cur) >= tonumber(ARGV[1]) then
	return 0
end
redis.call('HSET', KEYS[1], 'rev', ARGV[1], 'data', ARGV[2])
redis.call('PEXPIRE', KEYS[1], ARGV[3])
return 1
`)

// Aside reads key from Redis and falls back to load on a miss, storing the
// loaded value under its revision for ttl. Redis failures are logged and
// bypassed: the loader is the source of truth. A nil client always calls load.
func Aside[T any](ctx context.Context, rdb *redis.Client, key string, ttl time.Duration, revision func(T) uint64, load func(context.Context) (T, error)) (T, error) {
	if rdb == nil {
		return load(ctx)
	}

	fields, err := rdb.HMGet(ctx, key, "rev", "data").Result()
	switch {
	case err != nil:
		middleware.Logger.WarnContext(ctx, "cache read failed", slog.String("key", key), slog.String("error", err.Error()))
	case fields[0] != nil:
		data, _ := fields[1].(string)
		if rev, _ := fields[0].(string); rev == strconv.FormatUint(tombstoneRevision, 10) {
			observability.CacheLookups.WithLabelValues("hit").Inc()
			var zero T
			return zero, ErrDeleted
		}
		var cached T
		if jsonErr := json.Unmarshal([]byte(data), &cached); jsonErr == nil {
			observability.CacheLookups.WithLabelValues("hit").Inc()
			return cached, nil
		}
		middleware.Logger.WarnContext(ctx, "discarding undecodable cache entry", slog.String("key", key))
	}
	observability.CacheLookups.WithLabelValues("miss").Inc()

	value, err := load(ctx)
	if err != nil {
		return value, err
	}
	if err := Store(ctx, rdb, key, ttl, revision(value), value); err != nil {
		middleware.Logger.WarnContext(ctx, "cache write failed", slog.String("key", key), slog.String("error", err.Error()))
	}
	return value, nil
}

// Store publishes value under key unless the cached revision is the same or
// newer. A nil client is a no-op.
func Store(ctx context.Context, rdb *redis.Client, key string, ttl time.Duration, revision uint64, value any) error {
	if rdb == nil {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return storeIfNewer.Run(ctx, rdb, []string{key}, revision, string(data), ttl.Milliseconds()).Err()
}

// Tombstone marks key as deleted for ttl. Later fills of any revision are
// refused until it expires or the key is invalidated.
func Tombstone(ctx context.Context, rdb *redis.Client, key string, ttl time.Duration) error {
	if rdb == nil {
		return nil
	}
	return storeIfNewer.Run(ctx, rdb, []string{key}, uint64(tombstoneRevision), "", ttl.Milliseconds()).Err()
}
