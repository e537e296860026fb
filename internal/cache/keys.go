package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	BlogKeyPrefix         = "blog:%d"
	RevokedTokenKeyPrefix = "revoked:%s"
)

const BlogTTL = 5 * time.Minute

func BlogKey(blogID uint) string {
	return fmt.Sprintf(BlogKeyPrefix, blogID)
}

func RevokedTokenKey(tokenID string) string {
	return fmt.Sprintf(RevokedTokenKeyPrefix, tokenID)
}

// Invalidate drops keys. A nil client is a no-op.
func Invalidate(ctx context.Context, rdb *redis.Client, keys ...string) error {
	if rdb == nil || len(keys) == 0 {
		return nil
	}
	return rdb.Del(ctx, keys...).Err()
}
