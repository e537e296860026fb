package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRevocationUnavailable is returned by Revoke when no Redis client is configured.
var ErrRevocationUnavailable = errors.New("token revocation store unavailable")

// TokenRevocations is a Redis-backed deny list of token ids. Entries expire
// together with the token they block.
type TokenRevocations struct {
	rdb *redis.Client
	now func() time.Time
}

func NewTokenRevocations(rdb *redis.Client) *TokenRevocations {
	return &TokenRevocations{rdb: rdb, now: time.Now}
}

// Revoke blocks tokenID until expiresAt. Already expired tokens need no entry.
func (r *TokenRevocations) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if r == nil || r.rdb == nil {
		return ErrRevocationUnavailable
	}
	ttl := expiresAt.Sub(r.now())
	if ttl <= 0 {
		return nil
	}
	return r.rdb.Set(ctx, RevokedTokenKey(tokenID), 1, ttl).Err()
}

// IsRevoked reports whether tokenID was revoked. Without Redis nothing is revoked.
func (r *TokenRevocations) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if r == nil || r.rdb == nil {
		return false, nil
	}
	n, err := r.rdb.Exists(ctx, RevokedTokenKey(tokenID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
