package repository

import (
	"context"
	"errors"
	"time"

	"github.com/FrancoisMichell/seirin-sub000/internal/config"
	"github.com/redis/go-redis/v9"
)

// TokenRepository keeps revoked JWT ids in Redis until they expire.
type TokenRepository struct {
	rdb *redis.Client
}

// NewTokenRepository creates a new TokenRepository.
func NewTokenRepository(rdb *redis.Client) *TokenRepository {
	return &TokenRepository{rdb: rdb}
}

// Revoke marks jti as revoked for ttl.
func (r *TokenRepository) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return nil
	}
	return r.rdb.Set(ctx, config.CacheKey.RevokedTokenKey(jti), "1", ttl).Err()
}

// IsRevoked reports whether jti was revoked and has not expired yet.
func (r *TokenRepository) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	err := r.rdb.Get(ctx, config.CacheKey.RevokedTokenKey(jti)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
