package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis wraps redis client.
type Redis struct {
	Client *redis.Client
}

// NewRedis connects to redis with short timeouts.
func NewRedis(addr string) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
	})
	return &Redis{Client: client}
}

// Healthy verifies redis connectivity.
func (r *Redis) Healthy(ctx context.Context) bool {
	if r == nil || r.Client == nil {
		return false
	}
	return r.Client.Ping(ctx).Err() == nil
}

// SaveRefreshToken caches a refresh token with its remaining lifetime so
// rotation can be checked without a database round trip.
func (r *Redis) SaveRefreshToken(ctx context.Context, token, subject string, ttl time.Duration) error {
	return r.Client.Set(ctx, "refresh:"+token, subject, ttl).Err()
}

// LookupRefreshToken returns the subject a refresh token was issued to,
// or "" when unknown or expired.
func (r *Redis) LookupRefreshToken(ctx context.Context, token string) (string, error) {
	subject, err := r.Client.Get(ctx, "refresh:"+token).Result()
	if err == redis.Nil {
		return "", nil
	}
	return subject, err
}

// RevokeRefreshToken drops a refresh token after rotation.
func (r *Redis) RevokeRefreshToken(ctx context.Context, token string) error {
	return r.Client.Del(ctx, "refresh:"+token).Err()
}
