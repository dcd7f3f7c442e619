package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Revocations remembers token ids that were logged out before they expired.
type Revocations interface {
	Revoke(ctx context.Context, jti string, expires time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// MemoryRevocations keeps revoked ids in an expirable LRU. Entries live for
// the refresh lifetime, which outlasts every token they can refer to.
type MemoryRevocations struct {
	cache *expirable.LRU[string, struct{}]
}

func NewMemoryRevocations(size int, ttl time.Duration) *MemoryRevocations {
	return &MemoryRevocations{cache: expirable.NewLRU[string, struct{}](size, nil, ttl)}
}

func (m *MemoryRevocations) Revoke(_ context.Context, jti string, _ time.Time) error {
	m.cache.Add(jti, struct{}{})
	return nil
}

func (m *MemoryRevocations) IsRevoked(_ context.Context, jti string) (bool, error) {
	return m.cache.Contains(jti), nil
}

// RedisRevocations shares revocations across server instances.
type RedisRevocations struct {
	client *redis.Client
	prefix string
}

// NewRedisRevocations connects using a redis:// URL and pings the server.
func NewRedisRevocations(ctx context.Context, url string) (*RedisRevocations, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisRevocations{client: client, prefix: "tcg:revoked:"}, nil
}

func (r *RedisRevocations) Revoke(ctx context.Context, jti string, expires time.Time) error {
	ttl := time.Until(expires)
	if ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, r.prefix+jti, 1, ttl).Err()
}

func (r *RedisRevocations) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := r.client.Exists(ctx, r.prefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *RedisRevocations) Close() error {
	return r.client.Close()
}
