package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
)

const blacklistPrefix = "token:blacklist:"

// RedisBlacklist stores revoked jtis in Redis with native TTL expiry, so
// revocations survive process restarts and are shared across replicas.
type RedisBlacklist struct {
	client *redis.Client
}

func NewRedisBlacklist(client *redis.Client) *RedisBlacklist {
	return &RedisBlacklist{client: client}
}

func (b *RedisBlacklist) Add(jti string, naturalExpiry time.Time) {
	if jti == "" {
		return
	}
	ttl := time.Until(naturalExpiry)
	if ttl <= 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := b.client.Set(ctx, blacklistPrefix+jti, "1", ttl).Err(); err != nil {
		slog.Error("failed to blacklist token", "jti", jti, "error", err)
		return
	}
	slog.Info("token blacklisted", "jti", jti, "ttl_seconds", int(ttl.Seconds()))
}

// IsBlacklisted fails closed: if Redis cannot be reached the token is
// treated as revoked rather than letting a possibly-revoked token through.
func (b *RedisBlacklist) IsBlacklisted(jti string) bool {
	if jti == "" {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	n, err := b.client.Exists(ctx, blacklistPrefix+jti).Result()
	if err != nil {
		slog.Error("blacklist lookup failed, rejecting token", "jti", jti, "error", err)
		return true
	}
	return n > 0
}

func (b *RedisBlacklist) Size() int {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	keys, err := b.client.Keys(ctx, blacklistPrefix+"*").Result()
	if err != nil {
		return 0
	}
	return len(keys)
}
