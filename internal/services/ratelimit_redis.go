package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/fitstack/fitstack-backend/internal/config"
	"github.com/go-redis/redis/v8"
)

const rateLimitPrefix = "ratelimit:"

// RedisRateLimiter shares counters across replicas and survives restarts.
// Attempts keys carry a TTL of twice the lockout window so counts decay on
// their own; lockout keys expire exactly when the lockout ends.
//
// Lookups fail open: if Redis is unreachable the caller is treated as not
// blocked. Losing throttling precision beats refusing all logins.
type RedisRateLimiter struct {
	client   *redis.Client
	policies map[config.EndpointClass]config.RateLimitPolicy
}

func NewRedisRateLimiter(client *redis.Client, cfg *config.Config) *RedisRateLimiter {
	return &RedisRateLimiter{client: client, policies: cfg.RateLimits}
}

func (l *RedisRateLimiter) policy(class config.EndpointClass) config.RateLimitPolicy {
	if p, ok := l.policies[class]; ok {
		return p
	}
	return l.policies[config.EndpointGeneral]
}

func (l *RedisRateLimiter) IsBlocked(address string, class config.EndpointClass) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	n, err := l.client.Exists(ctx, lockoutKey(address, class)).Result()
	if err != nil {
		slog.Error("rate limit lookup failed, allowing request", "address", address, "error", err)
		return false
	}
	return n > 0
}

func (l *RedisRateLimiter) RecordFailure(address string, class config.EndpointClass) {
	p := l.policy(class)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	aKey := attemptsKey(address, class)
	attempts, err := l.client.Incr(ctx, aKey).Result()
	if err != nil {
		slog.Error("rate limit increment failed", "address", address, "error", err)
		return
	}
	if attempts == 1 {
		l.client.Expire(ctx, aKey, 2*p.Lockout)
	}

	if attempts >= int64(p.MaxAttempts) {
		// SETNX keeps an existing lockout's deadline: further failures while
		// already locked do not extend the window.
		set, err := l.client.SetNX(ctx, lockoutKey(address, class), "1", p.Lockout).Result()
		if err != nil {
			slog.Error("rate limit lockout write failed", "address", address, "error", err)
			return
		}
		if set {
			slog.Warn("address locked out",
				"address", address, "class", string(class),
				"attempts", attempts, "lockout_minutes", int(p.Lockout.Minutes()))
		}
	}
}

func (l *RedisRateLimiter) RecordSuccess(address string, class config.EndpointClass) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	l.client.Del(ctx, attemptsKey(address, class), lockoutKey(address, class))
}

func (l *RedisRateLimiter) RemainingLockout(address string, class config.EndpointClass) int64 {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	ttl, err := l.client.TTL(ctx, lockoutKey(address, class)).Result()
	if err != nil || ttl <= 0 {
		return 0
	}
	return int64(ttl.Seconds())
}

func attemptsKey(address string, class config.EndpointClass) string {
	return rateLimitPrefix + address + ":" + string(class) + ":attempts"
}

func lockoutKey(address string, class config.EndpointClass) string {
	return rateLimitPrefix + address + ":" + string(class) + ":lockout"
}
