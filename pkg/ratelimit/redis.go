package ratelimit

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter keeps one INCR counter per key; the first hit in a window sets
// its expiry.
type RedisLimiter struct {
	client *redis.Client
	rule   Rule
	prefix string
}

func NewRedisLimiter(client *redis.Client, prefix string, rule Rule) *RedisLimiter {
	return &RedisLimiter{client: client, rule: rule, prefix: prefix}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	k := fmt.Sprintf("rate_limit:%s:%s", l.prefix, key)

	count, err := l.client.Incr(ctx, k).Result()
	if err != nil {
		return Result{}, fmt.Errorf("rate limit check failed: %w", err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, k, l.rule.Window).Err(); err != nil {
			return Result{}, fmt.Errorf("rate limit expire failed: %w", err)
		}
	}

	ttl, err := l.client.TTL(ctx, k).Result()
	if err != nil {
		return Result{}, fmt.Errorf("rate limit ttl failed: %w", err)
	}
	// A counter left without expiry (crash between INCR and EXPIRE) would
	// block the key forever.
	if ttl == -1 {
		l.client.Expire(ctx, k, l.rule.Window)
		ttl = l.rule.Window
	}
	return l.rule.result(count, ttl), nil
}

// Prune re-arms counters that lost their expiry. Expired keys are removed by
// Redis itself.
func (l *RedisLimiter) Prune(ctx context.Context) (int64, error) {
	var fixed int64
	iter := l.client.Scan(ctx, 0, fmt.Sprintf("rate_limit:%s:*", l.prefix), 100).Iterator()
	for iter.Next(ctx) {
		ttl, err := l.client.TTL(ctx, iter.Val()).Result()
		if err != nil {
			return fixed, fmt.Errorf("rate limit ttl failed: %w", err)
		}
		if ttl != -1 {
			continue
		}
		if err := l.client.Expire(ctx, iter.Val(), l.rule.Window).Err(); err != nil {
			return fixed, fmt.Errorf("rate limit expire failed: %w", err)
		}
		fixed++
	}
	return fixed, iter.Err()
}
