package ratelimiter

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisWindow is a fixed window counter shared by every instance through Redis.
// Each key gets one counter per window, created with INCR and expired with the window.
type RedisWindow struct {
	client *redis.Client
	limit  int
	window time.Duration
	prefix string
	now    func() time.Time
}

// NewRedisWindow allows limit requests per key in each window.
func NewRedisWindow(client *redis.Client, limit int, window time.Duration, prefix string) *RedisWindow {
	return &RedisWindow{client: client, limit: limit, window: window, prefix: prefix, now: time.Now}
}

func (r *RedisWindow) AllowKey(ctx context.Context, key string) (bool, error) {
	slot := r.now().UnixNano() / int64(r.window)
	redisKey := fmt.Sprintf("%s:%s:%d", r.prefix, key, slot)

	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, r.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("redis rate limit: %w", err)
	}
	return incr.Val() <= int64(r.limit), nil
}
