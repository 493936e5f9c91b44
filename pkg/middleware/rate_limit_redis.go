package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RedisLimiter is a fixed-window counter shared by every API instance.
// INCR on a per-window key; the first hit of a window sets its expiry.
type RedisLimiter struct {
	client  redis.UniversalClient
	prefix  string
	allowed int64
	window  time.Duration
	now     func() time.Time
}

// NewRedisLimiter admits allowed events per window per key.
func NewRedisLimiter(client redis.UniversalClient, prefix string, allowed int, window time.Duration) *RedisLimiter {
	if window < time.Second {
		window = time.Second
	}
	if prefix == "" {
		prefix = "rl"
	}
	return &RedisLimiter{client: client, prefix: prefix, allowed: int64(allowed), window: window, now: time.Now}
}

func (r *RedisLimiter) Kind() string { return "redis" }

func (r *RedisLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	secs := int64(r.window / time.Second)
	now := r.now().Unix()
	bucket := now / secs
	redisKey := fmt.Sprintf("%s:%s:%d", r.prefix, key, bucket)

	cnt, err := r.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, 0, err
	}
	if cnt == 1 {
		_ = r.client.Expire(ctx, redisKey, r.window+time.Second).Err()
	}
	if cnt > r.allowed {
		remaining := time.Duration((bucket+1)*secs-now) * time.Second
		return false, remaining, nil
	}
	return true, 0, nil
}

// RedisRateLimitMiddleware provides a coarse fixed-window Redis-backed limiter.
// allowed per window = floor(rps*windowSeconds)+burst. Without a client it
// falls back to the in-memory limiter.
func RedisRateLimitMiddleware(client redis.UniversalClient, rps float64, burst int, window time.Duration) gin.HandlerFunc {
	if client == nil {
		return RateLimitMiddleware(rps, burst)
	}
	windowSeconds := int(window.Seconds())
	if windowSeconds <= 0 {
		windowSeconds = 1
	}
	allowed := int(rps*float64(windowSeconds)) + burst
	return RateLimit(NewRedisLimiter(client, "rl", allowed, time.Duration(windowSeconds)*time.Second), ClientIPKey)
}
