package middleware

import (
	"context"
	"net/http"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestRedisRateLimitMiddleware_Basic(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})

	r := gin.New()
	r.Use(RedisRateLimitMiddleware(client, 1, 0, 1*time.Second)) // 1 req/sec, no burst
	r.GET("/r", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	require.Equal(t, http.StatusOK, hit(r, "/r", "").Code)
	require.Equal(t, http.StatusTooManyRequests, hit(r, "/r", "").Code)

	// advance miniredis clock past window and request should be allowed
	m.FastForward(2 * time.Second)
	require.Equal(t, http.StatusOK, hit(r, "/r", "").Code)
}

func TestRedisLimiter_FixedWindow(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})

	now := time.Unix(1_700_000_000, 0)
	l := NewRedisLimiter(client, "verify", 5, 15*time.Minute)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		ok, _, err := l.Allow(ctx, "ip:9.9.9.9")
		require.NoError(t, err)
		require.True(t, ok)
	}
	ok, retry, err := l.Allow(ctx, "ip:9.9.9.9")
	require.NoError(t, err)
	require.False(t, ok)
	require.Greater(t, retry, time.Duration(0))
	require.LessOrEqual(t, retry, 15*time.Minute)

	ok, _, err = l.Allow(ctx, "ip:8.8.8.8")
	require.NoError(t, err)
	require.True(t, ok, "other clients have their own window")

	now = now.Add(15 * time.Minute)
	ok, _, err = l.Allow(ctx, "ip:9.9.9.9")
	require.NoError(t, err)
	require.True(t, ok, "next window starts fresh")

	keys := m.Keys()
	require.NotEmpty(t, keys)
	for _, k := range keys {
		require.True(t, m.TTL(k) > 0, k)
	}
}

func TestRedisLimiter_ErrorsSurface(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: m.Addr(), MaxRetries: -1})
	m.Close()

	r := gin.New()
	r.Use(RateLimit(NewRedisLimiter(client, "rl", 1, time.Second), nil))
	r.GET("/r", func(c *gin.Context) { c.Status(http.StatusOK) })
	require.Equal(t, http.StatusInternalServerError, hit(r, "/r", "").Code)
}
