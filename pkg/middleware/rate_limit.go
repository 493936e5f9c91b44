package middleware

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/threespace/site-backend/internal/apperr"
	"github.com/threespace/site-backend/pkg/metrics"
	"github.com/threespace/site-backend/pkg/response"
	"golang.org/x/time/rate"
)

// Limiter decides whether one more event for key fits the quota. When it
// does not, retryAfter estimates when the next event would be accepted.
type Limiter interface {
	Allow(ctx context.Context, key string) (ok bool, retryAfter time.Duration, err error)
	// Kind labels metrics ("memory" or "redis").
	Kind() string
}

type keyedLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// MemoryLimiter is a per-key token bucket held in process memory.
type MemoryLimiter struct {
	rate  rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*keyedLimiter
}

// NewMemoryLimiter returns a token bucket refilling at r with capacity burst.
func NewMemoryLimiter(r rate.Limit, burst int) *MemoryLimiter {
	return &MemoryLimiter{rate: r, burst: burst, limiters: make(map[string]*keyedLimiter)}
}

func (m *MemoryLimiter) Kind() string { return "memory" }

func (m *MemoryLimiter) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	m.mu.Lock()
	kl, ok := m.limiters[key]
	if !ok {
		kl = &keyedLimiter{limiter: rate.NewLimiter(m.rate, m.burst)}
		m.limiters[key] = kl
	}
	kl.lastAccess = time.Now()
	m.mu.Unlock()

	r := kl.limiter.Reserve()
	if !r.OK() {
		return false, time.Second, nil
	}
	if d := r.Delay(); d > 0 {
		r.Cancel()
		return false, d, nil
	}
	return true, 0, nil
}

// Sweep drops buckets idle for longer than idle and returns how many were
// removed.
func (m *MemoryLimiter) Sweep(idle time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := time.Now().Add(-idle)
	n := 0
	for k, kl := range m.limiters {
		if kl.lastAccess.Before(cutoff) {
			delete(m.limiters, k)
			n++
		}
	}
	return n
}

// Len is the number of tracked keys.
func (m *MemoryLimiter) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.limiters)
}

// RunSweeper calls Sweep every interval until ctx is done.
func (m *MemoryLimiter) RunSweeper(ctx context.Context, interval, idle time.Duration) {
	sweepEvery(ctx, interval, func() { m.Sweep(idle) })
}

// Sweeper is implemented by limiters holding per-key state in memory.
type Sweeper interface {
	RunSweeper(ctx context.Context, interval, idle time.Duration)
}

type windowCount struct {
	start time.Time
	count int
}

// WindowLimiter is the in-memory counterpart of RedisLimiter: at most
// limit events per key in a fixed window that opens on the key's first
// event. Rejected events are not counted.
type WindowLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu     sync.Mutex
	counts map[string]*windowCount
}

// NewWindowMemoryLimiter admits limit events per window per key.
func NewWindowMemoryLimiter(limit int, window time.Duration) *WindowLimiter {
	if limit < 1 {
		limit = 1
	}
	if window <= 0 {
		window = time.Second
	}
	return &WindowLimiter{limit: limit, window: window, now: time.Now, counts: make(map[string]*windowCount)}
}

func (w *WindowLimiter) Kind() string { return "memory" }

func (w *WindowLimiter) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	now := w.now()
	w.mu.Lock()
	defer w.mu.Unlock()
	wc, ok := w.counts[key]
	if !ok || !now.Before(wc.start.Add(w.window)) {
		wc = &windowCount{start: now}
		w.counts[key] = wc
	}
	if wc.count >= w.limit {
		return false, wc.start.Add(w.window).Sub(now), nil
	}
	wc.count++
	return true, 0, nil
}

// Sweep drops windows that closed more than idle ago.
func (w *WindowLimiter) Sweep(idle time.Duration) int {
	now := w.now()
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for k, wc := range w.counts {
		if !now.Before(wc.start.Add(w.window + idle)) {
			delete(w.counts, k)
			n++
		}
	}
	return n
}

// Len is the number of tracked keys.
func (w *WindowLimiter) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.counts)
}

func (w *WindowLimiter) RunSweeper(ctx context.Context, interval, idle time.Duration) {
	sweepEvery(ctx, interval, func() { w.Sweep(idle) })
}

func sweepEvery(ctx context.Context, interval time.Duration, sweep func()) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			sweep()
		}
	}
}

// ClientIPKey keys limits by the client address.
func ClientIPKey(c *gin.Context) string {
	ip := c.ClientIP()
	if ip == "" {
		ip = "unknown"
	}
	return "ip:" + ip
}

// RateLimit enforces l per key. Rejected requests never reach the handler.
func RateLimit(l Limiter, key func(*gin.Context) string) gin.HandlerFunc {
	if key == nil {
		key = ClientIPKey
	}
	return func(c *gin.Context) {
		ok, retry, err := l.Allow(c.Request.Context(), key(c))
		if err != nil {
			response.Error(c, fmt.Errorf("rate limit check: %w", err))
			return
		}
		if !ok {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(retry.Seconds()))))
			metrics.RateLimitRejected.WithLabelValues(l.Kind()).Inc()
			response.Error(c, apperr.ErrRateLimited)
			return
		}
		metrics.RateLimitAllowed.WithLabelValues(l.Kind()).Inc()
		c.Next()
	}
}

// RateLimitMiddleware returns a Gin middleware enforcing a token-bucket
// per-client limit. rps = allowed events per second, burst = bucket size.
func RateLimitMiddleware(rps float64, burst int) gin.HandlerFunc {
	return RateLimit(NewMemoryLimiter(rate.Limit(rps), burst), ClientIPKey)
}
