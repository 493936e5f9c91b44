package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Probe reports whether a dependency answers.
type Probe func(ctx context.Context) error

// Health holds the dependency probes used by the health endpoints. Database
// is required; Redis is probed only when set.
type Health struct {
	Database Probe
	Redis    Probe
	Timeout  time.Duration
	started  time.Time
}

func NewHealth(database, redis Probe) *Health {
	return &Health{Database: database, Redis: redis, Timeout: 2 * time.Second, started: time.Now()}
}

// Register mounts GET /health (liveness), GET /ready and GET /api/health.
func (h *Health) Register(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})
	r.GET("/ready", h.Ready)
	r.GET("/api/health", h.API)
}

// API reports process status and database connectivity. The process is up
// whenever it can answer, so the status code is always 200.
func (h *Health) API(c *gin.Context) {
	db := "connected"
	if !h.check(c.Request.Context(), h.Database) {
		db = "disconnected"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "OK",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"database":  db,
	})
}

// Ready returns 200 only when every configured dependency answers.
func (h *Health) Ready(c *gin.Context) {
	deps := map[string]bool{"database": h.check(c.Request.Context(), h.Database)}
	if h.Redis != nil {
		deps["redis"] = h.check(c.Request.Context(), h.Redis)
	}
	ready := true
	for _, ok := range deps {
		ready = ready && ok
	}
	uptime := time.Since(h.started).Round(time.Second).String()
	if !ready {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "deps": deps, "uptime": uptime})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "deps": deps, "uptime": uptime})
}

func (h *Health) check(ctx context.Context, p Probe) bool {
	if p == nil {
		return false
	}
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p(ctx) == nil
}
