// Package server assembles the gin engine and runs it with graceful
// shutdown. Both the production server and the dev server use it.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/threespace/site-backend/internal/config"
	"github.com/threespace/site-backend/pkg/logger"
	"github.com/threespace/site-backend/pkg/metrics"
	"github.com/threespace/site-backend/pkg/middleware"
	"github.com/threespace/site-backend/pkg/response"
)

// ShutdownTimeout bounds the drain of in-flight requests.
const ShutdownTimeout = 15 * time.Second

// ConfigureLogging applies the log section of cfg.
func ConfigureLogging(cfg config.LogConfig) {
	logger.Init(cfg.Level)
	logger.Configure(logger.Options{
		Format:     cfg.Format,
		File:       cfg.File,
		MaxSizeMB:  cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAgeDays: cfg.MaxAgeDays,
		Compress:   true,
	})
}

// NewEngine returns a gin engine with the shared middleware chain (panic
// recovery, request ids, request logging and CORS) followed by extra.
// Forwarding headers are honored only from cfg.Server.TrustedProxies.
func NewEngine(cfg *config.Config, extra ...gin.HandlerFunc) *gin.Engine {
	if !cfg.Server.Development() {
		gin.SetMode(gin.ReleaseMode)
	}
	response.ExposeErrorDetail(cfg.Server.Development())

	r := gin.New()
	// Without trusted proxies ClientIP is the peer address, so a client
	// cannot pick its own rate limit key through X-Forwarded-For.
	if err := r.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		logger.Errorf("trusted proxies %v rejected, trusting none: %v", cfg.Server.TrustedProxies, err)
		_ = r.SetTrustedProxies(nil)
	}
	r.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		response.Error(c, fmt.Errorf("panic: %v", recovered))
	}))
	r.Use(middleware.RequestID(), middleware.RequestLogger(), middleware.CORS(cfg.Server.CORSOrigins))
	r.Use(extra...)
	r.NoRoute(func(c *gin.Context) {
		response.Fail(c, http.StatusNotFound, "NOT_FOUND", "Route not found")
	})
	return r
}

// RegisterMetrics exposes the Prometheus collectors on GET /metrics.
func RegisterMetrics(r *gin.Engine, reg *prometheus.Registry) {
	metrics.RegisterCollectors(reg)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))
}

// NewLimiter picks the Redis fixed-window limiter when client is set and
// the in-memory fixed window otherwise. limit events are admitted per
// window per key.
func NewLimiter(client redis.UniversalClient, prefix string, limit int, window time.Duration) middleware.Limiter {
	if client != nil {
		return middleware.NewRedisLimiter(client, prefix, limit, window)
	}
	return middleware.NewWindowMemoryLimiter(limit, window)
}

// New builds the http.Server for handler.
func New(cfg config.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}
}

// Serve runs srv until ctx is cancelled, then drains in-flight requests for
// at most ShutdownTimeout.
func Serve(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Infof("listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
