// Command devserver runs the site API on in-memory stores so the frontend
// can be developed without MongoDB or Redis. Uploads still go to the
// configured disk directory. Nothing survives a restart.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/threespace/site-backend/handlers"
	"github.com/threespace/site-backend/internal/config"
	"github.com/threespace/site-backend/internal/resource/handler"
	"github.com/threespace/site-backend/internal/resource/service"
	"github.com/threespace/site-backend/internal/server"
	"github.com/threespace/site-backend/internal/storage"
	"github.com/threespace/site-backend/internal/upload"
	"github.com/threespace/site-backend/internal/verification"
	"github.com/threespace/site-backend/pkg/logger"
	"github.com/threespace/site-backend/pkg/middleware"
)

func main() {
	seed := flag.Bool("seed", true, "load sample blog posts, careers and products")
	port := flag.String("port", "", "listen port (default SERVER_PORT)")
	flag.Parse()

	logger.Init(os.Getenv("LOG_LEVEL"))
	if os.Getenv("SERVER_ENVIRONMENT") == "" {
		_ = os.Setenv("SERVER_ENVIRONMENT", "development")
	}
	if os.Getenv("LOG_FORMAT") == "" {
		_ = os.Setenv("LOG_FORMAT", "text")
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	if *port != "" {
		cfg.Server.Port = *port
	}
	server.ConfigureLogging(cfg.Log)
	defer func() { _ = logger.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.NewDiskStore(cfg.Uploads.Dir)
	if err != nil {
		logger.Fatalf("uploads dir %s: %v", cfg.Uploads.Dir, err)
	}
	up := upload.New(store, cfg.Uploads.URLPrefix, cfg.Uploads.MaxBytes)

	verifySvc := verification.NewService(verification.NewMemoryRepository(), verification.LogMailer{}, verification.Options{
		Secret:     []byte(cfg.Verification.Secret),
		TTL:        cfg.Verification.TokenTTL,
		Retention:  cfg.Verification.Retention,
		ConfirmURL: cfg.Verification.ConfirmURL,
	})
	verifyLimiter := middleware.NewWindowMemoryLimiter(cfg.Verification.RequestLimit, cfg.Verification.RequestWindow)
	go verifyLimiter.RunSweeper(ctx, time.Minute, cfg.Verification.RequestWindow)

	services := handlers.NewMemoryServices(up, verifySvc)
	if *seed {
		if err := seedContent(ctx, services); err != nil {
			logger.Fatalf("seed: %v", err)
		}
	}

	r := server.NewEngine(cfg)
	server.RegisterMetrics(r, prometheus.NewRegistry())
	handlers.RegisterRoutes(r, services, handlers.RouteOptions{
		Resource: handler.Options{
			Paging:       service.Paging{DefaultSize: cfg.Pagination.DefaultSize, MaxSize: cfg.Pagination.MaxSize},
			MaxBodyBytes: cfg.Uploads.MaxBytes + 1<<20,
		},
		VerifyLimiter: verifyLimiter,
		Health:        handlers.NewHealth(func(context.Context) error { return nil }, nil),
	})

	logger.Infof("dev server (in-memory stores) on %s", cfg.Server.Addr())
	if err := server.Serve(ctx, server.New(cfg.Server, r)); err != nil {
		logger.Errorf("%v", err)
	}
}
