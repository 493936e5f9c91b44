package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/threespace/site-backend/handlers"
	"github.com/threespace/site-backend/internal/config"
	"github.com/threespace/site-backend/internal/database"
	"github.com/threespace/site-backend/internal/models"
	"github.com/threespace/site-backend/internal/resource"
	"github.com/threespace/site-backend/internal/resource/handler"
	"github.com/threespace/site-backend/internal/resource/repository"
	"github.com/threespace/site-backend/internal/resource/service"
	"github.com/threespace/site-backend/internal/server"
	"github.com/threespace/site-backend/internal/storage"
	"github.com/threespace/site-backend/internal/upload"
	"github.com/threespace/site-backend/internal/verification"
	"github.com/threespace/site-backend/pkg/logger"
	"github.com/threespace/site-backend/pkg/middleware"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/time/rate"
)

func main() {
	// early logger so config problems are visible; reconfigured below
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	server.ConfigureLogging(cfg.Log)
	defer func() { _ = logger.Close() }()
	if err := cfg.RequireMongo(); err != nil {
		logger.Fatalf("%v", err)
	}
	logger.Infof("config loaded: env=%s mongo=%v redis=%v uploads=%s", cfg.Server.Environment, cfg.MongoDB.URI != "", cfg.Redis.Enabled(), cfg.Uploads.Backend)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The site cannot serve content without its document store.
	client, err := database.ConnectWithRetry(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout, 5, time.Second)
	if err != nil {
		logger.Fatalf("could not connect to MongoDB: %v", err)
	}
	defer func() { _ = client.Disconnect(context.Background()) }()
	db := client.Database(cfg.MongoDB.Database)
	logger.Infof("connected to MongoDB database %s", cfg.MongoDB.Database)

	// rdb stays a nil interface when Redis is absent so consumers fall back to memory
	var rdb redis.UniversalClient
	if cfg.Redis.Enabled() {
		c := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr(), Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := c.Ping(ctx).Err(); err != nil {
			if cfg.RateLimit.Enabled && cfg.RateLimit.UseRedis {
				logger.Fatalf("Redis %s is required by the rate limiter but unreachable: %v", cfg.Redis.Addr(), err)
			}
			logger.Warnf("Redis %s unreachable, using in-memory limiter and Mongo token store: %v", cfg.Redis.Addr(), err)
			_ = c.Close()
		} else {
			rdb = c
			defer func() { _ = c.Close() }()
			logger.Infof("connected to Redis %s", cfg.Redis.Addr())
		}
	}

	store, err := storage.New(storage.Config{Backend: cfg.Uploads.Backend, Dir: cfg.Uploads.Dir, MinIO: &cfg.MinIO})
	if err != nil {
		logger.Fatalf("failed to initialize %s upload storage: %v", cfg.Uploads.Backend, err)
	}
	up := upload.New(store, cfg.Uploads.URLPrefix, cfg.Uploads.MaxBytes)

	verifyRepo, err := verificationRepository(ctx, db, rdb)
	if err != nil {
		logger.Fatalf("failed to initialize verification store: %v", err)
	}
	verifySvc := verification.NewService(verifyRepo, verification.LogMailer{}, verification.Options{
		Secret:     []byte(cfg.Verification.Secret),
		TTL:        cfg.Verification.TokenTTL,
		Retention:  cfg.Verification.Retention,
		ConfirmURL: cfg.Verification.ConfirmURL,
	})
	verifyLimiter := server.NewLimiter(rdb, "rl:verify", cfg.Verification.RequestLimit, cfg.Verification.RequestWindow)
	if sw, ok := verifyLimiter.(middleware.Sweeper); ok {
		go sw.RunSweeper(ctx, time.Minute, cfg.Verification.RequestWindow)
	}

	var global []gin.HandlerFunc
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && rdb != nil {
			global = append(global, middleware.RedisRateLimitMiddleware(rdb, cfg.RateLimit.RPS, cfg.RateLimit.Burst, cfg.RateLimit.Window))
		} else {
			ml := middleware.NewMemoryLimiter(rate.Limit(cfg.RateLimit.RPS), cfg.RateLimit.Burst)
			go ml.RunSweeper(ctx, time.Minute, 10*time.Minute)
			global = append(global, middleware.RateLimit(ml, middleware.ClientIPKey))
		}
		logger.Infof("global rate limiter enabled: rps=%.1f burst=%d redis=%v", cfg.RateLimit.RPS, cfg.RateLimit.Burst, cfg.RateLimit.UseRedis && rdb != nil)
	}

	r := server.NewEngine(cfg, global...)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	server.RegisterMetrics(r, reg)

	var redisProbe handlers.Probe
	if rdb != nil {
		redisProbe = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	health := handlers.NewHealth(func(ctx context.Context) error {
		return database.Ping(ctx, client, 2*time.Second)
	}, redisProbe)

	handlers.RegisterRoutes(r, handlers.Services{
		Blogs:        mongoService[models.BlogPost](ctx, db, models.BlogResource, up),
		Careers:      mongoService[models.CareerPosting](ctx, db, models.CareerResource, up),
		Products:     mongoService[models.Product](ctx, db, models.ProductResource, up),
		Contacts:     mongoService[models.ContactMessage](ctx, db, models.ContactResource, up),
		Verification: verifySvc,
		Uploads:      up,
	}, handlers.RouteOptions{
		Resource: handler.Options{
			Paging:       service.Paging{DefaultSize: cfg.Pagination.DefaultSize, MaxSize: cfg.Pagination.MaxSize},
			MaxBodyBytes: cfg.Uploads.MaxBytes + 1<<20,
		},
		VerifyLimiter: verifyLimiter,
		Health:        health,
	})

	logger.Infof("starting site API on %s", cfg.Server.Addr())
	if err := server.Serve(ctx, server.New(cfg.Server, r)); err != nil {
		logger.Errorf("%v", err)
	}
	logger.Infof("stopped")
}

// mongoService builds a resource service over its collection. Index
// failures are logged; queries still work without them.
func mongoService[T any](ctx context.Context, db *mongo.Database, desc resource.Descriptor, up *upload.Uploader) *service.Service[T] {
	repo := repository.NewMongoRepo(db.Collection(desc.Collection), desc)
	if err := repo.EnsureIndexes(ctx); err != nil {
		logger.Warnf("indexes for %s: %v", desc.Collection, err)
	}
	return service.New[T](desc, repo, up)
}

// verificationRepository keeps tokens in Redis when available and in Mongo otherwise.
func verificationRepository(ctx context.Context, db *mongo.Database, rdb redis.UniversalClient) (verification.Repository, error) {
	if rdb != nil {
		return verification.NewRedisRepository(rdb, "verify:"), nil
	}
	repo := verification.NewMongoRepository(db.Collection("verifications"))
	if err := repo.EnsureIndexes(ctx); err != nil {
		return nil, err
	}
	return repo, nil
}
