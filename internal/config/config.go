package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/threespace/site-backend/internal/storage"
	"github.com/threespace/site-backend/pkg/logger"
)

// Config holds application configuration
type Config struct {
	Server       ServerConfig
	MongoDB      MongoDBConfig
	Redis        RedisConfig
	Uploads      UploadsConfig
	MinIO        storage.MinIOConfig
	RateLimit    RateLimitConfig
	Verification VerificationConfig
	Pagination   PaginationConfig
	Log          LogConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CORSOrigins  []string
	// TrustedProxies are the addresses (IP or CIDR) whose X-Forwarded-For
	// is believed. Empty means the peer address is the client.
	TrustedProxies []string
}

// Development reports whether error details may be exposed to clients.
func (s ServerConfig) Development() bool {
	return strings.EqualFold(s.Environment, "development")
}

// Addr is the listen address.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

type MongoDBConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Enabled reports whether a Redis host was configured.
func (r RedisConfig) Enabled() bool { return r.Host != "" }

func (r RedisConfig) Addr() string {
	port := r.Port
	if port == "" {
		port = "6379"
	}
	return r.Host + ":" + port
}

type UploadsConfig struct {
	Backend   string
	Dir       string
	URLPrefix string
	MaxBytes  int64
}

type RateLimitConfig struct {
	Enabled  bool
	UseRedis bool
	RPS      float64
	Burst    int
	Window   time.Duration
}

type VerificationConfig struct {
	Secret        string
	TokenTTL      time.Duration
	Retention     time.Duration
	RequestLimit  int
	RequestWindow time.Duration
	ConfirmURL    string
}

type PaginationConfig struct {
	DefaultSize int
	MaxSize     int
}

type LogConfig struct {
	Level      string
	Format     string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// LoadConfig loads configuration from environment variables and an optional
// .env file (CONFIG_ENV_FILE overrides the path).
func LoadConfig() (*Config, error) {
	envFile := os.Getenv("CONFIG_ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	_ = godotenv.Load(envFile)

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", "5000")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_ENVIRONMENT", "production")
	v.SetDefault("SERVER_READ_TIMEOUT", 30)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 30)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("MONGODB_DATABASE", "threespace")
	v.SetDefault("MONGODB_TIMEOUT", 10)
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("UPLOADS_BACKEND", "disk")
	v.SetDefault("UPLOADS_DIR", "uploads")
	v.SetDefault("UPLOADS_URL_PREFIX", "/uploads")
	v.SetDefault("UPLOADS_MAX_BYTES", 5<<20)
	v.SetDefault("MINIO_BUCKET", "site-uploads")
	v.SetDefault("RATE_LIMIT_RPS", 20)
	v.SetDefault("RATE_LIMIT_BURST", 40)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 1)
	v.SetDefault("VERIFY_TOKEN_TTL_MINUTES", 60)
	v.SetDefault("VERIFY_RETENTION_HOURS", 24)
	v.SetDefault("VERIFY_REQUEST_LIMIT", 5)
	v.SetDefault("VERIFY_REQUEST_WINDOW_MINUTES", 15)
	v.SetDefault("PAGE_SIZE_DEFAULT", 20)
	v.SetDefault("PAGE_SIZE_MAX", 100)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("LOG_MAX_SIZE_MB", 100)
	v.SetDefault("LOG_MAX_BACKUPS", 5)
	v.SetDefault("LOG_MAX_AGE_DAYS", 28)

	cfg := &Config{
		Server: ServerConfig{
			Port:           v.GetString("SERVER_PORT"),
			Host:           v.GetString("SERVER_HOST"),
			Environment:    v.GetString("SERVER_ENVIRONMENT"),
			ReadTimeout:    time.Duration(v.GetInt("SERVER_READ_TIMEOUT")) * time.Second,
			WriteTimeout:   time.Duration(v.GetInt("SERVER_WRITE_TIMEOUT")) * time.Second,
			CORSOrigins:    splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
			TrustedProxies: splitList(v.GetString("SERVER_TRUSTED_PROXIES")),
		},
		MongoDB: MongoDBConfig{
			URI:      v.GetString("MONGODB_URI"),
			Database: v.GetString("MONGODB_DATABASE"),
			Timeout:  time.Duration(v.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Uploads: UploadsConfig{
			Backend:   strings.ToLower(v.GetString("UPLOADS_BACKEND")),
			Dir:       v.GetString("UPLOADS_DIR"),
			URLPrefix: "/" + strings.Trim(v.GetString("UPLOADS_URL_PREFIX"), "/"),
			MaxBytes:  v.GetInt64("UPLOADS_MAX_BYTES"),
		},
		MinIO: storage.MinIOConfig{
			Endpoint:  v.GetString("MINIO_ENDPOINT"),
			AccessKey: v.GetString("MINIO_ACCESS_KEY"),
			SecretKey: v.GetString("MINIO_SECRET_KEY"),
			Bucket:    v.GetString("MINIO_BUCKET"),
			UseSSL:    v.GetBool("MINIO_USE_SSL"),
		},
		RateLimit: RateLimitConfig{
			Enabled:  v.GetBool("RATE_LIMIT_ENABLED"),
			UseRedis: v.GetBool("RATE_LIMIT_USE_REDIS"),
			RPS:      v.GetFloat64("RATE_LIMIT_RPS"),
			Burst:    v.GetInt("RATE_LIMIT_BURST"),
			Window:   time.Duration(v.GetInt("RATE_LIMIT_WINDOW_SECONDS")) * time.Second,
		},
		Verification: VerificationConfig{
			Secret:        v.GetString("VERIFY_TOKEN_SECRET"),
			TokenTTL:      time.Duration(v.GetInt("VERIFY_TOKEN_TTL_MINUTES")) * time.Minute,
			Retention:     time.Duration(v.GetInt("VERIFY_RETENTION_HOURS")) * time.Hour,
			RequestLimit:  v.GetInt("VERIFY_REQUEST_LIMIT"),
			RequestWindow: time.Duration(v.GetInt("VERIFY_REQUEST_WINDOW_MINUTES")) * time.Minute,
			ConfirmURL:    v.GetString("VERIFY_CONFIRM_URL"),
		},
		Pagination: PaginationConfig{
			DefaultSize: v.GetInt("PAGE_SIZE_DEFAULT"),
			MaxSize:     v.GetInt("PAGE_SIZE_MAX"),
		},
		Log: LogConfig{
			Level:      v.GetString("LOG_LEVEL"),
			Format:     v.GetString("LOG_FORMAT"),
			File:       v.GetString("LOG_FILE"),
			MaxSizeMB:  v.GetInt("LOG_MAX_SIZE_MB"),
			MaxBackups: v.GetInt("LOG_MAX_BACKUPS"),
			MaxAgeDays: v.GetInt("LOG_MAX_AGE_DAYS"),
		},
	}

	if cfg.Uploads.Backend != "disk" && cfg.Uploads.Backend != "minio" {
		return nil, fmt.Errorf("UPLOADS_BACKEND must be disk or minio, got %q", cfg.Uploads.Backend)
	}
	if cfg.Pagination.DefaultSize < 1 || cfg.Pagination.MaxSize < cfg.Pagination.DefaultSize {
		return nil, fmt.Errorf("invalid page sizes: default %d, max %d", cfg.Pagination.DefaultSize, cfg.Pagination.MaxSize)
	}
	for _, p := range cfg.Server.TrustedProxies {
		if net.ParseIP(p) == nil {
			if _, _, err := net.ParseCIDR(p); err != nil {
				return nil, fmt.Errorf("SERVER_TRUSTED_PROXIES: %q is not an IP or CIDR", p)
			}
		}
	}
	if cfg.Verification.Secret == "" {
		secret, err := randomSecret()
		if err != nil {
			return nil, err
		}
		cfg.Verification.Secret = secret
		logger.Warnf("VERIFY_TOKEN_SECRET is not set; using a random secret, outstanding tokens will not survive a restart")
	}

	return cfg, nil
}

// RequireMongo is checked by the production server only.
func (c *Config) RequireMongo() error {
	if c.MongoDB.URI == "" {
		return errors.New("environment variable MONGODB_URI is required")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate verification secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}
