package app

import (
	"strings"
	"time"

	"github.com/yungbote/experiments-backend/internal/data/cache"
	"github.com/yungbote/experiments-backend/internal/data/db"
	"github.com/yungbote/experiments-backend/internal/platform/envutil"
	"github.com/yungbote/experiments-backend/internal/platform/logger"
)

const (
	ServiceName    = "experiments"
	ServiceBanner  = "Experimentation Platform API"
	ServiceVersion = "1.0.0"
)

type Config struct {
	Port            string
	LogMode         string
	Environment     string
	ShutdownTimeout time.Duration

	DB db.Config

	AuthTokens     string
	AuthTokensFile string
	JWTSecretKey   string

	Redis cache.RedisConfig

	MetricsAddr string
	CORSOrigins []string
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		Port:            envutil.String("PORT", "8080"),
		LogMode:         envutil.String("LOG_MODE", "development"),
		Environment:     envutil.String("ENVIRONMENT", "development"),
		ShutdownTimeout: envutil.Seconds("SHUTDOWN_TIMEOUT_SECONDS", 15*time.Second),
		DB: db.Config{
			Driver:          envutil.String("DB_DRIVER", db.DriverPostgres),
			DSN:             envutil.String("POSTGRES_DSN", ""),
			Host:            envutil.String("POSTGRES_HOST", "localhost"),
			Port:            envutil.String("POSTGRES_PORT", "5432"),
			User:            envutil.String("POSTGRES_USER", "postgres"),
			Password:        envutil.String("POSTGRES_PASSWORD", ""),
			Name:            envutil.String("POSTGRES_NAME", "experiments"),
			SQLitePath:      envutil.String("SQLITE_PATH", "experiments.db"),
			MaxOpenConns:    envutil.Int("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    envutil.Int("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envutil.Seconds("DB_CONN_MAX_LIFETIME_SECONDS", 30*time.Minute),
		},
		AuthTokens:     envutil.String("AUTH_TOKENS", ""),
		AuthTokensFile: envutil.String("AUTH_TOKENS_FILE", ""),
		JWTSecretKey:   envutil.String("JWT_SECRET_KEY", ""),
		Redis: cache.RedisConfig{
			Addr:      envutil.String("REDIS_ADDR", ""),
			Password:  envutil.String("REDIS_PASSWORD", ""),
			DB:        envutil.Int("REDIS_DB", 0),
			KeyPrefix: envutil.String("ASSIGNMENT_CACHE_PREFIX", "assign"),
			TTL:       envutil.Seconds("ASSIGNMENT_CACHE_TTL_SECONDS", 24*time.Hour),
		},
		MetricsAddr: envutil.String("METRICS_ADDR", ":9090"),
		CORSOrigins: splitList(envutil.String("CORS_ALLOWED_ORIGINS", "")),
	}
	if log != nil {
		log.Info("Config loaded",
			"port", cfg.Port,
			"db_driver", cfg.DB.Driver,
			"redis_enabled", cfg.Redis.Addr != "",
			"jwt_enabled", cfg.JWTSecretKey != "",
			"auth_tokens_file", cfg.AuthTokensFile,
		)
	}
	return cfg
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	if strings.Contains(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
