package app

import (
	"context"
	"fmt"

	"github.com/yungbote/experiments-backend/internal/data/cache"
	"github.com/yungbote/experiments-backend/internal/platform/logger"
	"github.com/yungbote/experiments-backend/internal/services"
)

type Clients struct {
	AssignmentCache cache.AssignmentCache
	Credentials     services.CredentialVerifier
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")

	// Redis
	assignmentCache := cache.NewNoopAssignmentCache()
	if cfg.Redis.Addr != "" {
		c, err := cache.NewRedisAssignmentCache(ctx, log, cfg.Redis)
		if err != nil {
			return Clients{}, fmt.Errorf("init assignment cache: %w", err)
		}
		assignmentCache = c
	}

	creds, err := wireCredentials(log, cfg)
	if err != nil {
		_ = assignmentCache.Close()
		return Clients{}, err
	}

	return Clients{
		AssignmentCache: assignmentCache,
		Credentials:     creds,
	}, nil
}

// wireCredentials builds the token table from AUTH_TOKENS_FILE, then
// AUTH_TOKENS, then the development defaults. JWT_SECRET_KEY adds signed
// tokens in front of the table.
func wireCredentials(log *logger.Logger, cfg Config) (services.CredentialVerifier, error) {
	var (
		entries []services.StaticCredential
		source  string
		err     error
	)
	switch {
	case cfg.AuthTokensFile != "":
		entries, err = services.LoadCredentialsFile(cfg.AuthTokensFile)
		source = "file"
	case cfg.AuthTokens != "":
		entries, err = services.ParseTokenList(cfg.AuthTokens)
		source = "env"
	default:
		entries = services.DefaultCredentials()
		source = "defaults"
	}
	if err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}
	static, err := services.NewStaticCredentials(entries)
	if err != nil {
		return nil, fmt.Errorf("init credentials: %w", err)
	}
	if source == "defaults" {
		log.Warn("Using development API tokens; set AUTH_TOKENS or AUTH_TOKENS_FILE")
	}
	log.Info("Credentials loaded", "source", source, "count", len(entries))

	if cfg.JWTSecretKey == "" {
		return static, nil
	}
	signed, err := services.NewJWTCredentials(cfg.JWTSecretKey)
	if err != nil {
		return nil, fmt.Errorf("init jwt credentials: %w", err)
	}
	return services.ChainCredentials{signed, static}, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.AssignmentCache != nil {
		_ = c.AssignmentCache.Close()
	}
}
