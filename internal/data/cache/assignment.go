package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	types "github.com/yungbote/experiments-backend/internal/domain"
	"github.com/yungbote/experiments-backend/internal/platform/logger"
)

// AssignmentCache is a read-through cache in front of the assignment table.
// Stored assignments never change, so entries only expire or are dropped
// when their experiment is deleted.
type AssignmentCache interface {
	Get(ctx context.Context, experimentID uuid.UUID, userID string) (*types.UserAssignment, error)
	Set(ctx context.Context, assignment *types.UserAssignment) error
	DeleteExperiment(ctx context.Context, experimentID uuid.UUID) error
	Close() error
}

type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	TTL       time.Duration
}

type redisAssignmentCache struct {
	log    *logger.Logger
	rdb    *goredis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisAssignmentCache(ctx context.Context, log *logger.Logger, cfg RedisConfig) (AssignmentCache, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, fmt.Errorf("missing redis addr")
	}
	prefix := strings.TrimSpace(cfg.KeyPrefix)
	if prefix == "" {
		prefix = "assign"
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &redisAssignmentCache{
		log:    log.With("service", "RedisAssignmentCache"),
		rdb:    rdb,
		prefix: prefix,
		ttl:    ttl,
	}, nil
}

func assignmentKey(prefix string, experimentID uuid.UUID, userID string) string {
	return prefix + ":" + experimentID.String() + ":" + userID
}

func (c *redisAssignmentCache) Get(ctx context.Context, experimentID uuid.UUID, userID string) (*types.UserAssignment, error) {
	raw, err := c.rdb.Get(ctx, assignmentKey(c.prefix, experimentID, userID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var a types.UserAssignment
	if err := json.Unmarshal(raw, &a); err != nil {
		c.log.Warn("bad cached assignment payload", "error", err)
		return nil, nil
	}
	return &a, nil
}

func (c *redisAssignmentCache) Set(ctx context.Context, assignment *types.UserAssignment) error {
	if assignment == nil {
		return nil
	}
	raw, err := json.Marshal(assignment)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, assignmentKey(c.prefix, assignment.ExperimentID, assignment.UserID), raw, c.ttl).Err()
}

func (c *redisAssignmentCache) DeleteExperiment(ctx context.Context, experimentID uuid.UUID) error {
	pattern := c.prefix + ":" + experimentID.String() + ":*"
	iter := c.rdb.Scan(ctx, 0, pattern, 500).Iterator()
	batch := make([]string, 0, 500)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			if err := c.rdb.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return c.rdb.Del(ctx, batch...).Err()
	}
	return nil
}

func (c *redisAssignmentCache) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

type noopAssignmentCache struct{}

// NewNoopAssignmentCache is used when no redis is configured.
func NewNoopAssignmentCache() AssignmentCache { return noopAssignmentCache{} }

func (noopAssignmentCache) Get(context.Context, uuid.UUID, string) (*types.UserAssignment, error) {
	return nil, nil
}
func (noopAssignmentCache) Set(context.Context, *types.UserAssignment) error  { return nil }
func (noopAssignmentCache) DeleteExperiment(context.Context, uuid.UUID) error { return nil }
func (noopAssignmentCache) Close() error                                      { return nil }
