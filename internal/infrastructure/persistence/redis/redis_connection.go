// Package redis implements the score cache on Redis.
package redis

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/turtacn/riskgraph/internal/config"
	"github.com/turtacn/riskgraph/pkg/errors"
	"github.com/turtacn/riskgraph/pkg/logger"
)

// NewClient creates a Redis client and verifies connectivity.
func NewClient(ctx context.Context, cfg *config.RedisConfig, log logger.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "connecting to redis")
	}

	log.Info(ctx, "redis connection established", logger.String("addr", cfg.Addr))
	return client, nil
}
