package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/turtacn/riskgraph/internal/domain/models"
	"github.com/turtacn/riskgraph/internal/domain/service"
	"github.com/turtacn/riskgraph/pkg/errors"
	"github.com/turtacn/riskgraph/pkg/logger"
)

const scoreKeyPrefix = "riskgraph:scores:"

// scoreCache caches the current score set per tenant as a single JSON blob.
// The cache is advisory; a miss or a decode failure falls through to the
// repository.
type scoreCache struct {
	client *redis.Client
	ttl    time.Duration
	log    logger.Logger
}

// NewScoreCache creates the Redis score cache.
func NewScoreCache(client *redis.Client, ttl time.Duration, log logger.Logger) service.ScoreCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &scoreCache{client: client, ttl: ttl, log: log.WithComponent("ScoreCache")}
}

func (c *scoreCache) GetScores(ctx context.Context, tenantID string) ([]*models.RiskScore, error) {
	raw, err := c.client.Get(ctx, scoreKeyPrefix+tenantID).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, errors.Wrap(err, errors.CodeInternal, "reading score cache")
	}

	var scores []*models.RiskScore
	if err := json.Unmarshal(raw, &scores); err != nil {
		// Corrupt entry: drop it and treat as a miss.
		c.client.Del(ctx, scoreKeyPrefix+tenantID)
		c.log.Warn(ctx, "dropped corrupt score cache entry", logger.String("tenant_id", tenantID))
		return nil, nil
	}
	return scores, nil
}

func (c *scoreCache) SetScores(ctx context.Context, tenantID string, scores []*models.RiskScore) error {
	raw, err := json.Marshal(scores)
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "encoding score cache entry")
	}
	if err := c.client.Set(ctx, scoreKeyPrefix+tenantID, raw, c.ttl).Err(); err != nil {
		return errors.Wrap(err, errors.CodeInternal, "writing score cache")
	}
	return nil
}

func (c *scoreCache) Invalidate(ctx context.Context, tenantID string) error {
	if err := c.client.Del(ctx, scoreKeyPrefix+tenantID).Err(); err != nil {
		return errors.Wrap(err, errors.CodeInternal, "invalidating score cache")
	}
	return nil
}
