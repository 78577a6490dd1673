package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/riskgraph/internal/domain/models"
	"github.com/turtacn/riskgraph/pkg/constants"
	"github.com/turtacn/riskgraph/pkg/logger"
)

func newTestCache(t *testing.T) (*miniredis.Miniredis, *scoreCache) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	cache := NewScoreCache(client, time.Minute, logger.NewNoop()).(*scoreCache)
	return mr, cache
}

func sampleScores() []*models.RiskScore {
	return []*models.RiskScore{
		{ID: "s1", TenantID: "tenant-1", EntityID: "org-a", Score: 42.5, Level: constants.RiskLevelMedium},
		{ID: "s2", TenantID: "tenant-1", EntityID: "org-b", Score: 81, Level: constants.RiskLevelCritical},
	}
}

func TestScoreCacheRoundTrip(t *testing.T) {
	_, cache := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.SetScores(ctx, "tenant-1", sampleScores()))

	got, err := cache.GetScores(ctx, "tenant-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "org-a", got[0].EntityID)
	assert.InDelta(t, 42.5, got[0].Score, 1e-9)
	assert.Equal(t, constants.RiskLevelCritical, got[1].Level)
}

func TestScoreCacheMissReturnsNil(t *testing.T) {
	_, cache := newTestCache(t)

	got, err := cache.GetScores(context.Background(), "tenant-unknown")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestScoreCacheTenantIsolation(t *testing.T) {
	_, cache := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.SetScores(ctx, "tenant-1", sampleScores()))

	got, err := cache.GetScores(ctx, "tenant-2")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestScoreCacheInvalidate(t *testing.T) {
	_, cache := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.SetScores(ctx, "tenant-1", sampleScores()))
	require.NoError(t, cache.Invalidate(ctx, "tenant-1"))

	got, err := cache.GetScores(ctx, "tenant-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestScoreCacheEntryExpires(t *testing.T) {
	mr, cache := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.SetScores(ctx, "tenant-1", sampleScores()))
	mr.FastForward(2 * time.Minute)

	got, err := cache.GetScores(ctx, "tenant-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestScoreCacheCorruptEntryTreatedAsMiss(t *testing.T) {
	mr, cache := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, mr.Set(scoreKeyPrefix+"tenant-1", "{not json"))

	got, err := cache.GetScores(ctx, "tenant-1")
	require.NoError(t, err)
	assert.Nil(t, got)
	// the corrupt key is dropped so the next read path rebuilds it
	assert.False(t, mr.Exists(scoreKeyPrefix+"tenant-1"))
}
