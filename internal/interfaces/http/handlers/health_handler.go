package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/turtacn/riskgraph/pkg/logger"
)

// HealthHandler provides liveness and readiness endpoints.
type HealthHandler struct {
	db    *gorm.DB
	redis *redis.Client
	log   logger.Logger
}

// NewHealthHandler creates the health handler.
func NewHealthHandler(db *gorm.DB, redisClient *redis.Client, log logger.Logger) *HealthHandler {
	return &HealthHandler{db: db, redis: redisClient, log: log}
}

// LivenessCheck reports process liveness.
// GET /health/live
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "alive",
		"timestamp": time.Now().UTC(),
	})
}

// ReadinessCheck reports whether the service's dependencies are reachable.
// GET /health/ready
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	checks := h.performChecks(c.Request.Context())

	status := "ready"
	httpStatus := http.StatusOK
	for _, checkStatus := range checks {
		if checkStatus != "ok" {
			status = "degraded"
			httpStatus = http.StatusServiceUnavailable
			break
		}
	}

	c.JSON(httpStatus, gin.H{
		"status":    status,
		"timestamp": time.Now().UTC(),
		"checks":    checks,
	})
}

func (h *HealthHandler) performChecks(ctx context.Context) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		checks = make(map[string]string)
	)
	record := func(name, status string) {
		mu.Lock()
		checks[name] = status
		mu.Unlock()
	}

	wg.Add(2)
	go func() {
		defer wg.Done()
		status := "ok"
		if sqlDB, err := h.db.DB(); err != nil {
			status = "error: " + err.Error()
		} else if err := sqlDB.PingContext(ctx); err != nil {
			status = "error: " + err.Error()
		}
		record("database", status)
	}()
	go func() {
		defer wg.Done()
		status := "ok"
		if err := h.redis.Ping(ctx).Err(); err != nil {
			status = "error: " + err.Error()
		}
		record("redis", status)
	}()
	wg.Wait()
	return checks
}
