// Package http wires the gin router and HTTP server of the engine API.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/turtacn/riskgraph/internal/config"
	"github.com/turtacn/riskgraph/internal/infrastructure/monitoring"
	"github.com/turtacn/riskgraph/internal/interfaces/http/handlers"
	"github.com/turtacn/riskgraph/pkg/errors"
	"github.com/turtacn/riskgraph/pkg/logger"
)

// Router owns the gin engine and the HTTP server lifecycle.
type Router struct {
	engine            *gin.Engine
	config            *config.Config
	logger            logger.Logger
	metrics           *monitoring.Metrics
	healthHandler     *handlers.HealthHandler
	riskHandler       *handlers.RiskHandler
	simulationHandler *handlers.SimulationHandler
	server            *http.Server
}

// NewRouter creates the router with all handlers registered.
func NewRouter(
	cfg *config.Config,
	log logger.Logger,
	metrics *monitoring.Metrics,
	healthHandler *handlers.HealthHandler,
	riskHandler *handlers.RiskHandler,
	simulationHandler *handlers.SimulationHandler,
) *Router {
	gin.SetMode(gin.ReleaseMode)

	r := &Router{
		engine:            gin.New(),
		config:            cfg,
		logger:            log,
		metrics:           metrics,
		healthHandler:     healthHandler,
		riskHandler:       riskHandler,
		simulationHandler: simulationHandler,
	}
	r.setupRoutes()
	return r
}

func (r *Router) setupRoutes() {
	r.engine.Use(handlers.RecoveryMiddleware(r.logger))
	r.engine.Use(handlers.RequestIDMiddleware())
	r.engine.Use(handlers.LoggingMiddleware(r.logger))
	r.engine.Use(handlers.MetricsMiddleware(r.metrics))

	corsConfig := cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-Request-ID", "X-Tenant-ID"},
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	r.engine.Use(cors.New(corsConfig))

	// Health and metrics stay outside the tenant scope.
	r.engine.GET("/health/live", r.healthHandler.LivenessCheck)
	r.engine.GET("/health/ready", r.healthHandler.ReadinessCheck)
	r.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if r.config.Server.DebugPprof {
		pprof.Register(r.engine)
	}

	v1 := r.engine.Group("/api/v1")
	v1.Use(handlers.TenantMiddleware())
	{
		risk := v1.Group("/risk")
		{
			risk.GET("/scores", r.riskHandler.ListScores)
			risk.POST("/recalculate", r.riskHandler.RecalculateAll)
			risk.GET("/scores/:entity_id", r.riskHandler.GetScore)
			risk.POST("/scores/:entity_id/calculate", r.riskHandler.CalculateScore)
		}
		sims := v1.Group("/simulations")
		{
			sims.POST("/cascade", r.simulationHandler.RunCascade)
			sims.POST("/whatif", r.simulationHandler.RunWhatIf)
			sims.POST("/montecarlo", r.simulationHandler.SubmitMonteCarlo)
			sims.POST("/stress-test", r.simulationHandler.SubmitStressTest)
			sims.GET("/runs", r.simulationHandler.ListRuns)
			sims.GET("/runs/:run_id", r.simulationHandler.GetRun)
			sims.POST("/runs/:run_id/cancel", r.simulationHandler.CancelRun)
		}
	}

	r.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"code":    string(errors.CodeNotFound),
			"message": "the requested resource was not found",
		})
	})
}

// Start runs the HTTP server until it is shut down.
func (r *Router) Start() error {
	addr := fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port)
	r.server = &http.Server{
		Addr:           addr,
		Handler:        r.engine,
		ReadTimeout:    time.Duration(r.config.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(r.config.Server.WriteTimeout) * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	r.logger.Info(context.Background(), "starting HTTP server", logger.String("address", addr))

	if err := r.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop shuts the HTTP server down gracefully.
func (r *Router) Stop(ctx context.Context) error {
	if r.server == nil {
		return nil
	}
	r.logger.Info(ctx, "stopping HTTP server")
	return r.server.Shutdown(ctx)
}

// Engine exposes the gin engine for tests.
func (r *Router) Engine() *gin.Engine {
	return r.engine
}
