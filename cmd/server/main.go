package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/turtacn/riskgraph/internal/application"
	"github.com/turtacn/riskgraph/internal/config"
	"github.com/turtacn/riskgraph/internal/domain/service"
	"github.com/turtacn/riskgraph/internal/infrastructure/audit"
	"github.com/turtacn/riskgraph/internal/infrastructure/monitoring"
	"github.com/turtacn/riskgraph/internal/infrastructure/persistence/postgres"
	"github.com/turtacn/riskgraph/internal/infrastructure/persistence/redis"
	httpapi "github.com/turtacn/riskgraph/internal/interfaces/http"
	"github.com/turtacn/riskgraph/internal/interfaces/http/handlers"
	"github.com/turtacn/riskgraph/pkg/logger"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	appLogger, err := monitoring.NewZapLogger(&cfg.Log)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}

	ctx := context.Background()

	db, err := postgres.NewDBConnection(&cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal(ctx, "failed to connect to database", err)
	}

	redisClient, err := redis.NewClient(ctx, &cfg.Redis, appLogger)
	if err != nil {
		appLogger.Fatal(ctx, "failed to connect to redis", err)
	}
	defer redisClient.Close()

	events, err := audit.NewKafkaProducer(cfg.Kafka, appLogger)
	if err != nil {
		appLogger.Fatal(ctx, "failed to create event producer", err)
	}
	defer events.Close()

	// Repositories
	entityRepo := postgres.NewEntityRepository(db, appLogger)
	dependencyRepo := postgres.NewDependencyRepository(db, appLogger)
	constraintRepo := postgres.NewConstraintRepository(db, appLogger)
	scoreRepo := postgres.NewRiskScoreRepository(db, appLogger)
	tenantRepo := postgres.NewTenantConfigRepository(db, appLogger)
	scoreCache := redis.NewScoreCache(redisClient, cfg.Redis.ScoreTTL, appLogger)

	// Engine services
	snapshots := service.NewSnapshotProvider(entityRepo, dependencyRepo, constraintRepo, scoreRepo, appLogger)
	calculator := service.NewRiskCalculator(appLogger)
	cascades := service.NewCascadeSimulator(appLogger)
	monteCarlo := service.NewMonteCarloSimulator(appLogger)
	whatIf := service.NewWhatIfEngine(calculator, appLogger)
	stress := service.NewStressTestRunner(whatIf, cascades, appLogger)

	// Simulation registry with background retention sweeping
	registry := application.NewSimulationRegistry(appLogger)
	sweepCtx, stopSweeper := context.WithCancel(ctx)
	defer stopSweeper()
	go registry.StartSweeper(sweepCtx)

	metrics := monitoring.NewMetrics(registry.Size)

	// Application services
	riskSvc := application.NewRiskAppService(
		snapshots, calculator, scoreRepo, tenantRepo, scoreCache, events, registry, appLogger)
	simSvc := application.NewSimulationAppService(
		snapshots, cascades, monteCarlo, whatIf, stress, tenantRepo, events, registry, appLogger)

	// HTTP interface
	healthHandler := handlers.NewHealthHandler(db, redisClient, appLogger)
	riskHandler := handlers.NewRiskHandler(riskSvc, metrics, appLogger)
	simulationHandler := handlers.NewSimulationHandler(simSvc, metrics, appLogger)
	router := httpapi.NewRouter(cfg, appLogger, metrics, healthHandler, riskHandler, simulationHandler)

	errCh := make(chan error, 1)
	go func() {
		errCh <- router.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			appLogger.Fatal(ctx, "HTTP server failed", err)
		}
	case sig := <-quit:
		appLogger.Info(ctx, "shutdown signal received", logger.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := router.Stop(shutdownCtx); err != nil {
		appLogger.Error(shutdownCtx, "server forced to shut down", err)
	}
	appLogger.Info(ctx, "server stopped")
}
