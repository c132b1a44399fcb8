package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/veralingo/veralingo-backend/internal/clients/redis"
	"github.com/veralingo/veralingo-backend/internal/db"
	"github.com/veralingo/veralingo-backend/internal/handlers"
	advicejob "github.com/veralingo/veralingo-backend/internal/jobs/advice"
	insightjob "github.com/veralingo/veralingo-backend/internal/jobs/insight"
	"github.com/veralingo/veralingo-backend/internal/jobs/runtime"
	"github.com/veralingo/veralingo-backend/internal/jobs/worker"
	"github.com/veralingo/veralingo-backend/internal/logger"
	"github.com/veralingo/veralingo-backend/internal/maintenance"
	"github.com/veralingo/veralingo-backend/internal/observability"
	"github.com/veralingo/veralingo-backend/internal/repos"
	"github.com/veralingo/veralingo-backend/internal/server"
	"github.com/veralingo/veralingo-backend/internal/services"
	"github.com/veralingo/veralingo-backend/internal/types"
	"github.com/veralingo/veralingo-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	log.Info("Loading environment variables from main...")
	httpPort := utils.GetEnv("HTTP_PORT", "8080", log)
	debounce := utils.GetEnvAsDuration("RECOMPUTE_DEBOUNCE", 5*time.Second, log)
	adviceInterval := utils.GetEnvAsDuration("ADVICE_MIN_INTERVAL", time.Hour, log)
	recomputeConcurrency := utils.GetEnvAsInt("RECOMPUTE_CONCURRENCY", 5, log)
	adviceConcurrency := utils.GetEnvAsInt("ADVICE_CONCURRENCY", 2, log)
	tzName := utils.GetEnv("INSIGHTS_TIMEZONE", "UTC", log)
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		log.Warn("Invalid INSIGHTS_TIMEZONE, falling back to UTC", "value", tzName, "error", err)
		loc = time.UTC
	}

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Error("Postgres auto migration failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	// Metrics
	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	// Repos
	log.Info("Setting up Repos from main...")
	activityRepo := repos.NewUserActivityRepo(thePG, log)
	insightsRepo := repos.NewUserInsightsRepo(thePG, log)
	jobRunRepo := repos.NewJobRunRepo(thePG, log)

	// Rate limiter: redis when available, local fallback otherwise. The local
	// fallback is per-process, fine for single-instance deployments only.
	var limiter services.RateLimiter
	limiter, err = redis.NewRateLimiter(log, adviceInterval)
	if err != nil {
		log.Warn("Redis rate limiter unavailable, using in-process limiter", "error", err)
		limiter = services.NewMemoryRateLimiter(adviceInterval)
	}

	// Services
	log.Info("Setting up Services from main...")
	scheduler := services.NewInsightScheduler(thePG, log, jobRunRepo, debounce)
	adviceService := services.NewAdviceService(thePG, log, jobRunRepo, limiter)
	activityService := services.NewActivityService(thePG, log, activityRepo, scheduler, loc)
	insightsService := services.NewInsightsService(thePG, log, insightsRepo, activityRepo)
	queueStatsService := services.NewQueueStatsService(thePG, log, jobRunRepo)
	adviceClient, err := services.NewAdviceClient(log)
	if err != nil {
		log.Warn("Advice client unavailable, advice jobs will use fallback messages", "error", err)
	}

	// Job handlers and workers
	log.Info("Setting up job workers from main...")
	policy := runtime.RetryPolicy{MaxAttempts: 4, RetryDelay: 30 * time.Second}

	recomputeRegistry := runtime.NewRegistry()
	if err := recomputeRegistry.Register(insightjob.NewHandler(activityRepo, insightsRepo, adviceService, log, loc)); err != nil {
		log.Error("Failed to register recompute handler", "error", err)
		os.Exit(1)
	}
	adviceRegistry := runtime.NewRegistry()
	if err := adviceRegistry.Register(advicejob.NewHandler(activityRepo, insightsRepo, adviceClient, metrics, log, loc)); err != nil {
		log.Error("Failed to register advice handler", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	recomputeWorker := worker.NewWorker(thePG, log, jobRunRepo, recomputeRegistry, metrics, types.JobTypeInsightRecompute, recomputeConcurrency, policy)
	recomputeWorker.Start(ctx)
	adviceWorker := worker.NewWorker(thePG, log, jobRunRepo, adviceRegistry, metrics, types.JobTypeAIAdvice, adviceConcurrency, policy)
	adviceWorker.Start(ctx)

	// Maintenance
	sweeper := maintenance.NewSweeper(thePG, log, activityRepo, jobRunRepo, scheduler, metrics)
	if err := sweeper.Start(); err != nil {
		log.Error("Failed to start maintenance sweeper", "error", err)
		os.Exit(1)
	}
	defer sweeper.Stop()

	// HTTP
	log.Info("Setting up Handlers from main...")
	activityHandler := handlers.NewActivityHandler(activityService)
	insightsHandler := handlers.NewInsightsHandler(insightsService, scheduler, adviceService)
	queuesHandler := handlers.NewQueuesHandler(queueStatsService)

	router := server.NewRouter(server.RouterConfig{
		ActivityHandler: activityHandler,
		InsightsHandler: insightsHandler,
		QueuesHandler:   queuesHandler,
		MetricsRegistry: registry,
	})

	log.Info("Starting HTTP server", "port", httpPort)
	if err := router.Run(":" + httpPort); err != nil {
		log.Error("HTTP server exited", "error", err)
		os.Exit(1)
	}
}
