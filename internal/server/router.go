package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/veralingo/veralingo-backend/internal/handlers"
)

type RouterConfig struct {
	ActivityHandler *handlers.ActivityHandler
	InsightsHandler *handlers.InsightsHandler
	QueuesHandler   *handlers.QueuesHandler
	MetricsRegistry *prometheus.Registry
	AllowOrigins    []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{
			"http://localhost:80",
			"http://localhost:3000",
			"http://localhost:5174",
		}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)
	if cfg.MetricsRegistry != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.MetricsRegistry, promhttp.HandlerOpts{})))
	}

	api := router.Group("/api")
	{
		activity := api.Group("/activity")
		{
			activity.POST("/lessons", cfg.ActivityHandler.TrackLesson)
			activity.POST("/flashcards", cfg.ActivityHandler.TrackFlashcardSession)
			activity.POST("/cards", cfg.ActivityHandler.TrackCardReview)
			activity.POST("/courses", cfg.ActivityHandler.TrackCourse)
		}

		insights := api.Group("/insights")
		{
			insights.GET("/:userId", cfg.InsightsHandler.GetInsights)
			insights.POST("/:userId/refresh", cfg.InsightsHandler.ForceRefresh)
			insights.POST("/:userId/advice", cfg.InsightsHandler.ForceAdvice)
			insights.DELETE("/:userId", cfg.InsightsHandler.ClearUserData)
		}

		queues := api.Group("/queues")
		{
			queues.GET("", cfg.QueuesHandler.GetQueueStats)
			queues.GET("/:jobType/failed", cfg.QueuesHandler.GetRecentFailed)
		}
	}

	return router
}
