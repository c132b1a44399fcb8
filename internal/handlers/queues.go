package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/veralingo/veralingo-backend/internal/services"
	"github.com/veralingo/veralingo-backend/internal/types"
)

type QueuesHandler struct {
	stats services.QueueStatsService
}

func NewQueuesHandler(stats services.QueueStatsService) *QueuesHandler {
	return &QueuesHandler{stats: stats}
}

// GET /api/queues
func (h *QueuesHandler) GetQueueStats(c *gin.Context) {
	stats, err := h.stats.Stats(c.Request.Context())
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "queue_stats_failed", err)
		return
	}
	RespondOK(c, gin.H{"queues": stats})
}

// GET /api/queues/:jobType/failed?limit=20
func (h *QueuesHandler) GetRecentFailed(c *gin.Context) {
	jobType := c.Param("jobType")
	if jobType != types.JobTypeInsightRecompute && jobType != types.JobTypeAIAdvice {
		RespondError(c, http.StatusBadRequest, "unknown_job_type", nil)
		return
	}
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 100 {
			RespondError(c, http.StatusBadRequest, "invalid_limit", err)
			return
		}
		limit = parsed
	}
	failed, err := h.stats.RecentFailed(c.Request.Context(), jobType, limit)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "queue_failed_lookup", err)
		return
	}
	RespondOK(c, gin.H{"jobs": failed})
}
