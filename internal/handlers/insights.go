package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/veralingo/veralingo-backend/internal/services"
)

type InsightsHandler struct {
	insights  services.InsightsService
	scheduler services.InsightScheduler
	advice    services.AdviceService
}

func NewInsightsHandler(insights services.InsightsService, scheduler services.InsightScheduler, advice services.AdviceService) *InsightsHandler {
	return &InsightsHandler{
		insights:  insights,
		scheduler: scheduler,
		advice:    advice,
	}
}

// GET /api/insights/:userId
func (h *InsightsHandler) GetInsights(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_user_id", err)
		return
	}
	record, err := h.insights.GetInsights(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, services.ErrInsightsNotFound) {
			RespondError(c, http.StatusNotFound, "insights_not_found", err)
			return
		}
		RespondError(c, http.StatusInternalServerError, "get_insights_failed", err)
		return
	}
	RespondOK(c, gin.H{"insights": record})
}

// POST /api/insights/:userId/refresh
//
// Cancels any pending recompute for the user and enqueues an immediate,
// high-priority one.
func (h *InsightsHandler) ForceRefresh(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_user_id", err)
		return
	}
	job, err := h.scheduler.ForceRecompute(c.Request.Context(), userID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "refresh_failed", err)
		return
	}
	RespondAccepted(c, gin.H{"job_id": job.ID, "status": job.Status})
}

// POST /api/insights/:userId/advice
func (h *InsightsHandler) ForceAdvice(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_user_id", err)
		return
	}
	scheduled, err := h.advice.ForceAdvice(c.Request.Context(), userID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "advice_failed", err)
		return
	}
	RespondAccepted(c, gin.H{"scheduled": scheduled})
}

// DELETE /api/insights/:userId
func (h *InsightsHandler) ClearUserData(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_user_id", err)
		return
	}
	if err := h.insights.ClearUserData(c.Request.Context(), userID); err != nil {
		RespondError(c, http.StatusInternalServerError, "clear_failed", err)
		return
	}
	RespondOK(c, gin.H{"cleared": true})
}
