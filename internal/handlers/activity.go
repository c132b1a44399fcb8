package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/veralingo/veralingo-backend/internal/services"
)

type ActivityHandler struct {
	activity services.ActivityService
}

func NewActivityHandler(activity services.ActivityService) *ActivityHandler {
	return &ActivityHandler{activity: activity}
}

// POST /api/activity/lessons
func (h *ActivityHandler) TrackLesson(c *gin.Context) {
	var input services.TrackLessonInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_payload", err)
		return
	}
	if err := h.activity.TrackLesson(c.Request.Context(), input); err != nil {
		RespondError(c, http.StatusInternalServerError, "track_lesson_failed", err)
		return
	}
	RespondOK(c, gin.H{"tracked": true})
}

// POST /api/activity/flashcards
func (h *ActivityHandler) TrackFlashcardSession(c *gin.Context) {
	var input services.TrackFlashcardSessionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_payload", err)
		return
	}
	if err := h.activity.TrackFlashcardSession(c.Request.Context(), input); err != nil {
		RespondError(c, http.StatusInternalServerError, "track_session_failed", err)
		return
	}
	RespondOK(c, gin.H{"tracked": true})
}

// POST /api/activity/cards
func (h *ActivityHandler) TrackCardReview(c *gin.Context) {
	var input services.TrackCardReviewInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_payload", err)
		return
	}
	if err := h.activity.TrackCardReview(c.Request.Context(), input); err != nil {
		RespondError(c, http.StatusInternalServerError, "track_review_failed", err)
		return
	}
	RespondOK(c, gin.H{"tracked": true})
}

// POST /api/activity/courses
func (h *ActivityHandler) TrackCourse(c *gin.Context) {
	var input services.TrackCourseInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_payload", err)
		return
	}
	if err := h.activity.TrackCourse(c.Request.Context(), input); err != nil {
		RespondError(c, http.StatusInternalServerError, "track_course_failed", err)
		return
	}
	RespondOK(c, gin.H{"tracked": true})
}
