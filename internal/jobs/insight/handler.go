package insight

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/veralingo/veralingo-backend/internal/analytics"
	"github.com/veralingo/veralingo-backend/internal/jobs/runtime"
	"github.com/veralingo/veralingo-backend/internal/logger"
	"github.com/veralingo/veralingo-backend/internal/repos"
	"github.com/veralingo/veralingo-backend/internal/services"
	"github.com/veralingo/veralingo-backend/internal/types"
)

// Advice-worthiness: after a successful recompute the user gets an automatic
// advice request only with sufficient data, enough volume, and no fresh
// advice already on the record.
const (
	adviceMinDataPoints = 10
	adviceMaxAge        = 24 * time.Hour
)

// Handler executes one insight recompute job: load the activity snapshot,
// run the analytics engine, persist the result, maybe kick the advice queue.
type Handler struct {
	activityRepo repos.UserActivityRepo
	insightsRepo repos.UserInsightsRepo
	advice       services.AdviceService
	log          *logger.Logger
	loc          *time.Location
}

func NewHandler(activityRepo repos.UserActivityRepo, insightsRepo repos.UserInsightsRepo, advice services.AdviceService, baseLog *logger.Logger, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{
		activityRepo: activityRepo,
		insightsRepo: insightsRepo,
		advice:       advice,
		log:          baseLog.With("handler", "InsightRecompute"),
		loc:          loc,
	}
}

func (h *Handler) Type() string { return types.JobTypeInsightRecompute }

func (h *Handler) Run(jc *runtime.Context) error {
	userID := jc.Job.UserID
	now := time.Now()

	activity, err := h.activityRepo.GetByUserID(jc.Ctx, jc.DB, userID)
	if err != nil {
		jc.Fail("load_activity", err)
		return nil
	}

	existing, err := h.insightsRepo.GetByUserID(jc.Ctx, jc.DB, userID)
	if err != nil {
		jc.Fail("load_insights", err)
		return nil
	}

	var computed *types.Insights
	var dataPoints int
	sufficient := false
	if activity == nil {
		// First recompute for a user with no activity still creates the record,
		// lazily, with conservative defaults.
		computed = analytics.DefaultInsights()
	} else {
		computed = analytics.ComputeInsights(activity, now, h.loc)
		dataPoints = analytics.DataPointCount(activity)
		sufficient = analytics.Sufficient(activity)
	}

	record := &types.UserInsights{
		UserID:          userID,
		Performance:     datatypes.NewJSONType(computed.Performance),
		Analysis:        datatypes.NewJSONType(computed.Analysis),
		StudyPatterns:   datatypes.NewJSONType(computed.StudyPatterns),
		Recommendations: datatypes.NewJSONType(computed.Recommendations),
		Predictions:     datatypes.NewJSONType(computed.Predictions),
		ConfidencePct:   analytics.ConfidencePct(dataPoints, sufficient),
		DataPointCount:  dataPoints,
		LastUpdated:     now,
	}
	if _, err := h.insightsRepo.UpsertComputed(jc.Ctx, jc.DB, record); err != nil {
		jc.Fail("persist_insights", err)
		return nil
	}
	jc.Succeed()

	h.maybeScheduleAdvice(jc, userID, existing, sufficient, dataPoints, now)
	return nil
}

func (h *Handler) maybeScheduleAdvice(jc *runtime.Context, userID uuid.UUID, existing *types.UserInsights, sufficient bool, dataPoints int, now time.Time) {
	if !sufficient || dataPoints < adviceMinDataPoints {
		return
	}
	if existing != nil && existing.AdviceGeneratedAt != nil && now.Sub(*existing.AdviceGeneratedAt) <= adviceMaxAge {
		return
	}
	scheduled, err := h.advice.ScheduleAdvice(jc.Ctx, userID)
	if err != nil {
		// Advice is best-effort; the recompute already succeeded.
		h.log.Warn("Failed to schedule advice after recompute", "user_id", userID, "error", err)
		return
	}
	if scheduled {
		h.log.Debug("Advice scheduled after recompute", "user_id", userID)
	}
}
