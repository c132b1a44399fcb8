package advice

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/veralingo/veralingo-backend/internal/analytics"
	"github.com/veralingo/veralingo-backend/internal/jobs/runtime"
	"github.com/veralingo/veralingo-backend/internal/logger"
	"github.com/veralingo/veralingo-backend/internal/observability"
	"github.com/veralingo/veralingo-backend/internal/repos"
	"github.com/veralingo/veralingo-backend/internal/services"
	"github.com/veralingo/veralingo-backend/internal/types"
)

// fallbackMessages covers AI failures and timeouts: the user still gets a
// fresh encouragement string instead of a stale or missing one.
var fallbackMessages = []string{
	"Keep going! Every study session builds on the last one.",
	"Consistency beats intensity. A little practice today goes a long way.",
	"You're making progress even when it doesn't feel like it. Stick with it!",
	"Great learners review often. A quick flashcard round today will pay off.",
}

const fallbackTone = "supportive"

// Handler executes one AI advice job: build the learner snapshot, call the
// external endpoint, merge only the advice fields into the insights record.
type Handler struct {
	activityRepo repos.UserActivityRepo
	insightsRepo repos.UserInsightsRepo
	client       services.AdviceClient
	metrics      *observability.Metrics
	log          *logger.Logger
	loc          *time.Location
}

func NewHandler(activityRepo repos.UserActivityRepo, insightsRepo repos.UserInsightsRepo, client services.AdviceClient, metrics *observability.Metrics, baseLog *logger.Logger, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{
		activityRepo: activityRepo,
		insightsRepo: insightsRepo,
		client:       client,
		metrics:      metrics,
		log:          baseLog.With("handler", "AIAdvice"),
		loc:          loc,
	}
}

func (h *Handler) Type() string { return types.JobTypeAIAdvice }

func (h *Handler) Run(jc *runtime.Context) error {
	userID := jc.Job.UserID
	now := time.Now()

	insights, err := h.insightsRepo.GetByUserID(jc.Ctx, jc.DB, userID)
	if err != nil {
		jc.Fail("load_insights", err)
		return nil
	}
	activity, err := h.activityRepo.GetByUserID(jc.Ctx, jc.DB, userID)
	if err != nil {
		jc.Fail("load_activity", err)
		return nil
	}

	snapshot := h.buildSnapshot(insights, activity)

	message, tone := h.generate(jc, snapshot)

	if err := h.insightsRepo.UpdateAdvice(jc.Ctx, jc.DB, userID, message, tone, now); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Forced advice can arrive before the first recompute; seed the
			// record with defaults so the merge has a home.
			if seedErr := h.seedDefaultRecord(jc, userID, now); seedErr != nil {
				jc.Fail("seed_insights", seedErr)
				return nil
			}
			if retryErr := h.insightsRepo.UpdateAdvice(jc.Ctx, jc.DB, userID, message, tone, now); retryErr != nil {
				jc.Fail("persist_advice", retryErr)
				return nil
			}
		} else {
			jc.Fail("persist_advice", err)
			return nil
		}
	}

	jc.Succeed()
	return nil
}

// generate calls the external endpoint and falls back to a canned message on
// any failure. AI failure is never an error for the caller.
func (h *Handler) generate(jc *runtime.Context, snapshot *services.LearnerSnapshot) (string, string) {
	if h.client == nil {
		h.metrics.AdviceRequest("fallback")
		return fallbackMessages[int(jc.Job.UserID[0])%len(fallbackMessages)], fallbackTone
	}
	result, err := h.client.Generate(jc.Ctx, snapshot)
	if err != nil || result == nil || result.Message == "" {
		if err != nil {
			h.log.Warn("Advice generation failed, using fallback", "user_id", jc.Job.UserID, "error", err)
		}
		h.metrics.AdviceRequest("fallback")
		return fallbackMessages[int(jc.Job.UserID[0])%len(fallbackMessages)], fallbackTone
	}
	h.metrics.AdviceRequest("ok")
	tone := result.Tone
	if tone == "" {
		tone = fallbackTone
	}
	return result.Message, tone
}

func (h *Handler) buildSnapshot(insights *types.UserInsights, activity *types.UserActivity) *services.LearnerSnapshot {
	snapshot := &services.LearnerSnapshot{
		Skills: map[types.Skill]types.SkillMastery{},
	}
	if insights != nil {
		analysis := insights.Analysis.Data()
		performance := insights.Performance.Data()
		patterns := insights.StudyPatterns.Data()
		snapshot.Skills = analysis.SkillMastery
		snapshot.Courses = analysis.CourseProgress
		snapshot.Flashcards = analysis.FlashcardMastery
		snapshot.WeeklyProgress = performance.WeeklyProgressPct
		snapshot.ConsistencyPct = performance.ConsistencyPct
		snapshot.CurrentStreak = patterns.CurrentStreak
	}
	if activity != nil {
		snapshot.DataPoints = analytics.DataPointCount(activity)
	}
	return snapshot
}

func (h *Handler) seedDefaultRecord(jc *runtime.Context, userID uuid.UUID, now time.Time) error {
	defaults := analytics.DefaultInsights()
	record := &types.UserInsights{
		UserID:          userID,
		Performance:     datatypes.NewJSONType(defaults.Performance),
		Analysis:        datatypes.NewJSONType(defaults.Analysis),
		StudyPatterns:   datatypes.NewJSONType(defaults.StudyPatterns),
		Recommendations: datatypes.NewJSONType(defaults.Recommendations),
		Predictions:     datatypes.NewJSONType(defaults.Predictions),
		ConfidencePct:   0,
		DataPointCount:  0,
		LastUpdated:     now,
	}
	_, err := h.insightsRepo.UpsertComputed(jc.Ctx, jc.DB, record)
	return err
}
