package analytics

import (
	"time"

	"github.com/veralingo/veralingo-backend/internal/types"
)

// Sufficiency thresholds. Below all of these the engine refuses to guess:
// one or two data points produce noisy, misleading metrics, so the defaults
// are emitted instead.
const (
	minCompletedLessons  = 3
	minFlashcardSessions = 2
	minCardReviews       = 10
	minDistinctDays      = 2
)

// snapshot is the unwrapped view of one user's activity document. Everything
// below operates on it so the math stays independent of the storage types.
type snapshot struct {
	lessons  []types.LessonActivity
	sessions []types.FlashcardSession
	reviews  []types.CardReview
	courses  []types.CourseActivity
	daily    []types.DailyLearning
}

func newSnapshot(a *types.UserActivity) snapshot {
	if a == nil {
		return snapshot{}
	}
	return snapshot{
		lessons:  a.LessonActivities.Data(),
		sessions: a.FlashcardSessions.Data(),
		reviews:  a.CardReviews.Data(),
		courses:  a.CourseActivities.Data(),
		daily:    a.DailyLearning.Data(),
	}
}

// ComputeInsights derives the full insights summary from one activity
// snapshot. It is a pure function of (activity, now, loc): no I/O, no shared
// state, safe to call concurrently for different users and back-to-back for
// the same user.
func ComputeInsights(a *types.UserActivity, now time.Time, loc *time.Location) *types.Insights {
	if loc == nil {
		loc = time.UTC
	}
	snap := newSnapshot(a)
	if !sufficient(snap) {
		return DefaultInsights()
	}

	consistency := consistencyPct(snap.daily, now, loc)
	retention := retentionPct(snap.sessions, now)
	skills := computeSkillMastery(snap.lessons)
	cardFails := cardFailureCounts(snap.reviews)
	courseProgress := computeCourseProgress(snap.courses, snap.lessons)

	return &types.Insights{
		Performance: types.Performance{
			OverallLevel:      overallLevel(snap),
			WeeklyProgressPct: weeklyProgressPct(snap, now),
			ConsistencyPct:    consistency,
			RetentionPct:      retention,
		},
		Analysis: types.Analysis{
			CourseProgress:   courseProgress,
			LessonMastery:    computeLessonMastery(snap.lessons),
			FlashcardMastery: computeFlashcardMastery(snap.reviews, cardFails),
			SkillMastery:     skills,
		},
		StudyPatterns:   computeStudyPatterns(snap, now, loc),
		Recommendations: computeRecommendations(snap, skills, cardFails, consistency, retention),
		Predictions:     computePredictions(snap, skills, consistency, weeklyProgressPct(snap, now), now, loc),
	}
}

// Sufficient reports whether the activity clears the data sufficiency gate.
func Sufficient(a *types.UserActivity) bool {
	return sufficient(newSnapshot(a))
}

func sufficient(snap snapshot) bool {
	completedLessons := 0
	for _, l := range snap.lessons {
		if l.IsCompleted {
			completedLessons++
		}
	}
	if completedLessons >= minCompletedLessons {
		return true
	}
	if len(snap.sessions) >= minFlashcardSessions {
		return true
	}
	if len(snap.reviews) >= minCardReviews {
		return true
	}
	days := map[DayKey]bool{}
	for _, d := range snap.daily {
		days[NormalizeDay(d.Date, time.UTC)] = true
	}
	return len(days) >= minDistinctDays
}

// DataPointCount is the raw volume backing the insights, used for the
// confidence score and the advice-worthiness check.
func DataPointCount(a *types.UserActivity) int {
	snap := newSnapshot(a)
	return len(snap.lessons) + len(snap.sessions) + len(snap.reviews) + len(snap.daily)
}

// ConfidencePct maps data volume to a 0-100 confidence score. Zero data means
// zero confidence; insufficient data is capped low so sparse records never
// look authoritative.
func ConfidencePct(dataPoints int, isSufficient bool) int {
	if dataPoints <= 0 {
		return 0
	}
	if !isSufficient {
		if c := dataPoints * 3; c < 30 {
			return c
		}
		return 30
	}
	c := 50 + dataPoints/2
	if c > 95 {
		c = 95
	}
	return c
}

// DefaultInsights is the conservative record emitted when the sufficiency
// gate fails or a user has no activity at all.
func DefaultInsights() *types.Insights {
	skills := make(map[types.Skill]types.SkillMastery, len(types.AllSkills))
	for _, s := range types.AllSkills {
		skills[s] = types.SkillMastery{}
	}
	return &types.Insights{
		Performance: types.Performance{
			OverallLevel:      types.LevelBeginner,
			WeeklyProgressPct: 0,
			ConsistencyPct:    0,
			RetentionPct:      0,
		},
		Analysis: types.Analysis{
			CourseProgress:   []types.CourseProgress{},
			LessonMastery:    types.LessonMastery{},
			FlashcardMastery: types.FlashcardMastery{},
			SkillMastery:     skills,
		},
		StudyPatterns: types.StudyPatterns{
			BestTimeOfDay:        timeOfDayMorning,
			PreferredContentKind: contentKindVideo,
		},
		Recommendations: types.Recommendations{
			NextLessons: []types.RecommendedLesson{},
			ReviewCards: []types.ReviewCard{},
			StudyPlan: types.StudyPlan{
				DailyMinutes:  20,
				NewContentPct: 40,
				ReviewPct:     40,
				PracticePct:   20,
			},
		},
		Predictions: types.Predictions{
			CourseCompletion: []types.CourseCompletionEstimate{},
			SkillProjection:  map[types.Skill]types.SkillProjection{},
		},
	}
}
