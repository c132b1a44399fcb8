package analytics

import (
	"math"
	"time"

	"github.com/veralingo/veralingo-backend/internal/types"
)

const (
	defaultMinutesPerLesson = 15.0
	defaultMinutesPerWeek   = 90.0
	defaultWeeklyRatePct    = 5.0
	skillTierStep           = 20
	maxCompletionConfidence = 90.0
)

func computePredictions(snap snapshot, skills map[types.Skill]types.SkillMastery, consistency, weeklyProgress float64, now time.Time, loc *time.Location) types.Predictions {
	return types.Predictions{
		CourseCompletion: courseCompletionEstimates(snap, consistency, now, loc),
		SkillProjection:  skillProjections(skills, weeklyProgress),
	}
}

// minutesPerLesson is the observed average time spent on completed lessons.
func minutesPerLesson(lessons []types.LessonActivity) float64 {
	total, count := 0, 0
	for _, l := range lessons {
		if l.IsCompleted && l.TimeSpentSeconds > 0 {
			total += l.TimeSpentSeconds
			count++
		}
	}
	if count == 0 {
		return defaultMinutesPerLesson
	}
	return float64(total) / float64(count) / 60
}

// minutesPerWeek is the study cadence over the trailing 4 weeks of daily
// rollups, with a conservative default when there is no signal.
func minutesPerWeek(daily []types.DailyLearning, now time.Time) float64 {
	from := now.AddDate(0, 0, -28)
	totalSeconds := 0
	for _, d := range daily {
		if d.Date.Before(from) || d.Date.After(now) {
			continue
		}
		totalSeconds += d.TotalStudyTime
	}
	if totalSeconds == 0 {
		return defaultMinutesPerWeek
	}
	return float64(totalSeconds) / 60 / 4
}

// courseCompletionEstimates projects a finish date for each in-progress
// course: now + ceil(remaining x minutesPerLesson / minutesPerWeek x 7) days.
func courseCompletionEstimates(snap snapshot, consistency float64, now time.Time, loc *time.Location) []types.CourseCompletionEstimate {
	mpl := minutesPerLesson(snap.lessons)
	mpw := minutesPerWeek(snap.daily, now)
	confidence := consistency
	if confidence > maxCompletionConfidence {
		confidence = maxCompletionConfidence
	}

	progress := computeCourseProgress(snap.courses, snap.lessons)
	out := []types.CourseCompletionEstimate{}
	for _, p := range progress {
		if p.IsCompleted || p.TrackedLessons == 0 {
			continue
		}
		remaining := p.TrackedLessons - p.CompletedLessons
		if remaining <= 0 {
			continue
		}
		days := int(math.Ceil(float64(remaining) * mpl / mpw * 7))
		if days < 1 {
			days = 1
		}
		out = append(out, types.CourseCompletionEstimate{
			CourseID:            p.CourseID,
			RemainingLessons:    remaining,
			EstimatedCompletion: DayStart(now, loc).AddDate(0, 0, days),
			ConfidencePct:       confidence,
		})
	}
	return out
}

// skillProjections applies the clamped weekly-progress rate over 4 weeks and
// derives a time-to-next-20-point-tier from the same rate, defaulting to
// 5%/week when the signal is flat or negative. Minimum 1 day.
func skillProjections(skills map[types.Skill]types.SkillMastery, weeklyProgress float64) map[types.Skill]types.SkillProjection {
	out := make(map[types.Skill]types.SkillProjection, len(skills))
	for _, skill := range types.AllSkills {
		m := skills[skill]
		rate := weeklyProgress
		if rate <= 0 {
			rate = defaultWeeklyRatePct
		}

		projected := float64(m.Level) * math.Pow(1+rate/100, 4)
		if projected > 100 {
			projected = 100
		}

		nextTier := (m.Level/skillTierStep + 1) * skillTierStep
		if nextTier > 100 {
			nextTier = 100
		}
		days := 1
		if m.Level < nextTier {
			base := float64(m.Level)
			if base < 1 {
				base = 1
			}
			pointsPerDay := base * rate / 100 / 7
			days = int(math.Ceil(float64(nextTier-m.Level) / pointsPerDay))
			if days < 1 {
				days = 1
			}
		}
		out[skill] = types.SkillProjection{
			CurrentLevel:   m.Level,
			ProjectedLevel: int(math.Round(projected)),
			WeeklyRatePct:  rate,
			DaysToNextTier: days,
		}
	}
	return out
}
