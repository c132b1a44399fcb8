package analytics

import (
	"sort"

	"github.com/google/uuid"

	"github.com/veralingo/veralingo-backend/internal/types"
)

// strugglingRatio: below this completed-lesson ratio an unfinished course is
// flagged as struggling.
const strugglingRatio = 0.5

// computeCourseProgress derives per-course progress from the course log plus
// the lessons tracked against each course. The stuck pointer is the first
// incomplete lesson in start order, which may be one the user never actually
// attempted; that is the documented product behavior.
func computeCourseProgress(courses []types.CourseActivity, lessons []types.LessonActivity) []types.CourseProgress {
	byCourse := map[uuid.UUID][]types.LessonActivity{}
	for _, l := range lessons {
		if l.CourseID == nil {
			continue
		}
		byCourse[*l.CourseID] = append(byCourse[*l.CourseID], l)
	}

	out := make([]types.CourseProgress, 0, len(courses))
	for _, c := range courses {
		tracked := byCourse[c.CourseID]
		sort.SliceStable(tracked, func(i, j int) bool {
			return tracked[i].StartedAt.Before(tracked[j].StartedAt)
		})
		completed := 0
		var stuck *uuid.UUID
		for i := range tracked {
			if tracked[i].IsCompleted {
				completed++
			} else if stuck == nil {
				id := tracked[i].LessonID
				stuck = &id
			}
		}
		progress := types.CourseProgress{
			CourseID:         c.CourseID,
			TrackedLessons:   len(tracked),
			CompletedLessons: completed,
			IsCompleted:      c.IsCompleted,
		}
		if len(tracked) > 0 {
			ratio := float64(completed) / float64(len(tracked))
			progress.ProgressPct = ratio * 100
			if !c.IsCompleted && ratio < strugglingRatio {
				progress.Struggling = true
				progress.StuckLessonID = stuck
			}
		}
		out = append(out, progress)
	}
	return out
}

func computeLessonMastery(lessons []types.LessonActivity) types.LessonMastery {
	var mastery types.LessonMastery
	var scoreSum float64
	var scoreCount int
	var attemptSum int
	for _, l := range lessons {
		if l.IsCompleted {
			mastery.Completed++
		} else {
			mastery.InProgress++
		}
		attemptSum += l.Attempts
		if l.Kind == types.LessonKindTask && l.Task != nil && l.IsCompleted {
			scoreSum += l.Task.Score
			scoreCount++
		}
	}
	if scoreCount > 0 {
		mastery.AverageScore = scoreSum / float64(scoreCount)
	}
	if len(lessons) > 0 {
		mastery.AverageAttempts = float64(attemptSum) / float64(len(lessons))
	}
	return mastery
}
