package analytics

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/veralingo/veralingo-backend/internal/types"
)

const (
	maxNextLessons = 5
	maxReviewCards = 10
	maxUrgency     = 10
)

// computeRecommendations is entirely rule-based; nothing here calls out.
// Three tiers fill the next-lesson list: weakest-skill practice first, then
// unfinished lessons from in-progress courses, then anything uncompleted.
func computeRecommendations(snap snapshot, skills map[types.Skill]types.SkillMastery, fails map[uuid.UUID]cardFailTally, consistency, retention float64) types.Recommendations {
	return types.Recommendations{
		NextLessons: nextLessons(snap, skills),
		ReviewCards: reviewCards(fails),
		StudyPlan:   studyPlan(consistency, retention),
	}
}

func nextLessons(snap snapshot, skills map[types.Skill]types.SkillMastery) []types.RecommendedLesson {
	uncompleted := make([]types.LessonActivity, 0, len(snap.lessons))
	for _, l := range snap.lessons {
		if !l.IsCompleted {
			uncompleted = append(uncompleted, l)
		}
	}
	sort.SliceStable(uncompleted, func(i, j int) bool {
		return uncompleted[i].StartedAt.Before(uncompleted[j].StartedAt)
	})

	inProgressCourses := map[uuid.UUID]bool{}
	for _, c := range snap.courses {
		if !c.IsCompleted {
			inProgressCourses[c.CourseID] = true
		}
	}

	weakest := weakestSkill(skills)
	out := make([]types.RecommendedLesson, 0, maxNextLessons)
	seen := map[uuid.UUID]bool{}

	add := func(l types.LessonActivity, reason string, priority types.RecommendationPriority) {
		if seen[l.LessonID] || len(out) >= maxNextLessons {
			return
		}
		seen[l.LessonID] = true
		out = append(out, types.RecommendedLesson{
			LessonID: l.LessonID,
			CourseID: l.CourseID,
			Reason:   reason,
			Priority: priority,
		})
	}

	// Tier 1: up to 2 lessons practicing the single weakest skill.
	tier1 := 0
	for _, l := range uncompleted {
		if tier1 >= 2 {
			break
		}
		if l.Kind != types.LessonKindTask {
			continue
		}
		if skill, ok := SkillForTask(l.TaskKind); ok && skill == weakest {
			add(l, fmt.Sprintf("Strengthen your %s skill", weakest), types.PriorityHigh)
			tier1++
		}
	}

	// Tier 2: up to 2 unfinished lessons from in-progress courses.
	tier2 := 0
	for _, l := range uncompleted {
		if tier2 >= 2 {
			break
		}
		if l.CourseID == nil || !inProgressCourses[*l.CourseID] || seen[l.LessonID] {
			continue
		}
		add(l, "Continue your course", types.PriorityMedium)
		tier2++
	}

	// Tier 3: fill the remainder with any uncompleted lessons.
	for _, l := range uncompleted {
		if len(out) >= maxNextLessons {
			break
		}
		add(l, "Pick up where you left off", types.PriorityLow)
	}
	return out
}

// reviewCards ranks cards by lifetime failure count, most-failed first.
// Urgency saturates at 10.
func reviewCards(fails map[uuid.UUID]cardFailTally) []types.ReviewCard {
	cards := make([]types.ReviewCard, 0, len(fails))
	for cardID, t := range fails {
		if t.count == 0 {
			continue
		}
		urgency := t.count
		if urgency > maxUrgency {
			urgency = maxUrgency
		}
		cards = append(cards, types.ReviewCard{
			CardID:       cardID,
			FlashcardID:  t.flashcardID,
			FailureCount: t.count,
			Urgency:      urgency,
		})
	}
	sort.Slice(cards, func(i, j int) bool {
		if cards[i].FailureCount != cards[j].FailureCount {
			return cards[i].FailureCount > cards[j].FailureCount
		}
		return cards[i].CardID.String() < cards[j].CardID.String()
	})
	if len(cards) > maxReviewCards {
		cards = cards[:maxReviewCards]
	}
	return cards
}

// studyPlan scales the daily-minutes target with consistency and shifts the
// content mix toward review when retention is weak, toward new content when
// retention is strong.
func studyPlan(consistency, retention float64) types.StudyPlan {
	plan := types.StudyPlan{DailyMinutes: 30}
	switch {
	case consistency < 30:
		plan.DailyMinutes = 20
	case consistency > 70:
		plan.DailyMinutes = 45
	}
	switch {
	case retention < 50:
		plan.NewContentPct, plan.ReviewPct, plan.PracticePct = 20, 60, 20
	case retention > 80:
		plan.NewContentPct, plan.ReviewPct, plan.PracticePct = 50, 30, 20
	default:
		plan.NewContentPct, plan.ReviewPct, plan.PracticePct = 40, 40, 20
	}
	return plan
}
