package analytics

import (
	"math"

	"github.com/veralingo/veralingo-backend/internal/types"
)

// SkillForTask maps a task kind onto the four-skill model. Fill-in-blank
// exercises train production (writing); multiple-choice and matching are
// recognition tasks (reading).
func SkillForTask(kind types.TaskKind) (types.Skill, bool) {
	switch kind {
	case types.TaskKindListening:
		return types.SkillListening, true
	case types.TaskKindSpeaking:
		return types.SkillSpeaking, true
	case types.TaskKindFillInBlank:
		return types.SkillWriting, true
	case types.TaskKindMultipleChoice, types.TaskKindMatching:
		return types.SkillReading, true
	default:
		return "", false
	}
}

// skillLevel rewards both accuracy and practice volume: the log factor grows
// the level past the raw average as repetitions accumulate, saturating slowly.
func skillLevel(avgScore float64, tasksCompleted int) int {
	if tasksCompleted <= 0 {
		return 0
	}
	level := math.Round(avgScore * (1 + math.Log10(float64(tasksCompleted)+1)/10))
	if level > 100 {
		return 100
	}
	if level < 0 {
		return 0
	}
	return int(level)
}

// computeSkillMastery accumulates a simple running average score per skill
// over completed task lessons. All four skills are always present; untouched
// ones stay zeroed.
func computeSkillMastery(lessons []types.LessonActivity) map[types.Skill]types.SkillMastery {
	sums := map[types.Skill]float64{}
	counts := map[types.Skill]int{}
	last := map[types.Skill]*types.LessonActivity{}

	for i := range lessons {
		l := lessons[i]
		if l.Kind != types.LessonKindTask || l.Task == nil || !l.IsCompleted {
			continue
		}
		skill, ok := SkillForTask(l.TaskKind)
		if !ok {
			continue
		}
		sums[skill] += l.Task.Score
		counts[skill]++
		if l.CompletedAt != nil {
			prev := last[skill]
			if prev == nil || prev.CompletedAt == nil || l.CompletedAt.After(*prev.CompletedAt) {
				last[skill] = &lessons[i]
			}
		}
	}

	out := make(map[types.Skill]types.SkillMastery, len(types.AllSkills))
	for _, skill := range types.AllSkills {
		m := types.SkillMastery{}
		if n := counts[skill]; n > 0 {
			m.TasksCompleted = n
			m.AverageScore = sums[skill] / float64(n)
			m.Level = skillLevel(m.AverageScore, n)
			if l := last[skill]; l != nil {
				m.LastPracticed = l.CompletedAt
			}
		}
		out[skill] = m
	}
	return out
}

// weakestSkill picks the lowest-level skill; ties resolve in the fixed
// AllSkills order so recommendations are deterministic.
func weakestSkill(skills map[types.Skill]types.SkillMastery) types.Skill {
	weakest := types.AllSkills[0]
	for _, s := range types.AllSkills[1:] {
		if skills[s].Level < skills[weakest].Level {
			weakest = s
		}
	}
	return weakest
}
