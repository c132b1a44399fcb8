package analytics

import (
	"time"

	"github.com/veralingo/veralingo-backend/internal/types"
)

// blendedScores collects the "score" data points inside [from, to): completed
// task lesson percentages blended with flashcard session correct rates. The
// two kinds deliberately carry equal weight per data point.
func blendedScores(snap snapshot, from, to time.Time) (avg float64, count int) {
	var sum float64
	for _, l := range snap.lessons {
		if l.Kind != types.LessonKindTask || l.Task == nil || !l.IsCompleted || l.CompletedAt == nil {
			continue
		}
		if l.CompletedAt.Before(from) || !l.CompletedAt.Before(to) {
			continue
		}
		sum += l.Task.Score
		count++
	}
	for _, s := range snap.sessions {
		if s.StudiedAt.Before(from) || !s.StudiedAt.Before(to) {
			continue
		}
		if s.CardsStudied <= 0 {
			continue
		}
		sum += float64(s.CorrectAnswers) / float64(s.CardsStudied) * 100
		count++
	}
	if count == 0 {
		return 0, 0
	}
	return sum / float64(count), count
}

// weeklyProgressPct compares the trailing 7 days against the 7 before them.
// No prior-week data (or a flat zero prior score) collapses to the 100/0 rule
// so a fresh start never divides by zero. Result is clamped to [-100, 100].
func weeklyProgressPct(snap snapshot, now time.Time) float64 {
	thisAvg, thisCount := blendedScores(snap, now.AddDate(0, 0, -7), now)
	lastAvg, lastCount := blendedScores(snap, now.AddDate(0, 0, -14), now.AddDate(0, 0, -7))

	if lastCount == 0 {
		if thisCount > 0 {
			return 100
		}
		return 0
	}
	if lastAvg == 0 {
		if thisAvg > 0 {
			return 100
		}
		return 0
	}
	pct := (thisAvg - lastAvg) / lastAvg * 100
	if pct > 100 {
		return 100
	}
	if pct < -100 {
		return -100
	}
	return pct
}

// consistencyPct is the fraction of the last 7 calendar days (today included)
// that have a daily learning record.
func consistencyPct(daily []types.DailyLearning, now time.Time, loc *time.Location) float64 {
	if len(daily) == 0 {
		return 0
	}
	set := map[DayKey]bool{}
	for _, d := range daily {
		set[NormalizeDay(d.Date, loc)] = true
	}
	today := NormalizeDay(now, loc)
	active := 0
	for i := 0; i < 7; i++ {
		if set[today.AddDays(-i, loc)] {
			active++
		}
	}
	return float64(active) / 7 * 100
}

// retentionPct is the correct-answer ratio across flashcard sessions in the
// trailing 7 days, zero when there are none.
func retentionPct(sessions []types.FlashcardSession, now time.Time) float64 {
	from := now.AddDate(0, 0, -7)
	studied, correct := 0, 0
	for _, s := range sessions {
		if s.StudiedAt.Before(from) || s.StudiedAt.After(now) {
			continue
		}
		studied += s.CardsStudied
		correct += s.CorrectAnswers
	}
	if studied == 0 {
		return 0
	}
	return float64(correct) / float64(studied) * 100
}

// overallLevel classifies the blended average score over full history.
func overallLevel(snap snapshot) types.OverallLevel {
	avg, count := blendedScores(snap, time.Time{}, maxTime)
	if count == 0 {
		return types.LevelBeginner
	}
	switch {
	case avg < 60:
		return types.LevelBeginner
	case avg < 80:
		return types.LevelIntermediate
	default:
		return types.LevelAdvanced
	}
}

var maxTime = time.Unix(1<<62, 0)
