package analytics

import (
	"time"

	"github.com/veralingo/veralingo-backend/internal/types"
)

const (
	timeOfDayMorning   = "morning"
	timeOfDayAfternoon = "afternoon"
	timeOfDayEvening   = "evening"
	timeOfDayNight     = "night"
)

const (
	contentKindVideo      = "video"
	contentKindTask       = "task"
	contentKindFlashcards = "flashcards"
)

// timeOfDayBucket: morning 06-12, afternoon 12-18, evening 18-22, night else.
func timeOfDayBucket(t time.Time, loc *time.Location) string {
	hour := t.In(loc).Hour()
	switch {
	case hour >= 6 && hour < 12:
		return timeOfDayMorning
	case hour >= 12 && hour < 18:
		return timeOfDayAfternoon
	case hour >= 18 && hour < 22:
		return timeOfDayEvening
	default:
		return timeOfDayNight
	}
}

// bestTimeOfDay picks the mode bucket over actual study moments (lesson
// starts, flashcard sessions, card reviews). Daily rollup dates are midnight-
// normalized and carry no time-of-day signal, so they are not used here.
// Defaults to morning with no data; ties resolve morning first.
func bestTimeOfDay(snap snapshot, loc *time.Location) string {
	counts := map[string]int{}
	for _, l := range snap.lessons {
		counts[timeOfDayBucket(l.StartedAt, loc)]++
	}
	for _, s := range snap.sessions {
		counts[timeOfDayBucket(s.StudiedAt, loc)]++
	}
	for _, r := range snap.reviews {
		counts[timeOfDayBucket(r.ReviewedAt, loc)]++
	}
	best := timeOfDayMorning
	for _, bucket := range []string{timeOfDayMorning, timeOfDayAfternoon, timeOfDayEvening, timeOfDayNight} {
		if counts[bucket] > counts[best] {
			best = bucket
		}
	}
	return best
}

// preferredContentKind is whichever of video lessons, task lessons, or
// flashcard sessions the user has touched most. Ties favor video, then task.
func preferredContentKind(snap snapshot) string {
	video, task := 0, 0
	for _, l := range snap.lessons {
		switch l.Kind {
		case types.LessonKindVideo:
			video++
		case types.LessonKindTask:
			task++
		}
	}
	flashcards := len(snap.sessions)
	switch {
	case video >= task && video >= flashcards:
		return contentKindVideo
	case task >= flashcards:
		return contentKindTask
	default:
		return contentKindFlashcards
	}
}

func computeStudyPatterns(snap snapshot, now time.Time, loc *time.Location) types.StudyPatterns {
	dates := make([]time.Time, 0, len(snap.daily))
	var totalStudySeconds int
	for _, d := range snap.daily {
		dates = append(dates, d.Date)
		totalStudySeconds += d.TotalStudyTime
	}
	set := daySet(dates, loc)
	today := NormalizeDay(now, loc)

	var avgSessionMinutes float64
	if len(set) > 0 {
		avgSessionMinutes = float64(totalStudySeconds) / 60 / float64(len(set))
	}

	weeklyFrequency := 0
	for i := 0; i < 7; i++ {
		if set[today.AddDays(-i, loc)] {
			weeklyFrequency++
		}
	}

	return types.StudyPatterns{
		BestTimeOfDay:        bestTimeOfDay(snap, loc),
		AvgSessionMinutes:    avgSessionMinutes,
		WeeklyFrequency:      weeklyFrequency,
		CurrentStreak:        runEndingAt(set, today, loc),
		LongestStreak:        longestRun(set, loc),
		PreferredContentKind: preferredContentKind(snap),
	}
}
