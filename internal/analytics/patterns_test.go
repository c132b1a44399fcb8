package analytics

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/veralingo/veralingo-backend/internal/types"
)

func TestTimeOfDayBucket(t *testing.T) {
	day := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		hour int
		want string
	}{
		{5, timeOfDayNight},
		{6, timeOfDayMorning},
		{11, timeOfDayMorning},
		{12, timeOfDayAfternoon},
		{17, timeOfDayAfternoon},
		{18, timeOfDayEvening},
		{21, timeOfDayEvening},
		{22, timeOfDayNight},
		{2, timeOfDayNight},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, timeOfDayBucket(day.Add(time.Duration(tt.hour)*time.Hour), time.UTC), "hour %d", tt.hour)
	}
}

func TestBestTimeOfDay(t *testing.T) {
	morning := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)
	evening := time.Date(2026, 8, 31, 19, 0, 0, 0, time.UTC)

	snap := snapshot{
		lessons: []types.LessonActivity{
			{LessonID: uuid.New(), StartedAt: evening},
			{LessonID: uuid.New(), StartedAt: evening.Add(time.Hour)},
		},
		sessions: []types.FlashcardSession{{ContentID: uuid.New(), StudiedAt: morning}},
	}
	require.Equal(t, timeOfDayEvening, bestTimeOfDay(snap, time.UTC))

	// No data defaults to morning; ties also resolve to morning.
	require.Equal(t, timeOfDayMorning, bestTimeOfDay(snapshot{}, time.UTC))
}

func TestPreferredContentKind(t *testing.T) {
	video := types.LessonActivity{LessonID: uuid.New(), Kind: types.LessonKindVideo}
	task := types.LessonActivity{LessonID: uuid.New(), Kind: types.LessonKindTask}

	require.Equal(t, contentKindVideo, preferredContentKind(snapshot{}))
	require.Equal(t, contentKindTask, preferredContentKind(snapshot{
		lessons: []types.LessonActivity{task, task, video},
	}))
	require.Equal(t, contentKindFlashcards, preferredContentKind(snapshot{
		lessons: []types.LessonActivity{video},
		sessions: []types.FlashcardSession{
			{ContentID: uuid.New()},
			{ContentID: uuid.New()},
		},
	}))
}

func TestComputeStudyPatternsStreaks(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	daily := []types.DailyLearning{
		{Date: DayStart(now, time.UTC), TotalStudyTime: 1800},
		{Date: DayStart(now.AddDate(0, 0, -1), time.UTC), TotalStudyTime: 1800},
		// Gap at -2.
		{Date: DayStart(now.AddDate(0, 0, -3), time.UTC), TotalStudyTime: 1800},
		{Date: DayStart(now.AddDate(0, 0, -4), time.UTC), TotalStudyTime: 1800},
		{Date: DayStart(now.AddDate(0, 0, -5), time.UTC), TotalStudyTime: 1800},
	}
	got := computeStudyPatterns(snapshot{daily: daily}, now, time.UTC)

	require.Equal(t, 2, got.CurrentStreak)
	require.Equal(t, 3, got.LongestStreak)
	require.Equal(t, 5, got.WeeklyFrequency)
	// 5 x 1800s over 5 active days = 30 minutes per day.
	require.InDelta(t, 30, got.AvgSessionMinutes, 1e-9)
}

func TestComputeStudyPatternsNoActivityToday(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	daily := []types.DailyLearning{
		{Date: DayStart(now.AddDate(0, 0, -1), time.UTC), TotalStudyTime: 600},
	}
	got := computeStudyPatterns(snapshot{daily: daily}, now, time.UTC)

	// A streak must end today.
	require.Zero(t, got.CurrentStreak)
	require.Equal(t, 1, got.LongestStreak)
}
