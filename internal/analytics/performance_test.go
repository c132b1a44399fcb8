package analytics

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/veralingo/veralingo-backend/internal/types"
)

func sessionAt(studiedAt time.Time, studied, correct int) types.FlashcardSession {
	return types.FlashcardSession{
		ContentID:      uuid.New(),
		CardsStudied:   studied,
		CorrectAnswers: correct,
		StudiedAt:      studiedAt,
	}
}

func TestWeeklyProgressPct(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	thisWeek := now.AddDate(0, 0, -2)
	lastWeek := now.AddDate(0, 0, -10)

	tests := []struct {
		name string
		snap snapshot
		want float64
	}{
		{
			name: "no data at all",
			snap: snapshot{},
			want: 0,
		},
		{
			name: "current data without prior week reads as full progress",
			snap: snapshot{sessions: []types.FlashcardSession{sessionAt(thisWeek, 10, 8)}},
			want: 100,
		},
		{
			name: "prior week with zero score and improvement",
			snap: snapshot{sessions: []types.FlashcardSession{
				sessionAt(lastWeek, 10, 0),
				sessionAt(thisWeek, 10, 6),
			}},
			want: 100,
		},
		{
			name: "fifty percent improvement",
			snap: snapshot{sessions: []types.FlashcardSession{
				sessionAt(lastWeek, 10, 5),
				sessionAt(thisWeek, 10, 7),
				sessionAt(thisWeek.Add(time.Hour), 10, 8),
			}},
			want: 50,
		},
		{
			name: "decline",
			snap: snapshot{sessions: []types.FlashcardSession{
				sessionAt(lastWeek, 10, 8),
				sessionAt(thisWeek, 10, 4),
			}},
			want: -50,
		},
		{
			name: "clamped at plus one hundred",
			snap: snapshot{sessions: []types.FlashcardSession{
				sessionAt(lastWeek, 10, 1),
				sessionAt(thisWeek, 10, 9),
			}},
			want: 100,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.InDelta(t, tt.want, weeklyProgressPct(tt.snap, now), 1e-9)
		})
	}
}

func TestConsistencyPct(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	require.Zero(t, consistencyPct(nil, now, time.UTC))

	daily := []types.DailyLearning{
		{Date: DayStart(now, time.UTC)},
		{Date: DayStart(now.AddDate(0, 0, -1), time.UTC)},
		{Date: DayStart(now.AddDate(0, 0, -3), time.UTC)},
		// Outside the window, must not count.
		{Date: DayStart(now.AddDate(0, 0, -9), time.UTC)},
	}
	require.InDelta(t, 3.0/7*100, consistencyPct(daily, now, time.UTC), 1e-9)

	full := make([]types.DailyLearning, 0, 7)
	for i := 0; i < 7; i++ {
		full = append(full, types.DailyLearning{Date: DayStart(now.AddDate(0, 0, -i), time.UTC)})
	}
	require.InDelta(t, 100, consistencyPct(full, now, time.UTC), 1e-9)
}

func TestRetentionPct(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	require.Zero(t, retentionPct(nil, now))

	sessions := []types.FlashcardSession{
		sessionAt(now.AddDate(0, 0, -1), 10, 8),
		sessionAt(now.AddDate(0, 0, -2), 10, 6),
		// Older than 7 days, excluded.
		sessionAt(now.AddDate(0, 0, -20), 10, 0),
	}
	require.InDelta(t, 70, retentionPct(sessions, now), 1e-9)
}

func TestOverallLevelBands(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	mk := func(score float64) snapshot {
		return snapshot{lessons: []types.LessonActivity{completedTaskLesson(types.TaskKindListening, score, now)}}
	}
	require.Equal(t, types.LevelBeginner, overallLevel(snapshot{}))
	require.Equal(t, types.LevelBeginner, overallLevel(mk(59)))
	require.Equal(t, types.LevelIntermediate, overallLevel(mk(60)))
	require.Equal(t, types.LevelIntermediate, overallLevel(mk(79)))
	require.Equal(t, types.LevelAdvanced, overallLevel(mk(80)))
}
