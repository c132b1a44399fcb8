package repos

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/veralingo/veralingo-backend/internal/logger"
	"github.com/veralingo/veralingo-backend/internal/types"
)

// openTestDB backs the repos with in-memory sqlite. The schema is created by
// hand because the production column defaults are postgres-only.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "repos_test.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	stmts := []string{
		`CREATE TABLE user_insights (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL UNIQUE,
			performance TEXT,
			analysis TEXT,
			study_patterns TEXT,
			recommendations TEXT,
			predictions TEXT,
			advice_message TEXT,
			advice_tone TEXT,
			advice_generated_at DATETIME,
			confidence_pct INTEGER NOT NULL DEFAULT 0,
			data_point_count INTEGER NOT NULL DEFAULT 0,
			last_updated DATETIME,
			last_synced_at DATETIME,
			created_at DATETIME,
			updated_at DATETIME
		)`,
		`CREATE TABLE user_activity (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL UNIQUE,
			lesson_activities TEXT,
			flashcard_sessions TEXT,
			card_reviews TEXT,
			course_activities TEXT,
			daily_learning TEXT,
			created_at DATETIME,
			updated_at DATETIME
		)`,
		`CREATE TABLE job_run (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			job_type TEXT NOT NULL,
			dedup_key TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'queued',
			priority INTEGER NOT NULL DEFAULT 0,
			run_after DATETIME,
			attempts INTEGER NOT NULL DEFAULT 0,
			last_error TEXT,
			last_error_at DATETIME,
			heartbeat_at DATETIME,
			started_at DATETIME,
			finished_at DATETIME,
			payload TEXT,
			created_at DATETIME,
			updated_at DATETIME
		)`,
	}
	for _, stmt := range stmts {
		require.NoError(t, db.Exec(stmt).Error)
	}
	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func sampleInsights(userID uuid.UUID, now time.Time) *types.UserInsights {
	return &types.UserInsights{
		UserID: userID,
		Performance: datatypes.NewJSONType(types.Performance{
			OverallLevel:      types.LevelIntermediate,
			WeeklyProgressPct: 25,
			ConsistencyPct:    57.14,
			RetentionPct:      80,
		}),
		Analysis: datatypes.NewJSONType(types.Analysis{
			SkillMastery: map[types.Skill]types.SkillMastery{
				types.SkillListening: {Level: 86, TasksCompleted: 4, AverageScore: 80},
			},
		}),
		StudyPatterns: datatypes.NewJSONType(types.StudyPatterns{
			BestTimeOfDay:        "evening",
			CurrentStreak:        3,
			PreferredContentKind: "task",
		}),
		Recommendations: datatypes.NewJSONType(types.Recommendations{
			StudyPlan: types.StudyPlan{DailyMinutes: 30, NewContentPct: 40, ReviewPct: 40, PracticePct: 20},
		}),
		Predictions:    datatypes.NewJSONType(types.Predictions{}),
		ConfidencePct:  62,
		DataPointCount: 24,
		LastUpdated:    now,
	}
}

func TestUserInsightsUpsertRoundTrip(t *testing.T) {
	db := openTestDB(t)
	repo := NewUserInsightsRepo(db, logger.NewNop())
	ctx := context.Background()
	userID := uuid.New()
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	_, err := repo.UpsertComputed(ctx, nil, sampleInsights(userID, now))
	require.NoError(t, err)

	got, err := repo.GetByUserID(ctx, nil, userID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, userID, got.UserID)
	require.Equal(t, 62, got.ConfidencePct)
	require.Equal(t, 24, got.DataPointCount)

	perf := got.Performance.Data()
	require.Equal(t, types.LevelIntermediate, perf.OverallLevel)
	require.InDelta(t, 57.14, perf.ConsistencyPct, 1e-9)

	analysis := got.Analysis.Data()
	require.Equal(t, 86, analysis.SkillMastery[types.SkillListening].Level)
}

func TestUpsertComputedPreservesAdviceColumns(t *testing.T) {
	db := openTestDB(t)
	repo := NewUserInsightsRepo(db, logger.NewNop())
	ctx := context.Background()
	userID := uuid.New()
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	_, err := repo.UpsertComputed(ctx, nil, sampleInsights(userID, now))
	require.NoError(t, err)
	require.NoError(t, repo.UpdateAdvice(ctx, nil, userID, "Keep at it!", "supportive", now))

	// A later recompute replaces the computed sections only.
	updated := sampleInsights(userID, now.Add(time.Hour))
	updated.ConfidencePct = 70
	_, err = repo.UpsertComputed(ctx, nil, updated)
	require.NoError(t, err)

	got, err := repo.GetByUserID(ctx, nil, userID)
	require.NoError(t, err)
	require.Equal(t, 70, got.ConfidencePct)
	require.NotNil(t, got.AdviceMessage)
	require.Equal(t, "Keep at it!", *got.AdviceMessage)
	require.NotNil(t, got.AdviceTone)
	require.Equal(t, "supportive", *got.AdviceTone)
	require.NotNil(t, got.AdviceGeneratedAt)
}

func TestUpdateAdviceMissingRecord(t *testing.T) {
	db := openTestDB(t)
	repo := NewUserInsightsRepo(db, logger.NewNop())

	err := repo.UpdateAdvice(context.Background(), nil, uuid.New(), "msg", "tone", time.Now())
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestUserInsightsGetMissingReturnsNil(t *testing.T) {
	db := openTestDB(t)
	repo := NewUserInsightsRepo(db, logger.NewNop())

	got, err := repo.GetByUserID(context.Background(), nil, uuid.New())
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestUserActivityUpsertAndDelete(t *testing.T) {
	db := openTestDB(t)
	repo := NewUserActivityRepo(db, logger.NewNop())
	ctx := context.Background()
	userID := uuid.New()
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	doc := &types.UserActivity{
		UserID: userID,
		LessonActivities: datatypes.NewJSONType([]types.LessonActivity{
			{LessonID: uuid.New(), Kind: types.LessonKindVideo, StartedAt: now},
		}),
		DailyLearning: datatypes.NewJSONType([]types.DailyLearning{
			{Date: now, TotalStudyTime: 600, StreakDays: 1},
		}),
	}
	_, err := repo.Upsert(ctx, nil, doc)
	require.NoError(t, err)

	// Second upsert for the same user replaces the document in place.
	doc.DailyLearning = datatypes.NewJSONType([]types.DailyLearning{
		{Date: now, TotalStudyTime: 1200, StreakDays: 1},
	})
	_, err = repo.Upsert(ctx, nil, doc)
	require.NoError(t, err)

	got, err := repo.GetByUserID(ctx, nil, userID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Len(t, got.LessonActivities.Data(), 1)
	daily := got.DailyLearning.Data()
	require.Len(t, daily, 1)
	require.Equal(t, 1200, daily[0].TotalStudyTime)

	require.NoError(t, repo.DeleteByUserID(ctx, nil, userID))
	got, err = repo.GetByUserID(ctx, nil, userID)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestJobRunStatusTracking(t *testing.T) {
	db := openTestDB(t)
	repo := NewJobRunRepo(db, logger.NewNop())
	ctx := context.Background()
	userID := uuid.New()
	now := time.Now()

	job := &types.JobRun{
		UserID:   userID,
		JobType:  types.JobTypeInsightRecompute,
		DedupKey: types.JobTypeInsightRecompute + ":" + userID.String(),
		Status:   types.JobStatusQueued,
		RunAfter: now,
	}
	created, err := repo.Create(ctx, nil, job)
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, created.ID)

	exists, err := repo.ExistsWithStatus(ctx, nil, userID, types.JobTypeInsightRecompute, []string{types.JobStatusQueued})
	require.NoError(t, err)
	require.True(t, exists)

	exists, err = repo.ExistsWithStatus(ctx, nil, userID, types.JobTypeAIAdvice, []string{types.JobStatusQueued})
	require.NoError(t, err)
	require.False(t, exists)

	stats, err := repo.CountsByType(ctx, nil, types.JobTypeInsightRecompute)
	require.NoError(t, err)
	require.Equal(t, int64(1), stats.Waiting)

	canceled, err := repo.CancelPending(ctx, nil, userID, types.JobTypeInsightRecompute)
	require.NoError(t, err)
	require.Equal(t, int64(1), canceled)

	stats, err = repo.CountsByType(ctx, nil, types.JobTypeInsightRecompute)
	require.NoError(t, err)
	require.Zero(t, stats.Waiting)
	require.Equal(t, int64(1), stats.Canceled)

	// Canceling again is a no-op.
	canceled, err = repo.CancelPending(ctx, nil, userID, types.JobTypeInsightRecompute)
	require.NoError(t, err)
	require.Zero(t, canceled)
}
