package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/veralingo/veralingo-backend/internal/logger"
	"github.com/veralingo/veralingo-backend/internal/types"
)

func TestScheduleRecomputeDebouncesDuplicates(t *testing.T) {
	repo := newFakeJobRunRepo()
	scheduler := NewInsightScheduler(nil, logger.NewNop(), repo, 5*time.Second)
	userID := uuid.New()
	ctx := context.Background()

	before := time.Now()
	scheduled, err := scheduler.ScheduleRecompute(ctx, userID)
	require.NoError(t, err)
	require.True(t, scheduled)

	// A burst of writes collapses into the one queued job.
	for i := 0; i < 5; i++ {
		scheduled, err = scheduler.ScheduleRecompute(ctx, userID)
		require.NoError(t, err)
		require.False(t, scheduled)
	}

	queued := repo.byStatus(types.JobTypeInsightRecompute, types.JobStatusQueued)
	require.Len(t, queued, 1)
	require.Equal(t, userID, queued[0].UserID)
	// The debounce delay is encoded in run_after.
	require.True(t, queued[0].RunAfter.After(before.Add(4*time.Second)))
	require.True(t, queued[0].RunAfter.Before(before.Add(10*time.Second)))
}

func TestScheduleRecomputeIndependentUsers(t *testing.T) {
	repo := newFakeJobRunRepo()
	scheduler := NewInsightScheduler(nil, logger.NewNop(), repo, 5*time.Second)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		scheduled, err := scheduler.ScheduleRecompute(ctx, uuid.New())
		require.NoError(t, err)
		require.True(t, scheduled)
	}
	require.Len(t, repo.byStatus(types.JobTypeInsightRecompute, types.JobStatusQueued), 3)
}

func TestScheduleRecomputeAllowsQueueingBehindRunningJob(t *testing.T) {
	repo := newFakeJobRunRepo()
	scheduler := NewInsightScheduler(nil, logger.NewNop(), repo, time.Millisecond)
	userID := uuid.New()
	ctx := context.Background()

	scheduled, err := scheduler.ScheduleRecompute(ctx, userID)
	require.NoError(t, err)
	require.True(t, scheduled)

	time.Sleep(5 * time.Millisecond)
	claimed, err := repo.ClaimNextRunnable(ctx, nil, types.JobTypeInsightRecompute, time.Minute)
	require.NoError(t, err)
	require.NotNil(t, claimed)

	// New activity while a recompute runs must queue a fresh job, or the last
	// writes would never be reflected.
	scheduled, err = scheduler.ScheduleRecompute(ctx, userID)
	require.NoError(t, err)
	require.True(t, scheduled)
	require.Len(t, repo.byStatus(types.JobTypeInsightRecompute, types.JobStatusQueued), 1)
	require.Len(t, repo.byStatus(types.JobTypeInsightRecompute, types.JobStatusRunning), 1)
}

func TestForceRecomputeCancelsPendingAndJumpsQueue(t *testing.T) {
	repo := newFakeJobRunRepo()
	scheduler := NewInsightScheduler(nil, logger.NewNop(), repo, time.Hour)
	userID := uuid.New()
	ctx := context.Background()

	scheduled, err := scheduler.ScheduleRecompute(ctx, userID)
	require.NoError(t, err)
	require.True(t, scheduled)

	job, err := scheduler.ForceRecompute(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, job)
	require.Equal(t, types.JobStatusQueued, job.Status)
	require.Equal(t, forcePriority, job.Priority)
	require.False(t, job.RunAfter.After(time.Now()))

	// The debounced job was canceled, not left to run twice.
	require.Len(t, repo.byStatus(types.JobTypeInsightRecompute, types.JobStatusCanceled), 1)
	queued := repo.byStatus(types.JobTypeInsightRecompute, types.JobStatusQueued)
	require.Len(t, queued, 1)
	require.Equal(t, job.ID, queued[0].ID)
}

func TestScheduleRecomputeRejectsNilUser(t *testing.T) {
	scheduler := NewInsightScheduler(nil, logger.NewNop(), newFakeJobRunRepo(), time.Second)
	_, err := scheduler.ScheduleRecompute(context.Background(), uuid.Nil)
	require.Error(t, err)
	_, err = scheduler.ForceRecompute(context.Background(), uuid.Nil)
	require.Error(t, err)
}
