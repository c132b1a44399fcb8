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

func TestScheduleAdviceRateLimitsPerUser(t *testing.T) {
	repo := newFakeJobRunRepo()
	limiter := NewMemoryRateLimiter(time.Hour)
	svc := NewAdviceService(nil, logger.NewNop(), repo, limiter)
	userID := uuid.New()
	ctx := context.Background()

	scheduled, err := svc.ScheduleAdvice(ctx, userID)
	require.NoError(t, err)
	require.True(t, scheduled)

	// Mark the job done so the in-flight check is out of the picture: the
	// second refusal comes purely from the interval.
	queued := repo.byStatus(types.JobTypeAIAdvice, types.JobStatusQueued)
	require.Len(t, queued, 1)
	require.NoError(t, repo.UpdateFields(ctx, nil, queued[0].ID, map[string]interface{}{"status": types.JobStatusSucceeded}))

	scheduled, err = svc.ScheduleAdvice(ctx, userID)
	require.NoError(t, err)
	require.False(t, scheduled)

	// A different user has an independent window.
	scheduled, err = svc.ScheduleAdvice(ctx, uuid.New())
	require.NoError(t, err)
	require.True(t, scheduled)
}

func TestScheduleAdviceRefusesWhileInFlight(t *testing.T) {
	repo := newFakeJobRunRepo()
	svc := NewAdviceService(nil, logger.NewNop(), repo, NewMemoryRateLimiter(0))
	userID := uuid.New()
	ctx := context.Background()

	scheduled, err := svc.ScheduleAdvice(ctx, userID)
	require.NoError(t, err)
	require.True(t, scheduled)

	// Queued counts as in flight.
	scheduled, err = svc.ScheduleAdvice(ctx, userID)
	require.NoError(t, err)
	require.False(t, scheduled)

	// Running does too.
	claimed, err := repo.ClaimNextRunnable(ctx, nil, types.JobTypeAIAdvice, time.Minute)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	scheduled, err = svc.ScheduleAdvice(ctx, userID)
	require.NoError(t, err)
	require.False(t, scheduled)
}

func TestForceAdviceBypassesIntervalButResetsWindow(t *testing.T) {
	repo := newFakeJobRunRepo()
	limiter := NewMemoryRateLimiter(time.Hour)
	svc := NewAdviceService(nil, logger.NewNop(), repo, limiter)
	userID := uuid.New()
	ctx := context.Background()

	// Exhaust the window with an automatic request.
	scheduled, err := svc.ScheduleAdvice(ctx, userID)
	require.NoError(t, err)
	require.True(t, scheduled)
	queued := repo.byStatus(types.JobTypeAIAdvice, types.JobStatusQueued)
	require.NoError(t, repo.UpdateFields(ctx, nil, queued[0].ID, map[string]interface{}{"status": types.JobStatusSucceeded}))

	// Forced goes through anyway, at high priority.
	scheduled, err = svc.ForceAdvice(ctx, userID)
	require.NoError(t, err)
	require.True(t, scheduled)
	queued = repo.byStatus(types.JobTypeAIAdvice, types.JobStatusQueued)
	require.Len(t, queued, 1)
	require.Equal(t, forcePriority, queued[0].Priority)
	require.NoError(t, repo.UpdateFields(ctx, nil, queued[0].ID, map[string]interface{}{"status": types.JobStatusSucceeded}))

	// The forced request restarted the interval for automatic ones.
	scheduled, err = svc.ScheduleAdvice(ctx, userID)
	require.NoError(t, err)
	require.False(t, scheduled)
}

func TestForceAdviceStillRefusesWhileInFlight(t *testing.T) {
	repo := newFakeJobRunRepo()
	svc := NewAdviceService(nil, logger.NewNop(), repo, NewMemoryRateLimiter(0))
	userID := uuid.New()
	ctx := context.Background()

	scheduled, err := svc.ForceAdvice(ctx, userID)
	require.NoError(t, err)
	require.True(t, scheduled)

	scheduled, err = svc.ForceAdvice(ctx, userID)
	require.NoError(t, err)
	require.False(t, scheduled)
}

func TestMemoryRateLimiter(t *testing.T) {
	limiter := NewMemoryRateLimiter(time.Hour).(*memoryRateLimiter)
	current := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return current }
	ctx := context.Background()

	ok, err := limiter.Allow(ctx, "u1")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = limiter.Allow(ctx, "u1")
	require.NoError(t, err)
	require.False(t, ok)

	// Other keys are unaffected.
	ok, err = limiter.Allow(ctx, "u2")
	require.NoError(t, err)
	require.True(t, ok)

	// Once the interval elapses the key opens again.
	current = current.Add(61 * time.Minute)
	ok, err = limiter.Allow(ctx, "u1")
	require.NoError(t, err)
	require.True(t, ok)

	// Mark resets the window unconditionally.
	require.NoError(t, limiter.Mark(ctx, "u1"))
	ok, err = limiter.Allow(ctx, "u1")
	require.NoError(t, err)
	require.False(t, ok)
}
