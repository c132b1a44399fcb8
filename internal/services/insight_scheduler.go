package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/veralingo/veralingo-backend/internal/logger"
	"github.com/veralingo/veralingo-backend/internal/repos"
	"github.com/veralingo/veralingo-backend/internal/types"
)

// InsightScheduler decides when a user's insights are recomputed. Every
// activity-tracking write calls ScheduleRecompute; bursts within the debounce
// window collapse into one queued job per user.
type InsightScheduler interface {
	// ScheduleRecompute is an idempotent, debounced enqueue. It returns false
	// without error when a queued job already exists for the user (a running
	// job does not block a new one from queueing behind it).
	ScheduleRecompute(ctx context.Context, userID uuid.UUID) (bool, error)
	// ForceRecompute cancels any pending delayed job and enqueues an immediate
	// high-priority one. Used for admin/manual triggers.
	ForceRecompute(ctx context.Context, userID uuid.UUID) (*types.JobRun, error)
}

const forcePriority = 10

type insightScheduler struct {
	db       *gorm.DB
	log      *logger.Logger
	jobs     repos.JobRunRepo
	debounce time.Duration
}

func NewInsightScheduler(db *gorm.DB, baseLog *logger.Logger, jobs repos.JobRunRepo, debounce time.Duration) InsightScheduler {
	if debounce <= 0 {
		debounce = 5 * time.Second
	}
	return &insightScheduler{
		db:       db,
		log:      baseLog.With("service", "InsightScheduler"),
		jobs:     jobs,
		debounce: debounce,
	}
}

func (s *insightScheduler) ScheduleRecompute(ctx context.Context, userID uuid.UUID) (bool, error) {
	if userID == uuid.Nil {
		return false, fmt.Errorf("missing user_id")
	}
	// Dedup on queued only: a second recompute may queue up immediately behind
	// a running one, so back-to-back recomputes for the same user are normal.
	exists, err := s.jobs.ExistsWithStatus(ctx, s.db, userID, types.JobTypeInsightRecompute, []string{types.JobStatusQueued})
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	_, err = s.enqueue(ctx, userID, time.Now().Add(s.debounce), 0)
	if err != nil {
		return false, err
	}
	s.log.Debug("Recompute scheduled", "user_id", userID, "debounce", s.debounce)
	return true, nil
}

func (s *insightScheduler) ForceRecompute(ctx context.Context, userID uuid.UUID) (*types.JobRun, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("missing user_id")
	}
	canceled, err := s.jobs.CancelPending(ctx, s.db, userID, types.JobTypeInsightRecompute)
	if err != nil {
		return nil, err
	}
	if canceled > 0 {
		s.log.Debug("Canceled pending recompute before force", "user_id", userID, "canceled", canceled)
	}
	job, err := s.enqueue(ctx, userID, time.Now(), forcePriority)
	if err != nil {
		return nil, err
	}
	return job, nil
}

func (s *insightScheduler) enqueue(ctx context.Context, userID uuid.UUID, runAfter time.Time, priority int) (*types.JobRun, error) {
	now := time.Now()
	job := &types.JobRun{
		ID:        uuid.New(),
		UserID:    userID,
		JobType:   types.JobTypeInsightRecompute,
		DedupKey:  types.JobTypeInsightRecompute + ":" + userID.String(),
		Status:    types.JobStatusQueued,
		Priority:  priority,
		RunAfter:  runAfter,
		Payload:   datatypes.JSON([]byte(fmt.Sprintf(`{"user_id":%q}`, userID))),
		CreatedAt: now,
		UpdatedAt: now,
	}
	created, err := s.jobs.Create(ctx, s.db, job)
	if err != nil {
		return nil, fmt.Errorf("create recompute job: %w", err)
	}
	return created, nil
}
