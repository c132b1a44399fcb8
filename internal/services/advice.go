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

// AdviceService feeds the AI advice sub-queue. It never blocks the caller on
// the external AI endpoint; it only decides whether a job may be enqueued.
type AdviceService interface {
	// ScheduleAdvice returns false (no error) when an advice job is already in
	// flight for the user or the user is inside the minimum request interval.
	ScheduleAdvice(ctx context.Context, userID uuid.UUID) (bool, error)
	// ForceAdvice bypasses the interval check (the user asked explicitly) but
	// still refuses while a job is in flight.
	ForceAdvice(ctx context.Context, userID uuid.UUID) (bool, error)
}

type adviceService struct {
	db      *gorm.DB
	log     *logger.Logger
	jobs    repos.JobRunRepo
	limiter RateLimiter
}

func NewAdviceService(db *gorm.DB, baseLog *logger.Logger, jobs repos.JobRunRepo, limiter RateLimiter) AdviceService {
	return &adviceService{
		db:      db,
		log:     baseLog.With("service", "AdviceService"),
		jobs:    jobs,
		limiter: limiter,
	}
}

func (s *adviceService) ScheduleAdvice(ctx context.Context, userID uuid.UUID) (bool, error) {
	if userID == uuid.Nil {
		return false, fmt.Errorf("missing user_id")
	}
	inFlight, err := s.inFlight(ctx, userID)
	if err != nil {
		return false, err
	}
	if inFlight {
		return false, nil
	}
	allowed, err := s.limiter.Allow(ctx, userID.String())
	if err != nil {
		return false, err
	}
	if !allowed {
		s.log.Debug("Advice rate limited", "user_id", userID)
		return false, nil
	}
	if err := s.enqueue(ctx, userID, "auto", 0); err != nil {
		return false, err
	}
	return true, nil
}

func (s *adviceService) ForceAdvice(ctx context.Context, userID uuid.UUID) (bool, error) {
	if userID == uuid.Nil {
		return false, fmt.Errorf("missing user_id")
	}
	inFlight, err := s.inFlight(ctx, userID)
	if err != nil {
		return false, err
	}
	if inFlight {
		return false, nil
	}
	// Forced requests skip the interval check but still reset the window so an
	// automatic request right after stays throttled.
	if err := s.limiter.Mark(ctx, userID.String()); err != nil {
		s.log.Warn("Failed to mark advice rate limit", "user_id", userID, "error", err)
	}
	if err := s.enqueue(ctx, userID, "forced", forcePriority); err != nil {
		return false, err
	}
	return true, nil
}

func (s *adviceService) inFlight(ctx context.Context, userID uuid.UUID) (bool, error) {
	return s.jobs.ExistsWithStatus(ctx, s.db, userID, types.JobTypeAIAdvice,
		[]string{types.JobStatusQueued, types.JobStatusRunning})
}

func (s *adviceService) enqueue(ctx context.Context, userID uuid.UUID, kind string, priority int) error {
	now := time.Now()
	job := &types.JobRun{
		ID:        uuid.New(),
		UserID:    userID,
		JobType:   types.JobTypeAIAdvice,
		DedupKey:  types.JobTypeAIAdvice + ":" + userID.String() + ":" + kind,
		Status:    types.JobStatusQueued,
		Priority:  priority,
		RunAfter:  now,
		Payload:   datatypes.JSON([]byte(fmt.Sprintf(`{"user_id":%q,"kind":%q}`, userID, kind))),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.jobs.Create(ctx, s.db, job); err != nil {
		return fmt.Errorf("create advice job: %w", err)
	}
	s.log.Debug("Advice job enqueued", "user_id", userID, "kind", kind)
	return nil
}
