package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/veralingo/veralingo-backend/internal/logger"
	"github.com/veralingo/veralingo-backend/internal/repos"
	"github.com/veralingo/veralingo-backend/internal/types"
)

// QueueStatsService exposes read-only queue introspection for operational
// monitoring. No side effects.
type QueueStatsService interface {
	Stats(ctx context.Context) (map[string]types.QueueStats, error)
	RecentFailed(ctx context.Context, jobType string, limit int) ([]*types.JobRun, error)
}

type queueStatsService struct {
	db   *gorm.DB
	log  *logger.Logger
	jobs repos.JobRunRepo
}

func NewQueueStatsService(db *gorm.DB, baseLog *logger.Logger, jobs repos.JobRunRepo) QueueStatsService {
	return &queueStatsService{
		db:   db,
		log:  baseLog.With("service", "QueueStatsService"),
		jobs: jobs,
	}
}

func (s *queueStatsService) Stats(ctx context.Context) (map[string]types.QueueStats, error) {
	out := map[string]types.QueueStats{}
	for _, jobType := range []string{types.JobTypeInsightRecompute, types.JobTypeAIAdvice} {
		stats, err := s.jobs.CountsByType(ctx, s.db, jobType)
		if err != nil {
			return nil, err
		}
		out[jobType] = stats
	}
	return out, nil
}

func (s *queueStatsService) RecentFailed(ctx context.Context, jobType string, limit int) ([]*types.JobRun, error) {
	return s.jobs.RecentFailed(ctx, s.db, jobType, limit)
}
