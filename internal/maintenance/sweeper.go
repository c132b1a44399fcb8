package maintenance

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"gorm.io/gorm"

	"github.com/veralingo/veralingo-backend/internal/logger"
	"github.com/veralingo/veralingo-backend/internal/observability"
	"github.com/veralingo/veralingo-backend/internal/repos"
	"github.com/veralingo/veralingo-backend/internal/services"
	"github.com/veralingo/veralingo-backend/internal/types"
)

const (
	sweepInterval = 15 * time.Minute
	staleAfter    = 24 * time.Hour
	sweepBatch    = 200
)

// Sweeper runs periodic maintenance: re-enqueue recomputes for users whose
// insights have gone stale relative to their activity, and refresh the queue
// depth gauges.
type Sweeper struct {
	db           *gorm.DB
	log          *logger.Logger
	activityRepo repos.UserActivityRepo
	jobRepo      repos.JobRunRepo
	scheduler    services.InsightScheduler
	metrics      *observability.Metrics
	cron         *gocron.Scheduler
}

func NewSweeper(db *gorm.DB, baseLog *logger.Logger, activityRepo repos.UserActivityRepo, jobRepo repos.JobRunRepo, scheduler services.InsightScheduler, metrics *observability.Metrics) *Sweeper {
	return &Sweeper{
		db:           db,
		log:          baseLog.With("component", "Sweeper"),
		activityRepo: activityRepo,
		jobRepo:      jobRepo,
		scheduler:    scheduler,
		metrics:      metrics,
		cron:         gocron.NewScheduler(time.UTC),
	}
}

func (s *Sweeper) Start() error {
	if _, err := s.cron.Every(sweepInterval).Do(s.sweep); err != nil {
		return err
	}
	s.cron.StartAsync()
	s.log.Info("Maintenance sweeper started", "interval", sweepInterval.String())
	return nil
}

func (s *Sweeper) Stop() {
	s.cron.Stop()
}

func (s *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	s.refreshStaleInsights(ctx)
	s.refreshQueueGauges(ctx)
}

func (s *Sweeper) refreshStaleInsights(ctx context.Context) {
	cutoff := time.Now().Add(-staleAfter)
	userIDs, err := s.activityRepo.StaleInsightsUserIDs(ctx, nil, cutoff, sweepBatch)
	if err != nil {
		s.log.Error("Stale insights lookup failed", "error", err)
		return
	}
	scheduled := 0
	for _, userID := range userIDs {
		ok, err := s.scheduler.ScheduleRecompute(ctx, userID)
		if err != nil {
			s.log.Warn("Failed to schedule stale recompute", "user_id", userID, "error", err)
			continue
		}
		if ok {
			scheduled++
		}
	}
	if len(userIDs) > 0 {
		s.log.Info("Stale insights sweep complete", "candidates", len(userIDs), "scheduled", scheduled)
	}
}

func (s *Sweeper) refreshQueueGauges(ctx context.Context) {
	for _, jobType := range []string{types.JobTypeInsightRecompute, types.JobTypeAIAdvice} {
		stats, err := s.jobRepo.CountsByType(ctx, nil, jobType)
		if err != nil {
			s.log.Warn("Queue depth refresh failed", "job_type", jobType, "error", err)
			continue
		}
		s.metrics.SetQueueDepth(jobType, "waiting", stats.Waiting)
		s.metrics.SetQueueDepth(jobType, "active", stats.Active)
		s.metrics.SetQueueDepth(jobType, "completed", stats.Completed)
		s.metrics.SetQueueDepth(jobType, "failed", stats.Failed)
		s.metrics.SetQueueDepth(jobType, "canceled", stats.Canceled)
	}
}
