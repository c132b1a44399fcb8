package worker

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/veralingo/veralingo-backend/internal/jobs/runtime"
	"github.com/veralingo/veralingo-backend/internal/logger"
	"github.com/veralingo/veralingo-backend/internal/observability"
	"github.com/veralingo/veralingo-backend/internal/repos"
	"github.com/veralingo/veralingo-backend/internal/types"
)

// Worker drains one queue (one job_type) with a bounded pool of goroutines.
// The recompute and advice queues each get their own Worker so the expensive
// external advice calls can be throttled harder than recomputes.
type Worker struct {
	db           *gorm.DB
	log          *logger.Logger
	repo         repos.JobRunRepo
	registry     *runtime.Registry
	metrics      *observability.Metrics
	jobType      string
	concurrency  int
	policy       runtime.RetryPolicy
	staleRunning time.Duration
	pollInterval time.Duration
}

func NewWorker(
	db *gorm.DB,
	baseLog *logger.Logger,
	repo repos.JobRunRepo,
	registry *runtime.Registry,
	metrics *observability.Metrics,
	jobType string,
	concurrency int,
	policy runtime.RetryPolicy,
) *Worker {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Worker{
		db:           db,
		log:          baseLog.With("component", "JobWorker", "queue", jobType),
		repo:         repo,
		registry:     registry,
		metrics:      metrics,
		jobType:      jobType,
		concurrency:  concurrency,
		policy:       policy,
		staleRunning: 30 * time.Minute,
		pollInterval: time.Second,
	}
}

func (w *Worker) Start(ctx context.Context) {
	w.log.Info("Starting job worker pool", "concurrency", w.concurrency)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < w.concurrency; i++ {
		workerID := i + 1
		g.Go(func() error {
			w.runLoop(gctx, workerID)
			return nil
		})
	}
	go func() {
		_ = g.Wait()
		w.log.Info("Worker pool stopped")
	}()
}

func (w *Worker) runLoop(ctx context.Context, workerID int) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Worker loop stopped", "worker_id", workerID)
			return
		case <-ticker.C:
			job, err := w.repo.ClaimNextRunnable(ctx, w.db, w.jobType, w.staleRunning)
			if err != nil {
				w.log.Warn("ClaimNextRunnable failed", "worker_id", workerID, "error", err)
				continue
			}
			if job == nil {
				continue
			}
			w.dispatch(ctx, workerID, job)
		}
	}
}

func (w *Worker) dispatch(ctx context.Context, workerID int, job *types.JobRun) {
	jc := runtime.NewContext(ctx, w.db, job, w.repo, w.policy, w.log)

	h, ok := w.registry.Get(job.JobType)
	if !ok {
		w.log.Warn("No handler registered for job_type",
			"worker_id", workerID,
			"job_type", job.JobType,
			"job_id", job.ID,
		)
		jc.Fail("dispatch", &missingHandlerError{JobType: job.JobType})
		w.metrics.JobProcessed(w.jobType, "failed")
		return
	}

	defer func() {
		if r := recover(); r != nil {
			w.log.Error("Job handler panic",
				"worker_id", workerID,
				"job_id", job.ID,
				"job_type", job.JobType,
				"panic", r,
			)
			jc.Fail("panic", errFromRecover(r))
			w.metrics.JobProcessed(w.jobType, "panic")
		}
	}()

	if runErr := h.Run(jc); runErr != nil {
		// Handlers normally call jc.Fail themselves; this is a safety net.
		jc.Fail("run", runErr)
		w.metrics.JobProcessed(w.jobType, "failed")
		return
	}
	w.metrics.JobProcessed(w.jobType, "ok")
}

type missingHandlerError struct{ JobType string }

func (e *missingHandlerError) Error() string {
	return "no handler registered for job_type=" + e.JobType
}

func errFromRecover(v any) error { return &panicError{Val: v} }

type panicError struct{ Val any }

func (e *panicError) Error() string { return fmt.Sprintf("panic: %v", e.Val) }
