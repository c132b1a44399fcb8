package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/veralingo/veralingo-backend/internal/types"
)

// fakeJobRunRepo is an in-memory JobRunRepo covering the methods the
// scheduling services exercise.
type fakeJobRunRepo struct {
	mu   sync.Mutex
	jobs []*types.JobRun
}

func newFakeJobRunRepo() *fakeJobRunRepo {
	return &fakeJobRunRepo{}
}

func (f *fakeJobRunRepo) Create(_ context.Context, _ *gorm.DB, job *types.JobRun) (*types.JobRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	copied := *job
	f.jobs = append(f.jobs, &copied)
	return job, nil
}

func (f *fakeJobRunRepo) GetByID(_ context.Context, _ *gorm.DB, id uuid.UUID) (*types.JobRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, j := range f.jobs {
		if j.ID == id {
			copied := *j
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeJobRunRepo) ExistsWithStatus(_ context.Context, _ *gorm.DB, userID uuid.UUID, jobType string, statuses []string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, j := range f.jobs {
		if j.UserID != userID || j.JobType != jobType {
			continue
		}
		for _, s := range statuses {
			if j.Status == s {
				return true, nil
			}
		}
	}
	return false, nil
}

func (f *fakeJobRunRepo) CancelPending(_ context.Context, _ *gorm.DB, userID uuid.UUID, jobType string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, j := range f.jobs {
		if j.UserID == userID && j.JobType == jobType && j.Status == types.JobStatusQueued {
			j.Status = types.JobStatusCanceled
			n++
		}
	}
	return n, nil
}

func (f *fakeJobRunRepo) ClaimNextRunnable(_ context.Context, _ *gorm.DB, jobType string, _ time.Duration) (*types.JobRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	var best *types.JobRun
	for _, j := range f.jobs {
		if j.JobType != jobType || j.Status != types.JobStatusQueued || j.RunAfter.After(now) {
			continue
		}
		if best == nil || j.Priority > best.Priority || (j.Priority == best.Priority && j.RunAfter.Before(best.RunAfter)) {
			best = j
		}
	}
	if best == nil {
		return nil, nil
	}
	best.Status = types.JobStatusRunning
	best.Attempts++
	copied := *best
	return &copied, nil
}

func (f *fakeJobRunRepo) UpdateFields(_ context.Context, _ *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, j := range f.jobs {
		if j.ID != id {
			continue
		}
		if v, ok := updates["status"].(string); ok {
			j.Status = v
		}
		if v, ok := updates["run_after"].(time.Time); ok {
			j.RunAfter = v
		}
		if v, ok := updates["last_error"].(string); ok {
			j.LastError = v
		}
	}
	return nil
}

func (f *fakeJobRunRepo) Heartbeat(_ context.Context, _ *gorm.DB, _ uuid.UUID) error { return nil }

func (f *fakeJobRunRepo) CountsByType(_ context.Context, _ *gorm.DB, jobType string) (types.QueueStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var stats types.QueueStats
	for _, j := range f.jobs {
		if j.JobType != jobType {
			continue
		}
		switch j.Status {
		case types.JobStatusQueued:
			stats.Waiting++
		case types.JobStatusRunning:
			stats.Active++
		case types.JobStatusSucceeded:
			stats.Completed++
		case types.JobStatusFailed:
			stats.Failed++
		case types.JobStatusCanceled:
			stats.Canceled++
		}
	}
	return stats, nil
}

func (f *fakeJobRunRepo) RecentFailed(_ context.Context, _ *gorm.DB, jobType string, limit int) ([]*types.JobRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*types.JobRun{}
	for _, j := range f.jobs {
		if j.JobType == jobType && j.Status == types.JobStatusFailed && len(out) < limit {
			copied := *j
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeJobRunRepo) byStatus(jobType, status string) []*types.JobRun {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*types.JobRun{}
	for _, j := range f.jobs {
		if j.JobType == jobType && j.Status == status {
			copied := *j
			out = append(out, &copied)
		}
	}
	return out
}
