package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/veralingo/veralingo-backend/internal/logger"
	"github.com/veralingo/veralingo-backend/internal/types"
)

type JobRunRepo interface {
	Create(ctx context.Context, tx *gorm.DB, job *types.JobRun) (*types.JobRun, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.JobRun, error)
	// ExistsWithStatus reports whether any job of the given type for the user is
	// currently in one of the given statuses. Dedup checks build on this.
	ExistsWithStatus(ctx context.Context, tx *gorm.DB, userID uuid.UUID, jobType string, statuses []string) (bool, error)
	// CancelPending flips the user's queued jobs of the given type to canceled
	// and reports how many rows it touched. Running jobs are left alone.
	CancelPending(ctx context.Context, tx *gorm.DB, userID uuid.UUID, jobType string) (int64, error)
	// ClaimNextRunnable picks one claimable job of the given type and marks it
	// running (SKIP LOCKED). Claimable: queued with run_after due, or running
	// with a heartbeat older than staleRunning (a worker died mid-job).
	ClaimNextRunnable(ctx context.Context, tx *gorm.DB, jobType string, staleRunning time.Duration) (*types.JobRun, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
	Heartbeat(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	CountsByType(ctx context.Context, tx *gorm.DB, jobType string) (types.QueueStats, error)
	RecentFailed(ctx context.Context, tx *gorm.DB, jobType string, limit int) ([]*types.JobRun, error)
}

type jobRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewJobRunRepo(db *gorm.DB, baseLog *logger.Logger) JobRunRepo {
	return &jobRunRepo{
		db:  db,
		log: baseLog.With("repo", "JobRunRepo"),
	}
}

func (r *jobRunRepo) Create(ctx context.Context, tx *gorm.DB, job *types.JobRun) (*types.JobRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if job == nil {
		return nil, gorm.ErrInvalidData
	}
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if err := transaction.WithContext(ctx).Create(job).Error; err != nil {
		return nil, err
	}
	return job, nil
}

func (r *jobRunRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.JobRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var job types.JobRun
	err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *jobRunRepo) ExistsWithStatus(ctx context.Context, tx *gorm.DB, userID uuid.UUID, jobType string, statuses []string) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil || jobType == "" || len(statuses) == 0 {
		return false, nil
	}
	var count int64
	err := transaction.WithContext(ctx).
		Model(&types.JobRun{}).
		Where("user_id = ? AND job_type = ? AND status IN ?", userID, jobType, statuses).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *jobRunRepo) CancelPending(ctx context.Context, tx *gorm.DB, userID uuid.UUID, jobType string) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil || jobType == "" {
		return 0, nil
	}
	now := time.Now()
	res := transaction.WithContext(ctx).
		Model(&types.JobRun{}).
		Where("user_id = ? AND job_type = ? AND status = ?", userID, jobType, types.JobStatusQueued).
		Updates(map[string]interface{}{
			"status":      types.JobStatusCanceled,
			"finished_at": now,
			"updated_at":  now,
		})
	return res.RowsAffected, res.Error
}

func (r *jobRunRepo) ClaimNextRunnable(ctx context.Context, tx *gorm.DB, jobType string, staleRunning time.Duration) (*types.JobRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now()
	staleCutoff := now.Add(-staleRunning)
	var claimed *types.JobRun
	err := transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		var job types.JobRun
		q := txx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where(`
				job_type = ?
				AND (
					(status = ? AND run_after <= ?)
					OR (status = ? AND heartbeat_at IS NOT NULL AND heartbeat_at < ?)
				)
			`, jobType, types.JobStatusQueued, now, types.JobStatusRunning, staleCutoff).
			Order("priority DESC, run_after ASC")
		qErr := q.First(&job).Error
		if errors.Is(qErr, gorm.ErrRecordNotFound) {
			return nil
		}
		if qErr != nil {
			return qErr
		}
		uErr := txx.Model(&types.JobRun{}).
			Where("id = ?", job.ID).
			Updates(map[string]interface{}{
				"status":       types.JobStatusRunning,
				"attempts":     gorm.Expr("attempts + 1"),
				"started_at":   now,
				"heartbeat_at": now,
				"updated_at":   now,
			}).Error
		if uErr != nil {
			return uErr
		}
		job.Status = types.JobStatusRunning
		job.Attempts++
		claimed = &job
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *jobRunRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	return transaction.WithContext(ctx).
		Model(&types.JobRun{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *jobRunRepo) Heartbeat(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	now := time.Now()
	return transaction.WithContext(ctx).
		Model(&types.JobRun{}).
		Where("id = ? AND status = ?", id, types.JobStatusRunning).
		Updates(map[string]interface{}{
			"heartbeat_at": now,
			"updated_at":   now,
		}).Error
}

func (r *jobRunRepo) CountsByType(ctx context.Context, tx *gorm.DB, jobType string) (types.QueueStats, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var rows []struct {
		Status string
		Count  int64
	}
	err := transaction.WithContext(ctx).
		Model(&types.JobRun{}).
		Select("status, count(*) as count").
		Where("job_type = ?", jobType).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return types.QueueStats{}, err
	}
	var stats types.QueueStats
	for _, row := range rows {
		switch row.Status {
		case types.JobStatusQueued:
			stats.Waiting = row.Count
		case types.JobStatusRunning:
			stats.Active = row.Count
		case types.JobStatusSucceeded:
			stats.Completed = row.Count
		case types.JobStatusFailed:
			stats.Failed = row.Count
		case types.JobStatusCanceled:
			stats.Canceled = row.Count
		}
	}
	return stats, nil
}

func (r *jobRunRepo) RecentFailed(ctx context.Context, tx *gorm.DB, jobType string, limit int) ([]*types.JobRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 20
	}
	var jobs []*types.JobRun
	err := transaction.WithContext(ctx).
		Where("job_type = ? AND status = ?", jobType, types.JobStatusFailed).
		Order("finished_at DESC").
		Limit(limit).
		Find(&jobs).Error
	if err != nil {
		return nil, err
	}
	return jobs, nil
}
