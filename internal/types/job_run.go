package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	JobTypeInsightRecompute = "insight_recompute"
	JobTypeAIAdvice         = "ai_advice"
)

const (
	JobStatusQueued    = "queued"
	JobStatusRunning   = "running"
	JobStatusSucceeded = "succeeded"
	JobStatusFailed    = "failed"
	JobStatusCanceled  = "canceled"
)

// JobRun is one queue row. DedupKey guarantees at most one queued/running job
// per logical subject (per user for recomputes, per user+kind for advice).
// RunAfter implements both the debounce delay and retry backoff: a queued row
// is not claimable before it.
type JobRun struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	JobType     string         `gorm:"column:job_type;not null;index:idx_job_type_status" json:"job_type"`
	DedupKey    string         `gorm:"column:dedup_key;not null;index" json:"dedup_key"`
	Status      string         `gorm:"column:status;not null;default:'queued';index:idx_job_type_status" json:"status"`
	Priority    int            `gorm:"column:priority;not null;default:0" json:"priority"`
	RunAfter    time.Time      `gorm:"column:run_after;not null" json:"run_after"`
	Attempts    int            `gorm:"column:attempts;not null;default:0" json:"attempts"`
	LastError   string         `gorm:"column:last_error" json:"last_error,omitempty"`
	LastErrorAt *time.Time     `gorm:"column:last_error_at" json:"last_error_at,omitempty"`
	HeartbeatAt *time.Time     `gorm:"column:heartbeat_at" json:"heartbeat_at,omitempty"`
	StartedAt   *time.Time     `gorm:"column:started_at" json:"started_at,omitempty"`
	FinishedAt  *time.Time     `gorm:"column:finished_at" json:"finished_at,omitempty"`
	Payload     datatypes.JSON `gorm:"type:jsonb;column:payload" json:"payload"`
	CreatedAt   time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (JobRun) TableName() string { return "job_run" }

// QueueStats is the read-only introspection shape for one queue.
type QueueStats struct {
	Waiting   int64 `json:"waiting"`
	Active    int64 `json:"active"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Canceled  int64 `json:"canceled"`
}
