package runtime

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/gorm"

	"github.com/veralingo/veralingo-backend/internal/logger"
	"github.com/veralingo/veralingo-backend/internal/repos"
	"github.com/veralingo/veralingo-backend/internal/types"
)

// RetryPolicy bounds how a failed job is retried: exponential backoff
// (RetryDelay doubling per attempt) up to MaxAttempts, after which the row is
// marked failed and left for inspection.
type RetryPolicy struct {
	MaxAttempts int
	RetryDelay  time.Duration
}

// Context is the execution handle for one claimed job run. Handlers report
// their outcome only through Succeed/Fail; nothing else touches the job row.
type Context struct {
	Ctx    context.Context
	DB     *gorm.DB
	Job    *types.JobRun
	Repo   repos.JobRunRepo
	Policy RetryPolicy
	Log    *logger.Logger

	payload map[string]any
}

func NewContext(ctx context.Context, db *gorm.DB, job *types.JobRun, repo repos.JobRunRepo, policy RetryPolicy, log *logger.Logger) *Context {
	c := &Context{
		Ctx:    ctx,
		DB:     db,
		Job:    job,
		Repo:   repo,
		Policy: policy,
		Log:    log,
	}
	c.decodePayload()
	return c
}

func (c *Context) decodePayload() {
	c.payload = map[string]any{}
	if c.Job == nil || len(c.Job.Payload) == 0 {
		return
	}
	var m map[string]any
	if err := json.Unmarshal(c.Job.Payload, &m); err == nil {
		c.payload = m
	}
}

func (c *Context) Payload() map[string]any {
	if c.payload == nil {
		return map[string]any{}
	}
	return c.payload
}

func (c *Context) Heartbeat() {
	if c.Job == nil {
		return
	}
	if err := c.Repo.Heartbeat(c.Ctx, c.DB, c.Job.ID); err != nil && c.Log != nil {
		c.Log.Warn("Job heartbeat failed", "job_id", c.Job.ID, "error", err)
	}
}

// Succeed marks the run completed.
func (c *Context) Succeed() {
	if c.Job == nil {
		return
	}
	now := time.Now()
	err := c.Repo.UpdateFields(c.Ctx, c.DB, c.Job.ID, map[string]interface{}{
		"status":      types.JobStatusSucceeded,
		"finished_at": now,
	})
	if err != nil && c.Log != nil {
		c.Log.Warn("Failed to mark job succeeded", "job_id", c.Job.ID, "error", err)
	}
}

// Fail records the error and either requeues with backoff or, once attempts
// are exhausted, marks the row failed. Failed rows are never silently
// dropped; they stay inspectable.
func (c *Context) Fail(stage string, failure error) {
	if c.Job == nil {
		return
	}
	now := time.Now()
	msg := stage
	if failure != nil {
		msg = stage + ": " + failure.Error()
	}
	updates := map[string]interface{}{
		"last_error":    msg,
		"last_error_at": now,
	}
	if c.Job.Attempts >= c.Policy.MaxAttempts {
		updates["status"] = types.JobStatusFailed
		updates["finished_at"] = now
	} else {
		updates["status"] = types.JobStatusQueued
		updates["run_after"] = now.Add(c.backoff())
	}
	if err := c.Repo.UpdateFields(c.Ctx, c.DB, c.Job.ID, updates); err != nil && c.Log != nil {
		c.Log.Warn("Failed to record job failure", "job_id", c.Job.ID, "error", err)
	}
}

func (c *Context) backoff() time.Duration {
	delay := c.Policy.RetryDelay
	if delay <= 0 {
		delay = 30 * time.Second
	}
	for i := 1; i < c.Job.Attempts; i++ {
		delay *= 2
	}
	return delay
}
