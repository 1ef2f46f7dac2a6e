package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const jobColumns = `id, job_type, payload, status, priority, attempts, max_attempts,
       error_message, scheduled_at, started_at, completed_at, created_at`

func scanJob(row interface{ Scan(...interface{}) error }) (Job, error) {
	var i Job
	err := row.Scan(
		&i.ID,
		&i.JobType,
		&i.Payload,
		&i.Status,
		&i.Priority,
		&i.Attempts,
		&i.MaxAttempts,
		&i.ErrorMessage,
		&i.ScheduledAt,
		&i.StartedAt,
		&i.CompletedAt,
		&i.CreatedAt,
	)
	return i, err
}

const enqueueJob = `-- name: EnqueueJob :one
INSERT INTO jobs (job_type, payload, priority, max_attempts, scheduled_at)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + jobColumns + `
`

type EnqueueJobParams struct {
	JobType     string
	Payload     json.RawMessage
	Priority    int32
	MaxAttempts int32
	ScheduledAt time.Time
}

func (q *Queries) EnqueueJob(ctx context.Context, arg EnqueueJobParams) (Job, error) {
	row := q.db.QueryRowContext(ctx, enqueueJob,
		arg.JobType,
		arg.Payload,
		arg.Priority,
		arg.MaxAttempts,
		arg.ScheduledAt,
	)
	return scanJob(row)
}

const dequeueJob = `-- name: DequeueJob :one
SELECT ` + jobColumns + `
FROM jobs
WHERE status = 'pending' AND scheduled_at <= NOW()
ORDER BY priority DESC, scheduled_at
LIMIT 1
FOR UPDATE SKIP LOCKED
`

// DequeueJob locks the next runnable job. Must run inside a transaction.
func (q *Queries) DequeueJob(ctx context.Context) (Job, error) {
	return scanJob(q.db.QueryRowContext(ctx, dequeueJob))
}

const updateJobStarted = `-- name: UpdateJobStarted :exec
UPDATE jobs
SET status = 'running', attempts = attempts + 1, started_at = NOW()
WHERE id = $1
`

func (q *Queries) UpdateJobStarted(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, updateJobStarted, id)
	return err
}

const updateJobCompleted = `-- name: UpdateJobCompleted :exec
UPDATE jobs
SET status = 'completed', completed_at = NOW(), error_message = NULL
WHERE id = $1
`

func (q *Queries) UpdateJobCompleted(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, updateJobCompleted, id)
	return err
}

const updateJobFailed = `-- name: UpdateJobFailed :one
UPDATE jobs
SET error_message = $2,
    status = CASE WHEN $3::boolean OR attempts >= max_attempts THEN 'failed' ELSE 'pending' END,
    completed_at = CASE WHEN $3::boolean OR attempts >= max_attempts THEN NOW() ELSE NULL END,
    scheduled_at = CASE WHEN $3::boolean OR attempts >= max_attempts THEN scheduled_at
                        ELSE NOW() + POWER(2, attempts) * INTERVAL '30 seconds' END
WHERE id = $1
RETURNING status
`

type UpdateJobFailedParams struct {
	ID           uuid.UUID
	ErrorMessage sql.NullString
	// Permanent fails the job immediately regardless of remaining attempts.
	Permanent bool
}

// UpdateJobFailed records the failure and either reschedules the job with
// exponential backoff or marks it failed. It returns the resulting status.
func (q *Queries) UpdateJobFailed(ctx context.Context, arg UpdateJobFailedParams) (string, error) {
	row := q.db.QueryRowContext(ctx, updateJobFailed, arg.ID, arg.ErrorMessage, arg.Permanent)
	var status string
	err := row.Scan(&status)
	return status, err
}

const recoverStaleJobs = `-- name: RecoverStaleJobs :execrows
UPDATE jobs
SET status = 'pending', started_at = NULL
WHERE status = 'running'
  AND started_at < NOW() - make_interval(secs => $1)
`

func (q *Queries) RecoverStaleJobs(ctx context.Context, thresholdSeconds float64) (int64, error) {
	result, err := q.db.ExecContext(ctx, recoverStaleJobs, thresholdSeconds)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const purgeFinishedJobs = `-- name: PurgeFinishedJobs :execrows
DELETE FROM jobs
WHERE status IN ('completed', 'failed')
  AND completed_at < NOW() - make_interval(secs => $1)
`

func (q *Queries) PurgeFinishedJobs(ctx context.Context, retentionSeconds float64) (int64, error) {
	result, err := q.db.ExecContext(ctx, purgeFinishedJobs, retentionSeconds)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
