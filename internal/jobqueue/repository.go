// Package jobqueue implements the durable job queue: a relational
// FIFO-by-priority queue with lease-based claim, retry with backoff, and
// role-filtered handler dispatch.
package jobqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Status is the lifecycle state of a Job row.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"

	errRepoNotConfigured = "job queue repository not configured"
)

// Job is a durable unit of side-effecting work.
type Job struct {
	ID           uuid.UUID
	TenantID     uuid.UUID
	JobType      string
	Payload      json.RawMessage
	Status       Status
	Priority     int
	Attempts     int
	MaxAttempts  int
	ScheduledAt  time.Time
	StartedAt    *time.Time
	CompletedAt  *time.Time
	ErrorMessage *string
	CreatedAt    time.Time
}

// EnqueueParams describes a new job insertion.
type EnqueueParams struct {
	TenantID    uuid.UUID
	JobType     string
	Payload     any
	// IdempotencyKey, when set, is merged into the marshaled payload as
	// "idempotency_key". Handlers with a visible side effect (notifications
	// in particular) claim it via ClaimIdempotencyKey before acting, so a
	// job retried after a partial completion — a failed Complete call, or a
	// lease recovered mid-handler — never repeats that side effect.
	IdempotencyKey string
	Priority       int // higher runs first; defaults to 0
	MaxAttempts    int // defaults to 5
	Delay          time.Duration
}

// Repository is the pgx-backed job queue store.
type Repository struct {
	pool *pgxpool.Pool
}

// New builds a Repository over the given pool. A nil pool is accepted so
// call sites can wire the repository before the pool is ready; every method
// guards against it explicitly rather than panicking.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Enqueue inserts one pending job row.
func (r *Repository) Enqueue(ctx context.Context, p EnqueueParams) (uuid.UUID, error) {
	if r == nil || r.pool == nil {
		return uuid.Nil, errors.New(errRepoNotConfigured)
	}
	if p.TenantID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("tenantId is required")
	}
	if p.JobType == "" {
		return uuid.Nil, fmt.Errorf("jobType is required")
	}
	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	scheduledAt := time.Now().UTC().Add(p.Delay)

	payloadBytes, err := json.Marshal(p.Payload)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal job payload: %w", err)
	}
	if p.IdempotencyKey != "" {
		payloadBytes, err = withIdempotencyKey(payloadBytes, p.IdempotencyKey)
		if err != nil {
			return uuid.Nil, fmt.Errorf("attach idempotency key: %w", err)
		}
	}

	var id uuid.UUID
	err = r.pool.QueryRow(ctx,
		`INSERT INTO jobs (tenant_id, job_type, payload, status, priority, max_attempts, scheduled_at)
		 VALUES ($1, $2, $3, 'pending', $4, $5, $6)
		 RETURNING id`,
		p.TenantID, p.JobType, payloadBytes, p.Priority, maxAttempts, scheduledAt,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// withIdempotencyKey merges the "idempotency_key" field into an
// already-marshaled JSON object payload, so callers keep using their own
// typed Payload struct while the key rides along on the wire without every
// payload type needing an explicit field for it.
func withIdempotencyKey(payload []byte, key string) ([]byte, error) {
	var m map[string]any
	if err := json.Unmarshal(payload, &m); err != nil {
		return nil, err
	}
	m["idempotency_key"] = key
	return json.Marshal(m)
}

// ClaimIdempotencyKey atomically records a job-level idempotency key,
// reporting whether this call performed the insert (true = first observation,
// safe to run the visible side effect; false = a handler already claimed
// this key, so the caller must no-op). Mirrors the dedup pattern
// leadstore.InboundRepository.RecordIfNew uses for inbound message receipts.
func (r *Repository) ClaimIdempotencyKey(ctx context.Context, tenantID uuid.UUID, key string) (bool, error) {
	if r == nil || r.pool == nil {
		return false, errors.New(errRepoNotConfigured)
	}
	if key == "" {
		return true, nil
	}
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO job_idempotency_keys (tenant_id, idempotency_key)
		VALUES ($1, $2)
		ON CONFLICT (tenant_id, idempotency_key) DO NOTHING`,
		tenantID, key,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ClaimBatch atomically claims up to limit due pending jobs, transitioning
// them to running, using FOR UPDATE SKIP LOCKED so concurrent worker
// processes never claim the same row twice.
func (r *Repository) ClaimBatch(ctx context.Context, jobTypes []string, limit int) ([]Job, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New(errRepoNotConfigured)
	}
	if limit < 1 {
		limit = 5
	}
	if len(jobTypes) == 0 {
		return nil, nil
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `WITH cte AS (
		SELECT id
		FROM jobs
		WHERE status = 'pending'
		  AND scheduled_at <= now()
		  AND job_type = ANY($1)
		ORDER BY priority DESC, created_at ASC
		LIMIT $2
		FOR UPDATE SKIP LOCKED
	)
	UPDATE jobs j
	SET status = 'running', started_at = now(), attempts = attempts + 1
	FROM cte
	WHERE j.id = cte.id
	RETURNING j.id, j.tenant_id, j.job_type, j.payload, j.status, j.priority,
	          j.attempts, j.max_attempts, j.scheduled_at, j.started_at,
	          j.completed_at, j.error_message, j.created_at`,
		jobTypes, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, job)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return results, nil
}

// Complete marks a job succeeded.
func (r *Repository) Complete(ctx context.Context, id uuid.UUID) error {
	if r == nil || r.pool == nil {
		return errors.New(errRepoNotConfigured)
	}
	_, err := r.pool.Exec(ctx,
		`UPDATE jobs SET status = 'completed', completed_at = now(), error_message = NULL WHERE id = $1`,
		id,
	)
	return err
}

// Fail records a handler failure. If the job has attempts remaining it is
// rescheduled with the given backoff delay; otherwise it is marked failed
// permanently.
func (r *Repository) Fail(ctx context.Context, id uuid.UUID, errMsg string, backoffDelay time.Duration) error {
	if r == nil || r.pool == nil {
		return errors.New(errRepoNotConfigured)
	}
	truncated := errMsg
	if len(truncated) > 500 {
		truncated = truncated[:500]
	}

	_, err := r.pool.Exec(ctx, `
		UPDATE jobs
		SET status = CASE WHEN attempts < max_attempts THEN 'pending' ELSE 'failed' END,
		    scheduled_at = CASE WHEN attempts < max_attempts THEN now() + $2::interval ELSE scheduled_at END,
		    error_message = $3
		WHERE id = $1`,
		id, backoffDelay, truncated,
	)
	return err
}

// ResetStale resets jobs stuck in running past the lease horizon back to
// pending so another worker can retry them. Returns the number reset.
func (r *Repository) ResetStale(ctx context.Context, leaseHorizon time.Duration) (int64, error) {
	if r == nil || r.pool == nil {
		return 0, errors.New(errRepoNotConfigured)
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE jobs
		SET status = 'pending'
		WHERE status = 'running' AND started_at < now() - $1::interval`,
		leaseHorizon,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// GetByID loads a single job row, used by tests and admin introspection.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Job, error) {
	if r == nil || r.pool == nil {
		return Job{}, errors.New(errRepoNotConfigured)
	}
	row := r.pool.QueryRow(ctx,
		`SELECT id, tenant_id, job_type, payload, status, priority, attempts,
		        max_attempts, scheduled_at, started_at, completed_at, error_message, created_at
		 FROM jobs WHERE id = $1`, id)
	return scanJob(row)
}

// rowScanner abstracts pgx.Row / pgx.Rows for scanJob.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (Job, error) {
	var j Job
	var status string
	if err := row.Scan(&j.ID, &j.TenantID, &j.JobType, &j.Payload, &status, &j.Priority,
		&j.Attempts, &j.MaxAttempts, &j.ScheduledAt, &j.StartedAt, &j.CompletedAt,
		&j.ErrorMessage, &j.CreatedAt); err != nil {
		return Job{}, err
	}
	j.Status = Status(status)
	return j, nil
}
