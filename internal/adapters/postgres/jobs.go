package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"rwadirectory/internal/domain"
	"rwadirectory/internal/ports"
)

var _ ports.JobRepository = (*DB)(nil)

// Enqueue queues a re-validation of projectID and returns the job id.
// Unknown projects yield domain.ErrNotFound.
func (db *DB) Enqueue(ctx context.Context, projectID string) (string, error) {
	jobID := uuid.NewString()
	_, err := db.Pool.Exec(ctx, `INSERT INTO validation_jobs (id, project_id) VALUES ($1, $2)`, jobID, projectID)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return jobID, nil
}

const foreignKeyViolation = "23503"

// ClaimNext selects the next queued job using SKIP LOCKED and marks it running.
func (db *DB) ClaimNext(ctx context.Context) (job ports.ValidationJob, found bool, err error) {
	tx, err := db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return job, false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	err = tx.QueryRow(ctx, `
		SELECT id, project_id, queued_at FROM validation_jobs
		WHERE status = 'queued'
		ORDER BY queued_at
		FOR UPDATE SKIP LOCKED
		LIMIT 1
	`).Scan(&job.ID, &job.ProjectID, &job.QueuedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return job, false, nil
	}
	if err != nil {
		return job, false, err
	}

	if err = tx.QueryRow(ctx, `
		UPDATE validation_jobs SET status = 'running', started_at = now(), attempts = attempts + 1
		WHERE id = $1
		RETURNING attempts
	`, job.ID).Scan(&job.Attempts); err != nil {
		return job, false, err
	}
	job.Status = ports.JobRunning
	return job, true, nil
}

func (db *DB) MarkCompleted(ctx context.Context, jobID string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := db.Pool.Exec(ctx, `
		UPDATE validation_jobs SET status = 'completed', last_error = NULL, finished_at = now() WHERE id = $1
	`, jobID)
	return err
}

func (db *DB) MarkFailed(ctx context.Context, jobID string, reason string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := db.Pool.Exec(ctx, `
		UPDATE validation_jobs SET status = 'failed', last_error = $2, finished_at = now() WHERE id = $1
	`, jobID, reason)
	return err
}

func (db *DB) GetJob(ctx context.Context, jobID string) (ports.ValidationJob, error) {
	if _, err := uuid.Parse(jobID); err != nil {
		return ports.ValidationJob{}, domain.ErrNotFound
	}
	job := ports.ValidationJob{ID: jobID}
	var status string
	err := db.Pool.QueryRow(ctx, `
		SELECT project_id, status, attempts, COALESCE(last_error, ''), queued_at, finished_at
		FROM validation_jobs
		WHERE id = $1
	`, jobID).Scan(&job.ProjectID, &status, &job.Attempts, &job.LastError, &job.QueuedAt, &job.FinishedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ports.ValidationJob{}, domain.ErrNotFound
	}
	if err != nil {
		return ports.ValidationJob{}, err
	}
	job.Status = ports.JobStatus(status)
	return job, nil
}
