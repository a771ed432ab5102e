package ports

import (
	"context"
	"time"
)

type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

type ValidationJob struct {
	ID         string
	ProjectID  string
	Status     JobStatus
	Attempts   int
	LastError  string
	QueuedAt   time.Time
	FinishedAt *time.Time
}

// JobRepository supports queueing and claiming re-validation jobs.
type JobRepository interface {
	Enqueue(ctx context.Context, projectID string) (jobID string, err error)
	ClaimNext(ctx context.Context) (job ValidationJob, found bool, err error)
	MarkCompleted(ctx context.Context, jobID string) error
	MarkFailed(ctx context.Context, jobID string, reason string) error
	GetJob(ctx context.Context, jobID string) (ValidationJob, error)
}
