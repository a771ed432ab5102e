package validationrunner

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"rwadirectory/internal/ports"
)

// Processor performs the work for a job's project id.
type Processor interface {
	Process(ctx context.Context, projectID string) error
}

// RevalidateProcessor re-runs the full validation of a project.
type RevalidateProcessor struct{ Validator ports.Validator }

func (p RevalidateProcessor) Process(ctx context.Context, projectID string) error {
	_, err := p.Validator.Revalidate(ctx, projectID)
	return err
}

// Run starts worker goroutines that claim jobs and process them. The returned
// channel is closed once every worker has exited after ctx is done.
func Run(ctx context.Context, repo ports.JobRepository, processor Processor, concurrency int, pollInterval time.Duration, logger *zap.Logger) <-chan struct{} {
	done := make(chan struct{})
	if concurrency < 1 {
		close(done)
		return done
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("validation-runner")
	jobsCh := make(chan ports.ValidationJob, concurrency)

	// dispatcher loop
	go func() {
		defer close(jobsCh)
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			for {
				job, found, err := repo.ClaimNext(ctx)
				if err != nil {
					if ctx.Err() == nil {
						logger.Error("job claim error", zap.Error(err))
					}
					break
				}
				if !found {
					break
				}
				select {
				case jobsCh <- job:
				case <-ctx.Done():
					// Claimed but never started; leave a trace instead of a stuck running row.
					_ = repo.MarkFailed(context.WithoutCancel(ctx), job.ID, "shutdown before processing")
					return
				}
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			for job := range jobsCh {
				process(ctx, repo, processor, job, logger.With(zap.Int("worker", idx)))
			}
		}(i)
	}
	go func() {
		wg.Wait()
		close(done)
	}()
	return done
}

func process(ctx context.Context, repo ports.JobRepository, processor Processor, job ports.ValidationJob, logger *zap.Logger) {
	logger = logger.With(zap.String("job_id", job.ID), zap.String("project_id", job.ProjectID))
	// Status writes must land even when shutdown races the job.
	statusCtx := context.WithoutCancel(ctx)
	if err := processor.Process(ctx, job.ProjectID); err != nil {
		logger.Warn("job failed", zap.Int("attempts", job.Attempts), zap.Error(err))
		if err := repo.MarkFailed(statusCtx, job.ID, err.Error()); err != nil {
			logger.Error("mark failed error", zap.Error(err))
		}
		return
	}
	if err := repo.MarkCompleted(statusCtx, job.ID); err != nil {
		logger.Error("complete error", zap.Error(err))
		return
	}
	logger.Debug("job completed")
}
