package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kuldoc/ocrflow/internal/domain"
	"github.com/kuldoc/ocrflow/internal/service"
)

// HandleResult is the consumer-side outcome reported for one delivered job
// id.
type HandleResult struct {
	JobID  string           `json:"job_id"`
	Status domain.JobStatus `json:"status"`
}

// Runner applies the retry policy around the orchestrator. Transient
// failures are retried with exponential backoff (BaseDelay × 2^attempt);
// permanent failures skip the budget entirely. When the budget is spent the
// job is failed best-effort and the last error is returned to the delivery
// runtime for its own bookkeeping.
type Runner struct {
	orchestrator *service.Orchestrator
	maxRetries   int
	baseDelay    time.Duration
	sleep        func(context.Context, time.Duration) error
	logger       *zap.Logger
}

func NewRunner(orc *service.Orchestrator, maxRetries int, baseDelay time.Duration, logger *zap.Logger) *Runner {
	return &Runner{
		orchestrator: orc,
		maxRetries:   maxRetries,
		baseDelay:    baseDelay,
		sleep:        sleepCtx,
		logger:       logger.With(zap.String("component", "runner")),
	}
}

// Handle processes one delivered job id to a terminal outcome. The claim
// happens at most once; retries re-run only the execute and commit steps so
// a job claimed by a failed attempt is not mistaken for one claimed by
// another worker.
func (r *Runner) Handle(ctx context.Context, jobID string) (HandleResult, error) {
	var (
		lastErr    error
		documentID string
		claimed    bool
	)
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		var err error
		if !claimed {
			var job *domain.Job
			job, claimed, err = r.orchestrator.Claim(ctx, jobID)
			if err == nil && !claimed {
				r.logger.Info("job already claimed or terminal, skipping",
					zap.String("job_id", jobID),
					zap.String("status", string(job.Status)))
				return HandleResult{JobID: jobID, Status: job.Status}, nil
			}
			if err == nil {
				documentID = job.DocumentID
			}
		}
		if err == nil {
			err = r.orchestrator.RunClaimed(ctx, jobID, documentID)
		}
		if err == nil {
			return HandleResult{JobID: jobID, Status: domain.JobStatusCompleted}, nil
		}
		lastErr = err

		if domain.IsPermanent(err) {
			r.logger.Warn("permanent failure, not retrying",
				zap.String("job_id", jobID), zap.Error(err))
			break
		}
		if attempt == r.maxRetries {
			break
		}

		delay := r.baseDelay * (1 << attempt)
		r.logger.Warn("job attempt failed, retrying",
			zap.String("job_id", jobID),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay),
			zap.Error(err))
		if err := r.sleep(ctx, delay); err != nil {
			lastErr = err
			break
		}
	}

	if err := r.orchestrator.FailJob(ctx, jobID, lastErr.Error()); err != nil {
		// Best-effort only; the original failure is what the caller sees.
		// The status is left empty since the FAILED write did not land.
		r.logger.Error("failed to mark job as failed",
			zap.String("job_id", jobID), zap.Error(err))
		return HandleResult{JobID: jobID}, lastErr
	}
	return HandleResult{JobID: jobID, Status: domain.JobStatusFailed}, lastErr
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
