package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kuldoc/ocrflow/internal/domain"
	"github.com/kuldoc/ocrflow/internal/repository"
)

// Queue is the outbound port for handing job ids to the asynchronous
// delivery mechanism. Delivery is at-least-once.
type Queue interface {
	Enqueue(ctx context.Context, jobID string) error
}

// JobFilter narrows ListJobs. Zero values mean no filtering.
type JobFilter struct {
	Status     domain.JobStatus
	DocumentID string
}

// JobService handles job submission and the read-side job queries.
type JobService struct {
	uow    repository.UnitOfWorkFactory
	queue  Queue
	logger *zap.Logger
}

func NewJobService(uow repository.UnitOfWorkFactory, queue Queue, logger *zap.Logger) *JobService {
	return &JobService{
		uow:    uow,
		queue:  queue,
		logger: logger.With(zap.String("service", "jobs")),
	}
}

// Submit creates a pending job for the document and enqueues its id. A
// document with an active (pending or processing) job cannot be submitted
// again until that job reaches a terminal state.
func (s *JobService) Submit(ctx context.Context, documentID string) (*domain.Job, error) {
	uow, err := s.uow.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer uow.Rollback()

	if _, err := getDocument(uow, documentID); err != nil {
		return nil, err
	}

	existing, err := uow.Jobs().ListByDocumentID(documentID)
	if err != nil {
		return nil, err
	}
	for _, j := range existing {
		if !j.IsTerminal() {
			return nil, fmt.Errorf("document %s already has a pending or processing job: %w",
				documentID, domain.ErrDuplicateJob)
		}
	}

	job := domain.NewJob(newID(), documentID)
	if err := uow.Jobs().Add(job); err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	if err := s.queue.Enqueue(ctx, job.ID); err != nil {
		// The job stays pending and can be re-enqueued; surface the problem.
		return nil, fmt.Errorf("enqueue job %s: %w", job.ID, err)
	}
	s.logger.Info("job submitted",
		zap.String("job_id", job.ID),
		zap.String("document_id", documentID))
	return job, nil
}

// Get returns the job or ErrJobNotFound.
func (s *JobService) Get(ctx context.Context, jobID string) (*domain.Job, error) {
	uow, err := s.uow.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer uow.Rollback()
	return getJob(uow, jobID)
}

// List returns jobs matching the filter, in creation order.
func (s *JobService) List(ctx context.Context, filter JobFilter) ([]*domain.Job, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fmt.Errorf("invalid status %q: %w", filter.Status, domain.ErrInvalidFilter)
	}

	uow, err := s.uow.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer uow.Rollback()

	var jobs []*domain.Job
	switch {
	case filter.Status != "":
		jobs, err = uow.Jobs().ListByStatus(filter.Status)
	default:
		jobs, err = uow.Jobs().ListAll()
	}
	if err != nil {
		return nil, err
	}
	if filter.DocumentID == "" {
		return jobs, nil
	}
	filtered := jobs[:0]
	for _, j := range jobs {
		if j.DocumentID == filter.DocumentID {
			filtered = append(filtered, j)
		}
	}
	return filtered, nil
}

func (s *JobService) ListTerminal(ctx context.Context) ([]*domain.Job, error) {
	uow, err := s.uow.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer uow.Rollback()
	return uow.Jobs().ListTerminal()
}

// RetryFailed creates and enqueues a fresh pending job for the document of
// a failed job. The original job is left untouched.
func (s *JobService) RetryFailed(ctx context.Context, failedJobID string) (*domain.Job, error) {
	uow, err := s.uow.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer uow.Rollback()

	original, err := getJob(uow, failedJobID)
	if err != nil {
		return nil, err
	}
	if original.Status != domain.JobStatusFailed {
		return nil, fmt.Errorf("cannot retry job %s, status is %s, only failed jobs can be retried: %w",
			failedJobID, original.Status, domain.ErrInvalidTransition)
	}

	job := domain.NewJob(newID(), original.DocumentID)
	if err := uow.Jobs().Add(job); err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	if err := s.queue.Enqueue(ctx, job.ID); err != nil {
		return nil, fmt.Errorf("enqueue job %s: %w", job.ID, err)
	}
	s.logger.Info("failed job resubmitted",
		zap.String("original_job_id", failedJobID),
		zap.String("job_id", job.ID))
	return job, nil
}

// GetResult returns the result of a job, or ErrResultNotFound when the job
// exists but has produced no result.
func (s *JobService) GetResult(ctx context.Context, jobID string) (*domain.Result, error) {
	uow, err := s.uow.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer uow.Rollback()

	if _, err := getJob(uow, jobID); err != nil {
		return nil, err
	}
	result, err := uow.Results().GetByJobID(jobID)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, fmt.Errorf("job %s: %w", jobID, domain.ErrResultNotFound)
	}
	return result, nil
}

func getJob(uow repository.UnitOfWork, jobID string) (*domain.Job, error) {
	job, err := uow.Jobs().Get(jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, fmt.Errorf("job %s: %w", jobID, domain.ErrJobNotFound)
	}
	return job, nil
}
