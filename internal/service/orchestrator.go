package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kuldoc/ocrflow/internal/domain"
	"github.com/kuldoc/ocrflow/internal/engine"
	"github.com/kuldoc/ocrflow/internal/loader"
	"github.com/kuldoc/ocrflow/internal/repository"
)

// Orchestrator drives one job through its state machine across independent
// transactions:
//
//  1. Claim: transition pending → processing and commit immediately. The
//     guarded update is the only synchronization between workers; a job that
//     is no longer pending makes the whole invocation a no-op.
//  2. Execute: with no transaction open, stream pages through the engine.
//     This step can take arbitrarily long.
//  3. Commit: persist the result and complete the job in one final scope.
//
// Re-invoking ProcessJob for an already terminal job does nothing, so
// at-least-once delivery and post-crash retries are safe.
type Orchestrator struct {
	uow           repository.UnitOfWorkFactory
	loader        loader.DocumentLoader
	engine        engine.Engine
	engineTimeout time.Duration
	logger        *zap.Logger
}

func NewOrchestrator(uow repository.UnitOfWorkFactory, dl loader.DocumentLoader, eng engine.Engine, engineTimeout time.Duration, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		uow:           uow,
		loader:        dl,
		engine:        eng,
		engineTimeout: engineTimeout,
		logger:        logger.With(zap.String("service", "orchestrator")),
	}
}

// ProcessJob runs the three-step protocol for one job id. A nil return
// means the job is terminal: either this invocation completed it or a
// previous one already had.
func (o *Orchestrator) ProcessJob(ctx context.Context, jobID string) error {
	job, claimed, err := o.Claim(ctx, jobID)
	if err != nil {
		return err
	}
	if !claimed {
		o.logger.Info("job already claimed or terminal, skipping",
			zap.String("job_id", jobID),
			zap.String("status", string(job.Status)))
		return nil
	}
	return o.RunClaimed(ctx, jobID, job.DocumentID)
}

// Claim re-fetches the job and, if still pending, commits the processing
// transition. The returned job reflects the state this call observed;
// claimed is false when the invocation should be a no-op.
func (o *Orchestrator) Claim(ctx context.Context, jobID string) (*domain.Job, bool, error) {
	uow, err := o.uow.Begin(ctx)
	if err != nil {
		return nil, false, err
	}
	defer uow.Rollback()

	job, err := getJob(uow, jobID)
	if err != nil {
		return nil, false, err
	}
	if job.Status != domain.JobStatusPending {
		return job, false, nil
	}
	if err := job.MarkAsProcessing(); err != nil {
		return nil, false, err
	}
	if err := uow.Jobs().Update(job, domain.JobStatusPending); err != nil {
		return nil, false, err
	}
	if err := uow.Commit(); err != nil {
		return nil, false, err
	}
	return job, true, nil
}

// RunClaimed executes and commits a job this worker has already moved to
// processing. Retrying a failed attempt re-enters here, so the claim guard
// cannot turn the retry into a no-op.
func (o *Orchestrator) RunClaimed(ctx context.Context, jobID, documentID string) error {
	docInput, err := o.documentInput(ctx, documentID)
	if err != nil {
		return err
	}

	o.logger.Info("processing job",
		zap.String("job_id", jobID),
		zap.String("document_id", documentID),
		zap.String("engine", o.engine.Name()))
	pages, err := o.execute(ctx, docInput)
	if err != nil {
		return err
	}

	if err := o.commitResult(ctx, jobID, pages); err != nil {
		return err
	}
	o.logger.Info("job completed",
		zap.String("job_id", jobID),
		zap.Int("pages", len(pages)))
	return nil
}

// documentInput reads the document metadata in its own short scope so no
// transaction is held during execution.
func (o *Orchestrator) documentInput(ctx context.Context, documentID string) (domain.DocumentInput, error) {
	uow, err := o.uow.Begin(ctx)
	if err != nil {
		return domain.DocumentInput{}, err
	}
	defer uow.Rollback()

	doc, err := getDocument(uow, documentID)
	if err != nil {
		return domain.DocumentInput{}, err
	}
	return doc.Input(), nil
}

// execute streams pages in document order through the engine. Zero pages is
// a permanent failure.
func (o *Orchestrator) execute(ctx context.Context, doc domain.DocumentInput) ([]domain.ProcessedPage, error) {
	if !o.engine.SupportsFileType(doc.FileType) {
		return nil, fmt.Errorf("engine %s does not support %q: %w",
			o.engine.Name(), doc.FileType, domain.Permanent(domain.ErrUnsupportedType))
	}

	it, err := o.loader.LoadPages(ctx, doc)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var pages []domain.ProcessedPage
	for it.Next() {
		page := it.Page()
		text, err := o.processPage(ctx, page)
		if err != nil {
			return nil, fmt.Errorf("page %d of document %s: %w", page.PageNumber, doc.ID, err)
		}
		bounds := page.Image.Bounds()
		pages = append(pages, domain.ProcessedPage{
			Ref:    domain.PageRef{DocumentID: doc.ID, Index: page.PageNumber},
			Result: domain.WrapTextInPagePart(text, page.PageNumber, bounds.Dx(), bounds.Dy()),
		})
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("document %s: %w", doc.ID, domain.Permanent(domain.ErrNoContentLoaded))
	}
	return pages, nil
}

func (o *Orchestrator) processPage(ctx context.Context, page domain.PageInput) (string, error) {
	if o.engineTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.engineTimeout)
		defer cancel()
	}
	return o.engine.ProcessImage(ctx, page.Image)
}

// commitResult persists the result and the processing → completed
// transition atomically.
func (o *Orchestrator) commitResult(ctx context.Context, jobID string, pages []domain.ProcessedPage) error {
	uow, err := o.uow.Begin(ctx)
	if err != nil {
		return err
	}
	defer uow.Rollback()

	job, err := getJob(uow, jobID)
	if err != nil {
		return err
	}
	if err := job.Complete(); err != nil {
		return err
	}
	if err := uow.Results().Add(domain.NewResult(newID(), jobID, pages)); err != nil {
		return err
	}
	if err := uow.Jobs().Update(job, domain.JobStatusProcessing); err != nil {
		return err
	}
	return uow.Commit()
}

// FailJob transitions the job to failed in its own scope. It is best-effort:
// the caller logs a returned error but must not let it mask the original
// failure.
func (o *Orchestrator) FailJob(ctx context.Context, jobID, errorMessage string) error {
	uow, err := o.uow.Begin(ctx)
	if err != nil {
		return err
	}
	defer uow.Rollback()

	job, err := getJob(uow, jobID)
	if err != nil {
		return err
	}
	prev := job.Status
	if err := job.Fail(errorMessage); err != nil {
		return err
	}
	if err := uow.Jobs().Update(job, prev); err != nil {
		return err
	}
	return uow.Commit()
}
