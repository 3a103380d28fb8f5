// Package repository defines the persistence ports of the service: one
// repository per aggregate plus the transactional Unit of Work that binds
// them to a single atomic scope.
package repository

import (
	"context"

	"github.com/kuldoc/ocrflow/internal/domain"
)

// DocumentRepository manages Document records. Documents are immutable, so
// there is no update operation.
type DocumentRepository interface {
	Add(doc *domain.Document) error
	// Get returns nil when no document with the given id exists.
	Get(id string) (*domain.Document, error)
	ListAll() ([]*domain.Document, error)
}

// JobRepository manages Job records and their status-driven queries.
type JobRepository interface {
	Add(job *domain.Job) error
	// Get returns nil when no job with the given id exists.
	Get(id string) (*domain.Job, error)
	// Update persists job guarded by its previous status: when the stored
	// row no longer carries prev, domain.ErrStatusConflict is returned and
	// nothing is written. This is the compare-and-set the claim step
	// relies on.
	Update(job *domain.Job, prev domain.JobStatus) error
	ListAll() ([]*domain.Job, error)
	ListByStatus(status domain.JobStatus) ([]*domain.Job, error)
	ListByDocumentID(documentID string) ([]*domain.Job, error)
	ListTerminal() ([]*domain.Job, error)
	// GetLatestCompletedForDocument returns the completed job with the
	// maximum CompletedAt for the document, or nil when none is completed.
	GetLatestCompletedForDocument(documentID string) (*domain.Job, error)
}

// ResultRepository manages Result records. The store enforces at most one
// result per job.
type ResultRepository interface {
	Add(result *domain.Result) error
	// Get returns nil when no result with the given id exists.
	Get(id string) (*domain.Result, error)
	ListAll() ([]*domain.Result, error)
	// GetByJobID returns nil when the job has no result.
	GetByJobID(jobID string) (*domain.Result, error)
}

// UnitOfWork scopes repository operations to one transaction. Writes become
// visible to other scopes only after Commit; a scope that ends without
// Commit must be rolled back. Rollback after a successful Commit is a no-op,
// which allows the deferred-rollback safety net:
//
//	uow, err := factory.Begin(ctx)
//	if err != nil { ... }
//	defer uow.Rollback()
//	...
//	return uow.Commit()
type UnitOfWork interface {
	Documents() DocumentRepository
	Jobs() JobRepository
	Results() ResultRepository
	Commit() error
	Rollback() error
}

// UnitOfWorkFactory opens fresh transactional scopes. Every Begin yields an
// independent session; nothing leaks between sequential scopes.
type UnitOfWorkFactory interface {
	Begin(ctx context.Context) (UnitOfWork, error)
}
