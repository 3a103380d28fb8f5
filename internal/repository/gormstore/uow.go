package gormstore

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/kuldoc/ocrflow/internal/repository"
)

// Factory opens unit-of-work scopes backed by database transactions.
type Factory struct {
	db *gorm.DB
}

func NewFactory(db *gorm.DB) *Factory {
	return &Factory{db: db}
}

// Begin starts a fresh transaction and binds fresh repositories to it.
func (f *Factory) Begin(ctx context.Context) (repository.UnitOfWork, error) {
	tx := f.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("begin transaction: %w", tx.Error)
	}
	return &unitOfWork{
		tx:        tx,
		documents: &documentRepository{tx: tx},
		jobs:      &jobRepository{tx: tx},
		results:   &resultRepository{tx: tx},
	}, nil
}

type unitOfWork struct {
	tx        *gorm.DB
	done      bool
	documents *documentRepository
	jobs      *jobRepository
	results   *resultRepository
}

func (u *unitOfWork) Documents() repository.DocumentRepository { return u.documents }

func (u *unitOfWork) Jobs() repository.JobRepository { return u.jobs }

func (u *unitOfWork) Results() repository.ResultRepository { return u.results }

func (u *unitOfWork) Commit() error {
	if u.done {
		return fmt.Errorf("unit of work already finished")
	}
	u.done = true
	if err := u.tx.Commit().Error; err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Rollback discards pending writes. After a Commit it is a no-op, so it is
// safe to defer unconditionally.
func (u *unitOfWork) Rollback() error {
	if u.done {
		return nil
	}
	u.done = true
	if err := u.tx.Rollback().Error; err != nil {
		return fmt.Errorf("rollback transaction: %w", err)
	}
	return nil
}
