package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kuldoc/ocrflow/internal/domain"
	"github.com/kuldoc/ocrflow/internal/repository"
)

func mustBegin(t *testing.T, s *Store) repository.UnitOfWork {
	t.Helper()
	uow, err := s.Begin(context.Background())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	return uow
}

func addDocument(t *testing.T, s *Store, id string) *domain.Document {
	t.Helper()
	doc, err := domain.NewDocument(id, id+".pdf", domain.FileTypePDF, 100)
	if err != nil {
		t.Fatalf("new document: %v", err)
	}
	uow := mustBegin(t, s)
	defer uow.Rollback()
	if err := uow.Documents().Add(doc); err != nil {
		t.Fatalf("add document: %v", err)
	}
	if err := uow.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	return doc
}

func addJob(t *testing.T, s *Store, id, documentID string) *domain.Job {
	t.Helper()
	job := domain.NewJob(id, documentID)
	uow := mustBegin(t, s)
	defer uow.Rollback()
	if err := uow.Jobs().Add(job); err != nil {
		t.Fatalf("add job: %v", err)
	}
	if err := uow.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	return job
}

func TestRollbackDiscardsWrites(t *testing.T) {
	store := NewStore()

	uow := mustBegin(t, store)
	doc, _ := domain.NewDocument("doc-1", "doc-1.pdf", domain.FileTypePDF, 1)
	if err := uow.Documents().Add(doc); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := uow.Rollback(); err != nil {
		t.Fatalf("rollback: %v", err)
	}

	check := mustBegin(t, store)
	defer check.Rollback()
	got, err := check.Documents().Get("doc-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Fatal("rolled-back write must not be visible")
	}
}

func TestRollbackAfterCommitIsNoop(t *testing.T) {
	store := NewStore()

	uow := mustBegin(t, store)
	doc, _ := domain.NewDocument("doc-1", "doc-1.pdf", domain.FileTypePDF, 1)
	if err := uow.Documents().Add(doc); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := uow.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := uow.Rollback(); err != nil {
		t.Fatalf("rollback after commit must be a no-op, got %v", err)
	}

	check := mustBegin(t, store)
	defer check.Rollback()
	got, err := check.Documents().Get("doc-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("committed write must survive a later rollback call")
	}
}

func TestUpdateGuardConflict(t *testing.T) {
	store := NewStore()
	addDocument(t, store, "doc-1")
	addJob(t, store, "job-1", "doc-1")

	// Two scopes read the same pending job.
	first := mustBegin(t, store)
	second := mustBegin(t, store)

	j1, _ := first.Jobs().Get("job-1")
	j2, _ := second.Jobs().Get("job-1")

	if err := j1.MarkAsProcessing(); err != nil {
		t.Fatalf("mark: %v", err)
	}
	if err := first.Jobs().Update(j1, domain.JobStatusPending); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := first.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	// The losing scope must see a status conflict.
	if err := j2.MarkAsProcessing(); err != nil {
		t.Fatalf("mark: %v", err)
	}
	err := second.Jobs().Update(j2, domain.JobStatusPending)
	if err == nil {
		err = second.Commit()
	}
	if !errors.Is(err, domain.ErrStatusConflict) {
		t.Fatalf("expected ErrStatusConflict, got %v", err)
	}
}

func TestOneResultPerJob(t *testing.T) {
	store := NewStore()
	addDocument(t, store, "doc-1")
	addJob(t, store, "job-1", "doc-1")

	uow := mustBegin(t, store)
	if err := uow.Results().Add(domain.NewResult("res-1", "job-1", nil)); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := uow.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	dup := mustBegin(t, store)
	if err := dup.Results().Add(domain.NewResult("res-2", "job-1", nil)); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := dup.Commit(); err == nil {
		t.Fatal("expected the second result for the same job to be rejected")
	}

	check := mustBegin(t, store)
	defer check.Rollback()
	res, err := check.Results().GetByJobID("job-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if res == nil || res.ID != "res-1" {
		t.Fatalf("expected res-1 to remain, got %+v", res)
	}
}

func TestReadYourWrites(t *testing.T) {
	store := NewStore()

	uow := mustBegin(t, store)
	defer uow.Rollback()
	job := domain.NewJob("job-1", "doc-1")
	if err := uow.Jobs().Add(job); err != nil {
		t.Fatalf("add: %v", err)
	}
	got, err := uow.Jobs().Get("job-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || got.ID != "job-1" {
		t.Fatal("a scope must see its own staged writes")
	}
}

func TestGetLatestCompletedForDocument(t *testing.T) {
	store := NewStore()
	addDocument(t, store, "doc-1")

	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	mk := func(id string, status domain.JobStatus, completedAt time.Time) {
		job := domain.NewJob(id, "doc-1")
		job.Status = status
		if status.IsTerminal() {
			started := completedAt.Add(-time.Minute)
			job.StartedAt = &started
			job.CompletedAt = &completedAt
		}
		uow := mustBegin(t, store)
		defer uow.Rollback()
		if err := uow.Jobs().Add(job); err != nil {
			t.Fatalf("add: %v", err)
		}
		if err := uow.Commit(); err != nil {
			t.Fatalf("commit: %v", err)
		}
	}

	mk("job-old", domain.JobStatusCompleted, base)
	mk("job-new", domain.JobStatusCompleted, base.Add(time.Hour))
	mk("job-failed", domain.JobStatusFailed, base.Add(2*time.Hour))
	mk("job-pending", domain.JobStatusPending, time.Time{})

	uow := mustBegin(t, store)
	defer uow.Rollback()
	latest, err := uow.Jobs().GetLatestCompletedForDocument("doc-1")
	if err != nil {
		t.Fatalf("get latest: %v", err)
	}
	if latest == nil || latest.ID != "job-new" {
		t.Fatalf("expected job-new, got %+v", latest)
	}

	none, err := uow.Jobs().GetLatestCompletedForDocument("doc-unknown")
	if err != nil {
		t.Fatalf("get latest: %v", err)
	}
	if none != nil {
		t.Fatalf("expected nil for a document with no completed jobs, got %+v", none)
	}
}

func TestListByStatus(t *testing.T) {
	store := NewStore()
	addDocument(t, store, "doc-1")
	addJob(t, store, "job-1", "doc-1")
	addJob(t, store, "job-2", "doc-1")

	uow := mustBegin(t, store)
	job, _ := uow.Jobs().Get("job-1")
	if err := job.MarkAsProcessing(); err != nil {
		t.Fatalf("mark: %v", err)
	}
	if err := uow.Jobs().Update(job, domain.JobStatusPending); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := uow.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	check := mustBegin(t, store)
	defer check.Rollback()
	pending, err := check.Jobs().ListByStatus(domain.JobStatusPending)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != "job-2" {
		t.Fatalf("expected only job-2 pending, got %+v", pending)
	}
}
