package service

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kuldoc/ocrflow/internal/domain"
	"github.com/kuldoc/ocrflow/internal/repository/memstore"
)

func seedDocument(t *testing.T, store *memstore.Store, id string, fileType domain.FileType) {
	t.Helper()
	ctx := context.Background()
	doc, err := domain.NewDocument(id, id+fileType.DotExtension(), fileType, 100)
	if err != nil {
		t.Fatalf("new document: %v", err)
	}
	uow, err := store.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer uow.Rollback()
	if err := uow.Documents().Add(doc); err != nil {
		t.Fatalf("add document: %v", err)
	}
	if err := uow.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
}

func seedJob(t *testing.T, store *memstore.Store, id, documentID string) {
	t.Helper()
	uow, err := store.Begin(context.Background())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer uow.Rollback()
	if err := uow.Jobs().Add(domain.NewJob(id, documentID)); err != nil {
		t.Fatalf("add job: %v", err)
	}
	if err := uow.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
}

func fetchJob(t *testing.T, store *memstore.Store, id string) *domain.Job {
	t.Helper()
	uow, err := store.Begin(context.Background())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer uow.Rollback()
	job, err := uow.Jobs().Get(id)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if job == nil {
		t.Fatalf("job %s not found", id)
	}
	return job
}

func fetchResult(t *testing.T, store *memstore.Store, jobID string) *domain.Result {
	t.Helper()
	uow, err := store.Begin(context.Background())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer uow.Rollback()
	result, err := uow.Results().GetByJobID(jobID)
	if err != nil {
		t.Fatalf("get result: %v", err)
	}
	return result
}

func TestProcessJobHappyPath(t *testing.T) {
	store := memstore.NewStore()
	seedDocument(t, store, "doc-1", domain.FileTypePDF)
	seedJob(t, store, "job-1", "doc-1")

	eng := &fakeEngine{texts: []string{"A", "B", "C"}}
	orc := NewOrchestrator(store, &fakeLoader{pages: 3}, eng, 0, zap.NewNop())

	if err := orc.ProcessJob(context.Background(), "job-1"); err != nil {
		t.Fatalf("process: %v", err)
	}

	job := fetchJob(t, store, "job-1")
	if job.Status != domain.JobStatusCompleted {
		t.Fatalf("expected completed, got %s", job.Status)
	}
	if job.StartedAt == nil || job.CompletedAt == nil {
		t.Fatal("expected both timestamps on a completed job")
	}
	if _, err := job.Duration(); err != nil {
		t.Fatalf("duration: %v", err)
	}

	result := fetchResult(t, store, "job-1")
	if result == nil {
		t.Fatal("expected a result")
	}
	if len(result.Content) != 3 {
		t.Fatalf("expected 3 pages, got %d", len(result.Content))
	}
	for i, want := range []string{"A", "B", "C"} {
		page := result.Content[i]
		if page.Ref.Index != i+1 {
			t.Errorf("page %d: expected index %d, got %d", i, i+1, page.Ref.Index)
		}
		if page.Ref.DocumentID != "doc-1" {
			t.Errorf("page %d: unexpected document id %s", i, page.Ref.DocumentID)
		}
		if got := page.Result.FullText(); got != want {
			t.Errorf("page %d: expected text %q, got %q", i, want, got)
		}
		if page.Result.Metadata.Width != 100 || page.Result.Metadata.Height != 200 {
			t.Errorf("page %d: unexpected dimensions %+v", i, page.Result.Metadata)
		}
	}
}

func TestProcessJobIsIdempotent(t *testing.T) {
	store := memstore.NewStore()
	seedDocument(t, store, "doc-1", domain.FileTypePDF)
	seedJob(t, store, "job-1", "doc-1")

	eng := &fakeEngine{texts: []string{"A"}}
	orc := NewOrchestrator(store, &fakeLoader{pages: 1}, eng, 0, zap.NewNop())

	if err := orc.ProcessJob(context.Background(), "job-1"); err != nil {
		t.Fatalf("first process: %v", err)
	}
	// Redelivery of the same job id must be a no-op.
	if err := orc.ProcessJob(context.Background(), "job-1"); err != nil {
		t.Fatalf("second process: %v", err)
	}
	if eng.calls != 1 {
		t.Fatalf("expected the engine to run once, ran %d times", eng.calls)
	}

	uow, _ := store.Begin(context.Background())
	defer uow.Rollback()
	results, err := uow.Results().ListAll()
	if err != nil {
		t.Fatalf("list results: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected exactly one result, got %d", len(results))
	}
}

func TestProcessJobUnknownJob(t *testing.T) {
	store := memstore.NewStore()
	orc := NewOrchestrator(store, &fakeLoader{pages: 1}, &fakeEngine{}, 0, zap.NewNop())

	err := orc.ProcessJob(context.Background(), "missing")
	if !errors.Is(err, domain.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestProcessJobUnsupportedType(t *testing.T) {
	store := memstore.NewStore()
	seedDocument(t, store, "doc-1", domain.FileTypeWEBP)
	seedJob(t, store, "job-1", "doc-1")

	eng := &fakeEngine{unsupported: map[domain.FileType]bool{domain.FileTypeWEBP: true}}
	orc := NewOrchestrator(store, &fakeLoader{pages: 1}, eng, 0, zap.NewNop())

	err := orc.ProcessJob(context.Background(), "job-1")
	if !errors.Is(err, domain.ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
	if !domain.IsPermanent(err) {
		t.Fatal("unsupported type must be permanent")
	}

	// The claim committed before the failure, so the job is processing
	// until FailJob runs.
	if got := fetchJob(t, store, "job-1").Status; got != domain.JobStatusProcessing {
		t.Fatalf("expected processing, got %s", got)
	}
}

func TestProcessJobZeroPages(t *testing.T) {
	store := memstore.NewStore()
	seedDocument(t, store, "doc-1", domain.FileTypePDF)
	seedJob(t, store, "job-1", "doc-1")

	orc := NewOrchestrator(store, &fakeLoader{pages: 0}, &fakeEngine{}, 0, zap.NewNop())

	err := orc.ProcessJob(context.Background(), "job-1")
	if !errors.Is(err, domain.ErrNoContentLoaded) {
		t.Fatalf("expected ErrNoContentLoaded, got %v", err)
	}
	if !domain.IsPermanent(err) {
		t.Fatal("an empty document must be a permanent failure")
	}
}

func TestFailJob(t *testing.T) {
	store := memstore.NewStore()
	seedDocument(t, store, "doc-1", domain.FileTypePDF)
	seedJob(t, store, "job-1", "doc-1")

	eng := &fakeEngine{err: errors.New("engine offline")}
	orc := NewOrchestrator(store, &fakeLoader{pages: 1}, eng, 0, zap.NewNop())

	if err := orc.ProcessJob(context.Background(), "job-1"); err == nil {
		t.Fatal("expected the engine error to surface")
	}
	if err := orc.FailJob(context.Background(), "job-1", "engine offline"); err != nil {
		t.Fatalf("fail job: %v", err)
	}

	job := fetchJob(t, store, "job-1")
	if job.Status != domain.JobStatusFailed {
		t.Fatalf("expected failed, got %s", job.Status)
	}
	if job.ErrorMessage != "engine offline" {
		t.Fatalf("expected the error message recorded, got %q", job.ErrorMessage)
	}
	if result := fetchResult(t, store, "job-1"); result != nil {
		t.Fatal("a failed job must not have a result")
	}
}

func TestProcessPageTimeout(t *testing.T) {
	store := memstore.NewStore()
	seedDocument(t, store, "doc-1", domain.FileTypePDF)
	seedJob(t, store, "job-1", "doc-1")

	eng := &slowEngine{delay: 50 * time.Millisecond}
	orc := NewOrchestrator(store, &fakeLoader{pages: 1}, eng, time.Millisecond, zap.NewNop())

	err := orc.ProcessJob(context.Background(), "job-1")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

// slowEngine blocks until the context expires.
type slowEngine struct {
	fakeEngine
	delay time.Duration
}

func (e *slowEngine) ProcessImage(ctx context.Context, _ image.Image) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(e.delay):
		return "late", nil
	}
}
