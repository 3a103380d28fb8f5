package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kuldoc/ocrflow/internal/domain"
	"github.com/kuldoc/ocrflow/internal/repository/memstore"
)

func TestUpload(t *testing.T) {
	store := memstore.NewStore()
	fs := newFakeStorage()
	svc := NewDocumentService(store, fs, zap.NewNop())

	doc, err := svc.Upload(context.Background(), strings.NewReader("pdf bytes"), "report.pdf", domain.FileTypePDF, 9)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if doc.FileType != domain.FileTypePDF || doc.FileSizeBytes != 9 {
		t.Fatalf("unexpected document %+v", doc)
	}
	if doc.FilePath != doc.ID+".pdf" {
		t.Fatalf("expected storage path derived from the id, got %s", doc.FilePath)
	}

	// Metadata and bytes must both be visible.
	got, err := svc.Get(context.Background(), doc.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != doc.ID {
		t.Fatalf("expected %s, got %s", doc.ID, got.ID)
	}
	stream, _, _, err := svc.Download(context.Background(), doc.ID)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	defer stream.Close()
	data, err := io.ReadAll(stream)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "pdf bytes" {
		t.Fatalf("unexpected bytes %q", data)
	}
}

func TestUploadExtensionMismatch(t *testing.T) {
	store := memstore.NewStore()
	svc := NewDocumentService(store, newFakeStorage(), zap.NewNop())

	if _, err := svc.Upload(context.Background(), strings.NewReader("x"), "photo.png", domain.FileTypePDF, 1); err == nil {
		t.Fatal("expected an error when the filename extension disagrees with the declared type")
	}
}

func TestUploadStorageFailureRollsBack(t *testing.T) {
	store := memstore.NewStore()
	svc := NewDocumentService(store, failingStorage{}, zap.NewNop())

	_, err := svc.Upload(context.Background(), strings.NewReader("x"), "a.pdf", domain.FileTypePDF, 1)
	if !errors.Is(err, domain.ErrFileUpload) {
		t.Fatalf("expected ErrFileUpload, got %v", err)
	}

	docs, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(docs) != 0 {
		t.Fatalf("metadata must not survive a failed upload, got %d documents", len(docs))
	}
}

func TestGetUnknownDocument(t *testing.T) {
	store := memstore.NewStore()
	svc := NewDocumentService(store, newFakeStorage(), zap.NewNop())

	_, err := svc.Get(context.Background(), "missing")
	if !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestGetWithLatestResult(t *testing.T) {
	store := memstore.NewStore()
	svc := NewDocumentService(store, newFakeStorage(), zap.NewNop())
	seedDocument(t, store, "doc-1", domain.FileTypePDF)

	// No completed job yet.
	doc, result, err := svc.GetWithLatestResult(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc == nil || result != nil {
		t.Fatal("expected the document with a nil result")
	}

	// Two completed jobs; the later one wins.
	base := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	seedCompletedJob(t, store, "job-old", "doc-1", base, "res-old")
	seedCompletedJob(t, store, "job-new", "doc-1", base.Add(time.Hour), "res-new")

	_, result, err = svc.GetWithLatestResult(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if result == nil || result.ID != "res-new" {
		t.Fatalf("expected res-new, got %+v", result)
	}
}

func seedCompletedJob(t *testing.T, store *memstore.Store, jobID, documentID string, completedAt time.Time, resultID string) {
	t.Helper()
	job := domain.NewJob(jobID, documentID)
	job.Status = domain.JobStatusCompleted
	started := completedAt.Add(-time.Minute)
	job.StartedAt = &started
	job.CompletedAt = &completedAt

	uow, err := store.Begin(context.Background())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer uow.Rollback()
	if err := uow.Jobs().Add(job); err != nil {
		t.Fatalf("add job: %v", err)
	}
	if err := uow.Results().Add(domain.NewResult(resultID, jobID, nil)); err != nil {
		t.Fatalf("add result: %v", err)
	}
	if err := uow.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
}

// failingStorage rejects every save.
type failingStorage struct{}

func (failingStorage) Save(context.Context, io.Reader, string, int64, string) error {
	return domain.ErrFileUpload
}

func (failingStorage) Load(context.Context, string) (io.ReadCloser, error) {
	return nil, domain.ErrFileDownload
}
