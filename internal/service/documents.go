// Package service holds the application services over the domain model:
// document intake, job submission and queries, and the asynchronous job
// orchestrator.
package service

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kuldoc/ocrflow/internal/domain"
	"github.com/kuldoc/ocrflow/internal/repository"
	"github.com/kuldoc/ocrflow/internal/storage"
)

func newID() string { return uuid.NewString() }

// DocumentService handles document intake and retrieval.
type DocumentService struct {
	uow     repository.UnitOfWorkFactory
	storage storage.FileStorage
	logger  *zap.Logger
}

func NewDocumentService(uow repository.UnitOfWorkFactory, fs storage.FileStorage, logger *zap.Logger) *DocumentService {
	return &DocumentService{
		uow:     uow,
		storage: fs,
		logger:  logger.With(zap.String("service", "documents")),
	}
}

// Upload saves the file stream under a generated storage path and persists
// the document metadata in one scope. A storage failure rolls the metadata
// write back.
func (s *DocumentService) Upload(ctx context.Context, r io.Reader, filename string, fileType domain.FileType, sizeBytes int64) (*domain.Document, error) {
	if ext := strings.ToLower(path.Ext(filename)); ext != "" && ext != fileType.DotExtension() {
		return nil, fmt.Errorf("document extension mismatch: declared as %s but got %s",
			fileType.DotExtension(), ext)
	}

	id := newID()
	storagePath := id + fileType.DotExtension()
	doc, err := domain.NewDocument(id, storagePath, fileType, sizeBytes)
	if err != nil {
		return nil, err
	}

	uow, err := s.uow.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer uow.Rollback()

	if err := uow.Documents().Add(doc); err != nil {
		return nil, err
	}
	if err := s.storage.Save(ctx, r, storagePath, sizeBytes, fileType.MIMEType()); err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	s.logger.Info("document uploaded",
		zap.String("document_id", doc.ID),
		zap.String("file_type", string(doc.FileType)),
		zap.Int64("size_bytes", doc.FileSizeBytes))
	return doc, nil
}

// Get returns the document or ErrDocumentNotFound.
func (s *DocumentService) Get(ctx context.Context, documentID string) (*domain.Document, error) {
	uow, err := s.uow.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer uow.Rollback()
	return getDocument(uow, documentID)
}

func (s *DocumentService) List(ctx context.Context) ([]*domain.Document, error) {
	uow, err := s.uow.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer uow.Rollback()
	return uow.Documents().ListAll()
}

// Download returns the document's byte stream along with its content type
// and download filename. The caller closes the stream.
func (s *DocumentService) Download(ctx context.Context, documentID string) (io.ReadCloser, string, string, error) {
	uow, err := s.uow.Begin(ctx)
	if err != nil {
		return nil, "", "", err
	}
	defer uow.Rollback()

	doc, err := getDocument(uow, documentID)
	if err != nil {
		return nil, "", "", err
	}
	stream, err := s.storage.Load(ctx, doc.FilePath)
	if err != nil {
		return nil, "", "", err
	}
	return stream, doc.MIMEType(), doc.ID + doc.FileType.DotExtension(), nil
}

// GetWithLatestResult returns the document together with the result of its
// most recently completed job, or a nil result when none is completed.
func (s *DocumentService) GetWithLatestResult(ctx context.Context, documentID string) (*domain.Document, *domain.Result, error) {
	uow, err := s.uow.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer uow.Rollback()

	doc, err := getDocument(uow, documentID)
	if err != nil {
		return nil, nil, err
	}
	latest, err := uow.Jobs().GetLatestCompletedForDocument(documentID)
	if err != nil {
		return nil, nil, err
	}
	if latest == nil {
		return doc, nil, nil
	}
	result, err := uow.Results().GetByJobID(latest.ID)
	if err != nil {
		return nil, nil, err
	}
	return doc, result, nil
}

func getDocument(uow repository.UnitOfWork, documentID string) (*domain.Document, error) {
	doc, err := uow.Documents().Get(documentID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("document %s: %w", documentID, domain.ErrDocumentNotFound)
	}
	return doc, nil
}
