package storage

import (
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"

	"github.com/kuldoc/ocrflow/internal/domain"
)

// GCSStorage stores documents as objects in a Google Cloud Storage bucket.
type GCSStorage struct {
	client *storage.Client
	bucket string
}

func NewGCSStorage(ctx context.Context, bucket string) (*GCSStorage, error) {
	if bucket == "" {
		return nil, fmt.Errorf("GCS bucket must be set")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Storage client: %w", err)
	}
	return &GCSStorage{client: client, bucket: bucket}, nil
}

// Save writes the object only if it does not already exist. Documents are
// immutable, so a precondition failure means the bytes are already there
// and the write is simply skipped.
func (s *GCSStorage) Save(ctx context.Context, r io.Reader, path string, _ int64, contentType string) error {
	w := s.client.Bucket(s.bucket).Object(path).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		if gerr, ok := err.(*googleapi.Error); ok && gerr.Code == 412 {
			return nil
		}
		return fmt.Errorf("write gs://%s/%s: %v: %w", s.bucket, path, err, domain.ErrFileUpload)
	}
	if err := w.Close(); err != nil {
		if gerr, ok := err.(*googleapi.Error); ok && gerr.Code == 412 {
			return nil
		}
		return fmt.Errorf("finalize gs://%s/%s: %v: %w", s.bucket, path, err, domain.ErrFileUpload)
	}
	return nil
}

func (s *GCSStorage) Load(ctx context.Context, path string) (io.ReadCloser, error) {
	r, err := s.client.Bucket(s.bucket).Object(path).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("read gs://%s/%s: %v: %w", s.bucket, path, err, domain.ErrFileDownload)
	}
	return r, nil
}
