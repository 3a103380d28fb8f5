package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/kuldoc/ocrflow/internal/domain"
)

// LocalStorage keeps documents on the local filesystem under a root
// directory. Paths handed to Save/Load are relative to that root.
type LocalStorage struct {
	root string
}

func NewLocalStorage(root string) (*LocalStorage, error) {
	if root == "" {
		return nil, fmt.Errorf("storage root must be set")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root %s: %w", root, err)
	}
	return &LocalStorage{root: root}, nil
}

func (s *LocalStorage) Save(_ context.Context, r io.Reader, path string, _ int64, _ string) error {
	dest := filepath.Join(s.root, filepath.Clean(path))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("%v: %w", err, domain.ErrFileUpload)
	}
	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("%v: %w", err, domain.ErrFileUpload)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("write %s: %v: %w", dest, err, domain.ErrFileUpload)
	}
	return nil
}

func (s *LocalStorage) Load(_ context.Context, path string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.root, filepath.Clean(path)))
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrFileDownload)
	}
	return f, nil
}
