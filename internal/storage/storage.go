// Package storage abstracts where document bytes live. The core never
// touches a backend directly; it saves and loads opaque streams by path.
package storage

import (
	"context"
	"io"
)

// FileStorage is the port consumed by the upload service and the document
// loader. Save streams the full content to the given path; Load returns a
// reader the caller must close.
type FileStorage interface {
	Save(ctx context.Context, r io.Reader, path string, size int64, contentType string) error
	Load(ctx context.Context, path string) (io.ReadCloser, error)
}
