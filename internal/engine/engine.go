// Package engine defines the pluggable text-recognition port. Constructors
// of concrete engines probe the backend once and fail fast, so a
// misconfigured engine aborts startup instead of failing jobs at runtime.
package engine

import (
	"context"
	"image"

	"github.com/kuldoc/ocrflow/internal/domain"
)

// Engine recognizes text in page images. ProcessImage may return an empty
// string for a blank page, never an absent value. Name and Version identify
// the backend for diagnostics.
type Engine interface {
	SupportsFileType(fileType domain.FileType) bool
	ProcessImage(ctx context.Context, img image.Image) (string, error)
	Name() string
	Version() string
}
