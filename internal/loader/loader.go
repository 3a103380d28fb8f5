// Package loader turns a stored document into a lazy stream of page images
// for the OCR engine. Pages are decoded one at a time so peak memory stays
// bounded to a single page regardless of document length.
package loader

import (
	"context"

	"github.com/kuldoc/ocrflow/internal/domain"
)

// PageIterator walks the pages of one document in order. It is finite and
// non-restartable; Close releases any transient resources and must be
// called even when iteration stops early.
//
//	it, err := loader.LoadPages(ctx, doc)
//	if err != nil { ... }
//	defer it.Close()
//	for it.Next() {
//		page := it.Page()
//		...
//	}
//	if err := it.Err(); err != nil { ... }
type PageIterator interface {
	Next() bool
	Page() domain.PageInput
	Err() error
	Close() error
}

// DocumentLoader opens a document and streams its pages. Each call re-reads
// the source bytes. An unsupported file type is a permanent error;
// unreadable source bytes surface as an I/O error.
type DocumentLoader interface {
	LoadPages(ctx context.Context, doc domain.DocumentInput) (PageIterator, error)
}
