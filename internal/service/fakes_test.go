package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"sync"

	"github.com/kuldoc/ocrflow/internal/domain"
	"github.com/kuldoc/ocrflow/internal/loader"
)

// fakeStorage keeps uploaded bytes in a map.
type fakeStorage struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{files: make(map[string][]byte)}
}

func (s *fakeStorage) Save(_ context.Context, r io.Reader, path string, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[path] = data
	return nil
}

func (s *fakeStorage) Load(_ context.Context, path string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[path]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, domain.ErrFileDownload)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// fakeQueue records enqueued job ids.
type fakeQueue struct {
	mu  sync.Mutex
	ids []string
	err error
}

func (q *fakeQueue) Enqueue(_ context.Context, jobID string) error {
	if q.err != nil {
		return q.err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ids = append(q.ids, jobID)
	return nil
}

func (q *fakeQueue) enqueued() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.ids...)
}

// fakeLoader yields a fixed number of blank pages per document.
type fakeLoader struct {
	pages   int
	loadErr error
	iterErr error
}

func (l *fakeLoader) LoadPages(_ context.Context, doc domain.DocumentInput) (loader.PageIterator, error) {
	if l.loadErr != nil {
		return nil, l.loadErr
	}
	return &fakeIterator{total: l.pages, docID: doc.ID, err: l.iterErr}, nil
}

type fakeIterator struct {
	total  int
	next   int
	docID  string
	err    error
	closed bool
}

func (it *fakeIterator) Next() bool {
	if it.next >= it.total {
		return false
	}
	it.next++
	return true
}

func (it *fakeIterator) Page() domain.PageInput {
	return domain.PageInput{
		Image:              image.NewRGBA(image.Rect(0, 0, 100, 200)),
		PageNumber:         it.next,
		OriginalDocumentID: it.docID,
	}
}

func (it *fakeIterator) Err() error { return it.err }

func (it *fakeIterator) Close() error {
	it.closed = true
	return nil
}

// fakeEngine returns scripted texts in page order, or a fixed error.
type fakeEngine struct {
	texts       []string
	err         error
	calls       int
	unsupported map[domain.FileType]bool
}

func (e *fakeEngine) SupportsFileType(fileType domain.FileType) bool {
	return !e.unsupported[fileType]
}

func (e *fakeEngine) ProcessImage(_ context.Context, _ image.Image) (string, error) {
	e.calls++
	if e.err != nil {
		return "", e.err
	}
	if e.calls > len(e.texts) {
		return "", nil
	}
	return e.texts[e.calls-1], nil
}

func (e *fakeEngine) Name() string { return "fake" }

func (e *fakeEngine) Version() string { return "test" }
