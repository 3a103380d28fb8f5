package loader

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"io"
	"os"
	"path/filepath"
	"strconv"

	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/kuldoc/ocrflow/internal/domain"
	"github.com/kuldoc/ocrflow/internal/storage"
)

// StorageLoader resolves document bytes through the FileStorage port and
// decodes them into normalized RGBA page images. Single-image documents
// yield exactly one page; PDFs are staged to a temp file and their page
// rasters extracted one page at a time with pdfcpu.
//
// PDF pages are expected to carry an embedded raster, which holds for
// scanned documents. pdfcpu extracts embedded images rather than rendering
// page content, so a text-only or vector page fails permanently with
// ErrNoContentLoaded instead of yielding a rendered bitmap.
type StorageLoader struct {
	storage storage.FileStorage
}

func NewStorageLoader(fs storage.FileStorage) *StorageLoader {
	return &StorageLoader{storage: fs}
}

func (l *StorageLoader) LoadPages(ctx context.Context, doc domain.DocumentInput) (PageIterator, error) {
	switch {
	case doc.FileType.IsImage():
		return l.loadSingleImage(ctx, doc)
	case doc.FileType.IsPDF():
		return l.loadPDF(ctx, doc)
	default:
		return nil, fmt.Errorf("%q: %w", doc.FileType, domain.Permanent(domain.ErrUnsupportedType))
	}
}

func (l *StorageLoader) loadSingleImage(ctx context.Context, doc domain.DocumentInput) (PageIterator, error) {
	r, err := l.storage.Load(ctx, doc.FilePath)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode image for document %s: %w", doc.ID, err)
	}
	return &singleImageIterator{
		page: domain.PageInput{
			Image:              normalizeRGBA(img),
			PageNumber:         1,
			OriginalDocumentID: doc.ID,
		},
	}, nil
}

func (l *StorageLoader) loadPDF(ctx context.Context, doc domain.DocumentInput) (PageIterator, error) {
	tempDir, err := os.MkdirTemp("", "ocrflow-loader-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}

	sourcePath := filepath.Join(tempDir, "source.pdf")
	if err := l.stageToFile(ctx, doc.FilePath, sourcePath); err != nil {
		os.RemoveAll(tempDir)
		return nil, err
	}

	optimizedPath := filepath.Join(tempDir, "optimized.pdf")
	if err := api.OptimizeFile(sourcePath, optimizedPath, relaxedConf()); err != nil {
		os.RemoveAll(tempDir)
		return nil, fmt.Errorf("failed to validate/optimize PDF for document %s: %w", doc.ID, err)
	}
	pageCount, err := api.PageCountFile(optimizedPath)
	if err != nil {
		os.RemoveAll(tempDir)
		return nil, fmt.Errorf("failed to get page count for document %s: %w", doc.ID, err)
	}

	return &pdfIterator{
		documentID: doc.ID,
		tempDir:    tempDir,
		pdfPath:    optimizedPath,
		pageCount:  pageCount,
	}, nil
}

func (l *StorageLoader) stageToFile(ctx context.Context, storagePath, destPath string) error {
	r, err := l.storage.Load(ctx, storagePath)
	if err != nil {
		return err
	}
	defer r.Close()

	f, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create temp file at %s: %w", destPath, err)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("failed to copy document to temp file: %w", err)
	}
	return nil
}

type singleImageIterator struct {
	page domain.PageInput
	done bool
}

func (it *singleImageIterator) Next() bool {
	if it.done {
		return false
	}
	it.done = true
	return true
}

func (it *singleImageIterator) Page() domain.PageInput { return it.page }

func (it *singleImageIterator) Err() error { return nil }

func (it *singleImageIterator) Close() error { return nil }

// pdfIterator extracts one page's raster per Next call. The extracted image
// and its scratch directory are released before the next page is produced.
type pdfIterator struct {
	documentID string
	tempDir    string
	pdfPath    string
	pageCount  int

	pageNo int
	page   domain.PageInput
	err    error
}

func (it *pdfIterator) Next() bool {
	if it.err != nil || it.pageNo >= it.pageCount {
		return false
	}
	it.pageNo++

	img, err := it.extractPageImage(it.pageNo)
	if err != nil {
		it.err = err
		return false
	}
	it.page = domain.PageInput{
		Image:              img,
		PageNumber:         it.pageNo,
		OriginalDocumentID: it.documentID,
	}
	return true
}

func (it *pdfIterator) extractPageImage(pageNo int) (image.Image, error) {
	outDir := filepath.Join(it.tempDir, "page")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create page dir: %w", err)
	}
	defer os.RemoveAll(outDir)

	if err := api.ExtractImagesFile(it.pdfPath, outDir, []string{strconv.Itoa(pageNo)}, relaxedConf()); err != nil {
		return nil, fmt.Errorf("failed to extract raster for page %d of document %s: %w",
			pageNo, it.documentID, err)
	}
	entries, err := os.ReadDir(outDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read page dir: %w", err)
	}
	if len(entries) == 0 {
		// Text-only and vector pages never produce an embedded raster, so
		// retrying cannot succeed.
		return nil, fmt.Errorf("page %d of document %s has no raster content: %w",
			pageNo, it.documentID, domain.Permanent(domain.ErrNoContentLoaded))
	}

	data, err := os.ReadFile(filepath.Join(outDir, entries[0].Name()))
	if err != nil {
		return nil, fmt.Errorf("failed to read page raster: %w", err)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode raster for page %d of document %s: %w", pageNo, it.documentID, err)
	}
	return normalizeRGBA(img), nil
}

func (it *pdfIterator) Page() domain.PageInput { return it.page }

func (it *pdfIterator) Err() error { return it.err }

func (it *pdfIterator) Close() error {
	return os.RemoveAll(it.tempDir)
}

func relaxedConf() *model.Configuration {
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	return cfg
}

// normalizeRGBA redraws any decoded image into a plain RGBA buffer so the
// engine always sees one color representation regardless of source alpha or
// bit depth.
func normalizeRGBA(src image.Image) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}
