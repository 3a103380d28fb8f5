package domain

import (
	"fmt"
	"path"
	"time"
)

// Document is the metadata record for an uploaded file. It is immutable
// after construction; jobs reference it by ID and never own it.
type Document struct {
	ID            string    `json:"id"`
	FilePath      string    `json:"file_path"`
	FileType      FileType  `json:"file_type"`
	UploadedAt    time.Time `json:"uploaded_at"`
	FileSizeBytes int64     `json:"file_size_bytes"`
}

// NewDocument builds a Document and enforces that the file path carries the
// canonical extension for the declared file type.
func NewDocument(id, filePath string, fileType FileType, sizeBytes int64) (*Document, error) {
	if !fileType.Valid() {
		return nil, fmt.Errorf("%q: %w", fileType, Permanent(ErrUnsupportedType))
	}
	if ext := path.Ext(filePath); ext != fileType.DotExtension() {
		return nil, fmt.Errorf("document extension mismatch: expected %s but got %s",
			fileType.DotExtension(), ext)
	}
	return &Document{
		ID:            id,
		FilePath:      filePath,
		FileType:      fileType,
		UploadedAt:    time.Now().UTC(),
		FileSizeBytes: sizeBytes,
	}, nil
}

// Name returns the file name portion of the document's storage path.
func (d *Document) Name() string { return path.Base(d.FilePath) }

func (d *Document) MIMEType() string { return d.FileType.MIMEType() }

func (d *Document) IsPDF() bool { return d.FileType.IsPDF() }

func (d *Document) IsImage() bool { return d.FileType.IsImage() }

// Input strips the document down to the fields the processing pipeline
// needs, so loaders and engines never touch persistence-bound state.
func (d *Document) Input() DocumentInput {
	return DocumentInput{ID: d.ID, FilePath: d.FilePath, FileType: d.FileType}
}

// DocumentInput is the minimal document data handed to the loader and the
// OCR engine.
type DocumentInput struct {
	ID       string
	FilePath string
	FileType FileType
}
