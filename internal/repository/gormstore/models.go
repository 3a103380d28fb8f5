package gormstore

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/kuldoc/ocrflow/internal/domain"
)

type documentRow struct {
	ID            string `gorm:"primaryKey;size:255"`
	FilePath      string `gorm:"size:255;not null"`
	FileType      string `gorm:"size:16;not null"`
	UploadedAt    time.Time
	FileSizeBytes int64
}

func (documentRow) TableName() string { return "documents" }

func newDocumentRow(doc *domain.Document) documentRow {
	return documentRow{
		ID:            doc.ID,
		FilePath:      doc.FilePath,
		FileType:      string(doc.FileType),
		UploadedAt:    doc.UploadedAt,
		FileSizeBytes: doc.FileSizeBytes,
	}
}

func (r documentRow) toDomain() *domain.Document {
	return &domain.Document{
		ID:            r.ID,
		FilePath:      r.FilePath,
		FileType:      domain.FileType(r.FileType),
		UploadedAt:    r.UploadedAt,
		FileSizeBytes: r.FileSizeBytes,
	}
}

type jobRow struct {
	ID           string `gorm:"primaryKey;size:255"`
	DocumentID   string `gorm:"size:255;index"`
	Status       string `gorm:"size:16;not null;index"`
	CreatedAt    time.Time
	StartedAt    *time.Time
	CompletedAt  *time.Time
	ErrorMessage string `gorm:"type:text"`
}

func (jobRow) TableName() string { return "jobs" }

func newJobRow(job *domain.Job) jobRow {
	return jobRow{
		ID:           job.ID,
		DocumentID:   job.DocumentID,
		Status:       string(job.Status),
		CreatedAt:    job.CreatedAt,
		StartedAt:    job.StartedAt,
		CompletedAt:  job.CompletedAt,
		ErrorMessage: job.ErrorMessage,
	}
}

func (r jobRow) toDomain() *domain.Job {
	return &domain.Job{
		ID:           r.ID,
		DocumentID:   r.DocumentID,
		Status:       domain.JobStatus(r.Status),
		CreatedAt:    r.CreatedAt,
		StartedAt:    r.StartedAt,
		CompletedAt:  r.CompletedAt,
		ErrorMessage: r.ErrorMessage,
	}
}

// resultRow serializes Content as a JSON array of processed pages. The
// unique index on JobID enforces the one-result-per-job invariant at the
// store level.
type resultRow struct {
	ID           string `gorm:"primaryKey;size:255"`
	JobID        string `gorm:"size:255;uniqueIndex"`
	CreationTime time.Time
	Content      string `gorm:"type:text"`
}

func (resultRow) TableName() string { return "results" }

func newResultRow(result *domain.Result) (resultRow, error) {
	content, err := json.Marshal(result.Content)
	if err != nil {
		return resultRow{}, fmt.Errorf("encode result content: %w", err)
	}
	return resultRow{
		ID:           result.ID,
		JobID:        result.JobID,
		CreationTime: result.CreationTime,
		Content:      string(content),
	}, nil
}

func (r resultRow) toDomain() (*domain.Result, error) {
	var content []domain.ProcessedPage
	if r.Content != "" {
		if err := json.Unmarshal([]byte(r.Content), &content); err != nil {
			return nil, fmt.Errorf("decode result content for %s: %w", r.ID, err)
		}
	}
	return &domain.Result{
		ID:           r.ID,
		JobID:        r.JobID,
		Content:      content,
		CreationTime: r.CreationTime,
	}, nil
}
