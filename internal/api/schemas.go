package api

import (
	"time"

	"github.com/kuldoc/ocrflow/internal/domain"
)

type documentResponse struct {
	ID            string    `json:"id"`
	FilePath      string    `json:"file_path"`
	FileType      string    `json:"file_type"`
	UploadedAt    time.Time `json:"uploaded_at"`
	FileSizeBytes int64     `json:"file_size_bytes"`
}

func toDocumentResponse(d *domain.Document) documentResponse {
	return documentResponse{
		ID:            d.ID,
		FilePath:      d.FilePath,
		FileType:      string(d.FileType),
		UploadedAt:    d.UploadedAt,
		FileSizeBytes: d.FileSizeBytes,
	}
}

type jobResponse struct {
	ID           string     `json:"id"`
	DocumentID   string     `json:"document_id"`
	Status       string     `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
}

func toJobResponse(j *domain.Job) jobResponse {
	return jobResponse{
		ID:           j.ID,
		DocumentID:   j.DocumentID,
		Status:       string(j.Status),
		CreatedAt:    j.CreatedAt,
		StartedAt:    j.StartedAt,
		CompletedAt:  j.CompletedAt,
		ErrorMessage: j.ErrorMessage,
	}
}

type jobListResponse struct {
	Jobs []jobResponse `json:"jobs"`
}

func toJobListResponse(jobs []*domain.Job) jobListResponse {
	out := jobListResponse{Jobs: make([]jobResponse, 0, len(jobs))}
	for _, j := range jobs {
		out.Jobs = append(out.Jobs, toJobResponse(j))
	}
	return out
}

// resultResponse reuses the domain wire tags for Content, which already
// match the persisted layout.
type resultResponse struct {
	ID           string                 `json:"id"`
	JobID        string                 `json:"job_id"`
	Content      []domain.ProcessedPage `json:"content"`
	CreationTime time.Time              `json:"creation_time"`
}

func toResultResponse(r *domain.Result) resultResponse {
	return resultResponse{
		ID:           r.ID,
		JobID:        r.JobID,
		Content:      r.Content,
		CreationTime: r.CreationTime,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}
