package domain

import "time"

// Result holds the ordered per-page OCR output of one completed job. At most
// one Result exists per job; it is stored independently and linked by JobID.
type Result struct {
	ID           string          `json:"id"`
	JobID        string          `json:"job_id"`
	Content      []ProcessedPage `json:"content"`
	CreationTime time.Time       `json:"creation_time"`
}

// NewResult creates a Result for the given job.
func NewResult(id, jobID string, content []ProcessedPage) *Result {
	return &Result{
		ID:           id,
		JobID:        jobID,
		Content:      content,
		CreationTime: time.Now().UTC(),
	}
}
