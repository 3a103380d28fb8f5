package domain

import (
	"fmt"
	"time"
)

// JobStatus is the lifecycle state of a Job.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusPending, JobStatusProcessing, JobStatusCompleted, JobStatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is permitted from s.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Job tracks one asynchronous OCR run over a document. The only legal
// transition sequence is pending → processing → completed|failed; the three
// guarded methods below are the sole way to mutate it.
type Job struct {
	ID           string     `json:"id"`
	DocumentID   string     `json:"document_id"`
	Status       JobStatus  `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	StartedAt    *time.Time `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at"`
	ErrorMessage string     `json:"error_message"`
}

// NewJob creates a pending job for the given document.
func NewJob(id, documentID string) *Job {
	return &Job{
		ID:         id,
		DocumentID: documentID,
		Status:     JobStatusPending,
		CreatedAt:  time.Now().UTC(),
	}
}

func (j *Job) IsTerminal() bool { return j.Status.IsTerminal() }

// Duration is defined only once the job is terminal.
func (j *Job) Duration() (time.Duration, error) {
	if !j.IsTerminal() {
		return 0, fmt.Errorf("cannot calculate duration for job %s: job is still %s", j.ID, j.Status)
	}
	if j.StartedAt == nil || j.CompletedAt == nil {
		return 0, fmt.Errorf("job %s is terminal but missing timestamps", j.ID)
	}
	return j.CompletedAt.Sub(*j.StartedAt), nil
}

// MarkAsProcessing transitions pending → processing and stamps StartedAt.
func (j *Job) MarkAsProcessing() error {
	if j.Status != JobStatusPending {
		return fmt.Errorf("job %s has already been claimed, status is %s: %w",
			j.ID, j.Status, ErrInvalidTransition)
	}
	now := time.Now().UTC()
	j.StartedAt = &now
	j.Status = JobStatusProcessing
	return nil
}

// Complete transitions processing → completed and stamps CompletedAt.
func (j *Job) Complete() error {
	if j.Status != JobStatusProcessing {
		return fmt.Errorf("job %s is not in processing state, status is %s: %w",
			j.ID, j.Status, ErrInvalidTransition)
	}
	now := time.Now().UTC()
	j.CompletedAt = &now
	j.Status = JobStatusCompleted
	return nil
}

// Fail transitions any non-terminal state → failed, recording the reason.
func (j *Job) Fail(errorMessage string) error {
	if j.IsTerminal() {
		return fmt.Errorf("cannot fail job %s, job is already terminal (%s): %w",
			j.ID, j.Status, ErrInvalidTransition)
	}
	now := time.Now().UTC()
	j.CompletedAt = &now
	j.ErrorMessage = errorMessage
	j.Status = JobStatusFailed
	return nil
}
