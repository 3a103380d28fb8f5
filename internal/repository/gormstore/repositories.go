package gormstore

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/kuldoc/ocrflow/internal/domain"
)

type documentRepository struct {
	tx *gorm.DB
}

func (r *documentRepository) Add(doc *domain.Document) error {
	row := newDocumentRow(doc)
	if err := r.tx.Create(&row).Error; err != nil {
		return fmt.Errorf("insert document %s: %w", doc.ID, err)
	}
	return nil
}

func (r *documentRepository) Get(id string) (*domain.Document, error) {
	var row documentRow
	err := r.tx.First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select document %s: %w", id, err)
	}
	return row.toDomain(), nil
}

func (r *documentRepository) ListAll() ([]*domain.Document, error) {
	var rows []documentRow
	if err := r.tx.Order("uploaded_at").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("select documents: %w", err)
	}
	docs := make([]*domain.Document, 0, len(rows))
	for _, row := range rows {
		docs = append(docs, row.toDomain())
	}
	return docs, nil
}

type jobRepository struct {
	tx *gorm.DB
}

func (r *jobRepository) Add(job *domain.Job) error {
	row := newJobRow(job)
	if err := r.tx.Create(&row).Error; err != nil {
		return fmt.Errorf("insert job %s: %w", job.ID, err)
	}
	return nil
}

func (r *jobRepository) Get(id string) (*domain.Job, error) {
	var row jobRow
	err := r.tx.First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select job %s: %w", id, err)
	}
	return row.toDomain(), nil
}

// Update writes the job's mutable fields guarded by the status the caller
// last observed. Zero affected rows means another writer got there first.
func (r *jobRepository) Update(job *domain.Job, prev domain.JobStatus) error {
	res := r.tx.Model(&jobRow{}).
		Where("id = ? AND status = ?", job.ID, string(prev)).
		Updates(map[string]any{
			"status":        string(job.Status),
			"started_at":    job.StartedAt,
			"completed_at":  job.CompletedAt,
			"error_message": job.ErrorMessage,
		})
	if res.Error != nil {
		return fmt.Errorf("update job %s: %w", job.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("job %s no longer %s: %w", job.ID, prev, domain.ErrStatusConflict)
	}
	return nil
}

func (r *jobRepository) ListAll() ([]*domain.Job, error) {
	var rows []jobRow
	if err := r.tx.Order("created_at").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("select jobs: %w", err)
	}
	return toDomainJobs(rows), nil
}

func (r *jobRepository) ListByStatus(status domain.JobStatus) ([]*domain.Job, error) {
	var rows []jobRow
	if err := r.tx.Where("status = ?", string(status)).Order("created_at").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("select jobs by status %s: %w", status, err)
	}
	return toDomainJobs(rows), nil
}

func (r *jobRepository) ListByDocumentID(documentID string) ([]*domain.Job, error) {
	var rows []jobRow
	if err := r.tx.Where("document_id = ?", documentID).Order("created_at").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("select jobs for document %s: %w", documentID, err)
	}
	return toDomainJobs(rows), nil
}

func (r *jobRepository) ListTerminal() ([]*domain.Job, error) {
	var rows []jobRow
	err := r.tx.Where("status IN ?", []string{
		string(domain.JobStatusCompleted), string(domain.JobStatusFailed),
	}).Order("created_at").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("select terminal jobs: %w", err)
	}
	return toDomainJobs(rows), nil
}

func (r *jobRepository) GetLatestCompletedForDocument(documentID string) (*domain.Job, error) {
	var rows []jobRow
	err := r.tx.Where("document_id = ? AND status = ?", documentID, string(domain.JobStatusCompleted)).
		Order("completed_at DESC").
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("select latest completed job for document %s: %w", documentID, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0].toDomain(), nil
}

func toDomainJobs(rows []jobRow) []*domain.Job {
	jobs := make([]*domain.Job, 0, len(rows))
	for _, row := range rows {
		jobs = append(jobs, row.toDomain())
	}
	return jobs
}

type resultRepository struct {
	tx *gorm.DB
}

func (r *resultRepository) Add(result *domain.Result) error {
	row, err := newResultRow(result)
	if err != nil {
		return err
	}
	if err := r.tx.Create(&row).Error; err != nil {
		return fmt.Errorf("insert result %s: %w", result.ID, err)
	}
	return nil
}

func (r *resultRepository) Get(id string) (*domain.Result, error) {
	var row resultRow
	err := r.tx.First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select result %s: %w", id, err)
	}
	return row.toDomain()
}

func (r *resultRepository) ListAll() ([]*domain.Result, error) {
	var rows []resultRow
	if err := r.tx.Order("creation_time").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("select results: %w", err)
	}
	results := make([]*domain.Result, 0, len(rows))
	for _, row := range rows {
		result, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}

func (r *resultRepository) GetByJobID(jobID string) (*domain.Result, error) {
	var row resultRow
	err := r.tx.First(&row, "job_id = ?", jobID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select result for job %s: %w", jobID, err)
	}
	return row.toDomain()
}
