// Package memstore is an in-memory implementation of the repository and
// unit-of-work ports. Writes are staged per scope and applied atomically on
// Commit, so it honors the same rollback-by-default contract as the SQL
// store. It backs the local development profile and the test suites.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kuldoc/ocrflow/internal/domain"
	"github.com/kuldoc/ocrflow/internal/repository"
)

// Store holds the committed state shared by all scopes.
type Store struct {
	mu        sync.Mutex
	seq       int
	documents map[string]entry[*domain.Document]
	jobs      map[string]entry[*domain.Job]
	results   map[string]entry[*domain.Result]
}

type entry[T any] struct {
	value T
	seq   int
}

func NewStore() *Store {
	return &Store{
		documents: make(map[string]entry[*domain.Document]),
		jobs:      make(map[string]entry[*domain.Job]),
		results:   make(map[string]entry[*domain.Result]),
	}
}

// Begin opens a scope with its own staging area.
func (s *Store) Begin(_ context.Context) (repository.UnitOfWork, error) {
	u := &unitOfWork{store: s}
	u.documents = &documentRepository{u: u}
	u.jobs = &jobRepository{u: u}
	u.results = &resultRepository{u: u}
	return u, nil
}

type jobUpdate struct {
	job  *domain.Job
	prev domain.JobStatus
}

type unitOfWork struct {
	store *Store
	done  bool

	stagedDocs    []*domain.Document
	stagedJobs    []*domain.Job
	stagedUpdates []jobUpdate
	stagedResults []*domain.Result

	documents *documentRepository
	jobs      *jobRepository
	results   *resultRepository
}

func (u *unitOfWork) Documents() repository.DocumentRepository { return u.documents }

func (u *unitOfWork) Jobs() repository.JobRepository { return u.jobs }

func (u *unitOfWork) Results() repository.ResultRepository { return u.results }

// Commit validates and applies all staged writes under one lock acquisition.
func (u *unitOfWork) Commit() error {
	if u.done {
		return fmt.Errorf("unit of work already finished")
	}
	u.done = true

	s := u.store
	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate before mutating anything so a conflict leaves the store
	// untouched.
	for _, upd := range u.stagedUpdates {
		current, ok := s.jobs[upd.job.ID]
		if !ok {
			return fmt.Errorf("job %s: %w", upd.job.ID, domain.ErrJobNotFound)
		}
		if current.value.Status != upd.prev {
			return fmt.Errorf("job %s no longer %s: %w", upd.job.ID, upd.prev, domain.ErrStatusConflict)
		}
	}
	for _, result := range u.stagedResults {
		for _, existing := range s.results {
			if existing.value.JobID == result.JobID {
				return fmt.Errorf("job %s already has a result", result.JobID)
			}
		}
	}

	for _, doc := range u.stagedDocs {
		s.seq++
		s.documents[doc.ID] = entry[*domain.Document]{value: cloneDocument(doc), seq: s.seq}
	}
	for _, job := range u.stagedJobs {
		s.seq++
		s.jobs[job.ID] = entry[*domain.Job]{value: cloneJob(job), seq: s.seq}
	}
	for _, upd := range u.stagedUpdates {
		prev := s.jobs[upd.job.ID]
		s.jobs[upd.job.ID] = entry[*domain.Job]{value: cloneJob(upd.job), seq: prev.seq}
	}
	for _, result := range u.stagedResults {
		s.seq++
		s.results[result.ID] = entry[*domain.Result]{value: cloneResult(result), seq: s.seq}
	}
	return nil
}

// Rollback discards the staging area; after Commit it is a no-op.
func (u *unitOfWork) Rollback() error {
	if u.done {
		return nil
	}
	u.done = true
	u.stagedDocs = nil
	u.stagedJobs = nil
	u.stagedUpdates = nil
	u.stagedResults = nil
	return nil
}

type documentRepository struct {
	u *unitOfWork
}

func (r *documentRepository) Add(doc *domain.Document) error {
	r.u.stagedDocs = append(r.u.stagedDocs, cloneDocument(doc))
	return nil
}

func (r *documentRepository) Get(id string) (*domain.Document, error) {
	for i := len(r.u.stagedDocs) - 1; i >= 0; i-- {
		if r.u.stagedDocs[i].ID == id {
			return cloneDocument(r.u.stagedDocs[i]), nil
		}
	}
	s := r.u.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.documents[id]; ok {
		return cloneDocument(e.value), nil
	}
	return nil, nil
}

func (r *documentRepository) ListAll() ([]*domain.Document, error) {
	s := r.u.store
	s.mu.Lock()
	docs := make([]*domain.Document, 0, len(s.documents))
	seqs := make(map[string]int, len(s.documents))
	for id, e := range s.documents {
		docs = append(docs, cloneDocument(e.value))
		seqs[id] = e.seq
	}
	s.mu.Unlock()
	sort.Slice(docs, func(i, j int) bool { return seqs[docs[i].ID] < seqs[docs[j].ID] })
	for _, doc := range r.u.stagedDocs {
		docs = append(docs, cloneDocument(doc))
	}
	return docs, nil
}

type jobRepository struct {
	u *unitOfWork
}

func (r *jobRepository) Add(job *domain.Job) error {
	r.u.stagedJobs = append(r.u.stagedJobs, cloneJob(job))
	return nil
}

func (r *jobRepository) Get(id string) (*domain.Job, error) {
	for i := len(r.u.stagedUpdates) - 1; i >= 0; i-- {
		if r.u.stagedUpdates[i].job.ID == id {
			return cloneJob(r.u.stagedUpdates[i].job), nil
		}
	}
	for i := len(r.u.stagedJobs) - 1; i >= 0; i-- {
		if r.u.stagedJobs[i].ID == id {
			return cloneJob(r.u.stagedJobs[i]), nil
		}
	}
	s := r.u.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.jobs[id]; ok {
		return cloneJob(e.value), nil
	}
	return nil, nil
}

// Update stages the write; the previous-status guard is enforced against
// committed state at Commit time, mirroring the SQL store's behavior. A fast
// check here surfaces obvious conflicts early.
func (r *jobRepository) Update(job *domain.Job, prev domain.JobStatus) error {
	s := r.u.store
	s.mu.Lock()
	current, ok := s.jobs[job.ID]
	s.mu.Unlock()
	if ok && current.value.Status != prev {
		staged := false
		for _, j := range r.u.stagedJobs {
			if j.ID == job.ID {
				staged = true
			}
		}
		if !staged {
			return fmt.Errorf("job %s no longer %s: %w", job.ID, prev, domain.ErrStatusConflict)
		}
	}
	r.u.stagedUpdates = append(r.u.stagedUpdates, jobUpdate{job: cloneJob(job), prev: prev})
	return nil
}

func (r *jobRepository) ListAll() ([]*domain.Job, error) {
	return r.list(func(*domain.Job) bool { return true })
}

func (r *jobRepository) ListByStatus(status domain.JobStatus) ([]*domain.Job, error) {
	return r.list(func(j *domain.Job) bool { return j.Status == status })
}

func (r *jobRepository) ListByDocumentID(documentID string) ([]*domain.Job, error) {
	return r.list(func(j *domain.Job) bool { return j.DocumentID == documentID })
}

func (r *jobRepository) ListTerminal() ([]*domain.Job, error) {
	return r.list(func(j *domain.Job) bool { return j.IsTerminal() })
}

func (r *jobRepository) GetLatestCompletedForDocument(documentID string) (*domain.Job, error) {
	jobs, err := r.list(func(j *domain.Job) bool {
		return j.DocumentID == documentID && j.Status == domain.JobStatusCompleted
	})
	if err != nil {
		return nil, err
	}
	var latest *domain.Job
	for _, job := range jobs {
		if latest == nil || job.CompletedAt.After(*latest.CompletedAt) {
			latest = job
		}
	}
	return latest, nil
}

func (r *jobRepository) list(match func(*domain.Job) bool) ([]*domain.Job, error) {
	s := r.u.store
	s.mu.Lock()
	jobs := make([]*domain.Job, 0, len(s.jobs))
	seqs := make(map[string]int, len(s.jobs))
	for id, e := range s.jobs {
		job := e.value
		// Overlay staged updates so a scope sees its own writes.
		for i := len(r.u.stagedUpdates) - 1; i >= 0; i-- {
			if r.u.stagedUpdates[i].job.ID == id {
				job = r.u.stagedUpdates[i].job
				break
			}
		}
		if match(job) {
			jobs = append(jobs, cloneJob(job))
			seqs[id] = e.seq
		}
	}
	s.mu.Unlock()
	sort.Slice(jobs, func(i, j int) bool { return seqs[jobs[i].ID] < seqs[jobs[j].ID] })
	for _, job := range r.u.stagedJobs {
		if match(job) {
			jobs = append(jobs, cloneJob(job))
		}
	}
	return jobs, nil
}

type resultRepository struct {
	u *unitOfWork
}

func (r *resultRepository) Add(result *domain.Result) error {
	r.u.stagedResults = append(r.u.stagedResults, cloneResult(result))
	return nil
}

func (r *resultRepository) Get(id string) (*domain.Result, error) {
	for i := len(r.u.stagedResults) - 1; i >= 0; i-- {
		if r.u.stagedResults[i].ID == id {
			return cloneResult(r.u.stagedResults[i]), nil
		}
	}
	s := r.u.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.results[id]; ok {
		return cloneResult(e.value), nil
	}
	return nil, nil
}

func (r *resultRepository) ListAll() ([]*domain.Result, error) {
	s := r.u.store
	s.mu.Lock()
	results := make([]*domain.Result, 0, len(s.results))
	seqs := make(map[string]int, len(s.results))
	for id, e := range s.results {
		results = append(results, cloneResult(e.value))
		seqs[id] = e.seq
	}
	s.mu.Unlock()
	sort.Slice(results, func(i, j int) bool { return seqs[results[i].ID] < seqs[results[j].ID] })
	for _, result := range r.u.stagedResults {
		results = append(results, cloneResult(result))
	}
	return results, nil
}

func (r *resultRepository) GetByJobID(jobID string) (*domain.Result, error) {
	for i := len(r.u.stagedResults) - 1; i >= 0; i-- {
		if r.u.stagedResults[i].JobID == jobID {
			return cloneResult(r.u.stagedResults[i]), nil
		}
	}
	s := r.u.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.results {
		if e.value.JobID == jobID {
			return cloneResult(e.value), nil
		}
	}
	return nil, nil
}

func cloneDocument(d *domain.Document) *domain.Document {
	c := *d
	return &c
}

func cloneJob(j *domain.Job) *domain.Job {
	c := *j
	if j.StartedAt != nil {
		t := *j.StartedAt
		c.StartedAt = &t
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

func cloneResult(r *domain.Result) *domain.Result {
	c := *r
	c.Content = append([]domain.ProcessedPage(nil), r.Content...)
	return &c
}
