package ingest

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// JobRecord is the status of one ingestion run. Completion fields stay
// nil while the job is running.
type JobRecord struct {
	JobID       string     `json:"job_id"`
	Status      JobStatus  `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Inserted    *int       `json:"inserted,omitempty"`
	Skipped     *int       `json:"skipped,omitempty"`
	Threshold   float64    `json:"cluster_similarity_threshold"`
	WindowDays  int        `json:"cluster_time_window_days"`
	Error       string     `json:"error,omitempty"`
	Message     string     `json:"message,omitempty"`
}

// JobStore owns the in-memory job registry and the single "current job"
// slot that serializes pipeline runs process-wide. It is created at
// service start and torn down with the process; records are only ever
// mutated by the owning pipeline via Finish, and readers get copies.
type JobStore struct {
	mu        sync.Mutex
	currentID string
	jobs      map[string]*JobRecord
}

func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[string]*JobRecord)}
}

// Start claims the current-job slot. If a running job already holds it,
// its id is returned with alreadyRunning=true and nothing is recorded.
func (s *JobStore) Start(threshold float64, windowDays int) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.currentID != "" {
		if current, ok := s.jobs[s.currentID]; ok && current.Status == JobRunning {
			return s.currentID, true
		}
	}

	id := uuid.New().String()
	s.jobs[id] = &JobRecord{
		JobID:      id,
		Status:     JobRunning,
		StartedAt:  time.Now().UTC(),
		Threshold:  threshold,
		WindowDays: windowDays,
	}
	s.currentID = id
	return id, false
}

// Get returns a copy of the record, so callers never observe a torn
// read of an in-flight mutation.
func (s *JobStore) Get(id string) (*JobRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, false
	}
	copied := *job
	return &copied, true
}

// CurrentRunning returns the in-flight job, if any.
func (s *JobStore) CurrentRunning() (*JobRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.currentID == "" {
		return nil, false
	}
	job, ok := s.jobs[s.currentID]
	if !ok || job.Status != JobRunning {
		return nil, false
	}
	copied := *job
	return &copied, true
}

// Finish applies the terminal mutation under the lock and releases the
// current-job slot so a subsequent start is accepted.
func (s *JobStore) Finish(id string, status JobStatus, update func(*JobRecord)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return
	}
	now := time.Now().UTC()
	job.Status = status
	job.CompletedAt = &now
	if update != nil {
		update(job)
	}
	if s.currentID == id {
		s.currentID = ""
	}
}
