package pipeline

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/dgallion1/binder/internal/diag"
	"github.com/dgallion1/binder/internal/numbering"
)

// JobStatus represents the state of a build job.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusPartial   JobStatus = "partial"
	StatusSkipped   JobStatus = "skipped"
	StatusFailed    JobStatus = "failed"
)

// Job tracks one submitted build.
type Job struct {
	mu sync.Mutex

	ID     string    `json:"job_id"`
	Status JobStatus `json:"status"`
	Phase  string    `json:"phase"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Internal: not serialized.
	result *Result
	err    string
}

// NewJob creates a queued job with a fresh id.
func NewJob() *Job {
	now := time.Now()
	return &Job{
		ID:        uuid.NewString(),
		Status:    StatusQueued,
		Phase:     "queued",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// Finish records the outcome of a build.
func (j *Job) Finish(res *Result, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.result = res
	j.UpdatedAt = time.Now()
	switch {
	case errors.Is(err, diag.ErrNoItems):
		j.Status, j.Phase = StatusSkipped, "no sections in manifest"
	case err != nil:
		j.Status, j.Phase = StatusFailed, "failed"
		j.err = err.Error()
	case len(res.Diagnostics) > 0:
		j.Status, j.Phase = StatusPartial, "done with diagnostics"
	default:
		j.Status, j.Phase = StatusCompleted, "done"
	}
}

// Result returns the build result, or nil while the job is pending.
func (j *Job) Result() *Result {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.result
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID          string              `json:"job_id"`
	Status      JobStatus           `json:"status"`
	Phase       string              `json:"phase"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
	Error       string              `json:"error,omitempty"`
	IndexPages  int                 `json:"index_pages"`
	TotalPages  int                 `json:"total_pages"`
	SizeBytes   int64               `json:"size_bytes"`
	PageMap     []numbering.PageMap `json:"page_map"`
	Diagnostics diag.List           `json:"diagnostics"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	s := JobSnapshot{
		ID:          j.ID,
		Status:      j.Status,
		Phase:       j.Phase,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
		Error:       j.err,
		PageMap:     []numbering.PageMap{},
		Diagnostics: diag.List{},
	}
	if r := j.result; r != nil {
		s.IndexPages = r.IndexPages
		s.TotalPages = r.TotalPages
		s.SizeBytes = r.SizeBytes
		if r.PageMap != nil {
			s.PageMap = r.PageMap
		}
		if r.Diagnostics != nil {
			s.Diagnostics = r.Diagnostics
		}
	}
	return s
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	jobs *cache.Cache
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{jobs: cache.New(ttl, cleanupInterval(ttl))}
}

// Put stores job and restarts its expiry.
func (s *JobStore) Put(job *Job) {
	s.jobs.SetDefault(job.ID, job)
}

func (s *JobStore) Get(id string) *Job {
	v, ok := s.jobs.Get(id)
	if !ok {
		return nil
	}
	return v.(*Job)
}

// Len counts unexpired jobs.
func (s *JobStore) Len() int {
	return s.jobs.ItemCount()
}

func cleanupInterval(ttl time.Duration) time.Duration {
	if ttl < 10*time.Minute {
		return ttl
	}
	return 5 * time.Minute
}
