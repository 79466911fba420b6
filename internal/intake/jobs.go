package intake

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// JobStatus tracks an async processing job.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Job is a snapshot of one async job's state.
type Job struct {
	ID        string    `json:"job_id"`
	Status    JobStatus `json:"status"`
	Result    *Result   `json:"result,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Registry holds async jobs in memory. Jobs live until Remove; there is
// no durable store, restarting the service forgets them.
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

func NewRegistry() *Registry {
	return &Registry{jobs: make(map[string]*Job)}
}

// Create registers a new pending job and returns its ID.
func (r *Registry) Create() string {
	id := uuid.NewString()
	now := time.Now().UTC()
	r.mu.Lock()
	r.jobs[id] = &Job{ID: id, Status: JobPending, CreatedAt: now, UpdatedAt: now}
	r.mu.Unlock()
	return id
}

// Get returns a copy of the job's current state.
func (r *Registry) Get(id string) (Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// Start marks the job running.
func (r *Registry) Start(id string) {
	r.update(id, func(j *Job) { j.Status = JobRunning })
}

// Complete stores the result and marks the job done.
func (r *Registry) Complete(id string, result *Result) {
	r.update(id, func(j *Job) {
		j.Status = JobCompleted
		j.Result = result
	})
}

// Fail records the failure message.
func (r *Registry) Fail(id string, err error) {
	r.update(id, func(j *Job) {
		j.Status = JobFailed
		j.Error = err.Error()
	})
}

// Remove drops the job.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.jobs, id)
	r.mu.Unlock()
}

func (r *Registry) update(id string, fn func(*Job)) {
	r.mu.Lock()
	if job, ok := r.jobs[id]; ok {
		fn(job)
		job.UpdatedAt = time.Now().UTC()
	}
	r.mu.Unlock()
}
