package job

import (
	"errors"
	"sync"
	"time"

	"mathmotion.app/studio/common/id"
)

var ErrNotFound = errors.New("job not found")

// Registry is the in-memory job store. All read-modify-write access goes
// through the mutex; returned jobs are copies so callers never alias the
// internal record.
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

func NewRegistry() *Registry {
	return &Registry{jobs: make(map[string]*Job)}
}

// Create registers a new queued job and returns its ID.
func (r *Registry) Create(question string) string {
	now := time.Now()
	j := &Job{
		ID:        id.NewString(),
		Question:  question,
		Status:    StatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}

	r.mu.Lock()
	r.jobs[j.ID] = j
	r.mu.Unlock()

	return j.ID
}

// Get returns a copy of the job, including a copied log slice.
func (r *Registry) Get(jobID string) (Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	j, ok := r.jobs[jobID]
	if !ok {
		return Job{}, ErrNotFound
	}

	out := *j
	out.Logs = append([]string(nil), j.Logs...)
	return out, nil
}

// SetStatus moves a job to a new status.
func (r *Registry) SetStatus(jobID string, status Status) error {
	return r.update(jobID, func(j *Job) {
		j.Status = status
	})
}

// SetStage records the pipeline stage currently running for the job.
func (r *Registry) SetStage(jobID, stage string) error {
	return r.update(jobID, func(j *Job) {
		j.Stage = stage
	})
}

// SetCompleted marks the job completed with its result reference.
func (r *Registry) SetCompleted(jobID, resultURL string) error {
	return r.update(jobID, func(j *Job) {
		j.Status = StatusCompleted
		j.ResultURL = resultURL
		j.Error = ""
	})
}

// SetFailed marks the job failed, storing the error message verbatim.
func (r *Registry) SetFailed(jobID, errMsg string) error {
	return r.update(jobID, func(j *Job) {
		j.Status = StatusFailed
		j.Error = errMsg
	})
}

// AppendLog adds one entry to the job's ordered log.
func (r *Registry) AppendLog(jobID, message string) error {
	return r.update(jobID, func(j *Job) {
		j.Logs = append(j.Logs, message)
	})
}

func (r *Registry) update(jobID string, fn func(*Job)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.jobs[jobID]
	if !ok {
		return ErrNotFound
	}
	fn(j)
	j.UpdatedAt = time.Now()
	return nil
}
