package job

import "time"

// Status is the job lifecycle state. Jobs move queued -> processing ->
// completed|failed and are never re-opened.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Job is the externally visible record for one render request.
type Job struct {
	ID        string    `json:"job_id"`
	Question  string    `json:"question"`
	Status    Status    `json:"status"`
	Stage     string    `json:"stage,omitempty"`
	Logs      []string  `json:"logs"`
	ResultURL string    `json:"result_url,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Terminal reports whether the job reached a final status.
func (j Job) Terminal() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed
}
