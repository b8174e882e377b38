package jobs

import (
	"context"
	"time"
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypePipelineRun represents a full import → categorize → analyze → export run.
	JobTypePipelineRun JobType = "pipeline_run"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	// JobStatusPending indicates the job is waiting to be processed.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates the job is currently being processed.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates the job completed successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job failed. Failed jobs are not retried.
	JobStatusFailed JobStatus = "failed"
)

// RunResult summarizes a finished pipeline run.
type RunResult struct {
	RunID        string         `json:"run_id"`
	Transactions int            `json:"transactions"`
	Dropped      map[string]int `json:"dropped,omitempty"`
	TotalSpent   float64        `json:"total_spent"`
	Anomalies    int            `json:"anomalies"`
	Outputs      []string       `json:"outputs"`
}

// PipelineRunJob represents one budget pipeline run over a CSV source.
type PipelineRunJob struct {
	// JobID is the unique identifier for this job.
	JobID string `json:"job_id"`

	// Source is the local path or gs:// URI of the CSV to process.
	Source string `json:"source"`

	// OutputDir receives the exported artifacts (local directory or gs:// prefix).
	OutputDir string `json:"output_dir"`

	Status JobStatus `json:"status"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error contains the failure message if the job failed.
	Error string `json:"error,omitempty"`

	// Result is set when the job completes.
	Result *RunResult `json:"result,omitempty"`
}

// Job is a generic interface for all job types.
type Job interface {
	// GetID returns the unique job identifier.
	GetID() string

	// GetType returns the job type.
	GetType() JobType

	// GetStatus returns the current job status.
	GetStatus() JobStatus
}

// GetID implements the Job interface.
func (j *PipelineRunJob) GetID() string {
	return j.JobID
}

// GetType implements the Job interface.
func (j *PipelineRunJob) GetType() JobType {
	return JobTypePipelineRun
}

// GetStatus implements the Job interface.
func (j *PipelineRunJob) GetStatus() JobStatus {
	return j.Status
}

// Publisher defines the interface for publishing jobs to a queue.
type Publisher interface {
	// PublishPipelineRun enqueues a pipeline run job.
	PublishPipelineRun(ctx context.Context, job *PipelineRunJob) error

	// Close closes the publisher and releases resources.
	Close() error
}

// Consumer defines the interface for consuming jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs from the queue.
	// The handler function is called for each job received.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler is a function that processes a job. A returned error marks
// the job failed; there is no automatic retry.
type JobHandler func(ctx context.Context, job Job) error

// JobStore defines the interface for storing and retrieving job status.
type JobStore interface {
	// SaveJob saves or updates a job's state.
	SaveJob(ctx context.Context, job *PipelineRunJob) error

	// GetJob retrieves a job by ID.
	GetJob(ctx context.Context, jobID string) (*PipelineRunJob, error)

	// ListJobs retrieves jobs with optional filtering, newest first.
	ListJobs(ctx context.Context, filter JobFilter) ([]*PipelineRunJob, error)

	// UpdateJobStatus updates the status of a job.
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errorMsg string) error
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	// Source filters jobs by CSV source.
	Source string

	// Status filters jobs by status.
	Status JobStatus

	// Limit limits the number of results.
	Limit int

	// Offset for pagination.
	Offset int
}
