// Package jobs defines the asynchronous extraction job model and the
// queue abstractions around it.
package jobs

import (
	"context"
	"time"

	"github.com/dvloznov/autoledger/internal/extract"
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeExtract represents an AI extraction job.
	JobTypeExtract JobType = "extract"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusRetrying  JobStatus = "retrying"
)

// ExtractJob carries one extraction request through the queue. The input is
// the same text/image pair the synchronous endpoint takes; on success the
// worker fills Result with the normalized draft.
type ExtractJob struct {
	// JobID is the unique identifier for this job.
	JobID string `json:"job_id"`

	// Text is the pasted free text, possibly empty when an image is present.
	Text string `json:"text,omitempty"`

	// ImageData is the raw image payload, nil when only text was supplied.
	ImageData []byte `json:"image_data,omitempty"`

	// ImageMIMEType qualifies ImageData, e.g. "image/jpeg".
	ImageMIMEType string `json:"image_mime_type,omitempty"`

	// Status is the current status of the job.
	Status JobStatus `json:"status"`

	// Result holds the normalized draft once the job completed.
	Result *extract.Draft `json:"result,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error contains error details if the job failed.
	Error string `json:"error,omitempty"`

	// RetryCount is the number of times this job has been retried. The
	// extraction core never retries the model call; re-enqueueing is the
	// queue's business and stays at zero unless MaxRetries is raised.
	RetryCount int `json:"retry_count"`

	// MaxRetries is the maximum number of retries allowed.
	MaxRetries int `json:"max_retries"`
}

// Input converts the job payload back to an extraction input.
func (j *ExtractJob) Input() extract.Input {
	in := extract.Input{Text: j.Text}
	if len(j.ImageData) > 0 {
		in.Image = &extract.Image{Bytes: j.ImageData, MIMEType: j.ImageMIMEType}
	}
	return in
}

// Job is a generic interface for all job types.
type Job interface {
	GetID() string
	GetType() JobType
	GetStatus() JobStatus
}

// GetID implements the Job interface.
func (j *ExtractJob) GetID() string { return j.JobID }

// GetType implements the Job interface.
func (j *ExtractJob) GetType() JobType { return JobTypeExtract }

// GetStatus implements the Job interface.
func (j *ExtractJob) GetStatus() JobStatus { return j.Status }

// Publisher defines the interface for publishing jobs to a queue.
type Publisher interface {
	// PublishExtract publishes an extraction job.
	PublishExtract(ctx context.Context, job *ExtractJob) error

	// Close closes the publisher and releases resources.
	Close() error
}

// Consumer defines the interface for consuming jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs from the queue. The handler function is
	// called for each job received.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler is a function that processes a job. It should return an error
// if the job failed.
type JobHandler func(ctx context.Context, job Job) error

// JobStore defines the interface for storing and retrieving job status.
type JobStore interface {
	SaveJob(ctx context.Context, job *ExtractJob) error
	GetJob(ctx context.Context, jobID string) (*ExtractJob, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]*ExtractJob, error)
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	// Status filters jobs by status.
	Status JobStatus

	// Limit limits the number of results.
	Limit int

	// Offset for pagination.
	Offset int
}
