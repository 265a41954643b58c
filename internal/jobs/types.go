// Package jobs defines the asynchronous import job model and the queue
// abstractions it moves through.
package jobs

import (
	"context"
	"time"

	"github.com/ledgerline/importer/internal/importer"
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
	// JobStatusCancelled indicates the job was cancelled by the user.
	JobStatusCancelled JobStatus = "cancelled"
	// JobStatusFailed indicates the job failed.
	JobStatusFailed JobStatus = "failed"
)

// ImportJob represents one export file import for a ledger.
type ImportJob struct {
	// JobID is the unique identifier for this job, shared with the run it
	// drives.
	JobID string `json:"job_id"`

	// LedgerID is the ledger the transactions are imported into.
	LedgerID string `json:"ledger_id"`

	// UserID is recorded as the creator of the imported transactions.
	UserID string `json:"user_id"`

	// Platform selects the export profile, e.g. "alipay" or "wechat".
	Platform string `json:"platform"`

	// SourceURI locates the export file (gs:// or local path). Empty when
	// the content was posted inline.
	SourceURI string `json:"source_uri,omitempty"`

	// Content is the inline export payload. Never serialized.
	Content []byte `json:"-"`

	// Classify enables category enrichment before committing.
	Classify bool `json:"classify"`

	// Status is the current status of the job.
	Status JobStatus `json:"status"`

	// Progress is the commit progress in [0, 1].
	Progress float64 `json:"progress"`

	// Result summarizes the committed batch once the job completes.
	Result *importer.ImportBatchResult `json:"result,omitempty"`

	// Error contains error details if the job failed.
	Error string `json:"error,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Publisher defines the interface for publishing jobs to a queue.
// The abstraction allows swapping the in-memory queue for a broker later.
type Publisher interface {
	// PublishImport publishes an import job for asynchronous processing.
	PublishImport(ctx context.Context, job *ImportJob) error

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

// JobHandler processes one import job. It may mutate the job's Result before
// returning; the queue persists the final state. An error wrapping
// context.Canceled marks the job cancelled rather than failed.
type JobHandler func(ctx context.Context, job *ImportJob) error

// JobStore defines the interface for storing and retrieving job status.
type JobStore interface {
	// SaveJob saves or updates a job's state.
	SaveJob(ctx context.Context, job *ImportJob) error

	// GetJob retrieves a job by ID.
	GetJob(ctx context.Context, jobID string) (*ImportJob, error)

	// ListJobs retrieves jobs with optional filtering.
	ListJobs(ctx context.Context, filter JobFilter) ([]*ImportJob, error)

	// UpdateProgress records commit progress for a running job.
	UpdateProgress(ctx context.Context, jobID string, progress float64) error
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	// LedgerID filters jobs by ledger.
	LedgerID string

	// Status filters jobs by status.
	Status JobStatus

	// Limit limits the number of results.
	Limit int

	// Offset for pagination.
	Offset int
}
