package core

import "context"

// JobStore persists jobs and batches. Implementations live in
// internal/store; the orchestrator and the HTTP layer only see this
// interface.
type JobStore interface {
	// CreateJob persists a new job. The job's ID must already be set.
	CreateJob(ctx context.Context, job *Job) error

	// GetJob returns the job with the given ID, or ErrJobNotFound.
	GetJob(ctx context.Context, id string) (*Job, error)

	// ListJobs returns all jobs, newest first.
	ListJobs(ctx context.Context) ([]*Job, error)

	// SetJobStatus transitions a job and records an error message when the
	// new status is failed. Terminal statuses also stamp CompletedAt.
	SetJobStatus(ctx context.Context, id string, status JobStatus, errorMessage string) error

	// SetJobProgress updates the job's processed-record count and its
	// running outcome tally.
	SetJobProgress(ctx context.Context, id string, processed int, tally Tally) error

	// CreateBatch persists a new batch row for a job.
	CreateBatch(ctx context.Context, batch *Batch) error

	// ListBatches returns a job's batches in batch-number order.
	ListBatches(ctx context.Context, jobID string) ([]*Batch, error)

	// SetBatchStatus transitions a batch, records its outcome tally, and
	// records an error message when the new status is failed. Terminal
	// statuses also stamp CompletedAt.
	SetBatchStatus(ctx context.Context, id string, status BatchStatus, errorMessage string, tally Tally) error
}
