// Package core orchestrates batch submission jobs.
//
// A job takes a caller-supplied record set and a target form reference,
// resolves the form's fields once, maps columns to fields once, and then
// drives record submission in fixed-size, strictly sequential batches with
// inter-batch pacing. Progress and outcomes are persisted through the
// JobStore so callers can observe a job while it runs.
package core

import (
	"errors"
	"time"

	"github.com/hubjoltd/formrelay/internal/submit"
)

// ErrJobNotFound is returned when a job ID does not exist in the store.
var ErrJobNotFound = errors.New("job not found")

// JobStatus is the lifecycle state of a job.
// pending -> processing -> completed or failed. A job fails only when setup
// fails before the first batch starts; once batch execution begins it always
// runs to completed and the tallies say how it went.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// BatchStatus is the lifecycle state of one batch. failed means batch-level
// setup broke, not that records in it were rejected.
type BatchStatus string

const (
	BatchPending    BatchStatus = "pending"
	BatchProcessing BatchStatus = "processing"
	BatchCompleted  BatchStatus = "completed"
	BatchFailed     BatchStatus = "failed"
)

// Tally counts per-record outcomes.
type Tally struct {
	Accepted int `json:"accepted"`
	Rejected int `json:"rejected"`
	Skipped  int `json:"skipped"`
}

// Add merges another tally into this one.
func (t *Tally) Add(o Tally) {
	t.Accepted += o.Accepted
	t.Rejected += o.Rejected
	t.Skipped += o.Skipped
}

// Count records one outcome.
func (t *Tally) Count(out submit.Outcome) {
	switch out.Status {
	case submit.StatusAccepted:
		t.Accepted++
	case submit.StatusSkipped:
		t.Skipped++
	default:
		t.Rejected++
	}
}

// Total returns how many records the tally covers.
func (t Tally) Total() int {
	return t.Accepted + t.Rejected + t.Skipped
}

// Job is the persisted view of one submission run.
type Job struct {
	ID               string     `json:"id"`
	FormID           string     `json:"formId"`
	Strategy         string     `json:"strategy"`
	Status           JobStatus  `json:"status"`
	TotalRecords     int        `json:"totalRecords"`
	BatchSize        int        `json:"batchSize"`
	ProcessedRecords int        `json:"processedRecords"`
	Tally            Tally      `json:"tally"`
	ErrorMessage     string     `json:"errorMessage,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	StartedAt        *time.Time `json:"startedAt,omitempty"`
	CompletedAt      *time.Time `json:"completedAt,omitempty"`
}

// Batch is the persisted view of one contiguous slice of a job's records.
// Batches exist for observability; the orchestrator never reads them back
// to decide what to do next.
type Batch struct {
	ID           string      `json:"id"`
	JobID        string      `json:"jobId"`
	Number       int         `json:"number"` // 1-based
	RecordCount  int         `json:"recordCount"`
	Status       BatchStatus `json:"status"`
	Tally        Tally       `json:"tally"`
	ErrorMessage string      `json:"errorMessage,omitempty"`
	StartedAt    *time.Time  `json:"startedAt,omitempty"`
	CompletedAt  *time.Time  `json:"completedAt,omitempty"`
}

// JobSpec is the caller's request to start a job.
type JobSpec struct {
	FormURL string
	Columns []string
	Records []submit.Record

	// BatchSize must fall within [1, MaxBatchSize]; zero takes the default.
	BatchSize int
	// BatchDelay is the pause between consecutive batches; negative takes
	// the default, zero disables pacing.
	BatchDelay time.Duration
	// Strategy selects "direct" or "simulated"; empty takes the default.
	Strategy string
}
