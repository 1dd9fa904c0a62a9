package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/hubjoltd/formrelay/internal/auth"
	"github.com/hubjoltd/formrelay/internal/form"
	"github.com/hubjoltd/formrelay/internal/mapping"
	"github.com/hubjoltd/formrelay/internal/submit"
)

// Submission strategy names accepted in a JobSpec.
const (
	StrategyDirect    = "direct"
	StrategySimulated = "simulated"
)

// ErrNoRecords is returned when a job spec carries an empty record set.
var ErrNoRecords = errors.New("no records to submit")

// ErrNoColumns is returned when a job spec carries no column headers.
var ErrNoColumns = errors.New("no columns given")

// ErrBatchSizeOutOfRange is returned when the requested batch size falls
// outside the configured bounds.
var ErrBatchSizeOutOfRange = errors.New("batch size out of range")

// ErrUnknownStrategy is returned for a strategy name the engine does not
// implement.
var ErrUnknownStrategy = errors.New("unknown submission strategy")

// Options tunes the service. Zero values take the defaults below.
type Options struct {
	DefaultBatchSize  int
	MaxBatchSize      int
	DefaultBatchDelay time.Duration
	RecordDelay       time.Duration
	DefaultStrategy   string
	JobTimeout        time.Duration
	MaxConcurrentJobs int
	SlotWait          time.Duration
	Simulated         submit.SimulatedOptions
}

func (o *Options) applyDefaults() {
	if o.DefaultBatchSize <= 0 {
		o.DefaultBatchSize = 50
	}
	if o.MaxBatchSize <= 0 {
		o.MaxBatchSize = 500
	}
	if o.DefaultBatchDelay < 0 {
		o.DefaultBatchDelay = 0
	}
	if o.DefaultStrategy == "" {
		o.DefaultStrategy = StrategyDirect
	}
	if o.JobTimeout <= 0 {
		o.JobTimeout = 30 * time.Minute
	}
}

// fieldResolver is what the service needs from internal/form.
type fieldResolver interface {
	Resolve(ctx context.Context, ref form.Ref) ([]form.FieldDescriptor, error)
}

// recordSubmitter is what the service needs from internal/submit.
type recordSubmitter interface {
	Submit(ctx context.Context, fieldIDByColumn map[string]string, record submit.Record) submit.Outcome
	StrategyName() string
}

// Service owns job execution. StartJob validates and plans synchronously,
// then runs the batches on a background goroutine so the caller gets the
// job ID back immediately.
type Service struct {
	store    JobStore
	resolver fieldResolver
	limiter  *JobLimiter
	client   *http.Client
	creds    auth.CredentialProvider
	opts     Options
	logger   *slog.Logger

	// buildExecutor is swapped out in tests.
	buildExecutor func(ref form.Ref, strategy string) (recordSubmitter, error)
}

// NewService wires a Service. A nil client or creds gets a safe default; a
// nil logger gets slog.Default().
func NewService(store JobStore, resolver fieldResolver, client *http.Client, creds auth.CredentialProvider, opts Options, logger *slog.Logger) *Service {
	opts.applyDefaults()
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if creds == nil {
		creds = auth.NewStatic("")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Service{
		store:    store,
		resolver: resolver,
		limiter:  NewJobLimiter(opts.MaxConcurrentJobs, opts.SlotWait),
		client:   client,
		creds:    creds,
		opts:     opts,
		logger:   logger,
	}
	s.buildExecutor = s.newExecutor
	return s
}

// Plan is the result of resolving a form and mapping columns against it,
// before any record is sent.
type Plan struct {
	FormID  string                 `json:"formId"`
	Fields  []form.FieldDescriptor `json:"fields"`
	Mapping mapping.Mapping        `json:"mapping"`
}

// Inspect resolves a form and reports how the given columns would map to
// it, without starting a job. Columns may be empty, in which case only the
// field catalog is returned.
func (s *Service) Inspect(ctx context.Context, formURL string, columns []string) (*Plan, error) {
	ref, err := form.ParseRef(formURL)
	if err != nil {
		return nil, err
	}

	fields, err := s.resolver.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}

	return &Plan{
		FormID:  ref.ID,
		Fields:  fields,
		Mapping: mapping.Map(columns, fields),
	}, nil
}

// StartJob validates the job spec, resolves the form, builds the column
// mapping, persists the job, and kicks off batch execution in the
// background. The returned job is in the pending state; poll GetJob for
// progress.
//
// Nothing is persisted until every setup step succeeds, so a bad form URL
// or an unreachable form never leaves a job row behind.
func (s *Service) StartJob(ctx context.Context, spec JobSpec) (*Job, error) {
	ref, err := form.ParseRef(spec.FormURL)
	if err != nil {
		return nil, err
	}
	if len(spec.Records) == 0 {
		return nil, ErrNoRecords
	}
	if len(spec.Columns) == 0 {
		return nil, ErrNoColumns
	}

	batchSize := spec.BatchSize
	if batchSize == 0 {
		batchSize = s.opts.DefaultBatchSize
	}
	if batchSize < 1 || batchSize > s.opts.MaxBatchSize {
		return nil, fmt.Errorf("%w: %d not in [1, %d]", ErrBatchSizeOutOfRange, batchSize, s.opts.MaxBatchSize)
	}

	delay := spec.BatchDelay
	if delay < 0 {
		delay = s.opts.DefaultBatchDelay
	}

	strategy := spec.Strategy
	if strategy == "" {
		strategy = s.opts.DefaultStrategy
	}
	exec, err := s.buildExecutor(ref, strategy)
	if err != nil {
		return nil, err
	}

	fields, err := s.resolver.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}

	plan := mapping.Map(spec.Columns, fields)
	for _, f := range plan.UnclaimedRequired {
		s.logger.Warn("required field unclaimed by any column",
			"form_id", ref.ID,
			"field_id", f.ID,
			"label", f.Label,
		)
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}

	job := &Job{
		ID:           uuid.New().String(),
		FormID:       ref.ID,
		Strategy:     exec.StrategyName(),
		Status:       JobPending,
		TotalRecords: len(spec.Records),
		BatchSize:    batchSize,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.CreateJob(ctx, job); err != nil {
		s.limiter.Release()
		return nil, fmt.Errorf("create job: %w", err)
	}

	jobCtx, cancel := context.WithTimeout(context.Background(), s.opts.JobTimeout)

	go func() {
		defer cancel()
		defer s.limiter.Release()
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("panic in job",
					"job_id", job.ID,
					"form_id", job.FormID,
					"panic", r,
				)
				s.setJobStatus(job.ID, JobFailed, fmt.Sprintf("internal error: %v", r))
			}
		}()
		s.run(jobCtx, job, exec, plan.FieldIDByColumn, spec.Records, batchSize, delay)
	}()

	return job, nil
}

// run drives one job: strictly sequential batches, per-batch persistence,
// inter-batch pacing. Record-level rejections never stop the job; only a
// cancelled or timed-out context aborts it.
func (s *Service) run(ctx context.Context, job *Job, exec recordSubmitter, fieldIDByColumn map[string]string, records []submit.Record, batchSize int, delay time.Duration) {
	start := time.Now()
	s.setJobStatus(job.ID, JobProcessing, "")

	total := len(records)
	batchCount := (total + batchSize - 1) / batchSize
	s.logger.Info("job started",
		"job_id", job.ID,
		"form_id", job.FormID,
		"strategy", exec.StrategyName(),
		"records", total,
		"batches", batchCount,
	)

	var jobTally Tally
	for i := 0; i < batchCount; i++ {
		if ctx.Err() != nil {
			s.setJobStatus(job.ID, JobFailed, fmt.Sprintf("job aborted: %v", ctx.Err()))
			return
		}

		lo := i * batchSize
		hi := lo + batchSize
		if hi > total {
			hi = total
		}

		tally, err := s.runBatch(ctx, job, exec, fieldIDByColumn, records[lo:hi], i+1)
		if err != nil {
			// Batch-level setup failures are isolated: the batch is marked
			// failed and the job moves on to the next one.
			s.logger.Error("batch failed",
				"job_id", job.ID,
				"batch", i+1,
				"error", err,
			)
		}
		jobTally.Add(tally)

		processed := (i + 1) * batchSize
		if processed > total {
			processed = total
		}
		if err := s.store.SetJobProgress(ctx, job.ID, processed, jobTally); err != nil {
			s.logger.Error("persist job progress", "job_id", job.ID, "error", err)
		}

		if i < batchCount-1 && delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				s.setJobStatus(job.ID, JobFailed, fmt.Sprintf("job aborted: %v", ctx.Err()))
				return
			}
		}
	}

	s.setJobStatus(job.ID, JobCompleted, "")
	s.logger.Info("job completed",
		"job_id", job.ID,
		"accepted", jobTally.Accepted,
		"rejected", jobTally.Rejected,
		"skipped", jobTally.Skipped,
		"duration", time.Since(start),
	)
}

// runBatch persists one batch, submits its records, and records the
// outcome. The returned tally covers records actually attempted.
func (s *Service) runBatch(ctx context.Context, job *Job, exec recordSubmitter, fieldIDByColumn map[string]string, records []submit.Record, number int) (Tally, error) {
	batch := &Batch{
		ID:          uuid.New().String(),
		JobID:       job.ID,
		Number:      number,
		RecordCount: len(records),
		Status:      BatchProcessing,
	}
	if err := s.store.CreateBatch(ctx, batch); err != nil {
		return Tally{}, fmt.Errorf("create batch %d: %w", number, err)
	}

	var tally Tally
	for _, rec := range records {
		out := exec.Submit(ctx, fieldIDByColumn, rec)
		tally.Count(out)
		if out.Status != submit.StatusAccepted {
			s.logger.Debug("record not accepted",
				"job_id", job.ID,
				"batch", number,
				"status", out.Status,
				"reason", out.Reason,
			)
		}
	}

	if err := s.store.SetBatchStatus(ctx, batch.ID, BatchCompleted, "", tally); err != nil {
		// Retry on a detached context so a cancelled job context cannot
		// strand the row in processing.
		detached, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.store.SetBatchStatus(detached, batch.ID, BatchCompleted, "", tally); err != nil {
			return tally, fmt.Errorf("finish batch %d: %w", number, err)
		}
		s.logger.Warn("batch status persisted on retry", "job_id", job.ID, "batch", number)
	}
	return tally, nil
}

// setJobStatus persists a status transition, logging rather than
// propagating store errors since run has no caller to report to.
func (s *Service) setJobStatus(id string, status JobStatus, errorMessage string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.store.SetJobStatus(ctx, id, status, errorMessage); err != nil {
		s.logger.Error("persist job status", "job_id", id, "status", status, "error", err)
	}
}

func (s *Service) newExecutor(ref form.Ref, strategy string) (recordSubmitter, error) {
	switch strategy {
	case StrategyDirect:
		return submit.NewExecutor(submit.NewDirect(s.client, ref.SubmitURL(), s.creds), s.opts.RecordDelay), nil
	case StrategySimulated:
		return submit.NewExecutor(submit.NewSimulated(ref.ViewURL(), s.opts.Simulated), s.opts.RecordDelay), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
	}
}

// GetJob returns one job by ID.
func (s *Service) GetJob(ctx context.Context, id string) (*Job, error) {
	return s.store.GetJob(ctx, id)
}

// ListJobs returns all jobs, newest first.
func (s *Service) ListJobs(ctx context.Context) ([]*Job, error) {
	return s.store.ListJobs(ctx)
}

// ListBatches returns a job's batches in order. The job must exist.
func (s *Service) ListBatches(ctx context.Context, jobID string) ([]*Batch, error) {
	if _, err := s.store.GetJob(ctx, jobID); err != nil {
		return nil, err
	}
	return s.store.ListBatches(ctx, jobID)
}

// ActiveJobs reports how many jobs are currently running.
func (s *Service) ActiveJobs() int {
	return s.limiter.ActiveCount()
}

// Drain blocks until running jobs finish or the context expires. Called on
// shutdown so in-flight submissions are not cut off mid-batch.
func (s *Service) Drain(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}
