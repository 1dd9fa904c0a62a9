package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/hubjoltd/formrelay/internal/core"
)

// DBTX is the subset of pgx operations the Postgres store needs. Satisfied
// by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres persists jobs and batches in two tables. Schema setup happens in
// Migrate, which is idempotent and safe to run on every boot.
type Postgres struct {
	db DBTX
}

// NewPostgres creates a store over an open pool or transaction.
func NewPostgres(db DBTX) *Postgres {
	return &Postgres{db: db}
}

// Migrate creates the job tables if they do not exist.
func (p *Postgres) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS submission_jobs (
			id UUID PRIMARY KEY,
			form_id TEXT NOT NULL,
			strategy TEXT NOT NULL,
			status TEXT NOT NULL,
			total_records INT NOT NULL,
			batch_size INT NOT NULL,
			processed_records INT NOT NULL DEFAULT 0,
			accepted INT NOT NULL DEFAULT 0,
			rejected INT NOT NULL DEFAULT 0,
			skipped INT NOT NULL DEFAULT 0,
			error_message TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL,
			started_at TIMESTAMPTZ,
			completed_at TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS submission_batches (
			id UUID PRIMARY KEY,
			job_id UUID NOT NULL REFERENCES submission_jobs(id) ON DELETE CASCADE,
			batch_number INT NOT NULL,
			record_count INT NOT NULL,
			status TEXT NOT NULL,
			accepted INT NOT NULL DEFAULT 0,
			rejected INT NOT NULL DEFAULT 0,
			skipped INT NOT NULL DEFAULT 0,
			error_message TEXT NOT NULL DEFAULT '',
			started_at TIMESTAMPTZ,
			completed_at TIMESTAMPTZ,
			UNIQUE (job_id, batch_number)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_submission_batches_job
			ON submission_batches (job_id, batch_number)`,
	}
	for _, stmt := range stmts {
		if _, err := p.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate job tables: %w", err)
		}
	}
	return nil
}

const jobColumns = `id, form_id, strategy, status, total_records, batch_size,
	processed_records, accepted, rejected, skipped, error_message,
	created_at, started_at, completed_at`

func scanJob(row pgx.Row) (*core.Job, error) {
	var j core.Job
	err := row.Scan(
		&j.ID, &j.FormID, &j.Strategy, &j.Status, &j.TotalRecords, &j.BatchSize,
		&j.ProcessedRecords, &j.Tally.Accepted, &j.Tally.Rejected, &j.Tally.Skipped,
		&j.ErrorMessage, &j.CreatedAt, &j.StartedAt, &j.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func (p *Postgres) CreateJob(ctx context.Context, job *core.Job) error {
	_, err := p.db.Exec(ctx, `
		INSERT INTO submission_jobs (
			id, form_id, strategy, status, total_records, batch_size, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		job.ID, job.FormID, job.Strategy, job.Status,
		job.TotalRecords, job.BatchSize, job.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (p *Postgres) GetJob(ctx context.Context, id string) (*core.Job, error) {
	row := p.db.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM submission_jobs WHERE id = $1`, id)
	job, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select job: %w", err)
	}
	return job, nil
}

func (p *Postgres) ListJobs(ctx context.Context) ([]*core.Job, error) {
	rows, err := p.db.Query(ctx,
		`SELECT `+jobColumns+` FROM submission_jobs ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("select jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*core.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("job rows: %w", err)
	}
	return jobs, nil
}

func (p *Postgres) SetJobStatus(ctx context.Context, id string, status core.JobStatus, errorMessage string) error {
	tag, err := p.db.Exec(ctx, `
		UPDATE submission_jobs SET
			status = $2,
			error_message = $3,
			started_at = CASE
				WHEN $2 = 'processing' AND started_at IS NULL THEN now()
				ELSE started_at END,
			completed_at = CASE
				WHEN $2 IN ('completed', 'failed') AND completed_at IS NULL THEN now()
				ELSE completed_at END
		WHERE id = $1`,
		id, string(status), errorMessage,
	)
	if err != nil {
		return fmt.Errorf("update job status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrJobNotFound
	}
	return nil
}

func (p *Postgres) SetJobProgress(ctx context.Context, id string, processed int, tally core.Tally) error {
	tag, err := p.db.Exec(ctx, `
		UPDATE submission_jobs SET
			processed_records = $2,
			accepted = $3,
			rejected = $4,
			skipped = $5
		WHERE id = $1`,
		id, processed, tally.Accepted, tally.Rejected, tally.Skipped,
	)
	if err != nil {
		return fmt.Errorf("update job progress: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrJobNotFound
	}
	return nil
}

func (p *Postgres) CreateBatch(ctx context.Context, batch *core.Batch) error {
	_, err := p.db.Exec(ctx, `
		INSERT INTO submission_batches (
			id, job_id, batch_number, record_count, status, started_at
		) VALUES ($1, $2, $3, $4, $5, now())`,
		batch.ID, batch.JobID, batch.Number, batch.RecordCount, batch.Status,
	)
	if err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}
	return nil
}

func (p *Postgres) ListBatches(ctx context.Context, jobID string) ([]*core.Batch, error) {
	rows, err := p.db.Query(ctx, `
		SELECT id, job_id, batch_number, record_count, status,
			accepted, rejected, skipped, error_message, started_at, completed_at
		FROM submission_batches
		WHERE job_id = $1
		ORDER BY batch_number`, jobID)
	if err != nil {
		return nil, fmt.Errorf("select batches: %w", err)
	}
	defer rows.Close()

	var batches []*core.Batch
	for rows.Next() {
		var b core.Batch
		if err := rows.Scan(
			&b.ID, &b.JobID, &b.Number, &b.RecordCount, &b.Status,
			&b.Tally.Accepted, &b.Tally.Rejected, &b.Tally.Skipped,
			&b.ErrorMessage, &b.StartedAt, &b.CompletedAt,
		); err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		batches = append(batches, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("batch rows: %w", err)
	}
	return batches, nil
}

func (p *Postgres) SetBatchStatus(ctx context.Context, id string, status core.BatchStatus, errorMessage string, tally core.Tally) error {
	tag, err := p.db.Exec(ctx, `
		UPDATE submission_batches SET
			status = $2,
			error_message = $3,
			accepted = $4,
			rejected = $5,
			skipped = $6,
			completed_at = CASE
				WHEN $2 IN ('completed', 'failed') AND completed_at IS NULL THEN now()
				ELSE completed_at END
		WHERE id = $1`,
		id, string(status), errorMessage, tally.Accepted, tally.Rejected, tally.Skipped,
	)
	if err != nil {
		return fmt.Errorf("update batch status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errBatchNotFound
	}
	return nil
}
