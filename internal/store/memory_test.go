package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/hubjoltd/formrelay/internal/core"
)

func newJob(id string, createdAt time.Time) *core.Job {
	return &core.Job{
		ID:           id,
		FormID:       "1FAIpQLSfTest",
		Strategy:     "direct",
		Status:       core.JobPending,
		TotalRecords: 10,
		BatchSize:    5,
		CreatedAt:    createdAt,
	}
}

func TestMemory_CreateAndGetJob(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	job := newJob("job-1", time.Now().UTC())
	if err := m.CreateJob(ctx, job); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	got, err := m.GetJob(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.FormID != job.FormID || got.Status != core.JobPending {
		t.Errorf("got %+v", got)
	}

	// The store hands out copies, not aliases.
	got.Status = core.JobFailed
	again, _ := m.GetJob(ctx, "job-1")
	if again.Status != core.JobPending {
		t.Error("mutating a returned job leaked into the store")
	}
}

func TestMemory_GetJobNotFound(t *testing.T) {
	m := NewMemory()
	if _, err := m.GetJob(context.Background(), "missing"); !errors.Is(err, core.ErrJobNotFound) {
		t.Fatalf("err = %v, want ErrJobNotFound", err)
	}
}

func TestMemory_ListJobsNewestFirst(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	base := time.Now().UTC()

	for i := 0; i < 3; i++ {
		job := newJob(fmt.Sprintf("job-%d", i), base.Add(time.Duration(i)*time.Minute))
		if err := m.CreateJob(ctx, job); err != nil {
			t.Fatalf("CreateJob: %v", err)
		}
	}

	jobs, err := m.ListJobs(ctx)
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(jobs) != 3 {
		t.Fatalf("got %d jobs, want 3", len(jobs))
	}
	for i, want := range []string{"job-2", "job-1", "job-0"} {
		if jobs[i].ID != want {
			t.Errorf("jobs[%d].ID = %q, want %q", i, jobs[i].ID, want)
		}
	}
}

func TestMemory_SetJobStatusStampsTimes(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	if err := m.CreateJob(ctx, newJob("job-1", time.Now().UTC())); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	if err := m.SetJobStatus(ctx, "job-1", core.JobProcessing, ""); err != nil {
		t.Fatalf("SetJobStatus(processing): %v", err)
	}
	job, _ := m.GetJob(ctx, "job-1")
	if job.StartedAt == nil {
		t.Error("StartedAt not stamped on processing")
	}
	if job.CompletedAt != nil {
		t.Error("CompletedAt stamped too early")
	}

	if err := m.SetJobStatus(ctx, "job-1", core.JobCompleted, ""); err != nil {
		t.Fatalf("SetJobStatus(completed): %v", err)
	}
	job, _ = m.GetJob(ctx, "job-1")
	if job.CompletedAt == nil {
		t.Error("CompletedAt not stamped on completion")
	}
	if job.Status != core.JobCompleted {
		t.Errorf("Status = %q", job.Status)
	}
}

func TestMemory_SetJobStatusRecordsError(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	if err := m.CreateJob(ctx, newJob("job-1", time.Now().UTC())); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	if err := m.SetJobStatus(ctx, "job-1", core.JobFailed, "form unreachable"); err != nil {
		t.Fatalf("SetJobStatus: %v", err)
	}
	job, _ := m.GetJob(ctx, "job-1")
	if job.ErrorMessage != "form unreachable" {
		t.Errorf("ErrorMessage = %q", job.ErrorMessage)
	}
}

func TestMemory_SetJobProgress(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	if err := m.CreateJob(ctx, newJob("job-1", time.Now().UTC())); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	tally := core.Tally{Accepted: 4, Rejected: 1}
	if err := m.SetJobProgress(ctx, "job-1", 5, tally); err != nil {
		t.Fatalf("SetJobProgress: %v", err)
	}
	job, _ := m.GetJob(ctx, "job-1")
	if job.ProcessedRecords != 5 || job.Tally != tally {
		t.Errorf("got processed=%d tally=%+v", job.ProcessedRecords, job.Tally)
	}
}

func TestMemory_BatchLifecycle(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	if err := m.CreateJob(ctx, newJob("job-1", time.Now().UTC())); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	for i := 1; i <= 2; i++ {
		batch := &core.Batch{
			ID:          fmt.Sprintf("batch-%d", i),
			JobID:       "job-1",
			Number:      i,
			RecordCount: 5,
			Status:      core.BatchProcessing,
		}
		if err := m.CreateBatch(ctx, batch); err != nil {
			t.Fatalf("CreateBatch: %v", err)
		}
	}

	tally := core.Tally{Accepted: 5}
	if err := m.SetBatchStatus(ctx, "batch-1", core.BatchCompleted, "", tally); err != nil {
		t.Fatalf("SetBatchStatus: %v", err)
	}

	batches, err := m.ListBatches(ctx, "job-1")
	if err != nil {
		t.Fatalf("ListBatches: %v", err)
	}
	if len(batches) != 2 {
		t.Fatalf("got %d batches, want 2", len(batches))
	}
	if batches[0].Status != core.BatchCompleted || batches[0].Tally != tally {
		t.Errorf("batch 1 = %+v", batches[0])
	}
	if batches[0].CompletedAt == nil {
		t.Error("batch 1 CompletedAt not stamped")
	}
	if batches[1].Status != core.BatchProcessing {
		t.Errorf("batch 2 status = %q", batches[1].Status)
	}
}

func TestMemory_SetBatchStatusUnknownBatch(t *testing.T) {
	m := NewMemory()
	err := m.SetBatchStatus(context.Background(), "missing", core.BatchCompleted, "", core.Tally{})
	if err == nil {
		t.Fatal("expected error for unknown batch")
	}
}

func TestMemory_ListBatchesScopedToJob(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	for _, jobID := range []string{"job-a", "job-b"} {
		if err := m.CreateJob(ctx, newJob(jobID, time.Now().UTC())); err != nil {
			t.Fatalf("CreateJob: %v", err)
		}
		if err := m.CreateBatch(ctx, &core.Batch{
			ID: jobID + "-b1", JobID: jobID, Number: 1, RecordCount: 1, Status: core.BatchProcessing,
		}); err != nil {
			t.Fatalf("CreateBatch: %v", err)
		}
	}

	batches, err := m.ListBatches(ctx, "job-a")
	if err != nil {
		t.Fatalf("ListBatches: %v", err)
	}
	if len(batches) != 1 || batches[0].JobID != "job-a" {
		t.Errorf("got %+v", batches)
	}
}
