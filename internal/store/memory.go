// Package store provides JobStore implementations: a Postgres-backed store
// for deployments and an in-memory store for development and tests.
package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/hubjoltd/formrelay/internal/core"
)

var errBatchNotFound = errors.New("batch not found")

// Memory is a JobStore held entirely in process memory. State is lost on
// restart; use Postgres when jobs must survive one.
type Memory struct {
	mu      sync.RWMutex
	jobs    map[string]*core.Job
	batches map[string]*core.Batch
	order   []string // batch IDs in creation order
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		jobs:    make(map[string]*core.Job),
		batches: make(map[string]*core.Batch),
	}
}

func (m *Memory) CreateJob(ctx context.Context, job *core.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *job
	m.jobs[job.ID] = &cp
	return nil
}

func (m *Memory) GetJob(ctx context.Context, id string) (*core.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, core.ErrJobNotFound
	}
	cp := *j
	return &cp, nil
}

func (m *Memory) ListJobs(ctx context.Context) ([]*core.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*core.Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		cp := *j
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, k int) bool {
		if !out[i].CreatedAt.Equal(out[k].CreatedAt) {
			return out[i].CreatedAt.After(out[k].CreatedAt)
		}
		return out[i].ID < out[k].ID
	})
	return out, nil
}

func (m *Memory) SetJobStatus(ctx context.Context, id string, status core.JobStatus, errorMessage string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return core.ErrJobNotFound
	}
	now := time.Now().UTC()
	j.Status = status
	j.ErrorMessage = errorMessage
	switch status {
	case core.JobProcessing:
		if j.StartedAt == nil {
			j.StartedAt = &now
		}
	case core.JobCompleted, core.JobFailed:
		if j.CompletedAt == nil {
			j.CompletedAt = &now
		}
	}
	return nil
}

func (m *Memory) SetJobProgress(ctx context.Context, id string, processed int, tally core.Tally) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return core.ErrJobNotFound
	}
	j.ProcessedRecords = processed
	j.Tally = tally
	return nil
}

func (m *Memory) CreateBatch(ctx context.Context, batch *core.Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	cp := *batch
	if cp.StartedAt == nil && cp.Status == core.BatchProcessing {
		cp.StartedAt = &now
	}
	m.batches[batch.ID] = &cp
	m.order = append(m.order, batch.ID)
	return nil
}

func (m *Memory) ListBatches(ctx context.Context, jobID string) ([]*core.Batch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*core.Batch, 0)
	for _, id := range m.order {
		if b := m.batches[id]; b.JobID == jobID {
			cp := *b
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Number < out[k].Number })
	return out, nil
}

func (m *Memory) SetBatchStatus(ctx context.Context, id string, status core.BatchStatus, errorMessage string, tally core.Tally) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.batches[id]
	if !ok {
		return errBatchNotFound
	}
	now := time.Now().UTC()
	b.Status = status
	b.ErrorMessage = errorMessage
	b.Tally = tally
	switch status {
	case core.BatchCompleted, core.BatchFailed:
		if b.CompletedAt == nil {
			b.CompletedAt = &now
		}
	}
	return nil
}
