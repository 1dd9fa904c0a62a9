package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hubjoltd/formrelay/internal/core"
	"github.com/hubjoltd/formrelay/internal/logging"
	"github.com/hubjoltd/formrelay/internal/submit"
)

// createJobRequest is the body of POST /api/jobs.
type createJobRequest struct {
	FormURL   string          `json:"formUrl"`
	Columns   []string        `json:"columns"`
	Records   []submit.Record `json:"records"`
	BatchSize int             `json:"batchSize"`

	// DelayBetweenBatchesMs overrides the configured inter-batch delay.
	// Omitted means "use the default"; an explicit 0 disables pacing.
	DelayBetweenBatchesMs *int64 `json:"delayBetweenBatchesMs"`

	Strategy string `json:"strategy"`
}

// inspectFormRequest is the body of POST /api/forms/inspect.
type inspectFormRequest struct {
	FormURL string   `json:"formUrl"`
	Columns []string `json:"columns"`
}

// healthResponse is the body of GET /healthz.
type healthResponse struct {
	Status     string `json:"status"`
	ActiveJobs int    `json:"activeJobs"`
}

// handleHealth reports liveness and how many jobs are running.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, http.StatusOK, healthResponse{
		Status:     "ok",
		ActiveJobs: s.service.ActiveJobs(),
	})
}

// handleCreateJob validates the request, starts a job, and returns it with
// 202: execution continues in the background and callers poll for progress.
func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var req createJobRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	spec := core.JobSpec{
		FormURL:    req.FormURL,
		Columns:    req.Columns,
		Records:    req.Records,
		BatchSize:  req.BatchSize,
		BatchDelay: -1,
		Strategy:   req.Strategy,
	}
	if req.DelayBetweenBatchesMs != nil {
		spec.BatchDelay = time.Duration(*req.DelayBetweenBatchesMs) * time.Millisecond
	}

	job, err := s.service.StartJob(r.Context(), spec)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("job accepted",
		"job_id", job.ID,
		"form_id", job.FormID,
		"records", job.TotalRecords,
		"batch_size", job.BatchSize,
	)

	respondJSON(w, r, http.StatusAccepted, job)
}

// handleGetJob returns one job with its progress and tallies.
func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.service.GetJob(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, job)
}

// handleListJobs returns all jobs, newest first.
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.service.ListJobs(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if jobs == nil {
		jobs = []*core.Job{}
	}
	respondJSON(w, r, http.StatusOK, jobs)
}

// handleListBatches returns a job's batches in order.
func (s *Server) handleListBatches(w http.ResponseWriter, r *http.Request) {
	batches, err := s.service.ListBatches(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if batches == nil {
		batches = []*core.Batch{}
	}
	respondJSON(w, r, http.StatusOK, batches)
}

// handleInspectForm resolves a form's fields and previews how the given
// columns would map, without starting a job.
func (s *Server) handleInspectForm(w http.ResponseWriter, r *http.Request) {
	var req inspectFormRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	plan, err := s.service.Inspect(r.Context(), req.FormURL, req.Columns)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, plan)
}

// decodeJSON reads a bounded JSON body into v, writing the error response
// itself when decoding fails.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxBodySize)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondErrorJSON(w, http.StatusRequestEntityTooLarge, "BODY_TOO_LARGE", "request body exceeds the size limit")
			return false
		}
		respondErrorJSON(w, http.StatusBadRequest, "BAD_JSON", "request body is not valid JSON for this endpoint")
		return false
	}
	// Reject trailing garbage after the JSON document.
	if dec.More() {
		respondErrorJSON(w, http.StatusBadRequest, "BAD_JSON", "request body has trailing data")
		return false
	}
	_, _ = io.Copy(io.Discard, r.Body)
	return true
}
