package web

// errors.go maps domain errors onto HTTP responses.
//
// Handlers call respondError with whatever the service returned; the
// mapping below decides the status code and a stable machine-readable code,
// and the technical detail is logged server-side with the request ID.

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hubjoltd/formrelay/internal/auth"
	"github.com/hubjoltd/formrelay/internal/core"
	"github.com/hubjoltd/formrelay/internal/form"
	"github.com/hubjoltd/formrelay/internal/logging"
)

// ErrorResponse is the JSON structure for API error responses.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// errorMapping pairs a sentinel error with its HTTP presentation.
type errorMapping struct {
	target  error
	status  int
	code    string
	message string
}

// Order matters: the first matching sentinel wins.
var errorMappings = []errorMapping{
	{form.ErrBadRef, http.StatusBadRequest, "BAD_FORM_URL", "the form URL or ID could not be parsed"},
	{form.ErrFormUnreachable, http.StatusBadGateway, "FORM_UNREACHABLE", "the target form could not be loaded"},
	{form.ErrNoFieldsDiscovered, http.StatusUnprocessableEntity, "NO_FIELDS_DISCOVERED", "the form loaded but no fillable fields were found"},
	{auth.ErrAuthorizationFailed, http.StatusBadGateway, "FORM_AUTH_FAILED", "the form service rejected the configured credentials"},
	{core.ErrJobNotFound, http.StatusNotFound, "JOB_NOT_FOUND", "no job with that ID exists"},
	{core.ErrNoRecords, http.StatusBadRequest, "NO_RECORDS", "the request carries no records to submit"},
	{core.ErrNoColumns, http.StatusBadRequest, "NO_COLUMNS", "the request carries no column headers"},
	{core.ErrBatchSizeOutOfRange, http.StatusBadRequest, "BATCH_SIZE_OUT_OF_RANGE", "the requested batch size is outside the allowed range"},
	{core.ErrUnknownStrategy, http.StatusBadRequest, "UNKNOWN_STRATEGY", "the requested submission strategy does not exist"},
	{core.ErrTooManyJobs, http.StatusTooManyRequests, "TOO_MANY_JOBS", "too many jobs are running, try again shortly"},
}

// respondError logs the technical error and writes the mapped JSON
// response. Unmapped errors become a generic 500.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	code := "INTERNAL"
	message := "an internal error occurred"

	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			status, code, message = m.status, m.code, m.message
			break
		}
	}

	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"code", code,
		"error", err,
	)

	respondErrorJSON(w, status, code, message)
}

// respondErrorJSON writes a JSON error response.
func respondErrorJSON(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message, Code: code})
}

// respondJSON encodes v with the given status. Encoding errors are logged
// since the header is already out.
func respondJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(r.Context()).Error("json encode",
			"path", r.URL.Path,
			"error", err,
		)
	}
}
