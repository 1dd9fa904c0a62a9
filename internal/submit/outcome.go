// Package submit performs the actual submission of mapped records to the
// target form, through one of two interchangeable strategies: a direct
// protocol-level POST or a simulated interactive session in a rendering
// context. The Executor wraps whichever strategy is configured with
// per-record fault isolation and pacing.
package submit

import "fmt"

// Status classifies what happened to one record.
type Status string

const (
	// StatusAccepted means the target service acknowledged the submission.
	StatusAccepted Status = "accepted"
	// StatusRejected means the submission was attempted and refused, or an
	// error occurred while attempting it.
	StatusRejected Status = "rejected"
	// StatusSkipped means the record was not attempted at all.
	StatusSkipped Status = "skipped"
)

// ReasonNoFieldsFilled is the skip reason for records where, after the
// mapping is applied, no non-empty value lands in any field. Such records
// never count as an attempt against the remote service.
const ReasonNoFieldsFilled = "no-fields-filled"

// Outcome is the result of submitting one record. Outcomes are data, never
// errors: a rejected record must not abort its siblings.
type Outcome struct {
	Status Status `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// Accepted returns a successful outcome.
func Accepted() Outcome {
	return Outcome{Status: StatusAccepted}
}

// Rejected returns a rejection with the given reason.
func Rejected(reason string) Outcome {
	return Outcome{Status: StatusRejected, Reason: reason}
}

// Rejectedf returns a rejection with a formatted reason.
func Rejectedf(format string, args ...any) Outcome {
	return Outcome{Status: StatusRejected, Reason: fmt.Sprintf(format, args...)}
}

// Skipped returns a skip with the given reason.
func Skipped(reason string) Outcome {
	return Outcome{Status: StatusSkipped, Reason: reason}
}
