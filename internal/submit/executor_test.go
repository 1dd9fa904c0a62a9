package submit

import (
	"context"
	"testing"
)

// captureStrategy records what it was asked to send.
type captureStrategy struct {
	calls   int
	values  map[string]string
	outcome Outcome
	err     error
	panics  bool
}

func (c *captureStrategy) Name() string { return "capture" }

func (c *captureStrategy) Send(ctx context.Context, values map[string]string) (Outcome, error) {
	c.calls++
	c.values = values
	if c.panics {
		panic("strategy blew up")
	}
	return c.outcome, c.err
}

func TestExecutor_AppliesMappingAndTrims(t *testing.T) {
	strat := &captureStrategy{outcome: Accepted()}
	exec := NewExecutor(strat, 0)

	mapping := map[string]string{
		"Name":  "entry.1",
		"Email": "entry.2",
		"Phone": "entry.3",
	}
	record := Record{
		"Name":  "  Ada Lovelace  ",
		"Email": "ada@example.com",
		// Phone absent from the record entirely.
	}

	out := exec.Submit(context.Background(), mapping, record)
	if out.Status != StatusAccepted {
		t.Fatalf("Submit() = %+v, want accepted", out)
	}
	if got := strat.values["entry.1"]; got != "Ada Lovelace" {
		t.Errorf("entry.1 = %q, want trimmed %q", got, "Ada Lovelace")
	}
	if _, sent := strat.values["entry.3"]; sent {
		t.Error("absent column produced a value for entry.3")
	}
}

func TestExecutor_SkipsWhenNoFieldsFilled(t *testing.T) {
	strat := &captureStrategy{outcome: Accepted()}
	exec := NewExecutor(strat, 0)

	record := Record{"Name": "   ", "Email": nil}
	out := exec.Submit(context.Background(), map[string]string{"Name": "entry.1", "Email": "entry.2"}, record)

	if out.Status != StatusSkipped || out.Reason != ReasonNoFieldsFilled {
		t.Fatalf("Submit() = %+v, want Skipped(%q)", out, ReasonNoFieldsFilled)
	}
	if strat.calls != 0 {
		t.Errorf("strategy called %d times for an all-empty record, want 0", strat.calls)
	}
}

func TestExecutor_StrategyErrorBecomesRejected(t *testing.T) {
	strat := &captureStrategy{err: context.DeadlineExceeded}
	exec := NewExecutor(strat, 0)

	out := exec.Submit(context.Background(), map[string]string{"A": "entry.1"}, Record{"A": "x"})
	if out.Status != StatusRejected {
		t.Fatalf("Submit() = %+v, want rejected", out)
	}
}

// TestExecutor_PanicIsolatedToRecord verifies a panicking record yields
// Rejected and the executor remains usable for the next record.
func TestExecutor_PanicIsolatedToRecord(t *testing.T) {
	strat := &captureStrategy{panics: true, outcome: Accepted()}
	exec := NewExecutor(strat, 0)
	mapping := map[string]string{"A": "entry.1"}

	out := exec.Submit(context.Background(), mapping, Record{"A": "boom"})
	if out.Status != StatusRejected {
		t.Fatalf("panicking record = %+v, want rejected", out)
	}

	strat.panics = false
	out = exec.Submit(context.Background(), mapping, Record{"A": "fine"})
	if out.Status != StatusAccepted {
		t.Fatalf("record after panic = %+v, want accepted", out)
	}
}

func TestCoerce(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  string
	}{
		{name: "string trimmed", input: "  hi  ", want: "hi"},
		{name: "nil empty", input: nil, want: ""},
		{name: "int verbatim", input: 42, want: "42"},
		{name: "int64 verbatim", input: int64(9007199254740993), want: "9007199254740993"},
		{name: "float no exponent", input: 6071234567.0, want: "6071234567"},
		{name: "float fraction kept", input: 3.25, want: "3.25"},
		{name: "bool", input: true, want: "true"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := coerce(tt.input); got != tt.want {
				t.Errorf("coerce(%v) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
