package submit

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Record is one row of caller data: column name → scalar value. The engine
// only reads records; ordering comes from the caller's column list.
type Record map[string]any

// Strategy sends one prepared set of field values to the target form.
// values is keyed by field ID; every value is a non-empty trimmed string.
//
// A Strategy returns a non-nil error only for failures of the attempt
// itself (transport, rendering); a refusal by the target service is an
// Outcome, not an error.
type Strategy interface {
	Name() string
	Send(ctx context.Context, values map[string]string) (Outcome, error)
}

// Executor submits mapped records through a Strategy with per-record fault
// isolation: any error or panic while processing one record becomes a
// Rejected outcome and never propagates to sibling records.
type Executor struct {
	strategy Strategy
	limiter  *rate.Limiter
	logger   *slog.Logger
}

// NewExecutor wraps a strategy. recordDelay is the minimum spacing between
// submission attempts; zero disables pacing (tests rely on this).
func NewExecutor(strategy Strategy, recordDelay time.Duration) *Executor {
	var limiter *rate.Limiter
	if recordDelay > 0 {
		limiter = rate.NewLimiter(rate.Every(recordDelay), 1)
	}
	return &Executor{
		strategy: strategy,
		limiter:  limiter,
		logger:   slog.Default(),
	}
}

// StrategyName reports which strategy this executor drives.
func (e *Executor) StrategyName() string {
	return e.strategy.Name()
}

// Submit applies the column→field mapping to one record and sends it.
//
// Records whose mapped values are all empty are Skipped(no-fields-filled)
// without consuming a pacing slot: they are not an attempt against the
// remote service.
func (e *Executor) Submit(ctx context.Context, fieldIDByColumn map[string]string, record Record) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("panic while submitting record", "strategy", e.strategy.Name(), "panic", r)
			out = Rejectedf("internal error: %v", r)
		}
	}()

	values := make(map[string]string, len(fieldIDByColumn))
	for column, fieldID := range fieldIDByColumn {
		s := coerce(record[column])
		if s == "" {
			continue
		}
		values[fieldID] = s
	}

	if len(values) == 0 {
		return Skipped(ReasonNoFieldsFilled)
	}

	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return Rejectedf("pacing wait: %v", err)
		}
	}

	outcome, err := e.strategy.Send(ctx, values)
	if err != nil {
		return Rejectedf("%s: %v", e.strategy.Name(), err)
	}
	return outcome
}

// coerce renders a scalar as the trimmed string the form receives. Numeric
// and temporal values are never reformatted beyond their plain string
// representation; the target service does its own parsing.
func coerce(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case time.Time:
		return strings.TrimSpace(t.String())
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}
