package form

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hubjoltd/formrelay/internal/auth"
)

// ErrFormUnreachable is returned when the target form cannot be loaded at all.
var ErrFormUnreachable = errors.New("form unreachable")

// ErrNoFieldsDiscovered is returned when the form loads but no addressable
// fields are found. Submitting against such a form would silently write
// nothing, so resolution fails instead of synthesizing placeholder IDs.
var ErrNoFieldsDiscovered = errors.New("no fields discovered")

// discoveryStrategy is one way of learning a form's fields. Strategies are
// independent; the Resolver decides how their results combine.
type discoveryStrategy interface {
	name() string
	discover(ctx context.Context, ref Ref) ([]FieldDescriptor, error)
}

// Resolver produces the field catalog for a target form.
//
// It runs the structural scan and the metadata API strategy and merges the
// two: the scan is authoritative for entry IDs (submission requires them),
// while the metadata API enriches label, kind and required-ness for fields
// both strategies see. Metadata failures are soft; scan failures are not.
type Resolver struct {
	scan       discoveryStrategy
	structured discoveryStrategy
	logger     *slog.Logger
}

// NewResolver creates a Resolver using the given HTTP client for both
// strategies. A nil client gets a default with a bounded timeout.
func NewResolver(client *http.Client, creds auth.CredentialProvider) *Resolver {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if creds == nil {
		creds = auth.NewStatic("")
	}
	return &Resolver{
		scan:       &scanStrategy{client: client},
		structured: &structuredStrategy{client: client, creds: creds},
		logger:     slog.Default(),
	}
}

// Resolve returns the form's addressable fields in document order.
//
// Fails with ErrFormUnreachable when the form cannot be loaded and with
// ErrNoFieldsDiscovered when it loads but the scan finds nothing. Repeated
// calls against an unchanged form yield the same field ID set.
func (r *Resolver) Resolve(ctx context.Context, ref Ref) ([]FieldDescriptor, error) {
	fields, err := r.scan.discover(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", r.scan.name(), err)
	}
	if len(fields) == 0 {
		return nil, ErrNoFieldsDiscovered
	}

	meta, err := r.structured.discover(ctx, ref)
	switch {
	case err == nil:
		merge(fields, meta)
	case errors.Is(err, errStrategyUnavailable):
		r.logger.Debug("metadata enrichment skipped", "reason", err)
	case errors.Is(err, auth.ErrAuthorizationFailed):
		// A rejected credential is a configuration problem the caller
		// should hear about, not a soft miss.
		return nil, err
	default:
		r.logger.Warn("metadata enrichment failed", "error", err)
	}

	return fields, nil
}

// merge enriches scanned fields with metadata attributes, matching the two
// catalogs by normalized label. Unmatched metadata entries are dropped:
// without an entry ID they cannot be submitted to.
func merge(fields []FieldDescriptor, meta []FieldDescriptor) {
	byLabel := make(map[string]FieldDescriptor, len(meta))
	for _, m := range meta {
		key := Normalize(m.Label)
		if key == "" {
			continue
		}
		if _, dup := byLabel[key]; !dup {
			byLabel[key] = m
		}
	}

	for i := range fields {
		key := Normalize(fields[i].Label)
		m, ok := byLabel[key]
		if !ok {
			continue
		}
		fields[i].Label = m.Label
		if m.Kind != KindUnknown {
			fields[i].Kind = m.Kind
		}
		fields[i].Required = fields[i].Required || m.Required
	}
}
