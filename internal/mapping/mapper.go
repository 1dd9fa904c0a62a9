// Package mapping matches spreadsheet columns to resolved form fields.
//
// Column naming in caller spreadsheets follows no convention, so matching
// is deliberately lenient: a three-tier greedy policy (exact, substring,
// positional) with an audit trail recording which tier paired each column,
// rather than strict validation that would reject most real files.
package mapping

import (
	"strings"

	"github.com/hubjoltd/formrelay/internal/form"
)

// Tier identifies which matching rule paired a column with a field.
type Tier string

const (
	TierExact      Tier = "exact"
	TierSubstring  Tier = "substring"
	TierPositional Tier = "positional"
)

// Match records one column→field pairing and the tier that made it.
type Match struct {
	Column  string `json:"column"`
	FieldID string `json:"fieldId"`
	Tier    Tier   `json:"tier"`
}

// Mapping is the result of matching a column list against a field catalog.
// It is built once per job and immutable afterward; rebuilding from the
// same inputs yields the same mapping.
type Mapping struct {
	// FieldIDByColumn holds the final column→field assignment. A field ID
	// appears at most once: no two columns write to the same target field.
	FieldIDByColumn map[string]string

	// Matches is the audit trail, in assignment order.
	Matches []Match

	// UnmappedColumns lists columns no tier could place, in input order.
	// Leaving a column out is not an error.
	UnmappedColumns []string

	// UnclaimedRequired lists required fields no column claimed. These are
	// surfaced as warnings to the caller, never as failures.
	UnclaimedRequired []form.FieldDescriptor
}

// Map pairs columns with fields using the three-tier policy. Each tier only
// considers columns still unmapped and fields not yet claimed, scanning
// fields in resolved order and columns in given order so ties break the
// same way every run.
func Map(columns []string, fields []form.FieldDescriptor) Mapping {
	m := Mapping{FieldIDByColumn: make(map[string]string, len(columns))}

	claimed := make(map[string]bool, len(fields))
	mapped := make(map[string]bool, len(columns))

	assign := func(column string, field form.FieldDescriptor, tier Tier) {
		m.FieldIDByColumn[column] = field.ID
		m.Matches = append(m.Matches, Match{Column: column, FieldID: field.ID, Tier: tier})
		claimed[field.ID] = true
		mapped[column] = true
	}

	// Tier 1: exact normalized-label match.
	for _, col := range columns {
		if mapped[col] {
			continue
		}
		key := form.Normalize(col)
		for _, f := range fields {
			if claimed[f.ID] {
				continue
			}
			if key != "" && key == form.Normalize(f.Label) {
				assign(col, f, TierExact)
				break
			}
		}
	}

	// Tier 2: substring match in either direction. Fields are scanned in
	// resolved order and columns in given order; the first qualifying pair
	// wins, a deliberate and observable tie-break.
	for _, col := range columns {
		if mapped[col] {
			continue
		}
		key := form.Normalize(col)
		if key == "" {
			continue
		}
		for _, f := range fields {
			if claimed[f.ID] {
				continue
			}
			label := form.Normalize(f.Label)
			if label == "" {
				continue
			}
			if strings.Contains(label, key) || strings.Contains(key, label) {
				assign(col, f, TierSubstring)
				break
			}
		}
	}

	// Tier 3: pair the leftovers positionally, in original order, until
	// either list runs out.
	var restFields []form.FieldDescriptor
	for _, f := range fields {
		if !claimed[f.ID] {
			restFields = append(restFields, f)
		}
	}
	i := 0
	for _, col := range columns {
		if mapped[col] {
			continue
		}
		if i >= len(restFields) {
			break
		}
		assign(col, restFields[i], TierPositional)
		i++
	}

	for _, col := range columns {
		if !mapped[col] {
			m.UnmappedColumns = append(m.UnmappedColumns, col)
		}
	}
	for _, f := range fields {
		if f.Required && !claimed[f.ID] {
			m.UnclaimedRequired = append(m.UnclaimedRequired, f)
		}
	}

	return m
}
