package mapping

import (
	"reflect"
	"testing"

	"github.com/hubjoltd/formrelay/internal/form"
)

func TestMap_ExactTier(t *testing.T) {
	f := []form.FieldDescriptor{
		{ID: "entry.1", Label: "Full Name"},
		{ID: "entry.2", Label: "Email"},
	}
	m := Map([]string{"email", "full_name"}, f)

	if got := m.FieldIDByColumn["email"]; got != "entry.2" {
		t.Errorf(`column "email" mapped to %q, want entry.2`, got)
	}
	if got := m.FieldIDByColumn["full_name"]; got != "entry.1" {
		t.Errorf(`column "full_name" mapped to %q, want entry.1`, got)
	}
	for _, match := range m.Matches {
		if match.Tier != TierExact {
			t.Errorf("match %+v used tier %q, want exact", match, match.Tier)
		}
	}
}

// TestMap_ExactBeatsSubstring pins the tie-break: with fields "Email" and
// "Personal Email", the column "Email" must claim the exact match, not the
// superstring.
func TestMap_ExactBeatsSubstring(t *testing.T) {
	f := []form.FieldDescriptor{
		{ID: "entry.1", Label: "Personal Email"},
		{ID: "entry.2", Label: "Email"},
	}
	m := Map([]string{"Email"}, f)

	if got := m.FieldIDByColumn["Email"]; got != "entry.2" {
		t.Errorf(`column "Email" mapped to %q, want entry.2 (exact tier)`, got)
	}
}

func TestMap_SubstringTier(t *testing.T) {
	// normalize("email") is a substring of normalize("E-mail Address") ==
	// "emailaddress", so the field label is contained in the column key.
	f := []form.FieldDescriptor{{ID: "entry.1", Label: "Email"}}
	m := Map([]string{"E-mail Address"}, f)

	if got := m.FieldIDByColumn["E-mail Address"]; got != "entry.1" {
		t.Fatalf(`column "E-mail Address" mapped to %q, want entry.1`, got)
	}
	if m.Matches[0].Tier != TierSubstring {
		t.Errorf("tier = %q, want substring", m.Matches[0].Tier)
	}
}

func TestMap_SubstringFirstQualifyingWins(t *testing.T) {
	// Both fields contain "email"; the first in resolved order wins.
	f := []form.FieldDescriptor{
		{ID: "entry.1", Label: "Work Email"},
		{ID: "entry.2", Label: "Home Email"},
	}
	m := Map([]string{"email"}, f)

	if got := m.FieldIDByColumn["email"]; got != "entry.1" {
		t.Errorf(`column "email" mapped to %q, want entry.1 (first in resolved order)`, got)
	}
}

func TestMap_PositionalTier(t *testing.T) {
	f := []form.FieldDescriptor{
		{ID: "entry.1", Label: "Question one"},
		{ID: "entry.2", Label: "Question two"},
		{ID: "entry.3", Label: "Question three"},
	}
	m := Map([]string{"alpha", "beta"}, f)

	if got := m.FieldIDByColumn["alpha"]; got != "entry.1" {
		t.Errorf(`column "alpha" mapped to %q, want entry.1`, got)
	}
	if got := m.FieldIDByColumn["beta"]; got != "entry.2" {
		t.Errorf(`column "beta" mapped to %q, want entry.2`, got)
	}
	for _, match := range m.Matches {
		if match.Tier != TierPositional {
			t.Errorf("match %+v used tier %q, want positional", match, match.Tier)
		}
	}
}

// TestMap_PositionalOnlyForLeftovers verifies tiers 1-2 consume their pairs
// before positional pairing engages, and leftovers pair in original order.
func TestMap_PositionalOnlyForLeftovers(t *testing.T) {
	f := []form.FieldDescriptor{
		{ID: "entry.1", Label: "Email"},
		{ID: "entry.2", Label: "Mystery question"},
		{ID: "entry.3", Label: "Another mystery"},
	}
	m := Map([]string{"notes", "email", "extra"}, f)

	if got := m.FieldIDByColumn["email"]; got != "entry.1" {
		t.Errorf(`column "email" mapped to %q, want entry.1`, got)
	}
	if got := m.FieldIDByColumn["notes"]; got != "entry.2" {
		t.Errorf(`column "notes" mapped to %q, want entry.2`, got)
	}
	if got := m.FieldIDByColumn["extra"]; got != "entry.3" {
		t.Errorf(`column "extra" mapped to %q, want entry.3`, got)
	}
}

func TestMap_NoFieldClaimedTwice(t *testing.T) {
	f := []form.FieldDescriptor{
		{ID: "entry.1", Label: "Email"},
	}
	m := Map([]string{"email", "e-mail", "Email Address"}, f)

	seen := make(map[string]string)
	for col, id := range m.FieldIDByColumn {
		if prev, dup := seen[id]; dup {
			t.Fatalf("field %q claimed by both %q and %q", id, prev, col)
		}
		seen[id] = col
	}
	if len(m.UnmappedColumns) != 2 {
		t.Errorf("UnmappedColumns = %v, want 2 leftover columns", m.UnmappedColumns)
	}
}

func TestMap_UnclaimedRequiredSurfaced(t *testing.T) {
	f := []form.FieldDescriptor{
		{ID: "entry.1", Label: "Email"},
		{ID: "entry.2", Label: "Consent", Required: true},
	}
	m := Map([]string{"email"}, f)

	if len(m.UnclaimedRequired) != 1 || m.UnclaimedRequired[0].ID != "entry.2" {
		t.Errorf("UnclaimedRequired = %+v, want [entry.2]", m.UnclaimedRequired)
	}
}

func TestMap_EmptyColumnsLeftOut(t *testing.T) {
	f := []form.FieldDescriptor{{ID: "entry.1", Label: "Email"}}
	m := Map([]string{"", "   "}, f)

	// Blank headers normalize to "" and must not exact- or substring-match
	// anything, but they may still pair positionally.
	if len(m.Matches) > 2 {
		t.Fatalf("unexpected matches: %+v", m.Matches)
	}
	for _, match := range m.Matches {
		if match.Tier != TierPositional {
			t.Errorf("blank column matched via %q tier", match.Tier)
		}
	}
}

func TestMap_Deterministic(t *testing.T) {
	cols := []string{"Name", "E-mail Address", "phone", "notes"}
	f := []form.FieldDescriptor{
		{ID: "entry.1", Label: "Full Name"},
		{ID: "entry.2", Label: "Email"},
		{ID: "entry.3", Label: "Phone Number"},
		{ID: "entry.4", Label: "Anything else?"},
	}

	first := Map(cols, f)
	second := Map(cols, f)

	if !reflect.DeepEqual(first.FieldIDByColumn, second.FieldIDByColumn) {
		t.Errorf("mapping not deterministic:\n%v\n%v", first.FieldIDByColumn, second.FieldIDByColumn)
	}
	if !reflect.DeepEqual(first.Matches, second.Matches) {
		t.Errorf("audit trail not deterministic:\n%v\n%v", first.Matches, second.Matches)
	}
}
