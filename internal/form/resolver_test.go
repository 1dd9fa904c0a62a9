package form

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"golang.org/x/net/html"
)

// fixtureForm resembles a rendered form: question containers with role
// headings, entry tokens hidden in data-params, sentinel controls, and a
// radio group sharing one token.
const fixtureForm = `
<html><body>
  <div role="list">
    <div role="listitem" data-params="%.@.[[1000,&quot;Full Name&quot;,null,0,[[entry.100]]]]">
      <div role="heading" aria-level="3">Full Name</div>
      <input type="text" name="entry.100" aria-required="true">
    </div>
    <div role="listitem">
      <div role="heading" aria-level="3">Email Address</div>
      <input type="email" name="entry.200">
    </div>
    <div role="listitem" data-params="[[2000,&quot;Comments&quot;,[[entry.300]]]]">
      <div role="heading" aria-level="3">Comments</div>
      <textarea aria-label="Comments"></textarea>
    </div>
    <div role="listitem">
      <div role="heading" aria-level="3">Department</div>
      <input type="radio" name="entry.400" value="Sales">
      <input type="radio" name="entry.400" value="Support">
      <input type="hidden" name="entry.400_sentinel">
    </div>
  </div>
  <input type="hidden" name="fbzx" value="123">
  <input type="hidden" name="pageHistory" value="0">
</body></html>`

func parseFixture(t *testing.T, markup string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	return doc
}

func TestScanDocument(t *testing.T) {
	fields := scanDocument(parseFixture(t, fixtureForm))

	wantIDs := []string{"entry.100", "entry.200", "entry.300", "entry.400"}
	if len(fields) != len(wantIDs) {
		t.Fatalf("scanDocument found %d fields, want %d: %+v", len(fields), len(wantIDs), fields)
	}
	for i, want := range wantIDs {
		if fields[i].ID != want {
			t.Errorf("fields[%d].ID = %q, want %q", i, fields[i].ID, want)
		}
	}

	// Heading heuristic wins for labels.
	if fields[0].Label != "Full Name" {
		t.Errorf("fields[0].Label = %q, want %q", fields[0].Label, "Full Name")
	}
	if fields[2].Label != "Comments" {
		t.Errorf("fields[2].Label = %q, want %q", fields[2].Label, "Comments")
	}

	if !fields[0].Required {
		t.Error("fields[0].Required = false, want true (aria-required)")
	}
	if fields[2].Kind != KindParagraph {
		t.Errorf("fields[2].Kind = %q, want %q", fields[2].Kind, KindParagraph)
	}
	if fields[3].Kind != KindChoice {
		t.Errorf("fields[3].Kind = %q, want %q", fields[3].Kind, KindChoice)
	}
}

func TestScanDocument_TokenFromAncestorParams(t *testing.T) {
	// The textarea has no name attribute; its token only exists in the
	// ancestor's data-params.
	fields := scanDocument(parseFixture(t, fixtureForm))
	for _, f := range fields {
		if f.ID == "entry.300" {
			return
		}
	}
	t.Error("entry.300 not discovered via ancestor data-params")
}

func TestScanDocument_ExcludesSentinels(t *testing.T) {
	fields := scanDocument(parseFixture(t, fixtureForm))
	for _, f := range fields {
		if strings.HasSuffix(f.ID, "_sentinel") {
			t.Errorf("sentinel control leaked into catalog: %q", f.ID)
		}
	}
}

func TestScanDocument_LabelForAssociation(t *testing.T) {
	markup := `<html><body>
		<label for="q1">Phone Number</label>
		<input id="q1" type="tel" name="entry.500">
	</body></html>`
	fields := scanDocument(parseFixture(t, markup))
	if len(fields) != 1 {
		t.Fatalf("found %d fields, want 1", len(fields))
	}
	if fields[0].Label != "Phone Number" {
		t.Errorf("Label = %q, want %q", fields[0].Label, "Phone Number")
	}
}

// TestScanDocument_Deterministic verifies repeated scans of the same form
// yield the same field ID set.
func TestScanDocument_Deterministic(t *testing.T) {
	first := scanDocument(parseFixture(t, fixtureForm))
	second := scanDocument(parseFixture(t, fixtureForm))

	ids := func(fields []FieldDescriptor) map[string]bool {
		set := make(map[string]bool, len(fields))
		for _, f := range fields {
			set[f.ID] = true
		}
		return set
	}

	a, b := ids(first), ids(second)
	if len(a) != len(b) {
		t.Fatalf("field ID sets differ in size: %d vs %d", len(a), len(b))
	}
	for id := range a {
		if !b[id] {
			t.Errorf("field %q missing from second scan", id)
		}
	}
}

// fakeStrategy satisfies discoveryStrategy for resolver-level tests.
type fakeStrategy struct {
	strategyName string
	fields       []FieldDescriptor
	err          error
}

func (f *fakeStrategy) name() string { return f.strategyName }

func (f *fakeStrategy) discover(ctx context.Context, ref Ref) ([]FieldDescriptor, error) {
	return f.fields, f.err
}

func newTestResolver(scan, structured discoveryStrategy) *Resolver {
	return &Resolver{scan: scan, structured: structured, logger: slog.Default()}
}

func TestResolve_MergesMetadata(t *testing.T) {
	scan := &fakeStrategy{strategyName: "scan", fields: []FieldDescriptor{
		{ID: "entry.1", Label: "full name", Kind: KindText},
		{ID: "entry.2", Label: "email address", Kind: KindText},
	}}
	structured := &fakeStrategy{strategyName: "meta", fields: []FieldDescriptor{
		{Label: "Full Name", Kind: KindText, Required: true},
		{Label: "Email Address", Kind: KindParagraph},
	}}

	fields, err := newTestResolver(scan, structured).Resolve(context.Background(), Ref{ID: "x"})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if !fields[0].Required {
		t.Error("required flag not merged from metadata")
	}
	if fields[0].Label != "Full Name" {
		t.Errorf("label not enriched: %q", fields[0].Label)
	}
	if fields[1].Kind != KindParagraph {
		t.Errorf("kind not merged: %q", fields[1].Kind)
	}
	// Entry IDs always come from the scan.
	if fields[0].ID != "entry.1" || fields[1].ID != "entry.2" {
		t.Errorf("entry IDs changed by merge: %+v", fields)
	}
}

func TestResolve_NoFieldsDiscovered(t *testing.T) {
	scan := &fakeStrategy{strategyName: "scan"}
	structured := &fakeStrategy{strategyName: "meta", fields: []FieldDescriptor{
		{Label: "Full Name"},
	}}

	_, err := newTestResolver(scan, structured).Resolve(context.Background(), Ref{ID: "x"})
	if !errors.Is(err, ErrNoFieldsDiscovered) {
		t.Fatalf("Resolve() error = %v, want ErrNoFieldsDiscovered", err)
	}
}

func TestResolve_MetadataFailureIsSoft(t *testing.T) {
	scan := &fakeStrategy{strategyName: "scan", fields: []FieldDescriptor{
		{ID: "entry.1", Label: "Name"},
	}}
	structured := &fakeStrategy{strategyName: "meta", err: errors.New("boom")}

	fields, err := newTestResolver(scan, structured).Resolve(context.Background(), Ref{ID: "x"})
	if err != nil {
		t.Fatalf("Resolve() error = %v, want nil (metadata failure is soft)", err)
	}
	if len(fields) != 1 {
		t.Fatalf("got %d fields, want 1", len(fields))
	}
}

func TestResolve_ScanFailureIsFatal(t *testing.T) {
	scan := &fakeStrategy{strategyName: "scan", err: ErrFormUnreachable}
	structured := &fakeStrategy{strategyName: "meta"}

	_, err := newTestResolver(scan, structured).Resolve(context.Background(), Ref{ID: "x"})
	if !errors.Is(err, ErrFormUnreachable) {
		t.Fatalf("Resolve() error = %v, want ErrFormUnreachable", err)
	}
}
