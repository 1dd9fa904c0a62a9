// Package form provides form discovery for the batch submission engine.
//
// A target form is identified by a Ref parsed from its public URL. The
// Resolver turns a Ref into a catalog of FieldDescriptors, the addressable
// inputs a submission can write to. Discovery runs two independent
// strategies (metadata API and structural scan of the rendered form) and
// merges their results; see Resolver for the merge policy.
package form

// Kind is a coarse, best-effort type tag for a form field.
type Kind string

const (
	KindText      Kind = "text"
	KindParagraph Kind = "paragraph"
	KindChoice    Kind = "choice"
	KindCheckbox  Kind = "checkbox"
	KindDropdown  Kind = "dropdown"
	KindDate      Kind = "date"
	KindTime      Kind = "time"
	KindScale     Kind = "scale"
	KindUnknown   Kind = "unknown"
)

// FieldDescriptor describes one addressable input on the target form.
//
// ID is the opaque entry token the submission endpoint requires
// (e.g. "entry.123456789") and may differ from any human-visible label.
// Label, Kind and Required are best-effort: the structural scan fills what
// it can see and the metadata API enriches them when credentials permit.
// Descriptors are produced fresh per Resolve call and never mutated; the
// remote form may change between jobs, so they are not persisted.
type FieldDescriptor struct {
	ID       string
	Label    string
	Kind     Kind
	Required bool
}
