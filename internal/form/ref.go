package form

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrBadRef is returned when a form URL or ID cannot be parsed.
var ErrBadRef = errors.New("invalid form reference")

// Ref identifies a target form and knows how to derive its endpoints.
//
// Two flavors of Google Forms identifier exist: the responder ID that
// appears in published /forms/d/e/<id>/viewform links, and the shorter
// document ID from /forms/d/<id>/ links. Only the document ID is usable
// against the metadata API, so Responder records which flavor we hold.
type Ref struct {
	ID        string
	Responder bool
}

const (
	viewFormBase = "https://docs.google.com/forms/d/e/%s/viewform"
	docFormBase  = "https://docs.google.com/forms/d/%s/viewform"
	submitSuffix = "formResponse"
	metadataBase = "https://forms.googleapis.com/v1/forms/%s"
)

// ParseRef extracts a form reference from a raw URL or bare form ID.
func ParseRef(raw string) (Ref, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Ref{}, fmt.Errorf("%w: empty", ErrBadRef)
	}

	// Bare IDs have no scheme or slashes.
	if !strings.Contains(raw, "/") {
		if !isFormID(raw) {
			return Ref{}, fmt.Errorf("%w: %q is not a form id", ErrBadRef, raw)
		}
		return Ref{ID: raw, Responder: strings.HasPrefix(raw, "1FAIpQL")}, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Ref{}, fmt.Errorf("%w: %v", ErrBadRef, err)
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, p := range parts {
		if p != "d" || i+1 >= len(parts) {
			continue
		}
		if parts[i+1] == "e" {
			if i+2 >= len(parts) {
				break
			}
			return Ref{ID: parts[i+2], Responder: true}, nil
		}
		return Ref{ID: parts[i+1]}, nil
	}

	return Ref{}, fmt.Errorf("%w: unrecognized url %q", ErrBadRef, raw)
}

// isFormID reports whether s is plausible as a bare form ID. IDs use only
// URL-safe base64 characters.
func isFormID(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '_' || r == '-':
		default:
			return false
		}
	}
	return true
}

// ViewURL returns the rendered-form endpoint used by the structural scan
// and the simulated submission strategy.
func (r Ref) ViewURL() string {
	if r.Responder {
		return fmt.Sprintf(viewFormBase, r.ID)
	}
	return fmt.Sprintf(docFormBase, r.ID)
}

// SubmitURL returns the protocol-level submission endpoint.
func (r Ref) SubmitURL() string {
	view := r.ViewURL()
	return strings.TrimSuffix(view, "viewform") + submitSuffix
}

// MetadataURL returns the metadata API endpoint, or "" when the reference
// is a responder ID the API cannot address.
func (r Ref) MetadataURL() string {
	if r.Responder {
		return ""
	}
	return fmt.Sprintf(metadataBase, r.ID)
}
