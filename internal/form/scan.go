package form

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// scan.go implements the structural-scan discovery strategy.
//
// The rendered form is fetched over HTTP and its markup walked for the
// opaque entry tokens the submission endpoint requires. No metadata API
// exposes those tokens, so this strategy is authoritative for field IDs.
// Token and label location are each an ordered list of heuristics tried
// until one succeeds, which keeps the scan best-effort and explainable
// rather than dependent on a single brittle selector.

var entryTokenRe = regexp.MustCompile(`entry\.\d+`)

// sentinelNames are internal controls of the form runtime that must never
// be treated as user-addressable fields.
var sentinelNames = map[string]bool{
	"fbzx":                true,
	"fvv":                 true,
	"pageHistory":         true,
	"draftResponse":       true,
	"partialResponse":     true,
	"submissionTimestamp": true,
}

type scanStrategy struct {
	client *http.Client
}

func (s *scanStrategy) name() string { return "structural-scan" }

// discover fetches the rendered form and scans it for entry tokens.
// The response body is closed on every exit path.
func (s *scanStrategy) discover(ctx context.Context, ref Ref) ([]FieldDescriptor, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref.ViewURL(), nil)
	if err != nil {
		return nil, fmt.Errorf("build form request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: form returned status %d", ErrFormUnreachable, resp.StatusCode)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse form markup: %w", err)
	}

	return scanDocument(doc), nil
}

// scanDocument walks the parsed form and returns descriptors in document
// order, one per distinct entry token.
func scanDocument(doc *html.Node) []FieldDescriptor {
	labelsByID := collectLabelTargets(doc)

	var fields []FieldDescriptor
	seen := make(map[string]bool)

	walk(doc, func(n *html.Node) {
		if n.Type != html.ElementNode {
			return
		}
		if !isInteractive(n) {
			return
		}

		token, ok := locateToken(n)
		if !ok || seen[token] {
			return
		}
		if isSentinel(n, token) {
			return
		}
		seen[token] = true

		fields = append(fields, FieldDescriptor{
			ID:       token,
			Label:    locateLabel(n, labelsByID),
			Kind:     kindOf(n),
			Required: hasAttrValue(n, "aria-required", "true") || hasAttr(n, "required"),
		})
	})

	return fields
}

// locateToken finds the entry token for an interactive element. Heuristics,
// in order: the name attribute; a data-bearing attribute on the element or
// an ancestor; a generic scan of every attribute value.
func locateToken(n *html.Node) (string, bool) {
	if name := attr(n, "name"); name != "" {
		if tok := entryTokenRe.FindString(name); tok != "" {
			return tok, true
		}
	}

	for p := n; p != nil; p = p.Parent {
		for _, key := range []string{"data-params", "data-item-id", "jsdata"} {
			if v := attr(p, key); v != "" {
				if tok := entryTokenRe.FindString(v); tok != "" {
					return tok, true
				}
			}
		}
	}

	for _, a := range n.Attr {
		if tok := entryTokenRe.FindString(a.Val); tok != "" {
			return tok, true
		}
	}

	return "", false
}

// locateLabel finds the best human-readable label for an interactive
// element. Heuristics, in order: ancestor heading text; a <label for=>
// association; accessible-name attributes.
func locateLabel(n *html.Node, labelsByID map[string]string) string {
	for p := n.Parent; p != nil; p = p.Parent {
		if heading := findHeading(p); heading != "" {
			return heading
		}
	}

	if id := attr(n, "id"); id != "" {
		if label, ok := labelsByID[id]; ok {
			return label
		}
	}

	if v := attr(n, "aria-label"); v != "" {
		return strings.TrimSpace(v)
	}
	if ids := attr(n, "aria-labelledby"); ids != "" {
		var parts []string
		for _, id := range strings.Fields(ids) {
			if label, ok := labelsByID[id]; ok {
				parts = append(parts, label)
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, " ")
		}
	}

	return ""
}

// findHeading returns the text of the first heading element within the
// given container. Callers ascend from the nearest ancestor outward, so a
// question's own heading wins over the form title.
func findHeading(container *html.Node) string {
	var heading string
	walk(container, func(n *html.Node) {
		if heading != "" || n.Type != html.ElementNode {
			return
		}
		switch n.Data {
		case "h1", "h2", "h3", "h4", "h5", "h6":
			heading = textContent(n)
		default:
			if hasAttrValue(n, "role", "heading") {
				heading = textContent(n)
			}
		}
	})
	return heading
}

// collectLabelTargets indexes <label for="..."> text by target element ID.
func collectLabelTargets(doc *html.Node) map[string]string {
	labels := make(map[string]string)
	walk(doc, func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "label" {
			if target := attr(n, "for"); target != "" {
				labels[target] = textContent(n)
			}
		}
	})
	return labels
}

func isInteractive(n *html.Node) bool {
	switch n.Data {
	case "input", "textarea", "select":
		return true
	}
	role := attr(n, "role")
	return role == "textbox" || role == "listbox" || role == "radio" || role == "checkbox"
}

func isSentinel(n *html.Node, token string) bool {
	name := attr(n, "name")
	if sentinelNames[name] {
		return true
	}
	if strings.HasSuffix(name, "_sentinel") {
		return true
	}
	// Hidden bookkeeping duplicates of a visible field.
	return attr(n, "type") == "hidden" && name != "" && name != token && !strings.HasPrefix(name, "entry.")
}

func kindOf(n *html.Node) Kind {
	switch n.Data {
	case "textarea":
		return KindParagraph
	case "select":
		return KindDropdown
	case "input":
		switch attr(n, "type") {
		case "radio":
			return KindChoice
		case "checkbox":
			return KindCheckbox
		case "date":
			return KindDate
		case "time":
			return KindTime
		case "", "text", "email", "tel", "url", "number":
			return KindText
		}
		return KindUnknown
	}
	switch attr(n, "role") {
	case "textbox":
		return KindText
	case "radio":
		return KindChoice
	case "checkbox":
		return KindCheckbox
	case "listbox":
		return KindDropdown
	}
	return KindUnknown
}

// walk visits every node in depth-first document order.
func walk(n *html.Node, visit func(*html.Node)) {
	visit(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, visit)
	}
}

func attr(n *html.Node, key string) string {
	if n.Type != html.ElementNode {
		return ""
	}
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

func hasAttrValue(n *html.Node, key, val string) bool {
	return attr(n, key) == val
}

func textContent(n *html.Node) string {
	var b strings.Builder
	walk(n, func(c *html.Node) {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	})
	return strings.Join(strings.Fields(b.String()), " ")
}
