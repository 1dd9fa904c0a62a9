package submit

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hubjoltd/formrelay/internal/auth"
)

// direct.go implements protocol-level submission: a form-encoded POST of
// entry token → value pairs straight to the form's submission endpoint,
// no rendering involved. This is the fast path and the default strategy.

// confirmationMarkers are the response signatures that indicate the
// submission endpoint accepted the response. Anything else is a rejection.
var confirmationMarkers = []string{
	"Your response has been recorded",
	"freebirdFormviewerViewResponseConfirmation",
}

// maxResponseScan bounds how much of the confirmation page is read when
// looking for a marker.
const maxResponseScan = 256 << 10

// Direct submits records by POSTing directly to the submission endpoint.
type Direct struct {
	client   *http.Client
	endpoint string
	creds    auth.CredentialProvider
}

// NewDirect creates a direct strategy for the given submission endpoint.
// creds may be nil for forms that accept anonymous responses. The strategy
// never follows redirects: the redirect itself is the success signal.
func NewDirect(client *http.Client, endpoint string, creds auth.CredentialProvider) *Direct {
	base := http.DefaultClient
	if client != nil {
		base = client
	}
	// Shallow copy so disabling redirects does not leak into the caller's
	// client.
	c := *base
	c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	return &Direct{client: &c, endpoint: endpoint, creds: creds}
}

func (d *Direct) Name() string { return "direct" }

// Send posts the values and classifies the endpoint's answer.
func (d *Direct) Send(ctx context.Context, values map[string]string) (Outcome, error) {
	payload := url.Values{}
	for fieldID, v := range values {
		payload.Set(fieldID, v)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, strings.NewReader(payload.Encode()))
	if err != nil {
		return Outcome{}, fmt.Errorf("build submission request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	if d.creds != nil {
		if token, err := d.creds.Token(ctx); err == nil && token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return Outcome{}, fmt.Errorf("post submission: %w", err)
	}
	defer resp.Body.Close()

	return classifyResponse(resp), nil
}

// classifyResponse recognizes the endpoint's success signature: either a
// redirect whose target is the submission confirmation, or a confirmation
// page in the body. Anything else is a rejection with the reason attached.
func classifyResponse(resp *http.Response) Outcome {
	switch resp.StatusCode {
	case http.StatusFound, http.StatusSeeOther, http.StatusMovedPermanently:
		loc := resp.Header.Get("Location")
		if strings.Contains(loc, "formResponse") || strings.Contains(loc, "confirm") {
			return Accepted()
		}
		return Rejectedf("redirected away from confirmation: %s", loc)

	case http.StatusOK:
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseScan))
		if err != nil {
			return Rejectedf("read response: %v", err)
		}
		for _, marker := range confirmationMarkers {
			if strings.Contains(string(body), marker) {
				return Accepted()
			}
		}
		return Rejected("no confirmation in response")

	case http.StatusUnauthorized, http.StatusForbidden:
		return Rejectedf("submission refused: status %d", resp.StatusCode)

	default:
		return Rejectedf("unexpected status %d", resp.StatusCode)
	}
}
