// Package auth supplies access tokens for the target service's metadata
// and submission APIs.
//
// The rest of the engine treats credentials as an opaque capability: it
// asks a CredentialProvider for a token when a call needs one and never
// sees how the token was obtained or refreshed.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// ErrNotConfigured is returned when no credential material is available.
var ErrNotConfigured = errors.New("credentials not configured")

// ErrAuthorizationFailed is returned when the remote service rejects the
// configured credential.
var ErrAuthorizationFailed = errors.New("authorization failed")

// CredentialProvider returns an access token for the target service.
type CredentialProvider interface {
	Token(ctx context.Context) (string, error)
}

// Static wraps a pre-issued token (API key or long-lived OAuth token).
type Static struct {
	token string
}

// NewStatic creates a provider around a fixed token. An empty token is a
// valid provider that reports ErrNotConfigured on use, which lets callers
// defer the "is auth set up" decision to the first call that needs it.
func NewStatic(token string) *Static {
	return &Static{token: strings.TrimSpace(token)}
}

func (s *Static) Token(ctx context.Context) (string, error) {
	if s.token == "" {
		return "", ErrNotConfigured
	}
	return s.token, nil
}

// Refreshing exchanges client credentials for short-lived access tokens
// and caches each token until shortly before it expires.
type Refreshing struct {
	tokenURL     string
	clientID     string
	clientSecret string
	client       *http.Client

	mu      sync.Mutex
	token   string
	expires time.Time
}

// expirySlack is how early a cached token is considered stale, so a token
// handed out is never on the verge of expiring mid-request.
const expirySlack = 30 * time.Second

// NewRefreshing creates a provider that performs a client-credentials
// exchange against tokenURL on first use and again whenever the cached
// token expires.
func NewRefreshing(tokenURL, clientID, clientSecret string, client *http.Client) *Refreshing {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Refreshing{
		tokenURL:     tokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		client:       client,
	}
}

func (r *Refreshing) Token(ctx context.Context) (string, error) {
	if r.tokenURL == "" || r.clientID == "" {
		return "", ErrNotConfigured
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.token != "" && time.Now().Before(r.expires.Add(-expirySlack)) {
		return r.token, nil
	}

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {r.clientID},
		"client_secret": {r.clientSecret},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("token exchange: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", fmt.Errorf("%w: token endpoint returned %d", ErrAuthorizationFailed, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint returned %d", resp.StatusCode)
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if body.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", ErrAuthorizationFailed)
	}

	r.token = body.AccessToken
	r.expires = time.Now().Add(time.Duration(body.ExpiresIn) * time.Second)
	return r.token, nil
}
