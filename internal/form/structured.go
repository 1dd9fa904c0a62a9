package form

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/hubjoltd/formrelay/internal/auth"
)

// structured.go implements the metadata-API discovery strategy.
//
// The API yields question titles, types and required-ness but not the
// entry tokens submission needs, so its output is only ever merged into
// the structural scan's result. The strategy applies when the form
// reference carries an API-addressable ID and credentials are configured;
// otherwise it reports errStrategyUnavailable and the resolver proceeds
// on the scan alone.

// errStrategyUnavailable marks a discovery strategy that cannot run for
// this form or configuration. It is soft: the resolver logs and moves on.
var errStrategyUnavailable = errors.New("discovery strategy unavailable")

type structuredStrategy struct {
	client *http.Client
	creds  auth.CredentialProvider

	// baseURL overrides the production metadata endpoint in tests.
	baseURL string
}

func (s *structuredStrategy) name() string { return "metadata-api" }

func (s *structuredStrategy) discover(ctx context.Context, ref Ref) ([]FieldDescriptor, error) {
	endpoint := s.endpoint(ref)
	if endpoint == "" {
		return nil, fmt.Errorf("%w: form reference has no metadata endpoint", errStrategyUnavailable)
	}

	token, err := s.creds.Token(ctx)
	if err != nil {
		if errors.Is(err, auth.ErrNotConfigured) {
			return nil, fmt.Errorf("%w: %v", errStrategyUnavailable, err)
		}
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build metadata request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch form metadata: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, fmt.Errorf("%w: metadata API returned %d", auth.ErrAuthorizationFailed, resp.StatusCode)
	default:
		return nil, fmt.Errorf("metadata API returned %d", resp.StatusCode)
	}

	var body metadataResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode form metadata: %w", err)
	}

	var fields []FieldDescriptor
	for _, item := range body.Items {
		q := item.QuestionItem
		if q == nil {
			continue
		}
		fields = append(fields, FieldDescriptor{
			Label:    item.Title,
			Kind:     metadataKind(q.Question),
			Required: q.Question.Required,
		})
	}
	return fields, nil
}

func (s *structuredStrategy) endpoint(ref Ref) string {
	if s.baseURL != "" {
		return s.baseURL + "/" + ref.ID
	}
	return ref.MetadataURL()
}

// metadataResponse mirrors the subset of the metadata API payload the
// resolver consumes.
type metadataResponse struct {
	FormID string `json:"formId"`
	Items  []struct {
		Title        string `json:"title"`
		QuestionItem *struct {
			Question metadataQuestion `json:"question"`
		} `json:"questionItem"`
	} `json:"items"`
}

type metadataQuestion struct {
	Required     bool `json:"required"`
	TextQuestion *struct {
		Paragraph bool `json:"paragraph"`
	} `json:"textQuestion"`
	ChoiceQuestion *struct {
		Type string `json:"type"`
	} `json:"choiceQuestion"`
	DateQuestion  *struct{} `json:"dateQuestion"`
	TimeQuestion  *struct{} `json:"timeQuestion"`
	ScaleQuestion *struct{} `json:"scaleQuestion"`
}

func metadataKind(q metadataQuestion) Kind {
	switch {
	case q.TextQuestion != nil && q.TextQuestion.Paragraph:
		return KindParagraph
	case q.TextQuestion != nil:
		return KindText
	case q.ChoiceQuestion != nil:
		switch q.ChoiceQuestion.Type {
		case "RADIO":
			return KindChoice
		case "CHECKBOX":
			return KindCheckbox
		case "DROP_DOWN":
			return KindDropdown
		}
		return KindChoice
	case q.DateQuestion != nil:
		return KindDate
	case q.TimeQuestion != nil:
		return KindTime
	case q.ScaleQuestion != nil:
		return KindScale
	}
	return KindUnknown
}
