package validator

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/guardkit/guardkit/internal/models"
)

// RegexMatch is a local validator that fails any fragment matching its
// pattern.
type RegexMatch struct {
	name    string
	pattern *regexp.Regexp
}

func NewRegexMatch(name string, pattern string) (*RegexMatch, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern for validator %s: %w", name, err)
	}

	return &RegexMatch{name: name, pattern: re}, nil
}

func (v *RegexMatch) Name() string { return v.name }

func (v *RegexMatch) Mode() models.ExecutionMode { return models.ModeLocal }

func (v *RegexMatch) Validate(ctx context.Context, request models.ValidationRequest) (models.ValidationResult, error) {
	now := time.Now()

	result := models.ValidationResult{
		RequestID: request.RequestID,
		Validator: v.name,
		Outcome:   models.OutcomePass,
		Mode:      models.ModeLocal,
	}

	if match := v.pattern.FindString(request.Text); match != "" {
		result.Outcome = models.OutcomeFail
		result.Reason = fmt.Sprintf("text matches forbidden pattern %q", v.pattern.String())
		result.CorrectedText = v.pattern.ReplaceAllString(request.Text, "")
	}

	result.Duration = time.Since(now)
	return result, nil
}
