package validator

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/guardkit/guardkit/internal/models"
)

type piiDetector struct {
	kind    string
	pattern *regexp.Regexp
}

var piiDetectors = []piiDetector{
	{kind: "email", pattern: regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)},
	{kind: "ssn", pattern: regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)},
	{kind: "phone", pattern: regexp.MustCompile(`\b(?:\+?1[\s.\-]?)?\(?\d{3}\)?[\s.\-]\d{3}[\s.\-]\d{4}\b`)},
	{kind: "credit_card", pattern: regexp.MustCompile(`\b(?:\d[ \-]?){13,16}\b`)},
}

// DetectPII is a local validator flagging personally identifiable
// information. Its corrected output masks every match, so it pairs naturally
// with the fix failure policy.
type DetectPII struct {
	name string
}

func NewDetectPII(name string) *DetectPII {
	return &DetectPII{name: name}
}

func (v *DetectPII) Name() string { return v.name }

func (v *DetectPII) Mode() models.ExecutionMode { return models.ModeLocal }

func (v *DetectPII) Validate(ctx context.Context, request models.ValidationRequest) (models.ValidationResult, error) {
	now := time.Now()

	result := models.ValidationResult{
		RequestID: request.RequestID,
		Validator: v.name,
		Outcome:   models.OutcomePass,
		Mode:      models.ModeLocal,
	}

	masked := request.Text
	var kinds []string
	for _, det := range piiDetectors {
		if !det.pattern.MatchString(masked) {
			continue
		}
		kinds = append(kinds, det.kind)
		masked = det.pattern.ReplaceAllStringFunc(masked, func(match string) string {
			return fmt.Sprintf("<%s>", strings.ToUpper(det.kind))
		})
	}

	if len(kinds) > 0 {
		result.Outcome = models.OutcomeFail
		result.Reason = fmt.Sprintf("PII detected: %s", strings.Join(kinds, ", "))
		result.CorrectedText = masked
	}

	result.Duration = time.Since(now)
	return result, nil
}
