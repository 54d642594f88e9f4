package validator

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/guardkit/guardkit/internal/models"
)

const toxicLexiconVersion = "lexicon-v1"

// ToxicLanguage is a local validator scoring text against an installed term
// lexicon. Each lexicon line is "term" or "term weight" with weight in
// [0.0, 1.0]; a missing weight counts as 1.0. The fragment fails when the
// highest matched weight reaches the threshold.
type ToxicLanguage struct {
	name      string
	threshold float64
	terms     map[string]float64
}

func NewToxicLanguage(name string, lexiconPath string, threshold float64) (*ToxicLanguage, error) {
	f, err := os.Open(lexiconPath)
	if err != nil {
		return nil, fmt.Errorf("unable to open lexicon %s: %w", lexiconPath, err)
	}
	defer f.Close()

	terms := make(map[string]float64)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		weight := 1.0
		if len(fields) > 1 {
			if w, err := strconv.ParseFloat(fields[len(fields)-1], 64); err == nil {
				weight = w
				fields = fields[:len(fields)-1]
			}
		}
		terms[strings.ToLower(strings.Join(fields, " "))] = weight
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("unable to read lexicon %s: %w", lexiconPath, err)
	}
	if len(terms) == 0 {
		return nil, fmt.Errorf("lexicon %s contains no terms", lexiconPath)
	}

	if threshold == 0 {
		threshold = 0.5
	}

	return &ToxicLanguage{
		name:      name,
		threshold: threshold,
		terms:     terms,
	}, nil
}

func (v *ToxicLanguage) Name() string { return v.name }

func (v *ToxicLanguage) Mode() models.ExecutionMode { return models.ModeLocal }

func (v *ToxicLanguage) Validate(ctx context.Context, request models.ValidationRequest) (models.ValidationResult, error) {
	now := time.Now()

	result := models.ValidationResult{
		RequestID:    request.RequestID,
		Validator:    v.name,
		Outcome:      models.OutcomePass,
		Mode:         models.ModeLocal,
		ModelVersion: toxicLexiconVersion,
	}

	lowered := strings.ToLower(request.Text)
	severity := 0.0
	var matched []string
	for term, weight := range v.terms {
		if strings.Contains(lowered, term) {
			matched = append(matched, term)
			if weight > severity {
				severity = weight
			}
		}
	}

	if severity >= v.threshold {
		result.Outcome = models.OutcomeFail
		result.Reason = fmt.Sprintf("toxic language detected (severity %.2f, threshold %.2f)", severity, v.threshold)
		result.CorrectedText = maskTerms(request.Text, matched)
	}

	result.Duration = time.Since(now)
	return result, nil
}

// maskTerms replaces each matched term with asterisks, case-insensitively.
func maskTerms(text string, terms []string) string {
	for _, term := range terms {
		mask := strings.Repeat("*", len(term))
		lowered := strings.ToLower(text)
		for {
			idx := strings.Index(lowered, term)
			if idx < 0 {
				break
			}
			text = text[:idx] + mask + text[idx+len(term):]
			lowered = strings.ToLower(text)
		}
	}
	return text
}
