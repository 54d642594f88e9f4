package validator

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/guardkit/guardkit/internal/models"
)

func writeLexicon(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "toxic-language.txt")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write lexicon: %v", err)
	}
	return path
}

func TestToxicLanguage_Validate(t *testing.T) {
	lexicon := writeLexicon(t, `# test lexicon
idiot 0.6
moron 0.9
darn 0.2
`)

	tests := []struct {
		name          string
		threshold     float64
		text          string
		expectOutcome models.Outcome
	}{
		{
			name:          "clean text passes",
			threshold:     0.5,
			text:          "The weather is nice today.",
			expectOutcome: models.OutcomePass,
		},
		{
			name:          "severity above threshold fails",
			threshold:     0.5,
			text:          "You are an idiot.",
			expectOutcome: models.OutcomeFail,
		},
		{
			name:          "severity below threshold passes",
			threshold:     0.5,
			text:          "Well darn it.",
			expectOutcome: models.OutcomePass,
		},
		{
			name:          "severity equal to threshold fails",
			threshold:     0.6,
			text:          "You are an idiot.",
			expectOutcome: models.OutcomeFail,
		},
		{
			name:          "case insensitive match",
			threshold:     0.5,
			text:          "You MORON!",
			expectOutcome: models.OutcomeFail,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := NewToxicLanguage("toxic-language", lexicon, tt.threshold)
			if err != nil {
				t.Fatalf("NewToxicLanguage() failed: %v", err)
			}

			result, err := v.Validate(context.Background(), models.ValidationRequest{
				RequestID: "test-001",
				Text:      tt.text,
			})
			if err != nil {
				t.Fatalf("Validate() failed: %v", err)
			}

			if result.Outcome != tt.expectOutcome {
				t.Errorf("expected outcome %s, got %s", tt.expectOutcome, result.Outcome)
			}
			if result.Mode != models.ModeLocal {
				t.Errorf("expected mode local, got %s", result.Mode)
			}
			if result.RequestID != "test-001" {
				t.Errorf("expected request id test-001, got %s", result.RequestID)
			}
		})
	}
}

func TestToxicLanguage_MasksCorrectedText(t *testing.T) {
	lexicon := writeLexicon(t, "idiot 0.8\n")

	v, err := NewToxicLanguage("toxic-language", lexicon, 0.5)
	if err != nil {
		t.Fatalf("NewToxicLanguage() failed: %v", err)
	}

	result, err := v.Validate(context.Background(), models.ValidationRequest{
		RequestID: "test-mask",
		Text:      "You idiot, stop it.",
	})
	if err != nil {
		t.Fatalf("Validate() failed: %v", err)
	}

	if result.Outcome != models.OutcomeFail {
		t.Fatalf("expected fail, got %s", result.Outcome)
	}
	if result.CorrectedText != "You *****, stop it." {
		t.Errorf("expected masked text, got %q", result.CorrectedText)
	}
}

func TestToxicLanguage_EmptyLexicon(t *testing.T) {
	lexicon := writeLexicon(t, "# only comments\n")

	if _, err := NewToxicLanguage("toxic-language", lexicon, 0.5); err == nil {
		t.Error("expected error for empty lexicon, got nil")
	}
}

func TestToxicLanguage_MissingLexicon(t *testing.T) {
	if _, err := NewToxicLanguage("toxic-language", filepath.Join(t.TempDir(), "missing.txt"), 0.5); err == nil {
		t.Error("expected error for missing lexicon, got nil")
	}
}
