package validator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/guardkit/guardkit/internal/config"
	"github.com/guardkit/guardkit/internal/models"
	"github.com/guardkit/guardkit/internal/provider"
	"github.com/rs/zerolog"
)

// llmResponse is the JSON document the model is prompted to return.
type llmResponse struct {
	Outcome       string `json:"outcome"`
	Reason        string `json:"reason"`
	CorrectedText string `json:"corrected_text,omitempty"`
}

// LLMValidator is a generic validator that runs a configurable prompt
// against a hosted model provider. It backs the model-based validators on
// the validation endpoint's serving side.
type LLMValidator struct {
	name           string
	promptTemplate *template.Template
	modelConfig    config.ModelConfig
	client         provider.Client
	logger         *zerolog.Logger
}

func NewLLMValidator(
	spec config.ValidatorSpec,
	client provider.Client,
	logger *zerolog.Logger,
) (*LLMValidator, error) {
	tmpl, err := template.New(spec.Name).Parse(spec.Prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse prompt template for validator %s: %w", spec.Name, err)
	}

	if spec.Model == nil {
		return nil, fmt.Errorf("validator %s has nil model config (should be populated by config loader)", spec.Name)
	}

	return &LLMValidator{
		name:           spec.Name,
		promptTemplate: tmpl,
		modelConfig:    *spec.Model,
		client:         client,
		logger:         logger,
	}, nil
}

func (v *LLMValidator) Name() string { return v.name }

func (v *LLMValidator) Mode() models.ExecutionMode { return models.ModeLocal }

// Validate executes the prompt against the provider and maps the model's
// JSON reply onto a ValidationResult. Provider failures surface as results
// with the error outcome rather than terminating the guard.
func (v *LLMValidator) Validate(ctx context.Context, request models.ValidationRequest) (models.ValidationResult, error) {
	now := time.Now()

	result := models.ValidationResult{
		RequestID: request.RequestID,
		Validator: v.name,
		Outcome:   models.OutcomeError,
		Mode:      models.ModeLocal,
	}

	prompt, err := v.buildPrompt(request)
	if err != nil {
		v.logger.Error().
			Err(err).
			Str("validator", v.name).
			Msg("failed to build prompt from template")
		result.Reason = fmt.Sprintf("Failed to build prompt: %v", err)
		result.Duration = time.Since(now)
		return result, nil
	}

	resp, err := v.client.Invoke(ctx, provider.Request{
		Prompt:      prompt,
		MaxTokens:   v.modelConfig.MaxTokens,
		Temperature: v.modelConfig.Temperature,
	})
	if err != nil {
		v.logger.Error().
			Err(err).
			Str("validator", v.name).
			Msg("provider call failed")
		result.Reason = "Failed to call model provider"
		result.Duration = time.Since(now)
		return result, nil
	}

	// Parse provider response (strip markdown code blocks if present)
	content := stripMarkdownCodeBlock(resp.Content)
	var reply llmResponse
	if err := json.Unmarshal([]byte(content), &reply); err != nil {
		v.logger.Error().
			Err(err).
			Str("validator", v.name).
			Str("content", resp.Content).
			Msg("failed to deserialize provider response")
		result.Reason = "Failed to deserialize provider response"
		result.Duration = time.Since(now)
		return result, nil
	}

	switch models.Outcome(reply.Outcome) {
	case models.OutcomePass, models.OutcomeFail:
		result.Outcome = models.Outcome(reply.Outcome)
	default:
		v.logger.Error().
			Str("validator", v.name).
			Str("outcome", reply.Outcome).
			Msg("provider returned invalid outcome")
		result.Reason = fmt.Sprintf("Invalid provider response: outcome %q", reply.Outcome)
		result.Duration = time.Since(now)
		return result, nil
	}

	result.Reason = reply.Reason
	result.CorrectedText = reply.CorrectedText
	result.ModelVersion = resp.ModelVersion
	result.Duration = time.Since(now)

	v.logger.Info().
		Str("validator", v.name).
		Str("outcome", string(result.Outcome)).
		Dur("duration", result.Duration).
		Msg("validator completed")

	return result, nil
}

// buildPrompt executes the template with the validation request.
func (v *LLMValidator) buildPrompt(request models.ValidationRequest) (string, error) {
	var buf bytes.Buffer
	if err := v.promptTemplate.Execute(&buf, request); err != nil {
		return "", fmt.Errorf("template execution failed: %w", err)
	}
	return buf.String(), nil
}

// stripMarkdownCodeBlock removes markdown code block formatting if present
func stripMarkdownCodeBlock(content string) string {
	content = strings.TrimSpace(content)

	// Check for markdown code blocks (```json ... ``` or ``` ... ```)
	if strings.HasPrefix(content, "```") {
		// Find the first newline (after the opening ```)
		firstNewline := strings.Index(content, "\n")
		if firstNewline == -1 {
			return content
		}

		// Find the closing ```
		closingBackticks := strings.LastIndex(content, "```")
		if closingBackticks == -1 || closingBackticks <= firstNewline {
			return content
		}

		// Extract the content between the code blocks
		content = content[firstNewline+1 : closingBackticks]
		content = strings.TrimSpace(content)
	}

	return content
}
