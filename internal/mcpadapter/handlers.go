package mcpadapter

import (
	"context"
	"errors"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/guardkit/guardkit/internal/executor"
	"github.com/guardkit/guardkit/internal/guard"
	"github.com/guardkit/guardkit/internal/models"
)

// ValidateTextInput is the MCP tool input schema for a full guard run
// (matches HTTP API field names).
type ValidateTextInput struct {
	RequestID string `json:"request_id,omitempty" jsonschema:"optional request identifier, generated when empty"`
	Text      string `json:"text" jsonschema:"text to validate"`
}

// ValidateSingleInput is the MCP tool input schema for running one named
// validator.
type ValidateSingleInput struct {
	RequestID string `json:"request_id,omitempty" jsonschema:"optional request identifier"`
	Validator string `json:"validator" jsonschema:"validator name, e.g. toxic-language, detect-pii, regex-match"`
	Text      string `json:"text" jsonschema:"text to validate"`
}

// NewValidateTextHandler returns a tool handler that runs the full
// validator chain. Pass the returned function to mcp.AddTool.
func NewValidateTextHandler(g *guard.Guard) func(context.Context, *mcp.CallToolRequest, ValidateTextInput) (*mcp.CallToolResult, models.GuardResult, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ValidateTextInput) (*mcp.CallToolResult, models.GuardResult, error) {
		run, err := g.Validate(ctx, input.RequestID, input.Text)
		if err != nil && !errors.Is(err, guard.ErrValidationFailed) {
			return nil, models.GuardResult{}, err
		}

		// A failing verdict is a normal tool result; the outcome field
		// carries it.
		return nil, run, nil
	}
}

// NewValidateSingleHandler returns a tool handler that runs one named
// validator. Pass the returned function to mcp.AddTool.
func NewValidateSingleHandler(exec *executor.SingleExecutor) func(context.Context, *mcp.CallToolRequest, ValidateSingleInput) (*mcp.CallToolResult, models.ValidationResult, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ValidateSingleInput) (*mcp.CallToolResult, models.ValidationResult, error) {
		request := models.ValidationRequest{
			RequestID: input.RequestID,
			Validator: input.Validator,
			Text:      input.Text,
			CreatedAt: time.Now(),
		}

		result, err := exec.Execute(ctx, input.Validator, request)
		return nil, result, err
	}
}
