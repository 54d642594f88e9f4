package validator

import (
	"context"

	"github.com/guardkit/guardkit/internal/models"
)

// Validator is one unit of guardrail logic. A validator executes in exactly
// one mode for its whole lifetime: local (in-process model) or remote
// (delegated to a validation endpoint).
type Validator interface {
	Name() string
	Mode() models.ExecutionMode
	Validate(ctx context.Context, request models.ValidationRequest) (models.ValidationResult, error)
}

// StreamResult carries one fragment's result, or the error that ended a
// streamed run.
type StreamResult struct {
	Result models.ValidationResult
	Err    error
}

// StreamValidator is implemented by validators that can hold one connection
// open across a fragment sequence instead of validating fragment by
// fragment. Remote validators implement it; local validators are cheap
// enough per call not to bother.
type StreamValidator interface {
	Validator
	ValidateStream(ctx context.Context, requests <-chan models.ValidationRequest) <-chan StreamResult
}
