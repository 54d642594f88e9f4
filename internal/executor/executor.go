package executor

import (
	"context"
	"time"

	"github.com/guardkit/guardkit/internal/models"
	"github.com/guardkit/guardkit/internal/validator"
	"github.com/rs/zerolog"
)

// ValidatorFactory looks up built validators by name.
type ValidatorFactory interface {
	Get(name string) (validator.Validator, error)
}

// SingleExecutor runs one named validator against one text. The full chain
// lives in the guard; this is the fast path behind the per-validator API
// route.
type SingleExecutor struct {
	validators ValidatorFactory
	logger     *zerolog.Logger
}

func NewSingleExecutor(validators ValidatorFactory, logger *zerolog.Logger) *SingleExecutor {
	return &SingleExecutor{
		validators: validators,
		logger:     logger,
	}
}

func (e *SingleExecutor) Execute(ctx context.Context, name string, request models.ValidationRequest) (models.ValidationResult, error) {
	e.logger.Info().
		Str("request_id", request.RequestID).
		Str("validator", name).
		Msg("starting validation")

	v, err := e.validators.Get(name)
	if err != nil {
		e.logger.Error().Err(err).Str("validator", name).Msg("validator not found")
		return models.ValidationResult{}, err
	}

	request.Validator = name
	if request.CreatedAt.IsZero() {
		request.CreatedAt = time.Now()
	}

	result, err := v.Validate(ctx, request)
	if err != nil {
		return models.ValidationResult{}, err
	}

	e.logger.Info().
		Str("request_id", request.RequestID).
		Str("validator", name).
		Str("outcome", string(result.Outcome)).
		Msg("validation complete")

	return result, nil
}

// ExecuteStream runs one named validator over a fragment sequence, one
// result per fragment in order. A validator with a native streaming path
// keeps a single connection open; anything else is validated call by call.
func (e *SingleExecutor) ExecuteStream(ctx context.Context, name string, requests <-chan models.ValidationRequest) (<-chan validator.StreamResult, error) {
	v, err := e.validators.Get(name)
	if err != nil {
		e.logger.Error().Err(err).Str("validator", name).Msg("validator not found")
		return nil, err
	}

	if sv, ok := v.(validator.StreamValidator); ok {
		e.logger.Info().Str("validator", name).Msg("starting streamed validation")
		return sv.ValidateStream(ctx, requests), nil
	}

	out := make(chan validator.StreamResult)
	go func() {
		defer close(out)

		for request := range requests {
			request.Validator = name
			if request.CreatedAt.IsZero() {
				request.CreatedAt = time.Now()
			}

			result, err := v.Validate(ctx, request)
			select {
			case out <- validator.StreamResult{Result: result, Err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()

	return out, nil
}
