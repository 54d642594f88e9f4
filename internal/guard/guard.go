package guard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/guardkit/guardkit/internal/config"
	"github.com/guardkit/guardkit/internal/models"
	"github.com/guardkit/guardkit/internal/validator"
	"github.com/rs/zerolog"
)

// ErrValidationFailed marks a run stopped by a validator whose failure
// policy is exception. The partial GuardResult is still returned.
var ErrValidationFailed = errors.New("validation failed")

type entry struct {
	validator validator.Validator
	onFail    models.OnFailAction
}

// Guard sequences validators, in order, against a text or a fragment
// stream.
type Guard struct {
	entries []entry
	logger  *zerolog.Logger
}

func New(logger *zerolog.Logger) *Guard {
	return &Guard{logger: logger}
}

// Use appends a validator with its failure policy. Order is execution
// order.
func (g *Guard) Use(v validator.Validator, onFail models.OnFailAction) *Guard {
	g.entries = append(g.entries, entry{validator: v, onFail: onFail})
	return g
}

// FromConfig builds a guard with every enabled validator from the config,
// in file order.
func FromConfig(cfg *config.ValidatorsConfig, builder validator.Builder, logger *zerolog.Logger) (*Guard, error) {
	pool := validator.NewPool(builder, logger)
	validators, err := pool.BuildFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	return FromValidators(cfg, validators, logger), nil
}

// FromValidators builds a guard over already-built validators, applying the
// per-validator failure policies from the config. Callers that also need a
// Factory can build the set once and feed both.
func FromValidators(cfg *config.ValidatorsConfig, validators []validator.Validator, logger *zerolog.Logger) *Guard {
	policies := make(map[string]models.OnFailAction)
	for _, spec := range cfg.Validators.Entries {
		policies[spec.Name] = spec.OnFail
	}

	g := New(logger)
	for _, v := range validators {
		g.Use(v, policies[v.Name()])
	}
	return g
}

// Validate runs every validator against one text. Each validator sees the
// output of the previous step, so a fix policy rewrites the text for the
// rest of the chain. Exactly one result is recorded per validator
// invocation.
func (g *Guard) Validate(ctx context.Context, requestID string, text string) (models.GuardResult, error) {
	if requestID == "" {
		requestID = uuid.NewString()
	}

	g.logger.Info().Str("request_id", requestID).Msg("starting validation")

	run := models.GuardResult{
		RequestID:  requestID,
		Text:       text,
		OutputText: text,
		Outcome:    models.OutcomePass,
		Results:    []models.ValidationResult{},
	}

	for _, e := range g.entries {
		request := models.ValidationRequest{
			RequestID: requestID,
			Validator: e.validator.Name(),
			Text:      run.OutputText,
			CreatedAt: time.Now(),
		}

		result, err := e.validator.Validate(ctx, request)
		if err != nil {
			// Routing and transport errors surface to the caller; they are
			// not validation verdicts.
			return run, fmt.Errorf("validator %s: %w", e.validator.Name(), err)
		}

		run.Results = append(run.Results, result)

		if result.Passed() {
			continue
		}

		switch e.onFail {
		case models.OnFailFix:
			if result.CorrectedText != "" {
				run.OutputText = result.CorrectedText
				g.logger.Info().
					Str("request_id", requestID).
					Str("validator", e.validator.Name()).
					Msg("failure fixed, continuing with corrected text")
				continue
			}
			// No correction available, treat as filter.
			run.Outcome = models.OutcomeFail

		case models.OnFailFilter:
			run.Outcome = models.OutcomeFail

		default: // exception
			run.Outcome = models.OutcomeFail
			run.ShortCircuit = true
			g.logger.Info().
				Str("request_id", requestID).
				Str("validator", e.validator.Name()).
				Str("reason", result.Reason).
				Msg("validation short-circuited")
			return run, fmt.Errorf("%w: %s: %s", ErrValidationFailed, e.validator.Name(), result.Reason)
		}
	}

	g.logger.Info().
		Str("request_id", requestID).
		Str("outcome", string(run.Outcome)).
		Int("results", len(run.Results)).
		Msg("validation complete")

	return run, nil
}

// StreamResult carries one fragment's guard run, or the error that ended
// the stream.
type StreamResult struct {
	Fragment string
	Result   models.GuardResult
	Err      error
}

// ValidateStream applies the guard to each fragment as the caller produces
// it and yields results lazily. The returned channel is finite, closed when
// the input is drained, an exception-policy failure stops the run, or the
// context is cancelled. It is not restartable.
func (g *Guard) ValidateStream(ctx context.Context, fragments <-chan string) <-chan StreamResult {
	out := make(chan StreamResult)

	go func() {
		defer close(out)

		for {
			select {
			case <-ctx.Done():
				return
			case fragment, ok := <-fragments:
				if !ok {
					return
				}

				result, err := g.Validate(ctx, uuid.NewString(), fragment)
				sr := StreamResult{Fragment: fragment, Result: result, Err: err}

				select {
				case out <- sr:
				case <-ctx.Done():
					return
				}

				if err != nil {
					// Both exception short-circuits and transport errors end
					// the sequence; the caller decides what to do next.
					return
				}
			}
		}
	}()

	return out
}
