package router

import (
	"context"
	"errors"
	"fmt"

	"github.com/guardkit/guardkit/internal/inference"
	"github.com/guardkit/guardkit/internal/models"
	"github.com/guardkit/guardkit/internal/validator"
)

// remoteValidator delegates execution to the remote inference client. An
// unreachable endpoint surfaces as ErrConnectivity to the orchestrator.
type remoteValidator struct {
	name   string
	client *inference.Client
}

func (v *remoteValidator) Name() string { return v.name }

func (v *remoteValidator) Mode() models.ExecutionMode { return models.ModeRemote }

func (v *remoteValidator) Validate(ctx context.Context, request models.ValidationRequest) (models.ValidationResult, error) {
	request.Validator = v.name

	result, err := v.client.Validate(ctx, request)
	if err != nil {
		if errors.Is(err, inference.ErrUnreachable) {
			return models.ValidationResult{}, fmt.Errorf("%w: validator %s: %v", ErrConnectivity, v.name, err)
		}
		return models.ValidationResult{}, err
	}

	result.Validator = v.name
	return *result, nil
}

// ValidateStream keeps one connection to the endpoint open for the whole
// fragment sequence, one result per fragment in order.
func (v *remoteValidator) ValidateStream(ctx context.Context, requests <-chan models.ValidationRequest) <-chan validator.StreamResult {
	out := make(chan validator.StreamResult)

	go func() {
		defer close(out)

		for sr := range v.client.ValidateStream(ctx, v.name, requests) {
			mapped := validator.StreamResult{Result: sr.Result, Err: sr.Err}
			if sr.Err != nil && errors.Is(sr.Err, inference.ErrUnreachable) {
				mapped.Err = fmt.Errorf("%w: validator %s: %v", ErrConnectivity, v.name, sr.Err)
			}

			select {
			case out <- mapped:
			case <-ctx.Done():
				return
			}

			if mapped.Err != nil {
				return
			}
		}
	}()

	return out
}
