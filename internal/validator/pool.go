package validator

import (
	"fmt"

	"github.com/guardkit/guardkit/internal/config"
	"github.com/rs/zerolog"
)

// Builder routes one config entry to a constructed validator. The execution
// router implements it.
type Builder interface {
	Build(spec config.ValidatorSpec) (Validator, error)
}

// Pool builds and manages a collection of validators from configuration
type Pool struct {
	builder Builder
	logger  *zerolog.Logger
}

// NewPool creates a new validator pool builder
func NewPool(builder Builder, logger *zerolog.Logger) *Pool {
	return &Pool{
		builder: builder,
		logger:  logger,
	}
}

func (p *Pool) BuildFromConfig(cfg *config.ValidatorsConfig) ([]Validator, error) {
	if cfg == nil {
		return nil, fmt.Errorf("validators config is nil")
	}

	var validators []Validator

	for _, spec := range cfg.Validators.Entries {
		// Skip disabled validators
		if !spec.Enabled {
			p.logger.Info().
				Str("validator", spec.Name).
				Msg("validator disabled in config, skipping")
			continue
		}

		v, err := p.builder.Build(spec)
		if err != nil {
			return nil, fmt.Errorf("failed to create validator %s: %w", spec.Name, err)
		}

		validators = append(validators, v)

		p.logger.Info().
			Str("validator", spec.Name).
			Str("type", spec.Type).
			Str("mode", string(v.Mode())).
			Str("on_fail", string(spec.OnFail)).
			Msg("validator created successfully")
	}

	if len(validators) == 0 {
		return nil, fmt.Errorf("no enabled validators found in config")
	}

	p.logger.Info().
		Int("total_validators", len(validators)).
		Msg("validator pool built successfully")

	return validators, nil
}
