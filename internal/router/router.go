package router

import (
	"errors"
	"fmt"

	"github.com/guardkit/guardkit/internal/config"
	"github.com/guardkit/guardkit/internal/inference"
	"github.com/guardkit/guardkit/internal/models"
	"github.com/guardkit/guardkit/internal/provider"
	"github.com/guardkit/guardkit/internal/validator"
	"github.com/rs/zerolog"
)

var (
	// ErrConnectivity is returned when remote execution is selected but the
	// validation endpoint is missing or unreachable. There is no automatic
	// fallback to local execution: that would silently change semantics.
	ErrConnectivity = errors.New("validation endpoint unavailable")

	// ErrMissingModel is returned when local execution is selected but the
	// validator's model artifact is not installed.
	ErrMissingModel = errors.New("local model not installed")
)

// ModelStore answers which local model artifacts are installed. The hub
// manifest satisfies it.
type ModelStore interface {
	ModelInstalled(name string) bool
	ModelPath(name string) string
}

// Router selects, per validator, the local or remote code path. The global
// default comes from the user rc file; a validator's constructor flags
// (use_local, validation_endpoint) win over the default.
type Router struct {
	defaultMode models.ExecutionMode
	endpoint    inference.EndpointConfig
	store       ModelStore
	providers   provider.Client
	logger      *zerolog.Logger
}

func New(rc *config.RC, store ModelStore, providers provider.Client, logger *zerolog.Logger) *Router {
	return &Router{
		defaultMode: rc.DefaultMode(),
		endpoint: inference.EndpointConfig{
			URL:    rc.ValidationEndpoint,
			APIKey: rc.APIKey,
		},
		store:     store,
		providers: providers,
		logger:    logger,
	}
}

// Build constructs the validator for a config entry, routed to its execution
// mode. The mode is fixed here for the validator's lifetime.
func (r *Router) Build(spec config.ValidatorSpec) (validator.Validator, error) {
	mode := r.resolveMode(spec)

	r.logger.Debug().
		Str("validator", spec.Name).
		Str("mode", string(mode)).
		Msg("routing validator")

	switch mode {
	case models.ModeRemote:
		return r.buildRemote(spec)
	default:
		return r.buildLocal(spec)
	}
}

func (r *Router) resolveMode(spec config.ValidatorSpec) models.ExecutionMode {
	if spec.UseLocal != nil {
		if *spec.UseLocal {
			return models.ModeLocal
		}
		return models.ModeRemote
	}

	// An explicit endpoint override implies remote execution.
	if spec.Endpoint != "" {
		return models.ModeRemote
	}

	return r.defaultMode
}

func (r *Router) buildRemote(spec config.ValidatorSpec) (validator.Validator, error) {
	endpoint := r.endpoint
	if spec.Endpoint != "" {
		endpoint.URL = spec.Endpoint
	}

	if endpoint.URL == "" {
		return nil, fmt.Errorf("%w: validator %s selected remote execution but no validation endpoint is configured", ErrConnectivity, spec.Name)
	}

	return &remoteValidator{
		name:   spec.Name,
		client: inference.NewClient(endpoint, r.logger),
	}, nil
}

func (r *Router) buildLocal(spec config.ValidatorSpec) (validator.Validator, error) {
	switch spec.Type {
	case "toxic_language":
		if !r.store.ModelInstalled(spec.Name) {
			return nil, fmt.Errorf("%w: validator %s; install it with hub install hub://guardkit/%s --install-local-models",
				ErrMissingModel, spec.Name, spec.Name)
		}
		v, err := validator.NewToxicLanguage(spec.Name, r.store.ModelPath(spec.Name), spec.Threshold)
		if err != nil {
			return nil, err
		}
		return v, nil

	case "detect_pii":
		return validator.NewDetectPII(spec.Name), nil

	case "regex_match":
		v, err := validator.NewRegexMatch(spec.Name, spec.Pattern)
		if err != nil {
			return nil, err
		}
		return v, nil

	case "llm":
		if r.providers == nil {
			return nil, fmt.Errorf("%w: validator %s requires a model provider for local execution", ErrMissingModel, spec.Name)
		}
		v, err := validator.NewLLMValidator(spec, r.providers, r.logger)
		if err != nil {
			return nil, err
		}
		return v, nil

	default:
		return nil, fmt.Errorf("unknown validator type %q", spec.Type)
	}
}
