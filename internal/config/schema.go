package config

import "github.com/guardkit/guardkit/internal/models"

// ValidatorsConfig is the root of configs/validators.yaml.
type ValidatorsConfig struct {
	Validators ValidatorsSection `yaml:"validators"`
}

type ValidatorsSection struct {
	DefaultModel ModelConfig     `yaml:"default_model"`
	Entries      []ValidatorSpec `yaml:"entries"`
}

// ValidatorSpec is one configured validator. Mode and endpoint mirror the
// constructor flags: UseLocal pins local execution, Endpoint overrides the
// global validation endpoint for this validator only.
type ValidatorSpec struct {
	Name      string              `yaml:"name"`
	Type      string              `yaml:"type"`
	Enabled   bool                `yaml:"enabled"`
	UseLocal  *bool               `yaml:"use_local,omitempty"`
	Endpoint  string              `yaml:"validation_endpoint,omitempty"`
	OnFail    models.OnFailAction `yaml:"on_fail,omitempty"`
	Threshold float64             `yaml:"threshold,omitempty"`
	Pattern   string              `yaml:"pattern,omitempty"`
	Prompt    string              `yaml:"prompt,omitempty"`
	Model     *ModelConfig        `yaml:"model,omitempty"`
}

// ModelConfig holds per-validator model parameters for LLM-backed validators.
type ModelConfig struct {
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
	Retry       bool    `yaml:"retry"`
}
