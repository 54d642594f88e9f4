package config

import (
	"fmt"
	"os"

	"github.com/guardkit/guardkit/internal/models"
	"go.yaml.in/yaml/v3"
)

func LoadValidatorsConfig() (*ValidatorsConfig, error) {

	path := os.Getenv("VALIDATORS_CONFIG_PATH")
	if path == "" {
		path = "configs/validators.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg ValidatorsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyDefaults(cfg *ValidatorsConfig) {
	if cfg.Validators.DefaultModel.MaxTokens == 0 {
		cfg.Validators.DefaultModel.MaxTokens = 256
	}

	for i := range cfg.Validators.Entries {
		entry := &cfg.Validators.Entries[i]

		if entry.OnFail == "" {
			entry.OnFail = models.OnFailException
		}

		if entry.Type != "llm" {
			continue
		}

		// LLM-backed validators inherit missing model params from the default.
		if entry.Model == nil {
			model := cfg.Validators.DefaultModel
			entry.Model = &model
			continue
		}
		if entry.Model.MaxTokens == 0 {
			entry.Model.MaxTokens = cfg.Validators.DefaultModel.MaxTokens
		}
	}
}

func (c *ValidatorsConfig) Validate() error {
	seen := make(map[string]bool)

	for _, entry := range c.Validators.Entries {
		if entry.Name == "" {
			return fmt.Errorf("validator entry with empty name")
		}
		if seen[entry.Name] {
			return fmt.Errorf("duplicate validator name: %s", entry.Name)
		}
		seen[entry.Name] = true

		switch entry.Type {
		case "toxic_language", "detect_pii", "regex_match", "llm":
		default:
			return fmt.Errorf("validator %s has unknown type %q", entry.Name, entry.Type)
		}

		switch entry.OnFail {
		case models.OnFailException, models.OnFailFilter, models.OnFailFix:
		default:
			return fmt.Errorf("validator %s has unknown on_fail action %q", entry.Name, entry.OnFail)
		}

		if entry.Type == "regex_match" && entry.Pattern == "" {
			return fmt.Errorf("validator %s (regex_match) requires a pattern", entry.Name)
		}
		if entry.Type == "llm" && entry.Prompt == "" {
			return fmt.Errorf("validator %s (llm) requires a prompt", entry.Name)
		}
	}

	return nil
}
