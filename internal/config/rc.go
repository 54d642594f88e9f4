package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/guardkit/guardkit/internal/models"
	"go.yaml.in/yaml/v3"
)

// RC is the user-level configuration file (~/.guardkitrc). It holds the
// global remote-inferencing default that validators fall back to when their
// constructor flags leave the execution mode unset.
type RC struct {
	UseRemoteInferencing bool   `yaml:"use_remote_inferencing"`
	ValidationEndpoint   string `yaml:"validation_endpoint,omitempty"`
	APIKey               string `yaml:"api_key,omitempty"`
}

// RCPath returns the rc file location. GUARDKIT_RC overrides the default
// of $HOME/.guardkitrc.
func RCPath() (string, error) {
	if path := os.Getenv("GUARDKIT_RC"); path != "" {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("unable to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".guardkitrc"), nil
}

// LoadRC reads the user rc file. A missing file is not an error: it yields
// the zero value, i.e. remote inferencing disabled.
func LoadRC() (*RC, error) {
	path, err := RCPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &RC{}, nil
		}
		return nil, err
	}

	var rc RC
	if err := yaml.Unmarshal(data, &rc); err != nil {
		return nil, fmt.Errorf("unable to parse rc file %s: %w", path, err)
	}

	return &rc, nil
}

func (rc *RC) Save() error {
	path, err := RCPath()
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(rc)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// DefaultMode resolves the global execution mode implied by the rc file.
func (rc *RC) DefaultMode() models.ExecutionMode {
	if rc.UseRemoteInferencing {
		return models.ModeRemote
	}
	return models.ModeLocal
}

// EnableRemoteInferencing turns the global remote default on. Running it
// twice leaves the same state.
func EnableRemoteInferencing() error {
	return setRemoteInferencing(true)
}

// DisableRemoteInferencing turns the global remote default off. Running it
// twice leaves the same state.
func DisableRemoteInferencing() error {
	return setRemoteInferencing(false)
}

func setRemoteInferencing(enabled bool) error {
	rc, err := LoadRC()
	if err != nil {
		return err
	}

	rc.UseRemoteInferencing = enabled
	return rc.Save()
}
