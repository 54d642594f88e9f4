package hub

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.yaml.in/yaml/v3"
)

// InstalledValidator is one manifest entry, recorded by Install.
type InstalledValidator struct {
	Name        string    `yaml:"name"`
	URI         string    `yaml:"uri"`
	Version     string    `yaml:"version"`
	LocalModels bool      `yaml:"local_models"`
	InstalledAt time.Time `yaml:"installed_at"`
}

// Manifest tracks which validators (and local model artifacts) are installed
// in the hub directory.
type Manifest struct {
	Validators map[string]InstalledValidator `yaml:"validators"`

	dir string
}

// Dir returns the hub directory. GUARDKIT_HUB_DIR overrides the default of
// $HOME/.guardkit.
func Dir() (string, error) {
	if dir := os.Getenv("GUARDKIT_HUB_DIR"); dir != "" {
		return dir, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("unable to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".guardkit"), nil
}

// LoadManifest reads the install manifest. A missing manifest yields an
// empty one.
func LoadManifest() (*Manifest, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}

	m := &Manifest{
		Validators: make(map[string]InstalledValidator),
		dir:        dir,
	}

	data, err := os.ReadFile(filepath.Join(dir, "manifest.yaml"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return m, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("unable to parse hub manifest: %w", err)
	}
	if m.Validators == nil {
		m.Validators = make(map[string]InstalledValidator)
	}

	return m, nil
}

func (m *Manifest) save() error {
	if err := os.MkdirAll(m.dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(m)
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(m.dir, "manifest.yaml"), data, 0644)
}

// Installed reports whether the named validator has a manifest entry.
func (m *Manifest) Installed(name string) bool {
	_, ok := m.Validators[name]
	return ok
}

// ModelInstalled reports whether the named validator has its local model
// artifact on disk. Remote-only installs return false.
func (m *Manifest) ModelInstalled(name string) bool {
	entry, ok := m.Validators[name]
	if !ok || !entry.LocalModels {
		return false
	}

	_, err := os.Stat(m.ModelPath(name))
	return err == nil
}

// ModelPath returns where the local model artifact for a validator lives.
func (m *Manifest) ModelPath(name string) string {
	return filepath.Join(m.dir, "models", name+".txt")
}
