package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// InstallOptions mirror the documented hub install flags.
type InstallOptions struct {
	// Quiet suppresses per-step progress logging.
	Quiet bool
	// InstallLocalModels downloads the validator's model artifact so the
	// validator can run in local mode. When false, the validator is
	// installed remote-only.
	InstallLocalModels bool
}

// validatorPackage is the metadata document served by the registry for a
// validator URI.
type validatorPackage struct {
	Name     string `json:"name"`
	Version  string `json:"version"`
	ModelURL string `json:"model_url,omitempty"`
}

// Installer resolves validator packages from a registry and records them in
// the local manifest.
type Installer struct {
	registryURL string
	client      *http.Client
	logger      *zerolog.Logger
}

func NewInstaller(registryURL string, logger *zerolog.Logger) *Installer {
	return &Installer{
		registryURL: strings.TrimRight(registryURL, "/"),
		client:      &http.Client{Timeout: 30 * time.Second},
		logger:      logger,
	}
}

// Install fetches the validator package named by uri (e.g. "hub://guardkit/toxic-language")
// and records it in the manifest. Re-installing updates the entry in place.
func (i *Installer) Install(ctx context.Context, uri string, opts InstallOptions) (*InstalledValidator, error) {
	name, err := validatorNameFromURI(uri)
	if err != nil {
		return nil, err
	}

	if !opts.Quiet {
		i.logger.Info().Str("uri", uri).Str("validator", name).Msg("installing validator")
	}

	pkg, err := i.fetchPackage(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("unable to resolve validator %s: %w", name, err)
	}

	manifest, err := LoadManifest()
	if err != nil {
		return nil, err
	}

	entry := InstalledValidator{
		Name:        pkg.Name,
		URI:         uri,
		Version:     pkg.Version,
		LocalModels: opts.InstallLocalModels,
		InstalledAt: time.Now().UTC(),
	}

	if opts.InstallLocalModels {
		if pkg.ModelURL == "" {
			return nil, fmt.Errorf("validator %s has no local model artifact", name)
		}
		if err := i.downloadModel(ctx, manifest, pkg); err != nil {
			return nil, fmt.Errorf("unable to download model for %s: %w", name, err)
		}
		if !opts.Quiet {
			i.logger.Info().Str("validator", name).Str("path", manifest.ModelPath(pkg.Name)).Msg("local model installed")
		}
	}

	manifest.Validators[pkg.Name] = entry
	if err := manifest.save(); err != nil {
		return nil, fmt.Errorf("unable to save hub manifest: %w", err)
	}

	if !opts.Quiet {
		i.logger.Info().
			Str("validator", pkg.Name).
			Str("version", pkg.Version).
			Bool("local_models", opts.InstallLocalModels).
			Msg("validator installed")
	}

	return &entry, nil
}

func (i *Installer) fetchPackage(ctx context.Context, name string) (*validatorPackage, error) {
	endpoint := fmt.Sprintf("%s/api/validators/%s", i.registryURL, url.PathEscape(name))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := i.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("validator %s not found in registry", name)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("registry returned status %d", resp.StatusCode)
	}

	var pkg validatorPackage
	if err := json.NewDecoder(resp.Body).Decode(&pkg); err != nil {
		return nil, fmt.Errorf("unable to decode registry response: %w", err)
	}
	if pkg.Name == "" {
		pkg.Name = name
	}

	return &pkg, nil
}

func (i *Installer) downloadModel(ctx context.Context, manifest *Manifest, pkg *validatorPackage) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pkg.ModelURL, nil)
	if err != nil {
		return err
	}

	resp, err := i.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("model download returned status %d", resp.StatusCode)
	}

	path := manifest.ModelPath(pkg.Name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return err
	}

	return nil
}

// validatorNameFromURI extracts the validator name from a hub URI of the
// form hub://<namespace>/<name>. A bare name is accepted too.
func validatorNameFromURI(uri string) (string, error) {
	trimmed := strings.TrimPrefix(uri, "hub://")
	if trimmed == "" {
		return "", fmt.Errorf("empty validator uri")
	}

	parts := strings.Split(trimmed, "/")
	name := parts[len(parts)-1]
	if name == "" {
		return "", fmt.Errorf("invalid validator uri: %s", uri)
	}

	return name, nil
}
