package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"docsync-ai/internal/apperr"
	"docsync-ai/internal/embedding"
)

// FolderEntry declares a watched folder in the folders file.
type FolderEntry struct {
	Name     string `yaml:"name"`
	Path     string `yaml:"path"`
	Provider string `yaml:"provider"`
}

// FoldersFile is the declarative set of embedding providers and watched
// folders.
//
//	providers:
//	  - id: local
//	    kind: local-model
//	    endpoint: http://localhost:11434
//	    model: nomic-embed-text
//	    dimensions: 768
//	folders:
//	  - name: notes
//	    path: ~/notes
//	    provider: local
type FoldersFile struct {
	Providers []embedding.Config `yaml:"providers"`
	Folders   []FolderEntry      `yaml:"folders"`
}

// LoadFolders reads and validates a folders file. Credentials may
// reference environment variables ($VAR or ${VAR}). Relative folder paths
// are resolved against the file's directory and ~ against the home
// directory.
func LoadFolders(path string) (*FoldersFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read folders file: %v", apperr.ErrConfig, err)
	}

	var ff FoldersFile
	if err := yaml.Unmarshal(data, &ff); err != nil {
		return nil, fmt.Errorf("%w: failed to parse folders file %s: %v", apperr.ErrConfig, path, err)
	}

	base := filepath.Dir(path)
	for i := range ff.Providers {
		ff.Providers[i].Credential = os.ExpandEnv(ff.Providers[i].Credential)
	}
	for i := range ff.Folders {
		ff.Folders[i].Path, err = resolvePath(base, ff.Folders[i].Path)
		if err != nil {
			return nil, err
		}
	}

	if err := ff.Validate(); err != nil {
		return nil, err
	}
	return &ff, nil
}

// Validate checks providers and folders for consistency.
func (ff *FoldersFile) Validate() error {
	var errs []error

	providers := make(map[string]bool, len(ff.Providers))
	for i, p := range ff.Providers {
		if p.ID == "" {
			errs = append(errs, fmt.Errorf("providers[%d]: id is required", i))
			continue
		}
		if providers[p.ID] {
			errs = append(errs, fmt.Errorf("providers[%d]: duplicate id %q", i, p.ID))
		}
		providers[p.ID] = true
		if err := p.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("provider %q: %w", p.ID, err))
		}
	}

	names := make(map[string]bool, len(ff.Folders))
	for i, f := range ff.Folders {
		switch {
		case f.Name == "":
			errs = append(errs, fmt.Errorf("folders[%d]: name is required", i))
		case names[f.Name]:
			errs = append(errs, fmt.Errorf("folders[%d]: duplicate name %q", i, f.Name))
		}
		names[f.Name] = true
		if f.Path == "" {
			errs = append(errs, fmt.Errorf("folder %q: path is required", f.Name))
		}
		if !providers[f.Provider] {
			errs = append(errs, fmt.Errorf("folder %q: unknown provider %q", f.Name, f.Provider))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", apperr.ErrConfig, errors.Join(errs...))
	}
	return nil
}

// ProviderMap indexes the providers by ID.
func (ff *FoldersFile) ProviderMap() map[string]embedding.Config {
	m := make(map[string]embedding.Config, len(ff.Providers))
	for _, p := range ff.Providers {
		m[p.ID] = p
	}
	return m
}

func resolvePath(base, p string) (string, error) {
	if p == "" {
		return "", nil
	}
	if p == "~" || len(p) > 1 && p[:2] == "~/" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("%w: failed to resolve %s: %v", apperr.ErrConfig, p, err)
		}
		p = filepath.Join(home, p[1:])
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(base, p)
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("%w: failed to resolve %s: %v", apperr.ErrConfig, p, err)
	}
	return abs, nil
}
