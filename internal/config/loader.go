package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadCatalog loads every *.yaml and *.yml file in dir as a media category.
// A category without a name takes the file's base name.
func LoadCatalog(dir string) (*Catalog, error) {
	files, err := catalogFiles(dir)
	if err != nil {
		return nil, err
	}

	cat := &Catalog{Dir: dir}
	for _, path := range files {
		m, err := LoadMedia(path)
		if err != nil {
			return nil, err
		}
		if cat.Media.Has(m.Name) {
			return nil, fmt.Errorf("media %q is defined more than once (%s)", m.Name, path)
		}
		cat.Media.Set(m.Name, m)
	}
	return cat, nil
}

// LoadMedia loads and validates a single media category file.
func LoadMedia(path string) (*Media, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read media file: %w", err)
	}
	m, err := ParseMedia(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if m.Name == "" {
		base := filepath.Base(path)
		m.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// ParseMedia decodes a media category document and applies defaults.
func ParseMedia(data []byte) (*Media, error) {
	var m Media
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	ApplyDefaults(&m)
	return &m, nil
}

func catalogFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read media directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch filepath.Ext(e.Name()) {
		case ".yaml", ".yml":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}
