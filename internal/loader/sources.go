package loader

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// SourcesFileName is the optional metadata file at the data root.
const SourcesFileName = "sources.yaml"

// #region source-info
// SourceInfo is the attribution for one interpretation source.
type SourceInfo struct {
	Translator  string `yaml:"translator" json:"translator,omitempty"`
	Year        int    `yaml:"year" json:"year,omitempty"`
	Language    string `yaml:"language" json:"language,omitempty"`
	URL         string `yaml:"url" json:"url,omitempty"`
	Description string `yaml:"description" json:"description,omitempty"`
}

// Sources describes every known source and the order they are presented in.
type Sources struct {
	Info            map[string]SourceInfo `yaml:"sources" json:"sources"`
	DefaultPriority []string              `yaml:"default_priority" json:"default_priority"`
}

// Meta fills the empty fields of m from the source attribution.
func (i SourceInfo) Meta(m SourceMeta) SourceMeta {
	if m.Translator == "" {
		m.Translator = i.Translator
	}
	if m.Year == 0 {
		m.Year = i.Year
	}
	if m.Language == "" {
		m.Language = i.Language
	}
	if m.URL == "" {
		m.URL = i.URL
	}
	return m
}

// #endregion source-info

// #region read-sources
// readSources parses <root>/sources.yaml. A missing file yields empty metadata.
func readSources(root string) (*Sources, error) {
	data, err := os.ReadFile(filepath.Join(root, SourcesFileName))
	if errors.Is(err, fs.ErrNotExist) {
		return &Sources{Info: map[string]SourceInfo{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read sources: %w", err)
	}
	var s Sources
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse sources: %w", err)
	}
	if s.Info == nil {
		s.Info = map[string]SourceInfo{}
	}
	return &s, nil
}

// listSources returns the sub-directories of root other than canonical, sorted.
func listSources(root, canonical string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() || e.Name() == canonical || e.Name()[0] == '.' {
			continue
		}
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out, nil
}

// #endregion read-sources
