package loader

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/hexagram-oracle/internal/reference"
)

// #region types
// LineText is the interpretation of one line. Type is "six" for a yin
// line and "nine" for a yang line.
type LineText struct {
	Position string `yaml:"position" json:"position"`
	Type     string `yaml:"type" json:"type"`
	Text     string `yaml:"text" json:"text"`
	Comment  string `yaml:"comment,omitempty" json:"comment,omitempty"`
}

// Empty reports whether the line carries no text.
func (l LineText) Empty() bool {
	return strings.TrimSpace(l.Text) == ""
}

// SourceMeta attributes a bundle to a translation.
type SourceMeta struct {
	Translator string `yaml:"translator,omitempty" json:"translator,omitempty"`
	Year       int    `yaml:"year,omitempty" json:"year,omitempty"`
	Language   string `yaml:"language,omitempty" json:"language,omitempty"`
	URL        string `yaml:"url,omitempty" json:"url,omitempty"`
	Verified   bool   `yaml:"verified,omitempty" json:"verified,omitempty"`
}

// Bundle is the interpretation of one hexagram from one source. Lines are
// ordered bottom to top.
type Bundle struct {
	Number      int         `json:"number"`
	Source      string      `json:"source"`
	Name        string      `json:"name"`
	EnglishName string      `json:"english_name"`
	Title       string      `json:"title"`
	Judgment    string      `json:"judgment"`
	Image       string      `json:"image"`
	Lines       [6]LineText `json:"lines"`
	Meta        SourceMeta  `json:"metadata"`
}

// Missing lists the required fields that have no content.
func (b Bundle) Missing() []string {
	var out []string
	for _, f := range []struct {
		name  string
		value string
	}{
		{"name", b.Name},
		{"english_name", b.EnglishName},
		{"title", b.Title},
		{"judgment", b.Judgment},
		{"image", b.Image},
	} {
		if strings.TrimSpace(f.value) == "" {
			out = append(out, f.name)
		}
	}
	for i, l := range b.Lines {
		if l.Empty() {
			out = append(out, fmt.Sprintf("line_%d", i+1))
		}
	}
	return out
}

// Complete reports whether every required field has content.
func (b Bundle) Complete() bool {
	return len(b.Missing()) == 0
}

// BundleSet holds the canonical bundle and every alternate that parsed for
// one hexagram. Sets are shared from the cache and must not be modified.
type BundleSet struct {
	Number     int               `json:"number"`
	Canonical  Bundle            `json:"canonical"`
	Alternates map[string]Bundle `json:"alternates,omitempty"`
}

// Alternate returns the bundle for source, if one was loaded.
func (s *BundleSet) Alternate(source string) (Bundle, bool) {
	b, ok := s.Alternates[source]
	return b, ok
}

// #endregion types

// #region file-format
type bundleFile struct {
	Number      int                 `yaml:"number"`
	Name        string              `yaml:"name"`
	EnglishName string              `yaml:"english_name"`
	Title       string              `yaml:"title"`
	Judgment    string              `yaml:"judgment"`
	Image       string              `yaml:"image"`
	Lines       map[string]lineFile `yaml:"lines"`
	Metadata    SourceMeta          `yaml:"metadata"`
}

type lineFile struct {
	Type    string `yaml:"type"`
	Text    string `yaml:"text"`
	Comment string `yaml:"comment"`
}

// parseBundle decodes one bundle file for hex. Line keys may be 1..6 or
// position names; a missing line type is taken from the hexagram's pattern.
func parseBundle(data []byte, source string, hex reference.Hexagram) (Bundle, error) {
	var f bundleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Bundle{}, fmt.Errorf("decode bundle: %w", err)
	}
	if f.Number != 0 && f.Number != hex.Number {
		return Bundle{}, fmt.Errorf("bundle number %d does not match hexagram %d", f.Number, hex.Number)
	}

	b := Bundle{
		Number:      hex.Number,
		Source:      source,
		Name:        strings.TrimSpace(f.Name),
		EnglishName: strings.TrimSpace(f.EnglishName),
		Title:       strings.TrimSpace(f.Title),
		Judgment:    strings.TrimSpace(f.Judgment),
		Image:       strings.TrimSpace(f.Image),
		Meta:        f.Metadata,
	}
	for i := range b.Lines {
		b.Lines[i].Position = reference.Positions[i]
	}

	stable := hex.Lines()
	seen := make(map[int]string, len(f.Lines))
	for key, lf := range f.Lines {
		idx, ok := reference.PositionIndex(key)
		if !ok {
			return Bundle{}, fmt.Errorf("unknown line key %q", key)
		}
		if prev, dup := seen[idx]; dup {
			return Bundle{}, fmt.Errorf("line %d given twice (%q and %q)", idx+1, prev, key)
		}
		seen[idx] = key

		want := lineType(stable[idx])
		typ := strings.ToLower(strings.TrimSpace(lf.Type))
		if typ == "" {
			typ = want
		}
		if typ != want {
			return Bundle{}, fmt.Errorf("line %d type %q, hexagram %d needs %q", idx+1, lf.Type, hex.Number, want)
		}
		b.Lines[idx].Type = typ
		b.Lines[idx].Text = strings.TrimSpace(lf.Text)
		b.Lines[idx].Comment = strings.TrimSpace(lf.Comment)
	}
	return b, nil
}

func lineType(v reference.LineValue) string {
	if v.IsYang() {
		return "nine"
	}
	return "six"
}

// #endregion file-format
