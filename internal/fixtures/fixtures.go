// Package fixtures writes interpretation data directories for tests.
package fixtures

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/hexagram-oracle/internal/reference"
)

// Source ids used by Standard.
const (
	Canonical = "canonical"
	Wilhelm   = "wilhelm"
	Legge     = "legge"
)

// #region file-model
// File mirrors the on-disk bundle format.
type File struct {
	Number      int             `yaml:"number,omitempty" json:"number,omitempty"`
	Name        string          `yaml:"name,omitempty" json:"name,omitempty"`
	EnglishName string          `yaml:"english_name,omitempty" json:"english_name,omitempty"`
	Title       string          `yaml:"title,omitempty" json:"title,omitempty"`
	Judgment    string          `yaml:"judgment,omitempty" json:"judgment,omitempty"`
	Image       string          `yaml:"image,omitempty" json:"image,omitempty"`
	Lines       map[string]Line `yaml:"lines,omitempty" json:"lines,omitempty"`
	Metadata    *Meta           `yaml:"metadata,omitempty" json:"metadata,omitempty"`
}

// Line is one line entry in a bundle file.
type Line struct {
	Type    string `yaml:"type,omitempty" json:"type,omitempty"`
	Text    string `yaml:"text,omitempty" json:"text,omitempty"`
	Comment string `yaml:"comment,omitempty" json:"comment,omitempty"`
}

// Meta is the metadata block of a bundle file.
type Meta struct {
	Translator string `yaml:"translator,omitempty" json:"translator,omitempty"`
	Year       int    `yaml:"year,omitempty" json:"year,omitempty"`
	Language   string `yaml:"language,omitempty" json:"language,omitempty"`
	Verified   bool   `yaml:"verified,omitempty" json:"verified,omitempty"`
}

// Text is the deterministic text the generators put in a field.
func Text(source, field string, number int) string {
	return fmt.Sprintf("%s %s %d", source, field, number)
}

// LineText is the deterministic text for line pos (1-based).
func LineText(source string, number, pos int) string {
	return Text(source, fmt.Sprintf("line %d", pos), number)
}

// Full returns a complete bundle file for hex from source.
func Full(source string, hex reference.Hexagram) File {
	f := File{
		Number:      hex.Number,
		Name:        hex.Names.Pinyin,
		EnglishName: hex.Names.English,
		Title:       Text(source, "title", hex.Number),
		Judgment:    Text(source, "judgment", hex.Number),
		Image:       Text(source, "image", hex.Number),
		Lines:       map[string]Line{},
	}
	if source != Canonical {
		f.Name = Text(source, "name", hex.Number)
		f.EnglishName = Text(source, "english_name", hex.Number)
	}
	for i := 1; i <= 6; i++ {
		f.Lines[fmt.Sprint(i)] = Line{Text: LineText(source, hex.Number, i)}
	}
	return f
}

// #endregion file-model

// #region writers
// WriteYAML writes f as <root>/<source>/hexagram_NN.yaml.
func WriteYAML(tb testing.TB, root, source string, number int, f File) string {
	tb.Helper()
	data, err := yaml.Marshal(f)
	if err != nil {
		tb.Fatalf("marshal bundle: %v", err)
	}
	return WriteRaw(tb, root, source, fmt.Sprintf("hexagram_%02d.yaml", number), data)
}

// WriteJSON writes f as <root>/<source>/hexagram_NN.json.
func WriteJSON(tb testing.TB, root, source string, number int, f File) string {
	tb.Helper()
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		tb.Fatalf("marshal bundle: %v", err)
	}
	return WriteRaw(tb, root, source, fmt.Sprintf("hexagram_%02d.json", number), data)
}

// WriteRaw writes data to <root>/<source>/<name>.
func WriteRaw(tb testing.TB, root, source, name string, data []byte) string {
	tb.Helper()
	dir := filepath.Join(root, source)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		tb.Fatalf("mkdir %s: %v", dir, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		tb.Fatalf("write %s: %v", path, err)
	}
	return path
}

// WriteCanonical writes complete canonical bundles for all 64 hexagrams.
func WriteCanonical(tb testing.TB, root string) {
	tb.Helper()
	t, err := reference.Default()
	if err != nil {
		tb.Fatalf("reference table: %v", err)
	}
	for _, hex := range t.Hexagrams() {
		WriteYAML(tb, root, Canonical, hex.Number, Full(Canonical, hex))
	}
}

// #endregion writers

// #region standard
const sourcesYAML = `sources:
  canonical:
    translator: Canonical compilation
    language: en
  wilhelm:
    translator: Richard Wilhelm
    year: 1950
    language: en
    url: https://example.org/wilhelm
    description: Wilhelm/Baynes translation
  legge:
    translator: James Legge
    year: 1882
    language: en
default_priority: [legge, wilhelm]
`

// Standard builds a data root in a temp dir:
//   - canonical: all 64 hexagrams, complete
//   - wilhelm: complete bundles for 1, 2 and 11 (metadata without a year)
//   - legge: a partial JSON bundle for 1 (judgment and third line only) and a
//     malformed bundle for 2
//   - sources.yaml attributing all three, priority legge then wilhelm
func Standard(tb testing.TB) string {
	tb.Helper()
	root := tb.TempDir()
	WriteCanonical(tb, root)

	t, err := reference.Default()
	if err != nil {
		tb.Fatalf("reference table: %v", err)
	}
	for _, n := range []int{1, 2, 11} {
		hex, _ := t.ByNumber(n)
		f := Full(Wilhelm, hex)
		f.Metadata = &Meta{Translator: "Wilhelm/Baynes", Language: "en", Verified: true}
		WriteYAML(tb, root, Wilhelm, n, f)
	}

	WriteJSON(tb, root, Legge, 1, File{
		Judgment: Text(Legge, "judgment", 1),
		Lines:    map[string]Line{"third": {Text: LineText(Legge, 1, 3)}},
	})
	WriteRaw(tb, root, Legge, "hexagram_02.yaml", []byte("judgment: [unclosed\n"))

	if err := os.WriteFile(filepath.Join(root, "sources.yaml"), []byte(sourcesYAML), 0o644); err != nil {
		tb.Fatalf("write sources: %v", err)
	}
	return root
}

// #endregion standard
