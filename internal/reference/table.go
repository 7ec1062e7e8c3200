package reference

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/hexagram-oracle/internal/faults"
)

//go:embed mapping.yaml
var defaultMapping []byte

// #region errors

var (
	ErrNumberOutOfRange = fmt.Errorf("%w: hexagram number must be 1-64", faults.ErrInvalidArgument)
	ErrBadBinary        = fmt.Errorf("%w: binary pattern must be six 0/1 digits", faults.ErrInvalidArgument)
	ErrUnknownTrigram   = fmt.Errorf("%w: unknown trigram", faults.ErrInvalidArgument)
	ErrUnknownName      = fmt.Errorf("%w: no hexagram with that name", faults.ErrNotFound)
	ErrAmbiguousName    = fmt.Errorf("%w: name matches several hexagrams", faults.ErrInvalidArgument)
)

// #endregion errors

// #region table-struct

// Table is the immutable catalogue of trigrams and hexagrams with its
// number, binary, trigram-pair and name indices.
type Table struct {
	trigrams   map[TrigramID]Trigram
	order      []TrigramID
	hexagrams  [64]Hexagram
	byBinary   map[string]int
	byTrigrams map[[2]TrigramID]int
	byName     map[string][]int // exact folded key
	byLoose    map[string][]int // accent- and space-insensitive key
}

type mappingFile struct {
	Trigrams  []Trigram  `yaml:"trigrams"`
	Hexagrams []Hexagram `yaml:"hexagrams"`
}

// #endregion table-struct

// #region constructors

var defaultTable = sync.OnceValues(func() (*Table, error) {
	return Parse(defaultMapping)
})

// Default returns the table parsed from the embedded mapping resource.
func Default() (*Table, error) {
	return defaultTable()
}

// Load parses a mapping resource from disk.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mapping %s: %w", path, err)
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse mapping %s: %w", path, err)
	}
	return t, nil
}

// Parse builds a Table and checks the number ↔ binary ↔ trigram-pair bijection.
func Parse(data []byte) (*Table, error) {
	var mf mappingFile
	if err := yaml.Unmarshal(data, &mf); err != nil {
		return nil, fmt.Errorf("%w: decode mapping: %v", faults.ErrData, err)
	}

	t := &Table{
		trigrams:   make(map[TrigramID]Trigram, 8),
		byBinary:   make(map[string]int, 64),
		byTrigrams: make(map[[2]TrigramID]int, 64),
		byName:     make(map[string][]int),
		byLoose:    make(map[string][]int),
	}

	trigramBits := make(map[string]TrigramID, 8)
	for _, tr := range mf.Trigrams {
		if !validBits(tr.Binary, 3) {
			return nil, fmt.Errorf("%w: trigram %s has binary %q", faults.ErrData, tr.ID, tr.Binary)
		}
		if _, dup := t.trigrams[tr.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate trigram %s", faults.ErrData, tr.ID)
		}
		if other, dup := trigramBits[tr.Binary]; dup {
			return nil, fmt.Errorf("%w: trigrams %s and %s share binary %s", faults.ErrData, other, tr.ID, tr.Binary)
		}
		trigramBits[tr.Binary] = tr.ID
		t.trigrams[tr.ID] = tr
		t.order = append(t.order, tr.ID)
	}
	if len(t.trigrams) != 8 {
		return nil, fmt.Errorf("%w: want 8 trigrams, got %d", faults.ErrData, len(t.trigrams))
	}

	if len(mf.Hexagrams) != 64 {
		return nil, fmt.Errorf("%w: want 64 hexagrams, got %d", faults.ErrData, len(mf.Hexagrams))
	}
	for _, h := range mf.Hexagrams {
		if h.Number < 1 || h.Number > 64 {
			return nil, fmt.Errorf("%w: hexagram number %d out of range", faults.ErrData, h.Number)
		}
		if t.hexagrams[h.Number-1].Number != 0 {
			return nil, fmt.Errorf("%w: duplicate hexagram %d", faults.ErrData, h.Number)
		}
		lower, okL := t.trigrams[h.Lower]
		upper, okU := t.trigrams[h.Upper]
		if !okL || !okU {
			return nil, fmt.Errorf("%w: hexagram %d references unknown trigram", faults.ErrData, h.Number)
		}
		if h.Binary != lower.Binary+upper.Binary {
			return nil, fmt.Errorf("%w: hexagram %d binary %s != %s+%s", faults.ErrData, h.Number, h.Binary, lower.Binary, upper.Binary)
		}
		if other, dup := t.byBinary[h.Binary]; dup {
			return nil, fmt.Errorf("%w: hexagrams %d and %d share binary %s", faults.ErrData, other, h.Number, h.Binary)
		}
		t.hexagrams[h.Number-1] = h
		t.byBinary[h.Binary] = h.Number
		t.byTrigrams[[2]TrigramID{h.Upper, h.Lower}] = h.Number
		for _, name := range h.Names.All() {
			t.byName[exactKey(name)] = appendUnique(t.byName[exactKey(name)], h.Number)
			t.byLoose[looseKey(name)] = appendUnique(t.byLoose[looseKey(name)], h.Number)
		}
	}
	return t, nil
}

// #endregion constructors

// #region lookups

// ByNumber returns the hexagram with King Wen number n.
func (t *Table) ByNumber(n int) (Hexagram, error) {
	if n < 1 || n > 64 {
		return Hexagram{}, fmt.Errorf("%w: got %d", ErrNumberOutOfRange, n)
	}
	return t.hexagrams[n-1], nil
}

// ByBinary returns the hexagram whose bottom-to-top pattern is b.
func (t *Table) ByBinary(b string) (Hexagram, error) {
	if !validBits(b, 6) {
		return Hexagram{}, fmt.Errorf("%w: got %q", ErrBadBinary, b)
	}
	n, ok := t.byBinary[b]
	if !ok {
		return Hexagram{}, fmt.Errorf("%w: binary %s not in table", faults.ErrData, b)
	}
	return t.hexagrams[n-1], nil
}

// ByTrigrams returns the hexagram built from the given upper and lower trigrams.
func (t *Table) ByTrigrams(upper, lower TrigramID) (Hexagram, error) {
	n, ok := t.byTrigrams[[2]TrigramID{upper, lower}]
	if !ok {
		return Hexagram{}, fmt.Errorf("%w: %s/%s", ErrUnknownTrigram, upper, lower)
	}
	return t.hexagrams[n-1], nil
}

// ByLines reduces lines to stable form and looks the pattern up.
func (t *Table) ByLines(l Lines) (Hexagram, error) {
	if err := l.Validate(); err != nil {
		return Hexagram{}, err
	}
	return t.ByBinary(l.Stable().Binary())
}

// ByName matches Chinese, pinyin or English names. Exact (case-folded)
// matches win; otherwise accents, spaces and hyphens are ignored. A name
// that still matches several hexagrams is rejected.
func (t *Table) ByName(name string) (Hexagram, error) {
	if strings.TrimSpace(name) == "" {
		return Hexagram{}, fmt.Errorf("%w: empty name", faults.ErrInvalidArgument)
	}
	for _, idx := range []struct {
		m   map[string][]int
		key string
	}{
		{t.byName, exactKey(name)},
		{t.byLoose, looseKey(name)},
	} {
		switch nums := idx.m[idx.key]; len(nums) {
		case 0:
			continue
		case 1:
			return t.hexagrams[nums[0]-1], nil
		default:
			return Hexagram{}, fmt.Errorf("%w: %q matches %v", ErrAmbiguousName, name, nums)
		}
	}
	return Hexagram{}, fmt.Errorf("%w: %q", ErrUnknownName, name)
}

// Trigram returns the trigram with the given id.
func (t *Table) Trigram(id TrigramID) (Trigram, error) {
	tr, ok := t.trigrams[TrigramID(strings.ToLower(string(id)))]
	if !ok {
		return Trigram{}, fmt.Errorf("%w: %q", ErrUnknownTrigram, id)
	}
	return tr, nil
}

// Trigrams returns the trigrams in mapping order.
func (t *Table) Trigrams() []Trigram {
	out := make([]Trigram, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.trigrams[id])
	}
	return out
}

// Hexagrams returns all 64 hexagrams in King Wen order.
func (t *Table) Hexagrams() []Hexagram {
	out := make([]Hexagram, 64)
	copy(out, t.hexagrams[:])
	return out
}

// #endregion lookups

// #region helpers

func validBits(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] != '0' && s[i] != '1' {
			return false
		}
	}
	return true
}

func exactKey(s string) string {
	return cases.Fold().String(strings.Join(strings.Fields(s), " "))
}

// looseKey strips combining marks (Qián → qian) and separators.
func looseKey(s string) string {
	// transform chains carry state, so build one per call.
	strip := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(strip, s)
	if err != nil {
		out = s
	}
	out = cases.Fold().String(out)
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '-' || r == '\'' {
			return -1
		}
		return r
	}, out)
}

func appendUnique(nums []int, n int) []int {
	for _, have := range nums {
		if have == n {
			return nums
		}
	}
	nums = append(nums, n)
	sort.Ints(nums)
	return nums
}

// #endregion helpers
