package reference

import "fmt"

// #region trigram

// TrigramID names one of the eight trigrams.
type TrigramID string

const (
	Qian TrigramID = "qian" // heaven
	Kun  TrigramID = "kun"  // earth
	Zhen TrigramID = "zhen" // thunder
	Kan  TrigramID = "kan"  // water
	Gen  TrigramID = "gen"  // mountain
	Xun  TrigramID = "xun"  // wind
	Li   TrigramID = "li"   // fire
	Dui  TrigramID = "dui"  // lake
)

// Trigram is a three-line figure. Binary is ordered bottom to top.
type Trigram struct {
	ID        TrigramID `yaml:"id" json:"id"`
	Binary    string    `yaml:"binary" json:"binary"`
	Symbol    string    `yaml:"symbol" json:"symbol"`
	Chinese   string    `yaml:"chinese" json:"chinese"`
	Pinyin    string    `yaml:"pinyin" json:"pinyin"`
	English   string    `yaml:"english" json:"english"`
	Image     string    `yaml:"image" json:"image"`
	Attribute string    `yaml:"attribute" json:"attribute"`
}

// #endregion trigram

// #region hexagram

// NameVariants holds the names a hexagram is known by.
type NameVariants struct {
	Chinese string `yaml:"chinese" json:"chinese"`
	Pinyin  string `yaml:"pinyin" json:"pinyin"`
	English string `yaml:"english" json:"english"`
}

// All returns the non-empty variants.
func (n NameVariants) All() []string {
	var out []string
	for _, v := range []string{n.Chinese, n.Pinyin, n.English} {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Hexagram is the static reference entry for one King Wen hexagram.
// Binary is the lower trigram's bits followed by the upper trigram's.
type Hexagram struct {
	Number int          `yaml:"number" json:"number"`
	Binary string       `yaml:"binary" json:"binary"`
	Upper  TrigramID    `yaml:"upper" json:"upper"`
	Lower  TrigramID    `yaml:"lower" json:"lower"`
	Names  NameVariants `yaml:"names" json:"names"`
}

// Symbol returns the Unicode hexagram character (the block is in King Wen order).
func (h Hexagram) Symbol() string {
	if h.Number < 1 || h.Number > 64 {
		return ""
	}
	return string(rune(0x4DC0 + h.Number - 1))
}

// Lines returns the stable line values for this hexagram.
func (h Hexagram) Lines() Lines {
	var l Lines
	for i := 0; i < 6 && i < len(h.Binary); i++ {
		if h.Binary[i] == '1' {
			l[i] = YoungYang
		} else {
			l[i] = YoungYin
		}
	}
	return l
}

func (h Hexagram) String() string {
	return fmt.Sprintf("%d %s (%s)", h.Number, h.Names.Pinyin, h.Names.English)
}

// #endregion hexagram
