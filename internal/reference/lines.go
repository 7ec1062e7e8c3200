package reference

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/danielpatrickdp/hexagram-oracle/internal/faults"
)

// #region line-value

// LineValue is the value of one cast line: the sum of three coins worth 2 or 3.
type LineValue int

const (
	OldYin    LineValue = 6 // moving, becomes yang
	YoungYang LineValue = 7
	YoungYin  LineValue = 8
	OldYang   LineValue = 9 // moving, becomes yin
)

// Valid reports whether v is one of 6, 7, 8, 9.
func (v LineValue) Valid() bool {
	return v >= OldYin && v <= OldYang
}

// IsMoving reports whether the line changes in the relating hexagram.
func (v LineValue) IsMoving() bool {
	return v == OldYin || v == OldYang
}

// IsYang reports whether the line is solid in the primary hexagram.
func (v LineValue) IsYang() bool {
	return v == YoungYang || v == OldYang
}

// Stable reduces a moving line to its young form (6→8, 9→7).
// It keeps the line's polarity and is used for identity lookup only.
func (v LineValue) Stable() LineValue {
	switch v {
	case OldYin:
		return YoungYin
	case OldYang:
		return YoungYang
	}
	return v
}

// Changed flips a moving line to the opposite polarity (6→7, 9→8).
func (v LineValue) Changed() LineValue {
	switch v {
	case OldYin:
		return YoungYang
	case OldYang:
		return YoungYin
	}
	return v
}

// Bit returns '1' for yang lines and '0' for yin lines.
func (v LineValue) Bit() byte {
	if v.IsYang() {
		return '1'
	}
	return '0'
}

// #endregion line-value

// #region lines

// Lines holds six line values ordered bottom to top.
type Lines [6]LineValue

// Validate checks every line is a legal value.
func (l Lines) Validate() error {
	for i, v := range l {
		if !v.Valid() {
			return fmt.Errorf("%w: line %d has value %d, want 6-9", faults.ErrInvalidArgument, i+1, int(v))
		}
	}
	return nil
}

// Stable returns the lines with every moving line reduced to its young form.
func (l Lines) Stable() Lines {
	var out Lines
	for i, v := range l {
		out[i] = v.Stable()
	}
	return out
}

// Changed returns the lines of the relating hexagram.
func (l Lines) Changed() Lines {
	var out Lines
	for i, v := range l {
		out[i] = v.Changed()
	}
	return out
}

// Binary returns the six-bit pattern, bottom line first.
func (l Lines) Binary() string {
	b := make([]byte, 6)
	for i, v := range l {
		b[i] = v.Bit()
	}
	return string(b)
}

// MovingPositions returns the 1-based positions of moving lines.
func (l Lines) MovingPositions() []int {
	var pos []int
	for i, v := range l {
		if v.IsMoving() {
			pos = append(pos, i+1)
		}
	}
	return pos
}

// HasMoving reports whether any line is 6 or 9.
func (l Lines) HasMoving() bool {
	for _, v := range l {
		if v.IsMoving() {
			return true
		}
	}
	return false
}

// String renders the lines compactly, e.g. "798767".
func (l Lines) String() string {
	var b strings.Builder
	for _, v := range l {
		b.WriteString(strconv.Itoa(int(v)))
	}
	return b.String()
}

// ParseLines accepts "798767", "7,9,8,7,6,7" or "7 9 8 7 6 7".
func ParseLines(s string) (Lines, error) {
	var l Lines
	s = strings.TrimSpace(s)
	var parts []string
	if strings.ContainsAny(s, ", ") {
		parts = strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
	} else {
		parts = strings.Split(s, "")
	}
	if len(parts) != 6 {
		return l, fmt.Errorf("%w: want 6 lines, got %d", faults.ErrInvalidArgument, len(parts))
	}
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return l, fmt.Errorf("%w: line %d: %q is not a number", faults.ErrInvalidArgument, i+1, p)
		}
		l[i] = LineValue(n)
	}
	return l, l.Validate()
}

// #endregion lines

// #region positions

// Positions names line positions bottom to top, as used by interpretation sources.
var Positions = [6]string{"bottom", "second", "third", "fourth", "fifth", "topmost"}

// PositionIndex maps a position name or "1".."6" to a zero-based index.
func PositionIndex(key string) (int, bool) {
	key = strings.ToLower(strings.TrimSpace(key))
	for i, p := range Positions {
		if key == p || key == strconv.Itoa(i+1) {
			return i, true
		}
	}
	switch key {
	case "first":
		return 0, true
	case "top", "sixth":
		return 5, true
	}
	return 0, false
}

// #endregion positions
