package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/danielpatrickdp/hexagram-oracle/internal/faults"
)

// #region encode
// Encode writes r as indented JSON with both hexagrams fully expanded.
func Encode(w io.Writer, r *Reading) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode reading: %w", err)
	}
	return nil
}

// SaveReading writes r to path.
func SaveReading(path string, r *Reading) error {
	var buf bytes.Buffer
	if err := Encode(&buf, r); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write reading: %w", err)
	}
	return nil
}

// #endregion encode

// #region decode
// Decode reads a reading written by Encode and checks it is self-consistent.
func Decode(rd io.Reader) (*Reading, error) {
	var r Reading
	if err := json.NewDecoder(rd).Decode(&r); err != nil {
		return nil, fmt.Errorf("%w: decode reading: %v", faults.ErrData, err)
	}
	if err := check(&r); err != nil {
		return nil, err
	}
	return &r, nil
}

// LoadReading reads a reading from path.
func LoadReading(path string) (*Reading, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open reading: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

func check(r *Reading) error {
	if err := r.Primary.Lines.Validate(); err != nil {
		return fmt.Errorf("%w: reading %s primary: %v", faults.ErrData, r.ID, err)
	}
	if r.Primary.Lines.Stable().Binary() != r.Primary.Hexagram.Binary {
		return fmt.Errorf("%w: reading %s primary lines do not match hexagram %d", faults.ErrData, r.ID, r.Primary.Hexagram.Number)
	}
	moving := r.Primary.Lines.HasMoving()
	switch {
	case moving && r.Relating == nil:
		return fmt.Errorf("%w: reading %s has moving lines but no relating hexagram", faults.ErrData, r.ID)
	case !moving && r.Relating != nil:
		return fmt.Errorf("%w: reading %s has a relating hexagram but no moving lines", faults.ErrData, r.ID)
	case moving && r.Relating.Lines != r.Primary.Lines.Changed():
		return fmt.Errorf("%w: reading %s relating lines do not follow from the primary", faults.ErrData, r.ID)
	}
	if r.Relating != nil && r.Relating.Lines.Binary() != r.Relating.Hexagram.Binary {
		return fmt.Errorf("%w: reading %s relating lines do not match hexagram %d", faults.ErrData, r.ID, r.Relating.Hexagram.Number)
	}
	if n := len(r.Entropy); n != 0 && n != len(r.Primary.Lines) {
		return fmt.Errorf("%w: reading %s has %d entropy entries", faults.ErrData, r.ID, n)
	}
	for i, t := range r.Entropy {
		if !t.Valid() || t.Value() != r.Primary.Lines[i] {
			return fmt.Errorf("%w: reading %s entropy for line %d does not match", faults.ErrData, r.ID, i+1)
		}
	}
	return nil
}

// #endregion decode
