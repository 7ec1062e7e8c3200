package loader

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/danielpatrickdp/hexagram-oracle/internal/faults"
	"github.com/danielpatrickdp/hexagram-oracle/internal/reference"
)

// ErrEmptyQuery is returned by Find when no key is set.
var ErrEmptyQuery = fmt.Errorf("%w: give a number, binary pattern, lines, name, or both trigrams", faults.ErrInvalidArgument)

// #region query
// Query selects a hexagram by exactly one key. Upper and Lower count as one
// key and must be given together.
type Query struct {
	Number int
	Binary string
	Lines  string // "798767", "7,9,8,7,6,7"
	Name   string
	Upper  string
	Lower  string
}

// ParseQuery reads a free-form argument: a number 1..64, a six-digit
// pattern of 0/1 (binary) or 6-9 (lines), or else a name.
func ParseQuery(arg string) Query {
	arg = strings.TrimSpace(arg)
	if n, err := strconv.Atoi(arg); err == nil && len(arg) <= 2 {
		return Query{Number: n}
	}
	if len(arg) == 6 && strings.Trim(arg, "01") == "" {
		return Query{Binary: arg}
	}
	if _, err := reference.ParseLines(arg); err == nil {
		return Query{Lines: arg}
	}
	return Query{Name: arg}
}

func (q Query) keys() int {
	n := 0
	for _, set := range []bool{q.Number != 0, q.Binary != "", q.Lines != "", q.Name != "", q.Upper != "" || q.Lower != ""} {
		if set {
			n++
		}
	}
	return n
}

// Find resolves q to a record.
func (l *Loader) Find(ctx context.Context, q Query) (Record, error) {
	switch q.keys() {
	case 0:
		return Record{}, ErrEmptyQuery
	case 1:
	default:
		return Record{}, fmt.Errorf("%w: lookup keys are mutually exclusive", faults.ErrInvalidArgument)
	}
	switch {
	case q.Number != 0:
		return l.GetByNumber(ctx, q.Number)
	case q.Binary != "":
		return l.GetByBinary(ctx, q.Binary)
	case q.Lines != "":
		lines, err := reference.ParseLines(q.Lines)
		if err != nil {
			return Record{}, err
		}
		return l.GetByLines(ctx, lines)
	case q.Name != "":
		return l.GetByName(ctx, q.Name)
	}
	if q.Upper == "" || q.Lower == "" {
		return Record{}, fmt.Errorf("%w: upper and lower trigrams go together", faults.ErrInvalidArgument)
	}
	return l.GetByTrigrams(ctx,
		reference.TrigramID(strings.ToLower(q.Upper)),
		reference.TrigramID(strings.ToLower(q.Lower)))
}

// #endregion query
