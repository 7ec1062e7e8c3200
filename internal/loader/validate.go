package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
)

// #region validate-canonical
// Problem is one canonical bundle that cannot be used.
type Problem struct {
	Number int
	Err    error
}

func (p Problem) Error() string {
	return fmt.Sprintf("hexagram %d: %v", p.Number, p.Err)
}

// ValidateCanonical reads all 64 canonical bundles without touching the
// cache and reports every one that is missing, malformed or incomplete.
func (l *Loader) ValidateCanonical(ctx context.Context) ([]Problem, error) {
	t, err := l.Table()
	if err != nil {
		return nil, err
	}
	var problems []Problem
	for _, hex := range t.Hexagrams() {
		if err := ctx.Err(); err != nil {
			return problems, err
		}
		b, path, err := l.readBundle(l.canonical, hex)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			problems = append(problems, Problem{hex.Number, fmt.Errorf("%w: %s", ErrCanonicalMissing, path)})
		case err != nil:
			problems = append(problems, Problem{hex.Number, fmt.Errorf("%w: %v", ErrCanonicalInvalid, err)})
		default:
			if missing := b.Missing(); len(missing) > 0 {
				problems = append(problems, Problem{hex.Number, fmt.Errorf("%w: lacks %v", ErrCanonicalInvalid, missing)})
			}
		}
	}
	return problems, nil
}

// #endregion validate-canonical
