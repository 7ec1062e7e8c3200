package faults

import (
	"errors"
	"fmt"
	"testing"
)

func TestClass(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, "none"},
		{fmt.Errorf("%w: unknown method", ErrInvalidArgument), "invalid_argument"},
		{fmt.Errorf("lookup: %w", ErrNotFound), "not_found"},
		{fmt.Errorf("load: %w", fmt.Errorf("%w: canonical missing", ErrData)), "data"},
		{fmt.Errorf("%w: timeout", ErrUnavailable), "unavailable"},
		{errors.New("boom"), "internal"},
	}
	for _, tc := range cases {
		if got := Class(tc.err); got != tc.want {
			t.Errorf("Class(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
