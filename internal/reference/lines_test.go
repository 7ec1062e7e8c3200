package reference

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/hexagram-oracle/internal/faults"
)

func TestLineValue_Transforms(t *testing.T) {
	cases := []struct {
		v               LineValue
		stable, changed LineValue
		moving, yang    bool
	}{
		{OldYin, YoungYin, YoungYang, true, false},
		{YoungYang, YoungYang, YoungYang, false, true},
		{YoungYin, YoungYin, YoungYin, false, false},
		{OldYang, YoungYang, YoungYin, true, true},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.stable, tc.v.Stable(), "Stable(%d)", tc.v)
		assert.Equal(t, tc.changed, tc.v.Changed(), "Changed(%d)", tc.v)
		assert.Equal(t, tc.moving, tc.v.IsMoving(), "IsMoving(%d)", tc.v)
		assert.Equal(t, tc.yang, tc.v.IsYang(), "IsYang(%d)", tc.v)
		assert.True(t, tc.v.Valid())
	}
	assert.False(t, LineValue(5).Valid())
	assert.False(t, LineValue(10).Valid())
}

func TestLines_MovingTransform(t *testing.T) {
	l := Lines{7, 9, 8, 7, 6, 7}

	assert.Equal(t, Lines{7, 8, 8, 7, 7, 7}, l.Changed())
	assert.Equal(t, []int{2, 5}, l.MovingPositions())
	assert.True(t, l.HasMoving())
	assert.Equal(t, "110101", l.Binary())
	assert.Equal(t, "100111", l.Changed().Binary())

	// The relating pattern differs exactly at the moving positions.
	primary, relating := l.Binary(), l.Changed().Binary()
	var diff []int
	for i := range primary {
		if primary[i] != relating[i] {
			diff = append(diff, i+1)
		}
	}
	assert.Equal(t, l.MovingPositions(), diff)
}

func TestLines_NoMoving(t *testing.T) {
	l := Lines{7, 7, 7, 7, 7, 7}
	assert.False(t, l.HasMoving())
	assert.Empty(t, l.MovingPositions())
	assert.Equal(t, l, l.Changed())
	assert.Equal(t, "111111", l.Stable().Binary())
}

func TestParseLines(t *testing.T) {
	for _, in := range []string{"798767", "7,9,8,7,6,7", "7 9 8 7 6 7", " 7, 9, 8, 7, 6, 7 "} {
		l, err := ParseLines(in)
		require.NoError(t, err, in)
		assert.Equal(t, Lines{7, 9, 8, 7, 6, 7}, l)
		assert.Equal(t, "798767", l.String())
	}

	for _, in := range []string{"", "79876", "7987677", "79x767", "798765"} {
		_, err := ParseLines(in)
		assert.True(t, errors.Is(err, faults.ErrInvalidArgument), "%q: %v", in, err)
	}
}

func TestPositionIndex(t *testing.T) {
	for i, p := range Positions {
		idx, ok := PositionIndex(p)
		require.True(t, ok)
		assert.Equal(t, i, idx)
	}
	idx, ok := PositionIndex("6")
	assert.True(t, ok)
	assert.Equal(t, 5, idx)
	idx, ok = PositionIndex("Top")
	assert.True(t, ok)
	assert.Equal(t, 5, idx)
	_, ok = PositionIndex("seventh")
	assert.False(t, ok)
}
