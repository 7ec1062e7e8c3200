package casting

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/hexagram-oracle/internal/faults"
)

// #region stub

type stubStrategy struct {
	method    Method
	available bool
}

func (s stubStrategy) Method() Method { return s.method }
func (s stubStrategy) CastLine(context.Context) (Toss, error) {
	return Toss{Coins: [3]int{2, 3, 2}}, nil
}
func (s stubStrategy) RequiresExternalResource() bool { return s.method == MethodAir }
func (s stubStrategy) Available(context.Context) (bool, string) {
	if !s.available {
		return false, "stubbed out"
	}
	return true, ""
}

// #endregion stub

func TestParseMethod(t *testing.T) {
	cases := map[string]Method{
		"wood":   MethodWood,
		" FIRE ": MethodFire,
		"crypto": MethodFire,
		"os":     MethodMetal,
		"seeded": MethodEarth,
		"remote": MethodAir,
		"random": MethodWood,
		"Earth":  MethodEarth,
		"air":    MethodAir,
		"metal":  MethodMetal,
		"secure": MethodFire,
		"prng":   MethodWood,
	}
	for in, want := range cases {
		got, err := ParseMethod(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseMethod("water")
	assert.ErrorIs(t, err, ErrUnknownMethod)
	assert.True(t, errors.Is(err, faults.ErrInvalidArgument))
}

func TestRegistry_BuiltIns(t *testing.T) {
	r := NewRegistry(Options{})
	assert.Equal(t, Methods, r.Methods())

	for _, m := range Methods {
		s, err := r.Get(m)
		require.NoError(t, err)
		assert.Equal(t, m, s.Method())
	}

	_, err := r.Get("water")
	assert.ErrorIs(t, err, ErrUnknownMethod)
}

func TestRegistry_Prepare(t *testing.T) {
	r := NewRegistry(Options{})

	_, err := r.Prepare(MethodEarth, "")
	assert.ErrorIs(t, err, ErrSeedRequired)

	a, err := r.Prepare(MethodEarth, "same")
	require.NoError(t, err)
	b, err := r.Prepare(MethodEarth, "same")
	require.NoError(t, err)
	assert.Equal(t, castSix(t, a), castSix(t, b))

	shared, _ := r.Get(MethodEarth)
	assert.False(t, shared.(*SeededStrategy).Seeded(), "the registered instance stays unseeded")

	fire, err := r.Prepare(MethodFire, "ignored")
	require.NoError(t, err)
	assert.Equal(t, MethodFire, fire.Method())

	_, err = r.Prepare("water", "")
	assert.ErrorIs(t, err, ErrUnknownMethod)
}

func TestRegistry_RegisterReplaces(t *testing.T) {
	r := NewEmptyRegistry()
	r.Register(stubStrategy{method: MethodWood, available: false})
	r.Register(stubStrategy{method: MethodWood, available: true})
	assert.Equal(t, []Method{MethodWood}, r.Methods())

	s, err := r.Get(MethodWood)
	require.NoError(t, err)
	ok, _ := s.Available(context.Background())
	assert.True(t, ok)
}

func TestRegistry_Fallback(t *testing.T) {
	r := NewEmptyRegistry()
	r.Register(stubStrategy{method: MethodAir, available: false})
	r.Register(stubStrategy{method: MethodFire, available: true})
	r.Register(stubStrategy{method: MethodMetal, available: true})
	r.Register(stubStrategy{method: MethodWood, available: true})

	s, err := r.Fallback(context.Background(), MethodAir)
	require.NoError(t, err)
	assert.Equal(t, MethodFire, s.Method())

	s, err = r.Fallback(context.Background(), MethodAir, MethodFire)
	require.NoError(t, err)
	assert.Equal(t, MethodMetal, s.Method())

	r.Register(stubStrategy{method: MethodMetal, available: false})
	s, err = r.Fallback(context.Background(), MethodAir, MethodFire)
	require.NoError(t, err)
	assert.Equal(t, MethodWood, s.Method())

	_, err = r.Fallback(context.Background(), MethodAir, MethodFire, MethodWood)
	assert.True(t, errors.Is(err, faults.ErrUnavailable))
}

func TestRegistry_FallbackNeverOffersEarth(t *testing.T) {
	r := NewRegistry(Options{})
	for _, m := range Methods {
		s, err := r.Fallback(context.Background(), m)
		if err != nil {
			continue
		}
		assert.NotEqual(t, MethodEarth, s.Method())
	}
}

func TestRegistry_Status(t *testing.T) {
	r := NewRegistry(Options{
		DevicePath: filepath.Join(t.TempDir(), "missing"),
		Remote:     RemoteConfig{URL: "http://127.0.0.1:1/integers", QuotaURL: "http://127.0.0.1:1/quota"},
	})
	statuses := r.Status(context.Background())
	require.Len(t, statuses, 5)

	byMethod := map[Method]Status{}
	for _, st := range statuses {
		byMethod[st.Method] = st
	}
	assert.True(t, byMethod[MethodFire].Available)
	assert.True(t, byMethod[MethodWood].Available)
	assert.False(t, byMethod[MethodMetal].Available)
	assert.False(t, byMethod[MethodAir].Available)
	assert.True(t, byMethod[MethodAir].External)
	assert.NotEmpty(t, byMethod[MethodAir].Reason)
	assert.Equal(t, Describe(MethodEarth), byMethod[MethodEarth].Description)
}
