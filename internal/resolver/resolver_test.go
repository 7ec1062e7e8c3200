package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/hexagram-oracle/internal/faults"
	"github.com/danielpatrickdp/hexagram-oracle/internal/fixtures"
	"github.com/danielpatrickdp/hexagram-oracle/internal/loader"
)

// #region helpers
func newResolver(t *testing.T) *Resolver {
	t.Helper()
	l, err := loader.New(loader.Options{Root: fixtures.Standard(t)})
	require.NoError(t, err)
	return New(l, nil)
}

// #endregion helpers

// #region resolve-tests
func TestResolve_Canonical(t *testing.T) {
	r := newResolver(t)
	res, err := r.Resolve(context.Background(), 1, fixtures.Canonical)
	require.NoError(t, err)
	assert.False(t, res.FellBack())
	assert.Equal(t, fixtures.Canonical, res.Bundle.Source)
	assert.Equal(t, "Qián", res.Bundle.Name)

	empty, err := r.Resolve(context.Background(), 1, "")
	require.NoError(t, err)
	assert.Equal(t, res.Bundle, empty.Bundle)
	assert.Equal(t, fixtures.Canonical, empty.Requested)
}

func TestResolve_UnknownSourceFallsBackForEveryHexagram(t *testing.T) {
	r := newResolver(t)
	ctx := context.Background()
	for n := 1; n <= 64; n++ {
		want, err := r.Resolve(ctx, n, fixtures.Canonical)
		require.NoError(t, err)
		got, err := r.Resolve(ctx, n, "nonexistent-source")
		require.NoError(t, err)

		if diff := cmp.Diff(want.Bundle, got.Bundle); diff != "" {
			t.Fatalf("hexagram %d: fallback differs from canonical (-want +got):\n%s", n, diff)
		}
		assert.True(t, got.FellBack())
		assert.Equal(t, "nonexistent-source", got.Requested)
		assert.Equal(t, fixtures.Canonical, got.Used)
	}
}

func TestResolve_FullAlternate(t *testing.T) {
	r := newResolver(t)
	res, err := r.Resolve(context.Background(), 1, fixtures.Wilhelm)
	require.NoError(t, err)
	assert.False(t, res.FellBack())

	b := res.Bundle
	assert.Equal(t, fixtures.Wilhelm, b.Source)
	assert.Equal(t, fixtures.Text(fixtures.Wilhelm, "name", 1), b.Name)
	assert.Equal(t, fixtures.Text(fixtures.Wilhelm, "judgment", 1), b.Judgment)
	assert.Equal(t, fixtures.LineText(fixtures.Wilhelm, 1, 6), b.Lines[5].Text)

	assert.Equal(t, "Wilhelm/Baynes", b.Meta.Translator, "bundle metadata wins")
	assert.Equal(t, 1950, b.Meta.Year, "gaps come from sources.yaml")
	assert.Equal(t, "https://example.org/wilhelm", b.Meta.URL)
	assert.True(t, b.Meta.Verified)
}

func TestResolve_PartialAlternate(t *testing.T) {
	r := newResolver(t)
	res, err := r.Resolve(context.Background(), 1, fixtures.Legge)
	require.NoError(t, err)
	assert.Equal(t, fixtures.Legge, res.Used)

	b := res.Bundle
	assert.Equal(t, fixtures.Legge, b.Source)
	assert.Equal(t, "Qián", b.Name)
	assert.Equal(t, fixtures.Text(fixtures.Canonical, "title", 1), b.Title)
	assert.Equal(t, fixtures.Text(fixtures.Legge, "judgment", 1), b.Judgment)
	assert.Equal(t, fixtures.Text(fixtures.Canonical, "image", 1), b.Image)
	for i, line := range b.Lines {
		want := fixtures.LineText(fixtures.Canonical, 1, i+1)
		if i == 2 {
			want = fixtures.LineText(fixtures.Legge, 1, 3)
		}
		assert.Equal(t, want, line.Text, "line %d", i+1)
		assert.Equal(t, "nine", line.Type)
	}
	assert.Equal(t, "James Legge", b.Meta.Translator)
	assert.Equal(t, 1882, b.Meta.Year)
	assert.False(t, b.Meta.Verified)
}

func TestResolve_SkippedAlternatesFallBack(t *testing.T) {
	r := newResolver(t)

	// legge's bundle for 2 is malformed; wilhelm has nothing for 3.
	for _, tc := range []struct {
		n      int
		source string
	}{{2, fixtures.Legge}, {3, fixtures.Wilhelm}} {
		res, err := r.Resolve(context.Background(), tc.n, tc.source)
		require.NoError(t, err)
		assert.True(t, res.FellBack())
		assert.Equal(t, fixtures.Canonical, res.Bundle.Source)
	}
}

func TestResolve_PropagatesLoaderErrors(t *testing.T) {
	r := newResolver(t)
	_, err := r.Resolve(context.Background(), 65, fixtures.Canonical)
	assert.True(t, errors.Is(err, faults.ErrInvalidArgument))
}

func TestOverlay(t *testing.T) {
	base := loader.Bundle{
		Number: 5, Source: "canonical", Name: "Xū", EnglishName: "Waiting", Title: "T",
		Judgment: "J", Image: "I",
		Meta: loader.SourceMeta{Translator: "base"},
	}
	for i := range base.Lines {
		base.Lines[i] = loader.LineText{Position: "p", Type: "six", Text: "base", Comment: "bc"}
	}
	alt := loader.Bundle{Number: 5, Source: "alt", Judgment: "alt J", Image: "  ", Meta: loader.SourceMeta{Year: 1900}}
	alt.Lines[4] = loader.LineText{Text: "alt line", Comment: ""}

	got := Overlay(base, alt)
	assert.Equal(t, "alt", got.Source)
	assert.Equal(t, "Xū", got.Name)
	assert.Equal(t, "alt J", got.Judgment)
	assert.Equal(t, "I", got.Image, "blank text does not override")
	assert.Equal(t, loader.SourceMeta{Year: 1900}, got.Meta)
	assert.Equal(t, loader.LineText{Position: "p", Type: "six", Text: "alt line"}, got.Lines[4])
	assert.Equal(t, "base", got.Lines[0].Text)
	assert.Equal(t, "base", base.Lines[4].Text, "base is not modified")
}

// #endregion resolve-tests

// #region multiple-tests
func TestResolveMultiple_SkipsUnregistered(t *testing.T) {
	r := newResolver(t)
	got, err := r.ResolveMultiple(context.Background(), 1,
		[]string{fixtures.Wilhelm, "nonexistent", fixtures.Canonical, fixtures.Legge})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, fixtures.Wilhelm, got[0].Used)
	assert.Equal(t, fixtures.Canonical, got[1].Used)
	assert.Equal(t, fixtures.Legge, got[2].Used)
}

func TestDefaultOrder(t *testing.T) {
	r := newResolver(t)
	order, err := r.DefaultOrder()
	require.NoError(t, err)
	assert.Equal(t, []string{fixtures.Canonical, fixtures.Legge, fixtures.Wilhelm}, order)
}

// #endregion multiple-tests

// #region compare-tests
func TestCompareSources_Field(t *testing.T) {
	r := newResolver(t)
	ctx := context.Background()

	got, err := r.CompareSources(ctx, 1, nil, "judgment")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, fixtures.Text(fixtures.Canonical, "judgment", 1), got[0].Value)
	assert.Equal(t, fixtures.Text(fixtures.Legge, "judgment", 1), got[1].Value)
	assert.Equal(t, fixtures.Text(fixtures.Wilhelm, "judgment", 1), got[2].Value)
	assert.Nil(t, got[0].Bundle)

	got, err = r.CompareSources(ctx, 1, []string{fixtures.Legge}, "line_3")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, fixtures.LineText(fixtures.Legge, 1, 3), got[0].Value)

	got, err = r.CompareSources(ctx, 2, []string{fixtures.Legge}, "lines")
	require.NoError(t, err)
	require.Len(t, got[0].Lines, 6)
	assert.True(t, got[0].FellBack)
	assert.Equal(t, fixtures.LineText(fixtures.Canonical, 2, 1), got[0].Lines[0].Text)
}

func TestCompareSources_FullBundles(t *testing.T) {
	r := newResolver(t)
	got, err := r.CompareSources(context.Background(), 11, []string{fixtures.Canonical, fixtures.Wilhelm}, "")
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.NotNil(t, got[1].Bundle)
	assert.Equal(t, fixtures.Text(fixtures.Wilhelm, "image", 11), got[1].Bundle.Image)
	assert.Empty(t, got[1].Field)
}

func TestCompareSources_UnknownField(t *testing.T) {
	r := newResolver(t)
	_, err := r.CompareSources(context.Background(), 1, nil, "commentary")
	assert.ErrorIs(t, err, ErrUnknownField)
	assert.True(t, errors.Is(err, faults.ErrInvalidArgument))

	_, err = r.CompareSources(context.Background(), 1, nil, "line_7")
	assert.ErrorIs(t, err, ErrUnknownField)
}

// #endregion compare-tests

// #region completeness-tests
func TestValidateSourceCompleteness(t *testing.T) {
	r := newResolver(t)
	ctx := context.Background()

	c, err := r.ValidateSourceCompleteness(ctx, 1, fixtures.Legge)
	require.NoError(t, err)
	assert.True(t, c.Present)
	assert.True(t, c.Fields["judgment"])
	assert.False(t, c.Fields["lines"], "one line of six is not complete")
	assert.False(t, c.Complete())
	assert.Equal(t, []string{"name", "english_name", "title", "image", "lines"}, c.Missing())

	c, err = r.ValidateSourceCompleteness(ctx, 1, fixtures.Wilhelm)
	require.NoError(t, err)
	assert.True(t, c.Complete())

	c, err = r.ValidateSourceCompleteness(ctx, 64, "")
	require.NoError(t, err)
	assert.Equal(t, fixtures.Canonical, c.Source)
	assert.True(t, c.Complete())

	c, err = r.ValidateSourceCompleteness(ctx, 3, fixtures.Wilhelm)
	require.NoError(t, err)
	assert.False(t, c.Present)
	assert.Equal(t, Fields, c.Missing())

	assert.Equal(t, fixtures.Canonical, c.Used)

	c, err = r.ValidateSourceCompleteness(ctx, 1, "nonexistent")
	require.NoError(t, err)
	assert.Equal(t, "nonexistent", c.Source)
	assert.False(t, c.Present)
	assert.Equal(t, fixtures.Canonical, c.Used)
	assert.False(t, c.Complete())

	_, err = r.ValidateSourceCompleteness(ctx, 65, "nonexistent")
	assert.True(t, errors.Is(err, faults.ErrInvalidArgument))
}

// #endregion completeness-tests
