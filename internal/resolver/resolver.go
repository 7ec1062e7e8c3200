// Package resolver turns a hexagram's bundle set into display bundles,
// merging a requested source over the canonical baseline.
package resolver

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/hexagram-oracle/internal/faults"
	"github.com/danielpatrickdp/hexagram-oracle/internal/loader"
	"github.com/danielpatrickdp/hexagram-oracle/internal/logging"
)

// #region errors
var (
	ErrUnknownField = fmt.Errorf("%w: unknown comparison field", faults.ErrInvalidArgument)
)

// #endregion errors

// #region fields
// Fields are the required bundle fields, in display order.
var Fields = []string{"name", "english_name", "title", "judgment", "image", "lines"}

// CompareFields are the fields CompareSources can extract.
var CompareFields = append(append([]string{}, Fields...),
	"line_1", "line_2", "line_3", "line_4", "line_5", "line_6")

func validField(f string) bool {
	for _, c := range CompareFields {
		if f == c {
			return true
		}
	}
	return false
}

// #endregion fields

// #region types
// Resolution is a display-ready bundle. Used differs from Requested when the
// requested source had nothing for this hexagram and canonical was used.
type Resolution struct {
	Bundle    loader.Bundle `json:"bundle"`
	Requested string        `json:"requested"`
	Used      string        `json:"used"`
}

// FellBack reports whether the canonical bundle stood in for the requested source.
func (r Resolution) FellBack() bool { return r.Requested != r.Used }

// Resolver resolves bundles through a Loader.
type Resolver struct {
	loader *loader.Loader
	log    *zap.Logger
}

// New returns a Resolver backed by l.
func New(l *loader.Loader, logger *zap.Logger) *Resolver {
	return &Resolver{loader: l, log: logging.Component(logger, "resolver")}
}

// Loader returns the underlying loader.
func (r *Resolver) Loader() *loader.Loader { return r.loader }

// #endregion types

// #region resolve
// Resolve returns the bundle for hexagram n from source. The canonical id,
// an empty source, or a source without a bundle for n yield the canonical
// bundle unchanged; that fallback is not an error.
func (r *Resolver) Resolve(ctx context.Context, n int, source string) (Resolution, error) {
	set, err := r.loader.Load(ctx, n)
	if err != nil {
		return Resolution{}, err
	}
	return r.ResolveSet(set, source), nil
}

// ResolveSet resolves a set the caller already loaded.
func (r *Resolver) ResolveSet(set *loader.BundleSet, source string) Resolution {
	canonical := r.loader.Canonical()
	if source == "" {
		source = canonical
	}
	if source == canonical {
		return Resolution{Bundle: set.Canonical, Requested: source, Used: canonical}
	}

	alt, ok := set.Alternate(source)
	if !ok {
		r.log.Debug("source not available, using canonical",
			zap.String("source", source),
			zap.Int("number", set.Number),
		)
		return Resolution{Bundle: set.Canonical, Requested: source, Used: canonical}
	}

	b := Overlay(set.Canonical, alt)
	if info, ok := r.loader.SourceInfo(source); ok {
		b.Meta = info.Meta(b.Meta)
	}
	return Resolution{Bundle: b, Requested: source, Used: source}
}

// Overlay copies base and replaces each field the alternate fills in.
// Lines are taken per position. Source and metadata always come from alt.
func Overlay(base, alt loader.Bundle) loader.Bundle {
	out := base
	out.Source = alt.Source
	out.Meta = alt.Meta
	pick := func(dst *string, v string) {
		if strings.TrimSpace(v) != "" {
			*dst = v
		}
	}
	pick(&out.Name, alt.Name)
	pick(&out.EnglishName, alt.EnglishName)
	pick(&out.Title, alt.Title)
	pick(&out.Judgment, alt.Judgment)
	pick(&out.Image, alt.Image)
	for i, l := range alt.Lines {
		if l.Empty() {
			continue
		}
		out.Lines[i].Text = l.Text
		out.Lines[i].Comment = l.Comment
		if l.Type != "" {
			out.Lines[i].Type = l.Type
		}
	}
	return out
}

// #endregion resolve

// #region resolve-multiple
// ResolveMultiple resolves n for each registered source in order, skipping
// sources the loader does not know.
func (r *Resolver) ResolveMultiple(ctx context.Context, n int, sources []string) ([]Resolution, error) {
	set, err := r.loader.Load(ctx, n)
	if err != nil {
		return nil, err
	}
	out := make([]Resolution, 0, len(sources))
	for _, src := range sources {
		if !r.loader.Registered(src) {
			r.log.Debug("skipping unregistered source", zap.String("source", src))
			continue
		}
		out = append(out, r.ResolveSet(set, src))
	}
	return out, nil
}

// DefaultOrder lists canonical first, then registered sources in the
// metadata's default priority, then any others alphabetically.
func (r *Resolver) DefaultOrder() ([]string, error) {
	registered, err := r.loader.Sources()
	if err != nil {
		return nil, err
	}
	canonical := r.loader.Canonical()
	out := []string{canonical}
	seen := map[string]bool{canonical: true}
	isRegistered := make(map[string]bool, len(registered))
	for _, s := range registered {
		isRegistered[s] = true
	}
	for _, s := range r.loader.Meta().DefaultPriority {
		if isRegistered[s] && !seen[s] {
			out = append(out, s)
			seen[s] = true
		}
	}
	for _, s := range registered {
		if !seen[s] {
			out = append(out, s)
			seen[s] = true
		}
	}
	return out, nil
}

// #endregion resolve-multiple

// #region compare
// Comparison is one source's entry in a side-by-side comparison. With no
// field the whole bundle is set; otherwise Value (or Lines for "lines").
type Comparison struct {
	Source   string            `json:"source"`
	Used     string            `json:"used"`
	FellBack bool              `json:"fell_back,omitempty"`
	Bundle   *loader.Bundle    `json:"bundle,omitempty"`
	Field    string            `json:"field,omitempty"`
	Value    string            `json:"value,omitempty"`
	Lines    []loader.LineText `json:"lines,omitempty"`
}

// CompareSources resolves n for each source (DefaultOrder when sources is
// nil) and returns full bundles, or a single field when field is set.
func (r *Resolver) CompareSources(ctx context.Context, n int, sources []string, field string) ([]Comparison, error) {
	if field != "" && !validField(field) {
		return nil, fmt.Errorf("%w: %q (want one of %s)", ErrUnknownField, field, strings.Join(CompareFields, ", "))
	}
	if sources == nil {
		var err error
		if sources, err = r.DefaultOrder(); err != nil {
			return nil, err
		}
	}
	resolutions, err := r.ResolveMultiple(ctx, n, sources)
	if err != nil {
		return nil, err
	}

	out := make([]Comparison, 0, len(resolutions))
	for _, res := range resolutions {
		c := Comparison{Source: res.Requested, Used: res.Used, FellBack: res.FellBack()}
		if field == "" {
			b := res.Bundle
			c.Bundle = &b
		} else {
			c.Field = field
			c.Value, c.Lines = extract(res.Bundle, field)
		}
		out = append(out, c)
	}
	return out, nil
}

func extract(b loader.Bundle, field string) (string, []loader.LineText) {
	switch field {
	case "name":
		return b.Name, nil
	case "english_name":
		return b.EnglishName, nil
	case "title":
		return b.Title, nil
	case "judgment":
		return b.Judgment, nil
	case "image":
		return b.Image, nil
	case "lines":
		lines := make([]loader.LineText, len(b.Lines))
		copy(lines, b.Lines[:])
		return "", lines
	}
	var pos int
	if _, err := fmt.Sscanf(field, "line_%d", &pos); err == nil && pos >= 1 && pos <= 6 {
		return b.Lines[pos-1].Text, nil
	}
	return "", nil
}

// #endregion compare

// #region completeness
// Completeness reports which required fields a source's own bundle fills.
type Completeness struct {
	Number  int             `json:"number"`
	Source  string          `json:"source"`
	Present bool            `json:"present"`
	Used    string          `json:"used"`
	Fields  map[string]bool `json:"fields"`
}

// Complete reports whether every required field has content.
func (c Completeness) Complete() bool {
	return len(c.Missing()) == 0
}

// Missing lists the empty required fields in display order.
func (c Completeness) Missing() []string {
	var out []string
	for _, f := range Fields {
		if !c.Fields[f] {
			out = append(out, f)
		}
	}
	return out
}

// ValidateSourceCompleteness checks the source's own bundle for n, without
// the canonical overlay. The lines field counts only if all six are present.
// An unknown source reports no bundle, with Used set to canonical.
func (r *Resolver) ValidateSourceCompleteness(ctx context.Context, n int, source string) (Completeness, error) {
	canonical := r.loader.Canonical()
	if source == "" {
		source = canonical
	}
	set, err := r.loader.Load(ctx, n)
	if err != nil {
		return Completeness{}, err
	}

	c := Completeness{Number: n, Source: source, Used: canonical, Fields: make(map[string]bool, len(Fields))}
	var b loader.Bundle
	switch {
	case source == canonical:
		b, c.Present = set.Canonical, true
	case r.loader.Registered(source):
		b, c.Present = set.Alternate(source)
	}
	if !c.Present {
		for _, f := range Fields {
			c.Fields[f] = false
		}
		return c, nil
	}
	c.Used = source

	missing := map[string]bool{}
	for _, m := range b.Missing() {
		if strings.HasPrefix(m, "line_") {
			m = "lines"
		}
		missing[m] = true
	}
	for _, f := range Fields {
		c.Fields[f] = !missing[f]
	}
	return c, nil
}

// #endregion completeness
