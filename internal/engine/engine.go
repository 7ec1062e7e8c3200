// Package engine drives a casting strategy for six lines and turns the
// result into a Reading with its primary and relating hexagrams.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/hexagram-oracle/internal/casting"
	"github.com/danielpatrickdp/hexagram-oracle/internal/faults"
	"github.com/danielpatrickdp/hexagram-oracle/internal/logging"
	"github.com/danielpatrickdp/hexagram-oracle/internal/reference"
	"github.com/danielpatrickdp/hexagram-oracle/internal/resolver"
)

// #region engine-struct
// Engine is the entry point for casting. It holds no per-reading state and
// is safe for concurrent use.
type Engine struct {
	registry  *casting.Registry
	resolver  *resolver.Resolver
	observers []Observer
	log       *zap.Logger
	now       func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithObserver registers o for reading and failure notifications.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observers = append(e.observers, o) }
}

// WithLogger sets the engine's logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.log = logging.Component(l, "engine") }
}

// WithClock replaces time.Now for reading timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// #endregion engine-struct

// #region constructor
// New wires an engine over a strategy registry and a resolver.
func New(registry *casting.Registry, res *resolver.Resolver, opts ...Option) *Engine {
	e := &Engine{
		registry: registry,
		resolver: res,
		log:      zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the strategy registry.
func (e *Engine) Registry() *casting.Registry { return e.registry }

// Resolver returns the resolver.
func (e *Engine) Resolver() *resolver.Resolver { return e.resolver }

// #endregion constructor

// #region cast-reading
// CastReading runs one full casting session. Argument errors are reported
// before any entropy is drawn. Strategy failures are returned as they are;
// the engine never retries.
func (e *Engine) CastReading(ctx context.Context, req Request) (*Reading, error) {
	strategy, err := e.registry.Prepare(req.Method, req.Seed)
	if err != nil {
		e.fail(req.Method, err)
		return nil, err
	}

	lines, tosses, err := e.castLines(ctx, strategy)
	if err != nil {
		e.fail(req.Method, err)
		return nil, err
	}

	source := req.Source
	if source == "" {
		source = e.resolver.Loader().Canonical()
	}
	primary, relating, err := e.Build(ctx, lines, source)
	if err != nil {
		e.fail(req.Method, err)
		return nil, err
	}

	r := &Reading{
		ID:        uuid.New().String(),
		Question:  req.Question,
		Method:    req.Method,
		Source:    source,
		Primary:   primary,
		Relating:  relating,
		Entropy:   tosses,
		CreatedAt: e.now().UTC(),
	}
	if _, seeded := strategy.(casting.Seeder); seeded {
		r.Seed = req.Seed
	}

	fields := []zap.Field{
		zap.String("id", r.ID),
		zap.String("method", string(r.Method)),
		zap.String("lines", lines.String()),
		zap.Int("primary", primary.Hexagram.Number),
		zap.String("source", r.SourceUsed()),
	}
	if relating != nil {
		fields = append(fields, zap.Int("relating", relating.Hexagram.Number))
	}
	e.log.Info("reading cast", fields...)

	for _, o := range e.observers {
		o.ObserveReading(r)
	}
	return r, nil
}

// CastReadingWithFallback is CastReading for callers that accept a
// substitute method. When the requested method is unavailable it walks the
// registry's fallback chain until a cast succeeds. It returns the methods
// that failed, in order.
func (e *Engine) CastReadingWithFallback(ctx context.Context, req Request) (*Reading, []casting.Method, error) {
	var failed []casting.Method
	for {
		r, err := e.CastReading(ctx, req)
		if err == nil || !errors.Is(err, faults.ErrUnavailable) {
			return r, failed, err
		}
		failed = append(failed, req.Method)
		sub, ferr := e.registry.Fallback(ctx, failed[0], failed[1:]...)
		if ferr != nil {
			return nil, failed, fmt.Errorf("%w (after %v)", err, ferr)
		}
		e.log.Info("substituting casting method",
			zap.String("failed", string(req.Method)),
			zap.String("substitute", string(sub.Method())),
		)
		req.Method = sub.Method()
	}
}

// #endregion cast-reading

// #region cast-hexagram
// CastHexagram casts six lines and resolves the primary hexagram against
// the canonical source, without building a Reading.
func (e *Engine) CastHexagram(ctx context.Context, method casting.Method, seed string) (CastHexagram, []casting.Toss, error) {
	strategy, err := e.registry.Prepare(method, seed)
	if err != nil {
		e.fail(method, err)
		return CastHexagram{}, nil, err
	}
	lines, tosses, err := e.castLines(ctx, strategy)
	if err != nil {
		e.fail(method, err)
		return CastHexagram{}, nil, err
	}
	primary, err := e.hexagram(ctx, lines, e.resolver.Loader().Canonical())
	if err != nil {
		return CastHexagram{}, nil, err
	}
	return primary, tosses, nil
}

// castLines draws six lines bottom to top, one after another.
func (e *Engine) castLines(ctx context.Context, s casting.Strategy) (reference.Lines, []casting.Toss, error) {
	var lines reference.Lines
	tosses := make([]casting.Toss, 0, len(lines))
	for i := range lines {
		t, err := s.CastLine(ctx)
		if err != nil {
			return lines, nil, err
		}
		if !t.Valid() {
			return lines, nil, fmt.Errorf("cast line %d: strategy %s returned coins %v", i+1, s.Method(), t.Coins)
		}
		lines[i] = t.Value()
		tosses = append(tosses, t)
	}
	return lines, tosses, nil
}

// #endregion cast-hexagram

// #region build
// Build turns six line values into the primary hexagram and, when any line
// moves, the relating hexagram (6 becomes 7, 9 becomes 8).
func (e *Engine) Build(ctx context.Context, lines reference.Lines, source string) (CastHexagram, *CastHexagram, error) {
	if err := lines.Validate(); err != nil {
		return CastHexagram{}, nil, err
	}
	primary, err := e.hexagram(ctx, lines, source)
	if err != nil {
		return CastHexagram{}, nil, fmt.Errorf("primary hexagram: %w", err)
	}
	if !lines.HasMoving() {
		return primary, nil, nil
	}
	relating, err := e.hexagram(ctx, lines.Changed(), source)
	if err != nil {
		return CastHexagram{}, nil, fmt.Errorf("relating hexagram: %w", err)
	}
	return primary, &relating, nil
}

func (e *Engine) hexagram(ctx context.Context, lines reference.Lines, source string) (CastHexagram, error) {
	rec, err := e.resolver.Loader().GetByLines(ctx, lines)
	if err != nil {
		return CastHexagram{}, err
	}
	res := e.resolver.ResolveSet(rec.Set, source)
	return CastHexagram{Lines: lines, Hexagram: rec.Hexagram, Bundle: res.Bundle}, nil
}

// #endregion build

// #region observe
func (e *Engine) fail(method casting.Method, err error) {
	e.log.Warn("cast failed", zap.String("method", string(method)), zap.Error(err))
	for _, o := range e.observers {
		o.ObserveFailure(method, err)
	}
}

// #endregion observe
