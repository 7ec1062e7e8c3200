package casting

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/hexagram-oracle/internal/faults"
)

// #region aliases

var aliases = map[string]Method{
	"random": MethodWood,
	"prng":   MethodWood,
	"os":     MethodMetal,
	"crypto": MethodFire,
	"secure": MethodFire,
	"seeded": MethodEarth,
	"seed":   MethodEarth,
	"remote": MethodAir,
	"true":   MethodAir,
}

// ParseMethod accepts an element name or one of its aliases.
func ParseMethod(s string) (Method, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for _, m := range Methods {
		if key == string(m) {
			return m, nil
		}
	}
	if m, ok := aliases[key]; ok {
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMethod, s)
}

// #endregion aliases

// #region fallback-chain

// fallbackChain maps a method to the ordered substitutes offered when it is unavailable.
var fallbackChain = map[Method][]Method{
	MethodAir:   {MethodFire, MethodMetal, MethodWood},
	MethodMetal: {MethodFire, MethodWood},
	MethodFire:  {MethodMetal, MethodWood},
	MethodWood:  {MethodFire, MethodMetal},
	MethodEarth: {MethodFire, MethodWood},
}

// #endregion fallback-chain

// #region registry

// Options configures the built-in strategies.
type Options struct {
	DevicePath string
	Remote     RemoteConfig
	Logger     *zap.Logger
}

// Registry maps methods to strategies. Build one at startup and pass it to the engine.
type Registry struct {
	mu         sync.RWMutex
	strategies map[Method]Strategy
	order      []Method
}

// NewRegistry registers the five built-in strategies.
func NewRegistry(opts Options) *Registry {
	r := &Registry{strategies: make(map[Method]Strategy)}
	r.Register(NewPRNG())
	r.Register(NewDevice(opts.DevicePath))
	r.Register(NewCrypto())
	r.Register(NewSeeded())
	r.Register(NewRemote(opts.Remote, opts.Logger))
	return r
}

// NewEmptyRegistry returns a registry with no strategies, for tests and custom wiring.
func NewEmptyRegistry() *Registry {
	return &Registry{strategies: make(map[Method]Strategy)}
}

// Register adds or replaces the strategy for its method.
func (r *Registry) Register(s Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := s.Method()
	if _, exists := r.strategies[m]; !exists {
		r.order = append(r.order, m)
	}
	r.strategies[m] = s
}

// Get returns the registered strategy for m.
func (r *Registry) Get(m Method) (Strategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.strategies[m]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, m)
	}
	return s, nil
}

// Prepare returns a strategy ready to cast: seeded strategies get a fresh
// instance carrying seed, others ignore it. Nothing is drawn.
func (r *Registry) Prepare(m Method, seed string) (Strategy, error) {
	s, err := r.Get(m)
	if err != nil {
		return nil, err
	}
	if seeder, ok := s.(Seeder); ok {
		if seed == "" {
			return nil, ErrSeedRequired
		}
		return seeder.WithSeed(seed), nil
	}
	return s, nil
}

// Methods returns registered methods in registration order.
func (r *Registry) Methods() []Method {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Method, len(r.order))
	copy(out, r.order)
	return out
}

// #endregion registry

// #region fallback

// Fallback picks the first available substitute for failed, skipping
// methods already tried. The seeded method is never offered since it
// needs a caller decision.
func (r *Registry) Fallback(ctx context.Context, failed Method, tried ...Method) (Strategy, error) {
	triedSet := map[Method]bool{failed: true}
	for _, t := range tried {
		triedSet[t] = true
	}

	chain, ok := fallbackChain[failed]
	if !ok {
		chain = fallbackChain[MethodAir]
	}
	for _, m := range chain {
		if triedSet[m] {
			continue
		}
		s, err := r.Get(m)
		if err != nil {
			continue
		}
		if ok, _ := s.Available(ctx); ok {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: no substitute for %s", faults.ErrUnavailable, failed)
}

// #endregion fallback

// #region status

// Status describes one registered method and whether it can be used right now.
type Status struct {
	Method      Method `json:"method"`
	Description string `json:"description"`
	External    bool   `json:"external"`
	Available   bool   `json:"available"`
	Reason      string `json:"reason,omitempty"`
}

// Status probes every registered strategy.
func (r *Registry) Status(ctx context.Context) []Status {
	var out []Status
	for _, m := range r.Methods() {
		s, err := r.Get(m)
		if err != nil {
			continue
		}
		ok, reason := s.Available(ctx)
		out = append(out, Status{
			Method:      m,
			Description: Describe(m),
			External:    s.RequiresExternalResource(),
			Available:   ok,
			Reason:      reason,
		})
	}
	return out
}

// #endregion status
