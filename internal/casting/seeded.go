package casting

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math/rand/v2"
	"sync"
)

// #region earth

// SeededStrategy (earth) is deterministic: the seed string is hashed with
// SHA-256 into a PCG state, so the same seed always yields the same lines.
type SeededStrategy struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSeeded returns an unseeded earth strategy. CastLine fails with
// ErrSeedRequired until Seed is called.
func NewSeeded() *SeededStrategy {
	return &SeededStrategy{}
}

// Seed resets the generator. An empty seed clears it.
func (s *SeededStrategy) Seed(seed string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seed == "" {
		s.rng = nil
		return
	}
	sum := sha256.Sum256([]byte(seed))
	s.rng = rand.New(rand.NewPCG(
		binary.BigEndian.Uint64(sum[0:8]),
		binary.BigEndian.Uint64(sum[8:16]),
	))
}

// WithSeed returns a new strategy seeded with seed, leaving s untouched.
func (s *SeededStrategy) WithSeed(seed string) Strategy {
	n := NewSeeded()
	n.Seed(seed)
	return n
}

func (s *SeededStrategy) Method() Method { return MethodEarth }

func (s *SeededStrategy) CastLine(ctx context.Context) (Toss, error) {
	if err := ctx.Err(); err != nil {
		return Toss{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rng == nil {
		return Toss{}, ErrSeedRequired
	}
	return tossFromBits(s.rng.IntN(2), s.rng.IntN(2), s.rng.IntN(2)), nil
}

// Seeded reports whether a seed has been supplied.
func (s *SeededStrategy) Seeded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng != nil
}

func (s *SeededStrategy) RequiresExternalResource() bool { return false }

func (s *SeededStrategy) Available(context.Context) (bool, string) { return true, "" }

// #endregion earth
