// Package casting holds the interchangeable entropy strategies that cast a
// single line. Every strategy tosses three fair coins worth 2 (yin) or 3
// (yang) and sums them, so P(6)=1/8, P(7)=3/8, P(8)=3/8, P(9)=1/8 whatever
// the entropy source.
package casting

import (
	"context"
	"fmt"

	"github.com/danielpatrickdp/hexagram-oracle/internal/faults"
	"github.com/danielpatrickdp/hexagram-oracle/internal/reference"
)

// #region method

// Method identifies a casting strategy. Each is named after an element.
type Method string

const (
	MethodWood  Method = "wood"  // general-purpose PRNG
	MethodMetal Method = "metal" // OS entropy device
	MethodFire  Method = "fire"  // cryptographic RNG
	MethodEarth Method = "earth" // deterministic, caller-supplied seed
	MethodAir   Method = "air"   // remote true-random service
)

// Methods lists every built-in method in registry order.
var Methods = []Method{MethodWood, MethodMetal, MethodFire, MethodEarth, MethodAir}

// Describe returns a one-line description of a method's entropy source.
func Describe(m Method) string {
	switch m {
	case MethodWood:
		return "general-purpose pseudo-random generator"
	case MethodMetal:
		return "operating system entropy pool"
	case MethodFire:
		return "cryptographic random generator"
	case MethodEarth:
		return "deterministic generator seeded by the caller"
	case MethodAir:
		return "remote true-random service"
	}
	return "unknown"
}

// #endregion method

// #region errors

var (
	ErrUnknownMethod = fmt.Errorf("%w: unknown casting method", faults.ErrInvalidArgument)
	ErrSeedRequired  = fmt.Errorf("%w: the earth method requires a seed", faults.ErrInvalidArgument)
)

// #endregion errors

// #region toss

const (
	yinCoin  = 2
	yangCoin = 3
)

// Toss is the raw result of one line cast: three coins, each 2 or 3.
type Toss struct {
	Coins [3]int `json:"coins"`
}

// Value sums the coins into a line value.
func (t Toss) Value() reference.LineValue {
	return reference.LineValue(t.Coins[0] + t.Coins[1] + t.Coins[2])
}

// Valid reports whether every coin is 2 or 3.
func (t Toss) Valid() bool {
	for _, c := range t.Coins {
		if c != yinCoin && c != yangCoin {
			return false
		}
	}
	return true
}

// tossFromBits maps three fair bits to coins.
func tossFromBits(a, b, c int) Toss {
	return Toss{Coins: [3]int{yinCoin + a&1, yinCoin + b&1, yinCoin + c&1}}
}

// #endregion toss

// #region strategy

// Strategy casts one line from a particular entropy source.
type Strategy interface {
	Method() Method
	CastLine(ctx context.Context) (Toss, error)
	// RequiresExternalResource is true when casting depends on something
	// outside the process that may be missing (network service).
	RequiresExternalResource() bool
	// Available probes the entropy source and explains why it cannot be used.
	Available(ctx context.Context) (bool, string)
}

// Seeder is implemented by strategies that need a seed before casting.
// WithSeed returns an independent, freshly seeded instance.
type Seeder interface {
	WithSeed(seed string) Strategy
}

// #endregion strategy
