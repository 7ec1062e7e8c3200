package engine

import (
	"time"

	"github.com/danielpatrickdp/hexagram-oracle/internal/casting"
	"github.com/danielpatrickdp/hexagram-oracle/internal/loader"
	"github.com/danielpatrickdp/hexagram-oracle/internal/reference"
)

// #region request
// Request asks for one reading. Seed is only used by the earth method.
type Request struct {
	Method   casting.Method `json:"method"`
	Question string         `json:"question"`
	Source   string         `json:"source,omitempty"`
	Seed     string         `json:"seed,omitempty"`
}

// #endregion request

// #region cast-hexagram
// CastHexagram is one cast figure: the original line values (moving lines
// not reduced), the hexagram their stable form names, and the display bundle.
type CastHexagram struct {
	Lines    reference.Lines    `json:"lines"`
	Hexagram reference.Hexagram `json:"hexagram"`
	Bundle   loader.Bundle      `json:"bundle"`
}

// MovingPositions returns the 1-based positions of moving lines.
func (c CastHexagram) MovingPositions() []int {
	return c.Lines.MovingPositions()
}

// #endregion cast-hexagram

// #region reading
// Reading is the result of one casting session. It is never modified after
// the engine returns it.
type Reading struct {
	ID        string         `json:"id"`
	Question  string         `json:"question"`
	Method    casting.Method `json:"method"`
	Seed      string         `json:"seed,omitempty"`
	Source    string         `json:"source"`
	Primary   CastHexagram   `json:"primary"`
	Relating  *CastHexagram  `json:"relating,omitempty"`
	Entropy   []casting.Toss `json:"entropy"`
	CreatedAt time.Time      `json:"created_at"`
}

// MovingPositions returns the 1-based positions of the primary's moving lines.
func (r *Reading) MovingPositions() []int {
	return r.Primary.MovingPositions()
}

// SourceUsed is the source the primary bundle came from, which is the
// canonical one when the requested source had nothing to offer.
func (r *Reading) SourceUsed() string {
	return r.Primary.Bundle.Source
}

// FellBack reports whether the requested source could not be honoured.
func (r *Reading) FellBack() bool {
	return r.Source != r.SourceUsed()
}

// #endregion reading

// #region observer
// Observer is told about every reading and every failed cast.
type Observer interface {
	ObserveReading(r *Reading)
	ObserveFailure(method casting.Method, err error)
}

// #endregion observer
