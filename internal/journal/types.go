package journal

import (
	"time"

	"github.com/danielpatrickdp/hexagram-oracle/internal/casting"
	"github.com/danielpatrickdp/hexagram-oracle/internal/reference"
)

// #region summary
// Summary is one row of the reading index, without the interpretation text.
type Summary struct {
	ID         string          `json:"id"`
	Question   string          `json:"question"`
	Method     casting.Method  `json:"method"`
	Source     string          `json:"source"` // requested
	SourceUsed string          `json:"source_used"`
	Primary    int             `json:"primary"`
	Relating   int             `json:"relating,omitempty"` // 0 when no line moved
	Lines      reference.Lines `json:"lines"`
	CreatedAt  time.Time       `json:"created_at"`
}

// #endregion summary

// #region entropy-entry
// EntropyEntry records where one line of a reading came from.
type EntropyEntry struct {
	ReadingID string              `json:"reading_id"`
	Position  int                 `json:"position"` // 1..6, bottom first
	Method    casting.Method      `json:"method"`
	Coins     [3]int              `json:"coins"`
	Value     reference.LineValue `json:"value"`
	CreatedAt time.Time           `json:"created_at"`
}

// #endregion entropy-entry

// #region failure
// Failure records a cast that did not produce a reading.
type Failure struct {
	Method    casting.Method `json:"method"`
	Class     string         `json:"class"`
	Reason    string         `json:"reason,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// #endregion failure
