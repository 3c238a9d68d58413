package strategy

import (
	"time"

	"github.com/ducminhle1904/regime-trading-bot/pkg/types"
)

// Direction is the directional outcome of a fused decision
type Direction int

const (
	DirectionFlat Direction = iota
	DirectionLong
	DirectionShort
)

func (d Direction) String() string {
	switch d {
	case DirectionLong:
		return "LONG"
	case DirectionShort:
		return "SHORT"
	default:
		return "FLAT"
	}
}

// Signal is the fused per-bar decision consumed by the position manager
type Signal struct {
	Direction  Direction `json:"direction"`
	Confidence float64   `json:"confidence"` // 0-100
	Score      float64   `json:"score"`      // Raw combined score in [-1, 1]
	Strategy   string    `json:"strategy"`   // Originating engine name
	Reason     string    `json:"reason"`
	Timestamp  time.Time `json:"timestamp"`
}

// Voter is one named strategy: a pure function from a candle window to a
// directional vote. Vote returns -1, 0, or +1; an error means the vote
// could not be computed (insufficient history) and must be excluded from
// the weighted blend rather than counted as neutral.
type Voter interface {
	Name() string
	Vote(window []types.OHLCV) (int, error)
}
