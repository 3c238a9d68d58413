package position

import (
	"time"

	"github.com/ducminhle1904/regime-trading-bot/internal/regime"
)

// Side is the direction of a position.
type Side int

const (
	SideLong Side = iota
	SideShort
)

func (s Side) String() string {
	if s == SideShort {
		return "short"
	}
	return "long"
}

// Sign returns +1 for longs and -1 for shorts.
func (s Side) Sign() float64 {
	if s == SideShort {
		return -1
	}
	return 1
}

// Status tracks a position through its lifecycle.
type Status string

const (
	StatusPending          Status = "pending"
	StatusOpen             Status = "open"
	StatusTrailingInactive Status = "trailing_inactive"
	StatusTrailingActive   Status = "trailing_active"
	StatusClosed           Status = "closed"
)

// TrailingMode selects the stop-tightening discipline.
type TrailingMode string

const (
	ModeRatchet   TrailingMode = "ratchet"
	ModeEscalator TrailingMode = "escalator"
	ModeBest      TrailingMode = "both_take_best"
)

// ExitReason records why a position was closed.
type ExitReason string

const (
	ExitStopLoss       ExitReason = "stop_loss"
	ExitTakeProfit     ExitReason = "take_profit"
	ExitTrailingStop   ExitReason = "trailing_stop"
	ExitSignalReversal ExitReason = "signal_reversal"
	ExitForceClose     ExitReason = "force_close"
)

// Position is a live perpetual-futures position managed by the Manager.
type Position struct {
	ID       string
	Symbol   string
	Side     Side
	Status   Status
	OpenTime time.Time

	EntryPrice float64
	Quantity   float64
	Leverage   float64
	Margin     float64
	EntryATR   float64

	StopLoss    float64
	InitialStop float64
	TakeProfit  float64

	// Watermarks feed the trailing disciplines.
	HighWaterMark float64
	LowWaterMark  float64

	// Timeframe is the analysis timeframe; escalates once the
	// position is deep enough in profit.
	Timeframe string

	OpenRegime  regime.Regime
	FundingPaid float64
}

// ProfitPct returns the unleveraged price move in the position's
// favor as a percentage of entry.
func (p *Position) ProfitPct(price float64) float64 {
	if p.EntryPrice == 0 {
		return 0
	}
	return (price - p.EntryPrice) / p.EntryPrice * p.Side.Sign() * 100
}

// Notional returns the position value at entry.
func (p *Position) Notional() float64 {
	return p.Quantity * p.EntryPrice
}

// UnrealizedPnL returns the mark-to-market profit before fees and funding.
func (p *Position) UnrealizedPnL(price float64) float64 {
	return p.Quantity * (price - p.EntryPrice) * p.Side.Sign() * p.Leverage
}

// ClosedTrade is the immutable record of a finished position.
type ClosedTrade struct {
	ID     string
	Symbol string
	Side   Side

	EntryPrice float64
	ExitPrice  float64
	Quantity   float64
	Leverage   float64
	Margin     float64

	OpenTime  time.Time
	CloseTime time.Time
	Reason    ExitReason

	Fees    float64
	Funding float64
	PnL     float64

	// ReturnPct is PnL over margin.
	ReturnPct float64

	OpenRegime regime.Regime
}

// Duration returns how long the position was held.
func (t *ClosedTrade) Duration() time.Duration {
	return t.CloseTime.Sub(t.OpenTime)
}

// StopUpdate reports a trailing-stop move.
type StopUpdate struct {
	Symbol  string
	OldStop float64
	NewStop float64
	Mode    TrailingMode
}

// BarResult is everything that happened to a position during one closed candle.
type BarResult struct {
	Stop               *StopUpdate
	Closed             *ClosedTrade
	TrailingActivated  bool
	TimeframeEscalated bool
}

// EventSink receives lifecycle notifications from the Manager.
// All methods may be called from the bot's decision loop.
type EventSink interface {
	PositionOpened(p Position)
	StopMoved(p Position, update StopUpdate)
	PositionClosed(t ClosedTrade)
}
