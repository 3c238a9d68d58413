package position

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	berrors "github.com/ducminhle1904/regime-trading-bot/internal/errors"
	"github.com/ducminhle1904/regime-trading-bot/internal/regime"
	"github.com/ducminhle1904/regime-trading-bot/pkg/types"
)

const component = "position_manager"

// Manager owns the lifecycle of one position per symbol: sizing, stop
// placement, trailing, and close accounting. All methods are safe for
// concurrent use.
type Manager struct {
	mu        sync.Mutex
	config    Config
	positions map[string]*Position
	ledger    *Ledger
	sink      EventSink
	seq       int
}

// NewManager validates the config and returns a Manager recording
// closed trades into ledger.
func NewManager(cfg Config, ledger *Ledger) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, berrors.NewConfigurationError(component, "new_manager", err.Error())
	}
	if ledger == nil {
		return nil, berrors.NewConfigurationError(component, "new_manager", "ledger is required")
	}
	return &Manager{
		config:    cfg,
		positions: make(map[string]*Position),
		ledger:    ledger,
	}, nil
}

// SetEventSink registers a lifecycle listener. Pass nil to detach.
func (m *Manager) SetEventSink(sink EventSink) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sink = sink
}

// OpenRequest carries everything the Manager needs to size and place
// a new position.
type OpenRequest struct {
	Symbol     string
	Side       Side
	EntryPrice float64
	ATR        float64
	Balance    float64
	Regime     regime.Regime
	Timestamp  time.Time
}

// Open sizes and registers a new pending position. It fails if the
// symbol already has one; the caller must close it first.
func (m *Manager) Open(req OpenRequest) (Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if req.Symbol == "" {
		return Position{}, berrors.NewValidationError(component, "open", "symbol is required")
	}
	if existing, ok := m.positions[req.Symbol]; ok {
		return Position{}, berrors.NewBotError(berrors.ErrorCategoryPosition, component, "open",
			fmt.Sprintf("position %s already open for %s", existing.ID, req.Symbol))
	}

	sizing, serr := computeSizing(m.config, req.Side, req.Balance, req.EntryPrice, req.ATR, req.Regime)
	if serr != nil {
		return Position{}, serr.WithContext("symbol", req.Symbol)
	}

	m.seq++
	p := &Position{
		ID:            fmt.Sprintf("%s-%d", req.Symbol, m.seq),
		Symbol:        req.Symbol,
		Side:          req.Side,
		Status:        StatusPending,
		OpenTime:      req.Timestamp,
		EntryPrice:    req.EntryPrice,
		Quantity:      sizing.Quantity,
		Leverage:      m.config.Leverage,
		Margin:        sizing.Margin,
		EntryATR:      req.ATR,
		StopLoss:      sizing.StopLoss,
		InitialStop:   sizing.StopLoss,
		TakeProfit:    sizing.TakeProfit,
		HighWaterMark: req.EntryPrice,
		LowWaterMark:  req.EntryPrice,
		Timeframe:     m.config.BaseTimeframe,
		OpenRegime:    req.Regime,
	}
	m.positions[req.Symbol] = p
	return *p, nil
}

// Confirm marks a pending position as filled. Live trading calls this
// after the entry order is accepted; backtests call it immediately.
func (m *Manager) Confirm(symbol string) (Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.positions[symbol]
	if !ok {
		return Position{}, m.notFound("confirm", symbol)
	}
	if p.Status != StatusPending {
		return Position{}, berrors.NewBotError(berrors.ErrorCategoryPosition, component, "confirm",
			fmt.Sprintf("position %s is %s, not pending", p.ID, p.Status))
	}
	p.Status = StatusOpen

	snapshot := *p
	if m.sink != nil {
		m.sink.PositionOpened(snapshot)
	}
	return snapshot, nil
}

// Restore reinstates a previously persisted position, keeping its
// watermarks, stop, and trailing status. Used when the live bot
// resumes after a restart.
func (m *Manager) Restore(p Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p.Symbol == "" {
		return berrors.NewValidationError(component, "restore", "symbol is required")
	}
	if _, ok := m.positions[p.Symbol]; ok {
		return berrors.NewBotError(berrors.ErrorCategoryPosition, component, "restore",
			fmt.Sprintf("position already open for %s", p.Symbol))
	}
	switch p.Status {
	case StatusOpen, StatusTrailingInactive, StatusTrailingActive:
	default:
		return berrors.NewBotError(berrors.ErrorCategoryPosition, component, "restore",
			fmt.Sprintf("cannot restore a %s position", p.Status))
	}

	restored := p
	m.positions[p.Symbol] = &restored
	m.seq++
	return nil
}

// Abort discards a pending position whose entry order never filled.
// Nothing is recorded in the ledger.
func (m *Manager) Abort(symbol string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.positions[symbol]
	if !ok {
		return m.notFound("abort", symbol)
	}
	if p.Status != StatusPending {
		return berrors.NewBotError(berrors.ErrorCategoryPosition, component, "abort",
			fmt.Sprintf("position %s is %s, not pending", p.ID, p.Status))
	}
	delete(m.positions, symbol)
	return nil
}

// OnBar advances the position for symbol by one closed candle: exit
// checks against the stop and take-profit, watermark updates, trailing
// activation and tightening, and timeframe escalation. atr is the
// current ATR on the position's analysis timeframe.
//
// Stops moved during this bar take effect from the next bar; the exit
// check runs against the levels as they stood when the candle opened.
func (m *Manager) OnBar(symbol string, bar types.OHLCV, atr float64) (BarResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.positions[symbol]
	if !ok {
		return BarResult{}, m.notFound("on_bar", symbol)
	}
	if p.Status == StatusPending {
		return BarResult{}, berrors.NewBotError(berrors.ErrorCategoryPosition, component, "on_bar",
			fmt.Sprintf("position %s has not been confirmed", p.ID))
	}

	var result BarResult

	if exitPrice, reason, hit := p.exitLevel(bar); hit {
		trade := m.closeLocked(p, exitPrice, reason, bar.Timestamp)
		result.Closed = &trade
		return result, nil
	}

	if p.Status == StatusOpen {
		p.Status = StatusTrailingInactive
	}

	if bar.High > p.HighWaterMark {
		p.HighWaterMark = bar.High
	}
	if bar.Low < p.LowWaterMark {
		p.LowWaterMark = bar.Low
	}

	profit := p.ProfitPct(bar.Close)

	if p.Status == StatusTrailingInactive && profit >= m.config.Trailing.ActivationPct {
		p.Status = StatusTrailingActive
		result.TrailingActivated = true
	}

	if p.Status == StatusTrailingActive {
		if candidate, mode, ok := trailingCandidate(m.config.Trailing, p, bar.Close, atr); ok {
			update := StopUpdate{
				Symbol:  symbol,
				OldStop: p.StopLoss,
				NewStop: candidate,
				Mode:    mode,
			}
			p.StopLoss = candidate
			result.Stop = &update
			if m.sink != nil {
				m.sink.StopMoved(*p, update)
			}
		}
	}

	if p.Timeframe == m.config.BaseTimeframe && profit >= m.config.EscalationProfitPct {
		p.Timeframe = m.config.EscalatedTimeframe
		result.TimeframeEscalated = true
	}

	return result, nil
}

// exitLevel checks the candle extremes against the stop and take-profit.
// When both sit inside the same candle the stop wins.
func (p *Position) exitLevel(bar types.OHLCV) (float64, ExitReason, bool) {
	stopReason := ExitStopLoss
	if p.Status == StatusTrailingActive {
		stopReason = ExitTrailingStop
	}
	if p.Side == SideLong {
		if bar.Low <= p.StopLoss {
			return p.StopLoss, stopReason, true
		}
		if bar.High >= p.TakeProfit {
			return p.TakeProfit, ExitTakeProfit, true
		}
		return 0, "", false
	}
	if bar.High >= p.StopLoss {
		return p.StopLoss, stopReason, true
	}
	if bar.Low <= p.TakeProfit {
		return p.TakeProfit, ExitTakeProfit, true
	}
	return 0, "", false
}

// Close exits the position at price for the given reason. Used for
// signal reversals and operator-initiated force closes.
func (m *Manager) Close(symbol string, price float64, reason ExitReason, at time.Time) (ClosedTrade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.positions[symbol]
	if !ok {
		return ClosedTrade{}, m.notFound("close", symbol)
	}
	if price <= 0 {
		return ClosedTrade{}, berrors.NewValidationError(component, "close",
			fmt.Sprintf("exit price must be positive, got %.4f", price))
	}
	return m.closeLocked(p, price, reason, at), nil
}

// closeLocked settles the position and records the trade. Caller holds m.mu.
func (m *Manager) closeLocked(p *Position, exitPrice float64, reason ExitReason, at time.Time) ClosedTrade {
	gross := p.Quantity * (exitPrice - p.EntryPrice) * p.Side.Sign() * p.Leverage
	fees := m.config.FeeRate * p.Quantity * (p.EntryPrice + exitPrice)
	pnl := gross - fees - p.FundingPaid

	returnPct := 0.0
	if p.Margin > 0 {
		returnPct = pnl / p.Margin * 100
	}

	trade := ClosedTrade{
		ID:         p.ID,
		Symbol:     p.Symbol,
		Side:       p.Side,
		EntryPrice: p.EntryPrice,
		ExitPrice:  exitPrice,
		Quantity:   p.Quantity,
		Leverage:   p.Leverage,
		Margin:     p.Margin,
		OpenTime:   p.OpenTime,
		CloseTime:  at,
		Reason:     reason,
		Fees:       fees,
		Funding:    p.FundingPaid,
		PnL:        pnl,
		ReturnPct:  returnPct,
		OpenRegime: p.OpenRegime,
	}

	p.Status = StatusClosed
	delete(m.positions, p.Symbol)
	m.ledger.Record(trade)
	if m.sink != nil {
		m.sink.PositionClosed(trade)
	}
	return trade
}

// RecordFunding accrues a funding payment against the open position.
// A positive rate costs longs and pays shorts.
func (m *Manager) RecordFunding(symbol string, payment types.FundingPayment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.positions[symbol]
	if !ok {
		return m.notFound("record_funding", symbol)
	}
	p.FundingPaid += p.Notional() * payment.Rate * p.Side.Sign()
	return nil
}

// Get returns a snapshot of the open position for symbol.
func (m *Manager) Get(symbol string) (Position, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.positions[symbol]
	if !ok {
		return Position{}, false
	}
	return *p, true
}

// Symbols lists the symbols with open positions in stable order.
func (m *Manager) Symbols() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0, len(m.positions))
	for s := range m.positions {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Count returns the number of open positions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.positions)
}

// AnalysisTimeframe returns the timeframe the position for symbol
// should be analyzed on, or the base timeframe when none is open.
func (m *Manager) AnalysisTimeframe(symbol string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p, ok := m.positions[symbol]; ok {
		return p.Timeframe
	}
	return m.config.BaseTimeframe
}

// TotalMargin returns the margin committed across all open positions.
func (m *Manager) TotalMargin() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	total := 0.0
	for _, p := range m.positions {
		total += p.Margin
	}
	return total
}

// UnrealizedPnL marks all open positions against the given prices.
// Symbols missing from the map are skipped.
func (m *Manager) UnrealizedPnL(prices map[string]float64) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	total := 0.0
	for s, p := range m.positions {
		price, ok := prices[s]
		if !ok || math.IsNaN(price) {
			continue
		}
		total += p.UnrealizedPnL(price)
	}
	return total
}

// Ledger returns the trade ledger shared with this Manager.
func (m *Manager) Ledger() *Ledger {
	return m.ledger
}

func (m *Manager) notFound(op, symbol string) *berrors.BotError {
	return berrors.NewBotError(berrors.ErrorCategoryPosition, component, op,
		fmt.Sprintf("no open position for %s", symbol))
}
