package position

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/regime-trading-bot/internal/regime"
	"github.com/ducminhle1904/regime-trading-bot/pkg/types"
)

var t0 = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func candle(ts time.Time, open, high, low, close float64) types.OHLCV {
	return types.OHLCV{Timestamp: ts, Open: open, High: high, Low: low, Close: close, Volume: 1000}
}

// testConfig pushes take-profits far away so trailing behavior can be
// observed without the TP closing the position first.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.RegimeTP = map[regime.Regime]float64{
		regime.RegimeTrending: 50,
		regime.RegimeUnknown:  50,
	}
	return cfg
}

func newTestManager(t *testing.T, cfg Config, balance float64) *Manager {
	t.Helper()
	m, err := NewManager(cfg, NewLedger(balance))
	require.NoError(t, err)
	return m
}

func openLong(t *testing.T, m *Manager, balance, entry, atr float64) Position {
	t.Helper()
	p, err := m.Open(OpenRequest{
		Symbol:     "BTCUSDT",
		Side:       SideLong,
		EntryPrice: entry,
		ATR:        atr,
		Balance:    balance,
		Regime:     regime.RegimeTrending,
		Timestamp:  t0,
	})
	require.NoError(t, err)
	_, err = m.Confirm("BTCUSDT")
	require.NoError(t, err)
	return p
}

func TestSizing(t *testing.T) {
	cfg := DefaultConfig()

	s, serr := computeSizing(cfg, SideLong, 10000, 100, 1.0, regime.RegimeTrending)
	require.Nil(t, serr)

	assert.InDelta(t, 100.0, s.RiskAmount, 1e-9)
	assert.InDelta(t, 250.0, s.PositionValue, 1e-9)
	assert.InDelta(t, 2.5, s.Quantity, 1e-9)
	assert.InDelta(t, 50.0, s.Margin, 1e-9)
	assert.InDelta(t, 2.0, s.StopDistancePct, 1e-9)
	assert.InDelta(t, 98.0, s.StopLoss, 1e-9)
	assert.InDelta(t, 105.0, s.TakeProfit, 1e-9)
}

func TestSizingShortMirrorsLevels(t *testing.T) {
	cfg := DefaultConfig()

	s, serr := computeSizing(cfg, SideShort, 10000, 100, 1.0, regime.RegimeTrending)
	require.Nil(t, serr)

	assert.InDelta(t, 102.0, s.StopLoss, 1e-9)
	assert.InDelta(t, 95.0, s.TakeProfit, 1e-9)
}

func TestSizingRegimeScalesRisk(t *testing.T) {
	cfg := DefaultConfig()

	s, serr := computeSizing(cfg, SideLong, 10000, 100, 1.0, regime.RegimeVolatile)
	require.Nil(t, serr)

	assert.InDelta(t, 50.0, s.RiskAmount, 1e-9)
	assert.InDelta(t, 125.0, s.PositionValue, 1e-9)
}

func TestSizingRespectsMarginCap(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxMarginPct = 10

	// A very tight stop inflates the position value past the cap.
	s, serr := computeSizing(cfg, SideLong, 1000, 100, 0.025, regime.RegimeTrending)
	require.Nil(t, serr)

	assert.InDelta(t, 100.0, s.Margin, 1e-9)
	assert.InDelta(t, 500.0, s.PositionValue, 1e-9)
}

func TestSizingRejectsBadInputs(t *testing.T) {
	cfg := DefaultConfig()

	_, serr := computeSizing(cfg, SideLong, 0, 100, 1, regime.RegimeTrending)
	assert.NotNil(t, serr)

	_, serr = computeSizing(cfg, SideLong, 10000, 100, 0, regime.RegimeTrending)
	assert.NotNil(t, serr)

	_, serr = computeSizing(cfg, SideLong, 10000, 100, 60, regime.RegimeTrending)
	assert.NotNil(t, serr, "stop distance beyond entry must be rejected")
}

func TestOpenRejectsDuplicateSymbol(t *testing.T) {
	m := newTestManager(t, testConfig(), 10000)
	openLong(t, m, 10000, 100, 1)

	_, err := m.Open(OpenRequest{
		Symbol:     "BTCUSDT",
		Side:       SideShort,
		EntryPrice: 101,
		ATR:        1,
		Balance:    10000,
		Regime:     regime.RegimeTrending,
		Timestamp:  t0,
	})
	assert.Error(t, err)
	assert.Equal(t, 1, m.Count())
}

func TestOpenSizingFailureLeavesNoPosition(t *testing.T) {
	m := newTestManager(t, testConfig(), 10000)

	_, err := m.Open(OpenRequest{
		Symbol:     "BTCUSDT",
		Side:       SideLong,
		EntryPrice: 100,
		ATR:        -1,
		Balance:    10000,
		Regime:     regime.RegimeTrending,
		Timestamp:  t0,
	})
	assert.Error(t, err)
	assert.Equal(t, 0, m.Count())
}

func TestAbortDiscardsPendingPosition(t *testing.T) {
	m := newTestManager(t, testConfig(), 10000)
	_, err := m.Open(OpenRequest{
		Symbol:     "BTCUSDT",
		Side:       SideLong,
		EntryPrice: 100,
		ATR:        1,
		Balance:    10000,
		Regime:     regime.RegimeTrending,
		Timestamp:  t0,
	})
	require.NoError(t, err)

	require.NoError(t, m.Abort("BTCUSDT"))
	assert.Zero(t, m.Count())
	assert.Empty(t, m.Ledger().Trades())

	// Aborting again or after confirmation fails.
	assert.Error(t, m.Abort("BTCUSDT"))
	openLong(t, m, 10000, 100, 1)
	assert.Error(t, m.Abort("BTCUSDT"))
}

func TestRestoreReinstatesPosition(t *testing.T) {
	m := newTestManager(t, testConfig(), 10000)
	p := openLong(t, m, 10000, 100, 1)

	// Ratchet the stop so the restored state is mid-lifecycle.
	_, err := m.OnBar("BTCUSDT", candle(t0.Add(time.Hour), 100, 102, 100, 102), 1)
	require.NoError(t, err)
	saved, ok := m.Get("BTCUSDT")
	require.True(t, ok)

	fresh := newTestManager(t, testConfig(), 10000)
	require.NoError(t, fresh.Restore(saved))

	got, ok := fresh.Get("BTCUSDT")
	require.True(t, ok)
	assert.Equal(t, saved.Status, got.Status)
	assert.Equal(t, saved.StopLoss, got.StopLoss)
	assert.Equal(t, saved.HighWaterMark, got.HighWaterMark)
	assert.Equal(t, p.EntryPrice, got.EntryPrice)

	// The restored position keeps trading normally.
	_, err = fresh.OnBar("BTCUSDT", candle(t0.Add(2*time.Hour), 102, 103, 101.5, 103), 1)
	require.NoError(t, err)

	// Restoring over an open position or a closed snapshot fails.
	assert.Error(t, fresh.Restore(saved))
	closed := saved
	closed.Symbol = "ETHUSDT"
	closed.Status = StatusClosed
	assert.Error(t, fresh.Restore(closed))
}

func TestOnBarRequiresConfirmedPosition(t *testing.T) {
	m := newTestManager(t, testConfig(), 10000)
	_, err := m.Open(OpenRequest{
		Symbol:     "BTCUSDT",
		Side:       SideLong,
		EntryPrice: 100,
		ATR:        1,
		Balance:    10000,
		Regime:     regime.RegimeTrending,
		Timestamp:  t0,
	})
	require.NoError(t, err)

	_, err = m.OnBar("BTCUSDT", candle(t0, 100, 101, 99, 100.5), 1)
	assert.Error(t, err)
}

func TestUnknownSymbolReturnsError(t *testing.T) {
	m := newTestManager(t, testConfig(), 10000)

	_, err := m.OnBar("ETHUSDT", candle(t0, 100, 101, 99, 100), 1)
	assert.Error(t, err)

	_, err = m.Close("ETHUSDT", 100, ExitForceClose, t0)
	assert.Error(t, err)
}

func TestStopLossExit(t *testing.T) {
	m := newTestManager(t, testConfig(), 10000)
	p := openLong(t, m, 10000, 100, 1)
	assert.InDelta(t, 98.0, p.StopLoss, 1e-9)

	res, err := m.OnBar("BTCUSDT", candle(t0.Add(time.Hour), 99, 99.5, 97.5, 97.8), 1)
	require.NoError(t, err)
	require.NotNil(t, res.Closed)

	assert.Equal(t, ExitStopLoss, res.Closed.Reason)
	assert.InDelta(t, 98.0, res.Closed.ExitPrice, 1e-9)
	assert.Less(t, res.Closed.PnL, 0.0)

	_, open := m.Get("BTCUSDT")
	assert.False(t, open)
	assert.Len(t, m.Ledger().Trades(), 1)
}

func TestTakeProfitExit(t *testing.T) {
	cfg := DefaultConfig()
	m := newTestManager(t, cfg, 10000)
	p := openLong(t, m, 10000, 100, 1)
	assert.InDelta(t, 105.0, p.TakeProfit, 1e-9)

	res, err := m.OnBar("BTCUSDT", candle(t0.Add(time.Hour), 104, 105.5, 103.8, 105.2), 1)
	require.NoError(t, err)
	require.NotNil(t, res.Closed)

	assert.Equal(t, ExitTakeProfit, res.Closed.Reason)
	assert.InDelta(t, 105.0, res.Closed.ExitPrice, 1e-9)
	assert.Greater(t, res.Closed.PnL, 0.0)
}

func TestShortStopAboveEntry(t *testing.T) {
	m := newTestManager(t, testConfig(), 10000)
	_, err := m.Open(OpenRequest{
		Symbol:     "BTCUSDT",
		Side:       SideShort,
		EntryPrice: 100,
		ATR:        1,
		Balance:    10000,
		Regime:     regime.RegimeTrending,
		Timestamp:  t0,
	})
	require.NoError(t, err)
	_, err = m.Confirm("BTCUSDT")
	require.NoError(t, err)

	res, err := m.OnBar("BTCUSDT", candle(t0.Add(time.Hour), 101, 102.5, 100.8, 102.2), 1)
	require.NoError(t, err)
	require.NotNil(t, res.Closed)
	assert.Equal(t, ExitStopLoss, res.Closed.Reason)
	assert.InDelta(t, 102.0, res.Closed.ExitPrice, 1e-9)
}

func TestPnLRoundTrip(t *testing.T) {
	cfg := testConfig()
	cfg.Leverage = 1
	cfg.FeeRate = 0

	m := newTestManager(t, cfg, 10000)
	p := openLong(t, m, 10000, 100, 0.5)
	require.InDelta(t, 1.0, p.Quantity, 1e-9)

	trade, err := m.Close("BTCUSDT", 110, ExitSignalReversal, t0.Add(time.Hour))
	require.NoError(t, err)

	assert.InDelta(t, 10.0, trade.PnL, 1e-9)
	assert.Equal(t, ExitSignalReversal, trade.Reason)
}

func TestPnLFeesSymmetric(t *testing.T) {
	cfg := testConfig()
	cfg.Leverage = 1
	cfg.FeeRate = 0.001

	m := newTestManager(t, cfg, 10000)
	p := openLong(t, m, 10000, 100, 0.5)
	require.InDelta(t, 1.0, p.Quantity, 1e-9)

	trade, err := m.Close("BTCUSDT", 110, ExitSignalReversal, t0.Add(time.Hour))
	require.NoError(t, err)

	assert.InDelta(t, 0.001*(100+110), trade.Fees, 1e-9)
	assert.InDelta(t, 10.0-0.001*(100+110), trade.PnL, 1e-9)
}

func TestPnLShortProfitsFromDrop(t *testing.T) {
	cfg := testConfig()
	cfg.Leverage = 1
	cfg.FeeRate = 0

	m := newTestManager(t, cfg, 10000)
	_, err := m.Open(OpenRequest{
		Symbol:     "BTCUSDT",
		Side:       SideShort,
		EntryPrice: 100,
		ATR:        0.5,
		Balance:    10000,
		Regime:     regime.RegimeTrending,
		Timestamp:  t0,
	})
	require.NoError(t, err)

	trade, err := m.Close("BTCUSDT", 90, ExitSignalReversal, t0.Add(time.Hour))
	require.NoError(t, err)
	assert.InDelta(t, 10.0, trade.PnL, 1e-9)
}

func TestPnLLeverageScalesPriceMove(t *testing.T) {
	cfg := testConfig()
	cfg.Leverage = 5
	cfg.FeeRate = 0

	m := newTestManager(t, cfg, 10000)
	p := openLong(t, m, 10000, 100, 1)

	trade, err := m.Close("BTCUSDT", 110, ExitSignalReversal, t0.Add(time.Hour))
	require.NoError(t, err)
	assert.InDelta(t, p.Quantity*10*5, trade.PnL, 1e-9)
}

func TestFundingReducesLongPnL(t *testing.T) {
	cfg := testConfig()
	cfg.Leverage = 1
	cfg.FeeRate = 0

	m := newTestManager(t, cfg, 10000)
	p := openLong(t, m, 10000, 100, 0.5)

	err := m.RecordFunding("BTCUSDT", types.FundingPayment{Rate: 0.001, Timestamp: t0.Add(8 * time.Hour)})
	require.NoError(t, err)

	trade, err := m.Close("BTCUSDT", 110, ExitSignalReversal, t0.Add(time.Hour))
	require.NoError(t, err)

	funding := p.Quantity * 100 * 0.001
	assert.InDelta(t, funding, trade.Funding, 1e-9)
	assert.InDelta(t, 10.0-funding, trade.PnL, 1e-9)
}

func TestTimeframeEscalation(t *testing.T) {
	m := newTestManager(t, testConfig(), 10000)
	openLong(t, m, 10000, 100, 1)
	assert.Equal(t, "1h", m.AnalysisTimeframe("BTCUSDT"))

	res, err := m.OnBar("BTCUSDT", candle(t0.Add(time.Hour), 102, 103.6, 101.8, 103.5), 1)
	require.NoError(t, err)

	assert.True(t, res.TimeframeEscalated)
	assert.Equal(t, "4h", m.AnalysisTimeframe("BTCUSDT"))

	// Escalation is one-way.
	res, err = m.OnBar("BTCUSDT", candle(t0.Add(2*time.Hour), 103.5, 104, 103, 103.8), 1)
	require.NoError(t, err)
	assert.False(t, res.TimeframeEscalated)
}

type recordingSink struct {
	opened []Position
	moved  []StopUpdate
	closed []ClosedTrade
}

func (r *recordingSink) PositionOpened(p Position)          { r.opened = append(r.opened, p) }
func (r *recordingSink) StopMoved(p Position, u StopUpdate) { r.moved = append(r.moved, u) }
func (r *recordingSink) PositionClosed(t ClosedTrade)       { r.closed = append(r.closed, t) }

func TestEventSinkReceivesLifecycle(t *testing.T) {
	m := newTestManager(t, testConfig(), 10000)
	sink := &recordingSink{}
	m.SetEventSink(sink)

	openLong(t, m, 10000, 100, 1)
	require.Len(t, sink.opened, 1)
	assert.Equal(t, "BTCUSDT", sink.opened[0].Symbol)

	_, err := m.OnBar("BTCUSDT", candle(t0.Add(time.Hour), 102, 103.1, 101.8, 103), 0.5)
	require.NoError(t, err)
	assert.NotEmpty(t, sink.moved)

	_, err = m.Close("BTCUSDT", 103, ExitForceClose, t0.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, sink.closed, 1)
	assert.Equal(t, ExitForceClose, sink.closed[0].Reason)
}

func TestTotalMarginAndUnrealized(t *testing.T) {
	m := newTestManager(t, testConfig(), 10000)
	p := openLong(t, m, 10000, 100, 1)

	assert.InDelta(t, p.Margin, m.TotalMargin(), 1e-9)

	pnl := m.UnrealizedPnL(map[string]float64{"BTCUSDT": 102})
	assert.InDelta(t, p.Quantity*2*p.Leverage, pnl, 1e-9)
}
