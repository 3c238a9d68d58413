package backtest

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/regime-trading-bot/internal/position"
	"github.com/ducminhle1904/regime-trading-bot/internal/regime"
	"github.com/ducminhle1904/regime-trading-bot/internal/strategy"
	"github.com/ducminhle1904/regime-trading-bot/pkg/types"
)

// trend builds n hourly candles compounding at growth per bar, with
// small deterministic wicks so ATR is well defined.
func trend(n int, start, growth float64) []types.OHLCV {
	t0 := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	data := make([]types.OHLCV, n)
	prev := start
	for i := 0; i < n; i++ {
		close := prev * (1 + growth)
		data[i] = types.OHLCV{
			Timestamp: t0.Add(time.Duration(i) * time.Hour),
			Open:      prev,
			High:      math.Max(prev, close) * 1.001,
			Low:       math.Min(prev, close) * 0.999,
			Close:     close,
			Volume:    1000,
		}
		prev = close
	}
	return data
}

func testBacktestConfig() Config {
	cfg := DefaultConfig("BTCUSDT")
	cfg.WindowSize = 60
	cfg.Risk.Trailing.Mode = position.ModeRatchet
	return cfg
}

type countingSink struct {
	opened    int
	stopMoves []position.StopUpdate
	closed    []position.ClosedTrade
}

func (s *countingSink) PositionOpened(position.Position) { s.opened++ }
func (s *countingSink) StopMoved(_ position.Position, u position.StopUpdate) {
	s.stopMoves = append(s.stopMoves, u)
}
func (s *countingSink) PositionClosed(t position.ClosedTrade) { s.closed = append(s.closed, t) }

func TestNewEngineValidation(t *testing.T) {
	cfg := testBacktestConfig()
	cfg.Symbol = ""
	_, err := NewEngine(cfg)
	assert.Error(t, err)

	cfg = testBacktestConfig()
	cfg.InitialBalance = 0
	_, err = NewEngine(cfg)
	assert.Error(t, err)

	cfg = testBacktestConfig()
	cfg.WindowSize = 10
	_, err = NewEngine(cfg)
	assert.Error(t, err)
}

func TestRunRejectsShortSeries(t *testing.T) {
	engine, err := NewEngine(testBacktestConfig())
	require.NoError(t, err)

	_, err = engine.Run(trend(30, 100, 0.004))
	assert.Error(t, err)
}

func TestUptrendRidesLongWithRatchetingStops(t *testing.T) {
	engine, err := NewEngine(testBacktestConfig())
	require.NoError(t, err)

	sink := &countingSink{}
	engine.Manager().SetEventSink(sink)

	data := trend(140, 100, 0.004)
	results, err := engine.Run(data)
	require.NoError(t, err)

	assert.Equal(t, 80, results.BarsProcessed)
	assert.Len(t, results.EquityCurve, 80)

	// A sustained climb must confirm the TRENDING regime.
	assert.Equal(t, regime.RegimeTrending, results.FinalRegime)
	require.NotEmpty(t, results.RegimeChanges)
	assert.Equal(t, regime.RegimeTrending, results.RegimeChanges[0].NewRegime)

	require.GreaterOrEqual(t, results.Stats.TotalTrades, 2)
	assert.GreaterOrEqual(t, results.Stats.Wins, 1)
	assert.Greater(t, results.Stats.NetPnL, 0.0)
	assert.Greater(t, results.Stats.FinalBalance, results.Stats.InitialBalance)

	for _, trade := range results.Trades {
		assert.Equal(t, position.SideLong, trade.Side)
		assert.True(t, trade.CloseTime.After(trade.OpenTime))
	}

	// The stop must ratchet upward several times before the first exit,
	// and every move must tighten.
	require.GreaterOrEqual(t, len(sink.stopMoves), 3)
	for _, move := range sink.stopMoves {
		assert.Greater(t, move.NewStop, move.OldStop)
	}

	hitTarget := false
	for _, trade := range results.Trades {
		if trade.Reason == position.ExitTakeProfit {
			hitTarget = true
		}
	}
	assert.True(t, hitTarget, "expected at least one take-profit exit in a steady climb")

	// Nothing left open after the run.
	assert.Zero(t, engine.Manager().Count())
}

func TestDowntrendShortsAndProfits(t *testing.T) {
	engine, err := NewEngine(testBacktestConfig())
	require.NoError(t, err)

	data := trend(140, 100, -0.004)
	results, err := engine.Run(data)
	require.NoError(t, err)

	assert.Equal(t, regime.RegimeTrending, results.FinalRegime)
	require.GreaterOrEqual(t, results.Stats.TotalTrades, 1)
	assert.Greater(t, results.Stats.NetPnL, 0.0)
	for _, trade := range results.Trades {
		assert.Equal(t, position.SideShort, trade.Side)
	}
}

func TestOpenPositionForceClosedAtEndOfData(t *testing.T) {
	engine, err := NewEngine(testBacktestConfig())
	require.NoError(t, err)

	data := trend(66, 100, 0.004)
	results, err := engine.Run(data)
	require.NoError(t, err)

	require.Len(t, results.Trades, 1)
	assert.Equal(t, position.ExitForceClose, results.Trades[0].Reason)
	assert.Zero(t, engine.Manager().Count())
}

func TestEquityCurveTracksLedger(t *testing.T) {
	cfg := testBacktestConfig()
	engine, err := NewEngine(cfg)
	require.NoError(t, err)

	results, err := engine.Run(trend(140, 100, 0.004))
	require.NoError(t, err)

	require.NotEmpty(t, results.EquityCurve)
	first := results.EquityCurve[0]
	assert.InDelta(t, cfg.InitialBalance, first.Equity, cfg.InitialBalance*0.01)

	last := results.EquityCurve[len(results.EquityCurve)-1]
	assert.Greater(t, last.Equity, cfg.InitialBalance)
	assert.True(t, last.Timestamp.After(first.Timestamp))
}

func TestRunHonorsConfiguredProfiles(t *testing.T) {
	cfg := testBacktestConfig()

	// Muted weights for every regime: no strategy can vote, so the
	// engine must sit flat through a trend it would otherwise trade.
	muted := strategy.ProfileTable{}
	for r, p := range strategy.DefaultProfiles() {
		p.Weights = strategy.Weights{}
		muted[r] = p
	}
	cfg.Profiles = muted

	engine, err := NewEngine(cfg)
	require.NoError(t, err)

	results, err := engine.Run(trend(140, 100, 0.004))
	require.NoError(t, err)
	assert.Empty(t, results.Trades)
}
