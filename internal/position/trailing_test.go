package position

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/regime-trading-bot/internal/regime"
)

func TestTrailingActivatesAtThreshold(t *testing.T) {
	m := newTestManager(t, testConfig(), 10000)
	openLong(t, m, 10000, 100, 1)

	// Below the activation profit the stop must not move.
	res, err := m.OnBar("BTCUSDT", candle(t0.Add(time.Hour), 100, 100.6, 99.5, 100.5), 0.5)
	require.NoError(t, err)
	assert.False(t, res.TrailingActivated)
	assert.Nil(t, res.Stop)

	p, ok := m.Get("BTCUSDT")
	require.True(t, ok)
	assert.Equal(t, StatusTrailingInactive, p.Status)
	assert.InDelta(t, 98.0, p.StopLoss, 1e-9)

	res, err = m.OnBar("BTCUSDT", candle(t0.Add(2*time.Hour), 100.5, 101.3, 100.3, 101.2), 0.5)
	require.NoError(t, err)
	assert.True(t, res.TrailingActivated)

	p, _ = m.Get("BTCUSDT")
	assert.Equal(t, StatusTrailingActive, p.Status)
}

func TestTrailingStopOnlyTightens(t *testing.T) {
	m := newTestManager(t, testConfig(), 10000)
	openLong(t, m, 10000, 100, 1)

	prevStop := 98.0
	ratchets := 0
	for i := 1; i <= 12; i++ {
		close := 100 + 0.5*float64(i)
		bar := candle(t0.Add(time.Duration(i)*time.Hour), close-0.5, close+0.2, close-0.3, close)

		res, err := m.OnBar("BTCUSDT", bar, 0.5)
		require.NoError(t, err)
		require.Nil(t, res.Closed, "position should survive a steady advance")

		p, ok := m.Get("BTCUSDT")
		require.True(t, ok)
		assert.GreaterOrEqual(t, p.StopLoss, prevStop, "stop must never loosen")
		assert.Less(t, p.StopLoss, close, "stop must stay behind price")
		if res.Stop != nil {
			assert.Greater(t, res.Stop.NewStop, res.Stop.OldStop)
			ratchets++
		}
		prevStop = p.StopLoss
	}

	assert.GreaterOrEqual(t, ratchets, 3, "a sustained advance should tighten the stop repeatedly")
	assert.Greater(t, prevStop, 100.0, "stop should have locked in profit above entry")
}

func TestTrailingStopExitReason(t *testing.T) {
	m := newTestManager(t, testConfig(), 10000)
	openLong(t, m, 10000, 100, 1)

	_, err := m.OnBar("BTCUSDT", candle(t0.Add(time.Hour), 103, 104.1, 102.8, 104), 0.5)
	require.NoError(t, err)

	p, _ := m.Get("BTCUSDT")
	require.Equal(t, StatusTrailingActive, p.Status)
	require.Greater(t, p.StopLoss, 100.0)

	// Price collapses through the trailed stop.
	res, err := m.OnBar("BTCUSDT", candle(t0.Add(2*time.Hour), 104, 104.2, p.StopLoss-1, p.StopLoss-0.5), 0.5)
	require.NoError(t, err)
	require.NotNil(t, res.Closed)

	assert.Equal(t, ExitTrailingStop, res.Closed.Reason)
	assert.InDelta(t, p.StopLoss, res.Closed.ExitPrice, 1e-9)
	assert.Greater(t, res.Closed.PnL, 0.0, "trailed exit above entry should realize profit")
}

func TestDynamicCallbackWidensWithProfit(t *testing.T) {
	cfg := testConfig()
	cfg.Trailing.Mode = ModeRatchet
	cfg.Trailing.ATRFloorMult = 0

	m := newTestManager(t, cfg, 10000)
	openLong(t, m, 10000, 100, 1)

	res, err := m.OnBar("BTCUSDT", candle(t0.Add(time.Hour), 105, 106, 104.5, 106), 0.1)
	require.NoError(t, err)
	require.NotNil(t, res.Stop)

	// Profit is 6%, so the 1% callback widens by 1.5x.
	assert.InDelta(t, 106*(1-0.015), res.Stop.NewStop, 1e-6)
	assert.Equal(t, ModeRatchet, res.Stop.Mode)
}

func TestCallbackFlooredByATR(t *testing.T) {
	cfg := testConfig()
	cfg.Trailing.Mode = ModeRatchet
	cfg.Trailing.DynamicCallback = false

	m := newTestManager(t, cfg, 10000)
	openLong(t, m, 10000, 100, 1)

	// ATR of 3 on a 106 close is ~2.83%, well above the 1% callback.
	res, err := m.OnBar("BTCUSDT", candle(t0.Add(time.Hour), 105, 106, 104.5, 106), 3)
	require.NoError(t, err)
	require.NotNil(t, res.Stop)

	atrPct := 3.0 / 106 * 100
	assert.InDelta(t, 106*(1-atrPct/100), res.Stop.NewStop, 1e-6)
}

func TestEscalatorLocksMilestones(t *testing.T) {
	cfg := testConfig()
	cfg.Trailing.Mode = ModeEscalator

	m := newTestManager(t, cfg, 10000)
	openLong(t, m, 10000, 100, 1)

	res, err := m.OnBar("BTCUSDT", candle(t0.Add(time.Hour), 103, 103.8, 102.9, 103.7), 0.5)
	require.NoError(t, err)
	require.NotNil(t, res.Stop)

	// 3.7% profit with a 1% step locks the stop at the +3% milestone.
	assert.InDelta(t, 103.0, res.Stop.NewStop, 1e-9)
	assert.Equal(t, ModeEscalator, res.Stop.Mode)
}

func TestEscalatorBacksOffExactMilestone(t *testing.T) {
	cfg := testConfig()
	cfg.Trailing.Mode = ModeEscalator

	m := newTestManager(t, cfg, 10000)
	openLong(t, m, 10000, 100, 1)

	// Closing exactly on the +2% milestone must not place the stop at price.
	res, err := m.OnBar("BTCUSDT", candle(t0.Add(time.Hour), 101.5, 102.3, 101.4, 102), 0.5)
	require.NoError(t, err)
	require.NotNil(t, res.Stop)
	assert.InDelta(t, 101.0, res.Stop.NewStop, 1e-9)
}

func TestEscalatorBelowFirstStepDoesNothing(t *testing.T) {
	cfg := testConfig()
	cfg.Trailing.Mode = ModeEscalator
	cfg.Trailing.ActivationPct = 0.2

	m := newTestManager(t, cfg, 10000)
	openLong(t, m, 10000, 100, 1)

	res, err := m.OnBar("BTCUSDT", candle(t0.Add(time.Hour), 100.2, 100.6, 100.1, 100.5), 0.5)
	require.NoError(t, err)
	assert.Nil(t, res.Stop)
}

func TestBothTakeBestPicksMoreProtective(t *testing.T) {
	m := newTestManager(t, testConfig(), 10000)
	openLong(t, m, 10000, 100, 1)

	// High watermark 110.2, close 110. The ratchet trails the watermark
	// at a widened 1.5% callback (~108.55); the escalator backs off the
	// +10% milestone to 109 and wins.
	res, err := m.OnBar("BTCUSDT", candle(t0.Add(time.Hour), 109, 110.2, 108.8, 110), 0.1)
	require.NoError(t, err)
	require.NotNil(t, res.Stop)

	assert.InDelta(t, 109.0, res.Stop.NewStop, 1e-9)
	assert.Equal(t, ModeEscalator, res.Stop.Mode)
}

func TestBothTakeBestRatchetCanWin(t *testing.T) {
	m := newTestManager(t, testConfig(), 10000)
	openLong(t, m, 10000, 100, 1)

	// Watermark 102.4, close 102. Ratchet: 2% profit widens the callback
	// to 1.2%, giving ~101.17. Escalator backs off the exact +2%
	// milestone to 101, so the ratchet is tighter.
	res, err := m.OnBar("BTCUSDT", candle(t0.Add(time.Hour), 101.6, 102.4, 101.5, 102), 0.1)
	require.NoError(t, err)
	require.NotNil(t, res.Stop)

	assert.InDelta(t, 102.4*(1-0.012), res.Stop.NewStop, 1e-6)
	assert.Equal(t, ModeRatchet, res.Stop.Mode)
}

func TestShortTrailingMirrors(t *testing.T) {
	cfg := testConfig()
	cfg.Trailing.Mode = ModeRatchet
	cfg.Trailing.DynamicCallback = false
	cfg.Trailing.ATRFloorMult = 0

	m, err := NewManager(cfg, NewLedger(10000))
	require.NoError(t, err)

	_, err = m.Open(OpenRequest{
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

	res, err := m.OnBar("BTCUSDT", candle(t0.Add(time.Hour), 96, 96.5, 95.5, 96), 0.1)
	require.NoError(t, err)
	require.NotNil(t, res.Stop)

	// Low watermark 95.5, callback 1% above it.
	assert.InDelta(t, 95.5*1.01, res.Stop.NewStop, 1e-6)

	p, _ := m.Get("BTCUSDT")
	assert.Less(t, p.StopLoss, 102.0, "short stop must only move down")
}
