package strategy

import (
	"testing"
	"time"

	"github.com/ducminhle1904/regime-trading-bot/internal/regime"
	"github.com/ducminhle1904/regime-trading-bot/pkg/types"
	"github.com/stretchr/testify/assert"
)

func generateCandles(count int, closeAt func(i int) float64) []types.OHLCV {
	data := make([]types.OHLCV, count)
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < count; i++ {
		close := closeAt(i)
		data[i] = types.OHLCV{
			Open:      close * 0.999,
			High:      close * 1.004,
			Low:       close * 0.996,
			Close:     close,
			Volume:    1000.0,
			Timestamp: start.Add(time.Duration(i) * time.Hour),
		}
	}
	return data
}

func TestFusionEngine_DeadZoneBoundaries(t *testing.T) {
	engine := NewFusionEngine(DefaultProfiles(), DefaultFusionConfig())

	// The dead zone boundary is exclusive on both sides.
	assert.Equal(t, DirectionFlat, engine.decide(0.3))
	assert.Equal(t, DirectionFlat, engine.decide(-0.3))
	assert.Equal(t, DirectionLong, engine.decide(0.31))
	assert.Equal(t, DirectionShort, engine.decide(-0.31))
	assert.Equal(t, DirectionFlat, engine.decide(0.0))
}

func TestFusionEngine_UptrendGoesLong(t *testing.T) {
	engine := NewFusionEngine(DefaultProfiles(), DefaultFusionConfig())
	state := &regime.State{Current: regime.RegimeTrending}

	window := generateCandles(120, func(i int) float64 { return 100.0 * (1.0 + 0.005*float64(i)) })
	signal := engine.GenerateSignal(window, state)

	assert.Equal(t, DirectionLong, signal.Direction)
	assert.Greater(t, signal.Confidence, 0.0)
	assert.NotEmpty(t, signal.Reason)
}

func TestFusionEngine_DowntrendGoesShort(t *testing.T) {
	engine := NewFusionEngine(DefaultProfiles(), DefaultFusionConfig())
	state := &regime.State{Current: regime.RegimeTrending}

	window := generateCandles(120, func(i int) float64 { return 200.0 * (1.0 - 0.004*float64(i)) })
	signal := engine.GenerateSignal(window, state)

	assert.Equal(t, DirectionShort, signal.Direction)
}

func TestFusionEngine_ConfidenceScalesAgainstOwnThreshold(t *testing.T) {
	engine := NewFusionEngine(DefaultProfiles(), FusionConfig{LongThreshold: 0.3, ShortThreshold: -0.5})

	// At |score| 0.6 with full agreement, the long side is 0.3 past its
	// threshold while the short side is only 0.1 past its wider one.
	long := engine.confidence(0.6, 1.0, DirectionLong)
	short := engine.confidence(-0.6, 1.0, DirectionShort)

	assert.Greater(t, long, short)
	assert.InDelta(t, (0.6*(0.3/0.7)+0.4)*100, long, 1e-9)
	assert.InDelta(t, (0.6*(0.1/0.5)+0.4)*100, short, 1e-9)
}

func TestFusionEngine_EmptyWindow(t *testing.T) {
	engine := NewFusionEngine(DefaultProfiles(), DefaultFusionConfig())

	signal := engine.GenerateSignal(nil, &regime.State{Current: regime.RegimeTrending})

	assert.Equal(t, DirectionFlat, signal.Direction)
}

func TestFusionEngine_ShortWindowStrategiesAbstain(t *testing.T) {
	engine := NewFusionEngine(DefaultProfiles(), DefaultFusionConfig())
	state := &regime.State{Current: regime.RegimeUnknown}

	// 25 bars: enough for RSI/Bollinger/short EMAs, not for MACD or ADX.
	// Abstaining strategies must drop out of the denominator, not vote 0.
	window := generateCandles(25, func(i int) float64 { return 100.0 + float64(i) })
	signal := engine.GenerateSignal(window, state)

	assert.NotNil(t, signal)
	assert.NotEmpty(t, signal.Reason)
}

func TestFusionEngine_NilStateFallsBackToUnknownProfile(t *testing.T) {
	engine := NewFusionEngine(DefaultProfiles(), DefaultFusionConfig())

	window := generateCandles(120, func(i int) float64 { return 100.0 })
	assert.NotPanics(t, func() {
		signal := engine.GenerateSignal(window, nil)
		assert.NotNil(t, signal)
	})
}

func TestProfileTable_ForUnknownRegimeFallback(t *testing.T) {
	table := ProfileTable{
		regime.RegimeUnknown: {Weights: Weights{RSI: 1}},
	}

	profile := table.For(regime.RegimeTrending)
	assert.Equal(t, 1.0, profile.Weights.RSI)
}
