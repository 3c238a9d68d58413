package indicators

import (
	"errors"
	"math"

	"github.com/ducminhle1904/regime-trading-bot/pkg/types"
)

// ATR represents the Average True Range technical indicator.
// ATR measures volatility from the high/low/close spread of each bar.
type ATR struct {
	period    int
	lastValue float64
}

// NewATR creates a new ATR indicator
func NewATR(period int) *ATR {
	return &ATR{period: period}
}

// Calculate computes the ATR for the last bar of the window using
// Wilder's smoothing seeded with an average of the first period true ranges.
func (a *ATR) Calculate(data []types.OHLCV) (float64, error) {
	if len(data) < a.period+1 {
		return 0, errors.New("insufficient data points for ATR calculation")
	}

	trueRanges := make([]float64, 0, len(data)-1)
	for i := 1; i < len(data); i++ {
		trueRanges = append(trueRanges, trueRange(data[i], data[i-1].Close))
	}

	atr := 0.0
	for i := 0; i < a.period; i++ {
		atr += trueRanges[i]
	}
	atr /= float64(a.period)

	for i := a.period; i < len(trueRanges); i++ {
		atr = (atr*float64(a.period-1) + trueRanges[i]) / float64(a.period)
	}

	a.lastValue = atr
	return atr, nil
}

// trueRange returns max(High-Low, |High-PrevClose|, |Low-PrevClose|)
func trueRange(current types.OHLCV, prevClose float64) float64 {
	hl := current.High - current.Low
	hc := math.Abs(current.High - prevClose)
	lc := math.Abs(current.Low - prevClose)
	return math.Max(hl, math.Max(hc, lc))
}

// GetLastValue returns the last calculated ATR value
func (a *ATR) GetLastValue() float64 {
	return a.lastValue
}

// GetName returns the indicator name
func (a *ATR) GetName() string {
	return "ATR"
}

// GetRequiredPeriods returns the minimum number of periods needed
func (a *ATR) GetRequiredPeriods() int {
	return a.period + 1
}

// GetPeriod returns the period used for ATR calculation
func (a *ATR) GetPeriod() int {
	return a.period
}
