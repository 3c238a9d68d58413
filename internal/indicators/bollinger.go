package indicators

import (
	"errors"
	"math"

	"github.com/ducminhle1904/regime-trading-bot/pkg/types"
)

// BollingerBands represents the Bollinger Bands indicator
type BollingerBands struct {
	period         int
	stdDevMultiple float64
	sma            *SMA

	upper  float64
	middle float64
	lower  float64
}

// NewBollingerBands creates a new BollingerBands instance with the given
// period and standard deviation multiplier
func NewBollingerBands(period int, stdDev float64) *BollingerBands {
	return &BollingerBands{
		period:         period,
		stdDevMultiple: stdDev,
		sma:            NewSMA(period),
	}
}

// Calculate computes the middle band for the last bar of the window.
// Upper and lower bands are available via GetBands after calculation.
func (bb *BollingerBands) Calculate(data []types.OHLCV) (float64, error) {
	middle, err := bb.sma.Calculate(data)
	if err != nil {
		return 0, errors.New("insufficient data for Bollinger Bands calculation")
	}
	bb.middle = middle

	recent := data[len(data)-bb.period:]
	variance := 0.0
	for _, candle := range recent {
		diff := candle.Close - bb.middle
		variance += diff * diff
	}
	stdDev := math.Sqrt(variance / float64(bb.period))

	bb.upper = bb.middle + bb.stdDevMultiple*stdDev
	bb.lower = bb.middle - bb.stdDevMultiple*stdDev
	return bb.middle, nil
}

// GetBands returns the upper, middle, and lower bands from the last calculation
func (bb *BollingerBands) GetBands() (upper, middle, lower float64) {
	return bb.upper, bb.middle, bb.lower
}

// PercentB returns the position of price within the bands on a 0-100 scale.
// 50 is returned when the bands have collapsed to zero width.
func (bb *BollingerBands) PercentB(price float64) float64 {
	if bb.upper == bb.lower {
		return 50
	}
	return (price - bb.lower) / (bb.upper - bb.lower) * 100
}

// GetName returns the indicator name
func (bb *BollingerBands) GetName() string {
	return "BollingerBands"
}

// GetRequiredPeriods returns minimum periods needed for calculation
func (bb *BollingerBands) GetRequiredPeriods() int {
	return bb.period
}
