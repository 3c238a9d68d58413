package indicators

import (
	"errors"
	"math"

	"github.com/ducminhle1904/regime-trading-bot/pkg/types"
)

// RSI calculates the Relative Strength Index over candle closes
type RSI struct {
	period    int
	lastValue float64
}

// NewRSI creates a new RSI instance with the given period
func NewRSI(period int) *RSI {
	return &RSI{period: period}
}

// Calculate computes the RSI value for the last bar of the window
func (r *RSI) Calculate(data []types.OHLCV) (float64, error) {
	if len(data) < r.period+1 {
		return 0, errors.New("insufficient data for RSI calculation")
	}

	gains := 0.0
	losses := 0.0
	for i := len(data) - r.period; i < len(data); i++ {
		change := data[i].Close - data[i-1].Close
		if change > 0 {
			gains += change
		} else {
			losses += math.Abs(change)
		}
	}

	avgGain := gains / float64(r.period)
	avgLoss := losses / float64(r.period)

	if avgLoss == 0 {
		r.lastValue = 100
		return 100, nil
	}

	rs := avgGain / avgLoss
	r.lastValue = 100 - (100 / (1 + rs))
	return r.lastValue, nil
}

// GetLastValue returns the last calculated RSI value
func (r *RSI) GetLastValue() float64 {
	return r.lastValue
}

// GetName returns the indicator name
func (r *RSI) GetName() string {
	return "RSI"
}

// GetRequiredPeriods returns minimum periods needed for calculation
func (r *RSI) GetRequiredPeriods() int {
	return r.period + 1
}
