package indicators

import (
	"errors"

	"github.com/ducminhle1904/regime-trading-bot/pkg/types"
)

// EMA calculates the Exponential Moving Average over candle closes
type EMA struct {
	period    int
	lastValue float64
}

// NewEMA creates a new EMA instance with the given period
func NewEMA(period int) *EMA {
	return &EMA{period: period}
}

// Calculate computes the EMA for the last bar of the window.
// The average is seeded with an SMA of the first period closes and
// rolled forward over the rest of the window.
func (e *EMA) Calculate(data []types.OHLCV) (float64, error) {
	series, err := e.Series(data)
	if err != nil {
		return 0, err
	}
	e.lastValue = series[len(series)-1]
	return e.lastValue, nil
}

// Series computes the full EMA series aligned to data[period-1:].
func (e *EMA) Series(data []types.OHLCV) ([]float64, error) {
	if len(data) < e.period {
		return nil, errors.New("insufficient data for EMA calculation")
	}

	seed := 0.0
	for i := 0; i < e.period; i++ {
		seed += data[i].Close
	}
	seed /= float64(e.period)

	multiplier := 2.0 / float64(e.period+1)
	series := make([]float64, 0, len(data)-e.period+1)
	series = append(series, seed)

	prev := seed
	for i := e.period; i < len(data); i++ {
		value := (data[i].Close-prev)*multiplier + prev
		series = append(series, value)
		prev = value
	}
	return series, nil
}

// GetLastValue returns the last calculated EMA value
func (e *EMA) GetLastValue() float64 {
	return e.lastValue
}

// GetName returns the indicator name
func (e *EMA) GetName() string {
	return "EMA"
}

// GetRequiredPeriods returns minimum periods needed for calculation
func (e *EMA) GetRequiredPeriods() int {
	return e.period
}

// GetPeriod returns the configured period
func (e *EMA) GetPeriod() int {
	return e.period
}
