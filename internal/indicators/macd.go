package indicators

import (
	"errors"

	"github.com/ducminhle1904/regime-trading-bot/pkg/types"
)

// MACDValue holds one bar of MACD output
type MACDValue struct {
	MACD      float64
	Signal    float64
	Histogram float64
}

// MACD calculates the Moving Average Convergence Divergence indicator
type MACD struct {
	fastPeriod   int
	slowPeriod   int
	signalPeriod int
	lastValue    MACDValue
	prevValue    MACDValue
}

// NewMACD creates a new MACD instance with specified fast, slow, and signal periods
func NewMACD(fast, slow, signal int) *MACD {
	return &MACD{
		fastPeriod:   fast,
		slowPeriod:   slow,
		signalPeriod: signal,
	}
}

// Calculate computes the MACD line, signal line, and histogram for the
// last bar of the window. The signal line is an EMA over the MACD series.
func (m *MACD) Calculate(data []types.OHLCV) (MACDValue, error) {
	if len(data) < m.GetRequiredPeriods() {
		return MACDValue{}, errors.New("insufficient data for MACD calculation")
	}

	fastSeries, err := NewEMA(m.fastPeriod).Series(data)
	if err != nil {
		return MACDValue{}, err
	}
	slowSeries, err := NewEMA(m.slowPeriod).Series(data)
	if err != nil {
		return MACDValue{}, err
	}

	// Align the fast series to the slow one; both end at the last bar.
	offset := len(fastSeries) - len(slowSeries)
	macdSeries := make([]float64, len(slowSeries))
	for i := range slowSeries {
		macdSeries[i] = fastSeries[i+offset] - slowSeries[i]
	}

	signalSeries := emaOverValues(macdSeries, m.signalPeriod)
	if len(signalSeries) < 2 {
		return MACDValue{}, errors.New("insufficient data for MACD signal line")
	}

	m.prevValue = MACDValue{
		MACD:      macdSeries[len(macdSeries)-2],
		Signal:    signalSeries[len(signalSeries)-2],
		Histogram: macdSeries[len(macdSeries)-2] - signalSeries[len(signalSeries)-2],
	}
	m.lastValue = MACDValue{
		MACD:      macdSeries[len(macdSeries)-1],
		Signal:    signalSeries[len(signalSeries)-1],
		Histogram: macdSeries[len(macdSeries)-1] - signalSeries[len(signalSeries)-1],
	}
	return m.lastValue, nil
}

// GetLastValue returns the most recent MACD output
func (m *MACD) GetLastValue() MACDValue {
	return m.lastValue
}

// GetPreviousValue returns the MACD output one bar before the last.
// Used to detect line crossovers.
func (m *MACD) GetPreviousValue() MACDValue {
	return m.prevValue
}

// GetName returns the indicator name
func (m *MACD) GetName() string {
	return "MACD"
}

// GetRequiredPeriods returns minimum periods needed for calculation
func (m *MACD) GetRequiredPeriods() int {
	return m.slowPeriod + m.signalPeriod + 1
}

// emaOverValues computes an EMA series over raw values, seeded with an
// SMA of the first period entries.
func emaOverValues(values []float64, period int) []float64 {
	if len(values) < period {
		return nil
	}

	seed := 0.0
	for i := 0; i < period; i++ {
		seed += values[i]
	}
	seed /= float64(period)

	multiplier := 2.0 / float64(period+1)
	series := make([]float64, 0, len(values)-period+1)
	series = append(series, seed)

	prev := seed
	for i := period; i < len(values); i++ {
		value := (values[i]-prev)*multiplier + prev
		series = append(series, value)
		prev = value
	}
	return series
}
