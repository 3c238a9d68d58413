package indicators

import (
	"errors"

	"github.com/ducminhle1904/regime-trading-bot/pkg/types"
)

// SMA calculates the Simple Moving Average over candle closes
type SMA struct {
	period    int
	lastValue float64
}

// NewSMA creates a new SMA instance with the given period
func NewSMA(period int) *SMA {
	return &SMA{period: period}
}

// Calculate computes the SMA for the last bar of the window
func (s *SMA) Calculate(data []types.OHLCV) (float64, error) {
	if len(data) < s.period {
		return 0, errors.New("insufficient data for SMA calculation")
	}

	sum := 0.0
	for i := len(data) - s.period; i < len(data); i++ {
		sum += data[i].Close
	}
	s.lastValue = sum / float64(s.period)
	return s.lastValue, nil
}

// GetLastValue returns the last calculated SMA value
func (s *SMA) GetLastValue() float64 {
	return s.lastValue
}

// GetName returns the indicator name
func (s *SMA) GetName() string {
	return "SMA"
}

// GetRequiredPeriods returns minimum periods needed for calculation
func (s *SMA) GetRequiredPeriods() int {
	return s.period
}
