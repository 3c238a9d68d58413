package indicators

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSMA_Calculate(t *testing.T) {
	sma := NewSMA(5)

	// Rising closes 100..119; the last five average to 117.
	value, err := sma.Calculate(risingCandles(20))
	assert.NoError(t, err)
	assert.InDelta(t, 117.0, value, 1e-9)
	assert.Equal(t, value, sma.GetLastValue())
}

func TestSMA_Calculate_InsufficientData(t *testing.T) {
	sma := NewSMA(20)

	_, err := sma.Calculate(risingCandles(10))
	assert.Error(t, err)
}

func TestSMA_FlatSeries(t *testing.T) {
	value, err := NewSMA(10).Calculate(flatCandles(30))
	assert.NoError(t, err)
	assert.InDelta(t, 100.0, value, 1e-9)
}

func TestSMA_FeedsBollingerMiddleBand(t *testing.T) {
	window := risingCandles(40)

	sma, err := NewSMA(20).Calculate(window)
	assert.NoError(t, err)

	bb := NewBollingerBands(20, 2.0)
	middle, err := bb.Calculate(window)
	assert.NoError(t, err)
	assert.InDelta(t, sma, middle, 1e-9)
}
