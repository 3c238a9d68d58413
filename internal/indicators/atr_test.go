package indicators

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestATR_Calculate(t *testing.T) {
	atr := NewATR(14)

	value, err := atr.Calculate(risingCandles(40))
	assert.NoError(t, err)
	assert.Greater(t, value, 0.0)
	assert.Equal(t, value, atr.GetLastValue())
}

func TestATR_Calculate_InsufficientData(t *testing.T) {
	atr := NewATR(14)

	_, err := atr.Calculate(risingCandles(10))
	assert.Error(t, err)
}

func TestATR_HigherVolatilityHigherATR(t *testing.T) {
	quiet := generateCandles(40, func(i int) float64 { return 100.0 })
	wild := generateCandles(40, func(i int) float64 {
		if i%2 == 0 {
			return 100.0
		}
		return 110.0
	})

	quietATR, err := NewATR(14).Calculate(quiet)
	assert.NoError(t, err)
	wildATR, err := NewATR(14).Calculate(wild)
	assert.NoError(t, err)

	assert.Greater(t, wildATR, quietATR)
}
