package indicators

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestADX_Calculate_StrongTrend(t *testing.T) {
	adx := NewADX(14)

	value, err := adx.Calculate(risingCandles(80))
	assert.NoError(t, err)
	assert.Greater(t, value, 20.0, "sustained uptrend should read as trending")

	plusDI, minusDI := adx.GetDirectionalIndex()
	assert.Greater(t, plusDI, minusDI)
}

func TestADX_Calculate_Downtrend(t *testing.T) {
	adx := NewADX(14)

	value, err := adx.Calculate(fallingCandles(80))
	assert.NoError(t, err)
	assert.Greater(t, value, 20.0)

	plusDI, minusDI := adx.GetDirectionalIndex()
	assert.Greater(t, minusDI, plusDI)
}

func TestADX_Calculate_InsufficientData(t *testing.T) {
	adx := NewADX(14)

	_, err := adx.Calculate(risingCandles(20))
	assert.Error(t, err)
}

func TestADX_ValueBounds(t *testing.T) {
	adx := NewADX(14)

	value, err := adx.Calculate(generateCandles(80, func(i int) float64 {
		if i%2 == 0 {
			return 100.0
		}
		return 101.0
	}))
	assert.NoError(t, err)
	assert.GreaterOrEqual(t, value, 0.0)
	assert.LessOrEqual(t, value, 100.0)
}

func TestADX_PreviousDirectionalIndexLagsByOneBar(t *testing.T) {
	window := risingCandles(60)

	prior := NewADX(14)
	_, err := prior.Calculate(window[:len(window)-1])
	assert.NoError(t, err)
	priorPlus, priorMinus := prior.GetDirectionalIndex()

	current := NewADX(14)
	_, err = current.Calculate(window)
	assert.NoError(t, err)
	prevPlus, prevMinus := current.GetPreviousDirectionalIndex()

	assert.InDelta(t, priorPlus, prevPlus, 1e-9)
	assert.InDelta(t, priorMinus, prevMinus, 1e-9)
}
