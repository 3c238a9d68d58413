package indicators

import (
	"errors"
	"math"

	"github.com/ducminhle1904/regime-trading-bot/pkg/types"
)

// ADX represents the Average Directional Index technical indicator.
// ADX measures trend strength regardless of direction (0-100 scale);
// values above 20 indicate a trending market, above 40 a strong trend.
type ADX struct {
	period int

	lastADX     float64
	plusDI      float64
	minusDI     float64
	prevPlusDI  float64
	prevMinusDI float64
}

// NewADX creates a new ADX indicator
func NewADX(period int) *ADX {
	return &ADX{period: period}
}

// Calculate computes the ADX for the last bar of the window using
// Wilder's smoothing for TR, +DM, -DM, and the DX series.
func (adx *ADX) Calculate(data []types.OHLCV) (float64, error) {
	if len(data) < adx.GetRequiredPeriods() {
		return 0, errors.New("insufficient data for ADX calculation")
	}

	period := float64(adx.period)

	trSum := 0.0
	plusDMSum := 0.0
	minusDMSum := 0.0

	// Seed smoothed sums over the first period bars.
	for i := 1; i <= adx.period; i++ {
		tr, plusDM, minusDM := directionalMovement(data[i], data[i-1])
		trSum += tr
		plusDMSum += plusDM
		minusDMSum += minusDM
	}

	dxValues := make([]float64, 0, len(data)-adx.period)
	plusDI, minusDI := diPair(plusDMSum, minusDMSum, trSum)
	dxValues = append(dxValues, dx(plusDI, minusDI))

	prevPlusDI, prevMinusDI := plusDI, minusDI
	for i := adx.period + 1; i < len(data); i++ {
		tr, plusDM, minusDM := directionalMovement(data[i], data[i-1])

		trSum = trSum - trSum/period + tr
		plusDMSum = plusDMSum - plusDMSum/period + plusDM
		minusDMSum = minusDMSum - minusDMSum/period + minusDM

		prevPlusDI, prevMinusDI = plusDI, minusDI
		plusDI, minusDI = diPair(plusDMSum, minusDMSum, trSum)
		dxValues = append(dxValues, dx(plusDI, minusDI))
	}

	// Initial ADX is a simple average of the first period DX values,
	// then rolled forward with Wilder's smoothing.
	adxValue := 0.0
	for i := 0; i < adx.period; i++ {
		adxValue += dxValues[i]
	}
	adxValue /= period

	for i := adx.period; i < len(dxValues); i++ {
		adxValue = (adxValue*(period-1) + dxValues[i]) / period
	}

	adx.lastADX = adxValue
	adx.plusDI = plusDI
	adx.minusDI = minusDI
	adx.prevPlusDI = prevPlusDI
	adx.prevMinusDI = prevMinusDI
	return adxValue, nil
}

// directionalMovement returns the true range and directional movements
// for one bar against its predecessor.
func directionalMovement(current, previous types.OHLCV) (tr, plusDM, minusDM float64) {
	tr = trueRange(current, previous.Close)

	highDiff := current.High - previous.High
	lowDiff := previous.Low - current.Low

	if highDiff > lowDiff && highDiff > 0 {
		plusDM = highDiff
	}
	if lowDiff > highDiff && lowDiff > 0 {
		minusDM = lowDiff
	}
	return tr, plusDM, minusDM
}

func diPair(plusDMSum, minusDMSum, trSum float64) (plusDI, minusDI float64) {
	if trSum == 0 {
		return 0, 0
	}
	return plusDMSum / trSum * 100, minusDMSum / trSum * 100
}

func dx(plusDI, minusDI float64) float64 {
	diSum := plusDI + minusDI
	if diSum == 0 {
		return 0
	}
	return math.Abs(plusDI-minusDI) / diSum * 100
}

// GetDirectionalIndex returns both +DI and -DI from the last calculation
func (adx *ADX) GetDirectionalIndex() (plusDI, minusDI float64) {
	return adx.plusDI, adx.minusDI
}

// GetPreviousDirectionalIndex returns the +DI/-DI pair one bar before the
// last. Used to detect DI crossovers.
func (adx *ADX) GetPreviousDirectionalIndex() (plusDI, minusDI float64) {
	return adx.prevPlusDI, adx.prevMinusDI
}

// GetLastValue returns the last calculated ADX value
func (adx *ADX) GetLastValue() float64 {
	return adx.lastADX
}

// GetName returns the indicator name
func (adx *ADX) GetName() string {
	return "ADX"
}

// GetRequiredPeriods returns minimum periods needed for calculation
func (adx *ADX) GetRequiredPeriods() int {
	return adx.period*2 + 1
}
