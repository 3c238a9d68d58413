package strategy

import (
	"errors"

	"github.com/ducminhle1904/regime-trading-bot/internal/indicators"
	"github.com/ducminhle1904/regime-trading-bot/pkg/types"
)

// RSIParams configures the RSI mean-reversion/momentum voter
type RSIParams struct {
	Period     int     `json:"period"`
	Oversold   float64 `json:"oversold"`
	Overbought float64 `json:"overbought"`
	Momentum   bool    `json:"momentum"` // Vote with the band break instead of against it
}

// RSIVoter votes mean-reversion (or momentum) off RSI band breaks
type RSIVoter struct {
	params RSIParams
}

func NewRSIVoter(params RSIParams) *RSIVoter {
	return &RSIVoter{params: params}
}

func (v *RSIVoter) Name() string { return "rsi" }

func (v *RSIVoter) Vote(window []types.OHLCV) (int, error) {
	value, err := indicators.NewRSI(v.params.Period).Calculate(window)
	if err != nil {
		return 0, err
	}

	vote := 0
	switch {
	case value < v.params.Oversold:
		vote = 1
	case value > v.params.Overbought:
		vote = -1
	}
	if v.params.Momentum {
		vote = -vote
	}
	return vote, nil
}

// MACDParams configures the MACD cross voter
type MACDParams struct {
	FastPeriod   int `json:"fast_period"`
	SlowPeriod   int `json:"slow_period"`
	SignalPeriod int `json:"signal_period"`
}

// MACDVoter votes with the side of the MACD line relative to its signal line
type MACDVoter struct {
	params MACDParams
}

func NewMACDVoter(params MACDParams) *MACDVoter {
	return &MACDVoter{params: params}
}

func (v *MACDVoter) Name() string { return "macd" }

func (v *MACDVoter) Vote(window []types.OHLCV) (int, error) {
	macd := indicators.NewMACD(v.params.FastPeriod, v.params.SlowPeriod, v.params.SignalPeriod)
	value, err := macd.Calculate(window)
	if err != nil {
		return 0, err
	}

	switch {
	case value.Histogram > 0:
		return 1, nil
	case value.Histogram < 0:
		return -1, nil
	default:
		return 0, nil
	}
}

// BollingerParams configures the Bollinger voter
type BollingerParams struct {
	Period   int     `json:"period"`
	StdDev   float64 `json:"std_dev"`
	Breakout bool    `json:"breakout"` // Trade band breaks with the move instead of fading them
}

// BollingerVoter fades band touches in reversion mode or follows them in
// breakout mode
type BollingerVoter struct {
	params BollingerParams
}

func NewBollingerVoter(params BollingerParams) *BollingerVoter {
	return &BollingerVoter{params: params}
}

func (v *BollingerVoter) Name() string { return "bollinger" }

func (v *BollingerVoter) Vote(window []types.OHLCV) (int, error) {
	bb := indicators.NewBollingerBands(v.params.Period, v.params.StdDev)
	if _, err := bb.Calculate(window); err != nil {
		return 0, err
	}

	price := window[len(window)-1].Close
	upper, _, lower := bb.GetBands()

	vote := 0
	switch {
	case price < lower:
		vote = 1
	case price > upper:
		vote = -1
	}
	if v.params.Breakout {
		vote = -vote
	}
	return vote, nil
}

// EMACrossParams configures the EMA cross voter
type EMACrossParams struct {
	FastPeriod int `json:"fast_period"`
	SlowPeriod int `json:"slow_period"`
}

// EMACrossVoter votes with the side of the fast EMA relative to the slow EMA
type EMACrossVoter struct {
	params EMACrossParams
}

func NewEMACrossVoter(params EMACrossParams) *EMACrossVoter {
	return &EMACrossVoter{params: params}
}

func (v *EMACrossVoter) Name() string { return "ema_cross" }

func (v *EMACrossVoter) Vote(window []types.OHLCV) (int, error) {
	fast, err := indicators.NewEMA(v.params.FastPeriod).Calculate(window)
	if err != nil {
		return 0, err
	}
	slow, err := indicators.NewEMA(v.params.SlowPeriod).Calculate(window)
	if err != nil {
		return 0, err
	}

	switch {
	case fast > slow:
		return 1, nil
	case fast < slow:
		return -1, nil
	default:
		return 0, nil
	}
}

// ADXParams configures the ADX/DMI voter
type ADXParams struct {
	Period    int     `json:"period"`
	Threshold float64 `json:"threshold"` // Minimum ADX before DI direction counts
}

// ADXVoter votes with the dominant directional index once trend strength
// clears the threshold; a weak ADX abstains, and a dominance that first
// appeared on this bar waits one bar for confirmation
type ADXVoter struct {
	params ADXParams
}

func NewADXVoter(params ADXParams) *ADXVoter {
	return &ADXVoter{params: params}
}

func (v *ADXVoter) Name() string { return "adx_dmi" }

func (v *ADXVoter) Vote(window []types.OHLCV) (int, error) {
	adx := indicators.NewADX(v.params.Period)
	value, err := adx.Calculate(window)
	if err != nil {
		return 0, err
	}
	if value < v.params.Threshold {
		return 0, nil
	}

	plusDI, minusDI := adx.GetDirectionalIndex()
	prevPlus, prevMinus := adx.GetPreviousDirectionalIndex()

	// A DI cross on the latest bar alone is a whipsaw candidate; the
	// dominant side must also have held on the previous bar.
	switch {
	case plusDI > minusDI && prevPlus >= prevMinus:
		return 1, nil
	case minusDI > plusDI && prevMinus >= prevPlus:
		return -1, nil
	default:
		return 0, nil
	}
}

// VolumeParams configures the volume-spike voter
type VolumeParams struct {
	Lookback   int     `json:"lookback"`
	Multiplier float64 `json:"multiplier"` // Spike = volume above multiplier x average
}

// VolumeVoter votes with the direction of the bar when its volume spikes
// above the rolling average
type VolumeVoter struct {
	params VolumeParams
}

func NewVolumeVoter(params VolumeParams) *VolumeVoter {
	return &VolumeVoter{params: params}
}

func (v *VolumeVoter) Name() string { return "volume_spike" }

func (v *VolumeVoter) Vote(window []types.OHLCV) (int, error) {
	if len(window) < v.params.Lookback+1 {
		return 0, errors.New("insufficient data for volume spike detection")
	}

	sum := 0.0
	for i := len(window) - v.params.Lookback - 1; i < len(window)-1; i++ {
		sum += window[i].Volume
	}
	average := sum / float64(v.params.Lookback)

	last := window[len(window)-1]
	if average <= 0 || last.Volume < average*v.params.Multiplier {
		return 0, nil
	}

	switch {
	case last.Close > last.Open:
		return 1, nil
	case last.Close < last.Open:
		return -1, nil
	default:
		return 0, nil
	}
}
