package strategy

import (
	"github.com/ducminhle1904/regime-trading-bot/internal/regime"
)

// Weights assigns the blend weight of each named strategy. Zero disables
// a strategy for the regime.
type Weights struct {
	RSI       float64 `json:"rsi"`
	MACD      float64 `json:"macd"`
	Bollinger float64 `json:"bollinger"`
	EMACross  float64 `json:"ema_cross"`
	ADX       float64 `json:"adx_dmi"`
	Volume    float64 `json:"volume_spike"`
}

// Params carries the full parameter set for every strategy. Strongly
// typed so an unknown key cannot silently fall back to a default.
type Params struct {
	RSI       RSIParams       `json:"rsi"`
	MACD      MACDParams      `json:"macd"`
	Bollinger BollingerParams `json:"bollinger"`
	EMACross  EMACrossParams  `json:"ema_cross"`
	ADX       ADXParams       `json:"adx_dmi"`
	Volume    VolumeParams    `json:"volume_spike"`
}

// Profile is the weight and parameter selection for one regime
type Profile struct {
	Weights Weights `json:"weights"`
	Params  Params  `json:"params"`
}

// ProfileTable maps each regime to its profile. Selection happens once
// per bar off the confirmed regime; profiles themselves are immutable.
type ProfileTable map[regime.Regime]Profile

// For returns the profile for a regime, falling back to the UNKNOWN
// profile when the regime has no entry.
func (t ProfileTable) For(r regime.Regime) Profile {
	if profile, ok := t[r]; ok {
		return profile
	}
	return t[regime.RegimeUnknown]
}

func baseParams() Params {
	return Params{
		RSI:       RSIParams{Period: 14, Oversold: 30, Overbought: 70},
		MACD:      MACDParams{FastPeriod: 12, SlowPeriod: 26, SignalPeriod: 9},
		Bollinger: BollingerParams{Period: 20, StdDev: 2.0},
		EMACross:  EMACrossParams{FastPeriod: 9, SlowPeriod: 21},
		ADX:       ADXParams{Period: 14, Threshold: 20},
		Volume:    VolumeParams{Lookback: 20, Multiplier: 2.0},
	}
}

// DefaultProfiles returns the built-in regime-conditioned weight and
// parameter tables. Trending upweights the trend-following trio with
// longer EMA spans and a stricter ADX gate; ranging leans on RSI and
// Bollinger reversion with tighter bands.
func DefaultProfiles() ProfileTable {
	trending := baseParams()
	trending.EMACross = EMACrossParams{FastPeriod: 21, SlowPeriod: 55}
	trending.ADX = ADXParams{Period: 14, Threshold: 25}
	trending.RSI.Momentum = true
	trending.Bollinger.Breakout = true

	ranging := baseParams()
	ranging.RSI = RSIParams{Period: 14, Oversold: 35, Overbought: 65}
	ranging.Bollinger = BollingerParams{Period: 20, StdDev: 1.5}

	volatile := baseParams()
	volatile.RSI = RSIParams{Period: 14, Oversold: 25, Overbought: 75}
	volatile.Bollinger = BollingerParams{Period: 20, StdDev: 2.5}

	quiet := baseParams()
	quiet.Bollinger = BollingerParams{Period: 20, StdDev: 1.5, Breakout: true}

	return ProfileTable{
		regime.RegimeTrending: {
			Weights: Weights{RSI: 0.05, MACD: 0.25, Bollinger: 0.10, EMACross: 0.25, ADX: 0.25, Volume: 0.10},
			Params:  trending,
		},
		regime.RegimeRanging: {
			Weights: Weights{RSI: 0.30, MACD: 0.10, Bollinger: 0.30, EMACross: 0.10, ADX: 0.10, Volume: 0.10},
			Params:  ranging,
		},
		regime.RegimeVolatile: {
			Weights: Weights{RSI: 0.25, MACD: 0.10, Bollinger: 0.25, EMACross: 0.10, ADX: 0.10, Volume: 0.20},
			Params:  volatile,
		},
		regime.RegimeQuiet: {
			Weights: Weights{RSI: 0.10, MACD: 0.20, Bollinger: 0.25, EMACross: 0.20, ADX: 0.10, Volume: 0.15},
			Params:  quiet,
		},
		regime.RegimeMixed: {
			Weights: Weights{RSI: 0.17, MACD: 0.17, Bollinger: 0.17, EMACross: 0.17, ADX: 0.16, Volume: 0.16},
			Params:  baseParams(),
		},
		regime.RegimeUnknown: {
			Weights: Weights{RSI: 0.17, MACD: 0.17, Bollinger: 0.17, EMACross: 0.17, ADX: 0.16, Volume: 0.16},
			Params:  baseParams(),
		},
	}
}

// voters builds the voter set for a profile paired with its weights
type weightedVoter struct {
	voter  Voter
	weight float64
}

func (p Profile) voters() []weightedVoter {
	return []weightedVoter{
		{NewRSIVoter(p.Params.RSI), p.Weights.RSI},
		{NewMACDVoter(p.Params.MACD), p.Weights.MACD},
		{NewBollingerVoter(p.Params.Bollinger), p.Weights.Bollinger},
		{NewEMACrossVoter(p.Params.EMACross), p.Weights.EMACross},
		{NewADXVoter(p.Params.ADX), p.Weights.ADX},
		{NewVolumeVoter(p.Params.Volume), p.Weights.Volume},
	}
}
