package position

import (
	"fmt"

	"github.com/ducminhle1904/regime-trading-bot/internal/regime"
)

// TrailingConfig controls the stop-tightening disciplines.
type TrailingConfig struct {
	Mode TrailingMode `json:"mode"`

	// ActivationPct is the unleveraged profit percentage at which
	// trailing switches on. Below it the static stop governs.
	ActivationPct float64 `json:"activation_pct"`

	// CallbackPct is the ratchet distance from the watermark.
	CallbackPct float64 `json:"callback_pct"`

	// DynamicCallback widens the callback as profit grows.
	DynamicCallback bool `json:"dynamic_callback"`

	// ATRFloorMult floors the callback at this multiple of the
	// current ATR expressed as a percentage of price.
	ATRFloorMult float64 `json:"atr_floor_mult"`

	// StepPct is the escalator milestone size.
	StepPct float64 `json:"step_pct"`
}

// Config holds the risk parameters for the position Manager.
type Config struct {
	RiskPct      float64 `json:"risk_pct"`
	Leverage     float64 `json:"leverage"`
	MaxMarginPct float64 `json:"max_margin_pct"`

	// StopATRMult places the initial stop this many ATRs from entry.
	StopATRMult float64 `json:"stop_atr_mult"`

	// TPFloorATRMult floors the take-profit distance.
	TPFloorATRMult float64 `json:"tp_floor_atr_mult"`

	// FeeRate is the taker fee applied to both the open and close fills.
	FeeRate float64 `json:"fee_rate"`

	Trailing TrailingConfig `json:"trailing"`

	// RegimeRisk scales the risk amount per market regime. JSON keys
	// are regime names ("TRENDING", "RANGING", ...).
	RegimeRisk map[regime.Regime]float64 `json:"regime_risk,omitempty"`

	// RegimeTP scales the take-profit distance per market regime.
	RegimeTP map[regime.Regime]float64 `json:"regime_tp,omitempty"`

	// Timeframe escalation: once profit reaches EscalationProfitPct
	// the position is analyzed on EscalatedTimeframe.
	BaseTimeframe       string  `json:"base_timeframe"`
	EscalatedTimeframe  string  `json:"escalated_timeframe"`
	EscalationProfitPct float64 `json:"escalation_profit_pct"`
}

// DefaultConfig returns conservative production defaults.
func DefaultConfig() Config {
	return Config{
		RiskPct:        1.0,
		Leverage:       5.0,
		MaxMarginPct:   50.0,
		StopATRMult:    2.0,
		TPFloorATRMult: 1.5,
		FeeRate:        0.00055,
		Trailing: TrailingConfig{
			Mode:            ModeBest,
			ActivationPct:   1.0,
			CallbackPct:     1.0,
			DynamicCallback: true,
			ATRFloorMult:    1.0,
			StepPct:         1.0,
		},
		RegimeRisk: map[regime.Regime]float64{
			regime.RegimeTrending: 1.0,
			regime.RegimeQuiet:    1.0,
			regime.RegimeRanging:  0.8,
			regime.RegimeMixed:    0.6,
			regime.RegimeVolatile: 0.5,
			regime.RegimeUnknown:  0.5,
		},
		RegimeTP: map[regime.Regime]float64{
			regime.RegimeTrending: 2.5,
			regime.RegimeQuiet:    2.0,
			regime.RegimeMixed:    1.8,
			regime.RegimeVolatile: 1.5,
			regime.RegimeRanging:  1.2,
			regime.RegimeUnknown:  1.5,
		},
		BaseTimeframe:       "1h",
		EscalatedTimeframe:  "4h",
		EscalationProfitPct: 3.0,
	}
}

// Validate checks the config for values that would produce nonsense positions.
func (c Config) Validate() error {
	if c.RiskPct <= 0 || c.RiskPct > 100 {
		return fmt.Errorf("risk_pct must be in (0, 100], got %.2f", c.RiskPct)
	}
	if c.Leverage < 1 {
		return fmt.Errorf("leverage must be >= 1, got %.2f", c.Leverage)
	}
	if c.MaxMarginPct <= 0 || c.MaxMarginPct > 100 {
		return fmt.Errorf("max_margin_pct must be in (0, 100], got %.2f", c.MaxMarginPct)
	}
	if c.StopATRMult <= 0 {
		return fmt.Errorf("stop_atr_mult must be positive, got %.2f", c.StopATRMult)
	}
	if c.FeeRate < 0 {
		return fmt.Errorf("fee_rate must not be negative, got %.5f", c.FeeRate)
	}
	switch c.Trailing.Mode {
	case ModeRatchet, ModeEscalator, ModeBest:
	default:
		return fmt.Errorf("unknown trailing mode %q", c.Trailing.Mode)
	}
	if c.Trailing.CallbackPct <= 0 && (c.Trailing.Mode == ModeRatchet || c.Trailing.Mode == ModeBest) {
		return fmt.Errorf("callback_pct must be positive for mode %q", c.Trailing.Mode)
	}
	if c.Trailing.StepPct <= 0 && (c.Trailing.Mode == ModeEscalator || c.Trailing.Mode == ModeBest) {
		return fmt.Errorf("step_pct must be positive for mode %q", c.Trailing.Mode)
	}
	return nil
}

// riskMultiplier returns the regime risk scale, defaulting to the
// unknown-regime entry when the table has no row.
func (c Config) riskMultiplier(r regime.Regime) float64 {
	if m, ok := c.RegimeRisk[r]; ok {
		return m
	}
	if m, ok := c.RegimeRisk[regime.RegimeUnknown]; ok {
		return m
	}
	return 1.0
}

// tpMultiplier returns the regime take-profit scale.
func (c Config) tpMultiplier(r regime.Regime) float64 {
	if m, ok := c.RegimeTP[r]; ok {
		return m
	}
	if m, ok := c.RegimeTP[regime.RegimeUnknown]; ok {
		return m
	}
	return 1.5
}
