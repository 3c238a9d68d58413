package position

import (
	"fmt"

	berrors "github.com/ducminhle1904/regime-trading-bot/internal/errors"
	"github.com/ducminhle1904/regime-trading-bot/internal/regime"
)

// Sizing is the result of a successful position-size calculation.
type Sizing struct {
	Quantity      float64
	PositionValue float64
	RiskAmount    float64
	Margin        float64

	StopLoss        float64
	TakeProfit      float64
	StopDistance    float64
	StopDistancePct float64
}

// computeSizing converts account balance and volatility into an order size.
//
// The risk amount is the fraction of the balance the trade may lose if the
// stop is hit. With leverage L and a stop d% away, a position value of
// risk * L / d loses exactly the risk amount (times leverage on the margin
// side) when price moves d% against it.
func computeSizing(cfg Config, side Side, balance, entry, atr float64, reg regime.Regime) (Sizing, *berrors.BotError) {
	const component = "position"

	if balance <= 0 {
		return Sizing{}, berrors.NewSizingError(component, "compute_sizing",
			fmt.Sprintf("balance must be positive, got %.4f", balance))
	}
	if entry <= 0 {
		return Sizing{}, berrors.NewSizingError(component, "compute_sizing",
			fmt.Sprintf("entry price must be positive, got %.4f", entry))
	}
	if atr <= 0 {
		return Sizing{}, berrors.NewSizingError(component, "compute_sizing",
			fmt.Sprintf("atr must be positive, got %.6f", atr))
	}

	stopDistance := cfg.StopATRMult * atr
	if stopDistance >= entry {
		return Sizing{}, berrors.NewSizingError(component, "compute_sizing",
			fmt.Sprintf("stop distance %.4f exceeds entry price %.4f", stopDistance, entry))
	}
	stopPct := stopDistance / entry * 100

	riskAmount := balance * cfg.RiskPct / 100 * cfg.riskMultiplier(reg)
	positionValue := riskAmount * cfg.Leverage / stopPct
	margin := positionValue / cfg.Leverage

	// Margin cap: shrink the position rather than reject it.
	maxMargin := balance * cfg.MaxMarginPct / 100
	if margin > maxMargin {
		scale := maxMargin / margin
		positionValue *= scale
		riskAmount *= scale
		margin = maxMargin
	}

	quantity := positionValue / entry
	if quantity <= 0 {
		return Sizing{}, berrors.NewSizingError(component, "compute_sizing",
			"computed quantity is zero")
	}

	sign := side.Sign()
	stopLoss := entry - sign*stopDistance

	tpDistance := stopDistance * cfg.tpMultiplier(reg)
	if floor := cfg.TPFloorATRMult * atr; tpDistance < floor {
		tpDistance = floor
	}
	takeProfit := entry + sign*tpDistance

	return Sizing{
		Quantity:        quantity,
		PositionValue:   positionValue,
		RiskAmount:      riskAmount,
		Margin:          margin,
		StopLoss:        stopLoss,
		TakeProfit:      takeProfit,
		StopDistance:    stopDistance,
		StopDistancePct: stopPct,
	}, nil
}
