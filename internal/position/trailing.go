package position

import "math"

// ratchetStop follows the favorable watermark at a callback distance.
// The callback widens with profit and is floored by current volatility
// so a noisy market does not shake the position out.
func ratchetStop(cfg TrailingConfig, p *Position, price, atr float64) (float64, bool) {
	if cfg.CallbackPct <= 0 {
		return 0, false
	}

	callback := cfg.CallbackPct
	if cfg.DynamicCallback {
		profit := p.ProfitPct(price)
		switch {
		case profit >= 5:
			callback *= 1.5
		case profit >= 2:
			callback *= 1.2
		}
	}
	if atr > 0 && price > 0 && cfg.ATRFloorMult > 0 {
		atrPct := atr / price * 100 * cfg.ATRFloorMult
		if atrPct > callback {
			callback = atrPct
		}
	}

	if p.Side == SideLong {
		return p.HighWaterMark * (1 - callback/100), true
	}
	return p.LowWaterMark * (1 + callback/100), true
}

// escalatorStop locks the stop to the last profit milestone crossed.
// Below the first milestone there is no candidate.
func escalatorStop(cfg TrailingConfig, p *Position, price float64) (float64, bool) {
	if cfg.StepPct <= 0 {
		return 0, false
	}

	steps := math.Floor(p.ProfitPct(price) / cfg.StepPct)
	if steps < 1 {
		return 0, false
	}

	sign := p.Side.Sign()
	candidate := p.EntryPrice * (1 + sign*steps*cfg.StepPct/100)

	// Exactly on a milestone the candidate sits at the current price;
	// back off one step so the stop stays strictly behind it.
	if sign*(price-candidate) <= 0 {
		steps--
		if steps < 1 {
			return 0, false
		}
		candidate = p.EntryPrice * (1 + sign*steps*cfg.StepPct/100)
	}
	return candidate, true
}

// trailingCandidate evaluates the configured discipline(s) and returns
// the winning stop level. The stop only ever tightens: a candidate that
// is not strictly more protective than the current stop, or that sits
// on the wrong side of price, is discarded.
func trailingCandidate(cfg TrailingConfig, p *Position, price, atr float64) (float64, TrailingMode, bool) {
	sign := p.Side.Sign()

	best := 0.0
	bestMode := cfg.Mode
	found := false
	consider := func(candidate float64, mode TrailingMode) {
		if candidate <= 0 {
			return
		}
		if sign*(price-candidate) <= 0 {
			return
		}
		if !found || sign*(candidate-best) > 0 {
			best = candidate
			bestMode = mode
			found = true
		}
	}

	if cfg.Mode == ModeRatchet || cfg.Mode == ModeBest {
		if c, ok := ratchetStop(cfg, p, price, atr); ok {
			consider(c, ModeRatchet)
		}
	}
	if cfg.Mode == ModeEscalator || cfg.Mode == ModeBest {
		if c, ok := escalatorStop(cfg, p, price); ok {
			consider(c, ModeEscalator)
		}
	}

	if !found {
		return 0, bestMode, false
	}
	if sign*(best-p.StopLoss) <= 0 {
		return 0, bestMode, false
	}
	return best, bestMode, true
}
