package regime

import (
	"math"

	"github.com/ducminhle1904/regime-trading-bot/internal/indicators"
	"github.com/ducminhle1904/regime-trading-bot/pkg/types"
)

// Classifier turns a rolling candle window into a smoothed regime state.
// Raw per-bar classification is noisy; a plurality-over-window rule keeps
// the confirmed regime from flapping and whipsawing strategy selection.
type Classifier struct {
	config Config

	candidates []Regime // Ring of recent instantaneous candidates
	history    []Regime // Ring of confirmed regimes
	current    Regime
	bus        *EventBus
}

// NewClassifier creates a classifier with the given configuration
func NewClassifier(config Config) *Classifier {
	return &Classifier{
		config:     config,
		candidates: make([]Regime, 0, config.MinRegimeDuration),
		history:    make([]Regime, 0, config.HistorySize),
		current:    RegimeUnknown,
		bus:        NewEventBus(),
	}
}

// Subscribe registers a callback for confirmed regime changes
func (c *Classifier) Subscribe(id string, callback Callback) {
	c.bus.Subscribe(id, callback)
}

// Current returns the last confirmed regime
func (c *Classifier) Current() Regime {
	return c.current
}

// Classify scores the window and applies hysteresis. It never fails:
// windows below the minimum size yield UNKNOWN with a uniform probability
// vector, and indicator faults contribute zero score.
func (c *Classifier) Classify(window []types.OHLCV) *State {
	state := &State{
		Probabilities: make(map[Regime]float64, len(scoredRegimes)),
	}
	if len(window) > 0 {
		state.Timestamp = window[len(window)-1].Timestamp
	}

	if len(window) < c.config.MinWindow {
		for _, r := range scoredRegimes {
			state.Probabilities[r] = 1.0 / float64(len(scoredRegimes))
		}
		state.Candidate = RegimeUnknown
		state.Current = RegimeUnknown
		state.History = c.snapshotHistory()
		return state
	}

	scores := c.score(window)
	total := 0.0
	for _, s := range scores {
		total += s
	}
	if total <= 0 {
		for _, r := range scoredRegimes {
			state.Probabilities[r] = 1.0 / float64(len(scoredRegimes))
		}
	} else {
		for r, s := range scores {
			state.Probabilities[r] = s / total
		}
	}

	state.Candidate = argmax(state.Probabilities)
	confirmed := c.applyHysteresis(state.Candidate)

	if confirmed != c.current && confirmed != RegimeMixed {
		change := &Change{
			Timestamp:    state.Timestamp,
			OldRegime:    c.current,
			NewRegime:    confirmed,
			TriggerPrice: window[len(window)-1].Close,
		}
		c.current = confirmed
		c.bus.Publish(change)
	}

	c.pushHistory(confirmed)
	state.Current = confirmed
	state.History = c.snapshotHistory()
	return state
}

// score computes the four raw regime scores over the trailing window.
// Scores are clamped non-negative; NaN inputs contribute zero.
func (c *Classifier) score(window []types.OHLCV) map[Regime]float64 {
	first := window[0].Close
	last := window[len(window)-1].Close

	displacement := 0.0
	if first > 0 {
		displacement = math.Abs(last-first) / first
	}
	dispNorm := clamp01(displacement / c.config.TrendDisplacement)

	adxNorm := 0.0
	adx := indicators.NewADX(c.config.ADXPeriod)
	if value, err := adx.Calculate(window); err == nil {
		adxNorm = clamp01(value / 100.0 * 2.0) // ADX 50+ reads as fully trending
	}

	maxHigh, minLow, meanClose := windowExtent(window)
	rangeRatio := 0.0
	if meanClose > 0 {
		rangeRatio = (maxHigh - minLow) / meanClose
	}
	rangeNorm := clamp01(rangeRatio / c.config.RangeSpan)

	volNorm := clamp01(scaledReturnStdDev(window) / c.config.VolatilityRef)

	scores := map[Regime]float64{
		RegimeTrending: (dispNorm + adxNorm) / 2.0,
		RegimeRanging:  (1.0 - dispNorm) * rangeNorm,
		RegimeVolatile: volNorm,
		RegimeQuiet:    (1.0 - volNorm) * (1.0 - dispNorm),
	}
	for r, s := range scores {
		if math.IsNaN(s) || s < 0 {
			scores[r] = 0
		}
	}
	return scores
}

// applyHysteresis appends the candidate to the ring and confirms it only
// when it is the modal value covering at least ModalShare of the ring.
// A contested ring (e.g. a 2/2/1 split) reads as MIXED.
func (c *Classifier) applyHysteresis(candidate Regime) Regime {
	c.candidates = append(c.candidates, candidate)
	if len(c.candidates) > c.config.MinRegimeDuration {
		c.candidates = c.candidates[1:]
	}

	counts := make(map[Regime]int, len(c.candidates))
	modal := c.candidates[0]
	for _, r := range c.candidates {
		counts[r]++
		if counts[r] > counts[modal] {
			modal = r
		}
	}

	share := float64(counts[modal]) / float64(len(c.candidates))
	if share >= c.config.ModalShare {
		return modal
	}
	return RegimeMixed
}

func (c *Classifier) pushHistory(r Regime) {
	c.history = append(c.history, r)
	if len(c.history) > c.config.HistorySize {
		c.history = c.history[1:]
	}
}

func (c *Classifier) snapshotHistory() []Regime {
	out := make([]Regime, len(c.history))
	copy(out, c.history)
	return out
}

// scaledReturnStdDev is the standard deviation of bar-to-bar returns
// scaled by the square root of the window length.
func scaledReturnStdDev(window []types.OHLCV) float64 {
	returns := make([]float64, 0, len(window)-1)
	for i := 1; i < len(window); i++ {
		if window[i-1].Close > 0 {
			returns = append(returns, (window[i].Close-window[i-1].Close)/window[i-1].Close)
		}
	}
	if len(returns) == 0 {
		return 0
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		diff := r - mean
		variance += diff * diff
	}
	variance /= float64(len(returns))

	sd := math.Sqrt(variance) * math.Sqrt(float64(len(window)))
	if math.IsNaN(sd) {
		return 0
	}
	return sd
}

func windowExtent(window []types.OHLCV) (maxHigh, minLow, meanClose float64) {
	maxHigh = window[0].High
	minLow = window[0].Low
	sum := 0.0
	for _, candle := range window {
		if candle.High > maxHigh {
			maxHigh = candle.High
		}
		if candle.Low < minLow {
			minLow = candle.Low
		}
		sum += candle.Close
	}
	return maxHigh, minLow, sum / float64(len(window))
}

// argmax returns the highest-probability regime; ties resolve in the
// fixed order of scoredRegimes so the result is deterministic.
func argmax(probabilities map[Regime]float64) Regime {
	best := scoredRegimes[0]
	for _, r := range scoredRegimes[1:] {
		if probabilities[r] > probabilities[best] {
			best = r
		}
	}
	return best
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
