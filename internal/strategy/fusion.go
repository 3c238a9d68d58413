package strategy

import (
	"fmt"
	"math"
	"strings"

	"github.com/ducminhle1904/regime-trading-bot/internal/regime"
	"github.com/ducminhle1904/regime-trading-bot/pkg/types"
)

// FusionConfig holds the fusion engine thresholds. The dead zone rejects
// low-conviction blends; both boundaries are exclusive.
type FusionConfig struct {
	LongThreshold  float64 `json:"long_threshold"`  // 0.3
	ShortThreshold float64 `json:"short_threshold"` // -0.3
}

// DefaultFusionConfig returns the default thresholds
func DefaultFusionConfig() FusionConfig {
	return FusionConfig{LongThreshold: 0.3, ShortThreshold: -0.3}
}

// FusionEngine blends per-strategy votes under regime-conditioned weights
// into a single directional signal per bar. A single indicator is
// regime-fragile; the blend plus dead zone is the adaptivity mechanism.
type FusionEngine struct {
	profiles ProfileTable
	config   FusionConfig
}

// NewFusionEngine creates a fusion engine over the given profile table
func NewFusionEngine(profiles ProfileTable, config FusionConfig) *FusionEngine {
	return &FusionEngine{profiles: profiles, config: config}
}

// GenerateSignal produces the fused decision for the last bar of the
// window under the confirmed regime. Votes that cannot be computed are
// excluded from both numerator and denominator.
func (f *FusionEngine) GenerateSignal(window []types.OHLCV, state *regime.State) *Signal {
	signal := &Signal{
		Direction: DirectionFlat,
		Strategy:  "fusion",
	}
	if len(window) == 0 {
		signal.Reason = "no market data"
		return signal
	}
	signal.Timestamp = window[len(window)-1].Timestamp

	current := regime.RegimeUnknown
	if state != nil {
		current = state.Current
	}
	profile := f.profiles.For(current)

	weightedSum := 0.0
	totalWeight := 0.0
	agreeLong := 0.0
	agreeShort := 0.0
	var parts []string

	for _, wv := range profile.voters() {
		if wv.weight <= 0 {
			continue
		}
		vote, err := wv.voter.Vote(window)
		if err != nil {
			// Insufficient history: the strategy abstains entirely.
			continue
		}

		weightedSum += float64(vote) * wv.weight
		totalWeight += wv.weight
		if vote > 0 {
			agreeLong += wv.weight
		} else if vote < 0 {
			agreeShort += wv.weight
		}
		if vote != 0 {
			parts = append(parts, fmt.Sprintf("%s=%+d", wv.voter.Name(), vote))
		}
	}

	if totalWeight == 0 {
		signal.Reason = fmt.Sprintf("no computable strategies in %s regime", current)
		return signal
	}

	score := weightedSum / totalWeight
	signal.Score = score
	signal.Direction = f.decide(score)

	agreement := 0.0
	switch signal.Direction {
	case DirectionLong:
		agreement = agreeLong / totalWeight
	case DirectionShort:
		agreement = agreeShort / totalWeight
	}
	signal.Confidence = f.confidence(score, agreement, signal.Direction)

	if len(parts) == 0 {
		parts = append(parts, "all neutral")
	}
	signal.Reason = fmt.Sprintf("%s regime, score %.2f: %s", current, score, strings.Join(parts, " "))
	return signal
}

// decide maps a combined score to a direction. Scores exactly at a
// threshold stay flat.
func (f *FusionEngine) decide(score float64) Direction {
	switch {
	case score > f.config.LongThreshold:
		return DirectionLong
	case score < f.config.ShortThreshold:
		return DirectionShort
	default:
		return DirectionFlat
	}
}

// confidence scales how far the score sits past the threshold and how
// much weight agreed with the chosen side into a 0-100 value. The
// threshold of the chosen direction is used, so asymmetric dead zones
// scale each side against its own boundary.
func (f *FusionEngine) confidence(score, agreement float64, d Direction) float64 {
	threshold := f.config.LongThreshold
	if d == DirectionShort {
		threshold = math.Abs(f.config.ShortThreshold)
	}
	excess := (math.Abs(score) - threshold) / (1.0 - threshold)
	if excess < 0 {
		excess = 0
	}
	conf := (0.6*excess + 0.4*agreement) * 100.0
	if conf > 100 {
		conf = 100
	}
	if conf < 0 {
		conf = 0
	}
	return conf
}
