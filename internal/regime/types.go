package regime

import (
	"fmt"
	"strings"
	"time"
)

// Regime is a coarse label for current market behavior
type Regime int

const (
	RegimeUnknown Regime = iota
	RegimeTrending
	RegimeRanging
	RegimeVolatile
	RegimeQuiet
	RegimeMixed
)

func (r Regime) String() string {
	switch r {
	case RegimeTrending:
		return "TRENDING"
	case RegimeRanging:
		return "RANGING"
	case RegimeVolatile:
		return "VOLATILE"
	case RegimeQuiet:
		return "QUIET"
	case RegimeMixed:
		return "MIXED"
	default:
		return "UNKNOWN"
	}
}

// MarshalText serializes the regime by name so it can key JSON maps.
func (r Regime) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText parses a regime name, case-insensitively. Unknown names
// are an error rather than silently mapping to UNKNOWN, so a typo in a
// config file cannot drop a per-regime override.
func (r *Regime) UnmarshalText(text []byte) error {
	switch strings.ToUpper(string(text)) {
	case "TRENDING":
		*r = RegimeTrending
	case "RANGING":
		*r = RegimeRanging
	case "VOLATILE":
		*r = RegimeVolatile
	case "QUIET":
		*r = RegimeQuiet
	case "MIXED":
		*r = RegimeMixed
	case "UNKNOWN":
		*r = RegimeUnknown
	default:
		return fmt.Errorf("unknown regime %q", string(text))
	}
	return nil
}

// scoredRegimes are the regimes that receive probability mass from the
// classifier. MIXED and UNKNOWN are derived states, never scored directly.
var scoredRegimes = []Regime{RegimeTrending, RegimeRanging, RegimeVolatile, RegimeQuiet}

// State is the classifier output for one bar
type State struct {
	Current       Regime             `json:"current"`
	Candidate     Regime             `json:"candidate"`     // Instantaneous argmax before hysteresis
	Probabilities map[Regime]float64 `json:"probabilities"` // Sums to 1
	Timestamp     time.Time          `json:"timestamp"`
	History       []Regime           `json:"history"` // Recent confirmed regimes, oldest first
}

// Change represents a regime transition event
type Change struct {
	Timestamp    time.Time `json:"timestamp"`
	OldRegime    Regime    `json:"old_regime"`
	NewRegime    Regime    `json:"new_regime"`
	TriggerPrice float64   `json:"trigger_price"`
}

// Config holds classifier parameters. All values are heuristic defaults
// surfaced through configuration rather than derived constants.
type Config struct {
	MinWindow         int     `json:"min_window"`          // 20
	MinRegimeDuration int     `json:"min_regime_duration"` // 5 candidate bars for hysteresis
	ModalShare        float64 `json:"modal_share"`         // 0.60
	ADXPeriod         int     `json:"adx_period"`          // 14
	TrendDisplacement float64 `json:"trend_displacement"`  // Net move treated as fully trending
	RangeSpan         float64 `json:"range_span"`          // Range/mean ratio treated as fully ranging
	VolatilityRef     float64 `json:"volatility_ref"`      // Scaled return stddev treated as fully volatile
	HistorySize       int     `json:"history_size"`        // Confirmed-regime ring size
}

// DefaultConfig returns the default classifier configuration
func DefaultConfig() Config {
	return Config{
		MinWindow:         20,
		MinRegimeDuration: 5,
		ModalShare:        0.60,
		ADXPeriod:         14,
		TrendDisplacement: 0.04,
		RangeSpan:         0.06,
		VolatilityRef:     0.08,
		HistorySize:       64,
	}
}

// Callback is the interface for regime change notifications
type Callback interface {
	OnRegimeChange(change *Change) error
}

// EventBus manages regime change notifications
type EventBus struct {
	subscribers map[string]Callback
}

// NewEventBus creates a new event bus for regime notifications
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string]Callback)}
}

// Subscribe adds a new subscriber for regime changes
func (bus *EventBus) Subscribe(id string, callback Callback) {
	bus.subscribers[id] = callback
}

// Unsubscribe removes a subscriber
func (bus *EventBus) Unsubscribe(id string) {
	delete(bus.subscribers, id)
}

// Publish notifies all subscribers of a regime change. Subscriber errors
// are ignored; notification must never stall classification.
func (bus *EventBus) Publish(change *Change) {
	for _, callback := range bus.subscribers {
		go func(cb Callback) {
			_ = cb.OnRegimeChange(change)
		}(callback)
	}
}
