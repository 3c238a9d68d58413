package safety

import (
	"sync"
	"time"

	berrors "github.com/ducminhle1904/regime-trading-bot/internal/errors"
)

// BreakerState is the circuit breaker state.
type BreakerState int

const (
	StateClosed BreakerState = iota
	StateOpen
	StateHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "CLOSED"
	}
}

// BreakerConfig tunes a circuit breaker.
type BreakerConfig struct {
	// FailureThreshold consecutive failures open the breaker.
	FailureThreshold int
	// SuccessThreshold consecutive half-open successes close it again.
	SuccessThreshold int
	// Cooldown is how long an open breaker rejects calls before probing.
	Cooldown time.Duration
}

// DefaultBreakerConfig suits hourly polling against an exchange API.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 3,
		SuccessThreshold: 2,
		Cooldown:         2 * time.Minute,
	}
}

// CircuitBreaker stops hammering a failing exchange. Consecutive
// failures open it; after the cooldown one probe call is let through.
type CircuitBreaker struct {
	name   string
	config BreakerConfig

	mu          sync.Mutex
	state       BreakerState
	failures    int
	successes   int
	nextAttempt time.Time
}

// NewCircuitBreaker creates a closed breaker with the given name.
func NewCircuitBreaker(name string, config BreakerConfig) *CircuitBreaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 3
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = 2
	}
	if config.Cooldown <= 0 {
		config.Cooldown = 2 * time.Minute
	}
	return &CircuitBreaker{name: name, config: config, state: StateClosed}
}

// State returns the current breaker state.
func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Call runs fn under breaker protection. While open it fails fast with
// a retryable TEMPORARY error and fn is never invoked.
func (cb *CircuitBreaker) Call(fn func() error) error {
	if !cb.allow() {
		return berrors.NewBotError(berrors.ErrorCategoryTemporary, "circuit_breaker", cb.name,
			"circuit breaker is open, calls suspended").WithRetryable(true)
	}

	err := fn()
	if err != nil {
		cb.recordFailure()
		return err
	}
	cb.recordSuccess()
	return nil
}

func (cb *CircuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed, StateHalfOpen:
		return true
	default:
		if time.Now().After(cb.nextAttempt) {
			cb.state = StateHalfOpen
			cb.successes = 0
			return true
		}
		return false
	}
}

func (cb *CircuitBreaker) recordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	if cb.state == StateHalfOpen {
		cb.successes++
		if cb.successes >= cb.config.SuccessThreshold {
			cb.state = StateClosed
			cb.successes = 0
		}
	}
}

func (cb *CircuitBreaker) recordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	switch cb.state {
	case StateHalfOpen:
		cb.trip()
	case StateClosed:
		if cb.failures >= cb.config.FailureThreshold {
			cb.trip()
		}
	}
}

// trip opens the breaker. Caller holds cb.mu.
func (cb *CircuitBreaker) trip() {
	cb.state = StateOpen
	cb.successes = 0
	cb.nextAttempt = time.Now().Add(cb.config.Cooldown)
}
