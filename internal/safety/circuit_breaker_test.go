package safety

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	berrors "github.com/ducminhle1904/regime-trading-bot/internal/errors"
)

func testBreaker(cooldown time.Duration) *CircuitBreaker {
	return NewCircuitBreaker("test", BreakerConfig{
		FailureThreshold: 3,
		SuccessThreshold: 2,
		Cooldown:         cooldown,
	})
}

func failing() error { return errors.New("venue unavailable") }
func succeeding() error { return nil }

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	cb := testBreaker(time.Minute)

	for i := 0; i < 3; i++ {
		assert.Error(t, cb.Call(failing))
	}
	assert.Equal(t, StateOpen, cb.State())

	// While open the underlying call is never made.
	called := false
	err := cb.Call(func() error { called = true; return nil })
	require.Error(t, err)
	assert.False(t, called)

	var be *berrors.BotError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, berrors.ErrorCategoryTemporary, be.Category)
	assert.True(t, be.IsRetryable())
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	cb := testBreaker(time.Minute)

	assert.Error(t, cb.Call(failing))
	assert.Error(t, cb.Call(failing))
	assert.NoError(t, cb.Call(succeeding))
	assert.Error(t, cb.Call(failing))
	assert.Error(t, cb.Call(failing))

	assert.Equal(t, StateClosed, cb.State())
}

func TestBreakerRecoversThroughHalfOpen(t *testing.T) {
	cb := testBreaker(10 * time.Millisecond)

	for i := 0; i < 3; i++ {
		assert.Error(t, cb.Call(failing))
	}
	require.Equal(t, StateOpen, cb.State())

	time.Sleep(20 * time.Millisecond)

	// First probe succeeds, breaker is half-open until the success
	// threshold is met.
	assert.NoError(t, cb.Call(succeeding))
	assert.Equal(t, StateHalfOpen, cb.State())
	assert.NoError(t, cb.Call(succeeding))
	assert.Equal(t, StateClosed, cb.State())
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	cb := testBreaker(10 * time.Millisecond)

	for i := 0; i < 3; i++ {
		assert.Error(t, cb.Call(failing))
	}
	time.Sleep(20 * time.Millisecond)

	assert.Error(t, cb.Call(failing))
	assert.Equal(t, StateOpen, cb.State())
}
