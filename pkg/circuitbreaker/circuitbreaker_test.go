package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBroker = errors.New("broker unreachable")

func newTestBreaker(clock *time.Time) *CircuitBreaker {
	cb := New(Config{FailureThreshold: 2, SuccessThreshold: 2, OpenTimeout: time.Minute})
	cb.now = func() time.Time { return *clock }
	return cb
}

func fail() error    { return errBroker }
func succeed() error { return nil }

func TestOpensAfterConsecutiveFailures(t *testing.T) {
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := newTestBreaker(&clock)

	assert.ErrorIs(t, cb.Execute(fail), errBroker)
	require.NoError(t, cb.Execute(succeed))
	assert.ErrorIs(t, cb.Execute(fail), errBroker)
	assert.Equal(t, StateClosed, cb.State(), "a success resets the failure streak")

	assert.ErrorIs(t, cb.Execute(fail), errBroker)
	assert.Equal(t, StateOpen, cb.State())
	assert.False(t, cb.Allow())

	called := false
	err := cb.Execute(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrOpen)
	assert.False(t, called)
}

func TestHalfOpenRecovery(t *testing.T) {
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := newTestBreaker(&clock)
	_ = cb.Execute(fail)
	_ = cb.Execute(fail)
	require.Equal(t, StateOpen, cb.State())

	clock = clock.Add(time.Minute)
	assert.Equal(t, StateHalfOpen, cb.State())
	assert.True(t, cb.Allow())

	require.NoError(t, cb.Execute(succeed))
	assert.Equal(t, StateHalfOpen, cb.State())
	require.NoError(t, cb.Execute(succeed))
	assert.Equal(t, StateClosed, cb.State())
}

func TestHalfOpenFailureReopens(t *testing.T) {
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := newTestBreaker(&clock)
	_ = cb.Execute(fail)
	_ = cb.Execute(fail)

	clock = clock.Add(time.Minute)
	assert.ErrorIs(t, cb.Execute(fail), errBroker)
	assert.Equal(t, StateOpen, cb.State())

	cb.Reset()
	assert.Equal(t, StateClosed, cb.State())
}
