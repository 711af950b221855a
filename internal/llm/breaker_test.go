package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBackendDown = errors.New("backend down")

func failingCall() error { return errBackendDown }

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	b := newBreaker(nil)
	ctx := context.Background()

	for i := 0; i < breakerFailureThreshold; i++ {
		err := b.execute(ctx, failingCall)
		assert.ErrorIs(t, err, errBackendDown)
	}

	require.Equal(t, breakerOpen, b.currentState())

	calls := 0
	err := b.execute(ctx, func() error {
		calls++
		return nil
	})
	assert.ErrorIs(t, err, ErrBackendUnavailable)
	assert.Zero(t, calls, "open breaker must skip the call")
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	b := newBreaker(nil)
	ctx := context.Background()

	for i := 0; i < breakerFailureThreshold-1; i++ {
		_ = b.execute(ctx, failingCall)
	}
	require.NoError(t, b.execute(ctx, func() error { return nil }))

	// The streak was broken, so one more failure must not open the circuit.
	_ = b.execute(ctx, failingCall)
	assert.Equal(t, breakerClosed, b.currentState())
}

func TestBreaker_HalfOpenRecovery(t *testing.T) {
	var transitions []string
	b := newBreaker(func(from, to breakerState) {
		transitions = append(transitions, from.String()+">"+to.String())
	})
	ctx := context.Background()

	for i := 0; i < breakerFailureThreshold; i++ {
		_ = b.execute(ctx, failingCall)
	}
	require.Equal(t, breakerOpen, b.currentState())

	// Age the last failure past the open timeout so the next call probes.
	b.mu.Lock()
	b.lastFailure = b.lastFailure.Add(-2 * breakerOpenTimeout)
	b.mu.Unlock()

	for i := 0; i < breakerSuccessThreshold; i++ {
		require.NoError(t, b.execute(ctx, func() error { return nil }))
	}
	assert.Equal(t, breakerClosed, b.currentState())
	assert.Equal(t, []string{"closed>open", "open>half-open", "half-open>closed"}, transitions)
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	b := newBreaker(nil)
	ctx := context.Background()

	for i := 0; i < breakerFailureThreshold; i++ {
		_ = b.execute(ctx, failingCall)
	}

	b.mu.Lock()
	b.lastFailure = b.lastFailure.Add(-2 * breakerOpenTimeout)
	b.mu.Unlock()

	_ = b.execute(ctx, failingCall)
	assert.Equal(t, breakerOpen, b.currentState())
}
