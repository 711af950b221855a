package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrBackendUnavailable is returned when the breaker guarding a backend is
// open and the call is skipped.
var ErrBackendUnavailable = errors.New("model backend unavailable")

// breakerState tracks whether a backend is being called, skipped, or probed.
type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

func (s breakerState) String() string {
	switch s {
	case breakerClosed:
		return "closed"
	case breakerOpen:
		return "open"
	case breakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

const (
	breakerFailureThreshold = 5
	breakerSuccessThreshold = 2
	breakerOpenTimeout      = 60 * time.Second
)

// breaker short-circuits calls to a model backend that keeps failing, so a
// dead upstream costs an immediate error instead of a full request timeout.
// After breakerOpenTimeout a single probe call is allowed through.
type breaker struct {
	mu          sync.Mutex
	state       breakerState
	failures    int
	successes   int
	lastFailure time.Time

	onStateChange func(from, to breakerState)
}

func newBreaker(onStateChange func(from, to breakerState)) *breaker {
	return &breaker{
		state:         breakerClosed,
		onStateChange: onStateChange,
	}
}

// execute runs fn under breaker protection. When the circuit is open the
// call is skipped and ErrBackendUnavailable is returned.
func (b *breaker) execute(_ context.Context, fn func() error) error {
	if err := b.allow(); err != nil {
		return err
	}

	err := fn()
	b.record(err)
	return err
}

func (b *breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == breakerOpen {
		if time.Since(b.lastFailure) < breakerOpenTimeout {
			return fmt.Errorf("%w: retry in %s", ErrBackendUnavailable,
				(breakerOpenTimeout - time.Since(b.lastFailure)).Round(time.Second))
		}
		b.transition(breakerHalfOpen)
	}
	return nil
}

func (b *breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		b.failures++
		b.lastFailure = time.Now()
		if b.state == breakerHalfOpen || b.failures >= breakerFailureThreshold {
			b.transition(breakerOpen)
		}
		return
	}

	b.failures = 0
	if b.state == breakerHalfOpen {
		b.successes++
		if b.successes >= breakerSuccessThreshold {
			b.transition(breakerClosed)
		}
	}
}

func (b *breaker) transition(to breakerState) {
	if b.state == to {
		return
	}
	from := b.state
	b.state = to
	b.failures = 0
	b.successes = 0
	if b.onStateChange != nil {
		b.onStateChange(from, to)
	}
}

func (b *breaker) currentState() breakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
