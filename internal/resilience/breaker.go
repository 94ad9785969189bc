// Package resilience guards the outbound provider calls. The call flow
// performs no retries; the breaker only keeps a dead provider from being
// hammered by every inbound webhook while it recovers.
package resilience

import (
	"errors"
	"sync"
	"time"

	"github.com/vidyutseva/voice-line/internal/observability"
)

// ErrOpen is returned when the circuit is open and the request was not
// attempted.
var ErrOpen = errors.New("circuit breaker is open")

// State is the state of a circuit breaker.
type State int

const (
	StateClosed   State = iota // normal operation
	StateOpen                  // requests fail immediately
	StateHalfOpen              // probing whether the service recovered
)

// Breaker implements a minimal circuit breaker. After maxFailures
// consecutive failures the circuit opens; after resetTimeout a limited
// number of probe requests are allowed through.
type Breaker struct {
	name         string
	maxFailures  int
	resetTimeout time.Duration
	halfOpenMax  int

	mu            sync.Mutex
	state         State
	failures      int
	successes     int
	halfOpenCount int
	lastFailure   time.Time
}

// NewBreaker creates a circuit breaker named for the service it guards.
func NewBreaker(name string, maxFailures int, resetTimeout time.Duration) *Breaker {
	b := &Breaker{
		name:         name,
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		halfOpenMax:  3,
		state:        StateClosed,
	}
	observability.SetBreakerState(name, int(StateClosed))
	return b
}

// Call executes fn unless the circuit is open. The function's error is
// returned unchanged; ErrOpen is returned when the request was refused.
func (b *Breaker) Call(fn func() error) error {
	if !b.allow() {
		return ErrOpen
	}

	err := fn()
	b.record(err == nil)
	return err
}

// State returns the current breaker state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true

	case StateOpen:
		if time.Since(b.lastFailure) >= b.resetTimeout {
			b.transition(StateHalfOpen)
			b.halfOpenCount = 1
			b.successes = 0
			return true
		}
		return false

	case StateHalfOpen:
		if b.halfOpenCount < b.halfOpenMax {
			b.halfOpenCount++
			return true
		}
		return false
	}

	return false
}

func (b *Breaker) record(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if success {
		switch b.state {
		case StateClosed:
			b.failures = 0
		case StateHalfOpen:
			b.successes++
			if b.successes >= b.halfOpenMax {
				b.transition(StateClosed)
				b.failures = 0
				b.halfOpenCount = 0
			}
		}
		return
	}

	b.lastFailure = time.Now()
	switch b.state {
	case StateClosed:
		b.failures++
		if b.failures >= b.maxFailures {
			b.transition(StateOpen)
		}
	case StateHalfOpen:
		// Any failure while probing reopens immediately.
		b.transition(StateOpen)
		b.halfOpenCount = 0
		b.successes = 0
	}
}

// transition must be called with the mutex held.
func (b *Breaker) transition(s State) {
	b.state = s
	observability.SetBreakerState(b.name, int(s))
}
