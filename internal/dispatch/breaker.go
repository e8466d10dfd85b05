package dispatch

import (
	"sync"
	"time"

	"reqdiff/internal/core"
)

// CircuitState is the breaker's current mode.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Breaker is a circuit breaker shared by all workers of a run. A single
// mutex guards every state transition; consecutive failures are counted
// across workers, not per worker, so cross-worker failure bursts trip it.
type Breaker struct {
	mu        sync.Mutex
	clock     core.Clock
	threshold int
	cooldown  time.Duration

	state    CircuitState
	failures int
	openedAt time.Time
	probing  bool
}

// NewBreaker creates a closed breaker. threshold is the number of
// consecutive failures that opens it; cooldown is how long it stays open
// before admitting a probe.
func NewBreaker(threshold int, cooldown time.Duration, clock core.Clock) *Breaker {
	if threshold < 1 {
		threshold = 1
	}
	return &Breaker{
		clock:     clock,
		threshold: threshold,
		cooldown:  cooldown,
	}
}

// Allow reports whether a send may proceed. While open it short-circuits
// until the cooldown elapses, then moves to half-open and admits exactly
// one probe; further calls fail fast until the probe settles.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case CircuitClosed:
		return true
	case CircuitOpen:
		if b.clock.Since(b.openedAt) < b.cooldown {
			return false
		}
		b.state = CircuitHalfOpen
		b.probing = true
		return true
	case CircuitHalfOpen:
		if b.probing {
			return false
		}
		b.probing = true
		return true
	default:
		return false
	}
}

// OnSuccess records a successful send. A half-open probe success closes the
// breaker and clears the failure count.
func (b *Breaker) OnSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.probing = false
	b.state = CircuitClosed
}

// OnFailure records a failed send. A half-open probe failure reopens the
// breaker and restarts the cooldown timer.
func (b *Breaker) OnFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == CircuitHalfOpen {
		b.state = CircuitOpen
		b.openedAt = b.clock.Now()
		b.probing = false
		return
	}

	b.failures++
	if b.failures >= b.threshold {
		b.state = CircuitOpen
		b.openedAt = b.clock.Now()
	}
}

// State returns the current circuit state.
func (b *Breaker) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Failures returns the consecutive failure count.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}
