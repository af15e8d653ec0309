package resilience

import (
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// State is the circuit breaker state.
type State int

const (
	// StateClosed is normal operation; calls pass through.
	StateClosed State = iota
	// StateOpen rejects calls immediately until the cool-down elapses.
	StateOpen
	// StateHalfOpen admits a single probe call after the cool-down.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned when a call is short-circuited.
var ErrCircuitOpen = eris.New("resilience: circuit breaker is open")

// BreakerConfig controls breaker behavior.
type BreakerConfig struct {
	// FailureThreshold is the consecutive-failure count that opens the
	// circuit. Default: 5.
	FailureThreshold int
	// CoolDown is how long the circuit stays open before half-opening.
	// Default: 60s.
	CoolDown time.Duration
	// OnStateChange is called on transitions, outside the lock's hot path
	// but while holding it; keep it cheap.
	OnStateChange func(from, to State)
}

// Breaker is a mutex-guarded circuit breaker shared by all model calls in
// the process. It replaces the hidden class-level counters of the
// original system with explicit, injectable state.
type Breaker struct {
	cfg BreakerConfig

	mu          sync.Mutex
	state       State
	failures    int
	lastFailure time.Time

	now func() time.Time // test seam
}

// NewBreaker creates a Breaker, applying defaults for zero config values.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.CoolDown <= 0 {
		cfg.CoolDown = 60 * time.Second
	}
	return &Breaker{cfg: cfg, state: StateClosed, now: time.Now}
}

// Allow reports whether a call may proceed. In the open state it
// half-opens once the cool-down has elapsed and admits the probe.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		if b.now().Sub(b.lastFailure) >= b.cfg.CoolDown {
			b.transition(StateHalfOpen)
			return nil
		}
		return ErrCircuitOpen
	default:
		return nil
	}
}

// Record feeds a call result back into the breaker.
func (b *Breaker) Record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		if b.state != StateClosed {
			b.transition(StateClosed)
		}
		b.failures = 0
		return
	}

	b.failures++
	b.lastFailure = b.now()

	switch b.state {
	case StateClosed:
		if b.failures >= b.cfg.FailureThreshold {
			b.transition(StateOpen)
		}
	case StateHalfOpen:
		// A failed probe reopens immediately.
		b.transition(StateOpen)
	}
}

// State returns the current state, accounting for an elapsed cool-down.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen && b.now().Sub(b.lastFailure) >= b.cfg.CoolDown {
		return StateHalfOpen
	}
	return b.state
}

// Failures returns the consecutive-failure counter.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// Reset forces the breaker closed. For tests and manual recovery.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != StateClosed {
		b.transition(StateClosed)
	}
	b.failures = 0
}

func (b *Breaker) transition(to State) {
	from := b.state
	b.state = to
	if b.cfg.OnStateChange != nil {
		b.cfg.OnStateChange(from, to)
	}
}
