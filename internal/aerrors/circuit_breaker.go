package aerrors

import (
	"fmt"
	"sync"
	"time"
)

// CircuitState mirrors the teacher's closed/open/half-open machine.
type CircuitState int

const (
	StateClosed CircuitState = iota
	StateOpen
	StateHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// CircuitBreakerConfig configures a CircuitBreaker.
type CircuitBreakerConfig struct {
	FailureThreshold int
	SuccessThreshold int
	Timeout          time.Duration
	OnStateChange    func(name string, from, to CircuitState)
}

// DefaultCircuitBreakerConfig matches the teacher's defaults.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Timeout:          30 * time.Second,
	}
}

// CircuitBreaker guards a flaky remote dependency (e.g. the web-store
// update endpoint in the Packer's extension fetcher).
type CircuitBreaker struct {
	name   string
	cfg    CircuitBreakerConfig
	mu     sync.Mutex
	state  CircuitState
	fails  int
	succ   int
	openAt time.Time
}

// NewCircuitBreaker creates a named circuit breaker starting closed.
func NewCircuitBreaker(name string, cfg CircuitBreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{name: name, cfg: cfg, state: StateClosed}
}

// Allow reports whether a call may proceed, transitioning open->half-open
// once the timeout has elapsed.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	switch cb.state {
	case StateOpen:
		if time.Since(cb.openAt) >= cb.cfg.Timeout {
			cb.transition(StateHalfOpen)
			return true
		}
		return false
	default:
		return true
	}
}

// RecordSuccess reports a successful call.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.fails = 0
	switch cb.state {
	case StateHalfOpen:
		cb.succ++
		if cb.succ >= cb.cfg.SuccessThreshold {
			cb.transition(StateClosed)
		}
	case StateOpen:
		cb.transition(StateHalfOpen)
	}
}

// RecordFailure reports a failed call.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.succ = 0
	switch cb.state {
	case StateHalfOpen:
		cb.transition(StateOpen)
	case StateClosed:
		cb.fails++
		if cb.fails >= cb.cfg.FailureThreshold {
			cb.transition(StateOpen)
		}
	}
}

func (cb *CircuitBreaker) transition(to CircuitState) {
	from := cb.state
	cb.state = to
	if to == StateOpen {
		cb.openAt = time.Now()
	}
	cb.fails, cb.succ = 0, 0
	if cb.cfg.OnStateChange != nil && from != to {
		cb.cfg.OnStateChange(cb.name, from, to)
	}
}

// State returns the current state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// ErrOpen is returned by callers that check Allow() themselves.
var ErrOpen = fmt.Errorf("circuit breaker open")
