package resilience

import (
	"sync"
	"time"
)

// CircuitBreakerState is the admission state of the breaker
type CircuitBreakerState int32

const (
	StateClosed CircuitBreakerState = iota
	StateOpen
	StateHalfOpen
)

func (s CircuitBreakerState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig tunes when the breaker opens and recovers
type CircuitBreakerConfig struct {
	// FailureThreshold is how many consecutive failures open the circuit
	FailureThreshold int `json:"failure_threshold"`

	// RecoveryTimeout is how long an open circuit rejects before
	// admitting trial calls
	RecoveryTimeout time.Duration `json:"recovery_timeout"`

	// SuccessThreshold is how many half-open successes close the circuit
	SuccessThreshold int `json:"success_threshold"`
}

// CircuitBreaker stops hammering an upstream that keeps failing.
// Consecutive failures open the circuit; after the recovery timeout,
// trial calls are admitted and enough successes close it again.
type CircuitBreaker struct {
	config CircuitBreakerConfig

	mu        sync.Mutex
	state     CircuitBreakerState
	failures  int
	successes int
	reopenAt  time.Time
}

// NewCircuitBreaker creates a breaker. Zero config fields get defaults
// suited to a polling API client: 5 failures, 30s recovery, 3 successes.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.RecoveryTimeout <= 0 {
		config.RecoveryTimeout = 30 * time.Second
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = 3
	}

	return &CircuitBreaker{
		config: config,
		state:  StateClosed,
	}
}

// Call runs fn unless the circuit is open. The function runs outside
// the breaker's lock; only admission and outcome accounting are
// serialized.
func (cb *CircuitBreaker) Call(fn func() error) error {
	if err := cb.admit(); err != nil {
		return err
	}

	err := fn()

	cb.record(err == nil)
	return err
}

// admit decides whether a call may proceed, moving an expired open
// circuit to half-open.
func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen {
		if time.Now().Before(cb.reopenAt) {
			return NewCircuitBreakerError("circuit breaker is open", StateOpen)
		}
		cb.state = StateHalfOpen
		cb.successes = 0
	}
	return nil
}

// record applies one call outcome to the breaker state
func (cb *CircuitBreaker) record(success bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if !success {
		cb.successes = 0
		cb.failures++
		if cb.state == StateHalfOpen || cb.failures >= cb.config.FailureThreshold {
			cb.state = StateOpen
			cb.failures = 0
			cb.reopenAt = time.Now().Add(cb.config.RecoveryTimeout)
		}
		return
	}

	cb.failures = 0
	if cb.state == StateHalfOpen {
		cb.successes++
		if cb.successes >= cb.config.SuccessThreshold {
			cb.state = StateClosed
			cb.successes = 0
		}
	}
}

// State returns the current admission state
func (cb *CircuitBreaker) State() CircuitBreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Failures returns the current consecutive-failure count
func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}

// Reset forces the breaker back to closed
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = StateClosed
	cb.failures = 0
	cb.successes = 0
}

// CircuitBreakerError is returned for calls rejected by an open circuit
type CircuitBreakerError struct {
	Message string
	State   CircuitBreakerState
}

func (e *CircuitBreakerError) Error() string {
	return e.Message
}

// NewCircuitBreakerError creates a circuit breaker rejection error
func NewCircuitBreakerError(message string, state CircuitBreakerState) *CircuitBreakerError {
	return &CircuitBreakerError{
		Message: message,
		State:   state,
	}
}
