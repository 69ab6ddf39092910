// Package resilience wraps outbound calls with retry and circuit breaker
// behavior so a single flaky upstream does not stall a whole batch run.
package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// CircuitState is the breaker position.
type CircuitState int

const (
	// CircuitClosed passes requests through.
	CircuitClosed CircuitState = iota
	// CircuitOpen rejects requests until the reset timeout elapses.
	CircuitOpen
	// CircuitHalfOpen lets a single probe through to test recovery.
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned while the breaker is rejecting requests.
var ErrCircuitOpen = eris.New("circuit open")

// CircuitBreakerConfig controls when a breaker trips and recovers.
type CircuitBreakerConfig struct {
	// FailureThreshold is the consecutive-failure count that opens the
	// breaker. Default: 3.
	FailureThreshold int

	// ResetTimeout is how long the breaker stays open before allowing a
	// probe. Default: 60s.
	ResetTimeout time.Duration

	// OnStateChange observes transitions, typically for logging.
	OnStateChange func(from, to CircuitState)
}

// CircuitBreaker tracks consecutive failures for one upstream service.
// The state is derived from the failure count and the time the breaker
// opened, so an open breaker drifts to half-open without a timer.
type CircuitBreaker struct {
	cfg CircuitBreakerConfig

	mu       sync.Mutex
	failures int
	openedAt time.Time
	probing  bool

	now func() time.Time
}

// NewCircuitBreaker creates a closed breaker with the given config.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 3
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 60 * time.Second
	}
	return &CircuitBreaker{cfg: cfg, now: time.Now}
}

// State returns the current breaker position.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.stateLocked()
}

func (cb *CircuitBreaker) stateLocked() CircuitState {
	if cb.failures < cb.cfg.FailureThreshold {
		return CircuitClosed
	}
	if cb.now().Sub(cb.openedAt) >= cb.cfg.ResetTimeout {
		return CircuitHalfOpen
	}
	return CircuitOpen
}

// Execute runs fn unless the breaker is open. A success closes the breaker,
// a failure opens it once the threshold is reached.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	_, err := ExecuteVal(ctx, cb, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// ExecuteVal is Execute for calls that return a value.
func ExecuteVal[T any](ctx context.Context, cb *CircuitBreaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if !cb.admit() {
		return zero, ErrCircuitOpen
	}
	val, err := fn(ctx)
	cb.record(err)
	return val, err
}

func (cb *CircuitBreaker) admit() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.stateLocked() {
	case CircuitOpen:
		return false
	case CircuitHalfOpen:
		// One probe at a time.
		if cb.probing {
			return false
		}
		cb.probing = true
	}
	return true
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	before := cb.stateLocked()
	cb.probing = false

	if err != nil {
		cb.failures++
		if cb.failures >= cb.cfg.FailureThreshold {
			cb.openedAt = cb.now()
		}
	} else {
		cb.failures = 0
	}

	after := cb.stateLocked()
	if before != after && cb.cfg.OnStateChange != nil {
		cb.cfg.OnStateChange(before, after)
	}
}
