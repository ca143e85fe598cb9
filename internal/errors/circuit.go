package errors

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrCircuitOpen is the cause of errors returned while a breaker rejects
// calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// BreakerState is the state of a CircuitBreaker.
type BreakerState int

const (
	// BreakerClosed lets every call through.
	BreakerClosed BreakerState = iota
	// BreakerOpen rejects calls until the cooldown has passed.
	BreakerOpen
	// BreakerHalfOpen lets a single trial call through.
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig configures a CircuitBreaker.
type BreakerConfig struct {
	// Threshold is the number of consecutive tripping failures that open
	// the breaker. 0 disables the breaker.
	Threshold int

	// Cooldown is how long the breaker stays open before a trial call.
	Cooldown time.Duration

	// Trips decides whether a failure counts toward Threshold. Nil counts
	// retryable errors only, so a bad request never opens the breaker.
	Trips func(error) bool
}

// DefaultBreakerConfig returns the policy used around embedding providers.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Threshold: 3,
		Cooldown:  30 * time.Second,
		Trips:     IsRetryable,
	}
}

// CircuitBreaker fails fast after repeated provider outages. Once open it
// rejects calls with an ERR_302 error wrapping ErrCircuitOpen until the
// cooldown passes, then admits one trial call: success closes it, failure
// reopens it.
type CircuitBreaker struct {
	name string
	cfg  BreakerConfig
	now  func() time.Time

	mu       sync.Mutex
	state    BreakerState
	failures int
	openedAt time.Time
	trial    bool
}

// NewCircuitBreaker creates a closed breaker.
func NewCircuitBreaker(name string, cfg BreakerConfig) *CircuitBreaker {
	if cfg.Trips == nil {
		cfg.Trips = IsRetryable
	}
	return &CircuitBreaker{name: name, cfg: cfg, now: time.Now}
}

// State returns the current state.
func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.stateLocked()
}

func (cb *CircuitBreaker) stateLocked() BreakerState {
	if cb.state == BreakerOpen && cb.now().Sub(cb.openedAt) >= cb.cfg.Cooldown {
		return BreakerHalfOpen
	}
	return cb.state
}

// acquire reports whether a call may proceed and whether it is the trial.
func (cb *CircuitBreaker) acquire() (ok, trial bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.stateLocked() {
	case BreakerClosed:
		return true, false
	case BreakerHalfOpen:
		if cb.trial {
			return false, false
		}
		cb.trial = true
		return true, true
	default:
		return false, false
	}
}

func (cb *CircuitBreaker) record(err error, trial bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if trial {
		cb.trial = false
	}

	switch {
	case err == nil:
		cb.state = BreakerClosed
		cb.failures = 0
	case errors.Is(err, context.Canceled):
		// Says nothing about the provider.
	case !cb.cfg.Trips(err):
		// The provider answered; it is not down.
		cb.state = BreakerClosed
		cb.failures = 0
	default:
		cb.failures++
		if trial || cb.failures >= cb.cfg.Threshold {
			cb.state = BreakerOpen
			cb.openedAt = cb.now()
		}
	}
}

// CircuitExecute runs fn through cb. A nil or disabled breaker runs fn
// directly.
func CircuitExecute[T any](cb *CircuitBreaker, fn func() (T, error)) (T, error) {
	if cb == nil || cb.cfg.Threshold <= 0 {
		return fn()
	}

	ok, trial := cb.acquire()
	if !ok {
		var zero T
		return zero, New(ErrCodeProviderUnavailable,
			fmt.Sprintf("%s is failing; calls paused for %s", cb.name, cb.cfg.Cooldown), ErrCircuitOpen).
			WithSuggestion("Check the provider status and try again shortly")
	}

	result, err := fn()
	cb.record(err, trial)
	return result, err
}
