package telemetry

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/itsneelabh/evel/core"
)

// Circuit states as reported by CircuitBreaker.State.
const (
	CircuitClosed   = "closed"
	CircuitOpen     = "open"
	CircuitHalfOpen = "half-open"
	CircuitDisabled = "disabled"
)

// CircuitBreaker stops POST attempts while the collector keeps failing.
// Events arriving while it is open are dropped, never held back.
// A nil *CircuitBreaker allows everything.
type CircuitBreaker struct {
	config core.CircuitBreakerConfig
	logger core.Logger
	now    func() time.Time

	state           atomic.Value // string
	failures        atomic.Int64
	successes       atomic.Int64
	lastFailureTime atomic.Value // time.Time

	mu sync.Mutex
}

// NewCircuitBreaker returns nil when the breaker is disabled.
func NewCircuitBreaker(config core.CircuitBreakerConfig, logger core.Logger) *CircuitBreaker {
	if !config.Enabled {
		return nil
	}

	if config.MaxFailures <= 0 {
		config.MaxFailures = 10
	}
	if config.RecoveryTime <= 0 {
		config.RecoveryTime = 30 * time.Second
	}
	if config.HalfOpenMax <= 0 {
		config.HalfOpenMax = 5
	}

	cb := &CircuitBreaker{
		config: config,
		logger: core.LoggerOrNoOp(logger),
		now:    time.Now,
	}
	cb.state.Store(CircuitClosed)
	cb.lastFailureTime.Store(time.Time{})
	return cb
}

// Allow reports whether the next POST may be attempted.
func (cb *CircuitBreaker) Allow() bool {
	if cb == nil {
		return true
	}

	switch cb.State() {
	case CircuitOpen:
		lastFailure, _ := cb.lastFailureTime.Load().(time.Time)
		if lastFailure.IsZero() || cb.now().Sub(lastFailure) <= cb.config.RecoveryTime {
			return false
		}
		cb.mu.Lock()
		if cb.state.Load().(string) == CircuitOpen {
			cb.state.Store(CircuitHalfOpen)
			cb.successes.Store(0)
			cb.logger.Info("Circuit breaker entering HALF-OPEN state", map[string]interface{}{
				"recovery_wait": cb.config.RecoveryTime.String(),
				"max_probes":    cb.config.HalfOpenMax,
				"action":        "Probing collector with limited posts",
			})
		}
		cb.mu.Unlock()
		return true

	case CircuitHalfOpen:
		allowed := cb.successes.Load() < int64(cb.config.HalfOpenMax)
		if !allowed {
			cb.logger.Debug("Circuit breaker rejecting post in half-open state", map[string]interface{}{
				"max_probes": cb.config.HalfOpenMax,
			})
		}
		return allowed

	default:
		return true
	}
}

// RecordSuccess counts a delivered event. Enough successes while half-open
// close the circuit.
func (cb *CircuitBreaker) RecordSuccess() {
	if cb == nil {
		return
	}

	successes := cb.successes.Add(1)
	switch cb.State() {
	case CircuitHalfOpen:
		if successes < int64(cb.config.HalfOpenMax) {
			return
		}
		cb.mu.Lock()
		if cb.state.Load().(string) == CircuitHalfOpen {
			cb.state.Store(CircuitClosed)
			cb.failures.Store(0)
			cb.logger.Info("Circuit breaker CLOSED - collector recovered", map[string]interface{}{
				"probes": successes,
				"impact": "Event delivery resumed",
			})
		}
		cb.mu.Unlock()
	case CircuitClosed:
		cb.failures.Store(0)
	}
}

// RecordFailure counts a failed POST.
func (cb *CircuitBreaker) RecordFailure() {
	if cb == nil {
		return
	}

	failures := cb.failures.Add(1)
	cb.lastFailureTime.Store(cb.now())

	// A failed probe reopens immediately.
	if failures >= int64(cb.config.MaxFailures) || cb.State() == CircuitHalfOpen {
		cb.mu.Lock()
		if previous := cb.state.Load().(string); previous != CircuitOpen {
			cb.state.Store(CircuitOpen)
			cb.successes.Store(0)
			cb.logger.Warn("Circuit breaker OPENED - events will be dropped", map[string]interface{}{
				"previous_state": previous,
				"failure_count":  failures,
				"max_failures":   cb.config.MaxFailures,
				"recovery_time":  cb.config.RecoveryTime.String(),
				"impact":         "Events are discarded without a POST until recovery",
				"action":         "Check the collector endpoint",
			})
		}
		cb.mu.Unlock()
		return
	}

	if failures == int64(cb.config.MaxFailures)-1 {
		cb.logger.Warn("Circuit breaker one failure from opening", map[string]interface{}{
			"failure_count": failures,
			"max_failures":  cb.config.MaxFailures,
			"impact":        fmt.Sprintf("Next failure stops delivery for %s", cb.config.RecoveryTime),
		})
	}
}

// State returns closed, open, half-open, or disabled for a nil breaker.
func (cb *CircuitBreaker) State() string {
	if cb == nil {
		return CircuitDisabled
	}
	return cb.state.Load().(string)
}

// Reset closes the circuit and clears the counters.
func (cb *CircuitBreaker) Reset() {
	if cb == nil {
		return
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()

	previous := cb.state.Load().(string)
	cb.state.Store(CircuitClosed)
	cb.failures.Store(0)
	cb.successes.Store(0)
	cb.lastFailureTime.Store(time.Time{})

	if previous != CircuitClosed {
		cb.logger.Info("Circuit breaker manually reset", map[string]interface{}{
			"previous_state": previous,
		})
	}
}
