package telemetry

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsneelabh/evel/core"
)

func newTestCircuit(t *testing.T, maxFailures, halfOpenMax int) (*CircuitBreaker, *time.Time, *bytes.Buffer) {
	t.Helper()
	var logs bytes.Buffer
	logger := core.NewProductionLogger(core.LoggingConfig{Level: "debug", Format: "text", Output: &logs}, "evel", "circuit")
	cb := NewCircuitBreaker(core.CircuitBreakerConfig{
		Enabled:      true,
		MaxFailures:  maxFailures,
		RecoveryTime: time.Minute,
		HalfOpenMax:  halfOpenMax,
	}, logger)
	require.NotNil(t, cb)

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cb.now = func() time.Time { return now }
	return cb, &now, &logs
}

func TestCircuitBreakerDisabledIsNil(t *testing.T) {
	cb := NewCircuitBreaker(core.CircuitBreakerConfig{}, nil)
	assert.Nil(t, cb)
	assert.True(t, cb.Allow())
	assert.Equal(t, CircuitDisabled, cb.State())
	cb.RecordFailure()
	cb.RecordSuccess()
	cb.Reset()
}

func TestCircuitBreakerDefaults(t *testing.T) {
	cb := NewCircuitBreaker(core.CircuitBreakerConfig{Enabled: true}, nil)
	require.NotNil(t, cb)
	assert.Equal(t, 10, cb.config.MaxFailures)
	assert.Equal(t, 30*time.Second, cb.config.RecoveryTime)
	assert.Equal(t, 5, cb.config.HalfOpenMax)
}

func TestCircuitBreakerOpensAtThreshold(t *testing.T) {
	cb, _, logs := newTestCircuit(t, 3, 2)

	cb.RecordFailure()
	cb.RecordFailure()
	assert.Equal(t, CircuitClosed, cb.State())
	assert.Contains(t, logs.String(), "one failure from opening")

	cb.RecordFailure()
	assert.Equal(t, CircuitOpen, cb.State())
	assert.False(t, cb.Allow())
	assert.Contains(t, logs.String(), "Circuit breaker OPENED")
}

func TestCircuitBreakerSuccessResetsFailures(t *testing.T) {
	cb, _, _ := newTestCircuit(t, 3, 2)

	cb.RecordFailure()
	cb.RecordFailure()
	cb.RecordSuccess()
	cb.RecordFailure()
	cb.RecordFailure()
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestCircuitBreakerRecovery(t *testing.T) {
	cb, now, logs := newTestCircuit(t, 1, 2)

	cb.RecordFailure()
	require.Equal(t, CircuitOpen, cb.State())

	*now = now.Add(30 * time.Second)
	assert.False(t, cb.Allow(), "still within recovery time")

	*now = now.Add(31 * time.Second)
	assert.True(t, cb.Allow())
	assert.Equal(t, CircuitHalfOpen, cb.State())
	assert.Contains(t, logs.String(), "HALF-OPEN")

	cb.RecordSuccess()
	assert.Equal(t, CircuitHalfOpen, cb.State())
	cb.RecordSuccess()
	assert.Equal(t, CircuitClosed, cb.State())
	assert.True(t, cb.Allow())
}

func TestCircuitBreakerFailedProbeReopens(t *testing.T) {
	cb, now, _ := newTestCircuit(t, 5, 2)

	for i := 0; i < 5; i++ {
		cb.RecordFailure()
	}
	require.Equal(t, CircuitOpen, cb.State())

	*now = now.Add(2 * time.Minute)
	require.True(t, cb.Allow())
	require.Equal(t, CircuitHalfOpen, cb.State())

	cb.RecordFailure()
	assert.Equal(t, CircuitOpen, cb.State())
	assert.False(t, cb.Allow())
}

func TestCircuitBreakerHalfOpenLimitsProbes(t *testing.T) {
	cb, now, _ := newTestCircuit(t, 1, 1)

	cb.RecordFailure()
	*now = now.Add(2 * time.Minute)
	require.True(t, cb.Allow())

	cb.successes.Store(1)
	assert.False(t, cb.Allow())
}

func TestCircuitBreakerReset(t *testing.T) {
	cb, _, logs := newTestCircuit(t, 1, 1)

	cb.RecordFailure()
	require.Equal(t, CircuitOpen, cb.State())

	cb.Reset()
	assert.Equal(t, CircuitClosed, cb.State())
	assert.True(t, cb.Allow())
	assert.Contains(t, logs.String(), "manually reset")
}
