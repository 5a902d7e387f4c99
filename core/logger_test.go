package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductionLoggerText(t *testing.T) {
	var buf bytes.Buffer
	logger := NewProductionLogger(LoggingConfig{Level: "info", Format: "text", Output: &buf}, "test-service", "dispatch")

	logger.Info("Event posted", map[string]interface{}{
		"sequence": 42,
		"domain":   "fault",
		"action":   "none",
	})

	line := buf.String()
	assert.Contains(t, line, "[INFO]")
	assert.Contains(t, line, "[dispatch:test-service]")
	assert.Contains(t, line, "Event posted")
	assert.Contains(t, line, `action="none"`)
	// Remaining fields are sorted by key
	assert.Less(t, strings.Index(line, "domain=fault"), strings.Index(line, "sequence=42"))
}

func TestProductionLoggerDoesNotMutateFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewProductionLogger(LoggingConfig{Output: &buf}, "svc", "core")

	fields := map[string]interface{}{"error": "boom", "action": "retry later"}
	logger.Warn("Something failed", fields)

	assert.Len(t, fields, 2)
}

func TestProductionLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewProductionLogger(LoggingConfig{Level: "debug", Format: "json", Output: &buf}, "svc", "metadata")

	logger.Debug("Fetched identity", map[string]interface{}{
		"vm_name": "vm-1",
		"message": "must not overwrite",
		"error":   errors.New("wrapped"),
	})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "DEBUG", entry["level"])
	assert.Equal(t, "svc", entry["service"])
	assert.Equal(t, "metadata", entry["component"])
	assert.Equal(t, "Fetched identity", entry["message"])
	assert.Equal(t, "vm-1", entry["vm_name"])
	assert.Equal(t, "wrapped", entry["error"])
}

func TestProductionLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewProductionLogger(LoggingConfig{Level: "warn", Output: &buf}, "svc", "core")

	logger.Debug("debug", nil)
	logger.Info("info", nil)
	assert.Empty(t, buf.String())

	logger.Warn("warn", nil)
	assert.Contains(t, buf.String(), "warn")

	buf.Reset()
	logger.SetLevel("debug")
	assert.Equal(t, "DEBUG", logger.Level())
	logger.Debug("now visible", nil)
	assert.Contains(t, buf.String(), "now visible")

	logger.SetLevel("bogus")
	assert.Equal(t, "DEBUG", logger.Level())
}

func TestProductionLoggerUnknownLevelDefaultsToInfo(t *testing.T) {
	logger := NewProductionLogger(LoggingConfig{Level: "chatty"}, "svc", "core")
	assert.Equal(t, "INFO", logger.Level())
}

func TestProductionLoggerErrorRateLimit(t *testing.T) {
	var buf bytes.Buffer
	logger := NewProductionLogger(LoggingConfig{Output: &buf, ErrorInterval: time.Hour}, "svc", "core")

	logger.Error("first", nil)
	logger.Error("second", nil)

	assert.Contains(t, buf.String(), "first")
	assert.NotContains(t, buf.String(), "second")
}

func TestProductionLoggerWithComponent(t *testing.T) {
	var buf bytes.Buffer
	base := NewProductionLogger(LoggingConfig{Output: &buf}, "svc", "core")
	child := base.WithComponent("transport")

	child.Info("hello", nil)
	assert.Contains(t, buf.String(), "[transport:svc]")
}

func TestProductionLoggerConcurrent(t *testing.T) {
	var mu sync.Mutex
	var buf bytes.Buffer
	logger := NewProductionLogger(LoggingConfig{Output: &lockedWriter{mu: &mu, w: &buf}}, "svc", "core")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			logger.Info("concurrent", map[string]interface{}{"i": i})
			if i%5 == 0 {
				logger.SetFormat("json")
			}
		}(i)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 20, strings.Count(buf.String(), "concurrent"))
}

type lockedWriter struct {
	mu *sync.Mutex
	w  *bytes.Buffer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

func TestRateLimiter(t *testing.T) {
	limiter := NewRateLimiter(time.Hour)
	assert.True(t, limiter.Allow())
	assert.False(t, limiter.Allow())

	unlimited := NewRateLimiter(0)
	for i := 0; i < 10; i++ {
		assert.True(t, unlimited.Allow())
	}

	var nilLimiter *RateLimiter
	assert.True(t, nilLimiter.Allow())
}
