package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"github.com/itsneelabh/evel/core"
)

func TestHealthHandler(t *testing.T) {
	t.Run("nil engine", func(t *testing.T) {
		rec := httptest.NewRecorder()
		HealthHandler(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

		var h Health
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &h))
		assert.Equal(t, HealthUnhealthy, h.Status)
		assert.Equal(t, "UNINITIALIZED", h.State)
	})

	t.Run("active engine", func(t *testing.T) {
		e, _ := newTestEngine(t, testConfig(t), &fakeTransport{})
		require.NoError(t, e.Post(e.Events().NewHeartbeat()))

		rec := httptest.NewRecorder()
		HealthHandler(e).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		var h Health
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &h))
		assert.Equal(t, HealthHealthy, h.Status)
		assert.Equal(t, "ACTIVE", h.State)
		assert.Equal(t, e.ID(), h.EngineID)
		assert.Equal(t, CircuitDisabled, h.CircuitState)
	})

	t.Run("terminated engine", func(t *testing.T) {
		e, _ := newTestEngine(t, testConfig(t), &fakeTransport{})
		shutdown(t, e)

		rec := httptest.NewRecorder()
		HealthHandler(e).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestHealthReportsFailureJournal(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	tr := &fakeTransport{failEvery: 1}
	e, _ := newTestEngine(t, testConfig(t, core.WithFailureJournal("redis://"+mr.Addr())), tr)

	h := e.Health()
	assert.Equal(t, HealthHealthy, h.Status)
	assert.Equal(t, JournalOK, h.Journal)
	assert.Zero(t, h.JournalEntries)

	require.NoError(t, e.Post(e.Events().NewHeartbeat()))
	require.Eventually(t, func() bool {
		return e.Health().JournalEntries == 1
	}, 2*time.Second, 10*time.Millisecond)

	mr.Close()
	h = e.Health()
	assert.Equal(t, HealthDegraded, h.Status)
	assert.Equal(t, JournalUnreachable, h.Journal)

	rec := httptest.NewRecorder()
	HealthHandler(e).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusPartialContent, rec.Code)
}

func TestHealthWithoutJournal(t *testing.T) {
	e, _ := newTestEngine(t, testConfig(t), &fakeTransport{})
	h := e.Health()
	assert.Empty(t, h.Journal)
	assert.Zero(t, h.JournalEntries)
}

func TestNewTracerProvider(t *testing.T) {
	previous := otel.GetTracerProvider()
	defer otel.SetTracerProvider(previous)

	var out bytes.Buffer
	tp, err := NewTracerProvider(context.Background(), TracerConfig{
		ServiceName: "evel-test",
		Exporter:    ExporterStdout,
		Writer:      &out,
	})
	require.NoError(t, err)

	_, span := tp.Tracer("test").Start(context.Background(), "probe")
	span.End()
	require.NoError(t, tp.Shutdown(context.Background()))

	assert.Contains(t, out.String(), `"Name": "probe"`)
	assert.Contains(t, out.String(), "evel-test")

	_, err = NewTracerProvider(context.Background(), TracerConfig{Exporter: "zipkin"})
	assert.Error(t, err)
}
