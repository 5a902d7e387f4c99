package telemetry

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Instrument names emitted by the engine.
const (
	MetricEventsAccepted  = "evel.events.accepted"
	MetricEventsRejected  = "evel.events.rejected"
	MetricEventsDelivered = "evel.events.delivered"
	MetricEventsFailed    = "evel.events.failed"
	MetricQueueDepth      = "evel.queue.depth"
	MetricPostDuration    = "evel.post.duration"
)

const instrumentationName = "github.com/itsneelabh/evel/telemetry"

// MetricInstruments caches instruments created from one meter.
type MetricInstruments struct {
	meter          metric.Meter
	counters       map[string]metric.Int64Counter
	upDownCounters map[string]metric.Int64UpDownCounter
	histograms     map[string]metric.Float64Histogram
	mu             sync.RWMutex
}

// NewMetricInstruments uses the global meter provider when mp is nil.
func NewMetricInstruments(mp metric.MeterProvider) *MetricInstruments {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	return &MetricInstruments{
		meter:          mp.Meter(instrumentationName),
		counters:       make(map[string]metric.Int64Counter),
		upDownCounters: make(map[string]metric.Int64UpDownCounter),
		histograms:     make(map[string]metric.Float64Histogram),
	}
}

// RecordCounter increments a counter
func (m *MetricInstruments) RecordCounter(ctx context.Context, name string, value int64, opts ...metric.AddOption) error {
	m.mu.RLock()
	counter, exists := m.counters[name]
	m.mu.RUnlock()

	if !exists {
		m.mu.Lock()
		if counter, exists = m.counters[name]; !exists {
			var err error
			counter, err = m.meter.Int64Counter(name)
			if err != nil {
				m.mu.Unlock()
				return fmt.Errorf("failed to create counter %s: %w", name, err)
			}
			m.counters[name] = counter
		}
		m.mu.Unlock()
	}

	counter.Add(ctx, value, opts...)
	return nil
}

// RecordUpDownCounter records a value that can go up or down (like queue depth)
func (m *MetricInstruments) RecordUpDownCounter(ctx context.Context, name string, value int64, opts ...metric.AddOption) error {
	m.mu.RLock()
	counter, exists := m.upDownCounters[name]
	m.mu.RUnlock()

	if !exists {
		m.mu.Lock()
		if counter, exists = m.upDownCounters[name]; !exists {
			var err error
			counter, err = m.meter.Int64UpDownCounter(name)
			if err != nil {
				m.mu.Unlock()
				return fmt.Errorf("failed to create up-down counter %s: %w", name, err)
			}
			m.upDownCounters[name] = counter
		}
		m.mu.Unlock()
	}

	counter.Add(ctx, value, opts...)
	return nil
}

// RecordHistogram records a value distribution (like latencies)
func (m *MetricInstruments) RecordHistogram(ctx context.Context, name string, value float64, opts ...metric.RecordOption) error {
	m.mu.RLock()
	histogram, exists := m.histograms[name]
	m.mu.RUnlock()

	if !exists {
		m.mu.Lock()
		if histogram, exists = m.histograms[name]; !exists {
			var err error
			histogram, err = m.meter.Float64Histogram(name, metric.WithUnit("ms"))
			if err != nil {
				m.mu.Unlock()
				return fmt.Errorf("failed to create histogram %s: %w", name, err)
			}
			m.histograms[name] = histogram
		}
		m.mu.Unlock()
	}

	histogram.Record(ctx, value, opts...)
	return nil
}

// dispatchMetrics is the engine's view of the instruments. Recording errors
// are logged once per instrument family by the caller and otherwise ignored.
type dispatchMetrics struct {
	inst *MetricInstruments
}

func (d dispatchMetrics) accepted(ctx context.Context, domain string) error {
	if err := d.inst.RecordCounter(ctx, MetricEventsAccepted, 1,
		metric.WithAttributes(attribute.String("domain", domain))); err != nil {
		return err
	}
	return d.inst.RecordUpDownCounter(ctx, MetricQueueDepth, 1)
}

func (d dispatchMetrics) rejected(ctx context.Context, reason string) error {
	return d.inst.RecordCounter(ctx, MetricEventsRejected, 1,
		metric.WithAttributes(attribute.String("reason", reason)))
}

func (d dispatchMetrics) dequeued(ctx context.Context) error {
	return d.inst.RecordUpDownCounter(ctx, MetricQueueDepth, -1)
}

func (d dispatchMetrics) delivered(ctx context.Context, domain string, ms float64) error {
	attrs := attribute.NewSet(attribute.String("domain", domain))
	if err := d.inst.RecordCounter(ctx, MetricEventsDelivered, 1, metric.WithAttributeSet(attrs)); err != nil {
		return err
	}
	return d.inst.RecordHistogram(ctx, MetricPostDuration, ms, metric.WithAttributeSet(attrs))
}

func (d dispatchMetrics) failed(ctx context.Context, domain, reason string) error {
	return d.inst.RecordCounter(ctx, MetricEventsFailed, 1, metric.WithAttributes(
		attribute.String("domain", domain),
		attribute.String("reason", reason),
	))
}
