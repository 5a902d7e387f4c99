package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/itsneelabh/evel/core"
	"github.com/itsneelabh/evel/event"
)

// Failure reasons recorded on metrics, spans and journal entries.
const (
	reasonCircuitOpen = "circuit_open"
	reasonEncode      = "encode"
	reasonTransport   = "transport"
	reasonStatus      = "status"
	reasonPanic       = "panic"
)

const journalTimeout = 2 * time.Second

// run is the dispatch worker. It is the only consumer of the queue and
// the only caller of the transport.
func (e *Engine) run() {
	defer close(e.done)
	ctx := context.Background()

	for {
		entry, err := e.queue.Dequeue(ctx)
		if err != nil {
			continue
		}
		e.state.transition(StateRequestTerminate, StateTerminating)

		switch entry.Kind {
		case EntryEvent:
			e.dispatch(ctx, entry.Event)
		case EntryCommand:
			if entry.Command == CommandTerminate {
				e.stop()
				return
			}
			e.logger.Warn("Ignoring unknown queue command", map[string]interface{}{
				"command": int(entry.Command),
			})
		}
	}
}

// stop releases the transport and journal and marks the engine TERMINATED.
func (e *Engine) stop() {
	e.state.transition(StateRequestTerminate, StateTerminating)

	if err := e.transport.Close(); err != nil {
		e.logger.Warn("Failed to close transport", map[string]interface{}{"error": err})
	}
	if e.journal != nil {
		if err := e.journal.Close(); err != nil {
			e.logger.Warn("Failed to close failure journal", map[string]interface{}{"error": err})
		}
	}

	e.state.store(StateTerminated)
	e.logger.Info("Event handler terminated", map[string]interface{}{
		"engine_id": e.id,
		"delivered": e.delivered.Load(),
		"failed":    e.failed.Load(),
		"uptime":    time.Since(e.started).String(),
	})
}

// dispatch makes exactly one delivery attempt for evt.
func (e *Engine) dispatch(ctx context.Context, evt event.Event) {
	h := evt.Header()
	domain := h.Domain().String()

	ctx, span := e.tracer.Start(ctx, "evel.dispatch",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("evel.domain", domain),
			attribute.Int64("evel.sequence", h.Sequence()),
		),
	)
	defer span.End()

	e.observe(e.metrics.dequeued(ctx))

	defer func() {
		if r := recover(); r != nil {
			e.fail(ctx, span, evt, failure{
				reason: reasonPanic,
				err:    core.Errorf("telemetry.dispatch", core.ErrGenericFailure, "panic while dispatching: %v", r),
			})
		}
	}()

	if !e.circuit.Allow() {
		e.fail(ctx, span, evt, failure{
			reason: reasonCircuitOpen,
			err:    core.Errorf("telemetry.dispatch", core.ErrTransportFailure, "circuit breaker open, event dropped"),
		})
		return
	}

	body, err := e.encoder(evt)
	if err != nil {
		e.fail(ctx, span, evt, failure{reason: reasonEncode, err: err})
		return
	}

	resp, elapsed, err := e.post(ctx, body)

	if resp != nil {
		span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	}
	if err != nil {
		e.circuit.RecordFailure()
		f := failure{reason: reasonTransport, err: err, body: body}
		if resp != nil {
			f.reason = reasonStatus
			f.status = resp.StatusCode
		}
		e.fail(ctx, span, evt, f)
		return
	}

	e.circuit.RecordSuccess()
	e.delivered.Add(1)
	e.observe(e.metrics.delivered(ctx, domain, float64(elapsed.Microseconds())/1000))
	span.SetStatus(codes.Ok, "")

	e.logger.Debug("Event delivered", map[string]interface{}{
		"domain":      domain,
		"sequence":    h.Sequence(),
		"status":      resp.StatusCode,
		"duration_ms": elapsed.Milliseconds(),
	})

	e.applyCommands(resp.Body)
}

type failure struct {
	reason string
	status int
	err    error
	body   []byte
}

// fail records an undeliverable event. The event is dropped afterwards.
func (e *Engine) fail(ctx context.Context, span trace.Span, evt event.Event, f failure) {
	h := evt.Header()
	domain := h.Domain().String()

	e.failed.Add(1)
	e.setLastError(f.err)
	e.observe(e.metrics.failed(ctx, domain, f.reason))

	span.RecordError(f.err)
	span.SetStatus(codes.Error, f.reason)
	span.SetAttributes(attribute.String("evel.failure_reason", f.reason))

	fields := map[string]interface{}{
		"domain":   domain,
		"sequence": h.Sequence(),
		"reason":   f.reason,
		"error":    f.err,
		"impact":   "Event dropped, delivery is not retried",
	}
	if f.status != 0 {
		fields["status"] = f.status
	}
	e.logger.Error("Event delivery failed", fields)

	if e.journal == nil {
		return
	}
	jctx, cancel := context.WithTimeout(ctx, journalTimeout)
	defer cancel()
	if err := e.journal.Record(jctx, FailedEvent{
		Sequence: h.Sequence(),
		Domain:   domain,
		Reason:   f.reason,
		Status:   f.status,
		Error:    f.err.Error(),
		Body:     string(f.body),
		Time:     time.Now().UTC(),
	}); err != nil {
		e.logger.Warn("Failed to journal undeliverable event", map[string]interface{}{
			"sequence": h.Sequence(),
			"error":    err,
		})
	}
}

// applyCommands acts on a commandList in a collector response.
// post sends one body, bounded by the collector timeout.
func (e *Engine) post(ctx context.Context, body []byte) (*Response, time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, e.postTimeout)
	defer cancel()

	start := time.Now()
	resp, err := e.transport.Post(ctx, body)
	return resp, time.Since(start), err
}

func (e *Engine) applyCommands(body []byte) {
	for _, cmd := range ParseCommands(body) {
		switch cmd.Type {
		case CommandMeasurementIntervalChange:
			previous := time.Duration(e.interval.Swap(int64(cmd.MeasurementInterval)))
			if previous != cmd.MeasurementInterval {
				e.logger.Info("Collector changed measurement interval", map[string]interface{}{
					"previous": previous.String(),
					"interval": cmd.MeasurementInterval.String(),
				})
			}
		default:
			e.logger.Debug("Ignoring collector command", map[string]interface{}{
				"command": cmd.Type,
			})
		}
	}
}
