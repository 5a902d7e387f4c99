package telemetry

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/itsneelabh/evel/core"
	"github.com/itsneelabh/evel/event"
	"github.com/itsneelabh/evel/metadata"
)

// Encoder renders an event into the request body.
type Encoder func(event.Event) ([]byte, error)

// Option configures an Engine at Initialize time.
type Option func(*engineOptions)

type engineOptions struct {
	transport      Transport
	logger         core.Logger
	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
	journal        FailureJournal
	encoder        Encoder
	identity       *metadata.Identity
	sequencer      *event.Sequencer
	clock          func() time.Time
}

// WithTransport replaces the HTTP transport.
func WithTransport(t Transport) Option {
	return func(o *engineOptions) { o.transport = t }
}

// WithLogger replaces the logger built from the logging configuration.
func WithLogger(logger core.Logger) Option {
	return func(o *engineOptions) { o.logger = logger }
}

// WithMeterProvider sets the provider for dispatch metrics.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *engineOptions) { o.meterProvider = mp }
}

// WithTracerProvider sets the provider for dispatch and HTTP client spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *engineOptions) { o.tracerProvider = tp }
}

// WithFailureJournal replaces the journal built from FailureJournalConfig.
func WithFailureJournal(j FailureJournal) Option {
	return func(o *engineOptions) { o.journal = j }
}

// WithEncoder replaces event.Encode.
func WithEncoder(enc Encoder) Option {
	return func(o *engineOptions) { o.encoder = enc }
}

// WithIdentity skips metadata discovery.
func WithIdentity(id metadata.Identity) Option {
	return func(o *engineOptions) { o.identity = &id }
}

// WithSequencer replaces the process-wide sequence counter.
func WithSequencer(s *event.Sequencer) Option {
	return func(o *engineOptions) { o.sequencer = s }
}

// WithClock replaces time.Now for event timestamps.
func WithClock(clock func() time.Time) Option {
	return func(o *engineOptions) { o.clock = clock }
}

// Stats is a point-in-time view of engine counters.
type Stats struct {
	State         State
	Accepted      uint64
	Rejected      uint64
	Delivered     uint64
	Failed        uint64
	QueueDepth    int
	QueueCapacity int
	Circuit       string
}

// Engine owns the event queue and its single dispatch worker.
//
// Post may be called from any number of goroutines and never blocks.
// Terminate asks the worker to drain everything already queued and stop.
type Engine struct {
	id          string
	config      core.Config
	state       lifecycle
	queue       *Queue
	transport   Transport
	encoder     Encoder
	factory     *event.Factory
	logger      core.Logger
	tracer      trace.Tracer
	metrics     dispatchMetrics
	circuit     *CircuitBreaker
	journal     FailureJournal
	postTimeout time.Duration

	lastErr  atomic.Pointer[core.Failure]
	interval atomic.Int64

	accepted  atomic.Uint64
	rejected  atomic.Uint64
	delivered atomic.Uint64
	failed    atomic.Uint64

	metricErrLogged atomic.Bool
	started         time.Time
	done            chan struct{}
}

// Initialize validates cfg, resolves the reporting identity, prepares the
// transport and starts the dispatch worker. On error nothing is started
// and no engine is returned.
func Initialize(ctx context.Context, cfg *core.Config, opts ...Option) (*Engine, error) {
	if cfg == nil {
		return nil, core.Errorf("telemetry.Initialize", core.ErrMissingConfiguration, "nil configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var o engineOptions
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		logger = core.NewProductionLogger(cfg.EffectiveLogging(), cfg.ServiceName, "telemetry")
	}

	sourceType, err := event.ParseSourceType(cfg.Source.Type)
	if err != nil {
		return nil, err
	}

	var identity metadata.Identity
	if o.identity != nil {
		identity = *o.identity
	} else {
		identity, err = metadata.Resolve(ctx, cfg.Metadata, cfg.Source, logger)
		if err != nil {
			logger.Error("Failed to resolve reporting identity", map[string]interface{}{
				"error":  err,
				"action": "Check the metadata service or disable metadata discovery",
			})
			return nil, err
		}
	}

	tp := o.tracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	transport := o.transport
	if transport == nil {
		httpTransport, err := NewHTTPTransport(cfg.Collector, WithTransportTracerProvider(tp))
		if err != nil {
			return nil, err
		}
		transport = httpTransport
	}

	journal := o.journal
	if journal == nil {
		redisJournal, err := NewRedisJournal(cfg.FailureJournal, logger)
		if err != nil {
			_ = transport.Close()
			logger.Error("Failed to open failure journal", map[string]interface{}{
				"error":  err,
				"action": "Check the Redis URL or disable the failure journal",
			})
			return nil, err
		}
		if redisJournal != nil {
			journal = redisJournal
		}
	}

	encoder := o.encoder
	if encoder == nil {
		encoder = event.Encode
	}

	factoryOpts := []event.FactoryOption{
		event.WithFunctionalRole(cfg.Source.FunctionalRole),
		event.WithReportingEntity(identity.UUID, identity.Name),
		event.WithSourceType(sourceType),
		event.WithLogger(logger),
	}
	if o.sequencer != nil {
		factoryOpts = append(factoryOpts, event.WithSequencer(o.sequencer))
	}
	if o.clock != nil {
		factoryOpts = append(factoryOpts, event.WithClock(o.clock))
	}

	e := &Engine{
		id:          uuid.NewString(),
		config:      *cfg,
		queue:       NewQueue(cfg.Queue.Capacity),
		transport:   transport,
		encoder:     encoder,
		factory:     event.NewFactory(factoryOpts...),
		logger:      logger,
		tracer:      tp.Tracer(instrumentationName),
		metrics:     dispatchMetrics{inst: NewMetricInstruments(o.meterProvider)},
		circuit:     NewCircuitBreaker(cfg.CircuitBreaker, logger),
		journal:     journal,
		postTimeout: cfg.Collector.Timeout,
		started:     time.Now(),
		done:        make(chan struct{}),
	}
	// INACTIVE lasts until the worker is running. The engine is not handed
	// out before it is ACTIVE.
	e.state.store(StateInactive)
	go e.run()
	e.state.store(StateActive)

	logger.Info("Event handler started", map[string]interface{}{
		"engine_id":        e.id,
		"collector":        cfg.Collector.URL(),
		"queue_capacity":   e.queue.Cap(),
		"reporting_entity": identity.Name,
		"circuit_breaker":  e.circuit.State(),
		"failure_journal":  journal != nil,
	})
	return e, nil
}

// ID identifies this engine instance in logs.
func (e *Engine) ID() string {
	if e == nil {
		return ""
	}
	return e.id
}

// State returns the lifecycle state.
func (e *Engine) State() State {
	if e == nil {
		return StateUninitialized
	}
	return e.state.load()
}

// Events returns the factory that stamps events with this engine's identity.
// It is nil for a nil engine.
func (e *Engine) Events() *event.Factory {
	if e == nil {
		return nil
	}
	return e.factory
}

// Post queues evt for delivery and returns immediately.
//
// Errors:
//   - core.ErrHandlerInactive: the engine is not ACTIVE
//   - core.ErrBufferFull: the queue already holds its capacity
//   - core.ErrGenericFailure: evt is nil, or a nil pointer of an event type
//
// On error the caller keeps evt. On success it must not be modified again.
func (e *Engine) Post(evt event.Event) error {
	if e == nil {
		return core.Errorf("telemetry.Post", core.ErrHandlerInactive, "engine not initialized")
	}
	ctx := context.Background()

	if evt == nil || evt.Header() == nil {
		return e.reject(ctx, "nil_event", core.Errorf("telemetry.Post", core.ErrGenericFailure, "nil event"))
	}
	if state := e.state.load(); state != StateActive {
		return e.reject(ctx, "inactive", core.Errorf("telemetry.Post", core.ErrHandlerInactive, "event handler is %s", state))
	}

	if err := e.queue.Enqueue(evt); err != nil {
		reason := "buffer_full"
		if errors.Is(err, core.ErrHandlerInactive) {
			reason = "inactive"
		}
		return e.reject(ctx, reason, core.Errorf("telemetry.Post", err,
			"%s event %d not queued", evt.Header().Domain(), evt.Header().Sequence()))
	}

	e.accepted.Add(1)
	e.observe(e.metrics.accepted(ctx, evt.Header().Domain().String()))
	return nil
}

func (e *Engine) reject(ctx context.Context, reason string, err error) error {
	e.rejected.Add(1)
	e.setLastError(err)
	e.observe(e.metrics.rejected(ctx, reason))
	e.logger.Debug("Event rejected", map[string]interface{}{
		"reason": reason,
		"error":  err,
	})
	return err
}

// Terminate requests an orderly stop. Events already queued are still
// delivered; the call itself does not wait for that.
func (e *Engine) Terminate() error {
	if e == nil {
		return core.Errorf("telemetry.Terminate", core.ErrHandlerInactive, "engine not initialized")
	}
	if !e.state.transition(StateActive, StateRequestTerminate) {
		err := core.Errorf("telemetry.Terminate", core.ErrHandlerInactive, "event handler is %s", e.state.load())
		e.setLastError(err)
		return err
	}
	queued := e.queue.Len()
	if err := e.queue.Close(); err != nil {
		e.setLastError(err)
		return core.NewError("telemetry.Terminate", err)
	}
	e.logger.Info("Event handler termination requested", map[string]interface{}{
		"engine_id": e.id,
		"queued":    queued,
	})
	return nil
}

// Wait blocks until the worker has stopped or ctx is done. A nil engine
// has nothing to wait for.
func (e *Engine) Wait(ctx context.Context) error {
	if e == nil {
		return nil
	}
	select {
	case <-e.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown terminates and waits for the queue to drain. It is safe to call
// after Terminate.
func (e *Engine) Shutdown(ctx context.Context) error {
	if e == nil {
		return nil
	}
	if err := e.Terminate(); err != nil && !core.IsInactive(err) {
		return err
	}
	if err := e.Wait(ctx); err != nil {
		e.logger.Warn("Event handler did not drain in time", map[string]interface{}{
			"engine_id": e.id,
			"pending":   e.queue.Len(),
			"error":     err,
		})
		return err
	}
	return nil
}

// closedDone is returned by Done on a nil engine.
var closedDone = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// Done is closed once the engine reaches TERMINATED.
func (e *Engine) Done() <-chan struct{} {
	if e == nil {
		return closedDone
	}
	return e.done
}

// LastError returns the code and message of the most recent failure.
func (e *Engine) LastError() (core.ErrorCode, string) {
	f := e.LastFailure()
	if f == nil {
		return core.CodeSuccess, ""
	}
	return f.Code, f.Message
}

// LastFailure returns the most recent failure record, or nil.
func (e *Engine) LastFailure() *core.Failure {
	if e == nil {
		return nil
	}
	return e.lastErr.Load()
}

func (e *Engine) setLastError(err error) {
	if f := core.NewFailure(err); f != nil {
		e.lastErr.Store(f)
	}
}

// MeasurementInterval is the interval last requested by the collector,
// or zero if it never asked.
func (e *Engine) MeasurementInterval() time.Duration {
	if e == nil {
		return 0
	}
	return time.Duration(e.interval.Load())
}

// Stats returns the current counters.
func (e *Engine) Stats() Stats {
	if e == nil {
		return Stats{State: StateUninitialized, Circuit: CircuitDisabled}
	}
	return Stats{
		State:         e.state.load(),
		Accepted:      e.accepted.Load(),
		Rejected:      e.rejected.Load(),
		Delivered:     e.delivered.Load(),
		Failed:        e.failed.Load(),
		QueueDepth:    e.queue.Len(),
		QueueCapacity: e.queue.Cap(),
		Circuit:       e.circuit.State(),
	}
}

// observe reports the first metric recording error and drops the rest.
func (e *Engine) observe(err error) {
	if err == nil || !e.metricErrLogged.CompareAndSwap(false, true) {
		return
	}
	e.logger.Warn("Failed to record dispatch metric", map[string]interface{}{
		"error":  err,
		"impact": "Further metric errors are not logged",
	})
}
