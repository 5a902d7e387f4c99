// Package evel is the process-wide entry point of the event listener client.
// Most programs only need this package:
//
//	if err := evel.Initialize("collector.example.com", 30000, "", "example_vnf",
//		false, "will", "pill", evel.SourceVirtualMachine, "EVEL demo", 0); err != nil {
//		log.Fatalf("evel: %v", err)
//	}
//	defer evel.Shutdown(context.Background())
//
//	hb := evel.NewHeartbeat()
//	if err := evel.Post(hb); err != nil {
//		log.Printf("heartbeat not queued: %s", evel.ErrorString())
//	}
//
// Callers that need several engines, or tighter control over tracing and
// metrics, can use github.com/itsneelabh/evel/telemetry directly.
package evel

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/itsneelabh/evel/core"
	"github.com/itsneelabh/evel/event"
	"github.com/itsneelabh/evel/metadata"
	"github.com/itsneelabh/evel/telemetry"
)

// Re-export the types callers handle most often
type (
	Config     = core.Config
	Option     = core.Option
	ErrorCode  = core.ErrorCode
	Event      = event.Event
	Priority   = event.Priority
	Severity   = event.Severity
	SourceType = event.SourceType
	VFStatus   = event.VFStatus
	State      = telemetry.State
)

// Re-export constants
const (
	PriorityHigh   = event.PriorityHigh
	PriorityMedium = event.PriorityMedium
	PriorityNormal = event.PriorityNormal
	PriorityLow    = event.PriorityLow

	SeverityCritical = event.SeverityCritical
	SeverityMajor    = event.SeverityMajor
	SeverityMinor    = event.SeverityMinor
	SeverityWarning  = event.SeverityWarning
	SeverityNormal   = event.SeverityNormal

	SourceOther          = event.SourceOther
	SourceRouter         = event.SourceRouter
	SourceSwitch         = event.SourceSwitch
	SourceHost           = event.SourceHost
	SourceCard           = event.SourceCard
	SourcePort           = event.SourcePort
	SourceSlotThreshold  = event.SourceSlotThreshold
	SourcePortThreshold  = event.SourcePortThreshold
	SourceVirtualMachine = event.SourceVirtualMachine
)

// Re-export configuration helpers
var (
	NewConfig     = core.NewConfig
	DefaultConfig = core.DefaultConfig

	WithCollector       = core.WithCollector
	WithPath            = core.WithPath
	WithTopic           = core.WithTopic
	WithSecure          = core.WithSecure
	WithBasicAuth       = core.WithBasicAuth
	WithTimeout         = core.WithTimeout
	WithFunctionalRole  = core.WithFunctionalRole
	WithQueueCapacity   = core.WithQueueCapacity
	WithVerbosity       = core.WithVerbosity
	WithLogLevel        = core.WithLogLevel
	WithMetadataService = core.WithMetadataService
	WithCircuitBreaker  = core.WithCircuitBreaker
	WithFailureJournal  = core.WithFailureJournal
	WithConfigFile      = core.WithConfigFile
)

var (
	// current is the engine started by the last successful Initialize.
	current atomic.Pointer[telemetry.Engine]
	initMu  sync.Mutex

	// lastError holds failures that happened without an engine to record them.
	lastError atomic.Pointer[core.Failure]
)

// Initialize starts the process-wide event handler.
//
// The collector is reached at http[s]://fqdn:port[/path][/topic]. A username
// enables Basic authentication. Verbosity above zero turns on debug logging.
// EVEL_* environment variables are applied first, so the arguments always win.
func Initialize(fqdn string, port int, path, topic string, secure bool,
	username, password string, sourceType SourceType, role string, verbosity int) error {
	opts := []Option{
		core.WithCollector(fqdn, port),
		core.WithPath(path),
		core.WithTopic(topic),
		core.WithSecure(secure),
		core.WithSourceType(sourceType.String()),
		core.WithFunctionalRole(role),
		core.WithVerbosity(verbosity),
	}
	if username != "" {
		opts = append(opts, core.WithBasicAuth(username, password))
	}

	cfg, err := core.NewConfig(opts...)
	if err != nil {
		return setLastError(err)
	}
	return InitializeWithConfig(context.Background(), cfg)
}

// InitializeWithConfig starts the process-wide event handler from cfg.
// It fails while a previous handler is still ACTIVE; once that handler has
// been terminated a new one may be started.
func InitializeWithConfig(ctx context.Context, cfg *Config, opts ...telemetry.Option) error {
	initMu.Lock()
	defer initMu.Unlock()

	if prev := current.Load(); prev != nil && prev.State() == telemetry.StateActive {
		return setLastError(core.Errorf("evel.Initialize", core.ErrGenericFailure, "event handler already active"))
	}

	e, err := telemetry.Initialize(ctx, cfg, opts...)
	if err != nil {
		current.Store(nil)
		return setLastError(err)
	}
	current.Store(e)
	return nil
}

// Post hands evt to the event handler. It never blocks.
func Post(evt Event) error {
	e := current.Load()
	if e == nil {
		return setLastError(core.Errorf("evel.Post", core.ErrHandlerInactive, "event handler not initialized"))
	}
	return e.Post(evt)
}

// Terminate asks the event handler to deliver what is queued and stop.
// Allow core.DefaultTerminateGrace before exiting, or use Shutdown.
func Terminate() error {
	e := current.Load()
	if e == nil {
		return setLastError(core.Errorf("evel.Terminate", core.ErrHandlerInactive, "event handler not initialized"))
	}
	return e.Terminate()
}

// Shutdown terminates the event handler and waits for it to drain. Without
// a deadline on ctx it waits at most core.DefaultTerminateGrace.
func Shutdown(ctx context.Context) error {
	e := current.Load()
	if e == nil {
		return nil
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, core.DefaultTerminateGrace)
		defer cancel()
	}
	return e.Shutdown(ctx)
}

// ErrorString describes the most recent failure, or "" if there was none.
func ErrorString() string {
	if f := latestFailure(); f != nil {
		return f.Message
	}
	return ""
}

// LastErrorCode is the code of the failure ErrorString describes.
func LastErrorCode() ErrorCode {
	if f := latestFailure(); f != nil {
		return f.Code
	}
	return core.CodeSuccess
}

// latestFailure picks the newer of the engine's and the package's records.
func latestFailure() *core.Failure {
	return core.Latest(current.Load().LastFailure(), lastError.Load())
}

func setLastError(err error) error {
	lastError.Store(core.NewFailure(err))
	return err
}

// CurrentState reports the lifecycle state of the process-wide handler.
func CurrentState() State {
	return current.Load().State()
}

// Engine returns the process-wide engine, or nil before Initialize.
func Engine() *telemetry.Engine {
	return current.Load()
}

// MeasurementInterval is the interval last requested by the collector,
// or zero.
func MeasurementInterval() time.Duration {
	return current.Load().MeasurementInterval()
}

// HealthHandler serves the health of whichever engine is current.
func HealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		telemetry.HealthHandler(current.Load()).ServeHTTP(w, r)
	})
}

var (
	fallbackOnce    sync.Once
	fallbackFactory *event.Factory
)

// factory stamps events with the current engine's identity. Before
// Initialize the local host identity is used.
func factory() *event.Factory {
	if e := current.Load(); e != nil {
		return e.Events()
	}
	fallbackOnce.Do(func() {
		id := metadata.Local()
		fallbackFactory = event.NewFactory(event.WithReportingEntity(id.UUID, id.Name))
	})
	return fallbackFactory
}

// NewHeartbeat creates a heartbeat event.
func NewHeartbeat() *event.Heartbeat {
	return factory().NewHeartbeat()
}

// NewFault creates a fault event.
func NewFault(condition, specificProblem string, priority Priority, severity Severity) *event.Fault {
	return factory().NewFault(condition, specificProblem, priority, severity)
}

// NewMeasurement creates a scaling measurement event.
func NewMeasurement(concurrentSessions, configuredEntities int,
	meanRequestLatency, measurementInterval, memoryConfigured, memoryUsed float64,
	requestRate int) *event.Measurement {
	return factory().NewMeasurement(concurrentSessions, configuredEntities,
		meanRequestLatency, measurementInterval, memoryConfigured, memoryUsed, requestRate)
}

// NewReport creates a measurement report event.
func NewReport(measurementInterval float64) *event.Report {
	return factory().NewReport(measurementInterval)
}

// NewOther creates an event carrying free-form name/value pairs.
func NewOther() *event.Other {
	return factory().NewOther()
}
