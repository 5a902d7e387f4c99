package event

import (
	"time"

	"github.com/itsneelabh/evel/core"
)

// Factory builds events stamped with a fixed reporting identity.
// A Factory is safe for concurrent use; the events it returns are not.
type Factory struct {
	sequencer           *Sequencer
	clock               func() time.Time
	functionalRole      string
	reportingEntityID   string
	reportingEntityName string
	sourceType          SourceType
	logger              core.Logger
}

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithSequencer replaces the process-wide sequencer.
func WithSequencer(s *Sequencer) FactoryOption {
	return func(f *Factory) {
		if s != nil {
			f.sequencer = s
		}
	}
}

// WithClock replaces time.Now for timestamps.
func WithClock(clock func() time.Time) FactoryOption {
	return func(f *Factory) {
		if clock != nil {
			f.clock = clock
		}
	}
}

// WithFunctionalRole sets the role stamped into every header.
func WithFunctionalRole(role string) FactoryOption {
	return func(f *Factory) { f.functionalRole = role }
}

// WithReportingEntity sets the reporting and source identity.
func WithReportingEntity(id, name string) FactoryOption {
	return func(f *Factory) {
		f.reportingEntityID = id
		f.reportingEntityName = name
	}
}

// WithSourceType sets the source type reported by faults.
func WithSourceType(st SourceType) FactoryOption {
	return func(f *Factory) { f.sourceType = st }
}

// WithLogger sets the logger that receives builder warnings.
func WithLogger(logger core.Logger) FactoryOption {
	return func(f *Factory) { f.logger = core.LoggerOrNoOp(logger) }
}

// NewFactory returns a factory using the process-wide sequencer, the wall
// clock, source type virtualMachine and a no-op logger unless overridden.
func NewFactory(opts ...FactoryOption) *Factory {
	f := &Factory{
		sequencer:  DefaultSequencer(),
		clock:      time.Now,
		sourceType: SourceVirtualMachine,
		logger:     &core.NoOpLogger{},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// SourceType returns the source type faults are stamped with.
func (f *Factory) SourceType() SourceType {
	return f.sourceType
}

// FunctionalRole returns the role stamped into headers.
func (f *Factory) FunctionalRole() string {
	return f.functionalRole
}

// ReportingEntity returns the reporting identity stamped into headers.
func (f *Factory) ReportingEntity() (id, name string) {
	return f.reportingEntityID, f.reportingEntityName
}
