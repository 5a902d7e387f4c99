package event

// Fault reports an alarm condition.
type Fault struct {
	header Header

	alarmCondition  string
	specificProblem string
	severity        Severity
	sourceType      SourceType
	vfStatus        optional[VFStatus]
	interfaceA      optional[string]
	additionalInfo  []nameValue
}

// NewFault creates a fault with the given condition, problem, priority and
// severity. The source type comes from the factory; VF status defaults to Active.
func (f *Factory) NewFault(condition, specificProblem string, priority Priority, severity Severity) *Fault {
	fault := &Fault{
		header:          newHeader(f, DomainFault),
		alarmCondition:  condition,
		specificProblem: specificProblem,
		severity:        severity,
		sourceType:      f.sourceType,
	}
	fault.header.priority = priority
	return fault
}

// Header returns the common header.
func (f *Fault) Header() *Header {
	if f == nil {
		return nil
	}
	return &f.header
}

// SetEventType sets the event type once.
func (f *Fault) SetEventType(eventType string) {
	f.header.SetEventType(eventType)
}

// SetInterface sets alarmInterfaceA once.
func (f *Fault) SetInterface(iface string) {
	f.interfaceA.assign(iface, "alarmInterfaceA", f.header.logger)
}

// SetVFStatus overrides the default Active status once.
func (f *Fault) SetVFStatus(status VFStatus) {
	f.vfStatus.assign(status, "vfStatus", f.header.logger)
}

// AddAdditionalInfo appends a name/value pair. Pairs are emitted in the
// order they were added.
func (f *Fault) AddAdditionalInfo(name, value string) {
	f.additionalInfo = append(f.additionalInfo, nameValue{Name: name, Value: value})
}

// AdditionalInfoCount returns how many pairs have been added.
func (f *Fault) AdditionalInfoCount() int {
	return len(f.additionalInfo)
}

type faultFieldsJSON struct {
	AlarmAdditionalInformation []nameValue `json:"alarmAdditionalInformation,omitempty"`
	AlarmCondition             string      `json:"alarmCondition"`
	AlarmInterfaceA            *string     `json:"alarmInterfaceA,omitempty"`
	EventSeverity              Severity    `json:"eventSeverity"`
	EventSourceType            SourceType  `json:"eventSourceType"`
	FaultFieldsVersion         int         `json:"faultFieldsVersion"`
	SpecificProblem            string      `json:"specificProblem"`
	VFStatus                   VFStatus    `json:"vfStatus"`
}

// MarshalJSON renders the wire envelope with a faultFields block.
func (f *Fault) MarshalJSON() ([]byte, error) {
	status, _ := f.vfStatus.get()
	return envelope(&f.header, "faultFields", faultFieldsJSON{
		AlarmAdditionalInformation: f.additionalInfo,
		AlarmCondition:             f.alarmCondition,
		AlarmInterfaceA:            f.interfaceA.ptr(),
		EventSeverity:              f.severity,
		EventSourceType:            f.sourceType,
		FaultFieldsVersion:         APIVersion,
		SpecificProblem:            f.specificProblem,
		VFStatus:                   status,
	})
}
