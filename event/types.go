package event

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/itsneelabh/evel/core"
)

// APIVersion is stamped into every header and domain block.
const APIVersion = 1

// Domain identifies which domain block an event carries.
type Domain int

const (
	DomainHeartbeat Domain = iota
	DomainFault
	DomainMeasurement
	DomainReport
	DomainOther
)

var domainNames = [...]string{
	DomainHeartbeat:   "heartbeat",
	DomainFault:       "fault",
	DomainMeasurement: "measurementsForVfScaling",
	DomainReport:      "measurementsForVfReporting",
	DomainOther:       "other",
}

func (d Domain) String() string {
	if d >= 0 && int(d) < len(domainNames) {
		return domainNames[d]
	}
	return fmt.Sprintf("Domain(%d)", int(d))
}

// MarshalJSON encodes the wire name of the domain.
func (d Domain) MarshalJSON() ([]byte, error) {
	if d < 0 || int(d) >= len(domainNames) {
		return nil, fmt.Errorf("unknown domain %d: %w", int(d), core.ErrBadJSONFormat)
	}
	return json.Marshal(domainNames[d])
}

// Priority of an event.
type Priority int

const (
	PriorityHigh Priority = iota
	PriorityMedium
	PriorityNormal
	PriorityLow
)

var priorityNames = [...]string{
	PriorityHigh:   "High",
	PriorityMedium: "Medium",
	PriorityNormal: "Normal",
	PriorityLow:    "Low",
}

func (p Priority) String() string {
	if p >= 0 && int(p) < len(priorityNames) {
		return priorityNames[p]
	}
	return fmt.Sprintf("Priority(%d)", int(p))
}

// MarshalJSON encodes the wire name of the priority.
func (p Priority) MarshalJSON() ([]byte, error) {
	if p < 0 || int(p) >= len(priorityNames) {
		return nil, fmt.Errorf("unknown priority %d: %w", int(p), core.ErrBadJSONFormat)
	}
	return json.Marshal(priorityNames[p])
}

// Severity of a fault.
type Severity int

const (
	SeverityCritical Severity = iota
	SeverityMajor
	SeverityMinor
	SeverityWarning
	SeverityNormal
)

var severityNames = [...]string{
	SeverityCritical: "CRITICAL",
	SeverityMajor:    "MAJOR",
	SeverityMinor:    "MINOR",
	SeverityWarning:  "WARNING",
	SeverityNormal:   "NORMAL",
}

func (s Severity) String() string {
	if s >= 0 && int(s) < len(severityNames) {
		return severityNames[s]
	}
	return fmt.Sprintf("Severity(%d)", int(s))
}

// MarshalJSON encodes the wire name of the severity.
func (s Severity) MarshalJSON() ([]byte, error) {
	if s < 0 || int(s) >= len(severityNames) {
		return nil, fmt.Errorf("unknown severity %d: %w", int(s), core.ErrBadJSONFormat)
	}
	return json.Marshal(severityNames[s])
}

// SourceType is the kind of entity raising a fault.
type SourceType int

const (
	SourceOther SourceType = iota
	SourceRouter
	SourceSwitch
	SourceHost
	SourceCard
	SourcePort
	SourceSlotThreshold
	SourcePortThreshold
	SourceVirtualMachine
)

var sourceTypeNames = [...]string{
	SourceOther:          "other",
	SourceRouter:         "router",
	SourceSwitch:         "switch",
	SourceHost:           "host",
	SourceCard:           "card",
	SourcePort:           "port",
	SourceSlotThreshold:  "slotThreshold",
	SourcePortThreshold:  "portThreshold",
	SourceVirtualMachine: "virtualMachine",
}

// String renders the wire form, e.g. "virtualMachine(8)".
func (s SourceType) String() string {
	if s >= 0 && int(s) < len(sourceTypeNames) {
		return fmt.Sprintf("%s(%d)", sourceTypeNames[s], int(s))
	}
	return fmt.Sprintf("SourceType(%d)", int(s))
}

// MarshalJSON encodes the wire form of the source type.
func (s SourceType) MarshalJSON() ([]byte, error) {
	if s < 0 || int(s) >= len(sourceTypeNames) {
		return nil, fmt.Errorf("unknown source type %d: %w", int(s), core.ErrBadJSONFormat)
	}
	return json.Marshal(s.String())
}

// ParseSourceType accepts either the bare name ("host") or the wire form
// ("host(3)"), case-insensitively.
func ParseSourceType(name string) (SourceType, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for i, candidate := range sourceTypeNames {
		st := SourceType(i)
		if n == strings.ToLower(candidate) || n == strings.ToLower(st.String()) {
			return st, nil
		}
	}
	return SourceOther, fmt.Errorf("unknown source type %q: %w", name, core.ErrInvalidConfiguration)
}

// VFStatus is the virtual function status reported with a fault.
type VFStatus int

const (
	VFStatusActive VFStatus = iota
	VFStatusIdle
	VFStatusPrepTerminate
	VFStatusReadyTerminate
	VFStatusRequestTerminate
)

var vfStatusNames = [...]string{
	VFStatusActive:           "Active",
	VFStatusIdle:             "Idle",
	VFStatusPrepTerminate:    "Preparing to terminate",
	VFStatusReadyTerminate:   "Ready to terminate",
	VFStatusRequestTerminate: "Requesting termination",
}

func (v VFStatus) String() string {
	if v >= 0 && int(v) < len(vfStatusNames) {
		return vfStatusNames[v]
	}
	return fmt.Sprintf("VFStatus(%d)", int(v))
}

// MarshalJSON encodes the wire name of the status.
func (v VFStatus) MarshalJSON() ([]byte, error) {
	if v < 0 || int(v) >= len(vfStatusNames) {
		return nil, fmt.Errorf("unknown vf status %d: %w", int(v), core.ErrBadJSONFormat)
	}
	return json.Marshal(vfStatusNames[v])
}
