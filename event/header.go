package event

import (
	"strconv"

	"github.com/itsneelabh/evel/core"
)

// Header is the commonEventHeader carried by every event.
type Header struct {
	domain              Domain
	sequence            int64
	eventID             string
	eventType           optional[string]
	functionalRole      string
	priority            Priority
	reportingEntityID   string
	reportingEntityName string
	sourceID            string
	sourceName          string
	startEpoch          uint64
	lastEpoch           uint64
	startOverride       optional[uint64]
	lastOverride        optional[uint64]

	logger core.Logger
}

func newHeader(f *Factory, domain Domain) Header {
	seq := f.sequencer.Next()
	now := uint64(f.clock().UnixMicro())
	return Header{
		domain:              domain,
		sequence:            seq,
		eventID:             strconv.FormatInt(seq, 10),
		functionalRole:      f.functionalRole,
		priority:            PriorityNormal,
		reportingEntityID:   f.reportingEntityID,
		reportingEntityName: f.reportingEntityName,
		sourceID:            f.reportingEntityID,
		sourceName:          f.reportingEntityName,
		startEpoch:          now,
		lastEpoch:           now,
		logger:              f.logger,
	}
}

func (h *Header) Domain() Domain { return h.domain }

func (h *Header) Sequence() int64 { return h.sequence }

func (h *Header) EventID() string { return h.eventID }

func (h *Header) Priority() Priority { return h.priority }

// EventType returns the event type and whether one was ever set.
func (h *Header) EventType() (string, bool) {
	return h.eventType.get()
}

// SetEventType sets the optional event type. It can be set once.
func (h *Header) SetEventType(eventType string) {
	h.eventType.assign(eventType, "eventType", h.logger)
}

// SetStartEpochMicrosec overrides the construction-time start timestamp once.
func (h *Header) SetStartEpochMicrosec(us uint64) {
	h.startOverride.assign(us, "startEpochMicrosec", h.logger)
}

// SetLastEpochMicrosec overrides the construction-time last timestamp once.
func (h *Header) SetLastEpochMicrosec(us uint64) {
	h.lastOverride.assign(us, "lastEpochMicrosec", h.logger)
}

// StartEpochMicrosec returns the effective start timestamp.
func (h *Header) StartEpochMicrosec() uint64 {
	if v, ok := h.startOverride.get(); ok {
		return v
	}
	return h.startEpoch
}

// LastEpochMicrosec returns the effective last timestamp.
func (h *Header) LastEpochMicrosec() uint64 {
	if v, ok := h.lastOverride.get(); ok {
		return v
	}
	return h.lastEpoch
}

type headerJSON struct {
	Domain              Domain   `json:"domain"`
	EventID             string   `json:"eventId"`
	EventType           *string  `json:"eventType,omitempty"`
	FunctionalRole      string   `json:"functionalRole"`
	LastEpochMicrosec   uint64   `json:"lastEpochMicrosec"`
	Priority            Priority `json:"priority"`
	ReportingEntityID   string   `json:"reportingEntityId"`
	ReportingEntityName string   `json:"reportingEntityName"`
	Sequence            int64    `json:"sequence"`
	SourceID            string   `json:"sourceId"`
	SourceName          string   `json:"sourceName"`
	StartEpochMicrosec  uint64   `json:"startEpochMicrosec"`
	Version             int      `json:"version"`
}

func (h *Header) wire() headerJSON {
	return headerJSON{
		Domain:              h.domain,
		EventID:             h.eventID,
		EventType:           h.eventType.ptr(),
		FunctionalRole:      h.functionalRole,
		LastEpochMicrosec:   h.LastEpochMicrosec(),
		Priority:            h.priority,
		ReportingEntityID:   h.reportingEntityID,
		ReportingEntityName: h.reportingEntityName,
		Sequence:            h.sequence,
		SourceID:            h.sourceID,
		SourceName:          h.sourceName,
		StartEpochMicrosec:  h.StartEpochMicrosec(),
		Version:             APIVersion,
	}
}
