package event

// HeartbeatEventType is the event type every heartbeat carries.
const HeartbeatEventType = "Autonomous heartbeat"

// Heartbeat is a header-only liveness event.
type Heartbeat struct {
	header Header
}

// NewHeartbeat creates a heartbeat with event type "Autonomous heartbeat".
func (f *Factory) NewHeartbeat() *Heartbeat {
	hb := &Heartbeat{header: newHeader(f, DomainHeartbeat)}
	hb.header.SetEventType(HeartbeatEventType)
	return hb
}

// Header returns the common header.
func (h *Heartbeat) Header() *Header {
	if h == nil {
		return nil
	}
	return &h.header
}

// MarshalJSON renders the wire envelope without a domain block.
func (h *Heartbeat) MarshalJSON() ([]byte, error) {
	return envelope(&h.header, "", nil)
}
