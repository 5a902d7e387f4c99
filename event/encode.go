package event

import (
	"encoding/json"

	"github.com/itsneelabh/evel/core"
)

// Event is any value the dispatch engine can deliver. MarshalJSON renders
// the complete {"event": {...}} wire envelope.
//
// Ownership passes to the engine when Post succeeds; callers must not
// modify an event after that.
// Header returns nil for a nil pointer of any event type.
type Event interface {
	Header() *Header
	json.Marshaler
}

// Encode renders evt as the collector expects it.
// Failures are reported as core.ErrBadJSONFormat.
func Encode(evt Event) ([]byte, error) {
	if evt == nil || evt.Header() == nil {
		return nil, core.Errorf("event.Encode", core.ErrBadJSONFormat, "nil event")
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return nil, core.Errorf("event.Encode", core.ErrBadJSONFormat,
			"encoding %s event %d: %v", evt.Header().Domain(), evt.Header().Sequence(), err)
	}
	return data, nil
}

// envelope writes {"event":{"commonEventHeader":{...},"<key>":fields}}.
// An empty key means the event has no domain block.
func envelope(h *Header, key string, fields interface{}) ([]byte, error) {
	body := map[string]interface{}{
		"commonEventHeader": h.wire(),
	}
	if key != "" {
		body[key] = fields
	}
	return json.Marshal(map[string]interface{}{"event": body})
}

// nameValue is the {"name","value"} pair used by several domain arrays.
type nameValue struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}
