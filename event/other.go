package event

// Other carries free-form name/value fields for events that fit no other domain.
type Other struct {
	header Header
	fields []nameValue
}

// NewOther creates an empty "other" domain event.
func (f *Factory) NewOther() *Other {
	return &Other{header: newHeader(f, DomainOther)}
}

// Header returns the common header.
func (o *Other) Header() *Header {
	if o == nil {
		return nil
	}
	return &o.header
}

// SetEventType sets the event type once.
func (o *Other) SetEventType(eventType string) {
	o.header.SetEventType(eventType)
}

// AddField appends a name/value pair.
func (o *Other) AddField(name, value string) {
	o.fields = append(o.fields, nameValue{Name: name, Value: value})
}

// MarshalJSON renders the wire envelope with an otherFields array.
// The array is always present, possibly empty.
func (o *Other) MarshalJSON() ([]byte, error) {
	fields := o.fields
	if fields == nil {
		fields = []nameValue{}
	}
	return envelope(&o.header, "otherFields", fields)
}
