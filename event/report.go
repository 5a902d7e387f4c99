package event

// Report is a measurementsForVfReporting event.
type Report struct {
	header Header

	interval     float64
	featureUsage []featureUse
	groups       measurementGroups
}

// NewReport creates a report covering the given measurement interval in seconds.
func (f *Factory) NewReport(measurementInterval float64) *Report {
	return &Report{
		header:   newHeader(f, DomainReport),
		interval: measurementInterval,
	}
}

// Header returns the common header.
func (r *Report) Header() *Header {
	if r == nil {
		return nil
	}
	return &r.header
}

// SetEventType sets the event type once.
func (r *Report) SetEventType(eventType string) {
	r.header.SetEventType(eventType)
}

// AddFeatureUse appends a feature utilization figure.
func (r *Report) AddFeatureUse(feature string, utilization float64) {
	if rejectNegative(r.header.logger, "featureUsageArray", utilization) {
		return
	}
	r.featureUsage = append(r.featureUsage, featureUse{FeatureIdentifier: feature, FeatureUtilization: utilization})
}

// AddCustomMeasurement appends name/value to the named group.
func (r *Report) AddCustomMeasurement(group, name, value string) {
	r.groups.add(group, name, value)
}

type reportJSON struct {
	AdditionalMeasurements   []measurementGroup `json:"additionalMeasurements,omitempty"`
	FeatureUsageArray        []featureUse       `json:"featureUsageArray,omitempty"`
	MeasurementFieldsVersion int                `json:"measurementFieldsVersion"`
	MeasurementInterval      float64            `json:"measurementInterval"`
}

// MarshalJSON renders the wire envelope with a measurementsForVfReporting block.
func (r *Report) MarshalJSON() ([]byte, error) {
	return envelope(&r.header, "measurementsForVfReporting", reportJSON{
		AdditionalMeasurements:   r.groups.list,
		FeatureUsageArray:        r.featureUsage,
		MeasurementFieldsVersion: APIVersion,
		MeasurementInterval:      r.interval,
	})
}
